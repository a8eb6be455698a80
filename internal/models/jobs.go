package models

import "time"

// JobType identifies a job variant. The set is closed; each variant carries
// its own payload shape.
type JobType string

const (
	JobCreatePlaylist  JobType = "create-playlist"
	JobUpdatePlaylist  JobType = "update-playlist"
	JobRegenerateIcons JobType = "regenerate-icons"
)

// JobStatus tracks a job through its lifecycle: queued -> processing ->
// completed or failed. A job cancelled while queued is removed without a
// terminal record.
type JobStatus string

const (
	JobQueued     JobStatus = "queued"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status is an end state.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// JobProgress is the mutable progress structure updated while a job runs.
type JobProgress struct {
	Status   string `json:"status"`
	Current  int    `json:"current,omitempty"`
	Total    int    `json:"total,omitempty"`
	FileName string `json:"fileName,omitempty"`
	Done     bool   `json:"done,omitempty"`
	Success  bool   `json:"success,omitempty"`
	Warning  bool   `json:"warning,omitempty"`
}

// AIConfig holds the OpenAI-compatible endpoint settings a job carries for
// icon mapping.
type AIConfig struct {
	BaseURL        string `json:"baseUrl"`
	APIKey         string `json:"apiKey"`
	EmbeddingModel string `json:"embeddingModel,omitempty"`
	ChatModel      string `json:"chatModel,omitempty"`
	BatchSize      int    `json:"batchSize,omitempty"`
}

// Configured reports whether the endpoint and key needed for icon mapping are present.
func (c AIConfig) Configured() bool {
	return c.BaseURL != "" && c.APIKey != ""
}

// Payload is the variant-specific job payload. Implementations are the only
// types usable here; the interface is sealed.
type Payload interface {
	isPayload()
}

// PlaylistPayload is the payload for create-playlist and update-playlist
// jobs. CardID is empty for creation and set for updates.
type PlaylistPayload struct {
	AuthToken  string   `json:"-"`
	Title      string   `json:"title"`
	Files      []string `json:"files"`
	CardID     string   `json:"cardId,omitempty"`
	CoverImage string   `json:"coverImage,omitempty"`
	AI         AIConfig `json:"-"`
}

func (PlaylistPayload) isPayload() {}

// RegenerateIconsPayload is the payload for regenerate-icons jobs.
type RegenerateIconsPayload struct {
	AuthToken string   `json:"-"`
	Title     string   `json:"title"`
	CardID    string   `json:"cardId"`
	AI        AIConfig `json:"-"`
}

func (RegenerateIconsPayload) isPayload() {}

// JobRequest is the tagged creation request callers submit to the queue.
type JobRequest struct {
	Type       JobType
	Title      string
	Files      []string
	CardID     string
	CoverImage string
}

// Job is a unit of queued work.
//
// The payload is immutable after construction; only Status, Progress, Result,
// and Error mutate, and only from the queue worker. The payload is excluded
// from serialization so credentials never reach the history store.
type Job struct {
	ID        string      `json:"id"`
	Type      JobType     `json:"type"`
	Title     string      `json:"title"`
	Status    JobStatus   `json:"status"`
	Progress  JobProgress `json:"progress"`
	Payload   Payload     `json:"-"`
	Result    any         `json:"result,omitempty"`
	Error     string      `json:"error,omitempty"`
	CreatedAt time.Time   `json:"createdAt"`
}

// QueueStatus is a point-in-time snapshot of the queue.
type QueueStatus struct {
	IsProcessing bool `json:"isProcessing"`
	QueueLength  int  `json:"queueLength"`
	CurrentJob   *Job `json:"currentJob,omitempty"`
}
