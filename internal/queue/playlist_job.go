package queue

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cardbox/internal/models"
	"github.com/desertthunder/cardbox/internal/repositories"
	"github.com/desertthunder/cardbox/internal/services"
	"github.com/desertthunder/cardbox/internal/shared"
)

// defaultCoverImage is used when a playlist is created without a cover.
const defaultCoverImage = "https://picsum.photos/400/400"

// Workflows executes jobs against the content and AI services. It implements
// [Executor]; one instance serves every job, with per-job clients built from
// the payload's credential and AI settings.
type Workflows struct {
	baseURL string
	store   repositories.Store
	cfg     shared.QueueConfig
	logger  *log.Logger

	// client constructors, replaceable in tests
	newContent func(authToken string) services.ContentAPI
	newAI      func(ai models.AIConfig) services.AIAPI
}

// NewWorkflows creates the job executor. baseURL addresses the content
// service; cfg supplies polling, throttling, and cache tuning.
func NewWorkflows(baseURL string, store repositories.Store, cfg shared.QueueConfig, logger *log.Logger) *Workflows {
	w := &Workflows{baseURL: baseURL, store: store, cfg: cfg, logger: logger}
	w.newContent = func(authToken string) services.ContentAPI {
		return services.NewContentClient(baseURL, authToken, logger)
	}
	w.newAI = func(ai models.AIConfig) services.AIAPI {
		client := services.NewAIClient(ai, logger)
		client.SetProbeTimeout(cfg.ProbeTimeout())
		return client
	}
	return w
}

// Execute dispatches a job to its variant workflow.
func (w *Workflows) Execute(ctx context.Context, job *models.Job, rt Runtime) (any, error) {
	switch job.Type {
	case models.JobCreatePlaylist, models.JobUpdatePlaylist:
		return w.runPlaylistJob(ctx, job, rt)
	case models.JobRegenerateIcons:
		return w.runIconsJob(ctx, job, rt)
	default:
		return nil, fmt.Errorf("%w: unsupported job type %q", shared.ErrInvalidJob, job.Type)
	}
}

// runPlaylistJob uploads each file in order, builds one chapter per upload,
// and persists the assembled playlist. Any upload failure aborts the
// remaining files; no partial chapter list is saved.
func (w *Workflows) runPlaylistJob(ctx context.Context, job *models.Job, rt Runtime) (any, error) {
	payload, ok := job.Payload.(models.PlaylistPayload)
	if !ok {
		return nil, fmt.Errorf("%w: playlist job carries %T payload", shared.ErrInvalidJob, job.Payload)
	}

	content := w.newContent(payload.AuthToken)
	uploader := services.NewUploader(content, w.logger)
	uploader.SetPolling(w.cfg.TranscodePoll(), w.cfg.TranscodeTimeout())

	total := len(payload.Files) + 1
	rt.Progress(job.ID, models.JobProgress{
		Status: fmt.Sprintf("Processing %s...", payload.Title),
		Total:  total,
	})

	chapters := make([]models.Chapter, 0, len(payload.Files))
	for i, path := range payload.Files {
		name := filepath.Base(path)
		rt.Progress(job.ID, models.JobProgress{
			Status:   fmt.Sprintf("Uploading %s...", name),
			Current:  i + 1,
			Total:    total,
			FileName: name,
		})

		upload, err := uploader.UploadSong(ctx, path)
		if err != nil {
			return nil, fmt.Errorf("failed to upload %s: %w", name, err)
		}
		if !upload.Transcode.Complete() {
			return nil, fmt.Errorf("failed to transcode %s", name)
		}

		chapters = append(chapters, chapterFromUpload(upload, i))
	}

	statusText := "Creating playlist..."
	if job.Type == models.JobUpdatePlaylist {
		statusText = "Updating playlist..."
	}
	rt.Progress(job.ID, models.JobProgress{Status: statusText, Current: total, Total: total})

	card := buildPlaylistCard(payload, chapters)
	result, err := content.SavePlaylist(ctx, card)
	if err != nil {
		return nil, err
	}

	if job.Type == models.JobCreatePlaylist {
		w.chainIconGeneration(payload, result, rt)
	}
	return result, nil
}

// chapterFromUpload builds the chapter record for one transcoded upload.
// Chapter keys are zero-padded positional indexes.
func chapterFromUpload(upload *services.UploadResult, index int) models.Chapter {
	title := ""
	duration := 0
	if upload.Transcode.Metadata != nil {
		title = upload.Transcode.Metadata.Title
		duration = upload.Transcode.Metadata.Duration
	}
	if title == "" {
		title = strings.TrimSuffix(upload.FileName, filepath.Ext(upload.FileName))
	}

	return models.Chapter{
		Key:   fmt.Sprintf("%02d", index),
		Title: title,
		Tracks: []models.Track{{
			Key:      "01",
			Title:    title,
			TrackURL: models.IconRefPrefix + upload.Transcode.TranscodedSHA256,
			Type:     "audio",
			Format:   "mp3",
			Duration: duration,
			FileSize: upload.Size,
		}},
	}
}

// buildPlaylistCard assembles the card document. CardID stays empty for
// creation so the save is treated as a create.
func buildPlaylistCard(payload models.PlaylistPayload, chapters []models.Chapter) *models.Card {
	cover := payload.CoverImage
	if cover == "" {
		cover = defaultCoverImage
	}
	return &models.Card{
		CardID:  payload.CardID,
		Title:   payload.Title,
		Content: models.Content{Chapters: chapters},
		Metadata: models.Metadata{
			Cover: models.Cover{ImageL: cover},
		},
	}
}

// chainIconGeneration queues a follow-up regenerate-icons job for a freshly
// created playlist. A queuing failure never fails the parent job.
func (w *Workflows) chainIconGeneration(payload models.PlaylistPayload, result *services.SaveResult, rt Runtime) {
	if result.IsUpdate || result.CardID == "" || !payload.AI.Configured() {
		return
	}

	w.logger.Infof("playlist created with id %s, queuing icon generation", result.CardID)
	_, err := rt.Enqueue(models.JobRequest{
		Type:   models.JobRegenerateIcons,
		Title:  payload.Title,
		CardID: result.CardID,
	}, payload.AuthToken, payload.AI)
	if err != nil {
		w.logger.Errorf("failed to queue icon generation job: %v", err)
		return
	}
	w.logger.Info("icon generation job queued")
}
