package services

import (
	"context"

	"github.com/desertthunder/cardbox/internal/models"
)

// ContentAPI defines operations against the remote content service.
//
// All calls require a bearer credential. A 401/403 response is surfaced as
// shared.ErrAuthFailed and additionally reported through the client's
// auth-failure callback, independent of the immediate call's error.
type ContentAPI interface {
	// GetPlaylist retrieves a card document by id.
	GetPlaylist(ctx context.Context, cardID string) (*models.Card, error)

	// GetPlaylists retrieves the index of the user's cards.
	GetPlaylists(ctx context.Context) ([]models.Card, error)

	// SavePlaylist creates or updates a card. Creation vs update is decided
	// by the presence of card.CardID; the call is idempotent by embedded id.
	SavePlaylist(ctx context.Context, card *models.Card) (*SaveResult, error)

	// DeletePlaylist removes a card by id.
	DeletePlaylist(ctx context.Context, cardID string) error

	// GetPublicIcons lists the public 16x16 icon set.
	GetPublicIcons(ctx context.Context) ([]models.Icon, error)

	// GetCustomIcons lists the user's uploaded icons.
	GetCustomIcons(ctx context.Context) ([]models.Icon, error)

	// GetUploadURL requests a pre-signed upload slot for a file identified
	// by its sha256. A response without a URL means the file already exists
	// remotely and the transfer can be skipped.
	GetUploadURL(ctx context.Context, sha256, filename string) (*UploadSlot, error)

	// TranscodeStatus queries transcode progress for an upload.
	TranscodeStatus(ctx context.Context, uploadID string) (*TranscodeResult, error)

	// PutFile transfers raw bytes to a pre-signed URL.
	PutFile(ctx context.Context, url string, body []byte) error
}

// AIAPI defines the OpenAI-compatible endpoint operations used for icon mapping.
type AIAPI interface {
	// Probe checks endpoint availability with a lightweight GET. The context
	// bounds the request; expiry cancels it in-flight.
	Probe(ctx context.Context) error

	// Embeddings converts texts to vectors, batching requests at the
	// configured batch size.
	Embeddings(ctx context.Context, texts []string) ([][]float64, error)

	// SelectTitle asks the chat model to pick a title given system and user
	// prompts. Returns the raw model response trimmed of quoting.
	SelectTitle(ctx context.Context, system, user string) (string, error)
}

// SaveResult is the outcome of a playlist save.
type SaveResult struct {
	CardID   string `json:"cardId"`
	IsUpdate bool   `json:"isUpdate"`
}

// UploadSlot is the content service's answer to an upload-URL request.
type UploadSlot struct {
	UploadID      string `json:"uploadId"`
	UploadURL     string `json:"uploadUrl"`
	AlreadyExists bool   `json:"-"`
}

// TranscodeMetadata carries the media attributes extracted during transcode.
type TranscodeMetadata struct {
	Title    string `json:"title"`
	Duration int    `json:"duration"`
}

// TranscodeResult reports the state of a transcode job.
type TranscodeResult struct {
	TranscodedSHA256 string             `json:"transcodedSha256"`
	TranscodedAt     string             `json:"transcodedAt"`
	Metadata         *TranscodeMetadata `json:"metadata"`
}

// Complete reports whether transcoding has finished.
func (t *TranscodeResult) Complete() bool {
	return t != nil && t.TranscodedAt != ""
}
