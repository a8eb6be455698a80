package queue

import (
	"fmt"
	"time"

	"github.com/desertthunder/cardbox/internal/models"
	"github.com/desertthunder/cardbox/internal/shared"
)

// jobFactory builds one job variant from a tagged request. Each factory
// rejects requests tagged with a different variant.
type jobFactory interface {
	createJob(req models.JobRequest, authToken string, ai models.AIConfig) (*models.Job, error)
}

func baseJob(req models.JobRequest, payload models.Payload) *models.Job {
	return &models.Job{
		ID:        shared.GenerateID(),
		Type:      req.Type,
		Title:     req.Title,
		Status:    models.JobQueued,
		Progress:  models.JobProgress{Status: "Queued"},
		Payload:   payload,
		CreatedAt: time.Now(),
	}
}

type createPlaylistFactory struct{}

func (createPlaylistFactory) createJob(req models.JobRequest, authToken string, ai models.AIConfig) (*models.Job, error) {
	if req.Type != models.JobCreatePlaylist {
		return nil, fmt.Errorf("%w: %s request handed to create-playlist factory", shared.ErrInvalidJob, req.Type)
	}
	if len(req.Files) == 0 {
		return nil, fmt.Errorf("%w: create-playlist requires at least one file", shared.ErrInvalidJob)
	}
	return baseJob(req, models.PlaylistPayload{
		AuthToken:  authToken,
		Title:      req.Title,
		Files:      req.Files,
		CoverImage: req.CoverImage,
		AI:         ai,
	}), nil
}

type updatePlaylistFactory struct{}

func (updatePlaylistFactory) createJob(req models.JobRequest, authToken string, ai models.AIConfig) (*models.Job, error) {
	if req.Type != models.JobUpdatePlaylist {
		return nil, fmt.Errorf("%w: %s request handed to update-playlist factory", shared.ErrInvalidJob, req.Type)
	}
	if req.CardID == "" {
		return nil, fmt.Errorf("%w: update-playlist requires a card id", shared.ErrInvalidJob)
	}
	if len(req.Files) == 0 {
		return nil, fmt.Errorf("%w: update-playlist requires at least one file", shared.ErrInvalidJob)
	}
	return baseJob(req, models.PlaylistPayload{
		AuthToken:  authToken,
		Title:      req.Title,
		Files:      req.Files,
		CardID:     req.CardID,
		CoverImage: req.CoverImage,
		AI:         ai,
	}), nil
}

type regenerateIconsFactory struct{}

func (regenerateIconsFactory) createJob(req models.JobRequest, authToken string, ai models.AIConfig) (*models.Job, error) {
	if req.Type != models.JobRegenerateIcons {
		return nil, fmt.Errorf("%w: %s request handed to regenerate-icons factory", shared.ErrInvalidJob, req.Type)
	}
	if req.CardID == "" {
		return nil, fmt.Errorf("%w: regenerate-icons requires a card id", shared.ErrInvalidJob)
	}
	return baseJob(req, models.RegenerateIconsPayload{
		AuthToken: authToken,
		Title:     req.Title,
		CardID:    req.CardID,
		AI:        ai,
	}), nil
}

var factories = map[models.JobType]jobFactory{
	models.JobCreatePlaylist:  createPlaylistFactory{},
	models.JobUpdatePlaylist:  updatePlaylistFactory{},
	models.JobRegenerateIcons: regenerateIconsFactory{},
}

// NewJob builds a queued job from a tagged request.
func NewJob(req models.JobRequest, authToken string, ai models.AIConfig) (*models.Job, error) {
	factory, ok := factories[req.Type]
	if !ok {
		return nil, fmt.Errorf("%w: unsupported job type %q", shared.ErrInvalidJob, req.Type)
	}
	return factory.createJob(req, authToken, ai)
}
