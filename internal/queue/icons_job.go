package queue

import (
	"context"
	"fmt"
	"strconv"

	"github.com/desertthunder/cardbox/internal/cache"
	"github.com/desertthunder/cardbox/internal/mapper"
	"github.com/desertthunder/cardbox/internal/models"
	"github.com/desertthunder/cardbox/internal/shared"
)

// runIconsJob fetches the icon catalog and the target playlist, then maps one
// icon per chapter. Each per-track assignment is saved and announced before
// the next track starts; a final save keeps the document consistent.
func (w *Workflows) runIconsJob(ctx context.Context, job *models.Job, rt Runtime) (any, error) {
	payload, ok := job.Payload.(models.RegenerateIconsPayload)
	if !ok {
		return nil, fmt.Errorf("%w: regenerate-icons job carries %T payload", shared.ErrInvalidJob, job.Payload)
	}
	if !payload.AI.Configured() {
		return nil, fmt.Errorf("%w: icon mapping requires an AI endpoint and API key", shared.ErrMissingAIConfig)
	}

	content := w.newContent(payload.AuthToken)
	ai := w.newAI(payload.AI)

	rt.Progress(job.ID, models.JobProgress{
		Status: fmt.Sprintf("Regenerating icons for %s...", payload.Title),
	})

	icons, err := content.GetPublicIcons(ctx)
	if err != nil {
		return nil, err
	}
	playlist, err := content.GetPlaylist(ctx, payload.CardID)
	if err != nil {
		return nil, err
	}

	icnCache := cache.New(w.store, w.cfg.CacheExpiry(), w.logger)
	m := mapper.New(ai, content, icnCache, w.cfg.ArbitrationThrottle(), w.logger)

	onProgress := func(p models.JobProgress) {
		rt.Progress(job.ID, p)
		if p.FileName != "" && p.Current > 0 {
			// FileName carries the quoted track title
			title := p.FileName
			if unquoted, err := strconv.Unquote(title); err == nil {
				title = unquoted
			}
			rt.TrackIconProcessing(TrackIconProcessingEvent{
				JobID:      job.ID,
				PlaylistID: payload.CardID,
				TrackKey:   fmt.Sprintf("%02d", p.Current-1),
				TrackTitle: title,
			})
		}
	}

	onChapterSaved := func(card *models.Card, chapterKey, iconRef string) error {
		if _, err := content.SavePlaylist(ctx, card); err != nil {
			return err
		}
		rt.TrackIconUpdated(TrackIconUpdatedEvent{
			JobID:      job.ID,
			PlaylistID: payload.CardID,
			TrackKey:   chapterKey,
			IconRef:    iconRef,
		})
		rt.PlaylistUpdated(PlaylistUpdatedEvent{
			JobID:      job.ID,
			PlaylistID: payload.CardID,
			JobType:    job.Type,
		})
		return nil
	}

	mapped, err := m.MapIcons(ctx, playlist, icons, w.cfg.TopCandidates, onProgress, onChapterSaved)
	if err != nil {
		return nil, err
	}

	// final save for consistency; per-track saves may have raced or failed
	result, err := content.SavePlaylist(ctx, mapped)
	if err != nil {
		return nil, err
	}
	return result, nil
}
