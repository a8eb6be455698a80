package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/cardbox/internal/cache"
	"github.com/desertthunder/cardbox/internal/models"
	"github.com/desertthunder/cardbox/internal/shared"
	"github.com/urfave/cli/v3"
)

// IconsRegenerate queues an icon matching job for an existing playlist.
func (r *Runner) IconsRegenerate(ctx context.Context, cmd *cli.Command) error {
	if !r.config.AI.Configured() {
		return fmt.Errorf("%w: set base_url and api_key under [ai]", shared.ErrMissingAIConfig)
	}

	title := cmd.String("title")
	if title == "" {
		title = fmt.Sprintf("Icons for %s", cmd.String("id"))
	}

	return r.runJob(ctx, models.JobRequest{
		Type:   models.JobRegenerateIcons,
		Title:  title,
		CardID: cmd.String("id"),
	})
}

// IconsStats prints embedding cache statistics.
func (r *Runner) IconsStats(ctx context.Context, cmd *cli.Command) error {
	icons, err := r.iconCache()
	if err != nil {
		return err
	}

	stats := icons.GetStats()
	if cmd.Bool("json") {
		return r.writeJSON(stats, cmd.Bool("pretty"))
	}

	if !stats.HasCache {
		return r.writePlain("icon cache is empty\n")
	}
	state := "fresh"
	if stats.Expired {
		state = "expired"
	}
	r.writePlain("icons cached:  %d\n", stats.IconCount)
	r.writePlain("last fetched:  %s\n", formatTimestamp(stats.LastFetched))
	r.writePlain("state:         %s\n", state)
	return nil
}

// IconsClearCache drops the cached icon embeddings.
func (r *Runner) IconsClearCache(ctx context.Context, cmd *cli.Command) error {
	icons, err := r.iconCache()
	if err != nil {
		return err
	}

	if err := icons.Clear(); err != nil {
		return fmt.Errorf("failed to clear icon cache: %w", err)
	}
	return r.writePlain("✓ icon cache cleared\n")
}

func (r *Runner) iconCache() (*cache.IconCache, error) {
	store, err := r.ensureStore()
	if err != nil {
		return nil, err
	}
	return cache.New(store, r.config.Queue.CacheExpiry(), r.logger), nil
}
