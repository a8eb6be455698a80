package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/desertthunder/cardbox/internal/formatter"
	"github.com/desertthunder/cardbox/internal/models"
	"github.com/desertthunder/cardbox/internal/services"
	"github.com/desertthunder/cardbox/internal/shared"
	"github.com/urfave/cli/v3"
)

// PlaylistCreate uploads the given audio files as a new playlist. When the
// AI endpoint is configured an icon matching job is chained automatically.
func (r *Runner) PlaylistCreate(ctx context.Context, cmd *cli.Command) error {
	files := cmd.StringArgs("files")
	if err := checkFiles(files); err != nil {
		return err
	}

	return r.runJob(ctx, models.JobRequest{
		Type:       models.JobCreatePlaylist,
		Title:      cmd.String("title"),
		Files:      files,
		CoverImage: cmd.String("cover"),
	})
}

// PlaylistUpdate replaces the chapters of an existing playlist with the
// given audio files.
func (r *Runner) PlaylistUpdate(ctx context.Context, cmd *cli.Command) error {
	files := cmd.StringArgs("files")
	if err := checkFiles(files); err != nil {
		return err
	}

	return r.runJob(ctx, models.JobRequest{
		Type:       models.JobUpdatePlaylist,
		Title:      cmd.String("title"),
		Files:      files,
		CardID:     cmd.String("id"),
		CoverImage: cmd.String("cover"),
	})
}

// PlaylistList prints the playlists in the user's library.
func (r *Runner) PlaylistList(ctx context.Context, cmd *cli.Command) error {
	token, err := r.authToken()
	if err != nil {
		return err
	}

	content := services.NewContentClient(r.config.Content.BaseURL, token, r.logger)
	cards, err := content.GetPlaylists(ctx)
	if err != nil {
		return fmt.Errorf("failed to fetch playlists: %w", err)
	}

	if cmd.Bool("json") {
		return r.writeJSON(cards, cmd.Bool("pretty"))
	}

	if len(cards) == 0 {
		return r.writePlain("no playlists found\n")
	}
	for _, card := range cards {
		r.writePlain("%s  %s (%d chapters)\n", card.CardID, card.Title, len(card.Content.Chapters))
	}
	return nil
}

// PlaylistExport writes a playlist to disk as CSV, Markdown, plain text, or JSON.
func (r *Runner) PlaylistExport(ctx context.Context, cmd *cli.Command) error {
	token, err := r.authToken()
	if err != nil {
		return err
	}

	content := services.NewContentClient(r.config.Content.BaseURL, token, r.logger)
	card, err := content.GetPlaylist(ctx, cmd.String("id"))
	if err != nil {
		return fmt.Errorf("failed to fetch playlist: %w", err)
	}

	output := cmd.String("output")
	switch format := cmd.String("format"); format {
	case "csv":
		result, err := formatter.WriteCSVExport(card, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ wrote %s and %s\n", result.TracksFile, result.MetadataFile)
	case "markdown", "md":
		result, err := formatter.WriteMarkdownExport(card, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ wrote %s\n", strings.Join(result.Files, ", "))
	case "text", "txt":
		path, err := formatter.WriteTextExport(card, output)
		if err != nil {
			return err
		}
		r.writePlain("✓ wrote %s\n", path)
	case "json":
		return r.writeJSON(card, true)
	default:
		return fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidInput, format)
	}
	return nil
}

// checkFiles rejects missing paths before a job is queued so a typo fails
// fast instead of mid-upload.
func checkFiles(files []string) error {
	for _, path := range files {
		if _, err := os.Stat(path); err != nil {
			return fmt.Errorf("%w: audio file %q not found", shared.ErrInvalidInput, path)
		}
	}
	return nil
}
