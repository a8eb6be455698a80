package main

import (
	"context"

	"github.com/desertthunder/cardbox/internal/models"
	"github.com/urfave/cli/v3"
)

// QueueStatus prints a point-in-time snapshot of the queue.
func (r *Runner) QueueStatus(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.ensureQueue()
	if err != nil {
		return err
	}

	status := svc.GetStatus()
	if cmd.Bool("json") {
		return r.writeJSON(status, cmd.Bool("pretty"))
	}

	if status.IsProcessing {
		r.writePlain("processing: %s\n", status.CurrentJob.Title)
	} else {
		r.writePlain("idle\n")
	}
	r.writePlain("queued: %d\n", status.QueueLength)
	return nil
}

// QueueHistory prints terminal jobs, newest first.
func (r *Runner) QueueHistory(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.ensureQueue()
	if err != nil {
		return err
	}

	history := svc.GetJobHistory()
	if limit := cmd.Int("limit"); limit > 0 && limit < len(history) {
		history = history[:limit]
	}

	if cmd.Bool("json") {
		return r.writeJSON(history, cmd.Bool("pretty"))
	}

	if len(history) == 0 {
		return r.writePlain("no job history\n")
	}
	for _, job := range history {
		marker := "✓"
		if job.Status == models.JobFailed {
			marker = "✗"
		}
		r.writePlain("%s %s  %s (%s)", marker, formatTimestamp(job.CreatedAt), job.Title, job.Type)
		if job.Error != "" {
			r.writePlain("  %s", job.Error)
		}
		r.writePlain("\n")
	}
	return nil
}

// QueueClear wipes the persisted job history.
func (r *Runner) QueueClear(ctx context.Context, cmd *cli.Command) error {
	svc, err := r.ensureQueue()
	if err != nil {
		return err
	}

	svc.ClearJobHistory()
	return r.writePlain("✓ job history cleared\n")
}
