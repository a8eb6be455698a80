package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/desertthunder/cardbox/internal/shared"
	"github.com/desertthunder/cardbox/internal/ui"
	"github.com/urfave/cli/v3"
)

// Watch launches the interactive queue monitor.
func (r *Runner) Watch(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger("./tmp/cardbox-tui.log")
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	svc, err := r.ensureQueue()
	if err != nil {
		return err
	}
	svc.Start(ctx)
	defer svc.Stop()

	model := ui.NewModel(svc)
	p := tea.NewProgram(model)

	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
