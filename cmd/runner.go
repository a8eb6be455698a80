package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cardbox/internal/models"
	"github.com/desertthunder/cardbox/internal/queue"
	"github.com/desertthunder/cardbox/internal/repositories"
	"github.com/desertthunder/cardbox/internal/shared"
	"github.com/urfave/cli/v3"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	config     *shared.Config
	configPath string
	logger     *log.Logger
	output     io.Writer

	db    *sql.DB
	store repositories.Store
	queue *queue.Service
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Logger     *log.Logger
	Output     io.Writer
	Store      repositories.Store
	Queue      *queue.Service
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}

	return &Runner{
		config:     opts.Config,
		configPath: opts.ConfigPath,
		logger:     opts.Logger,
		output:     opts.Output,
		store:      opts.Store,
		queue:      opts.Queue,
	}
}

// SetLogger swaps the runner's logger. Used when the TUI takes over the
// terminal and logs must go to a file instead.
func (r *Runner) SetLogger(l *log.Logger) {
	r.logger = l
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, playlistCommand, iconsCommand, queueCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// ensureStore opens the database and runs migrations on first use. Tests
// inject a Store through RunnerOpts to bypass this.
func (r *Runner) ensureStore() (repositories.Store, error) {
	if r.store != nil {
		return r.store, nil
	}

	db, err := shared.NewDatabase(r.config.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	shared.ConfigureDatabase(db, r.config.Database.MaxOpenConns, r.config.Database.MaxIdleConns)

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	r.db = db
	r.store = repositories.NewKVStore(db)
	return r.store, nil
}

// ensureQueue builds the queue service backed by the real workflows executor.
func (r *Runner) ensureQueue() (*queue.Service, error) {
	if r.queue != nil {
		return r.queue, nil
	}

	store, err := r.ensureStore()
	if err != nil {
		return nil, err
	}

	workflows := queue.NewWorkflows(r.config.Content.BaseURL, store, r.config.Queue, r.logger)
	r.queue = queue.NewService(workflows, store, r.logger)
	return r.queue, nil
}

// authToken returns the configured content API credential.
func (r *Runner) authToken() (string, error) {
	if r.config.Content.AccessToken == "" {
		return "", fmt.Errorf("%w: content access token not configured, edit [content] in %s", shared.ErrAuthFailed, r.configDisplayPath())
	}
	return r.config.Content.AccessToken, nil
}

func (r *Runner) configDisplayPath() string {
	if r.configPath != "" {
		return r.configPath
	}
	return "config.toml"
}

// aiConfig maps the TOML AI section onto the job-carried config.
func (r *Runner) aiConfig() models.AIConfig {
	return models.AIConfig{
		BaseURL:        r.config.AI.BaseURL,
		APIKey:         r.config.AI.APIKey,
		EmbeddingModel: r.config.AI.EmbeddingModel,
		ChatModel:      r.config.AI.ChatModel,
		BatchSize:      r.config.AI.BatchSize,
	}
}

// runJob enqueues a request, streams progress to the output writer, and
// blocks until the queue drains. Jobs chained by the workflow (icon
// regeneration after playlist creation) are followed in the same run.
func (r *Runner) runJob(ctx context.Context, req models.JobRequest) error {
	svc, err := r.ensureQueue()
	if err != nil {
		return err
	}

	token, err := r.authToken()
	if err != nil {
		return err
	}

	job, err := svc.AddJob(req, token, r.aiConfig())
	if err != nil {
		return err
	}

	done := make(chan models.Job, 8)

	unsubProgress := svc.Events().OnJobProgress(func(e queue.ProgressEvent) {
		if e.Progress.Total > 0 {
			r.writePlain("[%d/%d] %s\n", e.Progress.Current, e.Progress.Total, e.Progress.Status)
		} else {
			r.writePlain("%s\n", e.Progress.Status)
		}
	})
	defer unsubProgress()

	finished := func(j models.Job) {
		select {
		case done <- j:
		default:
		}
	}
	unsubCompleted := svc.Events().OnJobCompleted(finished)
	defer unsubCompleted()
	unsubFailed := svc.Events().OnJobFailed(finished)
	defer unsubFailed()

	svc.Start(ctx)
	defer svc.Stop()

	var failure error
	report := func(final models.Job) {
		if final.Status == models.JobFailed {
			err := fmt.Errorf("job %q failed: %s", final.Title, final.Error)
			if final.ID == job.ID {
				failure = err
			} else {
				r.writePlain("⚠ %v\n", err)
			}
			return
		}
		if final.Progress.Warning {
			r.writePlain("⚠ %s\n", final.Progress.Status)
		}
		r.writePlainln("✓ %s completed", final.Title)
	}

	for {
		select {
		case final := <-done:
			report(final)
		case <-ctx.Done():
			return ctx.Err()
		}

		status := svc.GetStatus()
		if !status.IsProcessing && status.QueueLength == 0 {
			for {
				select {
				case final := <-done:
					report(final)
				default:
					return failure
				}
			}
		}
	}
}

// Close releases the lazily opened database handle.
func (r *Runner) Close() {
	if r.db != nil {
		r.db.Close()
	}
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}

	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format(time.DateTime)
}
