package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/cardbox/internal/models"
	"github.com/desertthunder/cardbox/internal/queue"
	"github.com/desertthunder/cardbox/internal/repositories"
	"github.com/desertthunder/cardbox/internal/shared"
	tu "github.com/desertthunder/cardbox/internal/testing"
)

// stubExecutor completes or fails every job without touching the network.
type stubExecutor struct {
	err error
}

func (e *stubExecutor) Execute(ctx context.Context, job *models.Job, rt queue.Runtime) (any, error) {
	if e.err != nil {
		return nil, e.err
	}
	rt.Progress(job.ID, models.JobProgress{Status: "Working...", Current: 1, Total: 1})
	return "done", nil
}

func TestRunner(t *testing.T) {
	t.Run("NewRunner", func(t *testing.T) {
		t.Run("with all dependencies provided", func(t *testing.T) {
			config := shared.DefaultConfig()
			logger := shared.NewLogger(nil)
			output := &bytes.Buffer{}
			store := repositories.NewKVStore(tu.MustOpenDB(t))

			runner := NewRunner(RunnerOpts{
				Config:     config,
				ConfigPath: "/test/path/config.toml",
				Logger:     logger,
				Output:     output,
				Store:      store,
			})

			if runner.config != config {
				t.Error("expected config to be set")
			}
			if runner.configPath != "/test/path/config.toml" {
				t.Errorf("expected configPath to be set, got %s", runner.configPath)
			}
			if runner.logger != logger {
				t.Error("expected logger to be set")
			}
			if runner.output != output {
				t.Error("expected output to be set")
			}
			if runner.store != store {
				t.Error("expected store to be set")
			}
		})

		t.Run("with nil config uses defaults", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Config: nil})

			if runner.config == nil {
				t.Error("expected default config to be set")
			}
		})

		t.Run("with nil logger uses default", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Logger: nil})

			if runner.logger == nil {
				t.Error("expected default logger to be set")
			}
		})

		t.Run("with nil output uses stdout", func(t *testing.T) {
			runner := NewRunner(RunnerOpts{Output: nil})

			if runner.output != os.Stdout {
				t.Error("expected output to default to os.Stdout")
			}
		})
	})

	t.Run("authToken", func(t *testing.T) {
		t.Run("returns configured token", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Content.AccessToken = "secret-token"
			runner := NewRunner(RunnerOpts{Config: config})

			token, err := runner.authToken()
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if token != "secret-token" {
				t.Errorf("expected configured token, got %q", token)
			}
		})

		t.Run("fails when token missing", func(t *testing.T) {
			config := shared.DefaultConfig()
			config.Content.AccessToken = ""
			runner := NewRunner(RunnerOpts{Config: config, ConfigPath: "custom.toml"})

			_, err := runner.authToken()
			if !errors.Is(err, shared.ErrAuthFailed) {
				t.Fatalf("expected ErrAuthFailed, got %v", err)
			}
			if !strings.Contains(err.Error(), "custom.toml") {
				t.Errorf("expected error to name the config file, got %v", err)
			}
		})
	})

	t.Run("aiConfig maps TOML section onto job config", func(t *testing.T) {
		config := shared.DefaultConfig()
		config.AI.BaseURL = "http://localhost:1234/v1"
		config.AI.APIKey = "key"
		config.AI.EmbeddingModel = "embed-model"
		config.AI.ChatModel = "chat-model"
		config.AI.BatchSize = 7
		runner := NewRunner(RunnerOpts{Config: config})

		ai := runner.aiConfig()
		if ai.BaseURL != "http://localhost:1234/v1" || ai.APIKey != "key" {
			t.Errorf("expected endpoint settings to carry over, got %+v", ai)
		}
		if ai.EmbeddingModel != "embed-model" || ai.ChatModel != "chat-model" || ai.BatchSize != 7 {
			t.Errorf("expected model settings to carry over, got %+v", ai)
		}
		if !ai.Configured() {
			t.Error("expected mapped config to report configured")
		}
	})

	t.Run("checkFiles", func(t *testing.T) {
		t.Run("accepts existing files", func(t *testing.T) {
			dir := t.TempDir()
			path := filepath.Join(dir, "song.mp3")
			if err := os.WriteFile(path, []byte("audio"), 0644); err != nil {
				t.Fatalf("failed to write test file: %v", err)
			}

			if err := checkFiles([]string{path}); err != nil {
				t.Errorf("expected no error, got %v", err)
			}
		})

		t.Run("rejects missing files before queueing", func(t *testing.T) {
			err := checkFiles([]string{"/nonexistent/song.mp3"})
			if !errors.Is(err, shared.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
			if !strings.Contains(err.Error(), "/nonexistent/song.mp3") {
				t.Errorf("expected error to name the file, got %v", err)
			}
		})
	})

	t.Run("runJob", func(t *testing.T) {
		newQueueRunner := func(t *testing.T, exec queue.Executor) (*Runner, *bytes.Buffer) {
			t.Helper()
			store := repositories.NewKVStore(tu.MustOpenDB(t))
			config := shared.DefaultConfig()
			config.Content.AccessToken = "token"
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{
				Config: config,
				Output: output,
				Queue:  queue.NewService(exec, store, shared.NewLogger(io.Discard)),
			})
			return runner, output
		}

		t.Run("streams progress and reports completion", func(t *testing.T) {
			runner, output := newQueueRunner(t, &stubExecutor{})

			err := runner.runJob(context.Background(), models.JobRequest{
				Type:   models.JobRegenerateIcons,
				Title:  "Bedtime",
				CardID: "card-1",
			})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, "Working...") {
				t.Errorf("expected progress line in output, got %q", result)
			}
			if !strings.Contains(result, "✓ Bedtime completed") {
				t.Errorf("expected completion line, got %q", result)
			}
		})

		t.Run("surfaces job failure", func(t *testing.T) {
			runner, _ := newQueueRunner(t, &stubExecutor{err: errors.New("transcode stalled")})

			err := runner.runJob(context.Background(), models.JobRequest{
				Type:   models.JobRegenerateIcons,
				Title:  "Bedtime",
				CardID: "card-1",
			})
			if err == nil {
				t.Fatal("expected error from failed job")
			}
			if !strings.Contains(err.Error(), "Bedtime") || !strings.Contains(err.Error(), "transcode stalled") {
				t.Errorf("expected failure to name job and cause, got %v", err)
			}
		})

		t.Run("rejects invalid requests without starting", func(t *testing.T) {
			runner, _ := newQueueRunner(t, &stubExecutor{})

			err := runner.runJob(context.Background(), models.JobRequest{
				Type:  models.JobRegenerateIcons,
				Title: "Missing card",
			})
			if !errors.Is(err, shared.ErrInvalidJob) {
				t.Fatalf("expected ErrInvalidJob, got %v", err)
			}
		})
	})

	t.Run("writeJSON", func(t *testing.T) {
		t.Run("writes formatted JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, true)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if !strings.Contains(result, `"key": "value"`) {
				t.Errorf("expected formatted JSON, got %s", result)
			}
			if !strings.HasSuffix(result, "\n") {
				t.Error("expected output to end with newline")
			}
		})

		t.Run("writes compact JSON successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			expected := `{"key":"value"}` + "\n"
			if result != expected {
				t.Errorf("expected %q, got %q", expected, result)
			}
		})

		t.Run("handles marshal error with non-serializable data", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			// channels cannot be marshaled to JSON
			data := make(chan int)
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error for non-serializable data")
			}
			if !strings.Contains(err.Error(), "failed to marshal JSON") {
				t.Errorf("expected marshal error, got %v", err)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			data := map[string]string{"key": "value"}
			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})

		t.Run("handles newline write failure", func(t *testing.T) {
			data := map[string]string{"key": "value"}
			limitedWriter := tu.NewLimitedWriter(1, 0, &bytes.Buffer{})
			runner := NewRunner(RunnerOpts{Output: &limitedWriter})

			err := runner.writeJSON(data, false)

			if err == nil {
				t.Fatal("expected error writing newline")
			}
			if !strings.Contains(err.Error(), "failed to write newline") {
				t.Errorf("expected newline write error, got %v", err)
			}
		})
	})

	t.Run("writePlain", func(t *testing.T) {
		t.Run("writes plain text successfully", func(t *testing.T) {
			output := &bytes.Buffer{}
			runner := NewRunner(RunnerOpts{Output: output})

			err := runner.writePlain("hello %s", "world")

			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}

			result := output.String()
			if result != "hello world" {
				t.Errorf("expected 'hello world', got %q", result)
			}
		})

		t.Run("handles write failure", func(t *testing.T) {
			failing := &tu.FWriter{}
			runner := NewRunner(RunnerOpts{Output: failing})

			err := runner.writePlain("test")

			if err == nil {
				t.Fatal("expected error from failing writer")
			}
			if !strings.Contains(err.Error(), "failed to write output") {
				t.Errorf("expected write error, got %v", err)
			}
		})
	})

	t.Run("register", func(t *testing.T) {
		runner := NewRunner(RunnerOpts{})
		commands := runner.register()

		if len(commands) == 0 {
			t.Error("expected at least one command to be registered")
		}

		for i, cmd := range commands {
			if cmd == nil {
				t.Errorf("command at index %d is nil", i)
			}
		}
	})
}
