package services

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/desertthunder/cardbox/internal/models"
	"github.com/desertthunder/cardbox/internal/shared"
)

func newTestAIClient(t *testing.T, cfg models.AIConfig, handler http.HandlerFunc) *AIClient {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)
	cfg.BaseURL = server.URL
	if cfg.APIKey == "" {
		cfg.APIKey = "test-key"
	}
	return NewAIClient(cfg, shared.NewLogger(io.Discard))
}

func TestAIClient(t *testing.T) {
	t.Run("Defaults", func(t *testing.T) {
		c := NewAIClient(models.AIConfig{BaseURL: "http://example.com/"}, shared.NewLogger(io.Discard))

		if c.baseURL != "http://example.com" {
			t.Errorf("expected trailing slash to be trimmed, got %s", c.baseURL)
		}
		if c.embeddingModel != defaultEmbeddingModel {
			t.Errorf("expected default embedding model, got %s", c.embeddingModel)
		}
		if c.chatModel != defaultChatModel {
			t.Errorf("expected default chat model, got %s", c.chatModel)
		}
		if c.batchSize != defaultBatchSize {
			t.Errorf("expected default batch size %d, got %d", defaultBatchSize, c.batchSize)
		}
	})

	t.Run("Probe", func(t *testing.T) {
		t.Run("Success", func(t *testing.T) {
			c := newTestAIClient(t, models.AIConfig{}, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/models" {
					t.Errorf("expected path '/models', got %s", r.URL.Path)
				}
				if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
					t.Errorf("expected bearer header, got %q", got)
				}
				w.WriteHeader(http.StatusOK)
			})

			if err := c.Probe(context.Background()); err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
		})

		t.Run("Non-200 Status", func(t *testing.T) {
			c := newTestAIClient(t, models.AIConfig{}, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
			})

			err := c.Probe(context.Background())
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})

		t.Run("Timeout Cancels In Flight", func(t *testing.T) {
			c := newTestAIClient(t, models.AIConfig{}, func(w http.ResponseWriter, r *http.Request) {
				time.Sleep(200 * time.Millisecond)
				w.WriteHeader(http.StatusOK)
			})
			c.SetProbeTimeout(10 * time.Millisecond)

			start := time.Now()
			err := c.Probe(context.Background())
			if !errors.Is(err, shared.ErrTimeout) {
				t.Fatalf("expected ErrTimeout, got %v", err)
			}
			if time.Since(start) > 100*time.Millisecond {
				t.Error("probe should have been cancelled before the handler finished")
			}
		})

		t.Run("Unreachable Endpoint", func(t *testing.T) {
			c := NewAIClient(models.AIConfig{BaseURL: "http://127.0.0.1:1", APIKey: "k"}, shared.NewLogger(io.Discard))
			err := c.Probe(context.Background())
			if !errors.Is(err, shared.ErrServiceUnavailable) {
				t.Errorf("expected ErrServiceUnavailable, got %v", err)
			}
		})
	})

	t.Run("Embeddings", func(t *testing.T) {
		t.Run("Batches Requests", func(t *testing.T) {
			var batchSizes []int
			c := newTestAIClient(t, models.AIConfig{BatchSize: 2}, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/embeddings" {
					t.Errorf("expected path '/embeddings', got %s", r.URL.Path)
				}

				var request embeddingRequest
				if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
					t.Fatalf("failed to decode request: %v", err)
				}
				batchSizes = append(batchSizes, len(request.Input))

				data := make([]map[string]any, len(request.Input))
				for i := range request.Input {
					data[i] = map[string]any{"embedding": []float64{1, 0}}
				}
				json.NewEncoder(w).Encode(map[string]any{"data": data})
			})

			vectors, err := c.Embeddings(context.Background(), []string{"a", "b", "c", "d", "e"})
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if len(vectors) != 5 {
				t.Errorf("expected 5 vectors, got %d", len(vectors))
			}
			if len(batchSizes) != 3 || batchSizes[0] != 2 || batchSizes[2] != 1 {
				t.Errorf("expected batches [2 2 1], got %v", batchSizes)
			}
		})

		t.Run("Count Mismatch", func(t *testing.T) {
			c := newTestAIClient(t, models.AIConfig{}, func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"data": []any{}})
			})

			_, err := c.Embeddings(context.Background(), []string{"a", "b"})
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest for count mismatch, got %v", err)
			}
		})

		t.Run("HTTP Error", func(t *testing.T) {
			c := newTestAIClient(t, models.AIConfig{}, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusTooManyRequests)
			})

			_, err := c.Embeddings(context.Background(), []string{"a"})
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})

	t.Run("SelectTitle", func(t *testing.T) {
		t.Run("Trims Quoting", func(t *testing.T) {
			c := newTestAIClient(t, models.AIConfig{}, func(w http.ResponseWriter, r *http.Request) {
				if r.URL.Path != "/chat/completions" {
					t.Errorf("expected path '/chat/completions', got %s", r.URL.Path)
				}

				var request chatRequest
				if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
					t.Fatalf("failed to decode request: %v", err)
				}
				if len(request.Messages) != 2 || request.Messages[0].Role != "system" {
					t.Errorf("expected system+user messages, got %+v", request.Messages)
				}

				json.NewEncoder(w).Encode(map[string]any{
					"choices": []map[string]any{
						{"message": map[string]any{"content": ` "dinosaur" `}},
					},
				})
			})

			answer, err := c.SelectTitle(context.Background(), "pick one", "options: dinosaur, dog")
			if err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if answer != "dinosaur" {
				t.Errorf("expected 'dinosaur', got %q", answer)
			}
		})

		t.Run("Empty Choices", func(t *testing.T) {
			c := newTestAIClient(t, models.AIConfig{}, func(w http.ResponseWriter, r *http.Request) {
				json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
			})

			_, err := c.SelectTitle(context.Background(), "s", "u")
			if !errors.Is(err, shared.ErrAPIRequest) {
				t.Errorf("expected ErrAPIRequest, got %v", err)
			}
		})
	})
}
