// OpenAI-compatible AI client for embeddings and chat-based icon arbitration.
package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/desertthunder/cardbox/internal/models"
	"github.com/desertthunder/cardbox/internal/shared"
)

const (
	// Defaults match the models the tool is tuned against; both are
	// overridable per job through the AI configuration.
	defaultEmbeddingModel = "mixedbread-ai/mxbai-embed-xsmall-v1"
	defaultChatModel      = "openai/gpt-oss-20b"
	defaultBatchSize      = 50
	defaultProbeTimeout   = 10 * time.Second
)

// AIClient implements [AIAPI] against any OpenAI-compatible endpoint.
type AIClient struct {
	baseURL        string
	apiKey         string
	embeddingModel string
	chatModel      string
	batchSize      int
	probeTimeout   time.Duration
	httpClient     *http.Client
	logger         *log.Logger
}

// NewAIClient creates an AI client from a job's AI configuration, filling in
// model and batching defaults for unset fields.
func NewAIClient(cfg models.AIConfig, logger *log.Logger) *AIClient {
	c := &AIClient{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		embeddingModel: cfg.EmbeddingModel,
		chatModel:      cfg.ChatModel,
		batchSize:      cfg.BatchSize,
		probeTimeout:   defaultProbeTimeout,
		httpClient:     http.DefaultClient,
		logger:         logger,
	}
	if c.embeddingModel == "" {
		c.embeddingModel = defaultEmbeddingModel
	}
	if c.chatModel == "" {
		c.chatModel = defaultChatModel
	}
	if c.batchSize <= 0 {
		c.batchSize = defaultBatchSize
	}
	return c
}

// SetProbeTimeout overrides the connectivity probe timeout.
func (c *AIClient) SetProbeTimeout(d time.Duration) {
	if d > 0 {
		c.probeTimeout = d
	}
}

// Probe checks endpoint availability via GET /models. The request is
// cancelled in-flight when the probe timeout expires.
func (c *AIClient) Probe(ctx context.Context) error {
	probeCtx, cancel := context.WithTimeout(ctx, c.probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodGet, c.baseURL+"/models", nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if probeCtx.Err() != nil {
			return fmt.Errorf("%w: AI endpoint probe exceeded %s", shared.ErrTimeout, c.probeTimeout)
		}
		return fmt.Errorf("%w: AI endpoint unreachable: %v", shared.ErrServiceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: AI endpoint probe returned status %d", shared.ErrServiceUnavailable, resp.StatusCode)
	}

	c.logger.Debug("AI endpoint probe successful")
	return nil
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embeddings converts texts to vectors, issuing one request per batch.
func (c *AIClient) Embeddings(ctx context.Context, texts []string) ([][]float64, error) {
	all := make([][]float64, 0, len(texts))

	batches := (len(texts) + c.batchSize - 1) / c.batchSize
	for i := 0; i < len(texts); i += c.batchSize {
		end := min(i+c.batchSize, len(texts))
		c.logger.Debugf("embedding batch %d/%d", i/c.batchSize+1, batches)

		var response embeddingResponse
		body := embeddingRequest{Model: c.embeddingModel, Input: texts[i:end]}
		if err := c.post(ctx, "/embeddings", body, &response); err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}

		for _, d := range response.Data {
			all = append(all, d.Embedding)
		}
	}

	if len(all) != len(texts) {
		return nil, fmt.Errorf("%w: expected %d embeddings, got %d", shared.ErrAPIRequest, len(texts), len(all))
	}
	return all, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// SelectTitle asks the chat model to pick a title. The response content is
// trimmed of surrounding whitespace and quote characters.
func (c *AIClient) SelectTitle(ctx context.Context, system, user string) (string, error) {
	body := chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	}

	var response chatResponse
	if err := c.post(ctx, "/chat/completions", body, &response); err != nil {
		return "", fmt.Errorf("chat request failed: %w", err)
	}

	if len(response.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices in chat response", shared.ErrAPIRequest)
	}

	answer := strings.TrimSpace(response.Choices[0].Message.Content)
	answer = strings.ReplaceAll(answer, `"`, "")
	answer = strings.ReplaceAll(answer, "'", "")
	return strings.TrimSpace(answer), nil
}

// post issues an authenticated JSON POST and decodes the response.
func (c *AIClient) post(ctx context.Context, endpoint string, body, result any) error {
	data, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+endpoint, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", shared.ErrAPIRequest, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		text, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: status %d: %s", shared.ErrAPIRequest, resp.StatusCode, text)
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
