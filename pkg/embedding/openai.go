// Package embedding wraps the external text-embedding capability. It
// converts text to fixed-length vectors and validates dimensionality.
package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/askdocs/askdocs/pkg/config"
	"github.com/askdocs/askdocs/pkg/observability"
)

// Client generates embedding vectors for text
type Client interface {
	GenerateEmbedding(ctx context.Context, text string) ([]float32, error)
}

// OpenAIClient implements Client against the OpenAI embeddings API
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	dimension  int
	httpClient *http.Client
	logger     observability.Logger
}

// NewOpenAIClient creates a new OpenAI embedding client
func NewOpenAIClient(cfg config.EmbeddingConfig, logger observability.Logger) *OpenAIClient {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIClient{
		apiKey:    cfg.APIKey,
		baseURL:   cfg.BaseURL,
		model:     cfg.Model,
		dimension: cfg.Dimension,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

type embeddingRequest struct {
	Input string `json:"input"`
	Model string `json:"model"`
}

type embeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Model string `json:"model"`
	Usage struct {
		PromptTokens int `json:"prompt_tokens"`
		TotalTokens  int `json:"total_tokens"`
	} `json:"usage"`
}

// GenerateEmbedding converts text to an embedding vector. A missing API
// key fails before any network attempt; non-success statuses and
// malformed responses surface as UpstreamError. A dimension mismatch
// against the configured dimension is logged, not fatal, so that model
// upgrades mid-flight stay observable without stalling the pipeline.
func (c *OpenAIClient) GenerateEmbedding(ctx context.Context, text string) ([]float32, error) {
	if text == "" {
		return nil, errors.New("text cannot be empty")
	}
	if c.apiKey == "" {
		return nil, &ConfigurationError{Setting: "embedding.api_key", Reason: "API key is required for embeddings but not provided"}
	}

	reqBody := embeddingRequest{Input: text, Model: c.model}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	// Retry transport-level failures with exponential backoff; API
	// errors are returned immediately and left to the queue to redeliver.
	var vector []float32
	operation := func() error {
		var opErr error
		vector, opErr = c.requestEmbedding(ctx, jsonData)
		var upstream *UpstreamError
		if errors.As(opErr, &upstream) {
			return backoff.Permanent(opErr)
		}
		return opErr
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 3), ctx)
	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}

	if c.dimension > 0 && len(vector) != c.dimension {
		c.logger.Warn("Embedding dimension mismatch", map[string]interface{}{
			"expected": c.dimension,
			"actual":   len(vector),
			"model":    c.model,
		})
	}

	return vector, nil
}

func (c *OpenAIClient) requestEmbedding(ctx context.Context, jsonData []byte) ([]float32, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/embeddings", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send embedding request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &UpstreamError{
			Provider:   "openai embeddings",
			StatusCode: resp.StatusCode,
			Body:       truncateBody(body),
		}
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, &UpstreamError{Provider: "openai embeddings", Reason: "response is not valid JSON", Body: truncateBody(body)}
	}
	if len(parsed.Data) == 0 || len(parsed.Data[0].Embedding) == 0 {
		return nil, &UpstreamError{Provider: "openai embeddings", Reason: "response is missing embedding data", Body: truncateBody(body)}
	}

	return parsed.Data[0].Embedding, nil
}
