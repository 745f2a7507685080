// Package generation wraps the external text-completion capability.
// Unlike the embedding gateway it never fails its caller: any upstream
// problem degrades to a best-effort answer so a query always produces
// something user-visible.
package generation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sony/gobreaker"

	"github.com/askdocs/askdocs/pkg/config"
	"github.com/askdocs/askdocs/pkg/observability"
)

// systemPrompt constrains the model to decline rather than fabricate
// when the answer is not present in the supplied context.
const systemPrompt = `You are an AI assistant that answers questions based on the provided context.
If the answer cannot be found in the context, acknowledge that you don't know rather than making up information.
Provide a clear, concise answer that directly addresses the question, citing relevant information from the context.`

// Degraded answers returned when the upstream call fails
const (
	degradedWithContextPrefix = "I encountered an issue when generating a response. However, I found relevant information that might help: \n\n"
	degradedNoContext         = "I'm sorry, I encountered an issue while processing your query. Please try again later."
)

// Client produces a natural-language answer from a question and context
type Client interface {
	Generate(ctx context.Context, question string, contexts []string, modelOverride string) string
}

// OpenAIClient implements Client against the OpenAI chat completions API
type OpenAIClient struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	logger     observability.Logger
}

// NewOpenAIClient creates a new OpenAI generation client
func NewOpenAIClient(cfg config.GenerationConfig, logger observability.Logger) *OpenAIClient {
	if logger == nil {
		logger = observability.NewNoopLogger()
	}
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "generation",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("Generation circuit breaker state change", map[string]interface{}{
				"from": from.String(),
				"to":   to.String(),
			})
		},
	})

	return &OpenAIClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		breaker: breaker,
		logger:  logger,
	}
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
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Generate answers the question against the joined contexts. On any
// upstream failure it returns the first context verbatim behind an
// apology, or a generic message when no context exists. An open
// circuit breaker short-circuits straight to the degraded answer.
func (c *OpenAIClient) Generate(ctx context.Context, question string, contexts []string, modelOverride string) string {
	answer, err := c.breaker.Execute(func() (interface{}, error) {
		return c.complete(ctx, question, contexts, modelOverride)
	})
	if err != nil {
		c.logger.Error("Generation failed, returning degraded answer", map[string]interface{}{
			"error":    err.Error(),
			"contexts": len(contexts),
		})
		return degrade(contexts)
	}
	return answer.(string)
}

func (c *OpenAIClient) complete(ctx context.Context, question string, contexts []string, modelOverride string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("generation API key is required but not provided")
	}

	model := c.model
	if modelOverride != "" {
		model = modelOverride
	}

	contextBlock := strings.Join(contexts, "\n\n")
	userPrompt := fmt.Sprintf("Context information is below:\n\n%s\n\nQuestion: %s\n\nAnswer:", contextBlock, question)

	reqBody := chatRequest{
		Model: model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send completion request: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("completion API returned status %d: %s", resp.StatusCode, truncate(body))
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("completion response is not valid JSON: %s", truncate(body))
	}
	if len(parsed.Choices) == 0 {
		return "", fmt.Errorf("completion response is missing choices: %s", truncate(body))
	}

	return parsed.Choices[0].Message.Content, nil
}

func degrade(contexts []string) string {
	if len(contexts) > 0 {
		return degradedWithContextPrefix + contexts[0]
	}
	return degradedNoContext
}

func truncate(body []byte) string {
	const max = 500
	if len(body) <= max {
		return string(body)
	}
	return string(body[:max]) + "..."
}
