package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"promptbot/internal/entities"
)

// OpenRouterClient calls an OpenAI-compatible chat completions endpoint.
// OpenRouter reports some upstream failures as an error object inside a 200 response,
// so the body is inspected before the status code is trusted.
type OpenRouterClient struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

const DefaultOpenRouterURL = "https://openrouter.ai/api/v1"

func NewOpenRouterClient(apiKey, baseURL string, timeout time.Duration) *OpenRouterClient {
	if baseURL == "" {
		baseURL = DefaultOpenRouterURL
	}
	return &OpenRouterClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

func (c *OpenRouterClient) Name() string { return "OpenRouter" }

type chatRequest struct {
	Model       string                 `json:"model"`
	Messages    []entities.ChatMessage `json:"messages"`
	Temperature float64                `json:"temperature"`
	MaxTokens   int                    `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *providerError `json:"error"`
}

type providerError struct {
	Code    json.RawMessage `json:"code"`
	Message string          `json:"message"`
}

func (e *providerError) String() string {
	if len(e.Code) == 0 || string(e.Code) == "null" {
		return e.Message
	}
	return fmt.Sprintf("%s (code %s)", e.Message, strings.Trim(string(e.Code), `"`))
}

// Complete sends one chat completion request. Network failures and timeouts are
// returned as errors; everything the provider answered is a Completion.
func (c *OpenRouterClient) Complete(ctx context.Context, req entities.CompletionRequest) (entities.Completion, error) {
	payload, err := json.Marshal(chatRequest{
		Model:       req.Model,
		Messages:    req.Messages,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	})
	if err != nil {
		return entities.Completion{}, fmt.Errorf("marshal chat request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return entities.Completion{}, fmt.Errorf("create chat request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return entities.Completion{}, fmt.Errorf("chat request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return entities.Completion{}, fmt.Errorf("read chat response: %w", err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return entities.Completion{
				Kind:  entities.CompletionProviderError,
				Error: fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(body), 200)),
			}, nil
		}
		return entities.Completion{}, fmt.Errorf("decode chat response: %s", truncate(string(body), 200))
	}

	if parsed.Error != nil {
		return entities.Completion{Kind: entities.CompletionProviderError, Error: parsed.Error.String()}, nil
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return entities.Completion{
			Kind:  entities.CompletionProviderError,
			Error: fmt.Sprintf("status %d", resp.StatusCode),
		}, nil
	}
	if len(parsed.Choices) == 0 {
		return entities.Completion{Kind: entities.CompletionEmpty}, nil
	}
	return entities.Completion{Kind: entities.CompletionSuccess, Text: parsed.Choices[0].Message.Content}, nil
}

func truncate(s string, maxChars int) string {
	runes := []rune(s)
	if len(runes) <= maxChars {
		return s
	}
	return string(runes[:maxChars])
}
