package infrastructure

import (
	"context"
	"errors"
	"fmt"

	"promptbot/internal/entities"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/ollama"
	"github.com/tmc/langchaingo/llms/openai"
)

// LangchainClient adapts a langchaingo model to the completion port.
type LangchainClient struct {
	name string
	llm  llms.Model
}

func NewLangchainClient(name string, llm llms.Model) *LangchainClient {
	return &LangchainClient{name: name, llm: llm}
}

// NewOpenAIClient talks to the OpenAI API, or any compatible server at baseURL.
func NewOpenAIClient(apiKey, baseURL string) (*LangchainClient, error) {
	opts := []openai.Option{openai.WithToken(apiKey)}
	if baseURL != "" {
		opts = append(opts, openai.WithBaseURL(baseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai model: %w", err)
	}
	return NewLangchainClient("OpenAI", llm), nil
}

func NewOllamaClient(serverURL, model string) (*LangchainClient, error) {
	var opts []ollama.Option
	if model != "" {
		opts = append(opts, ollama.WithModel(model))
	}
	if serverURL != "" {
		opts = append(opts, ollama.WithServerURL(serverURL))
	}
	llm, err := ollama.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create ollama model: %w", err)
	}
	return NewLangchainClient("Ollama", llm), nil
}

func (c *LangchainClient) Name() string { return c.name }

func (c *LangchainClient) Complete(ctx context.Context, req entities.CompletionRequest) (entities.Completion, error) {
	messages := make([]llms.MessageContent, 0, len(req.Messages))
	for _, m := range req.Messages {
		messages = append(messages, llms.TextParts(messageType(m.Role), m.Content))
	}

	opts := []llms.CallOption{llms.WithTemperature(req.Temperature)}
	if req.Model != "" {
		opts = append(opts, llms.WithModel(req.Model))
	}
	if req.MaxTokens > 0 {
		opts = append(opts, llms.WithMaxTokens(req.MaxTokens))
	}

	resp, err := c.llm.GenerateContent(ctx, messages, opts...)
	switch {
	case err == nil:
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return entities.Completion{}, fmt.Errorf("generate content: %w", err)
	case errors.Is(err, openai.ErrEmptyResponse), errors.Is(err, ollama.ErrEmptyResponse):
		return entities.Completion{Kind: entities.CompletionEmpty}, nil
	default:
		return entities.Completion{Kind: entities.CompletionProviderError, Error: err.Error()}, nil
	}

	if resp == nil || len(resp.Choices) == 0 {
		return entities.Completion{Kind: entities.CompletionEmpty}, nil
	}
	return entities.Completion{Kind: entities.CompletionSuccess, Text: resp.Choices[0].Content}, nil
}

func messageType(role entities.Role) llms.ChatMessageType {
	switch role {
	case entities.RoleSystem:
		return llms.ChatMessageTypeSystem
	case entities.RoleAssistant:
		return llms.ChatMessageTypeAI
	default:
		return llms.ChatMessageTypeHuman
	}
}
