package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"promptbot/internal/entities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

type fakeModel struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
	opts     llms.CallOptions
}

func (m *fakeModel) GenerateContent(_ context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	m.messages = messages
	for _, opt := range options {
		opt(&m.opts)
	}
	return m.resp, m.err
}

func (m *fakeModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, m, prompt, options...)
}

func TestLangchainClient_Complete(t *testing.T) {
	req := entities.CompletionRequest{
		Model: "llama3",
		Messages: []entities.ChatMessage{
			{Role: entities.RoleSystem, Content: "Language: it"},
			{Role: entities.RoleUser, Content: "ciao"},
			{Role: entities.RoleAssistant, Content: "ciao!"},
			{Role: entities.RoleUser, Content: "come va?"},
		},
		Temperature: 0.4,
		MaxTokens:   128,
	}

	tests := []struct {
		name      string
		model     *fakeModel
		wantKind  entities.CompletionKind
		wantText  string
		wantErr   bool
		wantError string
	}{
		{
			name:     "success",
			model:    &fakeModel{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: "bene"}}}},
			wantKind: entities.CompletionSuccess,
			wantText: "bene",
		},
		{
			name:     "no choices",
			model:    &fakeModel{resp: &llms.ContentResponse{}},
			wantKind: entities.CompletionEmpty,
		},
		{
			name:     "empty response error",
			model:    &fakeModel{err: openai.ErrEmptyResponse},
			wantKind: entities.CompletionEmpty,
		},
		{
			name:      "api error",
			model:     &fakeModel{err: errors.New("API returned unexpected status code: 429")},
			wantKind:  entities.CompletionProviderError,
			wantError: "API returned unexpected status code: 429",
		},
		{
			name:    "deadline",
			model:   &fakeModel{err: fmt.Errorf("post: %w", context.DeadlineExceeded)},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := NewLangchainClient("Ollama", tt.model)
			completion, err := client.Complete(context.Background(), req)
			if tt.wantErr {
				require.ErrorIs(t, err, context.DeadlineExceeded)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantKind, completion.Kind)
			assert.Equal(t, tt.wantText, completion.Text)
			assert.Equal(t, tt.wantError, completion.Error)

			require.Len(t, tt.model.messages, 4)
			assert.Equal(t, llms.ChatMessageTypeSystem, tt.model.messages[0].Role)
			assert.Equal(t, llms.ChatMessageTypeHuman, tt.model.messages[1].Role)
			assert.Equal(t, llms.ChatMessageTypeAI, tt.model.messages[2].Role)
			assert.Equal(t, "llama3", tt.model.opts.Model)
			assert.Equal(t, 0.4, tt.model.opts.Temperature)
			assert.Equal(t, 128, tt.model.opts.MaxTokens)
		})
	}
}
