package interfaces

import (
	"context"

	"promptbot/internal/entities"
)

// ConfigStore loads prompt configurations. A missing id is repository.ErrNotFound.
type ConfigStore interface {
	GetByID(ctx context.Context, id string) (*entities.PromptConfig, error)
}

// HistoryStore keeps append-only transcripts keyed by conversation id.
type HistoryStore interface {
	// Get returns the most recent limit entries, oldest first.
	Get(ctx context.Context, conversationID string, limit int) ([]entities.ConversationEntry, error)
	Append(ctx context.Context, conversationID string, userID int, entries []entities.ConversationEntry) error
}

// CompletionClient calls an external chat-completion provider. A returned error is a
// transport failure (network, timeout); provider-side failures come back as a Completion.
type CompletionClient interface {
	Name() string
	Complete(ctx context.Context, req entities.CompletionRequest) (entities.Completion, error)
}

// DeliveryClient pushes a reply to an external channel. A nil error means success.
type DeliveryClient interface {
	Send(ctx context.Context, msg entities.OutgoingMessage) error
}

// MessageLedger records processed provider message ids.
type MessageLedger interface {
	// Claim returns false when messageID was already claimed.
	Claim(ctx context.Context, messageID, channel string) (bool, error)
	// Release forgets a claim whose run did not complete.
	Release(ctx context.Context, messageID, channel string) error
}

// UsageRecorder counts messages per user.
type UsageRecorder interface {
	IncrementReceived(ctx context.Context, userID int) error
	IncrementSent(ctx context.Context, userID int) error
}
