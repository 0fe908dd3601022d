package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// LedgerRepository remembers provider message ids that were already processed.
type LedgerRepository struct {
	db *pgxpool.Pool
}

func NewLedgerRepository(db *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// Claim inserts messageID and reports whether this call was the first to do so.
func (r *LedgerRepository) Claim(ctx context.Context, messageID, channel string) (bool, error) {
	tag, err := r.db.Exec(ctx, `
		INSERT INTO processed_messages (message_id, channel)
		VALUES ($1, $2)
		ON CONFLICT (message_id, channel) DO NOTHING
	`, messageID, channel)
	if err != nil {
		return false, fmt.Errorf("claim message %s: %w", messageID, err)
	}
	return tag.RowsAffected() == 1, nil
}

// Release deletes a claim so the message can be processed again.
func (r *LedgerRepository) Release(ctx context.Context, messageID, channel string) error {
	_, err := r.db.Exec(ctx, `
		DELETE FROM processed_messages
		WHERE message_id = $1 AND channel = $2
	`, messageID, channel)
	if err != nil {
		return fmt.Errorf("release message %s: %w", messageID, err)
	}
	return nil
}
