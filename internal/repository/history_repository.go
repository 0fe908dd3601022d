package repository

import (
	"context"
	"fmt"

	"promptbot/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// HistoryRepository stores transcripts one row per entry. Row ids are the append order.
type HistoryRepository struct {
	db *pgxpool.Pool
}

func NewHistoryRepository(db *pgxpool.Pool) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Get returns the most recent limit entries of a conversation, oldest first.
func (r *HistoryRepository) Get(ctx context.Context, conversationID string, limit int) ([]entities.ConversationEntry, error) {
	if limit <= 0 {
		return []entities.ConversationEntry{}, nil
	}
	rows, err := r.db.Query(ctx, `
		SELECT role, content FROM (
			SELECT id, role, content FROM conversation_history
			WHERE conversation_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent
		ORDER BY id ASC
	`, conversationID, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	entries := []entities.ConversationEntry{}
	for rows.Next() {
		var e entities.ConversationEntry
		var role string
		if err := rows.Scan(&role, &e.Content); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		e.Role = entities.Role(role)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Append writes entries in order inside one transaction.
func (r *HistoryRepository) Append(ctx context.Context, conversationID string, userID int, entries []entities.ConversationEntry) error {
	if len(entries) == 0 {
		return nil
	}
	return pgx.BeginFunc(ctx, r.db, func(tx pgx.Tx) error {
		for _, e := range entries {
			_, err := tx.Exec(ctx,
				"INSERT INTO conversation_history (conversation_id, user_id, role, content) VALUES ($1, $2, $3, $4)",
				conversationID, userID, string(e.Role), e.Content)
			if err != nil {
				return fmt.Errorf("append %s entry: %w", e.Role, err)
			}
		}
		return nil
	})
}
