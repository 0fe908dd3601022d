package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type UsageRepository struct {
	db *pgxpool.Pool
}

type DailyUsage struct {
	Date             time.Time `json:"date"`
	MessagesSent     int       `json:"messages_sent"`
	MessagesReceived int       `json:"messages_received"`
}

func NewUsageRepository(db *pgxpool.Pool) *UsageRepository {
	return &UsageRepository{db: db}
}

// IncrementSent increments messages_sent for today
func (r *UsageRepository) IncrementSent(ctx context.Context, userID int) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO message_usage (user_id, date, messages_sent, messages_received)
		VALUES ($1, CURRENT_DATE, 1, 0)
		ON CONFLICT (user_id, date)
		DO UPDATE SET messages_sent = message_usage.messages_sent + 1
	`, userID)
	return err
}

// IncrementReceived increments messages_received for today
func (r *UsageRepository) IncrementReceived(ctx context.Context, userID int) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO message_usage (user_id, date, messages_sent, messages_received)
		VALUES ($1, CURRENT_DATE, 0, 1)
		ON CONFLICT (user_id, date)
		DO UPDATE SET messages_received = message_usage.messages_received + 1
	`, userID)
	return err
}

// GetUsageHistory returns the last days of usage, oldest first.
func (r *UsageRepository) GetUsageHistory(ctx context.Context, userID int, days int) ([]DailyUsage, error) {
	rows, err := r.db.Query(ctx, `
		SELECT date, messages_sent, messages_received
		FROM message_usage
		WHERE user_id = $1 AND date > CURRENT_DATE - $2::int
		ORDER BY date ASC
	`, userID, days)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	usage := []DailyUsage{}
	for rows.Next() {
		var u DailyUsage
		if err := rows.Scan(&u.Date, &u.MessagesSent, &u.MessagesReceived); err != nil {
			return nil, err
		}
		usage = append(usage, u)
	}
	return usage, rows.Err()
}
