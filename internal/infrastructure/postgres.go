package infrastructure

import (
	"context"
	"crypto/tls"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

// NewPostgresClient opens the shared pool, verifies it and applies the schema.
// In production the server certificate is verified; otherwise an sslmode that
// enables TLS connects without verification.
func NewPostgresClient(ctx context.Context, connString string, production bool) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute
	configureTLS(config, production)

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}
	if err := client.Migrate(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

func configureTLS(config *pgxpool.Config, production bool) {
	conn := config.ConnConfig
	if production {
		if conn.TLSConfig == nil {
			conn.TLSConfig = &tls.Config{ServerName: conn.Host, MinVersion: tls.VersionTLS12}
		} else {
			conn.TLSConfig.InsecureSkipVerify = false
			if conn.TLSConfig.ServerName == "" {
				conn.TLSConfig.ServerName = conn.Host
			}
		}
		conn.Fallbacks = nil
		return
	}
	if conn.TLSConfig != nil {
		conn.TLSConfig.InsecureSkipVerify = true
	}
}

var schema = []struct {
	name string
	ddl  string
}{
	{"users", `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			phone VARCHAR(32) UNIQUE,
			role VARCHAR(20) DEFAULT 'user',
			is_active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`},
	{"prompts", `
		CREATE TABLE IF NOT EXISTS prompts (
			id VARCHAR(64) PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT '',
			prompt TEXT NOT NULL CHECK (char_length(prompt) <= 50000),
			model VARCHAR(255) NOT NULL,
			temperature DOUBLE PRECISION NOT NULL DEFAULT 0.7 CHECK (temperature >= 0 AND temperature <= 1),
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`},
	{"conversation_history", `
		CREATE TABLE IF NOT EXISTS conversation_history (
			id BIGSERIAL PRIMARY KEY,
			conversation_id VARCHAR(255) NOT NULL,
			user_id INT NOT NULL,
			role VARCHAR(16) NOT NULL,
			content TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`},
	{"conversation_history index", `
		CREATE INDEX IF NOT EXISTS conversation_history_conversation_idx
			ON conversation_history (conversation_id, id);
	`},
	{"processed_messages", `
		CREATE TABLE IF NOT EXISTS processed_messages (
			message_id VARCHAR(255) NOT NULL,
			channel VARCHAR(32) NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			PRIMARY KEY (message_id, channel)
		);
	`},
	{"message_usage", `
		CREATE TABLE IF NOT EXISTS message_usage (
			user_id INT NOT NULL,
			date DATE NOT NULL,
			messages_sent INT NOT NULL DEFAULT 0,
			messages_received INT NOT NULL DEFAULT 0,
			PRIMARY KEY (user_id, date)
		);
	`},
}

func (p *PostgresClient) Migrate(ctx context.Context) error {
	for _, table := range schema {
		if _, err := p.Pool.Exec(ctx, table.ddl); err != nil {
			return fmt.Errorf("create %s: %w", table.name, err)
		}
	}

	var count int
	if err := p.Pool.QueryRow(ctx, "SELECT COUNT(*) FROM prompts").Scan(&count); err != nil {
		return err
	}
	if count == 0 {
		log.Info().Msg("Database initialized. No prompt configurations yet.")
	}
	return nil
}

// Ping reports whether the pool can reach the database.
func (p *PostgresClient) Ping(ctx context.Context) error {
	return p.Pool.Ping(ctx)
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
