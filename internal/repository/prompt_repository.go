package repository

import (
	"context"
	"errors"
	"fmt"

	"promptbot/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound is returned when a row looked up by key does not exist.
var ErrNotFound = errors.New("not found")

type PromptRepository struct {
	db *pgxpool.Pool
}

func NewPromptRepository(db *pgxpool.Pool) *PromptRepository {
	return &PromptRepository{db: db}
}

// GetByID returns the prompt configuration with the given id, or ErrNotFound.
func (r *PromptRepository) GetByID(ctx context.Context, id string) (*entities.PromptConfig, error) {
	var p entities.PromptConfig
	err := r.db.QueryRow(ctx,
		"SELECT id, name, prompt, model, temperature, updated_at FROM prompts WHERE id = $1",
		id).Scan(&p.ID, &p.Name, &p.Prompt, &p.Model, &p.Temperature, &p.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("prompt %q: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get prompt %q: %w", id, err)
	}
	return &p, nil
}
