package repository

import (
	"context"
	"errors"
	"fmt"

	"promptbot/internal/entities"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type UserRepository struct {
	db *pgxpool.Pool
}

func NewUserRepository(db *pgxpool.Pool) *UserRepository {
	return &UserRepository{db: db}
}

const userColumns = "id, username, COALESCE(phone, ''), role, is_active, created_at"

func scanUser(row pgx.Row) (*entities.User, error) {
	var user entities.User
	err := row.Scan(&user.ID, &user.Username, &user.Phone, &user.Role, &user.IsActive, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *UserRepository) GetByID(ctx context.Context, id int) (*entities.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE id = $1", id))
	if err != nil {
		return nil, fmt.Errorf("get user %d: %w", id, err)
	}
	return user, nil
}

// GetByPhone looks up the owner of an inbound channel message.
func (r *UserRepository) GetByPhone(ctx context.Context, phone string) (*entities.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, "SELECT "+userColumns+" FROM users WHERE phone = $1", phone))
	if err != nil {
		return nil, fmt.Errorf("get user by phone: %w", err)
	}
	return user, nil
}
