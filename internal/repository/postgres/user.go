package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/emergency-notifier/internal/model"
	"github.com/jwalitptl/emergency-notifier/internal/repository"
)

type userRepository struct {
	BaseRepository
}

func NewUserRepository(base BaseRepository) repository.UserRepository {
	return &userRepository{base}
}

func (r *userRepository) Get(ctx context.Context, id string) (*model.User, error) {
	query := `
		SELECT id, email, fcm_token, role, is_admin, created_at, updated_at
		FROM users
		WHERE id = $1
	`

	var user model.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}

	return &user, nil
}

func (r *userRepository) ListWithToken(ctx context.Context) ([]*model.User, error) {
	query := `
		SELECT id, email, fcm_token, role, is_admin, created_at, updated_at
		FROM users
		WHERE fcm_token IS NOT NULL AND fcm_token <> ''
		ORDER BY id
	`

	var users []*model.User
	if err := r.db.SelectContext(ctx, &users, query); err != nil {
		return nil, fmt.Errorf("failed to list users with token: %w", err)
	}

	return users, nil
}

func (r *userRepository) ClearToken(ctx context.Context, id string) error {
	query := `
		UPDATE users
		SET fcm_token = NULL, updated_at = $2
		WHERE id = $1 AND fcm_token IS NOT NULL
	`

	if _, err := r.db.ExecContext(ctx, query, id, time.Now()); err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}

	return nil
}

func (r *userRepository) Save(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (id, email, fcm_token, role, is_admin, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO UPDATE SET
			email = EXCLUDED.email,
			fcm_token = EXCLUDED.fcm_token,
			role = EXCLUDED.role,
			is_admin = EXCLUDED.is_admin,
			updated_at = EXCLUDED.updated_at
	`

	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	return r.WithTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, query,
			user.ID,
			user.Email,
			user.FCMToken,
			user.Role,
			user.IsAdmin,
			user.CreatedAt,
			user.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to save user: %w", err)
		}
		return nil
	})
}
