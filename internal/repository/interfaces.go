package repository

import (
	"context"
	"errors"

	"github.com/jwalitptl/emergency-notifier/internal/model"
)

// ErrNotFound is returned when a roster document does not exist.
var ErrNotFound = errors.New("not found")

type (
	// UserRepository is the roster store as seen by the notifier
	UserRepository interface {
		Get(ctx context.Context, id string) (*model.User, error)
		// ListWithToken returns every user carrying a delivery token.
		ListWithToken(ctx context.Context) ([]*model.User, error)
		// ClearToken removes the stored token. Clearing an absent token or
		// an absent user is a no-op.
		ClearToken(ctx context.Context, id string) error
		Save(ctx context.Context, user *model.User) error
		Ping(ctx context.Context) error
		Close() error
	}
)
