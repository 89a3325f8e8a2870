package postgres

import (
	"context"
	"os"
	"testing"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/emergency-notifier/internal/model"
	"github.com/jwalitptl/emergency-notifier/internal/repository"
)

// Runs against a real database when NOTIFIER_TEST_DATABASE_URL is set.
func setupRepo(t *testing.T) repository.UserRepository {
	t.Helper()

	dsn := os.Getenv("NOTIFIER_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("NOTIFIER_TEST_DATABASE_URL not set")
	}

	db, err := sqlx.Connect("postgres", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, EnsureSchema(context.Background(), db))
	return NewUserRepository(NewBaseRepository(db))
}

func TestUserRepositoryTokenLifecycle(t *testing.T) {
	repo := setupRepo(t)
	ctx := context.Background()

	token := "token-" + uuid.NewString()
	user := &model.User{Email: "resident@example.com", FCMToken: &token, Role: model.UserRoleResident}
	user.ID = uuid.NewString()
	require.NoError(t, repo.Save(ctx, user))

	got, err := repo.Get(ctx, user.ID)
	require.NoError(t, err)
	tok, ok := got.Token().Get()
	require.True(t, ok)
	assert.Equal(t, token, tok)

	users, err := repo.ListWithToken(ctx)
	require.NoError(t, err)
	var found bool
	for _, u := range users {
		if u.ID == user.ID {
			found = true
		}
	}
	assert.True(t, found)

	require.NoError(t, repo.ClearToken(ctx, user.ID))
	require.NoError(t, repo.ClearToken(ctx, user.ID))

	got, err = repo.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.Token().IsNone())
}

func TestUserRepositoryGetMissing(t *testing.T) {
	repo := setupRepo(t)
	_, err := repo.Get(context.Background(), uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
