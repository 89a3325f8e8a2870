package datastore

import (
	"context"
	"os"
	"testing"

	gds "cloud.google.com/go/datastore"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/emergency-notifier/internal/model"
	"github.com/jwalitptl/emergency-notifier/internal/repository"
)

func TestToModel(t *testing.T) {
	u := toModel("u1", &userEntity{Email: "a@b.ph", FCMToken: ""})
	assert.Equal(t, "u1", u.ID)
	assert.True(t, u.Token().IsNone())

	u = toModel("u2", &userEntity{FCMToken: "tok"})
	tok, ok := u.Token().Get()
	require.True(t, ok)
	assert.Equal(t, "tok", tok)
}

// Runs against the emulator when DATASTORE_EMULATOR_HOST is set.
func TestUserRepositoryEmulator(t *testing.T) {
	if os.Getenv("DATASTORE_EMULATOR_HOST") == "" {
		t.Skip("DATASTORE_EMULATOR_HOST not set")
	}
	ctx := context.Background()

	client, err := gds.NewClient(ctx, "notifier-test")
	require.NoError(t, err)
	repo := NewUserRepository(client)
	t.Cleanup(func() { repo.Close() })

	token := "tok-" + uuid.NewString()
	user := &model.User{Base: model.Base{ID: uuid.NewString()}, Email: "a@b.ph", FCMToken: &token}
	require.NoError(t, repo.Save(ctx, user))

	got, err := repo.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, token, got.Token().OrElse(""))

	require.NoError(t, repo.ClearToken(ctx, user.ID))
	require.NoError(t, repo.ClearToken(ctx, user.ID))

	got, err = repo.Get(ctx, user.ID)
	require.NoError(t, err)
	assert.True(t, got.Token().IsNone())

	_, err = repo.Get(ctx, uuid.NewString())
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
