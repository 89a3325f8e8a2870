package memory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/emergency-notifier/internal/model"
	"github.com/jwalitptl/emergency-notifier/internal/repository"
)

func strPtr(s string) *string { return &s }

func TestUserRepository(t *testing.T) {
	ctx := context.Background()
	repo := NewUserRepository()

	withToken := &model.User{Base: model.Base{ID: "u1"}, FCMToken: strPtr("tok")}
	blank := &model.User{Base: model.Base{ID: "u2"}, FCMToken: strPtr("")}
	none := &model.User{Base: model.Base{ID: "u3"}}
	for _, u := range []*model.User{withToken, blank, none} {
		require.NoError(t, repo.Save(ctx, u))
	}

	users, err := repo.ListWithToken(ctx)
	require.NoError(t, err)
	require.Len(t, users, 1)
	assert.Equal(t, "u1", users[0].ID)

	// Mutating a returned copy must not leak into the store.
	*users[0].FCMToken = "changed"
	got, err := repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "tok", *got.FCMToken)

	require.NoError(t, repo.ClearToken(ctx, "u1"))
	require.NoError(t, repo.ClearToken(ctx, "u1"))
	require.NoError(t, repo.ClearToken(ctx, "missing"))
	assert.Equal(t, 1, repo.ClearCount("u1"))

	got, err = repo.Get(ctx, "u1")
	require.NoError(t, err)
	assert.Nil(t, got.FCMToken)

	_, err = repo.Get(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}
