package notification

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/emergency-notifier/internal/model"
	"github.com/jwalitptl/emergency-notifier/pkg/logger"
	"github.com/jwalitptl/emergency-notifier/pkg/metrics"
)

func TestReconcileClearsPermanentFailures(t *testing.T) {
	f := newFixture()
	f.addUser("gone", "t-gone")
	f.addUser("bad", "t-bad")
	f.addUser("busy", "t-busy")
	f.addUser("ok", "t-ok")

	inv := NewInvalidator(f.users, logger.Nop(), metrics.NewNop())
	results := []model.DeliveryResult{
		{UserID: "gone", Token: "t-gone", ErrorCode: model.ErrorCodeUnregistered},
		{UserID: "bad", Token: "t-bad", ErrorCode: model.ErrorCodeInvalidToken},
		{UserID: "busy", Token: "t-busy", ErrorCode: model.ErrorCodeOther},
		{UserID: "ok", Token: "t-ok", Success: true},
	}

	ctx := context.Background()
	assert.ElementsMatch(t, []string{"gone", "bad"}, inv.Reconcile(ctx, results))

	for id, wantToken := range map[string]bool{"gone": false, "bad": false, "busy": true, "ok": true} {
		u, err := f.users.Get(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, wantToken, u.Token().IsSome(), id)
	}

	// A second pass over the same results is a no-op on the roster.
	inv.Reconcile(ctx, results)
	assert.Equal(t, 1, f.users.ClearCount("gone"))
	assert.Equal(t, 1, f.users.ClearCount("bad"))
	assert.Zero(t, f.users.ClearCount("busy"))
}

func TestReconcileDeduplicatesUsers(t *testing.T) {
	f := newFixture()
	f.addUser("u1", "t1")
	inv := NewInvalidator(f.users, logger.Nop(), metrics.NewNop())

	got := inv.Reconcile(context.Background(), []model.DeliveryResult{
		{UserID: "u1", ErrorCode: model.ErrorCodeUnregistered},
		{UserID: "u1", ErrorCode: model.ErrorCodeInvalidToken},
	})
	assert.Equal(t, []string{"u1"}, got)
}

func TestReconcileMissingUser(t *testing.T) {
	f := newFixture()
	inv := NewInvalidator(f.users, logger.Nop(), metrics.NewNop())
	got := inv.Reconcile(context.Background(), []model.DeliveryResult{
		{UserID: "ghost", ErrorCode: model.ErrorCodeUnregistered},
	})
	assert.Equal(t, []string{"ghost"}, got)
}
