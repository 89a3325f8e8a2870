package notification

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jwalitptl/emergency-notifier/internal/model"
	"github.com/jwalitptl/emergency-notifier/pkg/circuitbreaker"
	"github.com/jwalitptl/emergency-notifier/pkg/logger"
	"github.com/jwalitptl/emergency-notifier/pkg/metrics"
)

func makeDeliveries(n int) []model.Delivery {
	out := make([]model.Delivery, n)
	for i := range out {
		out[i] = model.Delivery{
			UserID:  fmt.Sprintf("u%04d", i),
			Token:   fmt.Sprintf("tok-%04d", i),
			Payload: model.Payload{Data: map[string]string{"type": model.KindAnnouncement}},
		}
	}
	return out
}

func TestBatches(t *testing.T) {
	batches := Batches(makeDeliveries(1200), 500)
	require.Len(t, batches, 3)
	assert.Len(t, batches[0], 500)
	assert.Len(t, batches[1], 500)
	assert.Len(t, batches[2], 200)
	assert.Equal(t, "u0500", batches[1][0].UserID)

	assert.Empty(t, Batches(nil, 500))
	assert.Len(t, Batches(makeDeliveries(500), 500), 1)
}

func TestDispatchSplitsAndPreservesOrder(t *testing.T) {
	client := newFakePush()
	client.codes["tok-0042"] = model.ErrorCodeUnregistered
	d := NewDispatcher(client, DispatcherConfig{BatchSize: 1000}, nil, logger.Nop(), metrics.NewNop())

	deliveries := makeDeliveries(1200)
	results := d.Dispatch(context.Background(), deliveries)

	require.Equal(t, 3, client.calls())
	for _, b := range client.batches {
		assert.LessOrEqual(t, len(b), 500)
	}
	require.Len(t, results, 1200)
	for i, r := range results {
		assert.Equal(t, deliveries[i].UserID, r.UserID)
		assert.Equal(t, deliveries[i].Token, r.Token)
	}
	assert.False(t, results[42].Success)
	assert.Equal(t, model.ErrorCodeUnregistered, results[42].ErrorCode)

	stats := model.Tally(results)
	assert.Equal(t, 1200, stats.Recipients)
	assert.Equal(t, 1199, stats.Success)
	assert.Equal(t, 1, stats.Failure)
}

func TestDispatchConcurrentBatches(t *testing.T) {
	client := newFakePush()
	d := NewDispatcher(client, DispatcherConfig{BatchSize: 100, MaxConcurrentBatches: 4}, nil, logger.Nop(), metrics.NewNop())

	deliveries := makeDeliveries(1050)
	results := d.Dispatch(context.Background(), deliveries)

	assert.Equal(t, 11, client.calls())
	require.Len(t, results, 1050)
	for i, r := range results {
		assert.True(t, r.Success)
		assert.Equal(t, deliveries[i].UserID, r.UserID)
	}
}

func TestDispatchBatchErrorFailsWholeBatch(t *testing.T) {
	client := newFakePush()
	client.err = errors.New("service unavailable")
	d := NewDispatcher(client, DispatcherConfig{}, nil, logger.Nop(), metrics.NewNop())

	results := d.Dispatch(context.Background(), makeDeliveries(3))
	require.Len(t, results, 3)
	for _, r := range results {
		assert.False(t, r.Success)
		assert.Equal(t, model.ErrorCodeOther, r.ErrorCode)
		assert.False(t, r.ErrorCode.Permanent())
		assert.Error(t, r.Err)
	}
}

type shortClient struct{}

func (shortClient) SendEach(context.Context, []model.Delivery) ([]model.DeliveryResult, error) {
	return []model.DeliveryResult{{Success: true}}, nil
}

func TestDispatchResultCountMismatch(t *testing.T) {
	d := NewDispatcher(shortClient{}, DispatcherConfig{}, nil, logger.Nop(), metrics.NewNop())
	results := d.Dispatch(context.Background(), makeDeliveries(2))
	require.Len(t, results, 2)
	assert.False(t, results[0].Success)
	assert.False(t, results[1].Success)
}

type countingClient struct {
	calls int32
}

func (c *countingClient) SendEach(context.Context, []model.Delivery) ([]model.DeliveryResult, error) {
	atomic.AddInt32(&c.calls, 1)
	return nil, errors.New("down")
}

func TestDispatchBreakerOpens(t *testing.T) {
	client := &countingClient{}
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{Name: "push", MaxFailures: 2, Timeout: time.Minute})
	d := NewDispatcher(client, DispatcherConfig{BatchSize: 1}, cb, logger.Nop(), metrics.NewNop())

	results := d.Dispatch(context.Background(), makeDeliveries(4))
	require.Len(t, results, 4)
	assert.Equal(t, int32(2), atomic.LoadInt32(&client.calls))
	assert.Equal(t, circuitbreaker.StateOpen, cb.State())
	for _, r := range results {
		assert.Equal(t, model.ErrorCodeOther, r.ErrorCode)
	}
	assert.ErrorIs(t, results[3].Err, circuitbreaker.ErrOpen)
}

func TestDispatchEmpty(t *testing.T) {
	client := newFakePush()
	d := NewDispatcher(client, DispatcherConfig{}, nil, logger.Nop(), metrics.NewNop())
	assert.Empty(t, d.Dispatch(context.Background(), nil))
	assert.Zero(t, client.calls())
}
