package notification

import (
	"context"
	"sync"
	"time"

	"github.com/jwalitptl/emergency-notifier/internal/identity"
	"github.com/jwalitptl/emergency-notifier/internal/model"
	"github.com/jwalitptl/emergency-notifier/internal/repository/memory"
	"github.com/jwalitptl/emergency-notifier/pkg/logger"
	"github.com/jwalitptl/emergency-notifier/pkg/metrics"
)

// fakePush records every batch and answers per token. With delay set, each
// send waits that long first and fails if ctx ends sooner.
type fakePush struct {
	mu        sync.Mutex
	batches   [][]model.Delivery
	codes     map[string]model.ErrorCode
	err       error
	delay     time.Duration
	started   chan struct{}
	startOnce sync.Once
	succeeded int
}

func newFakePush() *fakePush {
	return &fakePush{codes: make(map[string]model.ErrorCode)}
}

func (f *fakePush) SendEach(ctx context.Context, deliveries []model.Delivery) ([]model.DeliveryResult, error) {
	if f.delay > 0 {
		if f.started != nil {
			f.startOnce.Do(func() { close(f.started) })
		}
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	batch := make([]model.Delivery, len(deliveries))
	copy(batch, deliveries)
	f.batches = append(f.batches, batch)
	if f.err != nil {
		return nil, f.err
	}

	out := make([]model.DeliveryResult, len(deliveries))
	for i, d := range deliveries {
		code := f.codes[d.Token]
		out[i] = model.DeliveryResult{Success: code == model.ErrorCodeNone, ErrorCode: code}
		if out[i].Success {
			f.succeeded++
		}
	}
	return out, nil
}

func (f *fakePush) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.batches)
}

func (f *fakePush) successes() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.succeeded
}

func (f *fakePush) sent() []model.Delivery {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []model.Delivery
	for _, b := range f.batches {
		all = append(all, b...)
	}
	return all
}

type fixture struct {
	users      *memory.UserRepository
	identities *identity.MemoryDirectory
	push       *fakePush
	svc        *Service
}

func newFixture() *fixture {
	f := &fixture{
		users:      memory.NewUserRepository(),
		identities: identity.NewMemoryDirectory(),
		push:       newFakePush(),
	}
	f.svc = NewService(Deps{
		Users:      f.users,
		Identities: f.identities,
		Push:       f.push,
		Logger:     logger.Nop(),
		Metrics:    metrics.NewNop(),
	})
	return f
}

func (f *fixture) addUser(id, token string) {
	u := &model.User{Email: id + "@example.com"}
	u.ID = id
	if token != "" {
		u.FCMToken = &token
	}
	_ = f.users.Save(context.Background(), u)
}
