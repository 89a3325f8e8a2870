package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/jwalitptl/emergency-notifier/internal/model"
	"github.com/jwalitptl/emergency-notifier/internal/repository"
)

// UserRepository keeps the roster in memory. Used for local runs and tests.
type UserRepository struct {
	mu      sync.RWMutex
	users   map[string]model.User
	cleared map[string]int
}

func NewUserRepository() *UserRepository {
	return &UserRepository{
		users:   make(map[string]model.User),
		cleared: make(map[string]int),
	}
}

var _ repository.UserRepository = (*UserRepository)(nil)

func (r *UserRepository) Get(_ context.Context, id string) (*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return cloneUser(u), nil
}

func (r *UserRepository) ListWithToken(_ context.Context) ([]*model.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*model.User, 0, len(r.users))
	for _, u := range r.users {
		if u.Token().IsSome() {
			out = append(out, cloneUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r *UserRepository) ClearToken(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok || u.FCMToken == nil {
		return nil
	}
	u.FCMToken = nil
	u.UpdatedAt = time.Now()
	r.users[id] = u
	r.cleared[id]++
	return nil
}

func (r *UserRepository) Save(_ context.Context, user *model.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	r.users[user.ID] = *cloneUser(*user)
	return nil
}

// ClearCount returns how many times a present token was actually removed.
func (r *UserRepository) ClearCount(id string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.cleared[id]
}

func (r *UserRepository) Ping(context.Context) error { return nil }

func (r *UserRepository) Close() error { return nil }

func cloneUser(u model.User) *model.User {
	if u.FCMToken != nil {
		tok := *u.FCMToken
		u.FCMToken = &tok
	}
	return &u
}
