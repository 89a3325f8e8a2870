// Package identity removes authentication identities whose roster entry
// has been deleted.
package identity

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"firebase.google.com/go/v4/auth"
)

// Directory deletes auth identities by email. A missing identity is
// reported as deleted=false with a nil error.
type Directory interface {
	DeleteByEmail(ctx context.Context, email string) (deleted bool, err error)
}

// AuthClient is the subset of auth.Client used here.
type AuthClient interface {
	GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error)
	DeleteUser(ctx context.Context, uid string) error
}

// FirebaseDirectory is backed by Firebase Authentication.
type FirebaseDirectory struct {
	client     AuthClient
	isNotFound func(error) bool
}

func NewFirebaseDirectory(client AuthClient) *FirebaseDirectory {
	return &FirebaseDirectory{client: client, isNotFound: auth.IsUserNotFound}
}

func (d *FirebaseDirectory) DeleteByEmail(ctx context.Context, email string) (bool, error) {
	rec, err := d.client.GetUserByEmail(ctx, email)
	if err != nil {
		if d.isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to look up auth user: %w", err)
	}

	if err := d.client.DeleteUser(ctx, rec.UID); err != nil {
		if d.isNotFound(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to delete auth user %s: %w", rec.UID, err)
	}
	return true, nil
}

// MemoryDirectory keeps identities in a map keyed by lower-cased email.
type MemoryDirectory struct {
	mu    sync.Mutex
	users map[string]string
}

func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{users: make(map[string]string)}
}

func (d *MemoryDirectory) Add(uid, email string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.users[strings.ToLower(email)] = uid
}

func (d *MemoryDirectory) Has(email string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.users[strings.ToLower(email)]
	return ok
}

func (d *MemoryDirectory) DeleteByEmail(_ context.Context, email string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	key := strings.ToLower(email)
	if _, ok := d.users[key]; !ok {
		return false, nil
	}
	delete(d.users, key)
	return true, nil
}
