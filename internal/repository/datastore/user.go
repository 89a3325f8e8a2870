package datastore

import (
	"context"
	"errors"
	"fmt"
	"time"

	gds "cloud.google.com/go/datastore"

	"github.com/jwalitptl/emergency-notifier/internal/model"
	"github.com/jwalitptl/emergency-notifier/internal/repository"
)

// Kind is the entity kind holding roster documents, keyed by user id.
const Kind = "users"

// An absent token is stored as the empty string.
type userEntity struct {
	Email     string    `datastore:"email"`
	FCMToken  string    `datastore:"fcmToken"`
	Role      string    `datastore:"role,noindex"`
	IsAdmin   bool      `datastore:"isAdmin"`
	CreatedAt time.Time `datastore:"createdAt,noindex"`
	UpdatedAt time.Time `datastore:"updatedAt,noindex"`
}

type userRepository struct {
	client *gds.Client
}

func NewUserRepository(client *gds.Client) repository.UserRepository {
	return &userRepository{client: client}
}

func userKey(id string) *gds.Key {
	return gds.NameKey(Kind, id, nil)
}

// tolerate documents carrying fields the notifier does not model
func loadErr(err error) error {
	var mismatch *gds.ErrFieldMismatch
	if errors.As(err, &mismatch) {
		return nil
	}
	return err
}

func (r *userRepository) Get(ctx context.Context, id string) (*model.User, error) {
	var e userEntity
	if err := loadErr(r.client.Get(ctx, userKey(id), &e)); err != nil {
		if errors.Is(err, gds.ErrNoSuchEntity) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return toModel(id, &e), nil
}

func (r *userRepository) ListWithToken(ctx context.Context) ([]*model.User, error) {
	q := gds.NewQuery(Kind).FilterField("fcmToken", ">", "")

	var entities []*userEntity
	keys, err := r.client.GetAll(ctx, q, &entities)
	if err := loadErr(err); err != nil {
		return nil, fmt.Errorf("failed to list users with token: %w", err)
	}

	users := make([]*model.User, 0, len(keys))
	for i, k := range keys {
		users = append(users, toModel(k.Name, entities[i]))
	}
	return users, nil
}

func (r *userRepository) ClearToken(ctx context.Context, id string) error {
	key := userKey(id)
	_, err := r.client.RunInTransaction(ctx, func(tx *gds.Transaction) error {
		var e userEntity
		if err := loadErr(tx.Get(key, &e)); err != nil {
			if errors.Is(err, gds.ErrNoSuchEntity) {
				return nil
			}
			return err
		}
		if e.FCMToken == "" {
			return nil
		}
		e.FCMToken = ""
		e.UpdatedAt = time.Now()
		_, err := tx.Put(key, &e)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear token: %w", err)
	}
	return nil
}

func (r *userRepository) Save(ctx context.Context, user *model.User) error {
	now := time.Now()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now

	e := &userEntity{
		Email:     user.Email,
		FCMToken:  user.Token().OrElse(""),
		Role:      user.Role,
		IsAdmin:   user.IsAdmin,
		CreatedAt: user.CreatedAt,
		UpdatedAt: user.UpdatedAt,
	}
	if _, err := r.client.Put(ctx, userKey(user.ID), e); err != nil {
		return fmt.Errorf("failed to save user: %w", err)
	}
	return nil
}

// Ping issues a keys-only lookup to prove the client can reach the store.
func (r *userRepository) Ping(ctx context.Context) error {
	q := gds.NewQuery(Kind).KeysOnly().Limit(1)
	if _, err := r.client.GetAll(ctx, q, nil); err != nil {
		return fmt.Errorf("datastore unreachable: %w", err)
	}
	return nil
}

func (r *userRepository) Close() error {
	return r.client.Close()
}

func toModel(id string, e *userEntity) *model.User {
	u := &model.User{
		Base: model.Base{
			ID:        id,
			CreatedAt: e.CreatedAt,
			UpdatedAt: e.UpdatedAt,
		},
		Email:   e.Email,
		Role:    e.Role,
		IsAdmin: e.IsAdmin,
	}
	if e.FCMToken != "" {
		tok := e.FCMToken
		u.FCMToken = &tok
	}
	return u
}
