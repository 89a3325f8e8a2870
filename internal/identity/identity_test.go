package identity

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

var errNoUser = errors.New("no user")

type mockAuthClient struct {
	mock.Mock
}

func (m *mockAuthClient) GetUserByEmail(ctx context.Context, email string) (*auth.UserRecord, error) {
	args := m.Called(ctx, email)
	rec, _ := args.Get(0).(*auth.UserRecord)
	return rec, args.Error(1)
}

func (m *mockAuthClient) DeleteUser(ctx context.Context, uid string) error {
	return m.Called(ctx, uid).Error(0)
}

func newTestDirectory(c AuthClient) *FirebaseDirectory {
	d := NewFirebaseDirectory(c)
	d.isNotFound = func(err error) bool { return errors.Is(err, errNoUser) }
	return d
}

func TestFirebaseDirectoryDeletesIdentity(t *testing.T) {
	ctx := context.Background()
	client := new(mockAuthClient)
	rec := &auth.UserRecord{UserInfo: &auth.UserInfo{UID: "uid-1", Email: "a@b.ph"}}
	client.On("GetUserByEmail", ctx, "a@b.ph").Return(rec, nil)
	client.On("DeleteUser", ctx, "uid-1").Return(nil)

	deleted, err := newTestDirectory(client).DeleteByEmail(ctx, "a@b.ph")
	require.NoError(t, err)
	assert.True(t, deleted)
	client.AssertExpectations(t)
}

func TestFirebaseDirectoryMissingIdentity(t *testing.T) {
	ctx := context.Background()
	client := new(mockAuthClient)
	client.On("GetUserByEmail", ctx, "x@b.ph").Return(nil, errNoUser)

	deleted, err := newTestDirectory(client).DeleteByEmail(ctx, "x@b.ph")
	require.NoError(t, err)
	assert.False(t, deleted)
	client.AssertNotCalled(t, "DeleteUser", mock.Anything, mock.Anything)
}

func TestFirebaseDirectoryLookupFailure(t *testing.T) {
	ctx := context.Background()
	client := new(mockAuthClient)
	client.On("GetUserByEmail", ctx, "x@b.ph").Return(nil, errors.New("unavailable"))

	_, err := newTestDirectory(client).DeleteByEmail(ctx, "x@b.ph")
	assert.Error(t, err)
}

func TestMemoryDirectory(t *testing.T) {
	d := NewMemoryDirectory()
	d.Add("u1", "Resident@Example.com")

	deleted, err := d.DeleteByEmail(context.Background(), "resident@example.com")
	require.NoError(t, err)
	assert.True(t, deleted)
	assert.False(t, d.Has("resident@example.com"))

	deleted, err = d.DeleteByEmail(context.Background(), "resident@example.com")
	require.NoError(t, err)
	assert.False(t, deleted)
}
