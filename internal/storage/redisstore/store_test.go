package redisstore

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hongminglow/user-manager/internal/models"
	"github.com/hongminglow/user-manager/internal/storage"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewUserStoreFromClient(client, "test_users"), mr
}

func TestStore_CreateAndGet(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, models.User{ID: 99, Name: "Jan Kowalski", Email: "jan@example.com"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), created.ID)

	got, err := s.GetUser(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, created, got)

	assert.Equal(t, "Jan Kowalski", mr.HGet("test_users:1", "name"))
}

func TestStore_GetMissing(t *testing.T) {
	s, _ := newTestStore(t)

	_, err := s.GetUser(context.Background(), 5)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestStore_ListPagesInInsertionOrder(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	for _, name := range []string{"a", "b", "c"} {
		_, err := s.CreateUser(ctx, models.User{Name: name, Email: name + "@x"})
		require.NoError(t, err)
	}

	page1, err := s.ListUsers(ctx, 0, 2)
	require.NoError(t, err)
	require.Len(t, page1, 2)
	assert.Equal(t, "a", page1[0].Name)
	assert.Equal(t, "b", page1[1].Name)

	page2, err := s.ListUsers(ctx, 2, 2)
	require.NoError(t, err)
	require.Len(t, page2, 1)
	assert.Equal(t, int64(3), page2[0].ID)

	empty, err := s.ListUsers(ctx, 10, 2)
	require.NoError(t, err)
	assert.NotNil(t, empty)
	assert.Empty(t, empty)
}

func TestStore_UpdateOnlyExisting(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()

	_, err := s.UpdateUser(ctx, models.User{ID: 1, Name: "x", Email: "y"})
	require.ErrorIs(t, err, storage.ErrNotFound)

	created, err := s.CreateUser(ctx, models.User{Name: "old", Email: "old@x"})
	require.NoError(t, err)

	_, err = s.UpdateUser(ctx, models.User{ID: created.ID, Name: "new", Email: "new@x"})
	require.NoError(t, err)

	got, err := s.GetUser(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.User{ID: created.ID, Name: "new", Email: "new@x"}, got)
}

func TestStore_DeleteOnce(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	created, err := s.CreateUser(ctx, models.User{Name: "a", Email: "a@x"})
	require.NoError(t, err)

	ok, err := s.DeleteUser(ctx, created.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.DeleteUser(ctx, created.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.False(t, mr.Exists("test_users:1"))
	list, err := s.ListUsers(ctx, 0, 10)
	require.NoError(t, err)
	assert.Empty(t, list)
}
