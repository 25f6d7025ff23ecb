package sessions

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rdb.Close() })
	return NewStore(rdb, time.Hour)
}

func TestStore_CreateAndValidate(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Create(ctx, 1, "jti-a"))

	ok, err := store.Valid(ctx, "jti-a")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = store.Valid(ctx, "jti-unknown")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_Revoke(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Create(ctx, 1, "jti-a"))
	require.NoError(t, store.Revoke(ctx, 1, "jti-a"))

	ok, err := store.Valid(ctx, "jti-a")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_RevokeAll(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)

	require.NoError(t, store.Create(ctx, 7, "jti-a"))
	require.NoError(t, store.Create(ctx, 7, "jti-b"))
	require.NoError(t, store.Create(ctx, 8, "jti-other"))

	require.NoError(t, store.RevokeAll(ctx, 7))

	for _, jti := range []string{"jti-a", "jti-b"} {
		ok, err := store.Valid(ctx, jti)
		require.NoError(t, err)
		assert.False(t, ok, "session %s should be revoked", jti)
	}

	// Other users' sessions are untouched.
	ok, err := store.Valid(ctx, "jti-other")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestStore_NilClientFailsOpen(t *testing.T) {
	ctx := context.Background()
	store := NewStore(nil, time.Hour)

	require.NoError(t, store.Create(ctx, 1, "jti-a"))
	ok, err := store.Valid(ctx, "anything")
	require.NoError(t, err)
	assert.True(t, ok)
	require.NoError(t, store.RevokeAll(ctx, 1))
}
