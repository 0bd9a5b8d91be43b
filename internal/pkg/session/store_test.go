package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"workdesk-service/internal/domain/auth"
	xerrors "workdesk-service/internal/pkg/errors"
	"workdesk-service/internal/pkg/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Now()}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.t = c.t.Add(d)
	c.mu.Unlock()
}

func newTestStore() (*Store, kv.Store, *fakeClock) {
	clock := newFakeClock()
	backing := kv.NewMemoryStore().WithClock(clock.Now)
	store := NewStore(backing, zap.NewNop()).WithClock(clock.Now)
	return store, backing, clock
}

func testRecord(clock *fakeClock) *Record {
	now := clock.Now()
	return &Record{
		SessionID:    "01TESTSESSION",
		AccessToken:  "access-token",
		RefreshToken: "refresh-token",
		User: &auth.User{
			ID:       "u-001",
			Username: "admin",
			Role:     auth.Role{ID: "admin", Permissions: []string{auth.Wildcard}},
			IsActive: true,
		},
		IssuedAt:  now,
		ExpiresAt: now.Add(8 * time.Hour),
	}
}

func TestSaveAndLoad(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore()
	record := testRecord(clock)

	require.NoError(t, store.Save(ctx, record))

	got, err := store.Load(ctx, record.SessionID)
	require.NoError(t, err)
	assert.Equal(t, record.SessionID, got.SessionID)
	assert.Equal(t, record.AccessToken, got.AccessToken)
	assert.Equal(t, record.RefreshToken, got.RefreshToken)
	assert.Equal(t, "admin", got.User.Username)
	assert.True(t, record.ExpiresAt.Equal(got.ExpiresAt))
}

func TestLoadMissingSession(t *testing.T) {
	store, _, _ := newTestStore()
	_, err := store.Load(context.Background(), "nope")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestSaveRejectsExpiredRecord(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore()
	record := testRecord(clock)
	record.ExpiresAt = clock.Now().Add(-time.Minute)

	assert.Error(t, store.Save(ctx, record))
}

func TestLoadExpiredSessionIsCleared(t *testing.T) {
	ctx := context.Background()
	store, backing, clock := newTestStore()
	record := testRecord(clock)
	require.NoError(t, store.Save(ctx, record))

	// Expire by record timestamp, not only by store TTL.
	clock.Advance(8 * time.Hour)

	_, err := store.Load(ctx, record.SessionID)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	_, err = backing.Get(ctx, "session:"+record.SessionID)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestLoadCorruptRecordIsCleared(t *testing.T) {
	ctx := context.Background()
	store, backing, _ := newTestStore()

	require.NoError(t, backing.Set(ctx, "session:bad", []byte("{{{"), time.Hour))

	_, err := store.Load(ctx, "bad")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)

	_, err = backing.Get(ctx, "session:bad")
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	store, _, clock := newTestStore()
	record := testRecord(clock)
	require.NoError(t, store.Save(ctx, record))

	require.NoError(t, store.Delete(ctx, record.SessionID))
	require.NoError(t, store.Delete(ctx, record.SessionID))

	_, err := store.Load(ctx, record.SessionID)
	assert.ErrorIs(t, err, xerrors.ErrNotFound)
}
