package session

import (
	"context"
	"sync"
	"testing"

	"workdesk-service/internal/domain/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryCreateAndGet(t *testing.T) {
	f := newFixture(t)
	registry := NewRegistry(f.deps)
	defer registry.Close()

	ctrl := registry.Create()
	require.NotEmpty(t, ctrl.SessionID())

	got, ok := registry.Get(context.Background(), ctrl.SessionID())
	require.True(t, ok)
	assert.Same(t, ctrl, got)
}

func TestRegistryGetUnknownSession(t *testing.T) {
	f := newFixture(t)
	registry := NewRegistry(f.deps)
	defer registry.Close()

	_, ok := registry.Get(context.Background(), "01NOSUCHSESSION00000000000")
	assert.False(t, ok)
}

func TestRegistryRehydratesPersistedSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	first := NewRegistry(f.deps)
	ctrl := first.Create()
	login(t, ctrl, "admin", "admin123")
	first.Close()

	// A fresh registry over the same store, as after a restart.
	second := NewRegistry(f.deps)
	defer second.Close()

	restored, ok := second.Get(ctx, ctrl.SessionID())
	require.True(t, ok)
	assert.True(t, restored.Snapshot().IsAuthenticated)
	assert.True(t, restored.HasPermission("projects.read"))
}

func TestRegistryRemove(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	registry := NewRegistry(f.deps)
	defer registry.Close()

	ctrl := registry.Create()
	registry.Remove(ctrl.SessionID())

	// No persisted session either, so the id is gone for good.
	_, ok := registry.Get(ctx, ctrl.SessionID())
	assert.False(t, ok)
}

func TestRegistryOnChangeHook(t *testing.T) {
	f := newFixture(t)
	registry := NewRegistry(f.deps)
	defer registry.Close()

	var mu sync.Mutex
	var events []auth.Snapshot
	var eventSession string
	registry.OnChange(func(sessionID string, snap auth.Snapshot) {
		mu.Lock()
		events = append(events, snap)
		eventSession = sessionID
		mu.Unlock()
	})

	ctrl := registry.Create()
	login(t, ctrl, "admin", "admin123")

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, events)
	assert.Equal(t, ctrl.SessionID(), eventSession)
	assert.True(t, events[len(events)-1].IsAuthenticated)
}
