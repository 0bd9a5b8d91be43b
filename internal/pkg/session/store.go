// internal/pkg/session/store.go
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	xerrors "workdesk-service/internal/pkg/errors"
	"workdesk-service/internal/pkg/kv"

	"go.uber.org/zap"
)

// Store persists session records in a TTL key-value store, one key per
// session id.
type Store struct {
	store  kv.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewStore(store kv.Store, logger *zap.Logger) *Store {
	return &Store{
		store:  store,
		logger: logger,
		now:    time.Now,
	}
}

// WithClock overrides the store's clock.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// Save writes the record with TTL equal to its remaining lifetime. The write
// is a single Set, so a reader observes either the whole session or nothing.
func (s *Store) Save(ctx context.Context, record *Record) error {
	ttl := record.ExpiresAt.Sub(s.now())
	if ttl <= 0 {
		return fmt.Errorf("session already expired")
	}

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}
	if err := s.store.Set(ctx, s.key(record.SessionID), data, ttl); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// Load returns the record for sessionID, or xerrors.ErrNotFound when absent
// or expired. A record that cannot be decoded is cleared and reported as
// absent rather than surfaced as an error.
func (s *Store) Load(ctx context.Context, sessionID string) (*Record, error) {
	data, err := s.store.Get(ctx, s.key(sessionID))
	if err != nil {
		return nil, err
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		s.logger.Warn("clearing corrupted session record",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		_ = s.store.Del(ctx, s.key(sessionID))
		return nil, xerrors.ErrNotFound
	}

	if record.Expired(s.now()) {
		_ = s.store.Del(ctx, s.key(sessionID))
		return nil, xerrors.ErrNotFound
	}
	return &record, nil
}

// Delete removes the record. Deleting an absent session is not an error.
func (s *Store) Delete(ctx context.Context, sessionID string) error {
	return s.store.Del(ctx, s.key(sessionID))
}

func (s *Store) key(sessionID string) string {
	return fmt.Sprintf("session:%s", sessionID)
}
