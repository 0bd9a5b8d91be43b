// internal/pkg/limiter/limiter.go
package limiter

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	xerrors "workdesk-service/internal/pkg/errors"
	"workdesk-service/internal/pkg/kv"
)

const (
	// DefaultMaxAttempts failures inside the window trigger lockout.
	DefaultMaxAttempts = 5
	// DefaultLockoutWindow measured from the last recorded failure.
	DefaultLockoutWindow = 15 * time.Minute
)

// Record tracks login failures for one identity. A record whose age exceeds
// the lockout window is equivalent to no record at all; the store TTL merely
// garbage-collects it.
type Record struct {
	Count         int       `json:"count"`
	LastFailureAt time.Time `json:"last_failure_at"`
}

// Decision is the outcome of an attempt check.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// AttemptLimiter bounds login attempts per identity. The key is the raw
// username, matching the console's lockout behavior: an attacker who keeps
// failing with a victim's username locks the victim out too.
type AttemptLimiter struct {
	store       kv.Store
	maxAttempts int
	window      time.Duration
	now         func() time.Time
}

func NewAttemptLimiter(store kv.Store, maxAttempts int, window time.Duration) *AttemptLimiter {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	if window <= 0 {
		window = DefaultLockoutWindow
	}
	return &AttemptLimiter{
		store:       store,
		maxAttempts: maxAttempts,
		window:      window,
		now:         time.Now,
	}
}

// WithClock overrides the limiter's clock.
func (l *AttemptLimiter) WithClock(now func() time.Time) *AttemptLimiter {
	l.now = now
	return l
}

// CheckAllowed reports whether identity may attempt a login right now and,
// when denied, how long the lockout lasts. Denial happens before any
// credential comparison takes place.
func (l *AttemptLimiter) CheckAllowed(ctx context.Context, identity string) (Decision, error) {
	record, err := l.load(ctx, identity)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return Decision{Allowed: true}, nil
		}
		return Decision{}, err
	}

	age := l.now().Sub(record.LastFailureAt)
	if age >= l.window {
		// Stale record: dropping it is an optimization, treating it as
		// absent is the correctness requirement.
		if err := l.store.Del(ctx, l.key(identity)); err != nil {
			return Decision{}, fmt.Errorf("failed to drop stale attempt record: %w", err)
		}
		return Decision{Allowed: true}, nil
	}

	if record.Count >= l.maxAttempts {
		return Decision{Allowed: false, RetryAfter: l.window - age}, nil
	}
	return Decision{Allowed: true}, nil
}

// RecordFailure increments the failure count and stamps the failure time,
// creating the record on the first failure.
func (l *AttemptLimiter) RecordFailure(ctx context.Context, identity string) error {
	record, err := l.load(ctx, identity)
	if err != nil {
		if !xerrors.Is(err, xerrors.ErrNotFound) {
			return err
		}
		record = &Record{}
	}

	record.Count++
	record.LastFailureAt = l.now()

	data, err := json.Marshal(record)
	if err != nil {
		return fmt.Errorf("failed to marshal attempt record: %w", err)
	}
	if err := l.store.Set(ctx, l.key(identity), data, l.window); err != nil {
		return fmt.Errorf("failed to store attempt record: %w", err)
	}
	return nil
}

// Clear removes the record after a successful authentication.
func (l *AttemptLimiter) Clear(ctx context.Context, identity string) error {
	return l.store.Del(ctx, l.key(identity))
}

func (l *AttemptLimiter) load(ctx context.Context, identity string) (*Record, error) {
	data, err := l.store.Get(ctx, l.key(identity))
	if err != nil {
		return nil, err
	}

	var record Record
	if err := json.Unmarshal(data, &record); err != nil {
		// Corrupt record: treat as absent rather than wedging logins.
		_ = l.store.Del(ctx, l.key(identity))
		return nil, xerrors.ErrNotFound
	}
	return &record, nil
}

func (l *AttemptLimiter) key(identity string) string {
	return fmt.Sprintf("loginattempts:%s", identity)
}
