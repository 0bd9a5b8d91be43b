// internal/service/session/controller.go
package session

import (
	"context"
	"sync"
	"time"

	"workdesk-service/internal/domain/auth"
	"workdesk-service/internal/pkg/access"
	xerrors "workdesk-service/internal/pkg/errors"
	"workdesk-service/internal/pkg/limiter"
	sessionstore "workdesk-service/internal/pkg/session"
	"workdesk-service/internal/pkg/token"
	"workdesk-service/internal/pkg/validator"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const (
	// DefaultRefreshThreshold before expiry at which the watcher refreshes.
	DefaultRefreshThreshold = 30 * time.Minute
	// DefaultWatchInterval between expiry checks.
	DefaultWatchInterval = 60 * time.Second
)

// Deps are the collaborators a controller orchestrates.
type Deps struct {
	Store     *sessionstore.Store
	Limiter   *limiter.AttemptLimiter
	Tokens    *token.Manager
	Directory auth.Directory
	Logger    *zap.Logger

	RefreshThreshold time.Duration
	WatchInterval    time.Duration
	Clock            func() time.Time
}

func (d *Deps) applyDefaults() {
	if d.RefreshThreshold <= 0 {
		d.RefreshThreshold = DefaultRefreshThreshold
	}
	if d.WatchInterval <= 0 {
		d.WatchInterval = DefaultWatchInterval
	}
	if d.Clock == nil {
		d.Clock = time.Now
	}
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
}

// Controller owns the lifecycle of one session: login, logout, refresh, the
// read-only state snapshot, capability queries and the periodic expiry watch.
// Login/Logout/RefreshSession may block on I/O; HasPermission, HasRole and
// Snapshot never do.
type Controller struct {
	sessionID string
	deps      Deps

	// opMu serializes login/logout/refresh so session writes never interleave.
	opMu sync.Mutex

	// stateMu guards the snapshot fields below.
	stateMu       sync.RWMutex
	authenticated bool
	user          *auth.User
	expiresAt     time.Time
	loading       bool
	lastErr       string

	// refreshMu guards the single in-flight refresh.
	refreshMu sync.Mutex
	inflight  *inflightRefresh

	obsMu     sync.Mutex
	observers map[int]func(auth.Snapshot)
	nextObsID int

	stopOnce  sync.Once
	stopWatch chan struct{}
}

type inflightRefresh struct {
	done chan struct{}
	sess *auth.Session
	err  error
}

func NewController(sessionID string, deps Deps) *Controller {
	deps.applyDefaults()
	return &Controller{
		sessionID: sessionID,
		deps:      deps,
		observers: make(map[int]func(auth.Snapshot)),
		stopWatch: make(chan struct{}),
	}
}

func (c *Controller) SessionID() string {
	return c.sessionID
}

// Login runs the full authentication flow: limiter gate, credential shape
// validation, directory lookup, password comparison and active check, then
// token issuance and persistence. The session is fully persisted before
// success is reported. Unknown user, wrong password and inactive account are
// indistinguishable to the caller.
func (c *Controller) Login(ctx context.Context, req auth.LoginRequest) (*auth.Session, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	c.setLoading(true)

	decision, err := c.deps.Limiter.CheckAllowed(ctx, req.Username)
	if err != nil {
		return nil, c.failLogin(auth.NewSystemError(err))
	}
	if !decision.Allowed {
		return nil, c.failLogin(auth.NewRateLimitedError(decision.RetryAfter))
	}

	// Malformed input still counts toward the lockout window.
	if result := validator.ValidateCredentials(req.Username, req.Password); !result.OK {
		c.recordFailure(ctx, req.Username)
		return nil, c.failLogin(auth.NewValidationError(result.Violations))
	}

	account, err := c.deps.Directory.FindByUsername(ctx, req.Username)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			c.recordFailure(ctx, req.Username)
			return nil, c.failLogin(auth.ErrInvalidCredentials)
		}
		return nil, c.failLogin(auth.NewSystemError(err))
	}

	if err := bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(req.Password)); err != nil {
		c.recordFailure(ctx, req.Username)
		return nil, c.failLogin(auth.ErrInvalidCredentials)
	}
	if !account.User.IsActive {
		c.recordFailure(ctx, req.Username)
		return nil, c.failLogin(auth.ErrInvalidCredentials)
	}

	user := account.User
	pair, err := c.deps.Tokens.Issuer.Issue(&user, c.sessionID, req.Remember)
	if err != nil {
		return nil, c.failLogin(auth.NewSystemError(err))
	}

	record := &sessionstore.Record{
		SessionID:    c.sessionID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         &user,
		IssuedAt:     pair.IssuedAt,
		ExpiresAt:    pair.ExpiresAt,
	}
	if err := c.deps.Store.Save(ctx, record); err != nil {
		return nil, c.failLogin(auth.NewSystemError(err))
	}

	if err := c.deps.Limiter.Clear(ctx, req.Username); err != nil {
		c.deps.Logger.Warn("failed to clear attempt record",
			zap.String("username", req.Username),
			zap.Error(err),
		)
	}

	c.setAuthenticated(&user, pair.ExpiresAt)
	c.deps.Logger.Info("user logged in",
		zap.String("session_id", c.sessionID),
		zap.String("username", user.Username),
		zap.String("role", user.Role.ID),
	)

	return &auth.Session{
		ID:           c.sessionID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         &user,
		IssuedAt:     pair.IssuedAt,
		ExpiresAt:    pair.ExpiresAt,
	}, nil
}

// Logout clears the session. Idempotent: logging out with no session is a
// no-op, and storage failures are logged rather than surfaced.
func (c *Controller) Logout(ctx context.Context) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	if err := c.deps.Store.Delete(ctx, c.sessionID); err != nil {
		c.deps.Logger.Warn("failed to delete session record",
			zap.String("session_id", c.sessionID),
			zap.Error(err),
		)
	}
	c.clearState("")
}

// RefreshSession re-issues the token pair from the persisted refresh token.
// Concurrent callers coalesce onto a single in-flight refresh and all receive
// its result, so tokens are never double-issued. A failed validation clears
// the session before the error is returned.
func (c *Controller) RefreshSession(ctx context.Context) (*auth.Session, error) {
	c.refreshMu.Lock()
	if call := c.inflight; call != nil {
		c.refreshMu.Unlock()
		<-call.done
		return call.sess, call.err
	}
	call := &inflightRefresh{done: make(chan struct{})}
	c.inflight = call
	c.refreshMu.Unlock()

	call.sess, call.err = c.doRefresh(ctx)
	close(call.done)

	c.refreshMu.Lock()
	c.inflight = nil
	c.refreshMu.Unlock()

	return call.sess, call.err
}

func (c *Controller) doRefresh(ctx context.Context) (*auth.Session, error) {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	record, err := c.deps.Store.Load(ctx, c.sessionID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			c.clearState(auth.ErrNoSession.Message)
			return nil, auth.ErrNoSession
		}
		return nil, auth.NewSystemError(err)
	}
	if record.User == nil || record.RefreshToken == "" {
		c.clearState(auth.ErrNoSession.Message)
		return nil, auth.ErrNoSession
	}

	if _, err := c.deps.Tokens.Verifier.VerifyRefreshToken(record.RefreshToken); err != nil {
		// Cascading logout: state is cleared before the caller sees the
		// failure, so an invalid-refresh session is never observable.
		if derr := c.deps.Store.Delete(ctx, c.sessionID); derr != nil {
			c.deps.Logger.Warn("failed to delete session after refresh failure",
				zap.String("session_id", c.sessionID),
				zap.Error(derr),
			)
		}
		c.clearState(auth.ErrInvalidRefreshToken.Message)
		c.deps.Logger.Info("refresh token rejected, session cleared",
			zap.String("session_id", c.sessionID),
			zap.Error(err),
		)
		return nil, auth.ErrInvalidRefreshToken
	}

	pair, err := c.deps.Tokens.Issuer.Issue(record.User, c.sessionID, false)
	if err != nil {
		return nil, auth.NewSystemError(err)
	}

	next := &sessionstore.Record{
		SessionID:    c.sessionID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         record.User,
		IssuedAt:     pair.IssuedAt,
		ExpiresAt:    pair.ExpiresAt,
	}
	if err := c.deps.Store.Save(ctx, next); err != nil {
		return nil, auth.NewSystemError(err)
	}

	c.setAuthenticated(record.User, pair.ExpiresAt)
	return &auth.Session{
		ID:           c.sessionID,
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		User:         record.User,
		IssuedAt:     pair.IssuedAt,
		ExpiresAt:    pair.ExpiresAt,
	}, nil
}

// Hydrate restores controller state from a persisted record, if any. Used
// when a request arrives for a session this process has not seen yet.
func (c *Controller) Hydrate(ctx context.Context) error {
	c.opMu.Lock()
	defer c.opMu.Unlock()

	record, err := c.deps.Store.Load(ctx, c.sessionID)
	if err != nil {
		if xerrors.Is(err, xerrors.ErrNotFound) {
			return nil
		}
		return err
	}
	c.setAuthenticated(record.User, record.ExpiresAt)
	return nil
}

// HasPermission reports whether the current session's identity may exercise
// permission. Always false when unauthenticated or expired; never errors,
// never blocks.
func (c *Controller) HasPermission(permission string) bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	if !c.authenticated || !c.deps.Clock().Before(c.expiresAt) {
		return false
	}
	return access.Allowed(c.user, permission)
}

// HasRole reports whether the current session's identity holds roleID.
func (c *Controller) HasRole(roleID string) bool {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	if !c.authenticated || !c.deps.Clock().Before(c.expiresAt) {
		return false
	}
	return access.HasRole(c.user, roleID)
}

// Snapshot returns the current read-only session state.
func (c *Controller) Snapshot() auth.Snapshot {
	c.stateMu.RLock()
	defer c.stateMu.RUnlock()
	return c.snapshotLocked()
}

func (c *Controller) snapshotLocked() auth.Snapshot {
	snap := auth.Snapshot{
		IsAuthenticated: c.authenticated && c.deps.Clock().Before(c.expiresAt),
		IsLoading:       c.loading,
		LastError:       c.lastErr,
	}
	if snap.IsAuthenticated {
		info := auth.NewUserInfo(c.user)
		expires := c.expiresAt
		snap.User = &info
		snap.ExpiresAt = &expires
	}
	return snap
}

// Subscribe registers an observer invoked on every state transition. The
// returned function unsubscribes. Callbacks run synchronously and must not
// block.
func (c *Controller) Subscribe(fn func(auth.Snapshot)) func() {
	c.obsMu.Lock()
	id := c.nextObsID
	c.nextObsID++
	c.observers[id] = fn
	c.obsMu.Unlock()

	return func() {
		c.obsMu.Lock()
		delete(c.observers, id)
		c.obsMu.Unlock()
	}
}

func (c *Controller) notify() {
	snap := c.Snapshot()

	c.obsMu.Lock()
	fns := make([]func(auth.Snapshot), 0, len(c.observers))
	for _, fn := range c.observers {
		fns = append(fns, fn)
	}
	c.obsMu.Unlock()

	for _, fn := range fns {
		fn(snap)
	}
}

// ----- state helpers -----

func (c *Controller) setLoading(loading bool) {
	c.stateMu.Lock()
	c.loading = loading
	c.stateMu.Unlock()
	c.notify()
}

func (c *Controller) setAuthenticated(user *auth.User, expiresAt time.Time) {
	c.stateMu.Lock()
	c.authenticated = true
	c.user = user
	c.expiresAt = expiresAt
	c.loading = false
	c.lastErr = ""
	c.stateMu.Unlock()
	c.notify()
}

func (c *Controller) clearState(lastErr string) {
	c.stateMu.Lock()
	c.authenticated = false
	c.user = nil
	c.expiresAt = time.Time{}
	c.loading = false
	c.lastErr = lastErr
	c.stateMu.Unlock()
	c.notify()
}

func (c *Controller) failLogin(err *auth.Error) *auth.Error {
	c.stateMu.Lock()
	c.loading = false
	c.lastErr = err.Message
	c.stateMu.Unlock()
	c.notify()
	return err
}

func (c *Controller) recordFailure(ctx context.Context, username string) {
	if err := c.deps.Limiter.RecordFailure(ctx, username); err != nil {
		c.deps.Logger.Warn("failed to record login failure",
			zap.String("username", username),
			zap.Error(err),
		)
	}
}
