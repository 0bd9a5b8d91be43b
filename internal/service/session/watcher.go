// internal/service/session/watcher.go
package session

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// StartWatch launches the periodic expiry check in its own goroutine. The
// watcher refreshes the session once it enters the refresh threshold and
// logs out once the expiry has passed. It exits when ctx is canceled or
// Stop is called; the ticker is released on every exit path.
func (c *Controller) StartWatch(ctx context.Context) {
	go c.watch(ctx)
}

// Stop terminates the watcher. Safe to call more than once.
func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopWatch)
	})
}

func (c *Controller) watch(ctx context.Context) {
	ticker := time.NewTicker(c.deps.WatchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopWatch:
			return
		case <-ticker.C:
			c.checkExpiry(ctx)
		}
	}
}

func (c *Controller) checkExpiry(ctx context.Context) {
	c.stateMu.RLock()
	authenticated := c.authenticated
	expiresAt := c.expiresAt
	c.stateMu.RUnlock()

	if !authenticated {
		return
	}

	now := c.deps.Clock()
	switch {
	case !now.Before(expiresAt):
		c.deps.Logger.Info("session expired, logging out",
			zap.String("session_id", c.sessionID),
		)
		c.Logout(ctx)
	case expiresAt.Sub(now) <= c.deps.RefreshThreshold:
		if _, err := c.RefreshSession(ctx); err != nil {
			c.deps.Logger.Warn("automatic refresh failed",
				zap.String("session_id", c.sessionID),
				zap.Error(err),
			)
		}
	}
}
