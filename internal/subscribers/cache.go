// Package subscribers maintains the in-memory set of users admitted to the
// likes-back feed.
package subscribers

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/kmurata/bluesky-likesback/internal/domain"
)

// Cache holds an immutable snapshot of admitted DIDs, replaced wholesale on
// each refresh. Readers never block on a refresh; a snapshot stale by up to
// one refresh interval is acceptable.
type Cache struct {
	repo     domain.SubscriberRepository
	logger   *slog.Logger
	snapshot atomic.Pointer[map[string]struct{}]
}

// NewCache creates a Cache with an empty snapshot. Call Refresh or Start to
// populate it.
func NewCache(repo domain.SubscriberRepository, logger *slog.Logger) *Cache {
	c := &Cache{repo: repo, logger: logger}
	empty := make(map[string]struct{})
	c.snapshot.Store(&empty)
	return c
}

// IsAdmitted reports whether did has opted in to the feed.
func (c *Cache) IsAdmitted(did string) bool {
	_, ok := (*c.snapshot.Load())[did]
	return ok
}

// Size returns the number of admitted DIDs in the current snapshot.
func (c *Cache) Size() int {
	return len(*c.snapshot.Load())
}

// Refresh replaces the snapshot from the store. On failure the previous
// snapshot stays in effect.
func (c *Cache) Refresh(ctx context.Context) error {
	dids, err := c.repo.ListSubscriberDIDs(ctx)
	if err != nil {
		return fmt.Errorf("list subscribers: %w", err)
	}

	next := make(map[string]struct{}, len(dids))
	for _, did := range dids {
		next[did] = struct{}{}
	}
	c.snapshot.Store(&next)
	return nil
}

// Start refreshes immediately and then at every interval tick. It blocks
// until ctx is cancelled.
func (c *Cache) Start(ctx context.Context, interval time.Duration) {
	c.refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.refresh(ctx)
		}
	}
}

func (c *Cache) refresh(ctx context.Context) {
	if err := c.Refresh(ctx); err != nil {
		c.logger.Error("subscriber cache refresh failed", "error", err)
		return
	}
	c.logger.Info("subscriber cache refreshed", "subscribers", c.Size())
}
