package signal

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
)

// Freshness classifies the state of a cached snapshot
type Freshness int

const (
	// Missing means the signal has never been fetched successfully
	Missing Freshness = iota
	// Fresh means the snapshot age is within its TTL
	Fresh
	// Stale means the snapshot has outlived its TTL but is still the best
	// known value
	Stale
)

// Fetcher retrieves a fresh snapshot for one signal type
type Fetcher interface {
	Fetch(ctx context.Context) (*domain.SignalSnapshot, error)
}

// Cache holds the latest snapshot per signal type. Refresh swaps snapshots
// atomically; Current never blocks and returns the last known value.
type Cache struct {
	fetchers       map[domain.SignalType]Fetcher
	slots          map[domain.SignalType]*atomic.Pointer[domain.SignalSnapshot]
	staleRefreshes atomic.Uint64
	now            func() time.Time
	log            *zap.Logger
}

// NewCache creates a cache with one slot per configured fetcher
func NewCache(fetchers map[domain.SignalType]Fetcher, log *zap.Logger) *Cache {
	slots := make(map[domain.SignalType]*atomic.Pointer[domain.SignalSnapshot], len(fetchers))
	for signalType := range fetchers {
		slots[signalType] = &atomic.Pointer[domain.SignalSnapshot]{}
	}

	return &Cache{
		fetchers: fetchers,
		slots:    slots,
		now:      time.Now,
		log:      log,
	}
}

// Types returns the signal types the cache is configured for
func (c *Cache) Types() []domain.SignalType {
	types := make([]domain.SignalType, 0, len(c.fetchers))
	for signalType := range c.fetchers {
		types = append(types, signalType)
	}
	return types
}

// Refresh fetches a new snapshot for the given type. On failure the prior
// snapshot stays in place; if that snapshot has outlived its TTL the stale
// condition is counted and logged.
func (c *Cache) Refresh(ctx context.Context, signalType domain.SignalType) error {
	fetcher, ok := c.fetchers[signalType]
	if !ok {
		return fmt.Errorf("no fetcher configured for signal %q: %w", signalType, domain.ErrSignalUnavailable)
	}

	snapshot, err := fetcher.Fetch(ctx)
	if err != nil {
		prior := c.slots[signalType].Load()
		if prior != nil && !prior.FreshAt(c.now()) {
			c.staleRefreshes.Add(1)
			c.log.Warn("Signal refresh failed, serving stale snapshot",
				zap.String("signal_type", string(signalType)),
				zap.Duration("age", prior.Age(c.now())),
				zap.Error(err))
		}
		return fmt.Errorf("failed to refresh signal %q: %w", signalType, err)
	}

	c.slots[signalType].Store(snapshot)
	return nil
}

// Current returns the latest snapshot for the given type together with its
// freshness. It never blocks: the last known value is returned immediately,
// accepting staleness over waiting. A (nil, Missing) result means the signal
// has never been fetched and correlation should omit it.
func (c *Cache) Current(signalType domain.SignalType) (*domain.SignalSnapshot, Freshness) {
	slot, ok := c.slots[signalType]
	if !ok {
		return nil, Missing
	}

	snapshot := slot.Load()
	if snapshot == nil {
		return nil, Missing
	}
	if snapshot.FreshAt(c.now()) {
		return snapshot, Fresh
	}
	return snapshot, Stale
}

// StaleRefreshes returns the number of refresh failures observed while the
// cached snapshot was already past its TTL
func (c *Cache) StaleRefreshes() uint64 {
	return c.staleRefreshes.Load()
}
