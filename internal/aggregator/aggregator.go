package aggregator

import (
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
)

// Config configures the window aggregator
type Config struct {
	// WindowSize is the fixed duration of each aggregation window
	WindowSize time.Duration
	// GracePeriod is how long after a window closes late events are still
	// folded in and the bucket stays available for correlation
	GracePeriod time.Duration
}

// Aggregator maintains rolling window buckets keyed by (segment, touchpoint,
// window start). Ingest and Snapshot/Evict run from different goroutines; the
// bucket map is the only shared state between them and is guarded by one
// mutex, so no caller ever observes a bucket mid-update.
type Aggregator struct {
	cfg Config
	log *zap.Logger

	mu      sync.Mutex
	buckets map[domain.BucketKey]*domain.WindowBucket

	lateDropped atomic.Uint64
	now         func() time.Time
}

// New creates a window aggregator
func New(cfg Config, log *zap.Logger) (*Aggregator, error) {
	if cfg.WindowSize <= 0 {
		return nil, fmt.Errorf("window size must be positive, got %s", cfg.WindowSize)
	}
	if cfg.GracePeriod < 0 {
		return nil, fmt.Errorf("grace period must not be negative, got %s", cfg.GracePeriod)
	}

	return &Aggregator{
		cfg:     cfg,
		log:     log,
		buckets: make(map[domain.BucketKey]*domain.WindowBucket),
		now:     time.Now,
	}, nil
}

// Ingest folds one event into the bucket for its window, creating the bucket
// on first sight. Events older than the grace cutoff of their own window are
// dropped and counted; late data beyond grace is expected under load and must
// not halt ingestion.
func (a *Aggregator) Ingest(e *domain.InteractionEvent) {
	windowStart := e.Timestamp.Truncate(a.cfg.WindowSize)
	now := a.now()

	if windowStart.Add(a.cfg.WindowSize + a.cfg.GracePeriod).Before(now) {
		a.lateDropped.Add(1)
		a.log.Debug("Dropping late event",
			zap.String("event_id", e.EventID),
			zap.Time("event_timestamp", e.Timestamp),
			zap.Time("window_start", windowStart))
		return
	}

	key := domain.BucketKey{
		Segment:     e.Segment,
		Touchpoint:  e.Touchpoint,
		WindowStart: windowStart,
	}

	a.mu.Lock()
	defer a.mu.Unlock()

	bucket, ok := a.buckets[key]
	if !ok {
		bucket = domain.NewWindowBucket(key, a.cfg.WindowSize)
		a.buckets[key] = bucket
	}
	bucket.Observe(e, now)
}

// Snapshot returns read-only copies of all buckets whose window has fully
// elapsed at asOf and that have not been evicted, sorted by segment,
// touchpoint and window start. Mutations never leak to the caller.
func (a *Aggregator) Snapshot(asOf time.Time) []*domain.WindowBucket {
	a.mu.Lock()
	defer a.mu.Unlock()

	var closed []*domain.WindowBucket
	for _, bucket := range a.buckets {
		if !bucket.WindowEnd().After(asOf) {
			closed = append(closed, bucket.Clone())
		}
	}

	sort.Slice(closed, func(i, j int) bool {
		ki, kj := closed[i].Key, closed[j].Key
		if ki.Segment != kj.Segment {
			return ki.Segment < kj.Segment
		}
		if ki.Touchpoint != kj.Touchpoint {
			return ki.Touchpoint < kj.Touchpoint
		}
		return ki.WindowStart.Before(kj.WindowStart)
	})

	return closed
}

// Evict removes buckets whose grace period elapsed before asOf and returns
// them; once removed they are no longer shared and their final values feed
// the correlation baselines. Eviction is driven by the coordinator cadence,
// not by Ingest, so bursts of late events within grace are still honored.
func (a *Aggregator) Evict(asOf time.Time) []*domain.WindowBucket {
	a.mu.Lock()
	defer a.mu.Unlock()

	var retired []*domain.WindowBucket
	for key, bucket := range a.buckets {
		if bucket.WindowEnd().Add(a.cfg.GracePeriod).Before(asOf) {
			delete(a.buckets, key)
			retired = append(retired, bucket)
		}
	}

	if len(retired) > 0 {
		a.log.Debug("Evicted window buckets", zap.Int("count", len(retired)))
	}
	return retired
}

// LateDropped returns the number of events dropped for arriving past their
// window's grace cutoff
func (a *Aggregator) LateDropped() uint64 {
	return a.lateDropped.Load()
}
