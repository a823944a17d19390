package domain

import (
	"time"

	"github.com/axiomhq/hyperloglog"
)

// BucketKey identifies a window bucket by segment, touchpoint and window start
type BucketKey struct {
	Segment     Segment
	Touchpoint  Touchpoint
	WindowStart time.Time
}

// WindowBucket holds rolling statistics for one (segment, touchpoint, window)
// triple. The distinct customer count is approximate (HyperLogLog).
type WindowBucket struct {
	Key         BucketKey
	WindowSize  time.Duration
	Count       uint64
	Sum         float64
	LastUpdated time.Time

	customers *hyperloglog.Sketch
}

// NewWindowBucket creates an empty bucket for the given key
func NewWindowBucket(key BucketKey, windowSize time.Duration) *WindowBucket {
	return &WindowBucket{
		Key:        key,
		WindowSize: windowSize,
		customers:  hyperloglog.New14(),
	}
}

// WindowEnd returns the exclusive end of the bucket's window
func (b *WindowBucket) WindowEnd() time.Time {
	return b.Key.WindowStart.Add(b.WindowSize)
}

// Observe folds one event into the bucket. The caller is responsible for
// routing the event to the bucket matching its window.
func (b *WindowBucket) Observe(e *InteractionEvent, at time.Time) {
	b.Count++
	b.Sum += e.Value
	b.customers.Insert([]byte(e.CustomerID))
	if at.After(b.LastUpdated) {
		b.LastUpdated = at
	}
}

// DistinctCustomers returns the approximate number of distinct customers seen
func (b *WindowBucket) DistinctCustomers() uint64 {
	return b.customers.Estimate()
}

// Clone returns a deep copy, so snapshot consumers never share mutable state
// with the aggregator
func (b *WindowBucket) Clone() *WindowBucket {
	return &WindowBucket{
		Key:         b.Key,
		WindowSize:  b.WindowSize,
		Count:       b.Count,
		Sum:         b.Sum,
		LastUpdated: b.LastUpdated,
		customers:   b.customers.Clone(),
	}
}
