package sink

import (
	"context"
	"time"

	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
)

// InsightQuery filters the recent-insights read used by dashboards
type InsightQuery struct {
	Segment string
	From    time.Time
	To      time.Time
	Limit   int
}

// Sink is the pipeline's only external write boundary. Write must be
// idempotent under at-least-once delivery; records carry a deterministic ID
// for deduplication.
type Sink interface {
	// Write persists a single insight record
	Write(ctx context.Context, record *domain.InsightRecord) error

	// Close closes the sink and releases resources
	Close() error
}

// DeadLetter records insights that exhausted their write retries. Best
// effort: failures here are logged by the caller, never escalated.
type DeadLetter interface {
	Record(ctx context.Context, record *domain.InsightRecord, reason string) error
}

// InsightRepository is the full storage contract the warehouse sink
// implements: the pipeline writes through it and the dashboard API reads
// from it
type InsightRepository interface {
	Sink

	// InitSchema initializes the storage schema (creates tables if they
	// don't exist)
	InitSchema(ctx context.Context) error

	// Ping checks if the storage connection is alive
	Ping(ctx context.Context) error

	// RecentInsights retrieves insight records matching the query, newest
	// first
	RecentInsights(ctx context.Context, query InsightQuery) ([]domain.InsightRecord, error)
}
