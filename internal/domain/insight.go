package domain

import "time"

// Narrative tags attached to insight records by the correlation rules
const (
	TagAnomaly              = "anomaly"
	TagInsufficientBaseline = "insufficient-baseline"
	TagExternalFactor       = "external-factor-likely"
)

// SignalReading is an external signal value as attached to an insight record
type SignalReading struct {
	Value float64 `json:"value"`
	Label string  `json:"label,omitempty"`
	Stale bool    `json:"stale,omitempty"`
}

// MetricDelta compares a current window metric against its historical
// baseline. DeltaPct is nil when the baseline is zero and no meaningful
// relative change can be reported.
type MetricDelta struct {
	Current  float64  `json:"current"`
	Baseline float64  `json:"baseline"`
	DeltaPct *float64 `json:"delta_pct,omitempty"`
}

// InsightRecord is one correlated observation for a (segment, touchpoint)
// window, immutable once emitted. ID is deterministic over generated_at,
// window range, segment and touchpoint so an at-least-once sink can
// deduplicate redelivered records.
type InsightRecord struct {
	ID                string
	GeneratedAt       time.Time
	WindowStart       time.Time
	WindowEnd         time.Time
	Segment           Segment
	Touchpoint        Touchpoint
	CorrelatedSignals map[SignalType]SignalReading
	MetricDeltas      map[string]MetricDelta
	NarrativeTags     []string
	Degraded          bool
}
