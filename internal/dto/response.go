package dto

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error" example:"validation_error"`
	Message string `json:"message,omitempty" example:"from must be less than or equal to to"`
}

// SignalReadingData represents one correlated external signal
type SignalReadingData struct {
	Value float64 `json:"value" example:"21.5"`
	Label string  `json:"label,omitempty" example:"Clear"`
	Stale bool    `json:"stale,omitempty" example:"false"`
}

// MetricDeltaData represents one metric compared against its baseline.
// DeltaPct is omitted when the baseline was zero.
type MetricDeltaData struct {
	Current  float64  `json:"current" example:"42"`
	Baseline float64  `json:"baseline" example:"30"`
	DeltaPct *float64 `json:"delta_pct,omitempty" example:"40"`
}

// InsightData represents one insight record
type InsightData struct {
	InsightID         string                       `json:"insight_id" example:"9f2c4e..."`
	GeneratedAt       int64                        `json:"generated_at" example:"1756166400"`
	WindowStart       int64                        `json:"window_start" example:"1756166100"`
	WindowEnd         int64                        `json:"window_end" example:"1756166400"`
	Segment           string                       `json:"segment" example:"vip"`
	Touchpoint        string                       `json:"touchpoint" example:"web"`
	CorrelatedSignals map[string]SignalReadingData `json:"correlated_signals"`
	MetricDeltas      map[string]MetricDeltaData   `json:"metric_deltas"`
	NarrativeTags     []string                     `json:"narrative_tags,omitempty" example:"anomaly"`
	Degraded          bool                         `json:"degraded" example:"false"`
}

// GetInsightsResponse represents the insights query response
type GetInsightsResponse struct {
	From     int64         `json:"from" example:"1756080000"`
	To       int64         `json:"to" example:"1756166400"`
	Segment  string        `json:"segment,omitempty" example:"vip"`
	Count    int           `json:"count" example:"12"`
	Insights []InsightData `json:"insights"`
}
