package domain

import "time"

// InteractionEvent represents a single customer interaction. Events are
// immutable once produced and consumed exactly once by the aggregator.
type InteractionEvent struct {
	EventID    string
	Timestamp  time.Time
	CustomerID string
	Segment    Segment
	Touchpoint Touchpoint
	Action     Action
	Value      float64
}
