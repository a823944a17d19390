package domain

import "time"

// SignalSnapshot is the last successfully fetched reading of an external
// signal. Snapshots are read-only after construction; the signal cache swaps
// whole snapshots, it never mutates one in place.
type SignalSnapshot struct {
	Type      SignalType
	Value     float64
	Label     string
	FetchedAt time.Time
	TTL       time.Duration
}

// Age returns how long ago the snapshot was fetched
func (s *SignalSnapshot) Age(now time.Time) time.Duration {
	return now.Sub(s.FetchedAt)
}

// FreshAt reports whether the snapshot is still within its TTL
func (s *SignalSnapshot) FreshAt(now time.Time) bool {
	return s.Age(now) <= s.TTL
}
