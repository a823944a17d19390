package source

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
)

// SimulatorConfig configures the simulated event source
type SimulatorConfig struct {
	// Seed makes the event sequence reproducible when non-zero
	Seed int64
	// Interval is the pause between produced events
	Interval time.Duration
	// Limit bounds the number of events; 0 means unbounded
	Limit int
	// Customers is the size of the simulated customer population
	Customers int
}

// SimulatedSource generates a stream of plausible customer interactions:
// weighted touchpoints and segments, purchases carrying a monetary value.
type SimulatedSource struct {
	cfg      SimulatorConfig
	rng      *rand.Rand
	produced int
	lastTS   time.Time
	now      func() time.Time
	log      *zap.Logger
}

// NewSimulatedSource creates a simulated source
func NewSimulatedSource(cfg SimulatorConfig, log *zap.Logger) *SimulatedSource {
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	if cfg.Customers <= 0 {
		cfg.Customers = 1000
	}

	return &SimulatedSource{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
		log: log,
	}
}

// Next produces the next simulated event. Timestamps never decrease within
// one source instance.
func (s *SimulatedSource) Next(ctx context.Context) (*domain.InteractionEvent, error) {
	if s.cfg.Limit > 0 && s.produced >= s.cfg.Limit {
		return nil, domain.ErrSourceExhausted
	}

	if s.cfg.Interval > 0 {
		timer := time.NewTimer(s.cfg.Interval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	} else if ctx.Err() != nil {
		return nil, ctx.Err()
	}

	ts := s.now()
	if ts.Before(s.lastTS) {
		ts = s.lastTS
	}
	s.lastTS = ts

	event := &domain.InteractionEvent{
		EventID:    uuid.NewString(),
		Timestamp:  ts,
		CustomerID: fmt.Sprintf("CUST_%06d", s.rng.Intn(s.cfg.Customers)+1),
		Segment:    s.pickSegment(),
		Touchpoint: s.pickTouchpoint(),
		Action:     s.pickAction(),
	}
	if event.Action == domain.ActionPurchase {
		event.Value = float64(int(s.rng.Float64()*50000)) / 100
	}

	s.produced++
	return event, nil
}

func (s *SimulatedSource) pickSegment() domain.Segment {
	r := s.rng.Float64()
	switch {
	case r < 0.50:
		return domain.SegmentNew
	case r < 0.85:
		return domain.SegmentReturning
	default:
		return domain.SegmentVIP
	}
}

func (s *SimulatedSource) pickTouchpoint() domain.Touchpoint {
	r := s.rng.Float64()
	switch {
	case r < 0.45:
		return domain.TouchpointWeb
	case r < 0.75:
		return domain.TouchpointApp
	case r < 0.90:
		return domain.TouchpointStore
	default:
		return domain.TouchpointCall
	}
}

func (s *SimulatedSource) pickAction() domain.Action {
	r := s.rng.Float64()
	switch {
	case r < 0.45:
		return domain.ActionView
	case r < 0.75:
		return domain.ActionClick
	case r < 0.90:
		return domain.ActionPurchase
	default:
		return domain.ActionAbandon
	}
}
