package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"

	"github.com/BarkinBalci/interaction-insights-service/internal/aggregator"
	"github.com/BarkinBalci/interaction-insights-service/internal/correlation"
	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
	"github.com/BarkinBalci/interaction-insights-service/internal/signal"
	"github.com/BarkinBalci/interaction-insights-service/internal/sink"
	"github.com/BarkinBalci/interaction-insights-service/internal/source"
)

// State is the coordinator lifecycle state
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateDraining
	StateStopped
	StateFailed
)

// String returns the operator-facing state name
func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateDraining:
		return "draining"
	case StateStopped:
		return "stopped"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Config configures the pipeline coordinator
type Config struct {
	// CorrelationInterval is the cadence of correlation cycles
	CorrelationInterval time.Duration
	// SignalTypes lists the signals refreshed and joined each cycle
	SignalTypes []domain.SignalType
	// RetryMaxAttempts bounds retries on a transiently unavailable source
	// before the pipeline fails
	RetryMaxAttempts int
	// RetryBackoffBase is the initial backoff interval for retries
	RetryBackoffBase time.Duration
	// SinkRetryAttempts bounds per-record sink write retries before the
	// record is dead-lettered
	SinkRetryAttempts int
}

// Stats exposes coordinator counters for observability
type Stats struct {
	State           string `json:"state"`
	LastError       string `json:"last_error,omitempty"`
	EventsIngested  uint64 `json:"events_ingested"`
	InsightsEmitted uint64 `json:"insights_emitted"`
	LateDropped     uint64 `json:"late_dropped"`
	CycleOverruns   uint64 `json:"cycle_overruns"`
	DeadLettered    uint64 `json:"dead_lettered"`
	StaleRefreshes  uint64 `json:"stale_refreshes"`
}

// Coordinator orchestrates the pipeline: it pulls events from the source into
// the aggregator continuously, and on a fixed cadence refreshes signals, asks
// the correlation engine to join aggregates with signals, and hands the
// resulting insight records to the sink.
//
// Two goroutines run between Start and Stop: the ingest loop and the
// correlation cycle loop. The aggregator is the only mutable state they
// share. Cycles are never concurrent with each other; a tick that fires while
// a cycle is still running is skipped and counted as an overrun.
type Coordinator struct {
	cfg        Config
	source     source.EventSource
	aggregator *aggregator.Aggregator
	signals    *signal.Cache
	engine     *correlation.Engine
	sink       sink.Sink
	deadLetter sink.DeadLetter
	log        *zap.Logger

	mu       sync.Mutex
	state    State
	lastErr  error
	cancel   context.CancelFunc
	cycleCtx context.Context

	cycleMu sync.Mutex
	done    chan struct{}

	ingested     atomic.Uint64
	emitted      atomic.Uint64
	overruns     atomic.Uint64
	deadLettered atomic.Uint64

	now func() time.Time
}

// New creates a pipeline coordinator in the Idle state
func New(
	cfg Config,
	eventSource source.EventSource,
	agg *aggregator.Aggregator,
	signals *signal.Cache,
	engine *correlation.Engine,
	insightSink sink.Sink,
	deadLetter sink.DeadLetter,
	log *zap.Logger,
) *Coordinator {
	if cfg.RetryMaxAttempts <= 0 {
		cfg.RetryMaxAttempts = 5
	}
	if cfg.RetryBackoffBase <= 0 {
		cfg.RetryBackoffBase = 500 * time.Millisecond
	}
	if cfg.SinkRetryAttempts <= 0 {
		cfg.SinkRetryAttempts = 3
	}

	return &Coordinator{
		cfg:        cfg,
		source:     eventSource,
		aggregator: agg,
		signals:    signals,
		engine:     engine,
		sink:       insightSink,
		deadLetter: deadLetter,
		log:        log,
		done:       make(chan struct{}),
		now:        time.Now,
	}
}

// Start transitions Idle to Running and launches the ingest and correlation
// loops
func (c *Coordinator) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state != StateIdle {
		return fmt.Errorf("cannot start pipeline in state %s", c.state)
	}

	runCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	// In-flight correlation work is never aborted mid-computation; draining
	// waits for it instead
	c.cycleCtx = context.WithoutCancel(runCtx)
	c.state = StateRunning

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		c.ingestLoop(runCtx)
	}()
	go func() {
		defer wg.Done()
		c.cycleLoop(runCtx)
	}()
	go func() {
		wg.Wait()
		close(c.done)
	}()

	c.log.Info("Pipeline started",
		zap.Duration("correlation_interval", c.cfg.CorrelationInterval),
		zap.Int("signal_types", len(c.cfg.SignalTypes)))
	return nil
}

// Stop transitions Running to Draining, waits for the in-flight correlation
// cycle, flushes remaining closed windows and transitions to Stopped. The
// context bounds how long draining may take.
func (c *Coordinator) Stop(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateRunning {
		state := c.state
		c.mu.Unlock()
		return fmt.Errorf("cannot stop pipeline in state %s", state)
	}
	c.state = StateDraining
	cancel := c.cancel
	c.mu.Unlock()

	c.log.Info("Draining pipeline")
	cancel()

	select {
	case <-c.done:
	case <-ctx.Done():
		return fmt.Errorf("pipeline drain interrupted: %w", ctx.Err())
	}

	// Flush whatever closed while the loops were shutting down
	c.cycleMu.Lock()
	c.runCycle(c.cycleCtx)
	c.cycleMu.Unlock()

	c.mu.Lock()
	if c.state == StateDraining {
		c.state = StateStopped
	}
	c.mu.Unlock()

	c.log.Info("Pipeline stopped")
	return nil
}

// State returns the current lifecycle state
func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// LastErr returns the error that moved the pipeline to Failed, if any
func (c *Coordinator) LastErr() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lastErr
}

// Done is closed once both pipeline loops have exited, whether by Stop or by
// failure
func (c *Coordinator) Done() <-chan struct{} {
	return c.done
}

// Stats returns a snapshot of the coordinator counters
func (c *Coordinator) Stats() Stats {
	stats := Stats{
		State:           c.State().String(),
		EventsIngested:  c.ingested.Load(),
		InsightsEmitted: c.emitted.Load(),
		LateDropped:     c.aggregator.LateDropped(),
		CycleOverruns:   c.overruns.Load(),
		DeadLettered:    c.deadLettered.Load(),
		StaleRefreshes:  c.signals.StaleRefreshes(),
	}
	if err := c.LastErr(); err != nil {
		stats.LastError = err.Error()
	}
	return stats
}

// ingestLoop pulls events into the aggregator until the source drains, the
// context is canceled, or retries are exhausted
func (c *Coordinator) ingestLoop(ctx context.Context) {
	for {
		event, err := c.nextWithRetry(ctx)
		switch {
		case err == nil:
			c.aggregator.Ingest(event)
			c.ingested.Add(1)
		case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
			c.log.Info("Ingestion loop shutting down")
			return
		case errors.Is(err, domain.ErrSourceExhausted):
			c.log.Info("Event source exhausted, ingestion complete")
			return
		default:
			c.fail(fmt.Errorf("event source failed after %d attempts: %w", c.cfg.RetryMaxAttempts, err))
			return
		}
	}
}

// nextWithRetry reads the next event, retrying transient unavailability with
// exponential backoff up to the configured attempt bound
func (c *Coordinator) nextWithRetry(ctx context.Context) (*domain.InteractionEvent, error) {
	var event *domain.InteractionEvent

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.RetryBackoffBase
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.cfg.RetryMaxAttempts)), ctx)

	operation := func() error {
		next, err := c.source.Next(ctx)
		if err == nil {
			event = next
			return nil
		}
		if errors.Is(err, domain.ErrSourceUnavailable) {
			c.log.Warn("Event source unavailable, retrying", zap.Error(err))
			return err
		}
		return backoff.Permanent(err)
	}

	if err := backoff.Retry(operation, policy); err != nil {
		return nil, err
	}
	return event, nil
}

// cycleLoop runs correlation cycles on the configured cadence
func (c *Coordinator) cycleLoop(ctx context.Context) {
	ticker := time.NewTicker(c.cfg.CorrelationInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.log.Info("Correlation loop shutting down")
			return
		case <-ticker.C:
			if !c.cycleMu.TryLock() {
				c.overruns.Add(1)
				c.log.Warn("Skipping correlation tick, previous cycle still running")
				continue
			}
			start := c.now()
			c.runCycle(c.cycleCtx)
			c.cycleMu.Unlock()

			if elapsed := c.now().Sub(start); elapsed > c.cfg.CorrelationInterval {
				c.overruns.Add(1)
				c.log.Warn("Correlation cycle overran its interval",
					zap.Duration("elapsed", elapsed),
					zap.Duration("interval", c.cfg.CorrelationInterval))
			}
		}
	}
}

// runCycle performs one correlation cycle: refresh signals best-effort,
// snapshot closed windows, correlate, emit, then evict
func (c *Coordinator) runCycle(ctx context.Context) {
	for _, signalType := range c.cfg.SignalTypes {
		if err := c.signals.Refresh(ctx, signalType); err != nil {
			// Independent refresh failures never block correlation
			c.log.Warn("Signal refresh failed",
				zap.String("signal_type", string(signalType)),
				zap.Error(err))
		}
	}

	asOf := c.now()
	buckets := c.aggregator.Snapshot(asOf)
	records := c.engine.Correlate(buckets, c.signalInputs())

	for i := range records {
		c.emit(ctx, &records[i])
	}

	retired := c.aggregator.Evict(asOf)
	c.engine.ObserveRetired(retired)

	if len(records) > 0 {
		c.log.Info("Correlation cycle complete",
			zap.Int("buckets", len(buckets)),
			zap.Int("insights", len(records)),
			zap.Int("retired", len(retired)))
	}
}

// signalInputs collects the current snapshot per configured signal type,
// omitting signals that were never fetched
func (c *Coordinator) signalInputs() map[domain.SignalType]correlation.SignalInput {
	inputs := make(map[domain.SignalType]correlation.SignalInput, len(c.cfg.SignalTypes))
	for _, signalType := range c.cfg.SignalTypes {
		snapshot, freshness := c.signals.Current(signalType)
		if freshness == signal.Missing {
			continue
		}
		inputs[signalType] = correlation.SignalInput{
			Snapshot: snapshot,
			Stale:    freshness == signal.Stale,
		}
	}
	return inputs
}

// emit writes one record to the sink, retrying up to the configured bound and
// dead-lettering on exhaustion. Sink trouble never halts the cycle.
func (c *Coordinator) emit(ctx context.Context, record *domain.InsightRecord) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = c.cfg.RetryBackoffBase
	eb.MaxElapsedTime = 0
	policy := backoff.WithContext(backoff.WithMaxRetries(eb, uint64(c.cfg.SinkRetryAttempts)), ctx)

	err := backoff.Retry(func() error {
		return c.sink.Write(ctx, record)
	}, policy)
	if err == nil {
		c.emitted.Add(1)
		return
	}

	c.log.Error("Failed to write insight, dead-lettering",
		zap.String("insight_id", record.ID),
		zap.Error(err))
	c.deadLettered.Add(1)

	if dlErr := c.deadLetter.Record(ctx, record, err.Error()); dlErr != nil {
		c.log.Error("Failed to record dead letter",
			zap.String("insight_id", record.ID),
			zap.Error(dlErr))
	}
}

// fail moves the pipeline to the terminal Failed state and stops both loops
func (c *Coordinator) fail(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateStopped || c.state == StateFailed {
		return
	}
	c.state = StateFailed
	c.lastErr = err
	c.log.Error("Pipeline failed", zap.Error(err))
	if c.cancel != nil {
		c.cancel()
	}
}
