package pipeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/BarkinBalci/interaction-insights-service/internal/aggregator"
	"github.com/BarkinBalci/interaction-insights-service/internal/correlation"
	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
	"github.com/BarkinBalci/interaction-insights-service/internal/signal"
)

// stubSource serves a fixed event slice, then reports exhaustion. A non-nil
// err is returned on every call instead.
type stubSource struct {
	events []*domain.InteractionEvent
	idx    int
	err    error
}

func (s *stubSource) Next(ctx context.Context) (*domain.InteractionEvent, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if s.err != nil {
		return nil, s.err
	}
	if s.idx >= len(s.events) {
		return nil, domain.ErrSourceExhausted
	}
	event := s.events[s.idx]
	s.idx++
	return event, nil
}

// MockSink is a mock implementation of sink.Sink
type MockSink struct {
	mock.Mock
}

func (m *MockSink) Write(ctx context.Context, record *domain.InsightRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *MockSink) Close() error {
	args := m.Called()
	return args.Error(0)
}

// MockDeadLetter is a mock implementation of sink.DeadLetter
type MockDeadLetter struct {
	mock.Mock
}

func (m *MockDeadLetter) Record(ctx context.Context, record *domain.InsightRecord, reason string) error {
	args := m.Called(ctx, record, reason)
	return args.Error(0)
}

func testEvents(n int) []*domain.InteractionEvent {
	now := time.Now()
	events := make([]*domain.InteractionEvent, 0, n)
	for i := 0; i < n; i++ {
		events = append(events, &domain.InteractionEvent{
			EventID:    fmt.Sprintf("evt-%d", i),
			Timestamp:  now,
			CustomerID: fmt.Sprintf("CUST_%06d", i+1),
			Segment:    domain.SegmentVIP,
			Touchpoint: domain.TouchpointWeb,
			Action:     domain.ActionPurchase,
			Value:      10,
		})
	}
	return events
}

func testCoordinator(t *testing.T, cfg Config, eventSource *stubSource, insightSink *MockSink, deadLetter *MockDeadLetter) *Coordinator {
	t.Helper()
	log := zap.NewNop()

	agg, err := aggregator.New(aggregator.Config{
		WindowSize:  5 * time.Minute,
		GracePeriod: 2 * time.Minute,
	}, log)
	assert.NoError(t, err)

	cache := signal.NewCache(map[domain.SignalType]signal.Fetcher{
		domain.SignalWeather: &signal.StaticFetcher{Type: domain.SignalWeather, Value: 21, Label: "Clear", TTL: time.Hour},
	}, log)

	engine := correlation.NewEngine(correlation.Config{
		BaselineWindowCount: 12,
		AnomalyThresholdPct: 25,
		ExpectedSignals:     cfg.SignalTypes,
	}, log)

	c := New(cfg, eventSource, agg, cache, engine, insightSink, deadLetter, log)
	// Cycles see a clock far past the test events so their windows are closed
	// and evicted immediately
	c.now = func() time.Time { return time.Now().Add(time.Hour) }
	return c
}

func defaultTestConfig() Config {
	return Config{
		CorrelationInterval: 20 * time.Millisecond,
		SignalTypes:         []domain.SignalType{domain.SignalWeather},
		RetryMaxAttempts:    2,
		RetryBackoffBase:    time.Millisecond,
		SinkRetryAttempts:   1,
	}
}

func TestCoordinator_Lifecycle(t *testing.T) {
	insightSink := new(MockSink)
	deadLetter := new(MockDeadLetter)
	insightSink.On("Write", mock.Anything, mock.Anything).Return(nil)

	c := testCoordinator(t, defaultTestConfig(), &stubSource{events: testEvents(3)}, insightSink, deadLetter)
	assert.Equal(t, StateIdle, c.State())

	assert.NoError(t, c.Start(context.Background()))
	assert.Equal(t, StateRunning, c.State())

	time.Sleep(150 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, c.Stop(ctx))
	assert.Equal(t, StateStopped, c.State())

	stats := c.Stats()
	assert.Equal(t, "stopped", stats.State)
	assert.Equal(t, uint64(3), stats.EventsIngested)
	assert.Equal(t, uint64(1), stats.InsightsEmitted)
	assert.Equal(t, uint64(0), stats.DeadLettered)
	insightSink.AssertExpectations(t)
	deadLetter.AssertNotCalled(t, "Record")
}

func TestCoordinator_StartTwice(t *testing.T) {
	insightSink := new(MockSink)
	insightSink.On("Write", mock.Anything, mock.Anything).Return(nil)

	c := testCoordinator(t, defaultTestConfig(), &stubSource{}, insightSink, new(MockDeadLetter))

	assert.NoError(t, c.Start(context.Background()))
	err := c.Start(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot start pipeline in state running")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, c.Stop(ctx))
}

func TestCoordinator_StopBeforeStart(t *testing.T) {
	c := testCoordinator(t, defaultTestConfig(), &stubSource{}, new(MockSink), new(MockDeadLetter))

	err := c.Stop(context.Background())
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "cannot stop pipeline in state idle")
}

func TestCoordinator_SourceFailureMovesToFailed(t *testing.T) {
	insightSink := new(MockSink)
	eventSource := &stubSource{err: fmt.Errorf("connection refused: %w", domain.ErrSourceUnavailable)}

	c := testCoordinator(t, defaultTestConfig(), eventSource, insightSink, new(MockDeadLetter))
	assert.NoError(t, c.Start(context.Background()))

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not fail in time")
	}

	assert.Equal(t, StateFailed, c.State())
	assert.Error(t, c.LastErr())
	assert.Contains(t, c.LastErr().Error(), "event source failed after 2 attempts")
	assert.Contains(t, c.Stats().LastError, "connection refused")
}

func TestCoordinator_NonRetryableSourceErrorFailsImmediately(t *testing.T) {
	eventSource := &stubSource{err: fmt.Errorf("corrupt stream")}

	c := testCoordinator(t, defaultTestConfig(), eventSource, new(MockSink), new(MockDeadLetter))
	assert.NoError(t, c.Start(context.Background()))

	select {
	case <-c.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("pipeline did not fail in time")
	}

	assert.Equal(t, StateFailed, c.State())
	assert.Contains(t, c.LastErr().Error(), "corrupt stream")
}

func TestCoordinator_SinkFailureDeadLetters(t *testing.T) {
	insightSink := new(MockSink)
	deadLetter := new(MockDeadLetter)
	insightSink.On("Write", mock.Anything, mock.Anything).Return(fmt.Errorf("warehouse unavailable"))
	deadLetter.On("Record", mock.Anything, mock.Anything, mock.Anything).Return(nil)

	c := testCoordinator(t, defaultTestConfig(), &stubSource{events: testEvents(2)}, insightSink, deadLetter)
	assert.NoError(t, c.Start(context.Background()))

	time.Sleep(150 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, c.Stop(ctx))

	stats := c.Stats()
	assert.Equal(t, uint64(0), stats.InsightsEmitted)
	assert.Equal(t, uint64(1), stats.DeadLettered)
	deadLetter.AssertCalled(t, "Record", mock.Anything, mock.Anything, mock.Anything)
}

func TestCoordinator_DrainFlushesRemainingWindows(t *testing.T) {
	insightSink := new(MockSink)
	insightSink.On("Write", mock.Anything, mock.Anything).Return(nil)

	// An interval so long no cycle fires before Stop: the drain cycle must
	// still flush the closed window
	cfg := defaultTestConfig()
	cfg.CorrelationInterval = time.Hour

	c := testCoordinator(t, cfg, &stubSource{events: testEvents(3)}, insightSink, new(MockDeadLetter))
	assert.NoError(t, c.Start(context.Background()))

	time.Sleep(50 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, c.Stop(ctx))

	stats := c.Stats()
	assert.Equal(t, uint64(3), stats.EventsIngested)
	assert.Equal(t, uint64(1), stats.InsightsEmitted)
	insightSink.AssertExpectations(t)
}

func TestCoordinator_SlowCycleCountsOverrun(t *testing.T) {
	insightSink := new(MockSink)
	insightSink.On("Write", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { time.Sleep(60 * time.Millisecond) }).
		Return(nil)

	cfg := defaultTestConfig()
	cfg.CorrelationInterval = 10 * time.Millisecond

	c := testCoordinator(t, cfg, &stubSource{events: testEvents(1)}, insightSink, new(MockDeadLetter))
	assert.NoError(t, c.Start(context.Background()))

	time.Sleep(200 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	assert.NoError(t, c.Stop(ctx))

	assert.Greater(t, c.Stats().CycleOverruns, uint64(0))
}
