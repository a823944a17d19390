package correlation

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
)

var (
	testWindowStart = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	testGenerated   = time.Date(2026, 3, 10, 10, 7, 0, 0, time.UTC)
)

func newTestEngine(cfg Config) *Engine {
	engine := NewEngine(cfg, zap.NewNop())
	engine.now = func() time.Time { return testGenerated }
	return engine
}

func makeBucket(segment domain.Segment, touchpoint domain.Touchpoint, windowStart time.Time, count int, sum float64) *domain.WindowBucket {
	bucket := domain.NewWindowBucket(domain.BucketKey{
		Segment:     segment,
		Touchpoint:  touchpoint,
		WindowStart: windowStart,
	}, 5*time.Minute)

	for i := 0; i < count; i++ {
		bucket.Observe(&domain.InteractionEvent{
			CustomerID: fmt.Sprintf("CUST_%06d", i+1),
			Value:      sum / float64(count),
		}, windowStart)
	}
	return bucket
}

func freshSignals() map[domain.SignalType]SignalInput {
	return map[domain.SignalType]SignalInput{
		domain.SignalWeather: {Snapshot: &domain.SignalSnapshot{Type: domain.SignalWeather, Value: 21.5, Label: "Clear"}},
		domain.SignalMarket:  {Snapshot: &domain.SignalSnapshot{Type: domain.SignalMarket, Value: 0.4, Label: "positive"}},
		domain.SignalNews:    {Snapshot: &domain.SignalSnapshot{Type: domain.SignalNews, Value: 0.2, Label: "positive"}},
	}
}

func defaultConfig() Config {
	return Config{
		BaselineWindowCount: 12,
		AnomalyThresholdPct: 25,
		ExpectedSignals:     []domain.SignalType{domain.SignalWeather, domain.SignalMarket, domain.SignalNews},
		MarketBandPct:       2,
		NewsBand:            0.5,
	}
}

func TestEngine_Correlate_EmptyInput(t *testing.T) {
	engine := newTestEngine(defaultConfig())
	assert.Empty(t, engine.Correlate(nil, freshSignals()))
	assert.Empty(t, engine.Correlate([]*domain.WindowBucket{}, freshSignals()))
}

func TestEngine_Correlate_Deterministic(t *testing.T) {
	// Identical input must yield identical records, IDs included
	buckets := []*domain.WindowBucket{
		makeBucket(domain.SegmentNew, domain.TouchpointApp, testWindowStart, 3, 30),
		makeBucket(domain.SegmentVIP, domain.TouchpointWeb, testWindowStart, 5, 100),
	}
	signals := freshSignals()

	first := newTestEngine(defaultConfig()).Correlate(buckets, signals)
	second := newTestEngine(defaultConfig()).Correlate(buckets, signals)

	assert.Equal(t, first, second)
	assert.Len(t, first, 2)
	assert.NotEqual(t, first[0].ID, first[1].ID)
}

func TestEngine_Correlate_ZeroBaseline(t *testing.T) {
	// With no history the baseline is zero: no relative delta can be reported
	// and the record carries the insufficient-baseline tag
	engine := newTestEngine(defaultConfig())

	records := engine.Correlate([]*domain.WindowBucket{
		makeBucket(domain.SegmentVIP, domain.TouchpointWeb, testWindowStart, 3, 30),
	}, freshSignals())

	assert.Len(t, records, 1)
	record := records[0]
	for metric, delta := range record.MetricDeltas {
		assert.Nil(t, delta.DeltaPct, "metric %s should have no delta without baseline", metric)
		assert.Equal(t, 0.0, delta.Baseline)
	}
	assert.Contains(t, record.NarrativeTags, domain.TagInsufficientBaseline)
	assert.NotContains(t, record.NarrativeTags, domain.TagAnomaly)
}

func TestEngine_Correlate_DeltaAgainstRetiredBaseline(t *testing.T) {
	engine := newTestEngine(defaultConfig())

	// Two retired windows with count 10 each establish a baseline of 10
	engine.ObserveRetired([]*domain.WindowBucket{
		makeBucket(domain.SegmentVIP, domain.TouchpointWeb, testWindowStart.Add(-10*time.Minute), 10, 100),
		makeBucket(domain.SegmentVIP, domain.TouchpointWeb, testWindowStart.Add(-5*time.Minute), 10, 100),
	})

	records := engine.Correlate([]*domain.WindowBucket{
		makeBucket(domain.SegmentVIP, domain.TouchpointWeb, testWindowStart, 12, 120),
	}, freshSignals())

	assert.Len(t, records, 1)
	delta := records[0].MetricDeltas[MetricInteractionCount]
	assert.Equal(t, 12.0, delta.Current)
	assert.Equal(t, 10.0, delta.Baseline)
	assert.NotNil(t, delta.DeltaPct)
	assert.InDelta(t, 20.0, *delta.DeltaPct, 0.001)
	assert.NotContains(t, records[0].NarrativeTags, domain.TagAnomaly)
	assert.NotContains(t, records[0].NarrativeTags, domain.TagInsufficientBaseline)
}

func TestEngine_Correlate_AnomalyTag(t *testing.T) {
	engine := newTestEngine(defaultConfig())

	engine.ObserveRetired([]*domain.WindowBucket{
		makeBucket(domain.SegmentVIP, domain.TouchpointWeb, testWindowStart.Add(-5*time.Minute), 10, 100),
	})

	// Count 20 against baseline 10 is a 100% delta, past the 25% threshold
	records := engine.Correlate([]*domain.WindowBucket{
		makeBucket(domain.SegmentVIP, domain.TouchpointWeb, testWindowStart, 20, 200),
	}, freshSignals())

	assert.Len(t, records, 1)
	assert.Contains(t, records[0].NarrativeTags, domain.TagAnomaly)
}

func TestEngine_Correlate_BaselinesIsolatedPerKey(t *testing.T) {
	// History for one segment/touchpoint pair must not leak into another
	engine := newTestEngine(defaultConfig())

	engine.ObserveRetired([]*domain.WindowBucket{
		makeBucket(domain.SegmentVIP, domain.TouchpointWeb, testWindowStart.Add(-5*time.Minute), 10, 100),
	})

	records := engine.Correlate([]*domain.WindowBucket{
		makeBucket(domain.SegmentNew, domain.TouchpointWeb, testWindowStart, 10, 100),
	}, freshSignals())

	assert.Len(t, records, 1)
	assert.Contains(t, records[0].NarrativeTags, domain.TagInsufficientBaseline)
}

func TestEngine_Correlate_MissingSignalOmittedAndDegraded(t *testing.T) {
	engine := newTestEngine(defaultConfig())

	signals := freshSignals()
	delete(signals, domain.SignalNews)

	records := engine.Correlate([]*domain.WindowBucket{
		makeBucket(domain.SegmentVIP, domain.TouchpointWeb, testWindowStart, 3, 30),
	}, signals)

	assert.Len(t, records, 1)
	assert.True(t, records[0].Degraded)
	assert.NotContains(t, records[0].CorrelatedSignals, domain.SignalNews)
	assert.Contains(t, records[0].CorrelatedSignals, domain.SignalWeather)
	assert.Contains(t, records[0].CorrelatedSignals, domain.SignalMarket)
}

func TestEngine_Correlate_StaleSignalIncludedAndDegraded(t *testing.T) {
	engine := newTestEngine(defaultConfig())

	signals := freshSignals()
	stale := signals[domain.SignalWeather]
	stale.Stale = true
	signals[domain.SignalWeather] = stale

	records := engine.Correlate([]*domain.WindowBucket{
		makeBucket(domain.SegmentVIP, domain.TouchpointWeb, testWindowStart, 3, 30),
	}, signals)

	assert.Len(t, records, 1)
	assert.True(t, records[0].Degraded)
	reading := records[0].CorrelatedSignals[domain.SignalWeather]
	assert.True(t, reading.Stale)
	assert.Equal(t, 21.5, reading.Value)
}

func TestEngine_Correlate_ExternalFactorTags(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(map[domain.SignalType]SignalInput)
		tagged bool
	}{
		{
			name:   "calm signals",
			mutate: func(map[domain.SignalType]SignalInput) {},
			tagged: false,
		},
		{
			name: "severe weather",
			mutate: func(signals map[domain.SignalType]SignalInput) {
				signals[domain.SignalWeather] = SignalInput{Snapshot: &domain.SignalSnapshot{Type: domain.SignalWeather, Value: 5, Label: "Thunderstorm"}}
			},
			tagged: true,
		},
		{
			name: "market swing beyond band",
			mutate: func(signals map[domain.SignalType]SignalInput) {
				signals[domain.SignalMarket] = SignalInput{Snapshot: &domain.SignalSnapshot{Type: domain.SignalMarket, Value: -3.2, Label: "negative"}}
			},
			tagged: true,
		},
		{
			name: "news sentiment beyond band",
			mutate: func(signals map[domain.SignalType]SignalInput) {
				signals[domain.SignalNews] = SignalInput{Snapshot: &domain.SignalSnapshot{Type: domain.SignalNews, Value: -0.8, Label: "negative"}}
			},
			tagged: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newTestEngine(defaultConfig())
			signals := freshSignals()
			tt.mutate(signals)

			records := engine.Correlate([]*domain.WindowBucket{
				makeBucket(domain.SegmentVIP, domain.TouchpointWeb, testWindowStart, 3, 30),
			}, signals)

			assert.Len(t, records, 1)
			if tt.tagged {
				assert.Contains(t, records[0].NarrativeTags, domain.TagExternalFactor)
			} else {
				assert.NotContains(t, records[0].NarrativeTags, domain.TagExternalFactor)
			}
		})
	}
}

func TestEngine_Correlate_SharedGeneratedAt(t *testing.T) {
	engine := newTestEngine(defaultConfig())

	records := engine.Correlate([]*domain.WindowBucket{
		makeBucket(domain.SegmentNew, domain.TouchpointApp, testWindowStart, 1, 10),
		makeBucket(domain.SegmentVIP, domain.TouchpointWeb, testWindowStart, 1, 10),
	}, freshSignals())

	assert.Len(t, records, 2)
	assert.Equal(t, testGenerated, records[0].GeneratedAt)
	assert.Equal(t, records[0].GeneratedAt, records[1].GeneratedAt)
}

func TestBaselineStore_RollingLimit(t *testing.T) {
	store := newBaselineStore(2)
	key := baselineKey{Segment: domain.SegmentVIP, Touchpoint: domain.TouchpointWeb}

	// Three windows with counts 10, 20, 30; limit 2 keeps the newest two
	store.fold([]*domain.WindowBucket{
		makeBucket(domain.SegmentVIP, domain.TouchpointWeb, testWindowStart, 10, 0),
		makeBucket(domain.SegmentVIP, domain.TouchpointWeb, testWindowStart.Add(5*time.Minute), 20, 0),
		makeBucket(domain.SegmentVIP, domain.TouchpointWeb, testWindowStart.Add(10*time.Minute), 30, 0),
	})

	assert.Equal(t, 25.0, store.baseline(key, MetricInteractionCount))
}

func TestBaselineStore_FoldOrdersByWindowStart(t *testing.T) {
	store := newBaselineStore(1)
	key := baselineKey{Segment: domain.SegmentVIP, Touchpoint: domain.TouchpointWeb}

	// Out-of-order fold input: the newest window must win
	store.fold([]*domain.WindowBucket{
		makeBucket(domain.SegmentVIP, domain.TouchpointWeb, testWindowStart.Add(10*time.Minute), 30, 0),
		makeBucket(domain.SegmentVIP, domain.TouchpointWeb, testWindowStart, 10, 0),
	})

	assert.Equal(t, 30.0, store.baseline(key, MetricInteractionCount))
}

func TestBaselineStore_NoHistory(t *testing.T) {
	store := newBaselineStore(12)
	key := baselineKey{Segment: domain.SegmentNew, Touchpoint: domain.TouchpointCall}
	assert.Equal(t, 0.0, store.baseline(key, MetricRevenueSum))
}
