package correlation

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
)

// Metric names attached to every insight record
const (
	MetricInteractionCount  = "interaction_count"
	MetricRevenueSum        = "revenue_sum"
	MetricDistinctCustomers = "distinct_customers"
)

// Config configures the correlation rules
type Config struct {
	// BaselineWindowCount is how many retired windows feed the rolling mean
	BaselineWindowCount int
	// AnomalyThresholdPct tags records whose delta exceeds this magnitude
	AnomalyThresholdPct float64
	// ExpectedSignals is the set of signal types configured for the
	// pipeline; a correlation missing any of them is marked degraded
	ExpectedSignals []domain.SignalType
	// MarketBandPct and NewsBand bound the "normal" range of the market and
	// news signals; readings outside them tag external-factor-likely
	MarketBandPct float64
	NewsBand      float64
}

// SignalInput is one cached signal as handed to the engine. Types that were
// never fetched are simply absent from the input map.
type SignalInput struct {
	Snapshot *domain.SignalSnapshot
	Stale    bool
}

// Engine joins window aggregates with external signal snapshots and produces
// insight records. It owns the rolling baselines; construct one per pipeline
// and share nothing globally.
type Engine struct {
	cfg  Config
	base *baselineStore
	now  func() time.Time
	log  *zap.Logger
}

// NewEngine creates a correlation engine
func NewEngine(cfg Config, log *zap.Logger) *Engine {
	if cfg.BaselineWindowCount <= 0 {
		cfg.BaselineWindowCount = 12
	}

	return &Engine{
		cfg:  cfg,
		base: newBaselineStore(cfg.BaselineWindowCount),
		now:  time.Now,
		log:  log,
	}
}

// Correlate produces one insight record per closed bucket, in the order the
// aggregator snapshot provides them (lexicographic by segment then
// touchpoint), so identical input always yields identical output. An empty
// bucket slice is a valid outcome and returns an empty result, not an error.
func (e *Engine) Correlate(buckets []*domain.WindowBucket, signals map[domain.SignalType]SignalInput) []domain.InsightRecord {
	if len(buckets) == 0 {
		return nil
	}

	generatedAt := e.now()
	records := make([]domain.InsightRecord, 0, len(buckets))
	for _, bucket := range buckets {
		records = append(records, e.correlateBucket(bucket, signals, generatedAt))
	}
	return records
}

// ObserveRetired folds retired buckets into the baseline history. The
// coordinator calls this with the buckets eviction removed, so each window
// contributes its final values exactly once.
func (e *Engine) ObserveRetired(buckets []*domain.WindowBucket) {
	e.base.fold(buckets)
}

func (e *Engine) correlateBucket(bucket *domain.WindowBucket, signals map[domain.SignalType]SignalInput, generatedAt time.Time) domain.InsightRecord {
	key := baselineKey{Segment: bucket.Key.Segment, Touchpoint: bucket.Key.Touchpoint}

	record := domain.InsightRecord{
		GeneratedAt:       generatedAt,
		WindowStart:       bucket.Key.WindowStart,
		WindowEnd:         bucket.WindowEnd(),
		Segment:           bucket.Key.Segment,
		Touchpoint:        bucket.Key.Touchpoint,
		CorrelatedSignals: make(map[domain.SignalType]domain.SignalReading),
		MetricDeltas:      make(map[string]domain.MetricDelta, 3),
	}
	record.ID = computeInsightID(&record)

	insufficientBaseline := false
	anomaly := false
	for metric, current := range bucketMetrics(bucket) {
		baseline := e.base.baseline(key, metric)
		delta := domain.MetricDelta{Current: current, Baseline: baseline}
		if baseline > 0 {
			pct := (current - baseline) / baseline * 100
			delta.DeltaPct = &pct
			if math.Abs(pct) > e.cfg.AnomalyThresholdPct {
				anomaly = true
			}
		} else {
			insufficientBaseline = true
		}
		record.MetricDeltas[metric] = delta
	}

	externalFactor := false
	for _, signalType := range e.cfg.ExpectedSignals {
		input, ok := signals[signalType]
		if !ok || input.Snapshot == nil {
			record.Degraded = true
			continue
		}
		if input.Stale {
			record.Degraded = true
		}
		record.CorrelatedSignals[signalType] = domain.SignalReading{
			Value: input.Snapshot.Value,
			Label: input.Snapshot.Label,
			Stale: input.Stale,
		}
		if e.signalOutOfBand(signalType, input.Snapshot) {
			externalFactor = true
		}
	}

	// Tag order is fixed so repeated runs produce identical records
	if anomaly {
		record.NarrativeTags = append(record.NarrativeTags, domain.TagAnomaly)
	}
	if insufficientBaseline {
		record.NarrativeTags = append(record.NarrativeTags, domain.TagInsufficientBaseline)
	}
	if externalFactor {
		record.NarrativeTags = append(record.NarrativeTags, domain.TagExternalFactor)
	}

	return record
}

// severeWeather lists weather conditions treated as plausible external
// drivers of behavior shifts
var severeWeather = map[string]bool{
	"Rain":         true,
	"Snow":         true,
	"Thunderstorm": true,
}

func (e *Engine) signalOutOfBand(signalType domain.SignalType, snapshot *domain.SignalSnapshot) bool {
	switch signalType {
	case domain.SignalMarket:
		return e.cfg.MarketBandPct > 0 && math.Abs(snapshot.Value) > e.cfg.MarketBandPct
	case domain.SignalNews:
		return e.cfg.NewsBand > 0 && math.Abs(snapshot.Value) > e.cfg.NewsBand
	case domain.SignalWeather:
		return severeWeather[snapshot.Label]
	}
	return false
}

// bucketMetrics extracts the metric values correlation reports for a bucket
func bucketMetrics(bucket *domain.WindowBucket) map[string]float64 {
	return map[string]float64{
		MetricInteractionCount:  float64(bucket.Count),
		MetricRevenueSum:        bucket.Sum,
		MetricDistinctCustomers: float64(bucket.DistinctCustomers()),
	}
}

// computeInsightID derives a deterministic record ID from the fields that
// identify an insight, so an at-least-once sink can deduplicate
func computeInsightID(record *domain.InsightRecord) string {
	data := fmt.Sprintf("%d|%d|%d|%s|%s",
		record.GeneratedAt.Unix(),
		record.WindowStart.Unix(),
		record.WindowEnd.Unix(),
		record.Segment,
		record.Touchpoint,
	)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
