package correlation

import (
	"sort"

	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
)

// baselineKey tracks baseline history per segment/touchpoint pair
type baselineKey struct {
	Segment    domain.Segment
	Touchpoint domain.Touchpoint
}

// baselineStore keeps the last N retired windows per segment/touchpoint pair
// and serves their per-metric means as baselines. Windows are folded in at
// eviction time, once their grace period has elapsed and their values are
// final, so a window never baselines against itself.
type baselineStore struct {
	limit   int
	history map[baselineKey]map[string][]float64
}

func newBaselineStore(limit int) *baselineStore {
	return &baselineStore{
		limit:   limit,
		history: make(map[baselineKey]map[string][]float64),
	}
}

// baseline returns the rolling mean for a metric, or 0 when no history exists
func (s *baselineStore) baseline(key baselineKey, metric string) float64 {
	series, ok := s.history[key]
	if !ok {
		return 0
	}
	values := series[metric]
	if len(values) == 0 {
		return 0
	}

	var total float64
	for _, v := range values {
		total += v
	}
	return total / float64(len(values))
}

// fold appends retired window metrics to the rolling history, oldest windows
// first, keeping at most limit values per metric
func (s *baselineStore) fold(buckets []*domain.WindowBucket) {
	ordered := make([]*domain.WindowBucket, len(buckets))
	copy(ordered, buckets)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Key.WindowStart.Before(ordered[j].Key.WindowStart)
	})

	for _, bucket := range ordered {
		key := baselineKey{Segment: bucket.Key.Segment, Touchpoint: bucket.Key.Touchpoint}
		series, ok := s.history[key]
		if !ok {
			series = make(map[string][]float64)
			s.history[key] = series
		}

		for metric, value := range bucketMetrics(bucket) {
			window := append(series[metric], value)
			if len(window) > s.limit {
				window = window[len(window)-s.limit:]
			}
			series[metric] = window
		}
	}
}
