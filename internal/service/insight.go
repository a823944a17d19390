package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
	"github.com/BarkinBalci/interaction-insights-service/internal/dto"
	"github.com/BarkinBalci/interaction-insights-service/internal/sink"
)

const maxInsightLimit = 1000

// ErrInvalidQuery marks query validation failures so the handler can answer
// with a client error instead of a server error
var ErrInvalidQuery = errors.New("invalid insights query")

// InsightService serves insight queries for dashboards
type InsightService struct {
	repository sink.InsightRepository
	log        *zap.Logger
}

// NewInsightService creates a new insight service
func NewInsightService(repository sink.InsightRepository, log *zap.Logger) *InsightService {
	return &InsightService{
		repository: repository,
		log:        log,
	}
}

// GetInsights validates the query and retrieves matching insight records
func (s *InsightService) GetInsights(req *dto.GetInsightsRequest) (*dto.GetInsightsResponse, error) {
	ctx := context.Background()

	if req.From > req.To {
		s.log.Warn("Invalid time range for insights",
			zap.Int64("from", req.From),
			zap.Int64("to", req.To))
		return nil, fmt.Errorf("%w: from timestamp must be less than or equal to to timestamp", ErrInvalidQuery)
	}

	if req.Segment != "" {
		if _, err := domain.ParseSegment(req.Segment); err != nil {
			s.log.Warn("Invalid segment filter", zap.String("segment", req.Segment))
			return nil, fmt.Errorf("%w: %v", ErrInvalidQuery, err)
		}
	}

	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > maxInsightLimit {
		return nil, fmt.Errorf("%w: limit too large (max %d, got %d)", ErrInvalidQuery, maxInsightLimit, limit)
	}

	records, err := s.repository.RecentInsights(ctx, sink.InsightQuery{
		Segment: req.Segment,
		From:    time.Unix(req.From, 0).UTC(),
		To:      time.Unix(req.To, 0).UTC(),
		Limit:   limit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get insights from repository: %w", err)
	}

	response := &dto.GetInsightsResponse{
		From:     req.From,
		To:       req.To,
		Segment:  req.Segment,
		Count:    len(records),
		Insights: make([]dto.InsightData, 0, len(records)),
	}
	for i := range records {
		response.Insights = append(response.Insights, toInsightData(&records[i]))
	}

	return response, nil
}

func toInsightData(record *domain.InsightRecord) dto.InsightData {
	signals := make(map[string]dto.SignalReadingData, len(record.CorrelatedSignals))
	for signalType, reading := range record.CorrelatedSignals {
		signals[string(signalType)] = dto.SignalReadingData{
			Value: reading.Value,
			Label: reading.Label,
			Stale: reading.Stale,
		}
	}

	deltas := make(map[string]dto.MetricDeltaData, len(record.MetricDeltas))
	for metric, delta := range record.MetricDeltas {
		deltas[metric] = dto.MetricDeltaData{
			Current:  delta.Current,
			Baseline: delta.Baseline,
			DeltaPct: delta.DeltaPct,
		}
	}

	return dto.InsightData{
		InsightID:         record.ID,
		GeneratedAt:       record.GeneratedAt.Unix(),
		WindowStart:       record.WindowStart.Unix(),
		WindowEnd:         record.WindowEnd.Unix(),
		Segment:           string(record.Segment),
		Touchpoint:        string(record.Touchpoint),
		CorrelatedSignals: signals,
		MetricDeltas:      deltas,
		NarrativeTags:     record.NarrativeTags,
		Degraded:          record.Degraded,
	}
}
