package service

import (
	"github.com/BarkinBalci/interaction-insights-service/internal/dto"
)

// InsightServicer defines the interface for insight query operations
type InsightServicer interface {
	GetInsights(req *dto.GetInsightsRequest) (*dto.GetInsightsResponse, error)
}
