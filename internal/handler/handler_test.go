package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"

	"github.com/BarkinBalci/interaction-insights-service/internal/dto"
	"github.com/BarkinBalci/interaction-insights-service/internal/service"
)

// MockInsightService is a mock implementation of service.InsightServicer
type MockInsightService struct {
	mock.Mock
}

func (m *MockInsightService) GetInsights(req *dto.GetInsightsRequest) (*dto.GetInsightsResponse, error) {
	args := m.Called(req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*dto.GetInsightsResponse), args.Error(1)
}

func TestHandler_HealthCheck(t *testing.T) {
	mockService := new(MockInsightService)
	log := zap.NewNop()

	handler := NewHandler(mockService, log)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response map[string]string
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "ok", response["status"])
}

func TestHandler_GetInsights_Success(t *testing.T) {
	mockService := new(MockInsightService)
	log := zap.NewNop()

	handler := NewHandler(mockService, log)

	expectedResponse := &dto.GetInsightsResponse{
		From:    1772100000,
		To:      1772186400,
		Segment: "vip",
		Count:   1,
		Insights: []dto.InsightData{
			{
				InsightID:  "insight-1",
				Segment:    "vip",
				Touchpoint: "web",
				CorrelatedSignals: map[string]dto.SignalReadingData{
					"weather": {Value: 21.5, Label: "Clear"},
				},
				NarrativeTags: []string{"anomaly"},
			},
		},
	}

	mockService.On("GetInsights", &dto.GetInsightsRequest{
		Segment: "vip",
		From:    1772100000,
		To:      1772186400,
	}).Return(expectedResponse, nil)

	req := httptest.NewRequest(http.MethodGet, "/insights?segment=vip&from=1772100000&to=1772186400", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)

	var response dto.GetInsightsResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, 1, response.Count)
	assert.Equal(t, "insight-1", response.Insights[0].InsightID)
	assert.Equal(t, 21.5, response.Insights[0].CorrelatedSignals["weather"].Value)
	mockService.AssertExpectations(t)
}

func TestHandler_GetInsights_MissingRequiredParams(t *testing.T) {
	mockService := new(MockInsightService)
	log := zap.NewNop()

	handler := NewHandler(mockService, log)

	req := httptest.NewRequest(http.MethodGet, "/insights?segment=vip", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response dto.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "validation_error", response.Error)
	mockService.AssertNotCalled(t, "GetInsights")
}

func TestHandler_GetInsights_InvalidQuery(t *testing.T) {
	mockService := new(MockInsightService)
	log := zap.NewNop()

	handler := NewHandler(mockService, log)

	serviceErr := fmt.Errorf("%w: unknown segment: %q", service.ErrInvalidQuery, "platinum")
	mockService.On("GetInsights", mock.Anything).Return(nil, serviceErr)

	req := httptest.NewRequest(http.MethodGet, "/insights?segment=platinum&from=1772100000&to=1772186400", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)

	var response dto.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "validation_error", response.Error)
	assert.Contains(t, response.Message, "unknown segment")
	mockService.AssertExpectations(t)
}

func TestHandler_GetInsights_ServiceError(t *testing.T) {
	mockService := new(MockInsightService)
	log := zap.NewNop()

	handler := NewHandler(mockService, log)

	serviceErr := errors.New("warehouse connection error")
	mockService.On("GetInsights", mock.Anything).Return(nil, serviceErr)

	req := httptest.NewRequest(http.MethodGet, "/insights?from=1772100000&to=1772186400", nil)
	w := httptest.NewRecorder()

	handler.ServeHTTP(w, req)

	assert.Equal(t, http.StatusInternalServerError, w.Code)

	var response dto.ErrorResponse
	err := json.Unmarshal(w.Body.Bytes(), &response)
	assert.NoError(t, err)
	assert.Equal(t, "query_error", response.Error)
	assert.Contains(t, response.Message, "warehouse connection error")
	mockService.AssertExpectations(t)
}
