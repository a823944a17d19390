package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	_ "github.com/BarkinBalci/interaction-insights-service/docs"
	"github.com/BarkinBalci/interaction-insights-service/internal/dto"
	"github.com/BarkinBalci/interaction-insights-service/internal/service"
)

type Handler struct {
	insightService service.InsightServicer
	router         *gin.Engine
	log            *zap.Logger
}

func NewHandler(insightService service.InsightServicer, log *zap.Logger) *Handler {
	h := &Handler{
		insightService: insightService,
		router:         gin.Default(),
		log:            log,
	}

	h.registerRoutes()

	return h
}

func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) registerRoutes() {
	h.router.GET("/health", h.healthCheck)
	h.router.GET("/insights", h.getInsights)
	h.router.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
}

// healthCheck handles health check requests
// @Summary Health check
// @Description Check if the service is running
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func (h *Handler) healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status": "ok",
	})
}

// getInsights handles GET /insights
// @Summary Query insight records
// @Description Retrieve recent correlated insight records for dashboards
// @Tags insights
// @Produce json
// @Param segment query string false "Segment filter (new, returning, vip)"
// @Param from query int true "Range start as unix seconds"
// @Param to query int true "Range end as unix seconds"
// @Param limit query int false "Maximum records to return (default 100)"
// @Success 200 {object} dto.GetInsightsResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /insights [get]
func (h *Handler) getInsights(c *gin.Context) {
	var req dto.GetInsightsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
		})
		return
	}

	resp, err := h.insightService.GetInsights(&req)
	if err != nil {
		h.log.Warn("Insights query failed", zap.Error(err))
		status := http.StatusInternalServerError
		code := "query_error"
		if errors.Is(err, service.ErrInvalidQuery) {
			status = http.StatusBadRequest
			code = "validation_error"
		}
		c.JSON(status, dto.ErrorResponse{
			Error:   code,
			Message: err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, resp)
}
