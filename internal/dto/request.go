package dto

// GetInsightsRequest represents an insights query request
type GetInsightsRequest struct {
	Segment string `form:"segment" example:"vip"`
	From    int64  `form:"from" binding:"required" example:"1756080000"`
	To      int64  `form:"to" binding:"required" example:"1756166400"`
	Limit   int    `form:"limit" example:"50"`
}
