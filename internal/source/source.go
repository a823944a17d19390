package source

import (
	"context"

	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
)

// EventSource produces a lazy sequence of interaction events with
// non-decreasing timestamps. Next returns domain.ErrSourceExhausted when a
// finite source drains and domain.ErrSourceUnavailable on transient read
// failures the caller may retry.
type EventSource interface {
	Next(ctx context.Context) (*domain.InteractionEvent, error)
}
