package source

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
)

// wireEvent is the JSON shape events arrive in on the queue
type wireEvent struct {
	EventID    string  `json:"event_id"`
	Timestamp  int64   `json:"timestamp"`
	CustomerID string  `json:"customer_id"`
	Segment    string  `json:"segment"`
	Touchpoint string  `json:"touchpoint"`
	Action     string  `json:"action"`
	Value      float64 `json:"value"`
}

// JSONEventParser parses JSON-formatted interaction event messages
type JSONEventParser struct{}

// NewJSONEventParser creates a new JSON event parser
func NewJSONEventParser() *JSONEventParser {
	return &JSONEventParser{}
}

// Parse parses a JSON message body into an InteractionEvent, validating the
// closed category fields
func (p *JSONEventParser) Parse(body []byte) (*domain.InteractionEvent, error) {
	var raw wireEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event body: %w", err)
	}

	if raw.EventID == "" {
		return nil, fmt.Errorf("event is missing event_id")
	}
	if raw.CustomerID == "" {
		return nil, fmt.Errorf("event %s is missing customer_id", raw.EventID)
	}
	if raw.Timestamp <= 0 {
		return nil, fmt.Errorf("event %s has invalid timestamp %d", raw.EventID, raw.Timestamp)
	}

	segment, err := domain.ParseSegment(raw.Segment)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", raw.EventID, err)
	}
	touchpoint, err := domain.ParseTouchpoint(raw.Touchpoint)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", raw.EventID, err)
	}
	action, err := domain.ParseAction(raw.Action)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", raw.EventID, err)
	}

	return &domain.InteractionEvent{
		EventID:    raw.EventID,
		Timestamp:  time.Unix(raw.Timestamp, 0).UTC(),
		CustomerID: raw.CustomerID,
		Segment:    segment,
		Touchpoint: touchpoint,
		Action:     action,
		Value:      raw.Value,
	}, nil
}
