package source

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
)

func TestJSONEventParser_Parse_Valid(t *testing.T) {
	parser := NewJSONEventParser()

	body := []byte(`{
		"event_id": "evt-1",
		"timestamp": 1772100000,
		"customer_id": "CUST_000042",
		"segment": "vip",
		"touchpoint": "web",
		"action": "purchase",
		"value": 129.99
	}`)

	event, err := parser.Parse(body)
	assert.NoError(t, err)
	assert.Equal(t, "evt-1", event.EventID)
	assert.Equal(t, time.Unix(1772100000, 0).UTC(), event.Timestamp)
	assert.Equal(t, "CUST_000042", event.CustomerID)
	assert.Equal(t, domain.SegmentVIP, event.Segment)
	assert.Equal(t, domain.TouchpointWeb, event.Touchpoint)
	assert.Equal(t, domain.ActionPurchase, event.Action)
	assert.Equal(t, 129.99, event.Value)
}

func TestJSONEventParser_Parse_MalformedJSON(t *testing.T) {
	parser := NewJSONEventParser()

	_, err := parser.Parse([]byte(`{"event_id": "evt-1", invalid}`))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "failed to unmarshal event body")
}

func TestJSONEventParser_Parse_MissingFields(t *testing.T) {
	parser := NewJSONEventParser()

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "missing event_id",
			body: `{"timestamp": 1772100000, "customer_id": "CUST_000001", "segment": "new", "touchpoint": "web", "action": "view"}`,
			want: "missing event_id",
		},
		{
			name: "missing customer_id",
			body: `{"event_id": "evt-1", "timestamp": 1772100000, "segment": "new", "touchpoint": "web", "action": "view"}`,
			want: "missing customer_id",
		},
		{
			name: "invalid timestamp",
			body: `{"event_id": "evt-1", "timestamp": 0, "customer_id": "CUST_000001", "segment": "new", "touchpoint": "web", "action": "view"}`,
			want: "invalid timestamp",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse([]byte(tt.body))
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestJSONEventParser_Parse_UnknownCategories(t *testing.T) {
	parser := NewJSONEventParser()

	tests := []struct {
		name string
		body string
		want string
	}{
		{
			name: "unknown segment",
			body: `{"event_id": "evt-1", "timestamp": 1772100000, "customer_id": "CUST_000001", "segment": "platinum", "touchpoint": "web", "action": "view"}`,
			want: "unknown segment",
		},
		{
			name: "unknown touchpoint",
			body: `{"event_id": "evt-1", "timestamp": 1772100000, "customer_id": "CUST_000001", "segment": "new", "touchpoint": "fax", "action": "view"}`,
			want: "unknown touchpoint",
		},
		{
			name: "unknown action",
			body: `{"event_id": "evt-1", "timestamp": 1772100000, "customer_id": "CUST_000001", "segment": "new", "touchpoint": "web", "action": "hover"}`,
			want: "unknown action",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.Parse([]byte(tt.body))
			assert.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}
