package clickhouse

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
	"github.com/BarkinBalci/interaction-insights-service/internal/sink"
)

// Repository implements sink.InsightRepository for ClickHouse
type Repository struct {
	client *Client
	log    *zap.Logger
}

// NewRepository creates a new ClickHouse insight repository
func NewRepository(client *Client, log *zap.Logger) *Repository {
	return &Repository{
		client: client,
		log:    log,
	}
}

// InitSchema initializes the ClickHouse schema. ReplacingMergeTree keyed on
// the deterministic insight ID gives the sink idempotence under at-least-once
// delivery.
func (r *Repository) InitSchema(ctx context.Context) error {
	query := `
	CREATE TABLE IF NOT EXISTS insights (
		insight_id String,
		generated_at DateTime64(3),
		window_start DateTime64(3),
		window_end DateTime64(3),
		segment LowCardinality(String),
		touchpoint LowCardinality(String),
		correlated_signals String,
		metric_deltas String,
		narrative_tags Array(String),
		degraded UInt8,
		version UInt64
	) ENGINE = ReplacingMergeTree(version)
	PRIMARY KEY (insight_id)
	ORDER BY (insight_id, generated_at)
	PARTITION BY toYYYYMM(generated_at)
	SETTINGS index_granularity = 8192
	`

	if err := r.client.Conn().Exec(ctx, query); err != nil {
		return fmt.Errorf("failed to create insights table: %w", err)
	}

	r.log.Info("ClickHouse schema initialized successfully")
	return nil
}

// Write persists a single insight record
func (r *Repository) Write(ctx context.Context, record *domain.InsightRecord) error {
	signalsJSON, err := json.Marshal(record.CorrelatedSignals)
	if err != nil {
		return fmt.Errorf("failed to marshal correlated signals: %w", err)
	}
	deltasJSON, err := json.Marshal(record.MetricDeltas)
	if err != nil {
		return fmt.Errorf("failed to marshal metric deltas: %w", err)
	}

	tags := record.NarrativeTags
	if tags == nil {
		tags = []string{}
	}

	degraded := uint8(0)
	if record.Degraded {
		degraded = 1
	}

	batch, err := r.client.Conn().PrepareBatch(ctx, "INSERT INTO insights")
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}

	err = batch.Append(
		record.ID,
		record.GeneratedAt,
		record.WindowStart,
		record.WindowEnd,
		string(record.Segment),
		string(record.Touchpoint),
		string(signalsJSON),
		string(deltasJSON),
		tags,
		degraded,
		uint64(time.Now().UnixNano()),
	)
	if err != nil {
		return fmt.Errorf("failed to append insight: %w", err)
	}

	if err := batch.Send(); err != nil {
		return fmt.Errorf("failed to insert insight: %w", err)
	}

	return nil
}

// RecentInsights retrieves insight records matching the query, newest first
func (r *Repository) RecentInsights(ctx context.Context, query sink.InsightQuery) ([]domain.InsightRecord, error) {
	whereClause := "WHERE generated_at >= ? AND generated_at <= ?"
	args := []interface{}{query.From, query.To}

	if query.Segment != "" {
		whereClause += " AND segment = ?"
		args = append(args, query.Segment)
	}

	limit := query.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	selectQuery := fmt.Sprintf(`
		SELECT
			insight_id,
			generated_at,
			window_start,
			window_end,
			segment,
			touchpoint,
			correlated_signals,
			metric_deltas,
			narrative_tags,
			degraded
		FROM insights FINAL
		%s
		ORDER BY generated_at DESC
		LIMIT ?
	`, whereClause)

	rows, err := r.client.Conn().Query(ctx, selectQuery, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query insights: %w", err)
	}
	defer func(rows driver.Rows) {
		if err := rows.Close(); err != nil {
			r.log.Error("Failed to close insight rows", zap.Error(err))
		}
	}(rows)

	var records []domain.InsightRecord
	for rows.Next() {
		var (
			record      domain.InsightRecord
			segment     string
			touchpoint  string
			signalsJSON string
			deltasJSON  string
			degraded    uint8
		)

		err := rows.Scan(
			&record.ID,
			&record.GeneratedAt,
			&record.WindowStart,
			&record.WindowEnd,
			&segment,
			&touchpoint,
			&signalsJSON,
			&deltasJSON,
			&record.NarrativeTags,
			&degraded,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan insight row: %w", err)
		}

		record.Segment = domain.Segment(segment)
		record.Touchpoint = domain.Touchpoint(touchpoint)
		record.Degraded = degraded != 0

		if err := json.Unmarshal([]byte(signalsJSON), &record.CorrelatedSignals); err != nil {
			return nil, fmt.Errorf("failed to unmarshal correlated signals: %w", err)
		}
		if err := json.Unmarshal([]byte(deltasJSON), &record.MetricDeltas); err != nil {
			return nil, fmt.Errorf("failed to unmarshal metric deltas: %w", err)
		}

		records = append(records, record)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating insight rows: %w", err)
	}

	return records, nil
}

// Ping checks if the ClickHouse connection is alive
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Conn().Ping(ctx)
}

// Close closes the ClickHouse connection
func (r *Repository) Close() error {
	return r.client.Close()
}
