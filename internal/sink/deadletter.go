package sink

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
	"github.com/BarkinBalci/interaction-insights-service/internal/queue"
)

// deadLetterMessage is the JSON shape dead-lettered insights are published in
type deadLetterMessage struct {
	InsightID      string                `json:"insight_id"`
	Reason         string                `json:"reason"`
	DeadLetteredAt time.Time             `json:"dead_lettered_at"`
	Record         *domain.InsightRecord `json:"record"`
}

// SQSDeadLetter publishes undeliverable insight records to a dead-letter
// queue
type SQSDeadLetter struct {
	publisher queue.Publisher
	queueURL  string
	log       *zap.Logger
}

// NewSQSDeadLetter creates an SQS-backed dead-letter path
func NewSQSDeadLetter(publisher queue.Publisher, queueURL string, log *zap.Logger) *SQSDeadLetter {
	return &SQSDeadLetter{
		publisher: publisher,
		queueURL:  queueURL,
		log:       log,
	}
}

// Record publishes the failed record with its failure reason
func (d *SQSDeadLetter) Record(ctx context.Context, record *domain.InsightRecord, reason string) error {
	body, err := json.Marshal(deadLetterMessage{
		InsightID:      record.ID,
		Reason:         reason,
		DeadLetteredAt: time.Now(),
		Record:         record,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal dead letter: %w", err)
	}

	err = d.publisher.Publish(ctx, d.queueURL, body, map[string]string{
		"Segment": string(record.Segment),
		"Reason":  reason,
	})
	if err != nil {
		return fmt.Errorf("failed to publish dead letter: %w", err)
	}

	return nil
}

// LogDeadLetter records undeliverable insights in the log only. It backs
// deployments without a dead-letter queue configured.
type LogDeadLetter struct {
	log *zap.Logger
}

// NewLogDeadLetter creates a log-only dead-letter path
func NewLogDeadLetter(log *zap.Logger) *LogDeadLetter {
	return &LogDeadLetter{log: log}
}

// Record logs the failed record with its failure reason
func (d *LogDeadLetter) Record(_ context.Context, record *domain.InsightRecord, reason string) error {
	d.log.Warn("Dead-lettered insight record",
		zap.String("insight_id", record.ID),
		zap.String("segment", string(record.Segment)),
		zap.String("touchpoint", string(record.Touchpoint)),
		zap.String("reason", reason))
	return nil
}
