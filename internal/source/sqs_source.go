package source

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awssqs "github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"go.uber.org/zap"

	"github.com/BarkinBalci/interaction-insights-service/internal/domain"
	"github.com/BarkinBalci/interaction-insights-service/internal/queue"
)

// SQSSourceConfig configures the SQS-backed event source
type SQSSourceConfig struct {
	MaxMessages     int32
	WaitTimeSeconds int32
}

// SQSSource implements EventSource over an SQS queue. Messages are acked
// once parsed; malformed messages are deleted so they do not cycle forever.
type SQSSource struct {
	consumer queue.Consumer
	parser   *JSONEventParser
	cfg      SQSSourceConfig
	pending  []types.Message
	log      *zap.Logger
}

// NewSQSSource creates an SQS-backed event source
func NewSQSSource(consumer queue.Consumer, cfg SQSSourceConfig, log *zap.Logger) *SQSSource {
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 10
	}
	if cfg.WaitTimeSeconds <= 0 {
		cfg.WaitTimeSeconds = 20
	}

	return &SQSSource{
		consumer: consumer,
		parser:   NewJSONEventParser(),
		cfg:      cfg,
		log:      log,
	}
}

// Next returns the next event from the queue, long-polling when the local
// buffer is empty. Receive failures surface as domain.ErrSourceUnavailable.
func (s *SQSSource) Next(ctx context.Context) (*domain.InteractionEvent, error) {
	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		if len(s.pending) == 0 {
			if err := s.receive(ctx); err != nil {
				return nil, err
			}
			continue
		}

		msg := s.pending[0]
		s.pending = s.pending[1:]

		event, err := s.parser.Parse([]byte(aws.ToString(msg.Body)))
		if err != nil {
			s.log.Warn("Dropping malformed message",
				zap.String("message_id", aws.ToString(msg.MessageId)),
				zap.Error(err))
			s.deleteMessage(ctx, msg)
			continue
		}

		s.deleteMessage(ctx, msg)
		return event, nil
	}
}

func (s *SQSSource) receive(ctx context.Context) error {
	result, err := s.consumer.ReceiveMessages(ctx, &awssqs.ReceiveMessageInput{
		QueueUrl:              aws.String(s.consumer.QueueURL()),
		MaxNumberOfMessages:   s.cfg.MaxMessages,
		WaitTimeSeconds:       s.cfg.WaitTimeSeconds,
		MessageAttributeNames: []string{"All"},
	})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("receive messages: %v: %w", err, domain.ErrSourceUnavailable)
	}

	s.pending = append(s.pending, result.Messages...)
	return nil
}

func (s *SQSSource) deleteMessage(ctx context.Context, msg types.Message) {
	_, err := s.consumer.DeleteMessage(ctx, &awssqs.DeleteMessageInput{
		QueueUrl:      aws.String(s.consumer.QueueURL()),
		ReceiptHandle: msg.ReceiptHandle,
	})
	if err != nil {
		s.log.Error("Failed to delete message",
			zap.String("message_id", aws.ToString(msg.MessageId)),
			zap.Error(err))
	}
}
