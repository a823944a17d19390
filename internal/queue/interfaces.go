package queue

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/sqs"
)

// Publisher defines the interface for publishing raw payloads to a queue.
// Both the event feed (test tooling) and the dead-letter path use it.
type Publisher interface {
	Publish(ctx context.Context, queueURL string, body []byte, attributes map[string]string) error
}

// Consumer defines the interface for consuming messages from a queue
type Consumer interface {
	ReceiveMessages(ctx context.Context, input *sqs.ReceiveMessageInput) (*sqs.ReceiveMessageOutput, error)
	DeleteMessage(ctx context.Context, input *sqs.DeleteMessageInput) (*sqs.DeleteMessageOutput, error)
	QueueURL() string
}
