package worker

import (
	"context"

	"github.com/askdocs/askdocs/pkg/queue"
)

// QueueSource adapts a queue.Consumer to the worker's Source interface
type QueueSource struct {
	consumer *queue.Consumer
}

// NewQueueSource wraps a queue consumer handle
func NewQueueSource(consumer *queue.Consumer) *QueueSource {
	return &QueueSource{consumer: consumer}
}

// Next implements Source.Next
func (s *QueueSource) Next(ctx context.Context) (Message, error) {
	delivery, err := s.consumer.Next(ctx)
	if err != nil {
		return nil, err
	}
	return &queueMessage{delivery: delivery}, nil
}

type queueMessage struct {
	delivery *queue.Delivery
}

func (m *queueMessage) ID() string   { return m.delivery.MessageID }
func (m *queueMessage) Body() []byte { return m.delivery.Payload }

func (m *queueMessage) Ack(ctx context.Context) error {
	return m.delivery.Ack(ctx)
}

func (m *queueMessage) Nack(ctx context.Context, redeliver bool) error {
	return m.delivery.Nack(ctx, redeliver)
}
