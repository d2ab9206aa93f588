package notify

import (
	"context"

	"billflow/internal/amqp"
)

// Publisher is the part of the AMQP client the sink uses.
type Publisher interface {
	PublishNotification(ctx context.Context, msg *amqp.NotificationMessage) error
}

// AMQPSink hands rendered notifications to a message broker.
type AMQPSink struct {
	publisher Publisher
}

func NewAMQPSink(publisher Publisher) *AMQPSink {
	return &AMQPSink{publisher: publisher}
}

func (s *AMQPSink) Send(ctx context.Context, recipient, message string) error {
	return s.publisher.PublishNotification(ctx, amqp.NewNotificationMessage(recipient, message))
}
