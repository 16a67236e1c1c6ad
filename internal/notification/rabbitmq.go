package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher is the subset of *amqp.Channel used by RabbitMQSink.
type Publisher interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
}

// Message is the JSON body published for each notification. The realtime
// transport consumes the queue and pushes to connected clients.
type Message struct {
	UserID  string    `json:"user_id"`
	Title   string    `json:"title"`
	Message string    `json:"message"`
	Type    string    `json:"type"`
	SentAt  time.Time `json:"sent_at"`
}

type RabbitMQSink struct {
	ch    Publisher
	queue string
	now   func() time.Time
}

// NewRabbitMQSink opens a channel on conn and declares the durable queue.
func NewRabbitMQSink(conn *amqp.Connection, queue string) (*RabbitMQSink, *amqp.Channel, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,   // args
	)
	if err != nil {
		_ = ch.Close()
		return nil, nil, fmt.Errorf("declare queue %s: %w", queue, err)
	}

	return NewPublisherSink(ch, queue), ch, nil
}

func NewPublisherSink(ch Publisher, queue string) *RabbitMQSink {
	return &RabbitMQSink{ch: ch, queue: queue, now: time.Now}
}

func (s *RabbitMQSink) NotifyUser(ctx context.Context, userID, title, message, eventType string) error {
	body, err := json.Marshal(Message{
		UserID:  userID,
		Title:   title,
		Message: message,
		Type:    eventType,
		SentAt:  s.now().UTC(),
	})
	if err != nil {
		return err
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		Headers: amqp.Table{
			"event_type": eventType,
		},
	}

	if err := s.ch.PublishWithContext(ctx, "", s.queue, false, false, msg); err != nil {
		return fmt.Errorf("failed to publish notification: %w", err)
	}
	return nil
}
