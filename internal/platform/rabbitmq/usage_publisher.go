package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"gopherai-chat/internal/model"
)

type UsagePublisher struct {
	conn      *amqp.Connection
	queueName string
}

func NewUsagePublisher(conn *amqp.Connection, queueName string) *UsagePublisher {
	return &UsagePublisher{
		conn:      conn,
		queueName: queueName,
	}
}

func (p *UsagePublisher) PublishUsage(ctx context.Context, usage model.TokenUsage) error {
	ch, err := p.conn.Channel()
	if err != nil {
		return fmt.Errorf("open rabbitmq channel failed: %w", err)
	}
	defer ch.Close()

	if _, err := DeclareQueue(ch, p.queueName); err != nil {
		return err
	}

	payload, err := json.Marshal(usage)
	if err != nil {
		return fmt.Errorf("marshal usage payload failed: %w", err)
	}

	if err := ch.PublishWithContext(
		ctx,
		"",
		p.queueName,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         payload,
			DeliveryMode: amqp.Persistent,
		},
	); err != nil {
		return fmt.Errorf("publish usage failed: %w", err)
	}
	return nil
}

// DeclareQueue declares the durable queue shared by publisher and worker.
func DeclareQueue(ch *amqp.Channel, name string) (amqp.Queue, error) {
	q, err := ch.QueueDeclare(
		name,
		true,
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return amqp.Queue{}, fmt.Errorf("declare queue failed: %w", err)
	}
	return q, nil
}
