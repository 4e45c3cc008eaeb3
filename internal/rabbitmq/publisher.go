// Package rabbitmq delivers notifications to an AMQP topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"louage/internal/domain"
)

// NotificationPublisher publishes notifications with routing key
// notification.<type>.<userID>.
type NotificationPublisher struct {
	mu       sync.Mutex // amqp channels are not safe for concurrent publishing
	ch       *amqp.Channel
	exchange string
}

// NewNotificationPublisher declares the exchange and returns a publisher on it.
func NewNotificationPublisher(conn *amqp.Connection, exchange string) (*NotificationPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("channel: %w", err)
	}

	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &NotificationPublisher{ch: ch, exchange: exchange}, nil
}

// Push publishes n to the exchange.
func (p *NotificationPublisher) Push(ctx context.Context, n domain.Notification) error {
	body, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.ch.PublishWithContext(ctx,
		p.exchange,
		RoutingKey(n),
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			MessageId:    n.ID,
			Timestamp:    n.CreatedAt,
			Body:         body,
		},
	); err != nil {
		return fmt.Errorf("publish: %w", err)
	}

	return nil
}

// Close closes the underlying channel.
func (p *NotificationPublisher) Close() error {
	return p.ch.Close()
}

// RoutingKey returns the topic routing key for a notification.
func RoutingKey(n domain.Notification) string {
	return fmt.Sprintf("notification.%s.%s", n.Type, n.UserID)
}
