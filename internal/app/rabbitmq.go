package app

import (
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"

	"louage/internal/config"
)

// NewRabbitMQConnection dials the broker used for notification pushes.
func NewRabbitMQConnection(cfg config.RabbitMQConfig) (*amqp.Connection, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}
	return conn, nil
}
