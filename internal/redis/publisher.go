package redis

import (
	"context"
	"encoding/json"

	"github.com/redis/go-redis/v9"

	"louage/internal/domain"
)

const notificationChannelPrefix = "notifications:"

// NotificationPublisher pushes notifications to per-user Redis pub/sub channels.
type NotificationPublisher struct {
	client *redis.Client
}

// NewNotificationPublisher creates a new NotificationPublisher.
func NewNotificationPublisher(client *redis.Client) *NotificationPublisher {
	return &NotificationPublisher{client: client}
}

// Push publishes n on channel notifications:<userID>.
func (p *NotificationPublisher) Push(ctx context.Context, n domain.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return err
	}
	return p.client.Publish(ctx, NotificationChannel(n.UserID), data).Err()
}

// NotificationChannel returns the pub/sub channel name of a user.
func NotificationChannel(userID string) string {
	return notificationChannelPrefix + userID
}
