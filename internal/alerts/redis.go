package alerts

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const defaultRedisChannel = "linkup:alerts"

// RedisSender publishes alerts as JSON on a pub/sub channel consumed by the
// on-call tooling.
type RedisSender struct {
	client  *redis.Client
	channel string
}

func NewRedisSender(connectionString, channel string) (*RedisSender, error) {
	opts, err := redis.ParseURL(connectionString)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis connection string: %w", err)
	}
	if channel == "" {
		channel = defaultRedisChannel
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close() //nolint
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return newRedisSender(client, channel), nil
}

func newRedisSender(client *redis.Client, channel string) *RedisSender {
	return &RedisSender{client: client, channel: channel}
}

func (s *RedisSender) Send(ctx context.Context, alert Alert) error {
	payload, err := json.Marshal(alert)
	if err != nil {
		return fmt.Errorf("failed to encode alert: %w", err)
	}
	if err := s.client.Publish(ctx, s.channel, payload).Err(); err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}
	return nil
}

func (s *RedisSender) Close() error {
	return s.client.Close()
}
