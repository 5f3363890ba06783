package progress

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisBroker publishes and subscribes over Redis pub/sub. One broker is
// shared by the whole process; each Subscribe opens its own connection.
type RedisBroker struct {
	client *redis.Client
	logger *slog.Logger
}

func NewRedisBroker(redisURL string, logger *slog.Logger) (*RedisBroker, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return &RedisBroker{client: redis.NewClient(opts), logger: logger}, nil
}

// Ping verifies the connection. Called at startup so a bad REDIS_URL
// fails fast instead of at first publish.
func (b *RedisBroker) Ping(ctx context.Context) error {
	if err := b.client.Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping: %w", err)
	}
	return nil
}

func (b *RedisBroker) Close() error {
	return b.client.Close()
}

func (b *RedisBroker) Publish(ctx context.Context, jobID string, msg Message) error {
	payload, err := msg.Encode()
	if err != nil {
		return err
	}
	if err := b.client.Publish(ctx, ChannelName(jobID), payload).Err(); err != nil {
		return fmt.Errorf("publish to %s: %w", ChannelName(jobID), err)
	}
	return nil
}

func (b *RedisBroker) Subscribe(ctx context.Context, jobID string) (Subscription, error) {
	pubsub := b.client.Subscribe(ctx, ChannelName(jobID))
	// Wait for the subscription to be confirmed so publishes racing the
	// subscriber are not silently dropped by the server.
	if _, err := pubsub.Receive(ctx); err != nil {
		pubsub.Close()
		return nil, fmt.Errorf("subscribe to %s: %w", ChannelName(jobID), err)
	}
	return &redisSubscription{pubsub: pubsub}, nil
}

type redisSubscription struct {
	pubsub *redis.PubSub
}

func (s *redisSubscription) Receive(ctx context.Context, timeout time.Duration) (string, bool, error) {
	raw, err := s.pubsub.ReceiveTimeout(ctx, timeout)
	if err != nil {
		var netErr net.Error
		if errors.As(err, &netErr) && netErr.Timeout() {
			return "", false, nil
		}
		return "", false, err
	}
	switch m := raw.(type) {
	case *redis.Message:
		return m.Payload, true, nil
	default:
		// Subscription confirmations and pongs are not payloads.
		return "", false, nil
	}
}

func (s *redisSubscription) Close() error {
	return s.pubsub.Close()
}
