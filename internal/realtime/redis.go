package realtime

import (
	"context"
	"fmt"

	"shopfront/internal/events"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisPublisher publishes encoded frames on the Redis channel named after
// the topic.
type RedisPublisher struct {
	client *redis.Client
}

// NewRedisPublisher creates a publisher on client.
func NewRedisPublisher(client *redis.Client) *RedisPublisher {
	return &RedisPublisher{client: client}
}

// Publish sends payload to every instance relaying the topic.
func (p *RedisPublisher) Publish(ctx context.Context, topic string, payload interface{}) error {
	frame, err := Encode(topic, payload)
	if err != nil {
		return err
	}
	if err := p.client.Publish(ctx, topic, frame).Err(); err != nil {
		return fmt.Errorf("failed to publish %s to redis: %w", topic, err)
	}
	return nil
}

// NewRedisClient parses url and checks the connection.
func NewRedisClient(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}
	return client, nil
}

// Relay copies every size update published on Redis into hub until ctx is
// cancelled.
func Relay(ctx context.Context, client *redis.Client, hub *Hub, logger *zap.Logger) error {
	pubsub := client.PSubscribe(ctx, events.TopicPrefix+"*")
	defer pubsub.Close()

	// Wait for the subscription to be confirmed before reporting ready.
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("failed to subscribe to size updates: %w", err)
	}
	logger.Info("Relaying size updates from redis", zap.String("pattern", events.TopicPrefix+"*"))

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			hub.Broadcast(msg.Channel, []byte(msg.Payload))
		}
	}
}
