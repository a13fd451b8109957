package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/rs/zerolog"
)

// ChannelPrefix namespaces change channels in Redis.
const ChannelPrefix = "floodwatch"

// ChannelFor returns the Redis channel for a table and state.
func ChannelFor(table Table, state string) string {
	return fmt.Sprintf("%s:%s:%s", ChannelPrefix, table, state)
}

// RedisSource delivers change notifications over Redis pub/sub. Each
// subscription owns its own Redis subscription.
type RedisSource struct {
	client *redis.Client
	logger zerolog.Logger
}

// NewRedisSource creates a change source on an existing Redis client.
func NewRedisSource(client *redis.Client, logger zerolog.Logger) *RedisSource {
	return &RedisSource{client: client, logger: logger}
}

// Subscribe listens on the table/state channel (pattern for AllStates).
func (s *RedisSource) Subscribe(ctx context.Context, table Table, state string, fn Handler) (Unsubscribe, error) {
	var ps *redis.PubSub
	if state == AllStates {
		ps = s.client.PSubscribe(ctx, ChannelFor(table, "*"))
	} else {
		ps = s.client.Subscribe(ctx, ChannelFor(table, state))
	}
	// Wait for the confirmation so a failed subscription is reported now.
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribing to %s: %w", table, err)
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		for msg := range ps.Channel() {
			var change Change
			if err := json.Unmarshal([]byte(msg.Payload), &change); err != nil {
				s.logger.Warn().Err(err).Str("channel", msg.Channel).Msg("dropping malformed change notification")
				continue
			}
			if !matches(table, state, change) {
				continue
			}
			fn(change)
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			if err := ps.Close(); err != nil {
				s.logger.Warn().Err(err).Str("table", string(table)).Msg("closing redis subscription")
			}
			<-done
		})
	}, nil
}

// Publish sends change on its table/state channel.
func (s *RedisSource) Publish(ctx context.Context, change Change) error {
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encoding change: %w", err)
	}
	if err := s.client.Publish(ctx, ChannelFor(change.Table, change.State), data).Err(); err != nil {
		return fmt.Errorf("publishing change: %w", err)
	}
	return nil
}
