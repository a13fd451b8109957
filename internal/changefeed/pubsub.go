package changefeed

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"cloud.google.com/go/pubsub/v2"
	"github.com/rs/zerolog"
)

// Message attribute keys carried by change notifications.
const (
	AttrTable = "table"
	AttrState = "state"
)

// PubSubConfig holds configuration for the Pub/Sub change source.
type PubSubConfig struct {
	ProjectID        string
	SubscriptionName string
	// TopicName is where Publish sends changes. Optional.
	TopicName string
	Logger    zerolog.Logger
}

// PubSubSource receives change notifications from a Pub/Sub subscription and
// fans them out to local subscribers.
type PubSubSource struct {
	client           *pubsub.Client
	subscriber       *pubsub.Subscriber
	publisher        *pubsub.Publisher
	subscriptionName string
	hub              *Hub
	logger           zerolog.Logger
}

// NewPubSubSource creates a Pub/Sub backed change source.
func NewPubSubSource(ctx context.Context, cfg PubSubConfig) (*PubSubSource, error) {
	client, err := pubsub.NewClient(ctx, cfg.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("creating pubsub client: %w", err)
	}

	subscriber := client.Subscriber(cfg.SubscriptionName)
	subscriber.ReceiveSettings.MaxOutstandingMessages = 100
	subscriber.ReceiveSettings.MaxExtension = time.Minute

	var publisher *pubsub.Publisher
	if cfg.TopicName != "" {
		publisher = client.Publisher(cfg.TopicName)
	}

	return &PubSubSource{
		client:           client,
		subscriber:       subscriber,
		publisher:        publisher,
		subscriptionName: cfg.SubscriptionName,
		hub:              NewHub(),
		logger:           cfg.Logger,
	}, nil
}

// Subscribe registers fn for matching changes.
func (s *PubSubSource) Subscribe(ctx context.Context, table Table, state string, fn Handler) (Unsubscribe, error) {
	return s.hub.Subscribe(ctx, table, state, fn)
}

// Start receives messages until ctx is cancelled.
func (s *PubSubSource) Start(ctx context.Context) error {
	s.logger.Info().
		Str("subscription", s.subscriptionName).
		Msg("starting pubsub change source")

	return s.subscriber.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
		change, err := decodeMessage(msg.Data, msg.Attributes)
		if err != nil {
			s.logger.Warn().Err(err).Str("message_id", msg.ID).Msg("dropping malformed change notification")
			msg.Ack() // redelivery would fail the same way
			return
		}
		if change.At.IsZero() {
			change.At = msg.PublishTime
		}

		delivered := s.hub.dispatch(change)
		s.logger.Debug().
			Str("message_id", msg.ID).
			Str("table", string(change.Table)).
			Str("state", change.State).
			Int("subscribers", delivered).
			Msg("change notification delivered")
		msg.Ack()
	})
}

// Publish sends change to the configured topic.
func (s *PubSubSource) Publish(ctx context.Context, change Change) error {
	if s.publisher == nil {
		return fmt.Errorf("pubsub publish: no topic configured")
	}
	data, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("encoding change: %w", err)
	}
	result := s.publisher.Publish(ctx, &pubsub.Message{
		Data: data,
		Attributes: map[string]string{
			AttrTable: string(change.Table),
			AttrState: change.State,
		},
	})
	if _, err := result.Get(ctx); err != nil {
		return fmt.Errorf("publishing change: %w", err)
	}
	return nil
}

// Close stops publishing, drops subscribers and closes the client.
func (s *PubSubSource) Close() error {
	if s.publisher != nil {
		s.publisher.Stop()
	}
	_ = s.hub.Close() //nolint:errcheck // hub close never fails
	return s.client.Close()
}

// decodeMessage builds a Change from a message body, falling back to
// attributes for producers that send an empty body.
func decodeMessage(data []byte, attrs map[string]string) (Change, error) {
	var change Change
	if len(data) > 0 {
		if err := json.Unmarshal(data, &change); err != nil {
			return Change{}, fmt.Errorf("decoding change: %w", err)
		}
	}
	if change.Table == "" {
		change.Table = Table(attrs[AttrTable])
	}
	if change.State == "" {
		change.State = attrs[AttrState]
	}
	if change.Table == "" {
		return Change{}, fmt.Errorf("change notification without table")
	}
	return change, nil
}
