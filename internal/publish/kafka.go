// Package publish forwards assessment snapshots to downstream systems.
package publish

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"

	"github.com/floodwatch/floodwatch/internal/report"
	"github.com/floodwatch/floodwatch/internal/snapshot"
)

// Message header keys.
const (
	HeaderClassification = "risk_classification"
	HeaderVersion        = "report_version"
	HeaderGeneratedAt    = "generated_at"
	HeaderSynthetic      = "synthetic"
)

// KafkaConfig holds configuration for the Kafka snapshot sink.
type KafkaConfig struct {
	Brokers []string
	Topic   string
	Clock   clockwork.Clock
	Logger  zerolog.Logger
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// KafkaSink writes each snapshot as a situation report, keyed by state so
// one state's reports stay ordered on a partition.
type KafkaSink struct {
	writer messageWriter
	clock  clockwork.Clock
	logger zerolog.Logger
}

// NewKafkaSink creates a Kafka producer for the configured topic.
func NewKafkaSink(cfg KafkaConfig) *KafkaSink {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.Brokers...),
		Topic:        cfg.Topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return newKafkaSink(w, cfg.Clock, cfg.Logger)
}

func newKafkaSink(w messageWriter, clock clockwork.Clock, logger zerolog.Logger) *KafkaSink {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &KafkaSink{writer: w, clock: clock, logger: logger}
}

// Write publishes snapshots in a single WriteMessages call.
func (k *KafkaSink) Write(ctx context.Context, snapshots []*snapshot.Snapshot) error {
	if len(snapshots) == 0 {
		return nil
	}
	now := k.clock.Now()
	msgs := make([]kafkago.Message, 0, len(snapshots))
	for _, s := range snapshots {
		msg, err := serializeToMessage(report.Build(s, now))
		if err != nil {
			return err
		}
		msgs = append(msgs, msg)
	}
	if err := k.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write snapshots: %w", err)
	}
	k.logger.Debug().Int("messages", len(msgs)).Msg("snapshots written to kafka")
	return nil
}

// Close flushes and closes the producer.
func (k *KafkaSink) Close() error {
	return k.writer.Close()
}

// serializeToMessage marshals a report into a Kafka message.
func serializeToMessage(r *report.Report) (kafkago.Message, error) {
	data, err := report.Marshal(r)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize report: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(r.Region.State),
		Value: data,
		Headers: []kafkago.Header{
			{Key: HeaderClassification, Value: []byte(r.RiskClassification)},
			{Key: HeaderVersion, Value: []byte(r.Version)},
			{Key: HeaderGeneratedAt, Value: []byte(r.GeneratedAt.Format(time.RFC3339))},
			{Key: HeaderSynthetic, Value: []byte(strconv.FormatBool(r.Synthetic))},
		},
	}, nil
}
