package sink

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/segmentio/kafka-go"

	"aircal/internal/logger"
	"aircal/internal/metrics"
	"aircal/internal/models"
)

// Kafka sink errors
var (
	ErrSinkClosed      = errors.New("kafka sink is closed")
	ErrSerializeFailed = errors.New("failed to serialize interval event")
)

// KafkaSink publishes one JSON message per emitted interval, keyed by
// calendar name so all intervals of one calendar land on one partition in
// order. Writes are synchronous; the writer retries delivery internally up
// to its attempt bound.
type KafkaSink struct {
	writer *kafka.Writer
	closed atomic.Bool

	messagesSent   atomic.Uint64
	messagesFailed atomic.Uint64
}

// NewKafkaSink creates a sink for the given brokers and topic.
func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	if len(brokers) == 0 {
		return nil, errors.New("at least one broker is required")
	}
	if topic == "" {
		return nil, errors.New("topic is required")
	}

	return &KafkaSink{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.Hash{}, // Partition by key
			RequiredAcks: kafka.RequireAll,
			MaxAttempts:  3,
			WriteTimeout: 10 * time.Second,
			Async:        false, // Sync for reliability
		},
	}, nil
}

// Name implements Sink.
func (s *KafkaSink) Name() string { return "kafka" }

// Publish writes the whole interval stream as one batch.
func (s *KafkaSink) Publish(ctx context.Context, calendar string, intervals []models.Interval) error {
	if s.closed.Load() {
		return ErrSinkClosed
	}
	if len(intervals) == 0 {
		return nil
	}

	log := logger.WithComponent("kafka_sink")
	start := time.Now()

	messages := make([]kafka.Message, 0, len(intervals))
	for _, iv := range intervals {
		event := models.NewIntervalEvent(calendar, iv)
		data, err := json.Marshal(event)
		if err != nil {
			s.messagesFailed.Add(1)
			return fmt.Errorf("%w: %v", ErrSerializeFailed, err)
		}
		messages = append(messages, kafka.Message{
			Key:   []byte(calendar),
			Value: data,
			Headers: []kafka.Header{
				{Key: "calendar", Value: []byte(calendar)},
				{Key: "title", Value: []byte(iv.Label.Title)},
			},
			Time: event.EmittedAt,
		})
	}

	err := s.writer.WriteMessages(ctx, messages...)
	duration := time.Since(start)

	if err != nil {
		s.messagesFailed.Add(uint64(len(messages)))
		metrics.SinkPublishTotal.WithLabelValues(s.Name(), "failed").Inc()
		log.Error().
			Err(err).
			Str("calendar", calendar).
			Int("batch_size", len(messages)).
			Dur("duration", duration).
			Msg("failed to publish intervals")
		return fmt.Errorf("publish %d intervals for %q: %w", len(messages), calendar, err)
	}

	s.messagesSent.Add(uint64(len(messages)))
	metrics.SinkPublishTotal.WithLabelValues(s.Name(), "success").Inc()
	log.Info().
		Str("calendar", calendar).
		Int("batch_size", len(messages)).
		Dur("duration", duration).
		Msg("intervals published")
	return nil
}

// Close closes the underlying writer.
func (s *KafkaSink) Close() error {
	if s.closed.Swap(true) {
		return nil // Already closed
	}
	if err := s.writer.Close(); err != nil {
		return fmt.Errorf("close kafka writer: %w", err)
	}
	return nil
}

// Stats returns delivery counters.
func (s *KafkaSink) Stats() KafkaStats {
	return KafkaStats{
		MessagesSent:   s.messagesSent.Load(),
		MessagesFailed: s.messagesFailed.Load(),
	}
}

// KafkaStats holds sink delivery counters.
type KafkaStats struct {
	MessagesSent   uint64
	MessagesFailed uint64
}
