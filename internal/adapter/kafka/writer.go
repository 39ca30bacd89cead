package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"github.com/bas-flights/telegram-etl/internal/config"
	"github.com/bas-flights/telegram-etl/internal/domain"
)

// Writer publishes assembled flights to the sink topic.
// It implements pipeline.BatchLoader.
type Writer struct {
	writer *kafkago.Writer
	logger *slog.Logger
}

// NewWriter creates a Kafka producer for the configured sink topic.
func NewWriter(cfg *config.Config, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(cfg.KafkaBrokers...),
		Topic:        cfg.KafkaSinkTopic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, logger: logger}
}

// LoadBatch publishes flights in a single WriteMessages call. Flights with a
// SID are keyed by it so every update of one flight lands on one partition.
func (w *Writer) LoadBatch(ctx context.Context, flights []domain.EnrichedFlight) error {
	if len(flights) == 0 {
		return nil
	}
	msgs := make([]kafkago.Message, len(flights))
	for i := range flights {
		msg, err := serializeToMessage(flights[i], i)
		if err != nil {
			return err
		}
		msgs[i] = msg
	}
	if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("publish flights: %w", err)
	}
	w.logger.Debug("flights published", "count", len(msgs), "topic", w.writer.Topic)
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a flight into a Kafka message. Flights without
// a SID are keyed by batch id and position.
func serializeToMessage(flight domain.EnrichedFlight, index int) (kafkago.Message, error) {
	data, err := json.Marshal(flight)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize flight: %w", err)
	}

	key := flight.SID
	if key == "" {
		key = flight.BatchID + "-" + strconv.Itoa(index)
	}

	return kafkago.Message{
		Key:   []byte(key),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "batch_id", Value: []byte(flight.BatchID)},
			{Key: "status", Value: []byte(flight.Status())},
			{Key: "processed_at", Value: []byte(flight.ProcessedAt.Format(time.RFC3339))},
		},
	}, nil
}
