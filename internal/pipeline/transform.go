package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bas-flights/telegram-etl/internal/domain"
	"github.com/bas-flights/telegram-etl/internal/ingest"
)

// TelegramTransformer implements Transformer by running each message payload
// through the ingest service as a telegram batch or center document.
type TelegramTransformer struct {
	ingest *ingest.Service
	logger *slog.Logger
}

// NewTransformer creates a TelegramTransformer.
func NewTransformer(svc *ingest.Service, logger *slog.Logger) *TelegramTransformer {
	return &TelegramTransformer{ingest: svc, logger: logger}
}

func (t *TelegramTransformer) Transform(ctx context.Context, raw domain.RawEvent) ([]domain.EnrichedFlight, error) {
	report, err := t.ingest.IngestText(ctx, raw.Value)
	if err != nil {
		return nil, err
	}
	t.logger.Debug("message ingested",
		"offset", raw.Offset,
		"batch_id", report.BatchID,
		"status", report.Status,
		"flights", report.Processed,
	)
	return report.Flights, nil
}

// Loaders fans a batch out to several sinks in order. The first failure
// stops the fan-out; sinks that already accepted the batch see it again on
// retry, so every sink must be idempotent per flight.
type Loaders []BatchLoader

func (ls Loaders) LoadBatch(ctx context.Context, flights []domain.EnrichedFlight) error {
	for i, l := range ls {
		if err := l.LoadBatch(ctx, flights); err != nil {
			return fmt.Errorf("sink %d: %w", i, err)
		}
	}
	return nil
}
