// Package ingest turns uploaded telegram text and workbooks into enriched
// flights with a per-batch report.
package ingest

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/bas-flights/telegram-etl/internal/adapter/xlsx"
	"github.com/bas-flights/telegram-etl/internal/domain"
	"github.com/bas-flights/telegram-etl/internal/observability"
)

// Source labels where a batch came from.
type Source string

const (
	SourceTelegrams Source = "telegrams"
	SourceCenter    Source = "center"
	SourceExcel     Source = "excel"
)

// SheetSummary is the outcome of one workbook sheet.
type SheetSummary struct {
	Name      string `json:"name"`
	Layout    string `json:"layout"`
	Processed int    `json:"processed"`
	Skipped   int    `json:"skipped"`
}

// Report describes one ingested batch. Warnings holds at most
// domain.MaxWarnings entries; WarningCount is the full total.
type Report struct {
	BatchID      string                  `json:"batch_id"`
	Source       Source                  `json:"source"`
	Status       domain.BatchStatus      `json:"status"`
	Processed    int                     `json:"processed"`
	Skipped      int                     `json:"skipped"`
	WarningCount int                     `json:"warning_count"`
	Warnings     []domain.ParseWarning   `json:"warnings"`
	Sheets       []SheetSummary          `json:"sheets,omitempty"`
	ProcessedAt  time.Time               `json:"processed_at"`
	Flights      []domain.EnrichedFlight `json:"-"`
}

// Service parses batches and enriches their flights with regions. It holds
// no per-batch state and is safe for concurrent use.
type Service struct {
	lookup  domain.RegionLookup
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewService creates a Service. A nil lookup disables region enrichment.
func NewService(lookup domain.RegionLookup, logger *slog.Logger, metrics *observability.Metrics) *Service {
	return &Service{lookup: lookup, logger: logger, metrics: metrics}
}

// IngestText parses a telegram batch, or a center document when the text
// has that shape. Invalid UTF-8 is the only error.
func (s *Service) IngestText(ctx context.Context, data []byte) (Report, error) {
	source := SourceTelegrams
	parse := domain.ParseTelegramBatch
	if domain.IsCenterDocument(string(data)) {
		source = SourceCenter
		parse = domain.ParseCenterDocument
	}

	res, err := parse(data)
	if err != nil {
		s.fail(source, err)
		return Report{}, fmt.Errorf("parse %s: %w", source, err)
	}
	return s.finish(ctx, source, res, nil), nil
}

// IngestWorkbook reads an .xlsx/.xlsm container and ingests every sheet.
func (s *Service) IngestWorkbook(ctx context.Context, r io.Reader) (Report, error) {
	sheets, err := xlsx.ReadWorkbook(r)
	if err != nil {
		s.fail(SourceExcel, err)
		return Report{}, err
	}
	return s.IngestSheets(ctx, sheets)
}

// IngestSheets walks sheets in parallel and merges their results in sheet
// order, so the report does not depend on scheduling.
func (s *Service) IngestSheets(ctx context.Context, sheets []domain.Sheet) (Report, error) {
	type walked struct {
		layout domain.Layout
		result domain.BatchResult
	}
	results := make([]walked, len(sheets))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i := range sheets {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			layout, res := domain.WalkSheet(sheets[i])
			results[i] = walked{layout: layout, result: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Report{}, err
	}

	var merged domain.BatchResult
	summaries := make([]SheetSummary, len(sheets))
	for i, w := range results {
		s.metrics.Sheets.WithLabelValues(w.layout.String()).Inc()
		s.logger.Debug("sheet walked",
			"sheet", sheets[i].Name,
			"layout", w.layout.String(),
			"processed", w.result.Processed(),
			"skipped", w.result.Skipped,
		)
		summaries[i] = SheetSummary{
			Name:      sheets[i].Name,
			Layout:    w.layout.String(),
			Processed: w.result.Processed(),
			Skipped:   w.result.Skipped,
		}
		merged.Merge(w.result)
	}

	return s.finish(ctx, SourceExcel, merged, summaries), nil
}

func (s *Service) finish(ctx context.Context, source Source, res domain.BatchResult, sheets []SheetSummary) Report {
	report := Report{
		BatchID:      uuid.NewString(),
		Source:       source,
		Status:       res.Status(),
		Processed:    res.Processed(),
		Skipped:      res.Skipped,
		WarningCount: res.WarningCount,
		Warnings:     res.Warnings,
		Sheets:       sheets,
		ProcessedAt:  domain.Now(),
		Flights:      make([]domain.EnrichedFlight, 0, len(res.Records)),
	}
	if report.Warnings == nil {
		report.Warnings = []domain.ParseWarning{}
	}

	for _, rec := range res.Records {
		flight := domain.EnrichWithRegions(ctx, rec, s.lookup, s.logger)
		flight.BatchID = report.BatchID
		report.Flights = append(report.Flights, flight)
	}

	for scope, n := range res.ScopeCounts {
		s.metrics.ParseWarnings.WithLabelValues(string(scope)).Add(float64(n))
	}
	for _, w := range res.Warnings {
		s.logger.Debug("parse warning", "batch_id", report.BatchID, "scope", w.Scope, "message", w.Message)
	}
	s.metrics.Batches.WithLabelValues(string(source), string(report.Status)).Inc()

	s.logger.Info("batch ingested",
		"batch_id", report.BatchID,
		"source", source,
		"status", report.Status,
		"processed", report.Processed,
		"skipped", report.Skipped,
		"warnings", report.WarningCount,
	)
	return report
}

func (s *Service) fail(source Source, err error) {
	s.metrics.Batches.WithLabelValues(string(source), string(domain.StatusFailed)).Inc()
	s.logger.Warn("batch rejected", "source", source, "error", err)
}
