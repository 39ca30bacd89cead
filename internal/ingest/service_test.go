package ingest

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/bas-flights/telegram-etl/internal/adapter/regions"
	"github.com/bas-flights/telegram-etl/internal/adapter/xlsx"
	"github.com/bas-flights/telegram-etl/internal/domain"
	"github.com/bas-flights/telegram-etl/internal/observability"
)

const (
	shrText = `(SHR-ZZZZZ
-ZZZZ0705
-M0025/M0027 /ZONA R0,5 4408N04308E/
-ZZZZ0900
-DEP/5957N02905E DEST/440846N0430829E DOF/250201 OPR/ООО АЭРОСКАН +7 (921) 555-12-34
REG/0J02194 TYP/BLA RMK/МР10 SID/7772251137)`

	depText = `-TITLE IDEP
-SID 7772251137
-ADD 250201
-ATD 0705
-ADEP ZZZZ
-ADEPZ 5957N02905E
-PAP 0
-REG 0J02194`

	arrText = `-TITLE IARR
-SID 7772251137
-ADA 250201
-ATA 1600
-ADARR ZZZZ
-ADARRZ 440846N0430829E
-PAP 0
-REG 0J02194`
)

var testNow = time.Date(2025, 2, 2, 8, 0, 0, 0, time.UTC)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestService(t *testing.T) (*Service, *observability.Metrics) {
	t.Helper()
	domain.SetClock(clockwork.NewFakeClockAt(testNow))
	t.Cleanup(func() { domain.SetClock(nil) })

	metrics := observability.NewMetricsForTesting()
	return NewService(regions.NewBoundingBoxLookup(nil), discardLogger(), metrics), metrics
}

func TestIngestText_Telegrams(t *testing.T) {
	svc, metrics := newTestService(t)

	report, err := svc.IngestText(context.Background(), []byte(shrText+"\n"+depText+"\n\n"+arrText))
	require.NoError(t, err)

	assert.Equal(t, SourceTelegrams, report.Source)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, testNow, report.ProcessedAt)
	_, err = uuid.Parse(report.BatchID)
	assert.NoError(t, err, "batch id is a uuid")

	require.Len(t, report.Flights, 1)
	flight := report.Flights[0]
	assert.Equal(t, "7772251137", flight.SID)
	assert.Equal(t, report.BatchID, flight.BatchID)
	assert.Equal(t, "Ленинградская область", flight.DepartureRegion)
	assert.Equal(t, domain.RegionUndetermined, flight.ArrivalRegion)
	assert.Equal(t, 535, *flight.DurationMinutes)
	assert.Equal(t, testNow, flight.ProcessedAt)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Batches.WithLabelValues("telegrams", string(report.Status))), 0)
}

func TestIngestText_CenterDocument(t *testing.T) {
	svc, metrics := newTestService(t)

	doc := "Ростовский ЗЦ ЕС ОрВД\n1\tSID/1 OPR/A DEP/4700N04000E\t\t\n2\tonly"
	report, err := svc.IngestText(context.Background(), []byte(doc))
	require.NoError(t, err)

	assert.Equal(t, SourceCenter, report.Source)
	assert.Equal(t, domain.StatusPartial, report.Status)
	assert.Equal(t, 1, report.Processed)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Warnings, 1)
	assert.Equal(t, domain.ScopeRow, report.Warnings[0].Scope)

	require.Len(t, report.Flights, 1)
	assert.Equal(t, "Ростовский ЗЦ ЕС ОрВД", report.Flights[0].CenterName)
	assert.Equal(t, "Ростовская область", report.Flights[0].DepartureRegion)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ParseWarnings.WithLabelValues("row")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Batches.WithLabelValues("center", "partial")), 0)
}

func TestIngestText_Undecodable(t *testing.T) {
	svc, metrics := newTestService(t)

	_, err := svc.IngestText(context.Background(), []byte{0xff, 0xfe})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUndecodableText)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Batches.WithLabelValues("telegrams", "failed")), 0)
}

func TestIngestText_NothingRecognized(t *testing.T) {
	svc, _ := newTestService(t)

	report, err := svc.IngestText(context.Background(), []byte("hello\n\nworld"))
	require.NoError(t, err)

	assert.Equal(t, domain.StatusFailed, report.Status)
	assert.Zero(t, report.Processed)
	assert.Equal(t, 2, report.Skipped)
	assert.NotNil(t, report.Flights)
}

func workbook(t *testing.T) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()

	setRows := func(sheet string, rows [][]any) {
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet, cell, &row))
		}
	}

	require.NoError(t, f.SetSheetName("Sheet1", "Ростовская область"))
	setRows("Ростовская область", [][]any{
		{"Дата полёта", "SHR", "DEP", "ARR"},
		{1, 2, 3, 4},
		{45323, shrText, depText, arrText},
		{"31.13.2024", "DEP/5957N02905E OPR/Bad"},
		{"02.02.2024", "DEP/4700N04000E OPR/Good"},
	})

	_, err := f.NewSheet("Реестр")
	require.NoError(t, err)
	setRows("Реестр", [][]any{
		{"Дата", "Рейс", "Борт", "Т выл.факт", "Т пос.факт"},
		{"01.03.2024", "RA1", "RF-1", "09:00", "10:30"},
		{"", "RA2", "RF-2"},
	})

	buf, err := f.WriteToBuffer()
	require.NoError(t, err)
	return buf
}

func TestIngestWorkbook(t *testing.T) {
	svc, metrics := newTestService(t)

	report, err := svc.IngestWorkbook(context.Background(), workbook(t))
	require.NoError(t, err)

	assert.Equal(t, SourceExcel, report.Source)
	assert.Equal(t, []SheetSummary{
		{Name: "Ростовская область", Layout: "telegram", Processed: 2, Skipped: 1},
		{Name: "Реестр", Layout: "standard", Processed: 1, Skipped: 1},
	}, report.Sheets)
	assert.Equal(t, 3, report.Processed)
	assert.Equal(t, 2, report.Skipped)
	assert.Equal(t, domain.StatusPartial, report.Status)

	require.Len(t, report.Warnings, 2)
	assert.Equal(t, domain.ScopeRow, report.Warnings[0].Scope)
	assert.Contains(t, report.Warnings[0].Message, "31.13.2024")

	require.Len(t, report.Flights, 3)
	assert.Equal(t, "7772251137", report.Flights[0].SID)
	assert.Equal(t, "Ростовская область", report.Flights[0].Region)
	assert.Equal(t, "Good", report.Flights[1].Operator, "rows after the malformed date survive")
	assert.Equal(t, "Ростовская область", report.Flights[1].Region)
	assert.Equal(t, "RA1", report.Flights[2].SID)
	assert.Empty(t, report.Flights[2].Region)
	assert.Equal(t, 90, *report.Flights[2].DurationMinutes)

	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Sheets.WithLabelValues("telegram")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Sheets.WithLabelValues("standard")), 0)
}

func TestIngestWorkbook_Unreadable(t *testing.T) {
	svc, metrics := newTestService(t)

	_, err := svc.IngestWorkbook(context.Background(), strings.NewReader("not a workbook"))
	assert.ErrorIs(t, err, xlsx.ErrUnreadableWorkbook)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.Batches.WithLabelValues("excel", "failed")), 0)
}

func TestIngestSheets_Cancelled(t *testing.T) {
	svc, _ := newTestService(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.IngestSheets(ctx, []domain.Sheet{{Name: "a"}, {Name: "b"}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestIngestSheets_PreservesSheetOrder(t *testing.T) {
	svc, _ := newTestService(t)

	var sheets []domain.Sheet
	for _, sid := range []string{"A1", "B2", "C3", "D4", "E5", "F6"} {
		sheets = append(sheets, domain.Sheet{
			Name: sid,
			Rows: [][]domain.Cell{
				{domain.TextCell("Дата"), domain.TextCell("Рейс")},
				{domain.TextCell("01.03.2024"), domain.TextCell(sid)},
			},
		})
	}

	report, err := svc.IngestSheets(context.Background(), sheets)
	require.NoError(t, err)

	require.Len(t, report.Flights, len(sheets))
	for i, f := range report.Flights {
		assert.Equal(t, sheets[i].Name, f.SID)
	}
}
