package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func textRow(values ...string) []Cell {
	row := make([]Cell, len(values))
	for i, v := range values {
		row[i] = TextCell(v)
	}
	return row
}

func TestDetectLayout(t *testing.T) {
	second := textRow("1", "2", "3", "4")

	tests := []struct {
		name   string
		header []Cell
		want   Layout
	}{
		{"telegram", textRow("Дата полёта", "SHR", "DEP", "ARR"), LayoutTelegram},
		{"telegram without diaeresis", textRow("ДАТА ПОЛЕТА"), LayoutTelegram},
		{"center", textRow("Центр ЕС ОрВД", "SHR", "DEP", "ARR"), LayoutCenter},
		{"orvd alone", textRow("Наименование ОрВД"), LayoutCenter},
		{"neither", textRow("Номер", "Оператор", "Тип"), LayoutStandard},
		{"legacy header with a date column", textRow("Дата", "Рейс", "Борт", "Тип ВС"), LayoutStandard},
		{"date and SHR columns win over tail number", textRow("Дата", "Борт", "SHR"), LayoutTelegram},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectLayout(Sheet{Rows: [][]Cell{tt.header, second}}))
		})
	}

	t.Run("too few rows", func(t *testing.T) {
		assert.Equal(t, LayoutUnknown, DetectLayout(Sheet{Rows: [][]Cell{textRow("Дата полёта")}}))
		assert.Equal(t, LayoutUnknown, DetectLayout(Sheet{}))
	})

	t.Run("empty first row", func(t *testing.T) {
		assert.Equal(t, LayoutUnknown, DetectLayout(Sheet{Rows: [][]Cell{textRow("", " "), second}}))
	})
}

func TestDecodeCellDate(t *testing.T) {
	jan1 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	mar15 := time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		cell Cell
		want time.Time
	}{
		{"native time", TimeCell(jan1), jan1},
		{"serial day", NumberCell(45292), jan1},
		{"serial with time of day", NumberCell(45292.5), jan1.Add(12 * time.Hour)},
		{"serial as text", TextCell("45292"), jan1},
		{"dotted", TextCell("15.03.2024"), mar15},
		{"iso", TextCell("2024-03-15"), mar15},
		{"slashed", TextCell("15/03/2024"), mar15},
		{"slashed short year", TextCell("15/03/24"), mar15},
		{"iso with clock", TextCell(" 2024-03-15 10:20:30 "), mar15.Add(10*time.Hour + 20*time.Minute + 30*time.Second)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := DecodeCellDate(tt.cell)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []Cell{{}, TextCell("abc"), NumberCell(0), NumberCell(-3), TextCell("31.02.2024"), NumberCell(maxSerialDay)} {
		_, ok := DecodeCellDate(bad)
		assert.False(t, ok, "cell %q", bad.String())
	}
}

func TestDecodeCellClock(t *testing.T) {
	tests := []struct {
		cell Cell
		want time.Duration
	}{
		{TextCell("09:05"), 9*time.Hour + 5*time.Minute},
		{TextCell("09:05:59"), 9*time.Hour + 5*time.Minute},
		{TextCell("0905"), 9*time.Hour + 5*time.Minute},
		{NumberCell(0.5), 12 * time.Hour},
		{NumberCell(930), 9*time.Hour + 30*time.Minute},
		{TimeCell(time.Date(1899, 12, 30, 17, 45, 0, 0, time.UTC)), 17*time.Hour + 45*time.Minute},
	}
	for _, tt := range tests {
		got, ok := decodeCellClock(tt.cell)
		require.True(t, ok, tt.cell.String())
		assert.Equal(t, tt.want, got, tt.cell.String())
	}

	for _, bad := range []Cell{{}, TextCell("later"), NumberCell(2400), TextCell("2575")} {
		_, ok := decodeCellClock(bad)
		assert.False(t, ok, bad.String())
	}
}

func telegramSheet() Sheet {
	return Sheet{
		Name: "Ростовская область",
		Rows: [][]Cell{
			textRow("Дата полёта", "SHR", "DEP", "ARR"),
			textRow("1", "2", "3", "4"),
			{NumberCell(45323), TextCell(testSHR), TextCell(testDEP), TextCell(testARR)},
			textRow("31.13.2024", "DEP/5957N02905E OPR/Bad"),
			textRow("02.02.2024", "DEP/5957N02905E OPR/Good"),
			textRow("", "DEP/5957N02905E OPR/Orphan"),
			textRow("03.02.2024"),
		},
	}
}

func TestWalkSheet_Telegram(t *testing.T) {
	layout, res := WalkSheet(telegramSheet())

	assert.Equal(t, LayoutTelegram, layout)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 2, res.Skipped)
	assert.Equal(t, StatusPartial, res.Status())

	first := res.Records[0]
	assert.Equal(t, "Ростовская область", first.Region)
	assert.Equal(t, "7772251137", first.SID)
	assert.Equal(t, time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), *first.FlightDate, "DOF wins over the row date")
	assert.Equal(t, 535, *first.DurationMinutes)

	second := res.Records[1]
	assert.Equal(t, "Good", second.Operator)
	assert.Equal(t, time.Date(2024, 2, 2, 0, 0, 0, 0, time.UTC), *second.FlightDate)

	require.Len(t, res.Warnings, 2)
	assert.Equal(t, ScopeRow, res.Warnings[0].Scope)
	assert.Contains(t, res.Warnings[0].Message, "row 4")
	assert.Contains(t, res.Warnings[0].Message, "31.13.2024")
	assert.Contains(t, res.Warnings[1].Message, "row 7")
}

func TestWalkSheet_Center(t *testing.T) {
	sheet := Sheet{
		Name: "Лист1",
		Rows: [][]Cell{
			textRow("Центр ЕС ОрВД", "SHR", "DEP", "ARR"),
			textRow("Ростовский", testSHR, testDEP, testARR),
			textRow("Московский", "", "", ""),
		},
	}
	layout, res := WalkSheet(sheet)

	assert.Equal(t, LayoutCenter, layout)
	require.Len(t, res.Records, 1)
	assert.Equal(t, "Ростовский", res.Records[0].CenterName)
	assert.Empty(t, res.Records[0].Region)
	assert.Equal(t, 1, res.Skipped)
}

func TestWalkSheet_Standard(t *testing.T) {
	sheet := Sheet{
		Name: "Sheet1",
		Rows: [][]Cell{
			textRow("Дата", "Рейс", "Борт", "Тип ВС", "Т выл.факт", "Т пос.факт", "АРВ", "АРП", "Поле 18"),
			textRow("01.03.2024", "RA123", "RF-1", "Орлан", "09:00", "10:30", "5957N02905E", "440846N0430829E", "OPR/ООО Небо TYP/OLD"),
			textRow("", "RA124", "RF-2"),
			textRow("02.03.2024", "", "", "", "23:30", "00:15", "bad"),
			{},
		},
	}
	layout, res := WalkSheet(sheet)

	assert.Equal(t, LayoutStandard, layout)
	require.Len(t, res.Records, 2)
	assert.Equal(t, 1, res.Skipped)

	rec := res.Records[0]
	assert.Equal(t, "RA123", rec.SID)
	assert.Equal(t, "RF-1", rec.UAVRegistration)
	assert.Equal(t, "Орлан", rec.UAVType, "column beats field 18")
	assert.Equal(t, "ООО Небо", rec.Operator)
	assert.Empty(t, rec.Region)
	require.NotNil(t, rec.Departure)
	require.NotNil(t, rec.Arrival)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), *rec.DepartureTime)
	assert.Equal(t, 90, *rec.DurationMinutes)

	night := res.Records[1]
	assert.Equal(t, 45, *night.DurationMinutes)
	assert.Equal(t, time.Date(2024, 3, 3, 0, 15, 0, 0, time.UTC), *night.ArrivalTime)
	assert.Nil(t, night.Departure)

	require.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0].Message, "row 3: missing date")
	assert.Equal(t, ScopeCoordinate, res.Warnings[1].Scope)
	assert.Contains(t, res.Warnings[1].Message, "row 4")
}

func TestWalkSheet_StandardDateColumnBeatsDOF(t *testing.T) {
	sheet := Sheet{
		Name: "Sheet1",
		Rows: [][]Cell{
			textRow("Дата", "Рейс", "Т выл.факт", "Поле 18"),
			textRow("01.03.2024", "R1", "09:00", "DOF/240505 OPR/X"),
		},
	}
	layout, res := WalkSheet(sheet)

	assert.Equal(t, LayoutStandard, layout)
	require.Len(t, res.Records, 1)
	rec := res.Records[0]
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), *rec.FlightDate)
	assert.Equal(t, time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC), *rec.DepartureTime)
	assert.Equal(t, "X", rec.Operator)
}

func TestWalkSheet_Unknown(t *testing.T) {
	layout, res := WalkSheet(Sheet{Name: "empty"})

	assert.Equal(t, LayoutUnknown, layout)
	assert.Empty(t, res.Records)
	require.Len(t, res.Warnings, 1)
	assert.Equal(t, ScopeSheet, res.Warnings[0].Scope)
}
