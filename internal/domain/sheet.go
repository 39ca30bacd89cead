package domain

import (
	"strconv"
	"strings"
	"time"
)

// CellKind is the value type of a spreadsheet cell.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
	CellTime
)

// Cell is one spreadsheet value as read by a workbook adapter.
type Cell struct {
	Kind   CellKind
	Text   string
	Number float64
	Time   time.Time
}

// TextCell returns a text cell, or an empty cell for blank text.
func TextCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{}
	}
	return Cell{Kind: CellText, Text: s}
}

func NumberCell(v float64) Cell {
	return Cell{Kind: CellNumber, Number: v}
}

func TimeCell(t time.Time) Cell {
	return Cell{Kind: CellTime, Time: t}
}

// IsEmpty reports whether the cell holds no value.
func (c Cell) IsEmpty() bool {
	return c.Kind == CellEmpty
}

func (c Cell) String() string {
	switch c.Kind {
	case CellText:
		return strings.TrimSpace(c.Text)
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	case CellTime:
		return c.Time.Format(time.RFC3339)
	default:
		return ""
	}
}

// Sheet is one worksheet: its name and its rows in order.
type Sheet struct {
	Name string
	Rows [][]Cell
}

// Cell returns the cell at row, col, or an empty cell when out of range.
func (s Sheet) Cell(row, col int) Cell {
	if row < 0 || row >= len(s.Rows) || col < 0 || col >= len(s.Rows[row]) {
		return Cell{}
	}
	return s.Rows[row][col]
}

// Layout is a known spreadsheet dialect.
type Layout int

const (
	LayoutUnknown Layout = iota
	LayoutTelegram
	LayoutCenter
	LayoutStandard
)

func (l Layout) String() string {
	switch l {
	case LayoutTelegram:
		return "telegram"
	case LayoutCenter:
		return "center"
	case LayoutStandard:
		return "standard"
	default:
		return "unknown"
	}
}

// DetectLayout classifies a sheet from its first row. Sheets with fewer than
// two rows, or an empty first row, are LayoutUnknown.
//
// "дата"/"полёта" select the telegram layout, except for the legacy flat
// header (tail number, aircraft type, flight number columns and no SHR
// column), which also starts with a date column.
func DetectLayout(sheet Sheet) Layout {
	if len(sheet.Rows) < 2 {
		return LayoutUnknown
	}
	header := strings.ToLower(joinRow(sheet.Rows[0]))
	if strings.TrimSpace(header) == "" {
		return LayoutUnknown
	}

	telegram := strings.Contains(header, "дата") ||
		strings.Contains(header, "полёта") ||
		strings.Contains(header, "полета")
	legacy := !strings.Contains(header, "shr") &&
		(strings.Contains(header, "борт") ||
			strings.Contains(header, "тип вс") ||
			strings.Contains(header, "рейс"))

	switch {
	case telegram && !legacy:
		return LayoutTelegram
	case strings.Contains(header, "центр") || strings.Contains(header, "орвд"):
		return LayoutCenter
	default:
		return LayoutStandard
	}
}

func joinRow(row []Cell) string {
	parts := make([]string, 0, len(row))
	for _, c := range row {
		if s := c.String(); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, " ")
}
