// Package xlsx reads spreadsheet workbooks into domain sheets.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/bas-flights/telegram-etl/internal/domain"
)

// ErrUnreadableWorkbook wraps every failure to open or read a workbook.
var ErrUnreadableWorkbook = errors.New("unreadable workbook")

// ReadWorkbook loads every sheet of an .xlsx/.xlsm workbook in sheet order.
// Cells holding numbers become number cells so serial dates and day
// fractions survive; everything else is text.
func ReadWorkbook(r io.Reader) ([]domain.Sheet, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadableWorkbook, err)
	}
	defer f.Close()

	var sheets []domain.Sheet
	for _, name := range f.GetSheetList() {
		rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
		if err != nil {
			return nil, fmt.Errorf("%w: sheet %q: %v", ErrUnreadableWorkbook, name, err)
		}
		sheets = append(sheets, domain.Sheet{Name: name, Rows: convertRows(rows)})
	}
	return sheets, nil
}

func convertRows(rows [][]string) [][]domain.Cell {
	out := make([][]domain.Cell, len(rows))
	for i, row := range rows {
		cells := make([]domain.Cell, len(row))
		for j, v := range row {
			cells[j] = convertCell(v)
		}
		out[i] = cells
	}
	return out
}

func convertCell(v string) domain.Cell {
	trimmed := strings.TrimSpace(v)
	if trimmed == "" {
		return domain.Cell{}
	}
	if n, err := strconv.ParseFloat(trimmed, 64); err == nil && isPlainNumber(trimmed) {
		return domain.NumberCell(n)
	}
	return domain.TextCell(v)
}

// isPlainNumber rejects digit strings whose leading zeros carry meaning,
// such as HHMM times and zero-padded identifiers.
func isPlainNumber(s string) bool {
	if len(s) > 1 && s[0] == '0' && s[1] != '.' {
		return false
	}
	return true
}
