package domain

import (
	"fmt"
	"strings"
	"time"
)

// Header aliases for the standard layout, lowercased with single spaces.
var (
	stdDateCols     = []string{"дата", "дата полёта", "дата полета", "date"}
	stdFlightCols   = []string{"рейс", "sid"}
	stdTailCols     = []string{"борт", "рег. номер", "регистрационный номер"}
	stdTypeCols     = []string{"тип вс", "тип бвс", "тип"}
	stdOperatorCols = []string{"оператор", "эксплуатант", "владелец"}
	stdDepTimeCols  = []string{"т выл.факт", "т выл. факт", "время вылета"}
	stdArrTimeCols  = []string{"т пос.факт", "т пос. факт", "время посадки"}
	stdDepCoordCols = []string{"арв", "координаты вылета"}
	stdArrCoordCols = []string{"арп", "координаты посадки"}
	stdField18Cols  = []string{"поле 18"}
)

// WalkSheet classifies a sheet and turns its rows into records. Bad rows are
// skipped with a warning; the rest of the sheet is still processed.
func WalkSheet(sheet Sheet) (Layout, BatchResult) {
	var res BatchResult
	layout := DetectLayout(sheet)
	switch layout {
	case LayoutTelegram:
		walkTelegramRows(sheet, &res)
	case LayoutCenter:
		walkCenterRows(sheet, &res)
	case LayoutStandard:
		walkStandardRows(sheet, &res)
	default:
		res.Warn(warnf(ScopeSheet, "sheet %q: empty or unrecognized layout", sheet.Name))
	}
	return layout, res
}

// walkTelegramRows handles title + header rows followed by
// date | SHR | DEP | ARR. The sheet name is the region label.
func walkTelegramRows(sheet Sheet, res *BatchResult) {
	for r := 2; r < len(sheet.Rows); r++ {
		first := sheet.Cell(r, 0)
		if first.IsEmpty() {
			continue
		}
		date, ok := DecodeCellDate(first)
		if !ok {
			res.Skip(rowWarning(sheet, r, "undecodable date %q", first.String()))
			continue
		}
		set := telegramCells(sheet, r)
		set.RowDate = &date
		set.Region = sheet.Name
		addRow(sheet, r, set, res)
	}
}

// walkCenterRows handles one header row followed by center | SHR | DEP | ARR.
func walkCenterRows(sheet Sheet, res *BatchResult) {
	for r := 1; r < len(sheet.Rows); r++ {
		first := sheet.Cell(r, 0)
		if first.IsEmpty() {
			continue
		}
		set := telegramCells(sheet, r)
		set.CenterName = first.String()
		addRow(sheet, r, set, res)
	}
}

func telegramCells(sheet Sheet, r int) FragmentSet {
	return FragmentSet{
		SHR: sheet.Cell(r, 1).String(),
		DEP: sheet.Cell(r, 2).String(),
		ARR: sheet.Cell(r, 3).String(),
	}
}

func addRow(sheet Sheet, r int, set FragmentSet, res *BatchResult) {
	if set.SHR == "" && set.DEP == "" && set.ARR == "" {
		res.Skip(rowWarning(sheet, r, "no telegram cells"))
		return
	}
	rec, warnings := Assemble(set)
	res.Add(rec, locate(sheet, r, warnings))
}

// walkStandardRows handles the legacy flat layout: row 0 names the columns
// and each later row is one flight without embedded telegrams, except for an
// optional field-18 column that is read like SHR text.
func walkStandardRows(sheet Sheet, res *BatchResult) {
	cols := headerIndex(sheet.Rows[0])
	col := func(aliases []string) int {
		for _, a := range aliases {
			if i, ok := cols[a]; ok {
				return i
			}
		}
		return -1
	}
	dateCol := col(stdDateCols)
	flightCol := col(stdFlightCols)
	tailCol := col(stdTailCols)
	typeCol := col(stdTypeCols)
	operatorCol := col(stdOperatorCols)
	depTimeCol := col(stdDepTimeCols)
	arrTimeCol := col(stdArrTimeCols)
	depCoordCol := col(stdDepCoordCols)
	arrCoordCol := col(stdArrCoordCols)
	field18Col := col(stdField18Cols)

	for r := 1; r < len(sheet.Rows); r++ {
		if rowIsEmpty(sheet.Rows[r]) {
			continue
		}
		dateCell := sheet.Cell(r, dateCol)
		if dateCell.IsEmpty() {
			res.Skip(rowWarning(sheet, r, "missing date"))
			continue
		}
		date, ok := DecodeCellDate(dateCell)
		if !ok {
			res.Skip(rowWarning(sheet, r, "undecodable date %q", dateCell.String()))
			continue
		}

		rec, warnings := Assemble(FragmentSet{SHR: sheet.Cell(r, field18Col).String(), RowDate: &date})
		day := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)
		rec.FlightDate = &day

		if v := sheet.Cell(r, flightCol).String(); v != "" {
			rec.SID = v
		}
		if v := sheet.Cell(r, tailCol).String(); v != "" {
			rec.UAVRegistration = v
		}
		if v := sheet.Cell(r, typeCol).String(); v != "" {
			rec.UAVType = v
		}
		if v := sheet.Cell(r, operatorCol).String(); v != "" {
			rec.Operator = v
		}
		if c, ok := standardCoordinate(sheet.Cell(r, depCoordCol), &warnings); ok {
			rec.Departure = c
		}
		if c, ok := standardCoordinate(sheet.Cell(r, arrCoordCol), &warnings); ok {
			rec.Arrival = c
		}
		if d, ok := decodeCellClock(sheet.Cell(r, depTimeCol)); ok {
			t := day.Add(d)
			rec.DepartureTime = &t
		}
		if d, ok := decodeCellClock(sheet.Cell(r, arrTimeCol)); ok {
			t := day.Add(d)
			rec.ArrivalTime = &t
		}
		if rec.DepartureTime != nil && rec.ArrivalTime != nil {
			if minutes, ok := ComputeDuration(rec.DepartureTime, rec.ArrivalTime); ok {
				arrival := RolloverArrival(*rec.DepartureTime, *rec.ArrivalTime)
				rec.ArrivalTime = &arrival
				rec.DurationMinutes = &minutes
			}
		}

		res.Add(rec, locate(sheet, r, warnings))
	}
}

func standardCoordinate(c Cell, warnings *[]ParseWarning) (*Coordinate, bool) {
	if c.IsEmpty() {
		return nil, false
	}
	coord, ok := DecodeCoordinate(c.String())
	if !ok {
		*warnings = append(*warnings, warnf(ScopeCoordinate, "undecodable coordinate %q", c.String()))
		return nil, false
	}
	return &coord, true
}

func headerIndex(row []Cell) map[string]int {
	idx := make(map[string]int, len(row))
	for i, c := range row {
		key := strings.ToLower(normalizeWhitespace(c.String()))
		if _, seen := idx[key]; key != "" && !seen {
			idx[key] = i
		}
	}
	return idx
}

func rowIsEmpty(row []Cell) bool {
	for _, c := range row {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

func rowWarning(sheet Sheet, r int, format string, args ...any) ParseWarning {
	return warnf(ScopeRow, "sheet %q row %d: %s", sheet.Name, r+1, fmt.Sprintf(format, args...))
}

// locate prefixes warnings with the sheet and 1-based row they came from.
func locate(sheet Sheet, r int, warnings []ParseWarning) []ParseWarning {
	for i := range warnings {
		warnings[i].Message = fmt.Sprintf("sheet %q row %d: %s", sheet.Name, r+1, warnings[i].Message)
	}
	return warnings
}
