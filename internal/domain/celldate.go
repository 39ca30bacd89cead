package domain

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// serialEpoch is day zero of spreadsheet serial dates. Counting from
// 1899-12-30 rather than 1900-01-01 absorbs the fictitious 1900-02-29.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// maxSerialDay is 9999-12-31, the last date a serial number can express.
const maxSerialDay = 2958466

var cellDateLayouts = []string{
	"02.01.2006",
	"2006-01-02",
	"02/01/2006",
	"02/01/06",
	"2006-01-02 15:04:05",
	"02.01.2006 15:04:05",
	"02.01.2006 15:04",
}

// DecodeCellDate interprets a date cell: a native time value first, then a
// serial day count, then the textual layouts. It reports false when none of
// them apply.
func DecodeCellDate(c Cell) (time.Time, bool) {
	switch c.Kind {
	case CellTime:
		return c.Time.UTC(), true
	case CellNumber:
		return serialDate(c.Number)
	case CellText:
		text := strings.TrimSpace(c.Text)
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			return serialDate(v)
		}
		for _, layout := range cellDateLayouts {
			if t, err := time.Parse(layout, text); err == nil {
				return t, true
			}
		}
	}
	return time.Time{}, false
}

func serialDate(v float64) (time.Time, bool) {
	if v <= 0 || v >= maxSerialDay || math.IsNaN(v) {
		return time.Time{}, false
	}
	days := math.Floor(v)
	secs := math.Round((v - days) * 86400)
	return serialEpoch.AddDate(0, 0, int(days)).Add(time.Duration(secs) * time.Second), true
}

// decodeCellClock reads a time-of-day cell: a time value, a day fraction,
// "HH:MM[:SS]" or "HHMM". It returns the offset from midnight.
func decodeCellClock(c Cell) (time.Duration, bool) {
	switch c.Kind {
	case CellTime:
		t := c.Time
		return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, true
	case CellNumber:
		if d, ok := dayFraction(c.Number); ok {
			return d, true
		}
		if c.Number == math.Trunc(c.Number) && c.Number >= 0 && c.Number < 2400 {
			h, m, err := parseTimeToken(fmt.Sprintf("%04d", int(c.Number)))
			if err == nil {
				return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, true
			}
		}
	case CellText:
		text := strings.TrimSpace(c.Text)
		for _, layout := range []string{"15:04", "15:04:05"} {
			if t, err := time.Parse(layout, text); err == nil {
				return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, true
			}
		}
		if h, m, err := parseTimeToken(text); err == nil {
			return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute, true
		}
		if v, err := strconv.ParseFloat(text, 64); err == nil {
			return dayFraction(v)
		}
	}
	return 0, false
}

func dayFraction(v float64) (time.Duration, bool) {
	if v < 0 || v >= 1 || math.IsNaN(v) {
		return 0, false
	}
	minutes := math.Round(v * 24 * 60)
	return time.Duration(minutes) * time.Minute, true
}
