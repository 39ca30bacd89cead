package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseDateToken parses a YYMMDD token as a UTC date. Two-digit years are
// always 20YY.
func ParseDateToken(tok string) (time.Time, error) {
	tok = strings.TrimSpace(tok)
	if len(tok) != 6 {
		return time.Time{}, fmt.Errorf("date token %q: want YYMMDD", tok)
	}
	yy, errY := strconv.Atoi(tok[0:2])
	mm, errM := strconv.Atoi(tok[2:4])
	dd, errD := strconv.Atoi(tok[4:6])
	if errY != nil || errM != nil || errD != nil {
		return time.Time{}, fmt.Errorf("date token %q: want YYMMDD", tok)
	}

	t := time.Date(2000+yy, time.Month(mm), dd, 0, 0, 0, 0, time.UTC)
	if t.Month() != time.Month(mm) || t.Day() != dd {
		return time.Time{}, fmt.Errorf("date token %q: no such calendar date", tok)
	}
	return t, nil
}

// parseTimeToken parses an HHMM token.
func parseTimeToken(tok string) (hour, minute int, err error) {
	tok = strings.TrimSpace(tok)
	if len(tok) != 4 {
		return 0, 0, fmt.Errorf("time token %q: want HHMM", tok)
	}
	hour, errH := strconv.Atoi(tok[:2])
	minute, errM := strconv.Atoi(tok[2:])
	if errH != nil || errM != nil || hour > 23 || minute > 59 {
		return 0, 0, fmt.Errorf("time token %q: want HHMM", tok)
	}
	return hour, minute, nil
}

// CombineDateTime joins a YYMMDD date token and an HHMM time token into a
// UTC timestamp.
func CombineDateTime(dateTok, timeTok string) (time.Time, error) {
	date, err := ParseDateToken(dateTok)
	if err != nil {
		return time.Time{}, err
	}
	return atClock(date, timeTok)
}

// atClock places an HHMM token on the given calendar date.
func atClock(date time.Time, timeTok string) (time.Time, error) {
	hour, minute, err := parseTimeToken(timeTok)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), hour, minute, 0, 0, time.UTC), nil
}

// ComputeDuration returns the whole minutes between departure and arrival.
// When arrival precedes departure the arrival is moved forward one calendar
// day, once. It reports false when either timestamp is missing or the gap is
// still negative after that single rollover.
func ComputeDuration(departure, arrival *time.Time) (int, bool) {
	if departure == nil || arrival == nil {
		return 0, false
	}
	arr := *arrival
	if arr.Before(*departure) {
		arr = arr.AddDate(0, 0, 1)
	}
	d := arr.Sub(*departure)
	if d < 0 {
		return 0, false
	}
	return int(d / time.Minute), true
}

// RolloverArrival returns the arrival timestamp that ComputeDuration
// measures against, so stored arrival times agree with stored durations.
func RolloverArrival(departure, arrival time.Time) time.Time {
	if arrival.Before(departure) {
		next := arrival.AddDate(0, 0, 1)
		if !next.Before(departure) {
			return next
		}
	}
	return arrival
}
