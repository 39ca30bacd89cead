package domain

import (
	"strings"
	"time"
)

// Assemble merges the fragments of one flight into a record. SHR values are
// authoritative; DEP and ARR fill what SHR leaves empty and supply the actual
// clock times. Missing fragments are not an error.
func Assemble(set FragmentSet) (FlightRecord, []ParseWarning) {
	var warnings []ParseWarning

	shr, w := ExtractSHR(set.SHR)
	warnings = append(warnings, w...)
	dep, w := ExtractDEP(set.DEP)
	warnings = append(warnings, w...)
	arr, w := ExtractARR(set.ARR)
	warnings = append(warnings, w...)

	rec := FlightRecord{
		SID:             firstNonEmpty(shr.SID, dep.SID, arr.SID),
		Departure:       firstCoordinate(shr.Departure, dep.Departure, arr.Departure),
		Arrival:         firstCoordinate(shr.Destination, arr.Arrival, dep.Destination),
		Operator:        shr.Operator,
		OperatorPhone:   shr.OperatorPhone,
		UAVType:         shr.UAVType,
		UAVRegistration: firstNonEmpty(shr.Registration, dep.Registration, arr.Registration),
		Altitude:        shr.Altitude,
		Zone:            shr.Zone,
		CenterName:      strings.TrimSpace(set.CenterName),
		Region:          strings.TrimSpace(set.Region),
		RawSHR:          strings.TrimSpace(set.SHR),
		RawDEP:          strings.TrimSpace(set.DEP),
		RawARR:          strings.TrimSpace(set.ARR),
	}

	shrDate := parseDateField(shr.DateToken, KindSHR, &warnings)
	depDate := parseDateField(dep.DateToken, KindDEP, &warnings)
	arrDate := parseDateField(arr.DateToken, KindARR, &warnings)

	if d := firstTime(shrDate, set.RowDate, depDate, arrDate); d != nil {
		day := time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, time.UTC)
		rec.FlightDate = &day
	}

	if dep.TimeToken != "" {
		if base := firstTime(depDate, rec.FlightDate); base != nil {
			rec.DepartureTime = clockOn(*base, dep.TimeToken, KindDEP, &warnings)
		}
	}
	if arr.TimeToken != "" {
		if base := firstTime(arrDate, depDate, rec.FlightDate); base != nil {
			rec.ArrivalTime = clockOn(*base, arr.TimeToken, KindARR, &warnings)
		}
	}

	if rec.DepartureTime != nil && rec.ArrivalTime != nil {
		if minutes, ok := ComputeDuration(rec.DepartureTime, rec.ArrivalTime); ok {
			arrival := RolloverArrival(*rec.DepartureTime, *rec.ArrivalTime)
			rec.ArrivalTime = &arrival
			rec.DurationMinutes = &minutes
		} else {
			warnings = append(warnings, warnf(ScopeFragment,
				"arrival %s precedes departure %s by more than a day",
				rec.ArrivalTime.Format(time.RFC3339), rec.DepartureTime.Format(time.RFC3339)))
		}
	}

	return rec, warnings
}

// parseDateField decodes a YYMMDD token, warning when it is present but not a
// calendar date.
func parseDateField(tok string, kind FragmentKind, warnings *[]ParseWarning) *time.Time {
	if tok == "" {
		return nil
	}
	d, err := ParseDateToken(tok)
	if err != nil {
		*warnings = append(*warnings, warnf(ScopeFragment, "%s: %v", kind, err))
		return nil
	}
	return &d
}

func clockOn(date time.Time, tok string, kind FragmentKind, warnings *[]ParseWarning) *time.Time {
	t, err := atClock(date, tok)
	if err != nil {
		*warnings = append(*warnings, warnf(ScopeFragment, "%s: %v", kind, err))
		return nil
	}
	return &t
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstCoordinate(values ...*Coordinate) *Coordinate {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}

func firstTime(values ...*time.Time) *time.Time {
	for _, v := range values {
		if v != nil {
			return v
		}
	}
	return nil
}
