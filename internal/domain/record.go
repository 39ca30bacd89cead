package domain

import (
	"fmt"
	"time"
)

// MaxWarnings bounds the warning list returned with a batch. Skipped and
// WarningCount keep the full totals.
const MaxWarnings = 10

// Coordinate is a WGS-84 point in decimal degrees.
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// FragmentKind identifies which telegram a fragment carries.
type FragmentKind int

const (
	KindSHR FragmentKind = iota + 1
	KindDEP
	KindARR
)

func (k FragmentKind) String() string {
	switch k {
	case KindSHR:
		return "SHR"
	case KindDEP:
		return "DEP"
	case KindARR:
		return "ARR"
	default:
		return "unknown"
	}
}

// RawFragment is one telegram message exactly as it was received.
type RawFragment struct {
	Kind FragmentKind
	Text string
}

// AltitudeBand is the planned altitude range in meters.
type AltitudeBand struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// FragmentSet groups the telegrams of one flight together with whatever the
// surrounding row contributes. Empty strings mean the fragment is absent.
type FragmentSet struct {
	SHR string
	DEP string
	ARR string

	RowDate    *time.Time
	Region     string
	CenterName string
}

// FlightRecord is the assembled, normalized view of one flight. Empty strings
// and nil pointers mean the value was not present in any source.
type FlightRecord struct {
	SID             string        `json:"sid,omitempty"`
	FlightDate      *time.Time    `json:"flight_date,omitempty"`
	Departure       *Coordinate   `json:"departure,omitempty"`
	Arrival         *Coordinate   `json:"arrival,omitempty"`
	DepartureTime   *time.Time    `json:"departure_time,omitempty"`
	ArrivalTime     *time.Time    `json:"arrival_time,omitempty"`
	DurationMinutes *int          `json:"duration_minutes,omitempty"`
	Operator        string        `json:"operator,omitempty"`
	OperatorPhone   string        `json:"operator_phone,omitempty"`
	UAVType         string        `json:"uav_type,omitempty"`
	UAVRegistration string        `json:"uav_registration,omitempty"`
	Altitude        *AltitudeBand `json:"altitude,omitempty"`
	Zone            string        `json:"zone,omitempty"`
	CenterName      string        `json:"center_name,omitempty"`
	Region          string        `json:"region,omitempty"` // sheet-name region label

	RawSHR string `json:"raw_shr,omitempty"`
	RawDEP string `json:"raw_dep,omitempty"`
	RawARR string `json:"raw_arr,omitempty"`
}

// EnrichedFlight is a FlightRecord after region lookup, ready for a sink.
type EnrichedFlight struct {
	FlightRecord

	DepartureRegion string    `json:"departure_region,omitempty"`
	ArrivalRegion   string    `json:"arrival_region,omitempty"`
	BatchID         string    `json:"batch_id,omitempty"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// WarningScope says what unit a warning refers to.
type WarningScope string

const (
	ScopeFragment   WarningScope = "fragment"
	ScopeRow        WarningScope = "row"
	ScopeCoordinate WarningScope = "coordinate"
	ScopeSheet      WarningScope = "sheet"
)

// ParseWarning reports a degraded row, fragment or coordinate.
type ParseWarning struct {
	Scope   WarningScope `json:"scope"`
	Message string       `json:"message"`
}

func (w ParseWarning) String() string {
	return fmt.Sprintf("%s: %s", w.Scope, w.Message)
}

func warnf(scope WarningScope, format string, args ...any) ParseWarning {
	return ParseWarning{Scope: scope, Message: fmt.Sprintf(format, args...)}
}

// BatchStatus is the outcome of a whole batch.
type BatchStatus string

const (
	StatusSuccess BatchStatus = "success"
	StatusPartial BatchStatus = "partial"
	StatusFailed  BatchStatus = "failed"
)

// BatchResult collects the records of one batch with a bounded warning list.
type BatchResult struct {
	Records      []FlightRecord
	Skipped      int
	Warnings     []ParseWarning
	WarningCount int
	ScopeCounts  map[WarningScope]int
}

// Processed is the number of records produced.
func (b *BatchResult) Processed() int { return len(b.Records) }

// Status reports failed when nothing was produced and partial when anything
// was skipped or degraded.
func (b *BatchResult) Status() BatchStatus {
	switch {
	case len(b.Records) == 0:
		return StatusFailed
	case b.Skipped > 0 || b.WarningCount > 0:
		return StatusPartial
	default:
		return StatusSuccess
	}
}

// Warn records a warning, keeping at most MaxWarnings of them.
func (b *BatchResult) Warn(ws ...ParseWarning) {
	for _, w := range ws {
		b.WarningCount++
		if b.ScopeCounts == nil {
			b.ScopeCounts = make(map[WarningScope]int)
		}
		b.ScopeCounts[w.Scope]++
		if len(b.Warnings) < MaxWarnings {
			b.Warnings = append(b.Warnings, w)
		}
	}
}

// Skip drops a row or fragment and records why.
func (b *BatchResult) Skip(w ParseWarning) {
	b.Skipped++
	b.Warn(w)
}

// Add appends an assembled record with its warnings.
func (b *BatchResult) Add(rec FlightRecord, warnings []ParseWarning) {
	b.Records = append(b.Records, rec)
	b.Warn(warnings...)
}

// Merge appends other after b, preserving order and the warning cap.
func (b *BatchResult) Merge(other BatchResult) {
	b.Records = append(b.Records, other.Records...)
	b.Skipped += other.Skipped
	for _, w := range other.Warnings {
		if len(b.Warnings) < MaxWarnings {
			b.Warnings = append(b.Warnings, w)
		}
	}
	b.WarningCount += other.WarningCount
	for scope, n := range other.ScopeCounts {
		if b.ScopeCounts == nil {
			b.ScopeCounts = make(map[WarningScope]int)
		}
		b.ScopeCounts[scope] += n
	}
}

// HasData reports whether anything beyond the raw texts and source labels
// was recovered.
func (r FlightRecord) HasData() bool {
	return r.SID != "" || r.FlightDate != nil || r.Departure != nil || r.Arrival != nil ||
		r.DepartureTime != nil || r.ArrivalTime != nil || r.Operator != "" ||
		r.OperatorPhone != "" || r.UAVType != "" || r.UAVRegistration != "" ||
		r.Altitude != nil || r.Zone != ""
}

// FlightStatus is how far a flight has progressed according to the
// telegrams received for it.
type FlightStatus string

const (
	FlightScheduled FlightStatus = "scheduled"
	FlightDeparted  FlightStatus = "departed"
	FlightArrived   FlightStatus = "arrived"
)

// Status derives the flight status from the actual times and the fragments
// present. An ARR telegram or an arrival time means the flight has landed.
func (r FlightRecord) Status() FlightStatus {
	switch {
	case r.ArrivalTime != nil || r.RawARR != "":
		return FlightArrived
	case r.DepartureTime != nil || r.RawDEP != "":
		return FlightDeparted
	default:
		return FlightScheduled
	}
}
