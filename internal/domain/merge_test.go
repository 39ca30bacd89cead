package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func enriched(t *testing.T, set FragmentSet, batch string) EnrichedFlight {
	t.Helper()
	rec, _ := Assemble(set)
	return EnrichedFlight{FlightRecord: rec, BatchID: batch}
}

func TestMergeFlight_ReportCompletesPlan(t *testing.T) {
	plan := enriched(t, FragmentSet{SHR: "OPR/Test TYP/MQ9 DEP/5957N02905E DOF/240101 M0050/M0100 SID/7772251137"}, "b1")
	plan.DepartureRegion = "Санкт-Петербург"
	dep := enriched(t, FragmentSet{DEP: "-SID 7772251137 -ADD 240101 -ATD 2350"}, "b2")
	arr := enriched(t, FragmentSet{ARR: "-SID 7772251137 -ADA 240101 -ATA 0015 -ADARRZ 440846N0430829E"}, "b3")
	arr.ArrivalRegion = "Ставропольский край"

	m := MergeFlight(MergeFlight(plan, dep), arr)

	assert.Equal(t, "7772251137", m.SID)
	assert.Equal(t, "Test", m.Operator)
	assert.Equal(t, "MQ9", m.UAVType)
	assert.Equal(t, &AltitudeBand{Min: 50, Max: 100}, m.Altitude)
	require.NotNil(t, m.Departure)
	assert.InDelta(t, 59.95, m.Departure.Lat, 1e-4)
	assert.Equal(t, "Санкт-Петербург", m.DepartureRegion)
	require.NotNil(t, m.Arrival)
	assert.Equal(t, "Ставропольский край", m.ArrivalRegion)
	assert.Equal(t, time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), *m.FlightDate)

	assert.Equal(t, plan.RawSHR, m.RawSHR)
	assert.Equal(t, dep.RawDEP, m.RawDEP)
	assert.Equal(t, arr.RawARR, m.RawARR)
	assert.Equal(t, "b3", m.BatchID)
	assert.Equal(t, FlightArrived, m.Status())

	require.NotNil(t, m.DurationMinutes)
	assert.Equal(t, 25, *m.DurationMinutes, "arrival rolls over past midnight")
	assert.Equal(t, time.Date(2024, 1, 2, 0, 15, 0, 0, time.UTC), *m.ArrivalTime)
}

func TestMergeFlight_LaterPlanWins(t *testing.T) {
	first := enriched(t, FragmentSet{SHR: "OPR/Old TYP/MQ9 SID/1"}, "b1")
	refiled := enriched(t, FragmentSet{SHR: "OPR/New SID/1"}, "b2")

	m := MergeFlight(first, refiled)

	assert.Equal(t, "New", m.Operator)
	assert.Equal(t, "MQ9", m.UAVType, "gaps are filled from the earlier plan")
	assert.Equal(t, refiled.RawSHR, m.RawSHR)
}

func TestMergeFlight_PlanBeatsReportCoordinates(t *testing.T) {
	plan := enriched(t, FragmentSet{SHR: "DEST/440846N0430829E SID/1"}, "b1")
	arr := enriched(t, FragmentSet{ARR: "SID 1 ADARRZ 5957N02905E"}, "b2")

	m := MergeFlight(plan, arr)

	require.NotNil(t, m.Arrival)
	assert.InDelta(t, 44.1461, m.Arrival.Lat, 1e-4)
}

func TestMergeFlight_KeepsDurationWithoutTimes(t *testing.T) {
	minutes := 30
	earlier := EnrichedFlight{FlightRecord: FlightRecord{SID: "1", DurationMinutes: &minutes}}
	later := EnrichedFlight{FlightRecord: FlightRecord{SID: "1", RawARR: "(ARR)"}}

	m := MergeFlight(earlier, later)

	require.NotNil(t, m.DurationMinutes)
	assert.Equal(t, 30, *m.DurationMinutes)
}
