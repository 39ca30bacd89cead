package domain

// MergeFlight folds a later record for a SID into the one already known.
//
// Plan fields (date, coordinates, operator, aircraft, altitude, zone) come
// from the side carrying an SHR, the later one when both do; the other side
// only fills gaps. Actual times, raw texts and source labels prefer the later
// record. Duration is recomputed when both actual times are known.
func MergeFlight(earlier, later EnrichedFlight) EnrichedFlight {
	plan, other := later, earlier
	if later.RawSHR == "" && earlier.RawSHR != "" {
		plan, other = earlier, later
	}

	m := later
	m.SID = firstNonEmpty(later.SID, earlier.SID)
	m.FlightDate = firstTime(plan.FlightDate, other.FlightDate)
	m.Departure, m.DepartureRegion = pickPoint(plan.Departure, plan.DepartureRegion, other.Departure, other.DepartureRegion)
	m.Arrival, m.ArrivalRegion = pickPoint(plan.Arrival, plan.ArrivalRegion, other.Arrival, other.ArrivalRegion)
	m.Operator = firstNonEmpty(plan.Operator, other.Operator)
	m.OperatorPhone = firstNonEmpty(plan.OperatorPhone, other.OperatorPhone)
	m.UAVType = firstNonEmpty(plan.UAVType, other.UAVType)
	m.UAVRegistration = firstNonEmpty(plan.UAVRegistration, other.UAVRegistration)
	m.Zone = firstNonEmpty(plan.Zone, other.Zone)
	m.Altitude = plan.Altitude
	if m.Altitude == nil {
		m.Altitude = other.Altitude
	}

	m.DepartureTime = firstTime(later.DepartureTime, earlier.DepartureTime)
	m.ArrivalTime = firstTime(later.ArrivalTime, earlier.ArrivalTime)
	m.CenterName = firstNonEmpty(later.CenterName, earlier.CenterName)
	m.Region = firstNonEmpty(later.Region, earlier.Region)
	m.RawSHR = firstNonEmpty(later.RawSHR, earlier.RawSHR)
	m.RawDEP = firstNonEmpty(later.RawDEP, earlier.RawDEP)
	m.RawARR = firstNonEmpty(later.RawARR, earlier.RawARR)
	m.BatchID = firstNonEmpty(later.BatchID, earlier.BatchID)

	m.DurationMinutes = later.DurationMinutes
	if m.DurationMinutes == nil {
		m.DurationMinutes = earlier.DurationMinutes
	}
	if m.DepartureTime != nil && m.ArrivalTime != nil {
		m.DurationMinutes = nil
		if minutes, ok := ComputeDuration(m.DepartureTime, m.ArrivalTime); ok {
			arrival := RolloverArrival(*m.DepartureTime, *m.ArrivalTime)
			m.ArrivalTime = &arrival
			m.DurationMinutes = &minutes
		}
	}
	return m
}

// pickPoint keeps a coordinate together with the region resolved for it.
func pickPoint(first *Coordinate, firstRegion string, second *Coordinate, secondRegion string) (*Coordinate, string) {
	switch {
	case first != nil:
		return first, firstRegion
	case second != nil:
		return second, secondRegion
	default:
		return nil, firstNonEmpty(firstRegion, secondRegion)
	}
}
