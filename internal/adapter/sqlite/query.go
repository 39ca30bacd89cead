package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bas-flights/telegram-etl/internal/domain"
)

// Filter narrows a flight listing. Region matches either end of the flight.
type Filter struct {
	Start  *time.Time
	End    *time.Time
	Region string
	Offset int
	Limit  int
}

// StoredFlight is a flight as read back from the table.
type StoredFlight struct {
	ID int64 `json:"id"`
	domain.EnrichedFlight
	Status domain.FlightStatus `json:"status"`
}

// Statistics summarizes the flights in a period.
type Statistics struct {
	TotalFlights       int     `json:"total_flights"`
	AvgDurationMinutes float64 `json:"avg_duration_minutes"`
	UniqueOperators    int     `json:"unique_operators"`
	UniqueUAVTypes     int     `json:"unique_uav_types"`
	PeriodStart        string  `json:"period_start,omitempty"`
	PeriodEnd          string  `json:"period_end,omitempty"`
}

// RegionRank is one entry of the departure-region rating.
type RegionRank struct {
	Position           int     `json:"position"`
	Region             string  `json:"region"`
	FlightCount        int     `json:"flight_count"`
	TotalDurationHours float64 `json:"total_duration_hours"`
	UniqueOperators    int     `json:"unique_operators"`
}

const selectFlights = `
	SELECT id, sid, batch_id, flight_date,
		dep_lat, dep_lon, dep_time, dep_region,
		arr_lat, arr_lon, arr_time, arr_region,
		duration_minutes, uav_type, uav_reg, operator, operator_phone,
		altitude_min, altitude_max, zone, status, center_name, sheet_region,
		raw_shr, raw_dep, raw_arr, processed_at
	FROM flights`

// List returns flights in insertion order. A zero limit means
// DefaultListLimit; larger limits are capped at MaxListLimit.
func (s *Store) List(ctx context.Context, f Filter) ([]StoredFlight, error) {
	conds, args := dateRange(f.Start, f.End)
	if f.Region != "" {
		conds = append(conds, "(dep_region = ? OR arr_region = ?)")
		args = append(args, f.Region, f.Region)
	}

	limit := f.Limit
	switch {
	case limit <= 0:
		limit = DefaultListLimit
	case limit > MaxListLimit:
		limit = MaxListLimit
	}
	offset := max(f.Offset, 0)
	args = append(args, limit, offset)

	rows, err := s.db.QueryContext(ctx, selectFlights+where(conds)+" ORDER BY id LIMIT ? OFFSET ?", args...)
	if err != nil {
		return nil, fmt.Errorf("query flights: %w", err)
	}
	defer rows.Close()

	flights := []StoredFlight{}
	for rows.Next() {
		fl, err := scanFlight(rows)
		if err != nil {
			return nil, fmt.Errorf("scan flight: %w", err)
		}
		flights = append(flights, fl)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate flights: %w", err)
	}
	return flights, nil
}

// rowScanner is satisfied by *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanFlight(rows rowScanner) (StoredFlight, error) {
	var (
		fl                                          StoredFlight
		sid, batchID, flightDate                    sql.NullString
		depTime, depRegion, arrTime, arrRegion      sql.NullString
		uavType, uavReg, operator, phone, zone      sql.NullString
		center, sheetRegion, rawSHR, rawDEP, rawARR sql.NullString
		status, processedAt                         string
		depLat, depLon, arrLat, arrLon              sql.NullFloat64
		duration, altMin, altMax                    sql.NullInt64
	)

	if err := rows.Scan(&fl.ID, &sid, &batchID, &flightDate,
		&depLat, &depLon, &depTime, &depRegion,
		&arrLat, &arrLon, &arrTime, &arrRegion,
		&duration, &uavType, &uavReg, &operator, &phone,
		&altMin, &altMax, &zone, &status, &center, &sheetRegion,
		&rawSHR, &rawDEP, &rawARR, &processedAt,
	); err != nil {
		return StoredFlight{}, err
	}

	fl.SID = sid.String
	fl.BatchID = batchID.String
	fl.FlightDate = parseStored(flightDate, dateLayout)
	fl.DepartureTime = parseStored(depTime, time.RFC3339)
	fl.ArrivalTime = parseStored(arrTime, time.RFC3339)
	fl.DepartureRegion = depRegion.String
	fl.ArrivalRegion = arrRegion.String
	fl.UAVType = uavType.String
	fl.UAVRegistration = uavReg.String
	fl.Operator = operator.String
	fl.OperatorPhone = phone.String
	fl.Zone = zone.String
	fl.CenterName = center.String
	fl.Region = sheetRegion.String
	fl.RawSHR = rawSHR.String
	fl.RawDEP = rawDEP.String
	fl.RawARR = rawARR.String
	fl.Status = domain.FlightStatus(status)

	if depLat.Valid && depLon.Valid {
		fl.Departure = &domain.Coordinate{Lat: depLat.Float64, Lon: depLon.Float64}
	}
	if arrLat.Valid && arrLon.Valid {
		fl.Arrival = &domain.Coordinate{Lat: arrLat.Float64, Lon: arrLon.Float64}
	}
	if duration.Valid {
		d := int(duration.Int64)
		fl.DurationMinutes = &d
	}
	if altMin.Valid && altMax.Valid {
		fl.Altitude = &domain.AltitudeBand{Min: int(altMin.Int64), Max: int(altMax.Int64)}
	}
	if t, err := time.Parse(time.RFC3339Nano, processedAt); err == nil {
		fl.ProcessedAt = t
	}
	return fl, nil
}

func parseStored(v sql.NullString, layout string) *time.Time {
	if !v.Valid {
		return nil
	}
	t, err := time.Parse(layout, v.String)
	if err != nil {
		return nil
	}
	return &t
}

// Statistics aggregates the flights whose date falls within [start, end].
// Nil bounds are open.
func (s *Store) Statistics(ctx context.Context, start, end *time.Time) (Statistics, error) {
	conds, args := dateRange(start, end)
	query := `SELECT COUNT(*), AVG(duration_minutes), COUNT(DISTINCT operator), COUNT(DISTINCT uav_type)
		FROM flights` + where(conds)

	var (
		stats Statistics
		avg   sql.NullFloat64
	)
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(
		&stats.TotalFlights, &avg, &stats.UniqueOperators, &stats.UniqueUAVTypes,
	); err != nil {
		return Statistics{}, fmt.Errorf("query statistics: %w", err)
	}
	stats.AvgDurationMinutes = avg.Float64
	if start != nil {
		stats.PeriodStart = start.UTC().Format(dateLayout)
	}
	if end != nil {
		stats.PeriodEnd = end.UTC().Format(dateLayout)
	}
	return stats, nil
}

// RegionRating ranks departure regions by flight count, most active first.
// Flights without a departure region are not ranked.
func (s *Store) RegionRating(ctx context.Context, start, end *time.Time, limit int) ([]RegionRank, error) {
	switch {
	case limit <= 0:
		limit = DefaultRatingLimit
	case limit > MaxRatingLimit:
		limit = MaxRatingLimit
	}

	conds, args := dateRange(start, end)
	conds = append(conds, "dep_region IS NOT NULL")
	args = append(args, limit)

	query := `SELECT dep_region, COUNT(*), COALESCE(SUM(duration_minutes), 0), COUNT(DISTINCT operator)
		FROM flights` + where(conds) + `
		GROUP BY dep_region
		ORDER BY COUNT(*) DESC, dep_region
		LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query region rating: %w", err)
	}
	defer rows.Close()

	rating := []RegionRank{}
	for rows.Next() {
		var (
			rank    RegionRank
			minutes int64
		)
		if err := rows.Scan(&rank.Region, &rank.FlightCount, &minutes, &rank.UniqueOperators); err != nil {
			return nil, fmt.Errorf("scan region rating: %w", err)
		}
		rank.Position = len(rating) + 1
		rank.TotalDurationHours = float64(minutes) / 60
		rating = append(rating, rank)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate region rating: %w", err)
	}
	return rating, nil
}
