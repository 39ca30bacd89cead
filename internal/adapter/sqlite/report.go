package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/bas-flights/telegram-etl/internal/domain"
)

// UnknownRegion labels report rows for flights without a departure region.
const UnknownRegion = "Неизвестный"

// RegionStatistics describes the flights touching one region.
type RegionStatistics struct {
	Region             string  `json:"region"`
	TotalFlights       int     `json:"total_flights"`
	TotalDurationHours float64 `json:"total_duration_hours"`
	UniqueOperators    int     `json:"unique_operators"`
	UniqueUAVTypes     int     `json:"unique_uav_types"`
	PeakHour           int     `json:"peak_hour"`
	PeakHourFlights    int     `json:"peak_hour_flights"`
	ZeroFlightDays     int     `json:"zero_flight_days"`
	AvgFlightsPerDay   float64 `json:"avg_flights_per_day"`
}

// RegionStatistics aggregates flights departing from or arriving in region.
// The peak hour is the departure hour (UTC) with the most flights, the
// earliest on ties. Zero-flight days and the daily average need both bounds
// and are zero otherwise.
func (s *Store) RegionStatistics(ctx context.Context, region string, start, end *time.Time) (RegionStatistics, error) {
	conds, args := dateRange(start, end)
	conds = append(conds, "(dep_region = ? OR arr_region = ?)")
	args = append(args, region, region)
	filter := where(conds)

	stats := RegionStatistics{Region: region}
	var (
		minutes    int64
		flightDays int
	)
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COALESCE(SUM(duration_minutes), 0),
		COUNT(DISTINCT operator), COUNT(DISTINCT uav_type), COUNT(DISTINCT flight_date)
		FROM flights`+filter, args...).Scan(
		&stats.TotalFlights, &minutes, &stats.UniqueOperators, &stats.UniqueUAVTypes, &flightDays,
	); err != nil {
		return RegionStatistics{}, fmt.Errorf("query region statistics: %w", err)
	}
	stats.TotalDurationHours = float64(minutes) / 60

	err := s.db.QueryRowContext(ctx, `SELECT CAST(substr(dep_time, 12, 2) AS INTEGER) AS hour, COUNT(*)
		FROM flights`+filter+` AND dep_time IS NOT NULL
		GROUP BY hour
		ORDER BY COUNT(*) DESC, hour
		LIMIT 1`, args...).Scan(&stats.PeakHour, &stats.PeakHourFlights)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return RegionStatistics{}, fmt.Errorf("query peak hour: %w", err)
	}

	if start != nil && end != nil {
		days := int(end.Sub(*start).Hours()/24) + 1
		if stats.TotalFlights > 0 {
			stats.ZeroFlightDays = max(days-flightDays, 0)
		}
		stats.AvgFlightsPerDay = float64(stats.TotalFlights) / float64(max(days, 1))
	}
	return stats, nil
}

// Report is the JSON flight report for a period.
type Report struct {
	Metadata ReportMetadata          `json:"metadata"`
	Summary  ReportSummary           `json:"summary"`
	ByRegion map[string]RegionReport `json:"by_region"`
}

type ReportMetadata struct {
	GeneratedAt  time.Time `json:"generated_at"`
	PeriodStart  string    `json:"period_start,omitempty"`
	PeriodEnd    string    `json:"period_end,omitempty"`
	TotalRecords int       `json:"total_records"`
}

type ReportSummary struct {
	TotalFlights     int     `json:"total_flights"`
	UniqueOperators  int     `json:"unique_operators"`
	UniqueRegions    int     `json:"unique_regions"`
	TotalFlightHours float64 `json:"total_flight_hours"`
}

// RegionReport groups the flights of one departure region.
type RegionReport struct {
	Flights         int      `json:"flights"`
	DurationMinutes int      `json:"duration_minutes"`
	Operators       []string `json:"operators"`
}

// Report builds the flight report for [start, end], optionally restricted to
// the given departure regions. Flights without a departure region are grouped
// under UnknownRegion.
func (s *Store) Report(ctx context.Context, start, end *time.Time, regions []string) (Report, error) {
	conds, args := dateRange(start, end)
	if len(regions) > 0 {
		conds = append(conds, "dep_region IN (?"+strings.Repeat(", ?", len(regions)-1)+")")
		for _, r := range regions {
			args = append(args, r)
		}
	}
	filter := where(conds)

	rep := Report{ByRegion: map[string]RegionReport{}}
	rep.Metadata.GeneratedAt = domain.Now()
	if start != nil {
		rep.Metadata.PeriodStart = start.UTC().Format(dateLayout)
	}
	if end != nil {
		rep.Metadata.PeriodEnd = end.UTC().Format(dateLayout)
	}

	var minutes int64
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*), COUNT(DISTINCT operator), COUNT(DISTINCT dep_region),
		COALESCE(SUM(duration_minutes), 0)
		FROM flights`+filter, args...).Scan(
		&rep.Summary.TotalFlights, &rep.Summary.UniqueOperators, &rep.Summary.UniqueRegions, &minutes,
	); err != nil {
		return Report{}, fmt.Errorf("query report summary: %w", err)
	}
	rep.Summary.TotalFlightHours = float64(minutes) / 60
	rep.Metadata.TotalRecords = rep.Summary.TotalFlights

	regionArgs := append([]any{UnknownRegion}, args...)
	rows, err := s.db.QueryContext(ctx, `SELECT COALESCE(dep_region, ?) AS region, COUNT(*),
		COALESCE(SUM(duration_minutes), 0)
		FROM flights`+filter+`
		GROUP BY region`, regionArgs...)
	if err != nil {
		return Report{}, fmt.Errorf("query report regions: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var (
			name string
			rr   RegionReport
		)
		if err := rows.Scan(&name, &rr.Flights, &rr.DurationMinutes); err != nil {
			return Report{}, fmt.Errorf("scan report region: %w", err)
		}
		rr.Operators = []string{}
		rep.ByRegion[name] = rr
	}
	if err := rows.Err(); err != nil {
		return Report{}, fmt.Errorf("iterate report regions: %w", err)
	}

	opConds := append(slices.Clone(conds), "operator IS NOT NULL")
	ops, err := s.db.QueryContext(ctx, `SELECT DISTINCT COALESCE(dep_region, ?), operator
		FROM flights`+where(opConds)+`
		ORDER BY 1, 2`, regionArgs...)
	if err != nil {
		return Report{}, fmt.Errorf("query report operators: %w", err)
	}
	defer ops.Close()
	for ops.Next() {
		var name, operator string
		if err := ops.Scan(&name, &operator); err != nil {
			return Report{}, fmt.Errorf("scan report operator: %w", err)
		}
		rr := rep.ByRegion[name]
		rr.Operators = append(rr.Operators, operator)
		rep.ByRegion[name] = rr
	}
	if err := ops.Err(); err != nil {
		return Report{}, fmt.Errorf("iterate report operators: %w", err)
	}
	return rep, nil
}
