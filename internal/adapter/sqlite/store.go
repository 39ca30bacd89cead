// Package sqlite persists enriched flights and serves the listing and
// aggregate queries over them.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bas-flights/telegram-etl/internal/domain"
)

const (
	DefaultListLimit   = 100
	MaxListLimit       = 1000
	DefaultRatingLimit = 10
	MaxRatingLimit     = 100

	dateLayout = "2006-01-02"
)

// Store is a flight table backed by SQLite. A flight whose SID is already
// stored is merged into the stored row with domain.MergeFlight, so a later
// ARR telegram completes the row written from the SHR.
type Store struct {
	db *sql.DB
}

// Open opens or creates the database at path and applies the schema.
// ":memory:" gives a private in-memory database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if isMemory(path) {
		// Each connection to :memory: is its own database.
		db.SetMaxOpenConns(1)
	} else if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable WAL: %w", err)
	}

	if _, err := db.Exec("PRAGMA busy_timeout=5000"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := createSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &Store{db: db}, nil
}

func isMemory(path string) bool {
	return path == ":memory:" || strings.Contains(path, "mode=memory")
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS flights (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		sid TEXT UNIQUE,
		batch_id TEXT,
		flight_date TEXT,
		dep_lat REAL,
		dep_lon REAL,
		dep_time TEXT,
		dep_region TEXT,
		arr_lat REAL,
		arr_lon REAL,
		arr_time TEXT,
		arr_region TEXT,
		duration_minutes INTEGER,
		uav_type TEXT,
		uav_reg TEXT,
		operator TEXT,
		operator_phone TEXT,
		altitude_min INTEGER,
		altitude_max INTEGER,
		zone TEXT,
		status TEXT NOT NULL,
		center_name TEXT,
		sheet_region TEXT,
		raw_shr TEXT,
		raw_dep TEXT,
		raw_arr TEXT,
		processed_at TEXT NOT NULL,
		created_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now')),
		updated_at TEXT NOT NULL DEFAULT (strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
	);

	CREATE INDEX IF NOT EXISTS idx_flights_date_region ON flights(flight_date, dep_region);
	CREATE INDEX IF NOT EXISTS idx_flights_arr_region ON flights(arr_region);
	CREATE INDEX IF NOT EXISTS idx_flights_operator ON flights(operator);
	`
	_, err := db.Exec(schema)
	return err
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable. Used for readiness.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

const upsertFlight = `
	INSERT INTO flights (
		sid, batch_id, flight_date,
		dep_lat, dep_lon, dep_time, dep_region,
		arr_lat, arr_lon, arr_time, arr_region,
		duration_minutes, uav_type, uav_reg, operator, operator_phone,
		altitude_min, altitude_max, zone, status, center_name, sheet_region,
		raw_shr, raw_dep, raw_arr, processed_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(sid) DO UPDATE SET
		batch_id = excluded.batch_id,
		flight_date = excluded.flight_date,
		dep_lat = excluded.dep_lat,
		dep_lon = excluded.dep_lon,
		dep_time = excluded.dep_time,
		dep_region = excluded.dep_region,
		arr_lat = excluded.arr_lat,
		arr_lon = excluded.arr_lon,
		arr_time = excluded.arr_time,
		arr_region = excluded.arr_region,
		duration_minutes = excluded.duration_minutes,
		uav_type = excluded.uav_type,
		uav_reg = excluded.uav_reg,
		operator = excluded.operator,
		operator_phone = excluded.operator_phone,
		altitude_min = excluded.altitude_min,
		altitude_max = excluded.altitude_max,
		zone = excluded.zone,
		status = excluded.status,
		center_name = excluded.center_name,
		sheet_region = excluded.sheet_region,
		raw_shr = excluded.raw_shr,
		raw_dep = excluded.raw_dep,
		raw_arr = excluded.raw_arr,
		processed_at = excluded.processed_at,
		updated_at = strftime('%Y-%m-%dT%H:%M:%SZ', 'now')`

// LoadBatch writes flights in one transaction, merging each flight that
// shares a SID with a stored row.
func (s *Store) LoadBatch(ctx context.Context, flights []domain.EnrichedFlight) error {
	if len(flights) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	lookup, err := tx.PrepareContext(ctx, selectFlights+" WHERE sid = ?")
	if err != nil {
		return fmt.Errorf("prepare lookup: %w", err)
	}
	defer lookup.Close()

	stmt, err := tx.PrepareContext(ctx, upsertFlight)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for i := range flights {
		f := flights[i]
		if f.SID != "" {
			stored, err := scanFlight(lookup.QueryRowContext(ctx, f.SID))
			switch {
			case err == nil:
				f = domain.MergeFlight(stored.EnrichedFlight, f)
			case !errors.Is(err, sql.ErrNoRows):
				return fmt.Errorf("read flight %q: %w", f.SID, err)
			}
		}
		if _, err := stmt.ExecContext(ctx, flightArgs(&f)...); err != nil {
			return fmt.Errorf("store flight %q: %w", f.SID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit flights: %w", err)
	}
	return nil
}

func flightArgs(f *domain.EnrichedFlight) []any {
	var depLat, depLon, arrLat, arrLon, altMin, altMax any
	if f.Departure != nil {
		depLat, depLon = f.Departure.Lat, f.Departure.Lon
	}
	if f.Arrival != nil {
		arrLat, arrLon = f.Arrival.Lat, f.Arrival.Lon
	}
	if f.Altitude != nil {
		altMin, altMax = f.Altitude.Min, f.Altitude.Max
	}

	var duration any
	if f.DurationMinutes != nil {
		duration = *f.DurationMinutes
	}

	return []any{
		nullString(f.SID), nullString(f.BatchID), formatTime(f.FlightDate, dateLayout),
		depLat, depLon, formatTime(f.DepartureTime, time.RFC3339), nullString(f.DepartureRegion),
		arrLat, arrLon, formatTime(f.ArrivalTime, time.RFC3339), nullString(f.ArrivalRegion),
		duration, nullString(f.UAVType), nullString(f.UAVRegistration), nullString(f.Operator), nullString(f.OperatorPhone),
		altMin, altMax, nullString(f.Zone), string(f.Status()), nullString(f.CenterName), nullString(f.Region),
		nullString(f.RawSHR), nullString(f.RawDEP), nullString(f.RawARR), f.ProcessedAt.UTC().Format(time.RFC3339Nano),
	}
}

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func formatTime(t *time.Time, layout string) any {
	if t == nil {
		return nil
	}
	return t.UTC().Format(layout)
}

// dateRange builds the WHERE conditions shared by the listing and aggregate
// queries. Both bounds are inclusive calendar days.
func dateRange(start, end *time.Time) ([]string, []any) {
	var conds []string
	var args []any
	if start != nil {
		conds = append(conds, "flight_date >= ?")
		args = append(args, start.UTC().Format(dateLayout))
	}
	if end != nil {
		conds = append(conds, "flight_date <= ?")
		args = append(args, end.UTC().Format(dateLayout))
	}
	return conds, args
}

func where(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// CheckReadiness implements the HTTP readiness probe.
func (s *Store) CheckReadiness(ctx context.Context) error {
	if err := s.Ping(ctx); err != nil {
		return fmt.Errorf("database unreachable: %w", err)
	}
	return nil
}
