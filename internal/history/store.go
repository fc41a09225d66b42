// Package history persists telemetry records to a local SQLite database.
// The table is append-only; the control loop writes one row per reactor
// per cycle and the CLI reads them back for inspection.
package history

import (
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // pure go sqlite driver

	"reactord/internal/report"
)

// Store is a sqlite-backed [report.Recorder].
type Store struct {
	db *sql.DB
}

// Open creates or opens the database at path and ensures the schema.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(`CREATE TABLE IF NOT EXISTS records (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		ts INTEGER NOT NULL,
		reactor TEXT NOT NULL,
		energy_stored REAL NOT NULL,
		energy_capacity REAL NOT NULL,
		fuel_temp REAL NOT NULL,
		casing_temp REAL NOT NULL,
		rod_level INTEGER NOT NULL,
		active INTEGER NOT NULL
	)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create records table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_records_reactor_ts ON records (reactor, ts)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("create records index: %w", err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Append writes one record. Implements [report.Recorder].
func (s *Store) Append(rec report.Record) error {
	_, err := s.db.Exec(
		`INSERT INTO records (ts, reactor, energy_stored, energy_capacity, fuel_temp, casing_temp, rod_level, active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.Time.UnixMilli(), rec.Reactor, rec.EnergyStored, rec.EnergyCapacity,
		rec.FuelTemp, rec.CasingTemp, rec.RodLevel, boolToInt(rec.Active),
	)
	if err != nil {
		return fmt.Errorf("append record: %w", err)
	}
	return nil
}

// List returns the most recent records, newest first. An empty reactor
// name matches all reactors; limit <= 0 means no limit.
func (s *Store) List(reactorID string, limit int) ([]report.Record, error) {
	query := `SELECT ts, reactor, energy_stored, energy_capacity, fuel_temp, casing_temp, rod_level, active
		FROM records`
	args := []any{}
	if reactorID != "" {
		query += ` WHERE reactor = ?`
		args = append(args, reactorID)
	}
	query += ` ORDER BY ts DESC, id DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("select records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []report.Record
	for rows.Next() {
		var (
			rec    report.Record
			ts     int64
			active int
		)
		if err := rows.Scan(&ts, &rec.Reactor, &rec.EnergyStored, &rec.EnergyCapacity,
			&rec.FuelTemp, &rec.CasingTemp, &rec.RodLevel, &active); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Time = time.UnixMilli(ts)
		rec.Active = active != 0
		out = append(out, rec)
	}
	return out, rows.Err()
}

// Reactors returns the distinct reactor identities present in the store.
func (s *Store) Reactors() ([]string, error) {
	rows, err := s.db.Query(`SELECT DISTINCT reactor FROM records ORDER BY reactor`)
	if err != nil {
		return nil, fmt.Errorf("select reactors: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
