// Package store keeps a history of pipeline runs and the canonical table
// each run produced in SQLite or PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/couchcryptid/grid-capacity-etl/internal/domain"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Supported database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// ErrUnsupportedDriver is returned by Open for unknown driver names.
var ErrUnsupportedDriver = errors.New("unsupported database driver")

// Run is one completed pipeline run.
type Run struct {
	ID         uuid.UUID
	StartedAt  time.Time
	FinishedAt time.Time
	Sources    int
	Records    int
	Dropped    int
}

// Store persists runs and their canonical records.
type Store struct {
	db     *sql.DB
	driver string
	logger *slog.Logger
}

// Open connects to the database and creates the tables if needed. For
// SQLite dsn is a file path.
func Open(ctx context.Context, driver, dsn string, logger *slog.Logger) (*Store, error) {
	switch driver {
	case DriverSQLite:
		if dir := filepath.Dir(dsn); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("store: %w", err)
			}
		}
	case DriverPostgres:
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedDriver, driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("store: open: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: ping: %w", err)
	}
	if driver == DriverSQLite {
		// Writes come from a single pipeline run.
		db.SetMaxOpenConns(1)
		if _, err := db.ExecContext(ctx, `PRAGMA journal_mode = WAL;`); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("store: %w", err)
		}
	}

	s := &Store{db: db, driver: driver, logger: logger}
	if err := s.migrate(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: migrate: %w", err)
	}
	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// CheckReadiness pings the database.
func (s *Store) CheckReadiness(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS pipeline_runs (
		run_id      TEXT PRIMARY KEY,
		started_at  TEXT NOT NULL,
		finished_at TEXT NOT NULL,
		sources     INTEGER NOT NULL,
		records     INTEGER NOT NULL,
		dropped     INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS canonical_records (
		run_id           TEXT NOT NULL REFERENCES pipeline_runs(run_id) ON DELETE CASCADE,
		seq              INTEGER NOT NULL,
		grid_operator    TEXT NOT NULL,
		substation_name  TEXT NOT NULL,
		substation_id    TEXT NOT NULL,
		province         TEXT NOT NULL,
		municipality     TEXT NOT NULL,
		latitude         DOUBLE PRECISION NOT NULL,
		longitude        DOUBLE PRECISION NOT NULL,
		voltage_kv       DOUBLE PRECISION,
		cap_available    DOUBLE PRECISION NOT NULL,
		cap_committed    DOUBLE PRECISION NOT NULL,
		cap_occupied     DOUBLE PRECISION NOT NULL,
		cap_unevaluated  DOUBLE PRECISION NOT NULL,
		cap_total        DOUBLE PRECISION NOT NULL,
		availability_pct DOUBLE PRECISION NOT NULL,
		color_bucket     TEXT NOT NULL,
		radius           DOUBLE PRECISION NOT NULL,
		comments         TEXT NOT NULL,
		PRIMARY KEY (run_id, seq)
	)`,
	`CREATE INDEX IF NOT EXISTS idx_canonical_records_operator ON canonical_records(run_id, grid_operator)`,
}

func (s *Store) migrate(ctx context.Context) error {
	for _, m := range migrations {
		if _, err := s.db.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return nil
}

const insertRecord = `INSERT INTO canonical_records (
	run_id, seq, grid_operator, substation_name, substation_id, province, municipality,
	latitude, longitude, voltage_kv, cap_available, cap_committed, cap_occupied,
	cap_unevaluated, cap_total, availability_pct, color_bucket, radius, comments
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`

// SaveRun stores run and its records in one transaction.
func (s *Store) SaveRun(ctx context.Context, run Run, recs []domain.CanonicalRecord) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO pipeline_runs (run_id, started_at, finished_at, sources, records, dropped)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		run.ID.String(),
		run.StartedAt.UTC().Format(time.RFC3339Nano),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		run.Sources, run.Records, run.Dropped,
	); err != nil {
		return fmt.Errorf("store: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, insertRecord)
	if err != nil {
		return fmt.Errorf("store: prepare: %w", err)
	}
	defer stmt.Close()

	for i, r := range recs {
		var voltage sql.NullFloat64
		if r.VoltageKV != nil {
			voltage = sql.NullFloat64{Float64: *r.VoltageKV, Valid: true}
		}
		if _, err := stmt.ExecContext(ctx,
			run.ID.String(), i,
			r.GridOperator, r.SubstationName, r.SubstationID, r.Province, r.Municipality,
			r.Latitude, r.Longitude, voltage,
			r.CapAvailable, r.CapCommitted, r.CapOccupied, r.CapUnevaluated,
			r.CapTotal, r.AvailabilityPct, string(r.ColorBucket), r.Radius, r.Comments,
		); err != nil {
			return fmt.Errorf("store: insert record %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	s.logger.Info("run saved", "run_id", run.ID, "records", len(recs), "driver", s.driver)
	return nil
}

// LatestRun returns the most recently finished run. ok is false when no
// run has been stored.
func (s *Store) LatestRun(ctx context.Context) (run Run, ok bool, err error) {
	var id, started, finished string
	err = s.db.QueryRowContext(ctx,
		`SELECT run_id, started_at, finished_at, sources, records, dropped
		 FROM pipeline_runs ORDER BY finished_at DESC LIMIT 1`,
	).Scan(&id, &started, &finished, &run.Sources, &run.Records, &run.Dropped)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("store: latest run: %w", err)
	}

	if run.ID, err = uuid.Parse(id); err != nil {
		return Run{}, false, fmt.Errorf("store: run id: %w", err)
	}
	if run.StartedAt, err = time.Parse(time.RFC3339Nano, started); err != nil {
		return Run{}, false, fmt.Errorf("store: started_at: %w", err)
	}
	if run.FinishedAt, err = time.Parse(time.RFC3339Nano, finished); err != nil {
		return Run{}, false, fmt.Errorf("store: finished_at: %w", err)
	}
	return run, true, nil
}

// Records returns the canonical records of a run in their original order.
func (s *Store) Records(ctx context.Context, runID uuid.UUID) ([]domain.CanonicalRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT grid_operator, substation_name, substation_id, province, municipality,
		        latitude, longitude, voltage_kv, cap_available, cap_committed, cap_occupied,
		        cap_unevaluated, cap_total, availability_pct, color_bucket, radius, comments
		 FROM canonical_records WHERE run_id = $1 ORDER BY seq`,
		runID.String(),
	)
	if err != nil {
		return nil, fmt.Errorf("store: query records: %w", err)
	}
	defer rows.Close()

	var out []domain.CanonicalRecord
	for rows.Next() {
		var (
			r       domain.CanonicalRecord
			voltage sql.NullFloat64
			bucket  string
		)
		if err := rows.Scan(
			&r.GridOperator, &r.SubstationName, &r.SubstationID, &r.Province, &r.Municipality,
			&r.Latitude, &r.Longitude, &voltage,
			&r.CapAvailable, &r.CapCommitted, &r.CapOccupied, &r.CapUnevaluated,
			&r.CapTotal, &r.AvailabilityPct, &bucket, &r.Radius, &r.Comments,
		); err != nil {
			return nil, fmt.Errorf("store: scan record: %w", err)
		}
		if voltage.Valid {
			v := voltage.Float64
			r.VoltageKV = &v
		}
		r.ColorBucket = domain.ColorBucket(bucket)
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: read records: %w", err)
	}
	return out, nil
}
