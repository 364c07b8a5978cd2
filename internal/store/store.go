// Package store keeps a SQLite ledger of analysis runs so that results from
// successive datasets can be compared.
package store

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/banshee-data/diffusion.report/internal/diffusion"
	"github.com/banshee-data/diffusion.report/internal/fit"
	"github.com/banshee-data/diffusion.report/internal/monitoring"
	"github.com/banshee-data/diffusion.report/internal/timeutil"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// Series names used for the stored fit lines.
const (
	SeriesMSDX     = "msd_x"
	SeriesMSDY     = "msd_y"
	SeriesMSDTotal = "msd_total"
	SeriesMeanX    = "meanx"
	SeriesMeanY    = "meany"
)

// Store is a handle on the run ledger.
type Store struct {
	db    *sql.DB
	clock timeutil.Clock
}

// Fit is one stored line fit.
type Fit struct {
	Series string
	Window int
	Line   fit.Line
}

// Run is one recorded analysis.
type Run struct {
	ID        string
	CreatedAt time.Time
	InputPath string
	Rows      int
	Constants diffusion.Constants
	Fits      []Fit
}

// NewRun builds the ledger record for an analysis of the table at inputPath.
func NewRun(inputPath string, a *diffusion.Analysis) Run {
	return Run{
		InputPath: inputPath,
		Rows:      a.Table.Len(),
		Constants: a.Constants,
		Fits: []Fit{
			{Series: SeriesMSDX, Window: diffusion.MSDWindow, Line: a.Fits.MSDX},
			{Series: SeriesMSDY, Window: diffusion.MSDWindow, Line: a.Fits.MSDY},
			{Series: SeriesMSDTotal, Window: diffusion.MSDWindow, Line: a.Fits.MSDTotal},
			{Series: SeriesMeanX, Window: diffusion.DriftWindow, Line: a.Fits.MeanX},
			{Series: SeriesMeanY, Window: diffusion.DriftWindow, Line: a.Fits.MeanY},
		},
	}
}

// Open opens (creating if needed) the ledger at path and applies any pending
// migrations. A nil clock means wall-clock time.
func Open(path string, clock timeutil.Clock) (*Store, error) {
	if clock == nil {
		clock = timeutil.RealClock{}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open results database %s: %w", path, err)
	}
	// foreign_keys is per connection, so keep a single one.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA foreign_keys = ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	s := &Store{db: db, clock: clock}
	if err := s.migrateUp(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

// Close releases the database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrateUp() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(s.db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("failed to create sqlite driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("failed to create migrate instance: %w", err)
	}
	m.Log = &migrateLogger{}
	// Closing m would close s.db as well.

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Version reports the applied schema version.
func (s *Store) Version(ctx context.Context) (uint, error) {
	var v uint
	err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_migrations LIMIT 1").Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("failed to read schema version: %w", err)
	}
	return v, nil
}

// RecordRun stores r under a fresh ID stamped with the current time and
// returns the stored record.
func (s *Store) RecordRun(ctx context.Context, r Run) (Run, error) {
	r.ID = uuid.NewString()
	r.CreatedAt = s.clock.Now().UTC()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Run{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO analysis_runs (
			run_id, created_unix_nanos, input_path, row_count,
			d_x, d_y, d_total, v_x, v_y
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.CreatedAt.UnixNano(), r.InputPath, r.Rows,
		r.Constants.Dx, r.Constants.Dy, r.Constants.DTotal, r.Constants.Vx, r.Constants.Vy,
	)
	if err != nil {
		return Run{}, fmt.Errorf("failed to insert run: %w", err)
	}

	for _, f := range r.Fits {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO run_fits (run_id, series, fit_window, slope, intercept)
			VALUES (?, ?, ?, ?, ?)`,
			r.ID, f.Series, f.Window, f.Line.Slope, f.Line.Intercept,
		)
		if err != nil {
			return Run{}, fmt.Errorf("failed to insert %s fit: %w", f.Series, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Run{}, fmt.Errorf("failed to commit run: %w", err)
	}
	monitoring.Logf("recorded run %s (%d rows from %s)", r.ID, r.Rows, r.InputPath)
	return r, nil
}

// Runs returns up to limit runs, newest first. A non-positive limit returns
// every run.
func (s *Store) Runs(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, created_unix_nanos, input_path, row_count,
		       d_x, d_y, d_total, v_x, v_y
		FROM analysis_runs
		ORDER BY created_unix_nanos DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}

	var runs []Run
	for rows.Next() {
		var (
			r     Run
			nanos int64
		)
		if err := rows.Scan(
			&r.ID, &nanos, &r.InputPath, &r.Rows,
			&r.Constants.Dx, &r.Constants.Dy, &r.Constants.DTotal,
			&r.Constants.Vx, &r.Constants.Vy,
		); err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		r.CreatedAt = time.Unix(0, nanos).UTC()
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate runs: %w", err)
	}
	// Release the single connection before querying fits.
	rows.Close()

	for i := range runs {
		fits, err := s.fits(ctx, runs[i].ID)
		if err != nil {
			return nil, err
		}
		runs[i].Fits = fits
	}
	return runs, nil
}

func (s *Store) fits(ctx context.Context, runID string) ([]Fit, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT series, fit_window, slope, intercept
		FROM run_fits
		WHERE run_id = ?
		ORDER BY rowid`, runID)
	if err != nil {
		return nil, fmt.Errorf("failed to query fits for run %s: %w", runID, err)
	}
	defer rows.Close()

	var fits []Fit
	for rows.Next() {
		var f Fit
		if err := rows.Scan(&f.Series, &f.Window, &f.Line.Slope, &f.Line.Intercept); err != nil {
			return nil, fmt.Errorf("failed to scan fit: %w", err)
		}
		fits = append(fits, f)
	}
	return fits, rows.Err()
}

// migrateLogger routes golang-migrate output through the monitoring logger.
type migrateLogger struct{}

func (l *migrateLogger) Printf(format string, v ...interface{}) {
	monitoring.Logf("[migrate] "+format, v...)
}

func (l *migrateLogger) Verbose() bool {
	return false
}
