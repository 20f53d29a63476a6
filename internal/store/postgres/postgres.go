// Package postgres provides PostgreSQL-backed implementations of the
// evaluation log and the alert marker store.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/i474232898/calloff/internal/alert"
	"github.com/i474232898/calloff/internal/evaluation"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Compile-time assertions.
var (
	_ evaluation.Log    = (*Log)(nil)
	_ alert.MarkerStore = (*Marker)(nil)
)

// NewMigrator returns a migrator over the embedded migrations. The caller
// must Close it.
func NewMigrator(dsn string) (*migrate.Migrate, error) {
	source, err := iofs.New(migrations, "migrations")
	if err != nil {
		return nil, fmt.Errorf("create migration source: %w", err)
	}

	m, err := migrate.NewWithSourceInstance("iofs", source, dsn)
	if err != nil {
		return nil, fmt.Errorf("create migrator: %w", err)
	}
	return m, nil
}

// Migrate applies every pending up migration.
func Migrate(dsn string) error {
	m, err := NewMigrator(dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run up migrations: %w", err)
	}
	return nil
}

// Connect opens a pool and verifies connectivity.
func Connect(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return pool, nil
}

// Log is an evaluation.Log over the evaluations table. The primary key on ts
// provides dedup; every statement is a single atomic write.
type Log struct {
	pool *pgxpool.Pool
}

func NewLog(pool *pgxpool.Pool) *Log {
	return &Log{pool: pool}
}

const insertEvaluation = `
INSERT INTO evaluations (ts, score, flights, condition, visibility_mi, temp, called_off)
VALUES ($1, $2, $3, $4, $5, $6, $7)
ON CONFLICT (ts) DO NOTHING`

func (l *Log) Append(ctx context.Context, ev evaluation.Evaluation) error {
	if err := ev.Validate(); err != nil {
		return err
	}

	tag, err := l.pool.Exec(ctx, insertEvaluation,
		evaluation.Normalize(ev.Timestamp),
		ev.Score,
		ev.FlightCount,
		ev.Condition,
		ev.VisibilityMiles,
		ev.TemperatureF,
		string(ev.Outcome),
	)
	if err != nil {
		return fmt.Errorf("insert evaluation: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return evaluation.ErrDuplicateTimestamp
	}
	return nil
}

func (l *Log) BackfillOutcome(ctx context.Context, ts time.Time, outcome evaluation.Outcome) error {
	if !outcome.Valid() {
		return fmt.Errorf("%w: outcome %q", evaluation.ErrInvalid, outcome)
	}

	tag, err := l.pool.Exec(ctx,
		`UPDATE evaluations SET called_off = $2 WHERE ts = $1`,
		evaluation.Normalize(ts), string(outcome),
	)
	if err != nil {
		return fmt.Errorf("update outcome: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return evaluation.ErrNotFound
	}
	return nil
}

func (l *Log) ReadAll(ctx context.Context) ([]evaluation.Evaluation, error) {
	rows, err := l.pool.Query(ctx, `
SELECT ts, score, flights, condition, visibility_mi, temp, called_off
FROM evaluations
ORDER BY ts ASC`)
	if err != nil {
		return nil, fmt.Errorf("query evaluations: %w", err)
	}
	defer rows.Close()

	out := make([]evaluation.Evaluation, 0)
	for rows.Next() {
		ev, err := scanEvaluation(rows)
		if err != nil {
			return nil, fmt.Errorf("scan evaluation: %w", err)
		}
		out = append(out, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read evaluations: %w", err)
	}
	return out, nil
}

func scanEvaluation(row pgx.Row) (evaluation.Evaluation, error) {
	var (
		ev      evaluation.Evaluation
		outcome string
	)
	err := row.Scan(
		&ev.Timestamp,
		&ev.Score,
		&ev.FlightCount,
		&ev.Condition,
		&ev.VisibilityMiles,
		&ev.TemperatureF,
		&outcome,
	)
	if err != nil {
		return ev, err
	}
	ev.Timestamp = evaluation.Normalize(ev.Timestamp)
	ev.Outcome = evaluation.Outcome(outcome)
	return ev, nil
}

// Marker is an alert.MarkerStore over the single-row alert_marker table.
type Marker struct {
	pool *pgxpool.Pool
}

func NewMarker(pool *pgxpool.Pool) *Marker {
	return &Marker{pool: pool}
}

func (m *Marker) Load(ctx context.Context) (alert.Marker, error) {
	var (
		date    string
		version int64
	)
	err := m.pool.QueryRow(ctx, `
SELECT COALESCE(to_char(last_sent_date, 'YYYY-MM-DD'), ''), version
FROM alert_marker WHERE id = 1`).Scan(&date, &version)
	if errors.Is(err, pgx.ErrNoRows) {
		return alert.Marker{}, nil
	}
	if err != nil {
		return alert.Marker{}, fmt.Errorf("load alert marker: %w", err)
	}
	return alert.Marker{LastSent: alert.Date(date), Version: version}, nil
}

func (m *Marker) Save(ctx context.Context, expectedVersion int64, sent alert.Date) (alert.Marker, error) {
	var version int64
	err := m.pool.QueryRow(ctx, `
UPDATE alert_marker
SET last_sent_date = $1::date, version = version + 1
WHERE id = 1 AND version = $2
RETURNING version`, string(sent), expectedVersion).Scan(&version)
	if errors.Is(err, pgx.ErrNoRows) {
		return alert.Marker{}, alert.ErrMarkerConflict
	}
	if err != nil {
		return alert.Marker{}, fmt.Errorf("save alert marker: %w", err)
	}
	return alert.Marker{LastSent: sent, Version: version}, nil
}
