package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/atlas-cli/internal/choropleth"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id         TEXT PRIMARY KEY,
	status     TEXT NOT NULL DEFAULT 'queued',
	params     TEXT NOT NULL,
	summary    TEXT,
	error      TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);

CREATE TABLE IF NOT EXISTS region_results (
	run_id      TEXT NOT NULL REFERENCES runs(id),
	region_id   TEXT NOT NULL,
	name        TEXT NOT NULL,
	count       INTEGER NOT NULL,
	rate        REAL NOT NULL,
	count_class INTEGER NOT NULL,
	rate_class  INTEGER NOT NULL,
	class       TEXT NOT NULL,
	color       TEXT NOT NULL,
	PRIMARY KEY (run_id, region_id)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_created_at ON runs(created_at);
`

// Migrate creates the schema if it does not already exist.
func (s *SQLiteStore) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, sqliteMigration); err != nil {
		return eris.Wrap(err, "sqlite: migrate")
	}
	return nil
}

// Ping verifies the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return eris.Wrap(s.db.PingContext(ctx), "sqlite: ping")
}

// Close releases the underlying database handle.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return eris.Wrap(err, "sqlite: close")
	}
	return nil
}

// CreateRun inserts a new queued run and returns it.
func (s *SQLiteStore) CreateRun(ctx context.Context, params RunParams) (*Run, error) {
	paramsJSON, err := json.Marshal(params)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal run params")
	}

	now := time.Now().UTC()
	run := &Run{
		ID:        uuid.New().String(),
		Status:    RunStatusQueued,
		Params:    params,
		CreatedAt: now,
		UpdatedAt: now,
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, params, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID, run.Status, string(paramsJSON), run.CreatedAt, run.UpdatedAt)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}
	return run, nil
}

// StartRun marks a run as running.
func (s *SQLiteStore) StartRun(ctx context.Context, runID string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, updated_at = ? WHERE id = ?`,
		RunStatusRunning, time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrap(err, "sqlite: start run")
	}
	return checkRowsAffected(res, runID)
}

// CompleteRun marks a run as complete and records its summary.
func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary *RunSummary) error {
	summaryJSON, err := json.Marshal(summary)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal run summary")
	}

	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, summary = ?, updated_at = ? WHERE id = ?`,
		RunStatusComplete, string(summaryJSON), time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrap(err, "sqlite: complete run")
	}
	return checkRowsAffected(res, runID)
}

// FailRun marks a run as failed and records the cause.
func (s *SQLiteStore) FailRun(ctx context.Context, runID, cause string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, updated_at = ? WHERE id = ?`,
		RunStatusFailed, cause, time.Now().UTC(), runID)
	if err != nil {
		return eris.Wrap(err, "sqlite: fail run")
	}
	return checkRowsAffected(res, runID)
}

// GetRun fetches a single run by id.
func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, status, params, summary, error, created_at, updated_at FROM runs WHERE id = ?`,
		runID)

	run, err := scanRun(row)
	if err == sql.ErrNoRows {
		return nil, eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get run")
	}
	return run, nil
}

// ListRuns returns runs matching the filter, newest first.
func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]Run, error) {
	query := `SELECT id, status, params, summary, error, created_at, updated_at FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, filter.Status)
	}
	if filter.Level != "" {
		query += ` AND json_extract(params, '$.level') = ?`
		args = append(args, filter.Level)
	}

	query += ` ORDER BY created_at DESC LIMIT ?`
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *run)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate runs")
	}
	return runs, nil
}

// SaveResults replaces the stored results for a run.
func (s *SQLiteStore) SaveResults(ctx context.Context, runID string, results []choropleth.RegionResult) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return eris.Wrap(err, "sqlite: begin save results")
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM region_results WHERE run_id = ?`, runID); err != nil {
		return eris.Wrap(err, "sqlite: clear results")
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO region_results (run_id, region_id, name, count, rate, count_class, rate_class, class, color)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return eris.Wrap(err, "sqlite: prepare insert results")
	}
	defer stmt.Close()

	for _, r := range results {
		_, err := stmt.ExecContext(ctx,
			runID, r.RegionID, r.Name, r.Count, r.Rate,
			int(r.CountClass), int(r.RateClass), string(r.Class), string(r.Color))
		if err != nil {
			return eris.Wrapf(err, "sqlite: insert result for region %s", r.RegionID)
		}
	}

	if err := tx.Commit(); err != nil {
		return eris.Wrap(err, "sqlite: commit save results")
	}
	return nil
}

// GetResults returns the stored results for a run ordered by region id.
func (s *SQLiteStore) GetResults(ctx context.Context, runID string) ([]choropleth.RegionResult, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT region_id, name, count, rate, count_class, rate_class, class, color
		 FROM region_results WHERE run_id = ? ORDER BY region_id`,
		runID)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get results")
	}
	defer rows.Close()

	var results []choropleth.RegionResult
	for rows.Next() {
		r, err := scanRegionResult(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan result")
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, eris.Wrap(err, "sqlite: iterate results")
	}
	return results, nil
}

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "run %s", runID)
	}
	return nil
}

// scannable abstracts over *sql.Row and *sql.Rows.
type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*Run, error) {
	var (
		run         Run
		paramsJSON  string
		summaryJSON sql.NullString
		errMsg      sql.NullString
	)

	err := row.Scan(&run.ID, &run.Status, &paramsJSON, &summaryJSON, &errMsg,
		&run.CreatedAt, &run.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(paramsJSON), &run.Params); err != nil {
		return nil, eris.Wrap(err, "unmarshal run params")
	}
	if summaryJSON.Valid {
		run.Summary = &RunSummary{}
		if err := json.Unmarshal([]byte(summaryJSON.String), run.Summary); err != nil {
			return nil, eris.Wrap(err, "unmarshal run summary")
		}
	}
	if errMsg.Valid {
		run.Error = errMsg.String
	}
	return &run, nil
}

func scanRegionResult(row scannable) (choropleth.RegionResult, error) {
	var (
		r            choropleth.RegionResult
		countClass   int
		rateClass    int
		class, color string
	)

	err := row.Scan(&r.RegionID, &r.Name, &r.Count, &r.Rate,
		&countClass, &rateClass, &class, &color)
	if err != nil {
		return choropleth.RegionResult{}, err
	}

	r.CountClass = choropleth.ClassIndex(countClass)
	r.RateClass = choropleth.ClassIndex(rateClass)
	r.Class = choropleth.BivariateClass(class)
	r.Color = choropleth.Color(color)
	return r, nil
}
