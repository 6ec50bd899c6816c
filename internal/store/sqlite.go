package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/capital-stats/percapita/internal/model"
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
			db.Close() //nolint:errcheck
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id           TEXT PRIMARY KEY,
	status       TEXT NOT NULL DEFAULT 'running',
	min_year     INTEGER NOT NULL DEFAULT 0,
	max_year     INTEGER NOT NULL DEFAULT 0,
	regions      INTEGER NOT NULL DEFAULT 0,
	skipped      INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	started_at   DATETIME NOT NULL DEFAULT (datetime('now')),
	completed_at DATETIME
);

CREATE TABLE IF NOT EXISTS rates (
	run_id TEXT NOT NULL REFERENCES runs(id),
	region TEXT NOT NULL,
	year   INTEGER NOT NULL,
	rate   REAL NOT NULL,
	PRIMARY KEY (run_id, region, year)
);

CREATE TABLE IF NOT EXISTS estimates (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	region     TEXT NOT NULL,
	year       INTEGER NOT NULL,
	population REAL NOT NULL,
	PRIMARY KEY (run_id, region, year)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON runs(started_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, minYear, maxYear int) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, status, min_year, max_year, started_at) VALUES (?, ?, ?, ?, ?)`,
		id, string(model.RunStatusRunning), minYear, maxYear, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusRunning,
		MinYear:   minYear,
		MaxYear:   maxYear,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) CompleteRun(ctx context.Context, runID string, summary model.RunSummary) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, regions = ?, skipped = ?, failed = ?, completed_at = ? WHERE id = ?`,
		string(model.RunStatusComplete), summary.Regions, summary.Skipped, summary.Failed, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: complete run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

func (s *SQLiteStore) FailRun(ctx context.Context, runID string, runErr error) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		string(model.RunStatusFailed), errorText(runErr), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: fail run %s", runID)
	}
	return checkRowsAffected(res, "run", runID)
}

const sqliteRunColumns = `id, status, min_year, max_year, regions, skipped, failed, error, started_at, completed_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM runs WHERE id = ?`,
		runID,
	)
	return scanRun(row)
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	query += ` LIMIT ?`
	args = append(args, limit)

	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list runs")
	}
	defer rows.Close() //nolint:errcheck

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) SaveRates(ctx context.Context, runID string, rates *model.PerCapitaTable) (int64, error) {
	return s.saveTable(ctx, `INSERT OR REPLACE INTO rates (run_id, region, year, rate) VALUES (?, ?, ?, ?)`, runID, rates)
}

func (s *SQLiteStore) SaveEstimates(ctx context.Context, runID string, estimates *model.EstimateTable) (int64, error) {
	return s.saveTable(ctx, `INSERT OR REPLACE INTO estimates (run_id, region, year, population) VALUES (?, ?, ?, ?)`, runID, estimates)
}

func (s *SQLiteStore) saveTable(ctx context.Context, insertSQL, runID string, t *model.RegionTable) (int64, error) {
	rows := tableRows(runID, t)
	if len(rows) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: begin tx")
	}
	defer tx.Rollback() //nolint:errcheck

	stmt, err := tx.PrepareContext(ctx, insertSQL)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: prepare insert")
	}
	defer stmt.Close() //nolint:errcheck

	for _, r := range rows {
		if _, err := stmt.ExecContext(ctx, r...); err != nil {
			return 0, eris.Wrapf(err, "sqlite: insert %s/%v", r[1], r[2])
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, eris.Wrap(err, "sqlite: commit")
	}
	return int64(len(rows)), nil
}

func (s *SQLiteStore) LoadRates(ctx context.Context, runID string) (*model.PerCapitaTable, string, error) {
	if runID == "" {
		err := s.db.QueryRowContext(ctx,
			`SELECT id FROM runs WHERE status = ? ORDER BY started_at DESC LIMIT 1`,
			string(model.RunStatusComplete),
		).Scan(&runID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, "", eris.Wrap(ErrNotFound, "sqlite: no complete run")
		}
		if err != nil {
			return nil, "", eris.Wrap(err, "sqlite: latest run")
		}
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT region, year, rate FROM rates WHERE run_id = ? ORDER BY region, year`,
		runID,
	)
	if err != nil {
		return nil, "", eris.Wrapf(err, "sqlite: load rates %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	grouped := make(map[string]model.YearValues)
	for rows.Next() {
		var (
			region string
			year   int
			rate   float64
		)
		if err := rows.Scan(&region, &year, &rate); err != nil {
			return nil, "", eris.Wrap(err, "sqlite: scan rate")
		}
		if grouped[region] == nil {
			grouped[region] = make(model.YearValues)
		}
		grouped[region][year] = rate
	}
	if err := rows.Err(); err != nil {
		return nil, "", eris.Wrap(err, "sqlite: load rates iterate")
	}

	table := model.NewRegionTable()
	for region, row := range grouped {
		table.Put(region, row)
	}
	return table, runID, nil
}

// helpers

func checkRowsAffected(res sql.Result, entity, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "%s %s", entity, id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (*model.Run, error) {
	var r model.Run
	var completed sql.NullTime

	err := row.Scan(&r.ID, &r.Status, &r.MinYear, &r.MaxYear, &r.Regions, &r.Skipped, &r.Failed, &r.Error, &r.StartedAt, &completed)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrap(ErrNotFound, "sqlite: run")
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan run")
	}
	if completed.Valid {
		t := completed.Time
		r.CompletedAt = &t
	}
	return &r, nil
}
