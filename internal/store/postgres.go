package store

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/rotisserie/eris"

	"github.com/capital-stats/percapita/internal/db"
	"github.com/capital-stats/percapita/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool db.Pool
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	maxConns := int32(10)
	if poolCfg != nil && poolCfg.MaxConns > 0 {
		maxConns = poolCfg.MaxConns
	}

	pool, err := db.Connect(ctx, connString, maxConns)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: connect")
	}
	return &PostgresStore{pool: pool}, nil
}

const (
	ratesTable     = "percapita.rates"
	estimatesTable = "percapita.estimates"
)

const postgresMigration = `
CREATE SCHEMA IF NOT EXISTS percapita;

CREATE TABLE IF NOT EXISTS percapita.runs (
	id           TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	status       TEXT NOT NULL DEFAULT 'running',
	min_year     INTEGER NOT NULL DEFAULT 0,
	max_year     INTEGER NOT NULL DEFAULT 0,
	regions      INTEGER NOT NULL DEFAULT 0,
	skipped      INTEGER NOT NULL DEFAULT 0,
	failed       INTEGER NOT NULL DEFAULT 0,
	error        TEXT NOT NULL DEFAULT '',
	started_at   TIMESTAMPTZ NOT NULL DEFAULT now(),
	completed_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS percapita.rates (
	run_id TEXT NOT NULL REFERENCES percapita.runs(id),
	region TEXT NOT NULL,
	year   INTEGER NOT NULL,
	rate   DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, region, year)
);

CREATE TABLE IF NOT EXISTS percapita.estimates (
	run_id     TEXT NOT NULL REFERENCES percapita.runs(id),
	region     TEXT NOT NULL,
	year       INTEGER NOT NULL,
	population DOUBLE PRECISION NOT NULL,
	PRIMARY KEY (run_id, region, year)
);

CREATE INDEX IF NOT EXISTS idx_runs_status ON percapita.runs(status);
CREATE INDEX IF NOT EXISTS idx_runs_started_at ON percapita.runs(started_at DESC);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, minYear, maxYear int) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO percapita.runs (id, status, min_year, max_year, started_at) VALUES ($1, $2, $3, $4, $5)`,
		id, string(model.RunStatusRunning), minYear, maxYear, now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Status:    model.RunStatusRunning,
		MinYear:   minYear,
		MaxYear:   maxYear,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) CompleteRun(ctx context.Context, runID string, summary model.RunSummary) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE percapita.runs SET status = $1, regions = $2, skipped = $3, failed = $4, completed_at = $5 WHERE id = $6`,
		string(model.RunStatusComplete), summary.Regions, summary.Skipped, summary.Failed, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: complete run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: run %s", runID)
	}
	return nil
}

func (s *PostgresStore) FailRun(ctx context.Context, runID string, runErr error) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE percapita.runs SET status = $1, error = $2, completed_at = $3 WHERE id = $4`,
		string(model.RunStatusFailed), errorText(runErr), time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: fail run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: run %s", runID)
	}
	return nil
}

const pgRunColumns = `id, status, min_year, max_year, regions, skipped, failed, error, started_at, completed_at`

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+pgRunColumns+` FROM percapita.runs WHERE id = $1`,
		runID,
	)
	r, err := scanPgRun(row)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + pgRunColumns + ` FROM percapita.runs WHERE 1=1`
	var args []any

	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $1`
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	args = append(args, limit)
	query += ` LIMIT $` + strconv.Itoa(len(args))

	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += ` OFFSET $` + strconv.Itoa(len(args))
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPgRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: list runs")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

// SaveRates upserts the rate table so a re-saved run replaces its values.
func (s *PostgresStore) SaveRates(ctx context.Context, runID string, rates *model.PerCapitaTable) (int64, error) {
	n, err := db.BulkUpsert(ctx, s.pool, db.UpsertConfig{
		Table:        ratesTable,
		Columns:      []string{"run_id", "region", "year", "rate"},
		ConflictKeys: []string{"run_id", "region", "year"},
	}, tableRows(runID, rates))
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: save rates %s", runID)
	}
	return n, nil
}

// SaveEstimates COPYs the estimate table; each run writes its rows once.
func (s *PostgresStore) SaveEstimates(ctx context.Context, runID string, estimates *model.EstimateTable) (int64, error) {
	n, err := db.CopyFrom(ctx, s.pool, estimatesTable,
		[]string{"run_id", "region", "year", "population"},
		tableRows(runID, estimates),
	)
	if err != nil {
		return 0, eris.Wrapf(err, "postgres: save estimates %s", runID)
	}
	return n, nil
}

func (s *PostgresStore) LoadRates(ctx context.Context, runID string) (*model.PerCapitaTable, string, error) {
	if runID == "" {
		err := s.pool.QueryRow(ctx,
			`SELECT id FROM percapita.runs WHERE status = $1 ORDER BY started_at DESC LIMIT 1`,
			string(model.RunStatusComplete),
		).Scan(&runID)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, "", eris.Wrap(ErrNotFound, "postgres: no complete run")
		}
		if err != nil {
			return nil, "", eris.Wrap(err, "postgres: latest run")
		}
	}

	rows, err := s.pool.Query(ctx,
		`SELECT region, year, rate FROM percapita.rates WHERE run_id = $1 ORDER BY region, year`,
		runID,
	)
	if err != nil {
		return nil, "", eris.Wrapf(err, "postgres: load rates %s", runID)
	}
	defer rows.Close()

	grouped := make(map[string]model.YearValues)
	for rows.Next() {
		var (
			region string
			year   int
			rate   float64
		)
		if err := rows.Scan(&region, &year, &rate); err != nil {
			return nil, "", eris.Wrap(err, "postgres: scan rate")
		}
		if grouped[region] == nil {
			grouped[region] = make(model.YearValues)
		}
		grouped[region][year] = rate
	}
	if err := rows.Err(); err != nil {
		return nil, "", eris.Wrap(err, "postgres: load rates iterate")
	}

	table := model.NewRegionTable()
	for region, row := range grouped {
		table.Put(region, row)
	}
	return table, runID, nil
}

func scanPgRun(row pgx.Row) (*model.Run, error) {
	var r model.Run
	var status string
	err := row.Scan(&r.ID, &status, &r.MinYear, &r.MaxYear, &r.Regions, &r.Skipped, &r.Failed, &r.Error, &r.StartedAt, &r.CompletedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	return &r, nil
}
