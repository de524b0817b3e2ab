package store

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/extract-cli/internal/model"
)

// Pool is the subset of *pgxpool.Pool the store uses. pgxmock satisfies it
// in tests.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

var _ Store = (*PostgresStore)(nil)

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	job         TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	total       INTEGER NOT NULL DEFAULT 0,
	succeeded   INTEGER NOT NULL DEFAULT 0,
	empty       INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	output      TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	started_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	finished_at TIMESTAMPTZ
);

CREATE TABLE IF NOT EXISTS records (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	idx        INTEGER NOT NULL,
	item_title TEXT NOT NULL,
	item_url   TEXT NOT NULL,
	kind       TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL DEFAULT '',
	data       JSONB,
	error      TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	PRIMARY KEY (run_id, idx)
);

CREATE TABLE IF NOT EXISTS page_cache (
	url        TEXT PRIMARY KEY,
	page       JSONB NOT NULL,
	source     TEXT NOT NULL,
	fetched_at TIMESTAMPTZ NOT NULL DEFAULT now(),
	expires_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_job_started ON runs(job, started_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_page_cache_expires_at ON page_cache(expires_at);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) CreateRun(ctx context.Context, job string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.pool.Exec(ctx,
		`INSERT INTO runs (id, job, status, started_at) VALUES ($1, $2, $3, $4)`,
		id, job, string(model.RunRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: insert run")
	}

	return &model.Run{
		ID:        id,
		Job:       job,
		Status:    model.RunRunning,
		StartedAt: now,
	}, nil
}

func (s *PostgresStore) FinishRun(ctx context.Context, runID string, u RunUpdate) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE runs SET status = $1, total = $2, succeeded = $3, empty = $4, failed = $5, output = $6, error = $7, finished_at = $8
		 WHERE id = $9`,
		string(u.Status), u.Summary.Total, u.Summary.Succeeded, u.Summary.Empty, u.Summary.Failed,
		u.Output, u.Error, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "postgres: finish run %s", runID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "postgres: run %s", runID)
	}
	return nil
}

const postgresRunColumns = `id, job, status, total, succeeded, empty, failed, output, error, started_at, finished_at`

func (s *PostgresStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresRunColumns+` FROM runs WHERE id = $1`,
		runID,
	)
	r, err := scanPostgresRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "postgres: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get run %s", runID)
	}
	return r, nil
}

func (s *PostgresStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + postgresRunColumns + ` FROM runs WHERE 1=1`
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return "$" + itoa(len(args))
	}

	if filter.Job != "" {
		query += ` AND job = ` + arg(filter.Job)
	}
	if filter.Status != "" {
		query += ` AND status = ` + arg(string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	query += ` LIMIT ` + arg(limit)
	if filter.Offset > 0 {
		query += ` OFFSET ` + arg(filter.Offset)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list runs")
	}
	defer rows.Close()

	var runs []model.Run
	for rows.Next() {
		r, err := scanPostgresRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "postgres: list runs iterate")
}

func (s *PostgresStore) LatestRun(ctx context.Context, job, excludeID string) (*model.Run, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT `+postgresRunColumns+` FROM runs WHERE job = $1 AND id <> $2 ORDER BY started_at DESC LIMIT 1`,
		job, excludeID,
	)
	r, err := scanPostgresRun(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: latest run for %s", job)
	}
	return r, nil
}

func (s *PostgresStore) SaveRecord(ctx context.Context, rec model.Record) error {
	r := toRow(rec)
	_, err := s.pool.Exec(ctx,
		`INSERT INTO records (run_id, idx, item_title, item_url, kind, title, url, data, error, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		 ON CONFLICT (run_id, idx) DO UPDATE SET
		   item_title = EXCLUDED.item_title, item_url = EXCLUDED.item_url, kind = EXCLUDED.kind,
		   title = EXCLUDED.title, url = EXCLUDED.url, data = EXCLUDED.data, error = EXCLUDED.error,
		   created_at = EXCLUDED.created_at`,
		rec.RunID, rec.Index, r.itemTitle, r.itemURL, r.kind, r.title, r.url, r.data, r.errMsg, time.Now().UTC(),
	)
	return eris.Wrapf(err, "postgres: save record %s/%d", rec.RunID, rec.Index)
}

func (s *PostgresStore) ListRecords(ctx context.Context, runID string) ([]model.Record, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT idx, item_title, item_url, kind, title, url, data, error, created_at
		 FROM records WHERE run_id = $1 ORDER BY idx`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: list records %s", runID)
	}
	defer rows.Close()

	var out []model.Record
	for rows.Next() {
		var (
			r   recordRow
			rec model.Record
		)
		if err := rows.Scan(&rec.Index, &r.itemTitle, &r.itemURL, &r.kind, &r.title, &r.url, &r.data, &r.errMsg, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan record")
		}
		rec.RunID = runID
		rec.Item = model.BatchItem{Title: r.itemTitle, URL: r.itemURL}
		rec.Outcome = r.outcome()
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "postgres: list records iterate")
}

func (s *PostgresStore) GetCachedPage(ctx context.Context, url string) (*model.CachedPage, error) {
	var (
		cp       model.CachedPage
		pageJSON string
	)
	err := s.pool.QueryRow(ctx,
		`SELECT page::text, source, fetched_at, expires_at FROM page_cache WHERE url = $1 AND expires_at > now()`,
		url,
	).Scan(&pageJSON, &cp.Source, &cp.FetchedAt, &cp.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "postgres: get cached page")
	}
	if err := unmarshalPage(pageJSON, &cp.CrawledPage); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal cached page")
	}
	return &cp, nil
}

func (s *PostgresStore) SetCachedPage(ctx context.Context, url string, page model.CachedPage, ttl time.Duration) error {
	fetched, expires := cacheTimes(page, ttl)
	pageJSON, err := marshalPage(page.CrawledPage)
	if err != nil {
		return eris.Wrap(err, "postgres: marshal page")
	}

	_, err = s.pool.Exec(ctx,
		`INSERT INTO page_cache (url, page, source, fetched_at, expires_at) VALUES ($1, $2::jsonb, $3, $4, $5)
		 ON CONFLICT (url) DO UPDATE SET page = EXCLUDED.page, source = EXCLUDED.source,
		   fetched_at = EXCLUDED.fetched_at, expires_at = EXCLUDED.expires_at`,
		url, pageJSON, page.Source, fetched, expires,
	)
	return eris.Wrap(err, "postgres: set cached page")
}

func (s *PostgresStore) DeleteExpiredPages(ctx context.Context) (int, error) {
	tag, err := s.pool.Exec(ctx, `DELETE FROM page_cache WHERE expires_at <= now()`)
	if err != nil {
		return 0, eris.Wrap(err, "postgres: delete expired pages")
	}
	return int(tag.RowsAffected()), nil
}

func scanPostgresRun(row pgx.Row) (*model.Run, error) {
	var (
		r        model.Run
		status   string
		finished *time.Time
	)
	err := row.Scan(&r.ID, &r.Job, &status,
		&r.Summary.Total, &r.Summary.Succeeded, &r.Summary.Empty, &r.Summary.Failed,
		&r.Output, &r.Error, &r.StartedAt, &finished)
	if err != nil {
		return nil, err
	}
	r.Status = model.RunStatus(status)
	r.FinishedAt = finished
	return &r, nil
}
