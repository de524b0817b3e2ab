package store

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/extract-cli/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

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
			_ = db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS runs (
	id          TEXT PRIMARY KEY,
	job         TEXT NOT NULL,
	status      TEXT NOT NULL DEFAULT 'running',
	total       INTEGER NOT NULL DEFAULT 0,
	succeeded   INTEGER NOT NULL DEFAULT 0,
	empty       INTEGER NOT NULL DEFAULT 0,
	failed      INTEGER NOT NULL DEFAULT 0,
	output      TEXT NOT NULL DEFAULT '',
	error       TEXT NOT NULL DEFAULT '',
	started_at  DATETIME NOT NULL,
	finished_at DATETIME
);

CREATE TABLE IF NOT EXISTS records (
	run_id     TEXT NOT NULL REFERENCES runs(id),
	idx        INTEGER NOT NULL,
	item_title TEXT NOT NULL,
	item_url   TEXT NOT NULL,
	kind       TEXT NOT NULL,
	title      TEXT NOT NULL DEFAULT '',
	url        TEXT NOT NULL DEFAULT '',
	data       TEXT,
	error      TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	PRIMARY KEY (run_id, idx)
);

CREATE TABLE IF NOT EXISTS page_cache (
	url         TEXT PRIMARY KEY,
	page        TEXT NOT NULL,
	source      TEXT NOT NULL,
	fetched_at  DATETIME NOT NULL,
	expires_at  DATETIME NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_runs_job_started ON runs(job, started_at);
CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status);
CREATE INDEX IF NOT EXISTS idx_page_cache_expires_at ON page_cache(expires_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) CreateRun(ctx context.Context, job string) (*model.Run, error) {
	id := uuid.New().String()
	now := time.Now().UTC()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, job, status, started_at) VALUES (?, ?, ?, ?)`,
		id, job, string(model.RunRunning), now,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: insert run")
	}

	return &model.Run{
		ID:        id,
		Job:       job,
		Status:    model.RunRunning,
		StartedAt: now,
	}, nil
}

func (s *SQLiteStore) FinishRun(ctx context.Context, runID string, u RunUpdate) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, total = ?, succeeded = ?, empty = ?, failed = ?, output = ?, error = ?, finished_at = ?
		 WHERE id = ?`,
		string(u.Status), u.Summary.Total, u.Summary.Succeeded, u.Summary.Empty, u.Summary.Failed,
		u.Output, u.Error, time.Now().UTC(), runID,
	)
	if err != nil {
		return eris.Wrapf(err, "sqlite: finish run %s", runID)
	}
	return checkRowsAffected(res, runID)
}

const sqliteRunColumns = `id, job, status, total, succeeded, empty, failed, output, error, started_at, finished_at`

func (s *SQLiteStore) GetRun(ctx context.Context, runID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM runs WHERE id = ?`,
		runID,
	)
	r, err := scanSQLiteRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, eris.Wrapf(ErrNotFound, "sqlite: get run %s", runID)
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: get run %s", runID)
	}
	return r, nil
}

func (s *SQLiteStore) ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error) {
	query := `SELECT ` + sqliteRunColumns + ` FROM runs WHERE 1=1`
	var args []any

	if filter.Job != "" {
		query += ` AND job = ?`
		args = append(args, filter.Job)
	}
	if filter.Status != "" {
		query += ` AND status = ?`
		args = append(args, string(filter.Status))
	}
	query += ` ORDER BY started_at DESC`

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
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
		r, err := scanSQLiteRun(rows)
		if err != nil {
			return nil, eris.Wrap(err, "sqlite: scan run")
		}
		runs = append(runs, *r)
	}
	return runs, eris.Wrap(rows.Err(), "sqlite: list runs iterate")
}

func (s *SQLiteStore) LatestRun(ctx context.Context, job, excludeID string) (*model.Run, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+sqliteRunColumns+` FROM runs WHERE job = ? AND id <> ? ORDER BY started_at DESC LIMIT 1`,
		job, excludeID,
	)
	r, err := scanSQLiteRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: latest run for %s", job)
	}
	return r, nil
}

func (s *SQLiteStore) SaveRecord(ctx context.Context, rec model.Record) error {
	r := toRow(rec)
	var data any
	if r.data != nil {
		data = string(r.data)
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO records (run_id, idx, item_title, item_url, kind, title, url, data, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		 ON CONFLICT (run_id, idx) DO UPDATE SET
		   item_title = excluded.item_title, item_url = excluded.item_url, kind = excluded.kind,
		   title = excluded.title, url = excluded.url, data = excluded.data, error = excluded.error,
		   created_at = excluded.created_at`,
		rec.RunID, rec.Index, r.itemTitle, r.itemURL, r.kind, r.title, r.url, data, r.errMsg, time.Now().UTC(),
	)
	return eris.Wrapf(err, "sqlite: save record %s/%d", rec.RunID, rec.Index)
}

func (s *SQLiteStore) ListRecords(ctx context.Context, runID string) ([]model.Record, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT idx, item_title, item_url, kind, title, url, data, error, created_at
		 FROM records WHERE run_id = ? ORDER BY idx`,
		runID,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: list records %s", runID)
	}
	defer rows.Close() //nolint:errcheck

	var out []model.Record
	for rows.Next() {
		var (
			r    recordRow
			rec  model.Record
			data sql.NullString
		)
		if err := rows.Scan(&rec.Index, &r.itemTitle, &r.itemURL, &r.kind, &r.title, &r.url, &data, &r.errMsg, &rec.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan record")
		}
		if data.Valid {
			r.data = []byte(data.String)
		}
		rec.RunID = runID
		rec.Item = model.BatchItem{Title: r.itemTitle, URL: r.itemURL}
		rec.Outcome = r.outcome()
		out = append(out, rec)
	}
	return out, eris.Wrap(rows.Err(), "sqlite: list records iterate")
}

func (s *SQLiteStore) GetCachedPage(ctx context.Context, url string) (*model.CachedPage, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT page, source, fetched_at, expires_at FROM page_cache WHERE url = ? AND expires_at > ?`,
		url, time.Now().UTC(),
	)

	var (
		cp       model.CachedPage
		pageJSON string
	)
	err := row.Scan(&pageJSON, &cp.Source, &cp.FetchedAt, &cp.ExpiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: get cached page")
	}
	if err := unmarshalPage(pageJSON, &cp.CrawledPage); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal cached page")
	}
	return &cp, nil
}

func (s *SQLiteStore) SetCachedPage(ctx context.Context, url string, page model.CachedPage, ttl time.Duration) error {
	fetched, expires := cacheTimes(page, ttl)
	pageJSON, err := marshalPage(page.CrawledPage)
	if err != nil {
		return eris.Wrap(err, "sqlite: marshal page")
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO page_cache (url, page, source, fetched_at, expires_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (url) DO UPDATE SET page = excluded.page, source = excluded.source,
		   fetched_at = excluded.fetched_at, expires_at = excluded.expires_at`,
		url, pageJSON, page.Source, fetched, expires,
	)
	return eris.Wrap(err, "sqlite: set cached page")
}

func (s *SQLiteStore) DeleteExpiredPages(ctx context.Context) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM page_cache WHERE expires_at <= ?`, time.Now().UTC(),
	)
	if err != nil {
		return 0, eris.Wrap(err, "sqlite: delete expired pages")
	}
	n, err := res.RowsAffected()
	return int(n), eris.Wrap(err, "sqlite: rows affected")
}

// helpers

func checkRowsAffected(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "sqlite: rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "sqlite: run %s", runID)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSQLiteRun(row scannable) (*model.Run, error) {
	var (
		r        model.Run
		finished sql.NullTime
	)
	err := row.Scan(&r.ID, &r.Job, &r.Status,
		&r.Summary.Total, &r.Summary.Succeeded, &r.Summary.Empty, &r.Summary.Failed,
		&r.Output, &r.Error, &r.StartedAt, &finished)
	if err != nil {
		return nil, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	return &r, nil
}
