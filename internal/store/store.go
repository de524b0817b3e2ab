// Package store persists batch runs, their per-item records and the scraped
// page cache in SQLite or Postgres.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/sells-group/extract-cli/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Job    string          `json:"job,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// RunUpdate is the terminal state of a run.
type RunUpdate struct {
	Status  model.RunStatus
	Summary model.Summary
	Output  string
	Error   string
}

// Store defines the persistence interface for batch runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, job string) (*model.Run, error)
	FinishRun(ctx context.Context, runID string, update RunUpdate) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	// LatestRun returns the newest run of job other than excludeID, or nil.
	LatestRun(ctx context.Context, job, excludeID string) (*model.Run, error)

	// Records
	SaveRecord(ctx context.Context, rec model.Record) error
	ListRecords(ctx context.Context, runID string) ([]model.Record, error)

	// Page cache
	GetCachedPage(ctx context.Context, url string) (*model.CachedPage, error)
	SetCachedPage(ctx context.Context, url string, page model.CachedPage, ttl time.Duration) error
	DeleteExpiredPages(ctx context.Context) (int, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// recordRow is the column layout of a record. The outcome's variant is
// stored in separate columns because its JSON form is a lossy projection.
type recordRow struct {
	kind      string
	title     string
	url       string
	data      []byte
	errMsg    string
	itemTitle string
	itemURL   string
}

func toRow(rec model.Record) recordRow {
	r := recordRow{
		kind:      string(rec.Outcome.Kind),
		title:     rec.Outcome.Title,
		url:       rec.Outcome.URL,
		errMsg:    rec.Outcome.Error,
		itemTitle: rec.Item.Title,
		itemURL:   rec.Item.URL,
	}
	if len(rec.Outcome.Data) > 0 {
		r.data = []byte(rec.Outcome.Data)
	}
	return r
}

func (r recordRow) outcome() model.Outcome {
	o := model.Outcome{
		Kind:  model.OutcomeKind(r.kind),
		Title: r.title,
		URL:   r.url,
		Error: r.errMsg,
	}
	if len(r.data) > 0 {
		o.Data = json.RawMessage(r.data)
	}
	return o
}
