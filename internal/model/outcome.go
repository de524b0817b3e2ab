package model

import (
	"encoding/json"
	"strings"
	"time"
)

// BatchItem is one input entry. URL is a site-relative fragment such as
// "/wiki/Roja_(film)" or an absolute URL.
type BatchItem struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

// HasURL reports whether the item names a page to crawl.
func (b BatchItem) HasURL() bool { return strings.TrimSpace(b.URL) != "" }

// OutcomeKind tags the variant held by an Outcome.
type OutcomeKind string

const (
	OutcomeSuccess OutcomeKind = "success"
	OutcomeEmpty   OutcomeKind = "empty"
	OutcomeError   OutcomeKind = "error"
)

// Error messages recorded for outcomes that carry no collaborator message.
const (
	ErrMsgDecode     = "Failed to decode JSON"
	ErrMsgEmpty      = "empty extraction"
	ErrMsgCancelled  = "cancelled"
	ErrMsgMissingURL = "missing url"
)

// Outcome is the result of crawling one item. Exactly one variant applies:
// success carries Title and Data, empty and error carry URL and Error.
type Outcome struct {
	Kind  OutcomeKind     `json:"-"`
	Title string          `json:"-"`
	URL   string          `json:"-"`
	Data  json.RawMessage `json:"-"`
	Error string          `json:"-"`
}

// Success builds a success outcome.
func Success(title string, data json.RawMessage) Outcome {
	return Outcome{Kind: OutcomeSuccess, Title: title, Data: data}
}

// Empty builds an empty-extraction outcome for the given URL fragment.
func Empty(url string) Outcome {
	return Outcome{Kind: OutcomeEmpty, URL: url, Error: ErrMsgEmpty}
}

// Failure builds an error outcome for the given URL fragment.
func Failure(url, msg string) Outcome {
	return Outcome{Kind: OutcomeError, URL: url, Error: msg}
}

// OK reports whether the outcome is a success.
func (o Outcome) OK() bool { return o.Kind == OutcomeSuccess }

type successRecord struct {
	Title string          `json:"title"`
	Data  json.RawMessage `json:"data"`
}

type errorRecord struct {
	Error string `json:"error"`
	URL   string `json:"url"`
}

// MarshalJSON renders the batch record projection: {"title","data"} for
// success, {"error","url"} otherwise.
func (o Outcome) MarshalJSON() ([]byte, error) {
	if o.Kind == OutcomeSuccess {
		data := o.Data
		if len(data) == 0 {
			data = json.RawMessage("null")
		}
		return json.Marshal(successRecord{Title: o.Title, Data: data})
	}
	msg := o.Error
	if o.Kind == OutcomeEmpty && msg == "" {
		msg = ErrMsgEmpty
	}
	return json.Marshal(errorRecord{Error: msg, URL: o.URL})
}

// Summary is derived by folding over a finished slice of outcomes.
type Summary struct {
	Total     int `json:"total"`
	Succeeded int `json:"succeeded"`
	Empty     int `json:"empty"`
	Failed    int `json:"failed"`
}

// RunStatus is the lifecycle state of a batch run.
type RunStatus string

const (
	RunRunning  RunStatus = "running"
	RunComplete RunStatus = "complete"
	RunFailed   RunStatus = "failed"
)

// Run is a persisted batch execution.
type Run struct {
	ID         string     `json:"id"`
	Job        string     `json:"job"`
	Status     RunStatus  `json:"status"`
	Summary    Summary    `json:"summary"`
	Output     string     `json:"output,omitempty"`
	Error      string     `json:"error,omitempty"`
	StartedAt  time.Time  `json:"started_at"`
	FinishedAt *time.Time `json:"finished_at,omitempty"`
}

// Record is a persisted outcome of one item within a run.
type Record struct {
	RunID     string    `json:"run_id"`
	Index     int       `json:"index"`
	Item      BatchItem `json:"item"`
	Outcome   Outcome   `json:"outcome"`
	CreatedAt time.Time `json:"created_at"`
}
