// Package batch drives a job's items through the crawler one at a time and
// turns each crawl into a tagged outcome.
package batch

import (
	"bytes"
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/sells-group/extract-cli/internal/crawler"
	"github.com/sells-group/extract-cli/internal/model"
	"github.com/sells-group/extract-cli/internal/runlog"
)

// Runner crawls one URL. *crawler.Crawler satisfies it.
type Runner interface {
	Run(ctx context.Context, url string, ex crawler.Extractor) model.CrawlResult
}

// Task crawls single items and logs each outcome to the run log.
type Task struct {
	runner    Runner
	extractor crawler.Extractor
	resolve   func(model.BatchItem) string
	log       *runlog.Logger
}

// NewTask creates a Task. resolve turns an item into the URL to crawl; log
// may be nil to discard run-log lines.
func NewTask(runner Runner, ex crawler.Extractor, resolve func(model.BatchItem) string, log *runlog.Logger) *Task {
	if log == nil {
		log = runlog.Discard()
	}
	return &Task{runner: runner, extractor: ex, resolve: resolve, log: log}
}

// Crawl fetches and extracts one item. Failures are returned as error
// outcomes keyed by the item's URL fragment; they never stop the batch.
func (t *Task) Crawl(ctx context.Context, item model.BatchItem) model.Outcome {
	o, _ := t.crawl(ctx, item)
	return o
}

func (t *Task) crawl(ctx context.Context, item model.BatchItem) (model.Outcome, model.CrawlResult) {
	if !item.HasURL() {
		t.log.Printf("Crawl Error for item %q: %s", item.Title, model.ErrMsgMissingURL)
		zap.L().Warn("batch: item has no url", zap.String("title", item.Title))
		return model.Failure(item.URL, model.ErrMsgMissingURL), model.CrawlResult{ErrorMessage: model.ErrMsgMissingURL}
	}

	url := t.resolve(item)
	res := t.runner.Run(ctx, url, t.extractor)

	if !res.Success {
		t.log.Printf("Crawl Error for URL %s: %s", url, res.ErrorMessage)
		zap.L().Warn("batch: crawl failed", zap.String("url", url), zap.String("error", res.ErrorMessage))
		return model.Failure(item.URL, res.ErrorMessage), res
	}

	if res.ExtractedContent == nil {
		t.log.Printf("No data extracted for URL: %s", url)
		return model.Empty(item.URL), res
	}
	content := bytes.TrimSpace([]byte(*res.ExtractedContent))

	var data any
	if err := json.Unmarshal(content, &data); err != nil {
		t.log.Printf("JSON Decode Error for URL %s: %v", url, err)
		zap.L().Warn("batch: extracted content is not JSON", zap.String("url", url), zap.Error(err))
		return model.Failure(item.URL, model.ErrMsgDecode), res
	}
	if isEmpty(data) {
		t.log.Printf("No data extracted for URL: %s", url)
		return model.Empty(item.URL), res
	}

	compact := compactJSON(content)
	t.log.Printf("Successfully crawled and extracted data for URL: %s", url)
	t.log.Printf("title: %s, data: %s", item.Title, compact)
	return model.Success(item.Title, compact), res
}

// isEmpty reports whether decoded content carries no data: null, false, 0,
// "", [] or {}.
func isEmpty(v any) bool {
	switch x := v.(type) {
	case nil:
		return true
	case bool:
		return !x
	case float64:
		return x == 0
	case string:
		return x == ""
	case []any:
		return len(x) == 0
	case map[string]any:
		return len(x) == 0
	}
	return false
}

func compactJSON(b []byte) json.RawMessage {
	var buf bytes.Buffer
	if err := json.Compact(&buf, b); err != nil {
		return json.RawMessage(b)
	}
	return json.RawMessage(buf.Bytes())
}
