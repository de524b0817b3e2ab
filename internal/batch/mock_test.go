package batch

import (
	"context"
	"sync"
	"time"

	"github.com/sells-group/extract-cli/internal/crawler"
	"github.com/sells-group/extract-cli/internal/extract"
	"github.com/sells-group/extract-cli/internal/model"
)

type fakeRunner struct {
	mu      sync.Mutex
	results map[string]model.CrawlResult
	urls    []string
	onRun   func()
}

func (f *fakeRunner) Run(ctx context.Context, url string, _ crawler.Extractor) model.CrawlResult {
	f.mu.Lock()
	f.urls = append(f.urls, url)
	onRun := f.onRun
	f.mu.Unlock()
	if onRun != nil {
		onRun()
	}
	if err := ctx.Err(); err != nil {
		return model.CrawlResult{URL: url, ErrorMessage: model.ErrMsgCancelled}
	}
	if r, ok := f.results[url]; ok {
		return r
	}
	return model.CrawlResult{URL: url, ErrorMessage: "unexpected url"}
}

func success(content string) model.CrawlResult {
	return model.CrawlResult{Success: true, ExtractedContent: &content}
}

func failure(msg string) model.CrawlResult {
	return model.CrawlResult{ErrorMessage: msg}
}

type nopExtractor struct{}

func (nopExtractor) Request() model.CrawlRequest { return model.CrawlRequest{} }

func (nopExtractor) Extract(context.Context, string, string) (*extract.Extraction, error) {
	return &extract.Extraction{}, nil
}

func wikiURL(item model.BatchItem) string { return "https://en.wikipedia.org" + item.URL }

type recordingPacer struct {
	waits      int
	dones      int
	successes  int
	rateLimits []time.Duration
	failOnWait int
}

func (p *recordingPacer) Wait(ctx context.Context) error {
	p.waits++
	if p.failOnWait > 0 && p.waits == p.failOnWait {
		return context.Canceled
	}
	return ctx.Err()
}

func (p *recordingPacer) Done()      { p.dones++ }
func (p *recordingPacer) OnSuccess() { p.successes++ }

func (p *recordingPacer) OnRateLimit(d time.Duration) { p.rateLimits = append(p.rateLimits, d) }
