// Package crawler runs one URL through scrape, conversion and extraction and
// reports the outcome as a model.CrawlResult.
package crawler

import (
	"context"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/extract-cli/internal/extract"
	"github.com/sells-group/extract-cli/internal/model"
	"github.com/sells-group/extract-cli/internal/resilience"
	"github.com/sells-group/extract-cli/internal/scrape"
)

// Scraper fetches a page. *scrape.Chain satisfies it.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*scrape.Result, error)
}

// Converter renders a page in the requested input format.
type Converter interface {
	Convert(page model.CrawledPage, format model.InputFormat) (string, error)
}

// Extractor turns page content into structured JSON. It carries the crawl
// request it was built from; *extract.Strategy satisfies it.
type Extractor interface {
	Request() model.CrawlRequest
	Extract(ctx context.Context, pageURL, content string) (*extract.Extraction, error)
}

// PageCache stores scraped pages between runs. GetCachedPage returns nil
// without error on a miss or an expired entry.
type PageCache interface {
	GetCachedPage(ctx context.Context, url string) (*model.CachedPage, error)
	SetCachedPage(ctx context.Context, url string, page model.CachedPage, ttl time.Duration) error
}

// Options configures a Crawler.
type Options struct {
	// Cache is consulted only for requests with CacheMode enabled. Nil
	// disables caching entirely.
	Cache    PageCache
	CacheTTL time.Duration

	// Timeout bounds one Run. Zero means no limit.
	Timeout time.Duration
}

// Crawler fetches, converts and extracts a single page per Run.
type Crawler struct {
	scraper   Scraper
	converter Converter
	opts      Options
}

// New creates a Crawler.
func New(scraper Scraper, converter Converter, opts Options) *Crawler {
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = 24 * time.Hour
	}
	return &Crawler{scraper: scraper, converter: converter, opts: opts}
}

// Run crawls url and extracts data with ex. It never returns an error:
// every failure is reported in the result's ErrorMessage.
func (c *Crawler) Run(ctx context.Context, url string, ex Extractor) model.CrawlResult {
	if c.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.opts.Timeout)
		defer cancel()
	}

	req := ex.Request()
	result := model.CrawlResult{URL: url}

	page, source, fromCache, err := c.fetch(ctx, url, req.CacheMode)
	if err != nil {
		return fail(result, err)
	}
	result.StatusCode = page.StatusCode
	result.Source = source
	result.FromCache = fromCache

	text, err := c.converter.Convert(page, req.InputFormat)
	if err != nil {
		return fail(result, eris.Wrapf(err, "crawler: convert %s", url))
	}

	out, err := ex.Extract(ctx, url, text)
	if err != nil {
		return fail(result, err)
	}
	result.Usage = out.Usage
	result.Success = true
	content := out.Content
	result.ExtractedContent = &content

	zap.L().Debug("crawler: extracted",
		zap.String("url", url),
		zap.String("source", source),
		zap.Bool("from_cache", fromCache),
		zap.Int("chunks", out.Chunks),
		zap.Int64("tokens", out.Usage.TotalTokens),
	)
	return result
}

func (c *Crawler) fetch(ctx context.Context, url string, mode model.CacheMode) (model.CrawledPage, string, bool, error) {
	useCache := c.opts.Cache != nil && mode == model.CacheEnabled
	if useCache {
		cached, err := c.opts.Cache.GetCachedPage(ctx, url)
		if err != nil {
			zap.L().Warn("crawler: cache lookup failed", zap.String("url", url), zap.Error(err))
		} else if cached != nil {
			return cached.CrawledPage, cached.Source, true, nil
		}
	}

	res, err := c.scraper.Scrape(ctx, url)
	if err != nil {
		return model.CrawledPage{}, "", false, err
	}

	if useCache {
		now := time.Now().UTC()
		entry := model.CachedPage{
			CrawledPage: res.Page,
			Source:      res.Source,
			FetchedAt:   now,
			ExpiresAt:   now.Add(c.opts.CacheTTL),
		}
		if err := c.opts.Cache.SetCachedPage(ctx, url, entry, c.opts.CacheTTL); err != nil {
			zap.L().Warn("crawler: cache write failed", zap.String("url", url), zap.Error(err))
		}
	}
	return res.Page, res.Source, false, nil
}

func fail(result model.CrawlResult, err error) model.CrawlResult {
	result.Success = false
	result.ErrorMessage = err.Error()
	if errors.Is(err, context.Canceled) {
		result.ErrorMessage = model.ErrMsgCancelled
	}
	result.RateLimited = resilience.IsRateLimited(err)
	result.RetryAfter = resilience.RetryAfterOf(err)
	return result
}
