// Package scrape fetches pages through an ordered chain of scrapers: a
// headless browser, plain HTTP, and the Jina and Firecrawl reader APIs.
package scrape

import (
	"context"
	"net/url"

	"github.com/sells-group/extract-cli/internal/model"
)

// Result holds a scraped page with its source.
type Result struct {
	Page   model.CrawledPage
	Source string // e.g. "browser", "local_http", "jina", "firecrawl"
}

// Scraper fetches a single URL and returns its content.
type Scraper interface {
	Scrape(ctx context.Context, url string) (*Result, error)
	Name() string
	Supports(url string) bool
}

// isWebURL reports whether raw is an absolute http(s) URL with a host.
func isWebURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}
