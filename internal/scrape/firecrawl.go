package scrape

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/extract-cli/internal/model"
	"github.com/sells-group/extract-cli/pkg/firecrawl"
)

// FirecrawlAdapter wraps a Firecrawl client as a Scraper for single-page scrapes.
type FirecrawlAdapter struct {
	client firecrawl.Client
}

// NewFirecrawlAdapter creates a FirecrawlAdapter from a Firecrawl client.
func NewFirecrawlAdapter(client firecrawl.Client) *FirecrawlAdapter {
	return &FirecrawlAdapter{client: client}
}

// Name implements Scraper.
func (f *FirecrawlAdapter) Name() string { return "firecrawl" }

// Supports reports whether u is an absolute web URL; Firecrawl can attempt
// any of them as a last resort.
func (f *FirecrawlAdapter) Supports(u string) bool { return isWebURL(u) }

// Scrape fetches a single URL via Firecrawl's scrape API. The full page is
// requested (not only main content) so tables survive for extraction.
func (f *FirecrawlAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := f.client.Scrape(ctx, firecrawl.ScrapeRequest{
		URL:     targetURL,
		Formats: []string{"html", "markdown"},
	})
	if err != nil {
		return nil, err
	}
	if !resp.Success {
		return nil, eris.New("firecrawl: scrape not successful")
	}

	pageURL := resp.Data.Metadata.PageURL()
	if pageURL == "" {
		pageURL = targetURL
	}
	return &Result{
		Page: model.CrawledPage{
			URL:        pageURL,
			Title:      resp.Data.Metadata.Title,
			Markdown:   resp.Data.Markdown,
			HTML:       resp.Data.HTML,
			StatusCode: resp.Data.Metadata.StatusCode,
		},
		Source: "firecrawl",
	}, nil
}
