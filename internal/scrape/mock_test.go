package scrape

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/sells-group/extract-cli/pkg/firecrawl"
	"github.com/sells-group/extract-cli/pkg/jina"
)

// --- Jina Mock ---

type mockJinaClient struct {
	mock.Mock
}

func (m *mockJinaClient) Read(ctx context.Context, targetURL string) (*jina.ReadResponse, error) {
	args := m.Called(ctx, targetURL)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*jina.ReadResponse), args.Error(1)
}

// --- Firecrawl Mock ---

type mockFirecrawlClient struct {
	mock.Mock
}

func (m *mockFirecrawlClient) Scrape(ctx context.Context, req firecrawl.ScrapeRequest) (*firecrawl.ScrapeResponse, error) {
	args := m.Called(ctx, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*firecrawl.ScrapeResponse), args.Error(1)
}

// --- Scraper Mock ---

type mockScraper struct {
	name     string
	supports bool
	result   *Result
	err      error
	calls    int
}

func (m *mockScraper) Name() string           { return m.name }
func (m *mockScraper) Supports(_ string) bool { return m.supports }
func (m *mockScraper) Scrape(_ context.Context, _ string) (*Result, error) {
	m.calls++
	return m.result, m.err
}

type closingScraper struct {
	mockScraper
	closed bool
}

func (c *closingScraper) Close() error {
	c.closed = true
	return nil
}
