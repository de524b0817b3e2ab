package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/extract-cli/internal/content"
	"github.com/sells-group/extract-cli/internal/cost"
	"github.com/sells-group/extract-cli/internal/crawler"
	"github.com/sells-group/extract-cli/internal/extract"
	"github.com/sells-group/extract-cli/internal/job"
	"github.com/sells-group/extract-cli/internal/llm"
	"github.com/sells-group/extract-cli/internal/scrape"
	"github.com/sells-group/extract-cli/internal/store"
	"github.com/sells-group/extract-cli/pkg/firecrawl"
	"github.com/sells-group/extract-cli/pkg/jina"
)

// pipelineEnv holds the store, scrapers and extraction strategy needed by
// the extract and batch commands.
type pipelineEnv struct {
	Store    store.Store
	Crawler  *crawler.Crawler
	Strategy *extract.Strategy
	Calc     *cost.Calculator

	closers []func() error
}

// Close releases resources held by the pipeline environment.
func (pe *pipelineEnv) Close() {
	for _, fn := range pe.closers {
		if err := fn(); err != nil {
			zap.L().Warn("pipeline: close", zap.Error(err))
		}
	}
}

// initStore opens the configured store and runs its migration.
func initStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, cfg.Store.Driver, cfg.Store.DatabaseURL)
}

// initPipeline opens the store, builds the scrape chain and the provider
// for j, and wires them into a crawler. Offline mode swaps the provider for
// a stub. Callers should defer env.Close().
func initPipeline(ctx context.Context, j *job.Job, offline bool) (*pipelineEnv, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if n, err := st.DeleteExpiredPages(ctx); err != nil {
		zap.L().Warn("pipeline: purge page cache", zap.Error(err))
	} else if n > 0 {
		zap.L().Info("pipeline: purged expired pages", zap.Int("pages", n))
	}

	providerID := j.Request().Provider
	if offline {
		providerID = "stub/" + j.Name
	}
	provider, err := llm.New(providerID, llm.Options{
		Anthropic:         llm.Credentials{Key: cfg.Anthropic.Key, BaseURL: cfg.Anthropic.BaseURL},
		OpenAI:            llm.Credentials{Key: cfg.OpenAI.Key, BaseURL: cfg.OpenAI.BaseURL},
		Gemini:            llm.Credentials{Key: cfg.Gemini.Key, BaseURL: cfg.Gemini.BaseURL},
		RequestsPerMinute: cfg.LLM.RequestsPerMinute,
		MaxOutputTokens:   cfg.LLM.MaxOutputTokens,
		MaxRetries:        cfg.LLM.MaxRetries,
		Timeout:           time.Duration(cfg.LLM.TimeoutSecs) * time.Second,
	})
	if err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "pipeline: provider")
	}

	chain := buildScrapeChain()
	zap.L().Info("pipeline: ready",
		zap.String("job", j.Name),
		zap.String("provider", provider.Name()),
		zap.Strings("scrapers", chain.Names()),
	)

	env := newPipelineEnv(j, st, chain, provider)
	env.closers = append(env.closers, chain.Close, st.Close)
	return env, nil
}

// newPipelineEnv wires a crawler for j over the given collaborators. The
// store doubles as the page cache.
func newPipelineEnv(j *job.Job, st store.Store, scraper crawler.Scraper, provider llm.Provider) *pipelineEnv {
	rates := make(cost.Rates, len(cfg.Pricing.Models))
	for name, p := range cfg.Pricing.Models {
		rates[name] = cost.ModelRate{Input: p.Input, Output: p.Output}
	}

	opts := crawler.Options{
		CacheTTL: time.Duration(cfg.Crawl.CacheTTLHours) * time.Hour,
		Timeout:  time.Duration(cfg.Crawl.TimeoutSecs) * time.Second,
	}
	if st != nil {
		opts.Cache = st
	}

	return &pipelineEnv{
		Store:    st,
		Crawler:  crawler.New(scraper, content.NewConverter(), opts),
		Strategy: extract.NewStrategy(provider, j.Request()),
		Calc:     cost.NewCalculator(rates),
	}
}

// buildScrapeChain orders the scrapers browser, local HTTP, Jina, Firecrawl.
// The browser is skipped when disabled; Jina and Firecrawl only join when
// an API key is configured.
func buildScrapeChain() *scrape.Chain {
	var scrapers []scrape.Scraper
	if cfg.Browser.Enabled {
		scrapers = append(scrapers, scrape.NewBrowserScraper(scrape.BrowserOptions{
			Headless:  cfg.Browser.Headless,
			NoSandbox: cfg.Browser.NoSandbox,
			Bin:       cfg.Browser.Bin,
		}))
	}
	scrapers = append(scrapers, scrape.NewLocalScraper(
		scrape.WithUserAgent(cfg.Crawl.UserAgent),
		scrape.WithMaxBodyBytes(cfg.Crawl.MaxBodyBytes),
	))
	if cfg.Jina.Key != "" {
		scrapers = append(scrapers, scrape.NewJinaAdapter(
			jina.NewClient(cfg.Jina.Key, jina.WithBaseURL(cfg.Jina.BaseURL)),
		))
	}
	if cfg.Firecrawl.Key != "" {
		scrapers = append(scrapers, scrape.NewFirecrawlAdapter(
			firecrawl.NewClient(cfg.Firecrawl.Key, firecrawl.WithBaseURL(cfg.Firecrawl.BaseURL)),
		))
	}
	return scrape.NewChain(scrapers...)
}
