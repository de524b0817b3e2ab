package main

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/extract-cli/internal/config"
	"github.com/sells-group/extract-cli/internal/store"
)

// useTestConfig installs a config suited to offline tests and restores the
// previous one on cleanup.
func useTestConfig(t *testing.T) {
	t.Helper()
	prev := cfg
	cfg = &config.Config{
		Store:  config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "extract.db")},
		Notion: config.NotionConfig{TitleProperty: "Title", URLProperty: "URL"},
		Crawl:  config.CrawlConfig{TimeoutSecs: 10, CacheTTLHours: 1},
		LLM:    config.LLMConfig{MaxOutputTokens: 4096},
		Batch:  config.BatchConfig{OutputFormat: "json", JobsDir: t.TempDir()},
		Server: config.ServerConfig{Port: 8080},
	}
	t.Cleanup(func() { cfg = prev })
}

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	st, err := store.Open(context.Background(), "sqlite", filepath.Join(t.TempDir(), "runs.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	return st
}

// pageServer serves a small HTML page for every /wiki/ path. Paths listed in
// missing answer 404 until healed is set.
type pageServer struct {
	*httptest.Server
	missing map[string]bool
	healed  atomic.Bool
	hits    atomic.Int64
}

func newPageServer(t *testing.T, missing ...string) *pageServer {
	t.Helper()
	ps := &pageServer{missing: make(map[string]bool)}
	for _, m := range missing {
		ps.missing[m] = true
	}
	ps.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ps.hits.Add(1)
		if ps.missing[r.URL.Path] && !ps.healed.Load() {
			http.NotFound(w, r)
			return
		}
		name := strings.TrimPrefix(r.URL.Path, "/wiki/")
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		_, _ = fmt.Fprintf(w, `<html><head><title>%[1]s</title></head><body>
<h1>%[1]s</h1>
<table><tr><th>Title</th><th>Artists</th><th>Length</th></tr>
<tr><td>Song of %[1]s</td><td>A. R. Rahman</td><td>4:31</td></tr></table>
</body></html>`, name)
	}))
	t.Cleanup(ps.Close)
	return ps
}
