package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/extract-cli/internal/job"
	"github.com/sells-group/extract-cli/internal/llm"
	"github.com/sells-group/extract-cli/internal/model"
	"github.com/sells-group/extract-cli/internal/scrape"
	"github.com/sells-group/extract-cli/internal/store"
)

const songsAnswer = `[{"Title":"Song","Artists":"A. R. Rahman","Length":"4:31","Language":"Tamil","Is_dubbed":false}]`

// testBatchJob builds a movies-like job rooted at siteRoot whose files live
// in a temp dir.
func testBatchJob(t *testing.T, siteRoot string) *job.Job {
	t.Helper()
	dir := t.TempDir()
	j, err := job.Parse([]byte(`
name: movies
kind: batch
input: items.json
provider: stub/movies
instruction: Extract the songs.
schema:
  name: MovieData
  fields:
    - name: Title
      type: string
    - name: Artists
      type: string
    - name: Length
      type: string
    - name: Language
      type: string
    - name: Is_dubbed
      type: boolean
cache_mode: bypass
`))
	require.NoError(t, err)
	j.SiteRoot = siteRoot
	j.Output = filepath.Join(dir, "movie_results.json")
	j.RunLog = filepath.Join(dir, "run.log")
	j.SummaryLog = filepath.Join(dir, "runlog.log")
	return j
}

func testItems() []model.BatchItem {
	return []model.BatchItem{
		{Title: "Roja", URL: "/wiki/Roja"},
		{Title: "Bombay", URL: "/wiki/Bombay"},
		{Title: "Dil Se", URL: "/wiki/Dil_Se"},
	}
}

func TestLoadItems_FromFileWithLimit(t *testing.T) {
	useTestConfig(t)
	path := filepath.Join(t.TempDir(), "data.json")
	require.NoError(t, os.WriteFile(path, []byte(`[
  {"title": "Roja", "url": "/wiki/Roja"},
  {"title": "Bombay", "url": "/wiki/Bombay"},
  {"title": "Dil Se", "url": "/wiki/Dil_Se"}
]`), 0o644))

	j := testBatchJob(t, "https://en.wikipedia.org")
	j.Input = path

	items, err := loadItems(context.Background(), j, batchOptions{Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, []model.BatchItem{
		{Title: "Roja", URL: "/wiki/Roja"},
		{Title: "Bombay", URL: "/wiki/Bombay"},
	}, items)
}

func TestLoadItems_NotionRequiresToken(t *testing.T) {
	useTestConfig(t)
	j := testBatchJob(t, "https://en.wikipedia.org")

	_, err := loadItems(context.Background(), j, batchOptions{NotionDB: "db-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "notion.token")
}

func TestPacingInterval(t *testing.T) {
	useTestConfig(t)
	cfg.Batch.IntervalSecs = 11
	j := testBatchJob(t, "https://en.wikipedia.org")

	assert.Equal(t, 11*time.Second, pacingInterval(j, batchOptions{Interval: -1}))

	j.Interval.Duration = 3 * time.Second
	assert.Equal(t, 3*time.Second, pacingInterval(j, batchOptions{Interval: -1}))
	assert.Equal(t, time.Duration(0), pacingInterval(j, batchOptions{Interval: 0}))
}

func TestRunBatch_RecordsEveryItem(t *testing.T) {
	useTestConfig(t)
	site := newPageServer(t, "/wiki/Dil_Se")
	st := newTestStore(t)
	j := testBatchJob(t, site.URL)
	stub := llm.NewStub("stub/movies", songsAnswer)
	env := newPipelineEnv(j, st, scrape.NewChain(scrape.NewLocalScraper()), stub)

	var out bytes.Buffer
	summary, err := runBatch(context.Background(), env, j, testItems(), batchOptions{Interval: 0}, &out)
	require.NoError(t, err)

	assert.Equal(t, model.Summary{Total: 3, Succeeded: 2, Failed: 1}, summary)
	assert.Len(t, stub.Calls(), 2)
	assert.Contains(t, out.String(), "2 succeeded")
	assert.Contains(t, out.String(), "PROVIDER")

	data, err := os.ReadFile(j.Output)
	require.NoError(t, err)
	var results []map[string]any
	require.NoError(t, json.Unmarshal(data, &results))
	require.Len(t, results, 3)
	assert.Equal(t, "Roja", results[0]["title"])
	assert.Contains(t, results[2], "error")

	runs, err := st.ListRuns(context.Background(), store.RunFilter{Job: "movies"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunComplete, runs[0].Status)
	assert.Equal(t, summary, runs[0].Summary)
	assert.Equal(t, j.Output, runs[0].Output)

	recs, err := st.ListRecords(context.Background(), runs[0].ID)
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.True(t, recs[0].Outcome.OK())
	assert.False(t, recs[2].Outcome.OK())

	summaryLog, err := os.ReadFile(j.SummaryLog)
	require.NoError(t, err)
	assert.Contains(t, string(summaryLog), "Successfully crawled movies: 2")
}

func TestRunBatch_ResumeRecrawlsOnlyFailures(t *testing.T) {
	useTestConfig(t)
	site := newPageServer(t, "/wiki/Dil_Se")
	st := newTestStore(t)
	j := testBatchJob(t, site.URL)
	chain := scrape.NewChain(scrape.NewLocalScraper())

	first := llm.NewStub("stub/movies", songsAnswer)
	_, err := runBatch(context.Background(), newPipelineEnv(j, st, chain, first), j, testItems(), batchOptions{Interval: 0}, &bytes.Buffer{})
	require.NoError(t, err)

	site.healed.Store(true)
	hitsBefore := site.hits.Load()

	second := llm.NewStub("stub/movies", songsAnswer)
	summary, err := runBatch(context.Background(), newPipelineEnv(j, st, chain, second), j, testItems(), batchOptions{Interval: 0, Resume: true}, &bytes.Buffer{})
	require.NoError(t, err)

	assert.Equal(t, model.Summary{Total: 3, Succeeded: 3}, summary)
	assert.Len(t, second.Calls(), 1)
	assert.Equal(t, int64(1), site.hits.Load()-hitsBefore)
	assert.Contains(t, second.Calls()[0].Prompt, "/wiki/Dil_Se")
}

func TestRunBatch_EmptyAnswerIsRecorded(t *testing.T) {
	useTestConfig(t)
	site := newPageServer(t)
	st := newTestStore(t)
	j := testBatchJob(t, site.URL)
	env := newPipelineEnv(j, st, scrape.NewChain(scrape.NewLocalScraper()), llm.NewStub("stub/movies", "[]"))

	summary, err := runBatch(context.Background(), env, j, testItems()[:1], batchOptions{Interval: 0}, &bytes.Buffer{})
	require.NoError(t, err)
	assert.Equal(t, model.Summary{Total: 1, Empty: 1}, summary)
}

func TestRunBatch_CancelledStillWritesResults(t *testing.T) {
	useTestConfig(t)
	site := newPageServer(t)
	st := newTestStore(t)
	j := testBatchJob(t, site.URL)
	env := newPipelineEnv(j, st, scrape.NewChain(scrape.NewLocalScraper()), llm.NewStub("stub/movies", songsAnswer))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	summary, err := runBatch(ctx, env, j, testItems(), batchOptions{Interval: 0}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Equal(t, 3, summary.Total)
	assert.FileExists(t, j.Output)

	runs, err := st.ListRuns(context.Background(), store.RunFilter{Job: "movies"})
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, model.RunFailed, runs[0].Status)
	assert.NotEmpty(t, runs[0].Error)
}

func TestRunBatch_UnknownFormat(t *testing.T) {
	useTestConfig(t)
	j := testBatchJob(t, "https://en.wikipedia.org")
	env := newPipelineEnv(j, newTestStore(t), scrape.NewChain(), llm.NewStub("stub/movies"))

	_, err := runBatch(context.Background(), env, j, testItems(), batchOptions{Interval: 0, Format: "csv"}, &bytes.Buffer{})
	require.Error(t, err)
}
