package batch

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/sells-group/extract-cli/internal/model"
	"github.com/sells-group/extract-cli/internal/runlog"
)

func TestTask_Crawl(t *testing.T) {
	const url = "https://en.wikipedia.org/wiki/A"
	item := model.BatchItem{Title: "A", URL: "/wiki/A"}

	tests := []struct {
		name     string
		result   model.CrawlResult
		wantKind model.OutcomeKind
		wantJSON string
		wantLog  string
	}{
		{
			name:     "success",
			result:   success(`[{"Title": "A", "Is_dubbed": false}]`),
			wantKind: model.OutcomeSuccess,
			wantJSON: `{"title":"A","data":[{"Title":"A","Is_dubbed":false}]}`,
			wantLog: "Successfully crawled and extracted data for URL: " + url + "\n" +
				`title: A, data: [{"Title":"A","Is_dubbed":false}]` + "\n",
		},
		{
			name:     "crawl error",
			result:   failure("timeout"),
			wantKind: model.OutcomeError,
			wantJSON: `{"error":"timeout","url":"/wiki/A"}`,
			wantLog:  "Crawl Error for URL " + url + ": timeout\n",
		},
		{
			name:     "decode error",
			result:   success(`I found these songs: Roja`),
			wantKind: model.OutcomeError,
			wantJSON: `{"error":"Failed to decode JSON","url":"/wiki/A"}`,
			wantLog:  "JSON Decode Error for URL " + url + ": ",
		},
		{
			name:     "empty array",
			result:   success(`[]`),
			wantKind: model.OutcomeEmpty,
			wantJSON: `{"error":"empty extraction","url":"/wiki/A"}`,
			wantLog:  "No data extracted for URL: " + url + "\n",
		},
		{name: "empty object", result: success(`{}`), wantKind: model.OutcomeEmpty, wantJSON: `{"error":"empty extraction","url":"/wiki/A"}`, wantLog: "No data extracted"},
		{name: "null", result: success(`null`), wantKind: model.OutcomeEmpty, wantJSON: `{"error":"empty extraction","url":"/wiki/A"}`, wantLog: "No data extracted"},
		{name: "empty string", result: success(`""`), wantKind: model.OutcomeEmpty, wantJSON: `{"error":"empty extraction","url":"/wiki/A"}`, wantLog: "No data extracted"},
		{name: "false", result: success(`false`), wantKind: model.OutcomeEmpty, wantJSON: `{"error":"empty extraction","url":"/wiki/A"}`, wantLog: "No data extracted"},
		{name: "zero", result: success(`0`), wantKind: model.OutcomeEmpty, wantJSON: `{"error":"empty extraction","url":"/wiki/A"}`, wantLog: "No data extracted"},
		{name: "empty content", result: success(""), wantKind: model.OutcomeError, wantJSON: `{"error":"Failed to decode JSON","url":"/wiki/A"}`, wantLog: "JSON Decode Error for URL " + url},
		{name: "blank content", result: success("  "), wantKind: model.OutcomeError, wantJSON: `{"error":"Failed to decode JSON","url":"/wiki/A"}`, wantLog: "JSON Decode Error for URL " + url},
		{name: "no content", result: model.CrawlResult{Success: true}, wantKind: model.OutcomeEmpty, wantJSON: `{"error":"empty extraction","url":"/wiki/A"}`, wantLog: "No data extracted"},
		{
			name:     "scalar is data",
			result:   success(`42`),
			wantKind: model.OutcomeSuccess,
			wantJSON: `{"title":"A","data":42}`,
			wantLog:  "Successfully crawled",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			runner := &fakeRunner{results: map[string]model.CrawlResult{url: tt.result}}
			task := NewTask(runner, nopExtractor{}, wikiURL, runlog.New(&buf))

			o := task.Crawl(context.Background(), item)

			assert.Equal(t, tt.wantKind, o.Kind)
			got, err := o.MarshalJSON()
			assert.NoError(t, err)
			assert.JSONEq(t, tt.wantJSON, string(got))
			assert.Contains(t, buf.String(), tt.wantLog)
			assert.Equal(t, []string{url}, runner.urls)
		})
	}
}

func TestTask_NilLogDiscards(t *testing.T) {
	runner := &fakeRunner{results: map[string]model.CrawlResult{"https://en.wikipedia.org/wiki/A": failure("x")}}
	task := NewTask(runner, nopExtractor{}, wikiURL, nil)
	o := task.Crawl(context.Background(), model.BatchItem{URL: "/wiki/A"})
	assert.Equal(t, model.OutcomeError, o.Kind)
}

func TestTask_MissingURLSkipsCrawl(t *testing.T) {
	for _, frag := range []string{"", "   "} {
		var buf bytes.Buffer
		runner := &fakeRunner{}
		task := NewTask(runner, nopExtractor{}, wikiURL, runlog.New(&buf))

		o := task.Crawl(context.Background(), model.BatchItem{Title: "NoLink", URL: frag})

		assert.Equal(t, model.Failure(frag, model.ErrMsgMissingURL), o)
		assert.Empty(t, runner.urls)
		assert.Equal(t, "Crawl Error for item \"NoLink\": missing url\n", buf.String())
	}
}

func TestIsEmpty(t *testing.T) {
	assert.True(t, isEmpty(nil))
	assert.True(t, isEmpty([]any{}))
	assert.True(t, isEmpty(map[string]any{}))
	assert.True(t, isEmpty(""))
	assert.True(t, isEmpty(false))
	assert.True(t, isEmpty(float64(0)))
	assert.False(t, isEmpty(true))
	assert.False(t, isEmpty(float64(1992)))
	assert.False(t, isEmpty("0"))
	assert.False(t, isEmpty([]any{nil}))
}
