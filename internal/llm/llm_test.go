package llm

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/extract-cli/internal/resilience"
)

func TestParseProviderID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		id         string
		wantVendor string
		wantModel  string
		wantErr    bool
	}{
		{id: "gemini/gemini-1.5-flash", wantVendor: "gemini", wantModel: "gemini-1.5-flash"},
		{id: "OpenAI/gpt-4o-mini", wantVendor: "openai", wantModel: "gpt-4o-mini"},
		{id: "openai/org/model", wantVendor: "openai", wantModel: "org/model"},
		{id: "gpt-4o", wantErr: true},
		{id: "/model", wantErr: true},
		{id: "vendor/", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.id, func(t *testing.T) {
			t.Parallel()
			vendor, m, err := ParseProviderID(tt.id)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantVendor, vendor)
			assert.Equal(t, tt.wantModel, m)
		})
	}
}

func TestNew(t *testing.T) {
	t.Parallel()

	p, err := New("stub/test", Options{})
	require.NoError(t, err)
	assert.Equal(t, "stub/test", p.Name())

	_, err = New("gemini/gemini-1.5-flash", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini.key is required")

	_, err = New("anthropic/claude-haiku-4-5-20251001", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic.key is required")

	_, err = New("mistral/large", Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown vendor")

	p, err = New("gemini/gemini-1.5-flash", Options{Gemini: Credentials{Key: "k"}})
	require.NoError(t, err)
	assert.Equal(t, "gemini/gemini-1.5-flash", p.Name())
}

func TestRateLimitError(t *testing.T) {
	t.Parallel()

	err := classify("gemini/x", errors.New("too many"), http.StatusTooManyRequests, http.Header{"Retry-After": []string{"3"}})

	assert.True(t, resilience.IsTransient(err))
	assert.True(t, resilience.IsRateLimited(err))
	assert.Equal(t, 3*time.Second, resilience.RetryAfterOf(err))

	var rl *RateLimitError
	require.True(t, errors.As(err, &rl))
	assert.Equal(t, "gemini/x", rl.Provider)
	assert.Contains(t, rl.Error(), "retry after 3s")

	assert.True(t, resilience.IsTransient(classify("p", errors.New("x"), 503, nil)))
	assert.False(t, resilience.IsTransient(classify("p", errors.New("x"), 400, nil)))
}

func TestStubProvider(t *testing.T) {
	t.Parallel()

	s := NewStub("stub/x", `[{"a":1}]`, `[]`)
	r1, err := s.Complete(context.Background(), Completion{Prompt: "one"})
	require.NoError(t, err)
	r2, err := s.Complete(context.Background(), Completion{Prompt: "two"})
	require.NoError(t, err)
	r3, err := s.Complete(context.Background(), Completion{Prompt: "three"})
	require.NoError(t, err)

	assert.Equal(t, `[{"a":1}]`, r1.Text)
	assert.Equal(t, `[]`, r2.Text)
	assert.Equal(t, `[{"a":1}]`, r3.Text)
	assert.Equal(t, 1, r1.Usage.Requests)
	assert.Len(t, s.Calls(), 3)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = s.Complete(ctx, Completion{})
	assert.ErrorIs(t, err, context.Canceled)
}

type flakyProvider struct {
	failures int32
	calls    atomic.Int32
	err      error
}

func (f *flakyProvider) Name() string { return "flaky/x" }

func (f *flakyProvider) Complete(_ context.Context, c Completion) (*Response, error) {
	n := f.calls.Add(1)
	if n <= f.failures {
		return nil, f.err
	}
	return &Response{Text: "[]"}, nil
}

func TestGuard_RetriesTransient(t *testing.T) {
	t.Parallel()

	f := &flakyProvider{failures: 2, err: resilience.NewTransientError(errors.New("503"), 503)}
	g := Guard(f, GuardOptions{Retry: resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}})

	resp, err := g.Complete(context.Background(), Completion{Prompt: "x"})
	require.NoError(t, err)
	assert.Equal(t, "[]", resp.Text)
	assert.Equal(t, int32(3), f.calls.Load())
}

func TestGuard_DoesNotRetryPermanent(t *testing.T) {
	t.Parallel()

	f := &flakyProvider{failures: 5, err: errors.New("invalid api key")}
	g := Guard(f, GuardOptions{Retry: resilience.RetryConfig{MaxAttempts: 3, InitialBackoff: time.Millisecond}})

	_, err := g.Complete(context.Background(), Completion{})
	require.Error(t, err)
	assert.Equal(t, int32(1), f.calls.Load())
}

func TestGuard_ClampsMaxTokens(t *testing.T) {
	t.Parallel()

	s := NewStub("stub/x")
	g := Guard(s, GuardOptions{MaxOutputTokens: 8192})

	_, err := g.Complete(context.Background(), Completion{MaxTokens: 2_000_000})
	require.NoError(t, err)
	_, err = g.Complete(context.Background(), Completion{})
	require.NoError(t, err)
	_, err = g.Complete(context.Background(), Completion{MaxTokens: 100})
	require.NoError(t, err)

	calls := s.Calls()
	require.Len(t, calls, 3)
	assert.Equal(t, int64(8192), calls[0].MaxTokens)
	assert.Equal(t, int64(8192), calls[1].MaxTokens)
	assert.Equal(t, int64(100), calls[2].MaxTokens)
}

func TestGuard_TokenBucket(t *testing.T) {
	t.Parallel()

	// 1200/min is one request every 50ms.
	g := Guard(NewStub("stub/x"), GuardOptions{RequestsPerMinute: 1200})

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := g.Complete(context.Background(), Completion{})
		require.NoError(t, err)
	}
	assert.GreaterOrEqual(t, time.Since(start), 90*time.Millisecond)
}

func chatCompletionJSON(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gemini-1.5-flash",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
		"usage": map[string]any{"prompt_tokens": 120, "completion_tokens": 30, "total_tokens": 150},
	}
}

func TestOpenAIProvider_Complete(t *testing.T) {
	t.Parallel()

	var body map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Contains(t, r.URL.Path, "chat/completions")
		assert.Equal(t, "Bearer g-key", r.Header.Get("Authorization"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &body))
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(chatCompletionJSON(`[{"title":"Roja"}]`)) //nolint:errcheck
	}))
	defer ts.Close()

	p := newOpenAIProvider("gemini/gemini-1.5-flash", "gemini-1.5-flash", "g-key", ts.URL+"/")
	resp, err := p.Complete(context.Background(), Completion{
		System:    "extract",
		Prompt:    "<content>x</content>",
		MaxTokens: 512,
	})
	require.NoError(t, err)
	assert.Equal(t, `[{"title":"Roja"}]`, resp.Text)
	assert.Equal(t, int64(120), resp.Usage.PromptTokens)
	assert.Equal(t, int64(30), resp.Usage.CompletionTokens)
	assert.Equal(t, 1, resp.Usage.Requests)

	assert.Equal(t, "gemini-1.5-flash", body["model"])
	assert.Equal(t, float64(0), body["temperature"])
	assert.Equal(t, float64(512), body["max_tokens"])
	msgs := body["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, "user", msgs[1].(map[string]any)["role"])
}

func TestOpenAIProvider_RateLimited(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "2")
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"error":{"message":"quota","type":"rate_limit"}}`)) //nolint:errcheck
	}))
	defer ts.Close()

	p := newOpenAIProvider("openai/gpt-4o-mini", "gpt-4o-mini", "k", ts.URL+"/")
	_, err := p.Complete(context.Background(), Completion{Prompt: "x"})
	require.Error(t, err)
	assert.True(t, resilience.IsRateLimited(err))
	assert.Equal(t, 2*time.Second, resilience.RetryAfterOf(err))
}

func TestAnthropicProvider_Complete(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"id":          "msg_1",
			"type":        "message",
			"role":        "assistant",
			"content":     []map[string]any{{"type": "text", "text": "[]"}},
			"model":       "claude-haiku-4-5-20251001",
			"stop_reason": "end_turn",
			"usage": map[string]any{
				"input_tokens":                100,
				"output_tokens":               2,
				"cache_creation_input_tokens": 50,
				"cache_read_input_tokens":     0,
			},
		})
	}))
	defer ts.Close()

	p := newAnthropicProvider("anthropic/claude-haiku-4-5-20251001", "claude-haiku-4-5-20251001", "k", ts.URL)
	resp, err := p.Complete(context.Background(), Completion{System: "s", Prompt: "p", MaxTokens: 100})
	require.NoError(t, err)
	assert.Equal(t, "[]", resp.Text)
	assert.Equal(t, int64(150), resp.Usage.PromptTokens)
	assert.Equal(t, int64(152), resp.Usage.TotalTokens)
}
