package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeMarshal(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		outcome Outcome
		want    string
	}{
		{
			name:    "success",
			outcome: Success("Roja", json.RawMessage(`[{"Title":"Roja"}]`)),
			want:    `{"title":"Roja","data":[{"Title":"Roja"}]}`,
		},
		{
			name:    "error",
			outcome: Failure("/wiki/X", ErrMsgDecode),
			want:    `{"error":"Failed to decode JSON","url":"/wiki/X"}`,
		},
		{
			name:    "empty",
			outcome: Empty("/wiki/Y"),
			want:    `{"error":"empty extraction","url":"/wiki/Y"}`,
		},
		{
			name:    "success without data",
			outcome: Outcome{Kind: OutcomeSuccess, Title: "T"},
			want:    `{"title":"T","data":null}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			b, err := json.Marshal(tt.outcome)
			require.NoError(t, err)
			assert.JSONEq(t, tt.want, string(b))
		})
	}
}

func TestOutcomeMarshal_KeyOrder(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(Failure("/wiki/X", "boom"))
	require.NoError(t, err)
	assert.Equal(t, `{"error":"boom","url":"/wiki/X"}`, string(b))

	b, err = json.Marshal(Success("A", json.RawMessage(`{}`)))
	require.NoError(t, err)
	assert.Equal(t, `{"title":"A","data":{}}`, string(b))
}

func TestUsageAdd(t *testing.T) {
	t.Parallel()

	u := Usage{Requests: 1, PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15}
	u.Add(Usage{Requests: 2, PromptTokens: 20, CompletionTokens: 1, TotalTokens: 21})
	assert.Equal(t, Usage{Requests: 3, PromptTokens: 30, CompletionTokens: 6, TotalTokens: 36}, u)
}
