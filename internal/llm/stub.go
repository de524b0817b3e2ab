package llm

import (
	"context"
	"sync"

	"github.com/sells-group/extract-cli/internal/model"
)

// StubProvider returns canned responses without network access. It cycles
// through its responses and answers "[]" when it has none.
type StubProvider struct {
	name      string
	responses []string

	mu    sync.Mutex
	calls []Completion
}

var _ Provider = (*StubProvider)(nil)

// NewStub creates a stub provider.
func NewStub(name string, responses ...string) *StubProvider {
	return &StubProvider{name: name, responses: responses}
}

func (s *StubProvider) Name() string { return s.name }

func (s *StubProvider) Complete(ctx context.Context, c Completion) (*Response, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	text := "[]"
	if len(s.responses) > 0 {
		text = s.responses[len(s.calls)%len(s.responses)]
	}
	s.calls = append(s.calls, c)

	prompt := int64(len(c.System)+len(c.Prompt)) / 4
	completion := int64(len(text)) / 4
	return &Response{
		Text:  text,
		Model: s.name,
		Usage: model.Usage{
			Requests:         1,
			PromptTokens:     prompt,
			CompletionTokens: completion,
			TotalTokens:      prompt + completion,
		},
	}, nil
}

// Calls returns the completions received so far.
func (s *StubProvider) Calls() []Completion {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Completion(nil), s.calls...)
}
