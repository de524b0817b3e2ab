package llm

import (
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/extract-cli/internal/resilience"
)

// Credentials locate one vendor's API.
type Credentials struct {
	Key     string
	BaseURL string
}

// Options configures provider construction.
type Options struct {
	Anthropic Credentials
	OpenAI    Credentials
	Gemini    Credentials

	RequestsPerMinute float64
	MaxOutputTokens   int64
	MaxRetries        int
	Timeout           time.Duration
}

// New resolves a "vendor/model" id to a guarded provider. Supported vendors
// are anthropic, openai, gemini, and stub.
func New(id string, opts Options) (Provider, error) {
	vendor, modelName, err := ParseProviderID(id)
	if err != nil {
		return nil, err
	}

	var p Provider
	switch vendor {
	case "anthropic":
		if opts.Anthropic.Key == "" {
			return nil, eris.New("llm: anthropic.key is required for anthropic providers")
		}
		p = newAnthropicProvider(id, modelName, opts.Anthropic.Key, opts.Anthropic.BaseURL)
	case "openai":
		if opts.OpenAI.Key == "" {
			return nil, eris.New("llm: openai.key is required for openai providers")
		}
		p = newOpenAIProvider(id, modelName, opts.OpenAI.Key, opts.OpenAI.BaseURL)
	case "gemini", "google":
		if opts.Gemini.Key == "" {
			return nil, eris.New("llm: gemini.key is required for gemini providers")
		}
		p = newOpenAIProvider(id, modelName, opts.Gemini.Key, opts.Gemini.BaseURL)
	case "stub":
		p = NewStub(id)
	default:
		return nil, eris.Errorf("llm: unknown vendor %q in provider %q", vendor, id)
	}

	retry := resilience.DefaultRetryConfig()
	if opts.MaxRetries >= 0 {
		retry.MaxAttempts = opts.MaxRetries + 1
	}

	return Guard(p, GuardOptions{
		RequestsPerMinute: opts.RequestsPerMinute,
		MaxOutputTokens:   opts.MaxOutputTokens,
		Timeout:           opts.Timeout,
		Retry:             retry,
	}), nil
}
