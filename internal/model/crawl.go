package model

import "time"

// InputFormat selects the page representation handed to the extractor.
type InputFormat string

const (
	FormatHTML        InputFormat = "html"
	FormatMarkdown    InputFormat = "markdown"
	FormatFitMarkdown InputFormat = "fit_markdown"
	FormatText        InputFormat = "text"
)

// Valid reports whether f is a supported input format.
func (f InputFormat) Valid() bool {
	switch f {
	case FormatHTML, FormatMarkdown, FormatFitMarkdown, FormatText:
		return true
	}
	return false
}

// CacheMode controls whether scraped pages are served from the store.
type CacheMode string

const (
	CacheBypass  CacheMode = "bypass"
	CacheEnabled CacheMode = "enabled"
)

// Generation holds sampling parameters forwarded to the model.
type Generation struct {
	Temperature float64 `yaml:"temperature" json:"temperature"`
	MaxTokens   int64   `yaml:"max_tokens" json:"max_tokens"`
}

// CrawlRequest describes one schema-driven extraction. It is built once per
// run and shared read-only by every crawl.
type CrawlRequest struct {
	Provider            string      `json:"provider"`
	Schema              Schema      `json:"schema"`
	Instruction         string      `json:"instruction"`
	ExtractionType      string      `json:"extraction_type"`
	ChunkTokenThreshold int         `json:"chunk_token_threshold"`
	OverlapRate         float64     `json:"overlap_rate"`
	ApplyChunking       bool        `json:"apply_chunking"`
	InputFormat         InputFormat `json:"input_format"`
	Generation          Generation  `json:"generation"`
	CacheMode           CacheMode   `json:"cache_mode"`
}

// CrawlResult is what the crawler reports for one URL. Failures are carried
// in ErrorMessage; ExtractedContent is nil when nothing was produced.
type CrawlResult struct {
	URL              string        `json:"url"`
	Success          bool          `json:"success"`
	ExtractedContent *string       `json:"extracted_content,omitempty"`
	ErrorMessage     string        `json:"error_message,omitempty"`
	StatusCode       int           `json:"status_code,omitempty"`
	Source           string        `json:"source,omitempty"`
	FromCache        bool          `json:"from_cache,omitempty"`
	RateLimited      bool          `json:"-"`
	RetryAfter       time.Duration `json:"-"`
	Usage            Usage         `json:"usage"`
}

// Usage accumulates model token consumption.
type Usage struct {
	Requests         int   `json:"requests"`
	PromptTokens     int64 `json:"prompt_tokens"`
	CompletionTokens int64 `json:"completion_tokens"`
	TotalTokens      int64 `json:"total_tokens"`
}

// Add folds other into u.
func (u *Usage) Add(other Usage) {
	u.Requests += other.Requests
	u.PromptTokens += other.PromptTokens
	u.CompletionTokens += other.CompletionTokens
	u.TotalTokens += other.TotalTokens
}
