// Package extract turns page content into schema-shaped JSON with a
// language model: request building, chunking, prompting, and merging of
// per-chunk answers.
package extract

import (
	"github.com/sells-group/extract-cli/internal/model"
)

// Request defaults applied by BuildRequest when an option is unset.
const (
	DefaultProvider            = "gemini/gemini-1.5-flash"
	DefaultChunkTokenThreshold = 2048
	DefaultMaxTokens           = 2000000
	ExtractionTypeSchema       = "schema"
)

// Options are the per-job knobs of an extraction request. Zero values take
// the defaults above; input format defaults to html.
type Options struct {
	Provider            string
	Instruction         string
	ChunkTokenThreshold int
	OverlapRate         float64
	DisableChunking     bool
	InputFormat         model.InputFormat
	Temperature         float64
	MaxTokens           int64
	CacheMode           model.CacheMode
}

// BuildRequest assembles the request shared by every crawl of a run. It
// performs no validation against the provider; bad providers or schemas
// surface as crawl failures.
func BuildRequest(schema model.Schema, opts Options) model.CrawlRequest {
	req := model.CrawlRequest{
		Provider:            opts.Provider,
		Schema:              schema,
		Instruction:         opts.Instruction,
		ExtractionType:      ExtractionTypeSchema,
		ChunkTokenThreshold: opts.ChunkTokenThreshold,
		OverlapRate:         opts.OverlapRate,
		ApplyChunking:       !opts.DisableChunking,
		InputFormat:         opts.InputFormat,
		Generation: model.Generation{
			Temperature: opts.Temperature,
			MaxTokens:   opts.MaxTokens,
		},
		CacheMode: opts.CacheMode,
	}
	if req.Provider == "" {
		req.Provider = DefaultProvider
	}
	if req.ChunkTokenThreshold <= 0 {
		req.ChunkTokenThreshold = DefaultChunkTokenThreshold
	}
	if req.OverlapRate < 0 {
		req.OverlapRate = 0
	}
	if req.InputFormat == "" {
		req.InputFormat = model.FormatHTML
	}
	if req.Generation.MaxTokens <= 0 {
		req.Generation.MaxTokens = DefaultMaxTokens
	}
	if req.CacheMode == "" {
		req.CacheMode = model.CacheBypass
	}
	return req
}
