package extract

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/extract-cli/internal/cost"
	"github.com/sells-group/extract-cli/internal/llm"
	"github.com/sells-group/extract-cli/internal/model"
)

// Extraction is the merged answer for one page.
type Extraction struct {
	// Content is the merged JSON array, or the raw model text when no chunk
	// produced valid JSON.
	Content string
	Chunks  int
	Usage   model.Usage
}

// Strategy runs schema extraction for one request against one provider and
// keeps a running token tally. It is safe for concurrent use.
type Strategy struct {
	provider llm.Provider
	req      model.CrawlRequest
	system   string

	mu      sync.Mutex
	usage   model.Usage
	history []model.Usage
}

// NewStrategy creates a Strategy. The system prompt is rendered once.
func NewStrategy(provider llm.Provider, req model.CrawlRequest) *Strategy {
	return &Strategy{
		provider: provider,
		req:      req,
		system:   SystemPrompt(req.Schema, req.Instruction),
	}
}

// Request returns the request the strategy was built from.
func (s *Strategy) Request() model.CrawlRequest { return s.req }

// Extract splits content into chunks, asks the model once per chunk, and
// merges the answers. A provider error on any chunk fails the page.
func (s *Strategy) Extract(ctx context.Context, pageURL, content string) (*Extraction, error) {
	chunks := []string{strings.TrimSpace(content)}
	if s.req.ApplyChunking {
		chunks = Chunk(content, s.req.ChunkTokenThreshold, s.req.OverlapRate)
	}
	if len(chunks) == 0 || chunks[0] == "" {
		return nil, eris.Errorf("extract: no content for %s", pageURL)
	}

	var (
		parts []json.RawMessage
		raws  []string
		usage model.Usage
	)
	for i, chunk := range chunks {
		resp, err := s.provider.Complete(ctx, llm.Completion{
			System:      s.system,
			Prompt:      UserPrompt(pageURL, chunk, i, len(chunks)),
			Temperature: s.req.Generation.Temperature,
			MaxTokens:   s.req.Generation.MaxTokens,
		})
		if err != nil {
			s.record(usage)
			return nil, eris.Wrapf(err, "extract: chunk %d/%d", i+1, len(chunks))
		}
		usage.Add(resp.Usage)
		raws = append(raws, resp.Text)

		data, ok := CleanJSON(resp.Text)
		if !ok {
			zap.L().Warn("extract: chunk answer is not JSON",
				zap.String("url", pageURL),
				zap.Int("chunk", i+1),
				zap.Int("chunks", len(chunks)),
			)
			continue
		}
		parts = append(parts, data)
	}
	s.record(usage)

	out := &Extraction{Chunks: len(chunks), Usage: usage}
	if len(parts) == 0 {
		out.Content = strings.Join(raws, "\n")
		return out, nil
	}
	out.Content = string(Merge(parts))
	return out, nil
}

func (s *Strategy) record(u model.Usage) {
	if u.Requests == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.usage.Add(u)
	s.history = append(s.history, u)
}

// Usage returns the tokens consumed so far.
func (s *Strategy) Usage() model.Usage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.usage
}

// ShowUsage writes a usage table with an estimated cost for the provider's
// model, followed by the per-page history.
func (s *Strategy) ShowUsage(w io.Writer, calc *cost.Calculator) error {
	s.mu.Lock()
	total := s.usage
	history := append([]model.Usage(nil), s.history...)
	s.mu.Unlock()

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "PROVIDER\tREQUESTS\tPROMPT\tCOMPLETION\tTOTAL\tEST. COST\n")
	fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t$%.4f\n",
		s.req.Provider, total.Requests, total.PromptTokens, total.CompletionTokens, total.TotalTokens,
		calc.Tokens(s.req.Provider, total.PromptTokens, total.CompletionTokens),
	)
	if len(history) > 0 {
		fmt.Fprintf(tw, "\nPAGE\tREQUESTS\tPROMPT\tCOMPLETION\tTOTAL\t\n")
		for i, u := range history {
			fmt.Fprintf(tw, "%d\t%d\t%d\t%d\t%d\t\n", i+1, u.Requests, u.PromptTokens, u.CompletionTokens, u.TotalTokens)
		}
	}
	return tw.Flush()
}
