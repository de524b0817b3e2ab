package scrape

import (
	"context"
	"strings"

	"github.com/rotisserie/eris"

	"github.com/sells-group/extract-cli/internal/model"
	"github.com/sells-group/extract-cli/pkg/jina"
)

// minJinaContent is the shortest markdown accepted as a real page.
const minJinaContent = 100

// readerChallenges are phrases Jina copies verbatim from interstitial pages.
// They only count on short bodies; long articles may quote them.
var readerChallenges = []string{
	"checking your browser",
	"enable javascript",
	"please enable cookies",
	"access denied",
	"403 forbidden",
	"just a moment",
	"cloudflare",
	"attention required",
}

// JinaAdapter serves pages through the Jina Reader. Jina answers with
// markdown, so its pages carry no HTML.
type JinaAdapter struct {
	client jina.Client
}

// NewJinaAdapter creates a JinaAdapter.
func NewJinaAdapter(client jina.Client) *JinaAdapter {
	return &JinaAdapter{client: client}
}

func (j *JinaAdapter) Name() string           { return "jina" }
func (j *JinaAdapter) Supports(u string) bool { return isWebURL(u) }

// Scrape reads targetURL and rejects interstitials and near-empty answers so
// the chain moves on.
func (j *JinaAdapter) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	resp, err := j.client.Read(ctx, targetURL)
	if err != nil {
		return nil, err
	}
	if reason := unusableReason(resp); reason != "" {
		return nil, eris.Errorf("jina: unusable response for %s (%s)", targetURL, reason)
	}

	page := model.CrawledPage{
		URL:        resp.Data.URL,
		Title:      resp.Data.Title,
		Markdown:   resp.Data.Content,
		StatusCode: resp.Code,
	}
	if page.URL == "" {
		page.URL = targetURL
	}
	if page.StatusCode == 0 {
		page.StatusCode = 200
	}
	return &Result{Page: page, Source: "jina"}, nil
}

// unusableReason explains why resp cannot be used, or returns "".
func unusableReason(resp *jina.ReadResponse) string {
	if resp == nil {
		return "no response"
	}
	if resp.Code != 0 && resp.Code != 200 {
		return "upstream status"
	}
	content := strings.TrimSpace(resp.Data.Content)
	if len(content) < minJinaContent {
		return "short content"
	}
	if len(content) < 1000 {
		lower := strings.ToLower(content)
		for _, phrase := range readerChallenges {
			if strings.Contains(lower, phrase) {
				return "challenge page"
			}
		}
	}
	return ""
}
