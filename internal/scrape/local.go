package scrape

import (
	"bytes"
	"context"
	"io"
	"mime"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/text/encoding/htmlindex"

	"github.com/sells-group/extract-cli/internal/model"
)

const (
	defaultUserAgent = "Mozilla/5.0 (compatible; extract-cli/1.0)"
	defaultMaxBody   = 8 << 20
)

// LocalScraper fetches HTML via net/http, detects blocks, and decodes the
// body to UTF-8. Free, no API calls. Falls through to Jina/Firecrawl when
// blocked.
type LocalScraper struct {
	client    *http.Client
	userAgent string
	maxBody   int64
}

// LocalOption configures a LocalScraper.
type LocalOption func(*LocalScraper)

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) LocalOption {
	return func(l *LocalScraper) {
		if ua != "" {
			l.userAgent = ua
		}
	}
}

// WithMaxBodyBytes caps how much of a response body is read.
func WithMaxBodyBytes(n int64) LocalOption {
	return func(l *LocalScraper) {
		if n > 0 {
			l.maxBody = n
		}
	}
}

// WithLocalHTTPClient replaces the HTTP client.
func WithLocalHTTPClient(hc *http.Client) LocalOption {
	return func(l *LocalScraper) {
		l.client = hc
	}
}

// NewLocalScraper creates a LocalScraper with sensible defaults.
func NewLocalScraper(opts ...LocalOption) *LocalScraper {
	l := &LocalScraper{
		client: &http.Client{
			Timeout: 30 * time.Second,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout: 10 * time.Second,
				}).DialContext,
				TLSHandshakeTimeout: 10 * time.Second,
			},
		},
		userAgent: defaultUserAgent,
		maxBody:   defaultMaxBody,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func (l *LocalScraper) Name() string           { return "local_http" }
func (l *LocalScraper) Supports(u string) bool { return isWebURL(u) }

// Scrape fetches a URL, detects blocks, and returns the decoded HTML with a
// plain-text rendition in Markdown.
func (l *LocalScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, targetURL, nil)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: create request")
	}
	req.Header.Set("User-Agent", l.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml;q=0.9,*/*;q=0.8")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "local_http: fetch")
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, l.maxBody))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: read body")
	}

	blocked, blockType := DetectBlock(resp, body)
	if blocked {
		return nil, eris.Errorf("local_http: blocked (%s)", blockType)
	}

	if resp.StatusCode >= 400 {
		return nil, eris.Errorf("local_http: status %d", resp.StatusCode)
	}

	if len(body) < 100 {
		return nil, eris.New("local_http: empty page")
	}

	body = decodeCharset(body, resp.Header.Get("Content-Type"))

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, eris.Wrap(err, "local_http: parse html")
	}

	return &Result{
		Page: model.CrawledPage{
			URL:        resp.Request.URL.String(),
			Title:      strings.TrimSpace(doc.Find("title").First().Text()),
			Markdown:   plainText(doc),
			HTML:       string(body),
			StatusCode: resp.StatusCode,
		},
		Source: "local_http",
	}, nil
}

// decodeCharset converts body to UTF-8 using the charset from the
// Content-Type header. Unknown or missing charsets leave body untouched.
func decodeCharset(body []byte, contentType string) []byte {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return body
	}
	cs := strings.ToLower(params["charset"])
	if cs == "" || cs == "utf-8" || cs == "utf8" {
		return body
	}
	enc, err := htmlindex.Get(cs)
	if err != nil {
		zap.L().Debug("local_http: unknown charset", zap.String("charset", cs))
		return body
	}
	decoded, err := enc.NewDecoder().Bytes(body)
	if err != nil {
		return body
	}
	return decoded
}

// plainText removes script, style, nav and footer blocks and returns the
// remaining body text with whitespace collapsed per line.
func plainText(doc *goquery.Document) string {
	body := doc.Find("body")
	if body.Length() == 0 {
		body = doc.Selection
	}
	body = body.Clone()
	body.Find("script, style, noscript, nav, footer").Remove()

	var lines []string
	for _, line := range strings.Split(body.Text(), "\n") {
		if f := strings.Fields(line); len(f) > 0 {
			lines = append(lines, strings.Join(f, " "))
		}
	}
	return strings.Join(lines, "\n")
}
