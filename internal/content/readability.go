package content

import (
	"net/url"
	"strings"

	readability "github.com/go-shiori/go-readability"
	"go.uber.org/zap"
)

// minMainContent is the shortest readability text accepted as the page's
// main content. Shorter results mean the algorithm missed it.
const minMainContent = 50

// MainContent runs the Readability algorithm over html and returns the main
// content markup. ok is false when the URL is invalid, extraction fails, or
// the result is too short; callers then use the full page.
func MainContent(html, pageURL string) (string, bool) {
	u, err := url.Parse(pageURL)
	if err != nil {
		zap.L().Debug("content: invalid page url for readability",
			zap.String("url", pageURL),
			zap.Error(err),
		)
		return "", false
	}

	article, err := readability.FromReader(strings.NewReader(html), u)
	if err != nil {
		zap.L().Debug("content: readability failed, using full page",
			zap.String("url", pageURL),
			zap.Error(err),
		)
		return "", false
	}

	if len(strings.TrimSpace(article.TextContent)) < minMainContent {
		zap.L().Debug("content: readability result too short, using full page",
			zap.String("url", pageURL),
			zap.Int("length", len(article.TextContent)),
		)
		return "", false
	}
	return article.Content, true
}
