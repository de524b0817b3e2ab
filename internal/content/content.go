// Package content turns scraped pages into the text handed to the extraction
// model: cleaned HTML, markdown, main-content markdown, or plain text.
package content

import (
	"strings"

	htmltomd "github.com/JohannesKaufmann/html-to-markdown/v2/converter"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/base"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/commonmark"
	"github.com/JohannesKaufmann/html-to-markdown/v2/plugin/table"
	"github.com/PuerkitoBio/goquery"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/extract-cli/internal/model"
)

// noiseSelector lists elements that never carry extractable content.
const noiseSelector = "script, style, noscript, iframe, svg, template, link, meta"

// Converter renders pages in a requested input format. It is safe for
// concurrent use.
type Converter struct {
	md *htmltomd.Converter
}

// NewConverter creates a Converter with a markdown renderer that keeps
// table structure using minimal cell padding.
func NewConverter() *Converter {
	return &Converter{
		md: htmltomd.NewConverter(
			htmltomd.WithPlugins(
				base.NewBasePlugin(),
				commonmark.NewCommonmarkPlugin(),
				table.NewTablePlugin(
					table.WithCellPaddingBehavior(table.CellPaddingBehaviorMinimal),
				),
			),
		),
	}
}

// Convert renders page in format. Pages without HTML (reader APIs that only
// return markdown) fall back to their markdown for every format.
func (c *Converter) Convert(page model.CrawledPage, format model.InputFormat) (string, error) {
	if strings.TrimSpace(page.HTML) == "" {
		if page.Markdown == "" {
			return "", eris.New("content: page has no content")
		}
		if format != model.FormatMarkdown && format != model.FormatFitMarkdown {
			zap.L().Debug("content: no html available, using markdown",
				zap.String("url", page.URL),
				zap.String("format", string(format)),
			)
		}
		return page.Markdown, nil
	}

	switch format {
	case model.FormatHTML, "":
		return CleanHTML(page.HTML)
	case model.FormatMarkdown:
		return c.markdown(page.HTML, page.URL)
	case model.FormatFitMarkdown:
		return c.fitMarkdown(page.HTML, page.URL)
	case model.FormatText:
		return Text(page.HTML)
	default:
		return "", eris.Errorf("content: unknown input format %q", format)
	}
}

func (c *Converter) markdown(html, pageURL string) (string, error) {
	cleaned, err := CleanHTML(html)
	if err != nil {
		return "", err
	}
	md, err := c.md.ConvertString(cleaned, htmltomd.WithDomain(pageURL))
	if err != nil {
		return "", eris.Wrap(err, "content: convert markdown")
	}
	return strings.TrimSpace(md), nil
}

func (c *Converter) fitMarkdown(html, pageURL string) (string, error) {
	main, ok := MainContent(html, pageURL)
	if !ok {
		return c.markdown(html, pageURL)
	}
	md, err := c.md.ConvertString(main, htmltomd.WithDomain(pageURL))
	if err != nil {
		return "", eris.Wrap(err, "content: convert fit markdown")
	}
	return strings.TrimSpace(md), nil
}

// CleanHTML strips non-content elements and returns the body markup.
func CleanHTML(html string) (string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", eris.Wrap(err, "content: parse html")
	}
	doc.Find(noiseSelector).Remove()

	sel := doc.Find("body")
	if sel.Length() == 0 {
		sel = doc.Selection
	}
	out, err := sel.Html()
	if err != nil {
		return "", eris.Wrap(err, "content: render html")
	}
	return strings.TrimSpace(out), nil
}

// Text returns the visible text of html, one non-empty line per line with
// runs of whitespace collapsed.
func Text(html string) (string, error) {
	cleaned, err := CleanHTML(html)
	if err != nil {
		return "", err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(cleaned))
	if err != nil {
		return "", eris.Wrap(err, "content: parse html")
	}
	var lines []string
	for _, line := range strings.Split(doc.Text(), "\n") {
		if f := strings.Fields(line); len(f) > 0 {
			lines = append(lines, strings.Join(f, " "))
		}
	}
	return strings.Join(lines, "\n"), nil
}
