package content

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/extract-cli/internal/model"
)

const filmographyHTML = `<html><head><title>Filmography</title>
<style>.x{color:red}</style><script>var captcha = 1;</script></head>
<body>
<h1>Filmography</h1>
<table>
<tr><th>Title</th><th>Year</th></tr>
<tr><td><a href="/wiki/Roja">Roja</a></td><td>1992</td></tr>
</table>
<noscript>enable javascript</noscript>
</body></html>`

func TestCleanHTML(t *testing.T) {
	out, err := CleanHTML(filmographyHTML)
	require.NoError(t, err)
	assert.Contains(t, out, "<table>")
	assert.Contains(t, out, "Roja")
	assert.NotContains(t, out, "<script")
	assert.NotContains(t, out, "<style")
	assert.NotContains(t, out, "enable javascript")
	assert.NotContains(t, out, "<body")
}

func TestText(t *testing.T) {
	out, err := Text(`<body><p>Hello    world</p>

<div>second   line</div><script>x()</script></body>`)
	require.NoError(t, err)
	assert.Equal(t, "Hello world\nsecond line", out)
}

func TestConverter_Markdown(t *testing.T) {
	c := NewConverter()
	page := model.CrawledPage{URL: "https://en.wikipedia.org/wiki/Filmography", HTML: filmographyHTML}

	out, err := c.Convert(page, model.FormatMarkdown)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "# Filmography"))
	assert.Contains(t, out, "|")
	assert.Contains(t, out, "1992")
	assert.Contains(t, out, "https://en.wikipedia.org/wiki/Roja")
	assert.NotContains(t, out, "captcha")
}

func TestConverter_HTMLIsDefault(t *testing.T) {
	c := NewConverter()
	page := model.CrawledPage{URL: "https://example.com", HTML: filmographyHTML}

	html, err := c.Convert(page, model.FormatHTML)
	require.NoError(t, err)
	def, err := c.Convert(page, "")
	require.NoError(t, err)
	assert.Equal(t, html, def)
	assert.Contains(t, html, "<td>1992</td>")
}

func TestConverter_Text(t *testing.T) {
	c := NewConverter()
	out, err := c.Convert(model.CrawledPage{HTML: filmographyHTML}, model.FormatText)
	require.NoError(t, err)
	assert.Contains(t, out, "Roja")
	assert.NotContains(t, out, "<")
}

func TestConverter_FitMarkdownFallsBackOnShortPage(t *testing.T) {
	c := NewConverter()
	page := model.CrawledPage{URL: "https://example.com", HTML: "<html><body><p>tiny</p></body></html>"}

	out, err := c.Convert(page, model.FormatFitMarkdown)
	require.NoError(t, err)
	assert.Equal(t, "tiny", out)
}

func TestConverter_FitMarkdownArticle(t *testing.T) {
	c := NewConverter()
	para := strings.Repeat("Roja is a 1992 Indian Tamil-language romantic thriller film. ", 20)
	page := model.CrawledPage{
		URL: "https://example.com/roja",
		HTML: `<html><head><title>Roja</title></head><body>
<nav><a href="/">Home</a> <a href="/about">About</a></nav>
<article><h2>Plot</h2><p>` + para + `</p><p>` + para + `</p></article>
</body></html>`,
	}

	out, err := c.Convert(page, model.FormatFitMarkdown)
	require.NoError(t, err)
	assert.Contains(t, out, "romantic thriller")
	assert.NotContains(t, out, "About")
}

func TestConverter_MarkdownOnlyPage(t *testing.T) {
	c := NewConverter()
	page := model.CrawledPage{URL: "https://example.com", Markdown: "# From reader"}

	for _, f := range []model.InputFormat{model.FormatHTML, model.FormatMarkdown, model.FormatFitMarkdown, model.FormatText} {
		out, err := c.Convert(page, f)
		require.NoError(t, err)
		assert.Equal(t, "# From reader", out)
	}
}

func TestConverter_Errors(t *testing.T) {
	c := NewConverter()

	_, err := c.Convert(model.CrawledPage{}, model.FormatHTML)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no content")

	_, err = c.Convert(model.CrawledPage{HTML: "<p>x</p>"}, "pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown input format")
}

func TestMainContent_InvalidURL(t *testing.T) {
	_, ok := MainContent("<p>x</p>", "://bad")
	assert.False(t, ok)
}
