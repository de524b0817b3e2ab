package scrape

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBrowserScraper_Defaults(t *testing.T) {
	b := NewBrowserScraper(BrowserOptions{Headless: true})
	assert.Equal(t, "browser", b.Name())
	assert.Equal(t, 60*time.Second, b.opts.Timeout)
	assert.True(t, b.opts.Headless)

	b = NewBrowserScraper(BrowserOptions{Timeout: 5 * time.Second})
	assert.Equal(t, 5*time.Second, b.opts.Timeout)
}

func TestBrowserScraper_Supports(t *testing.T) {
	b := NewBrowserScraper(BrowserOptions{})
	assert.True(t, b.Supports("https://en.wikipedia.org/wiki/Mohammed_Rafi_discography"))
	assert.False(t, b.Supports("/wiki/Baiju_Bawra"))
	assert.False(t, b.Supports("file:///etc/passwd"))
}

func TestBrowserScraper_CloseWithoutLaunch(t *testing.T) {
	b := NewBrowserScraper(BrowserOptions{})
	require.NoError(t, b.Close())
	require.NoError(t, b.Close())
}

type fakeProcess struct {
	calls []string
}

func (p *fakeProcess) Kill()    { p.calls = append(p.calls, "kill") }
func (p *fakeProcess) Cleanup() { p.calls = append(p.calls, "cleanup") }

func TestBrowserScraper_ConnectFailureReleasesProcess(t *testing.T) {
	proc := &fakeProcess{}
	b := NewBrowserScraper(BrowserOptions{})
	b.launch = func() (string, browserProcess, error) {
		return "ws://127.0.0.1:1/devtools/browser/none", proc, nil
	}

	_, err := b.connect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser: connect")
	assert.Equal(t, []string{"kill", "cleanup"}, proc.calls)
	assert.Nil(t, b.proc)
}

func TestBrowserScraper_LaunchFailure(t *testing.T) {
	b := NewBrowserScraper(BrowserOptions{})
	b.launch = func() (string, browserProcess, error) {
		return "", nil, errors.New("no chromium")
	}

	_, err := b.connect()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "browser: launch")
	require.NoError(t, b.Close())
}

func TestBrowserScraper_CloseReleasesProcess(t *testing.T) {
	proc := &fakeProcess{}
	b := NewBrowserScraper(BrowserOptions{})
	b.proc = proc

	require.NoError(t, b.Close())
	assert.Equal(t, []string{"kill", "cleanup"}, proc.calls)

	require.NoError(t, b.Close())
	assert.Len(t, proc.calls, 2)
}

func TestIsWebURL(t *testing.T) {
	assert.True(t, isWebURL("http://localhost:8080/x"))
	assert.True(t, isWebURL("https://example.com"))
	assert.False(t, isWebURL("https://"))
	assert.False(t, isWebURL("example.com/page"))
	assert.False(t, isWebURL("://bad"))
}
