package scrape

import (
	"context"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/extract-cli/internal/model"
)

// BrowserOptions configures the headless browser.
type BrowserOptions struct {
	Headless  bool
	NoSandbox bool
	Bin       string        // browser binary; empty lets rod find or download one
	Timeout   time.Duration // per-page budget; 0 = 60s
}

// browserProcess is the launched Chromium process. *launcher.Launcher
// satisfies it.
type browserProcess interface {
	Kill()
	Cleanup()
}

// BrowserScraper renders pages in a Chromium instance driven by rod. The
// browser is launched on first use and reused for every page until Close.
type BrowserScraper struct {
	opts   BrowserOptions
	launch func() (string, browserProcess, error)

	mu      sync.Mutex
	browser *rod.Browser
	proc    browserProcess
}

// NewBrowserScraper creates a BrowserScraper. No process is started until
// the first Scrape.
func NewBrowserScraper(opts BrowserOptions) *BrowserScraper {
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	b := &BrowserScraper{opts: opts}
	b.launch = b.launchChromium
	return b
}

func (b *BrowserScraper) launchChromium() (string, browserProcess, error) {
	l := launcher.New().
		Headless(b.opts.Headless).
		NoSandbox(b.opts.NoSandbox)
	if b.opts.Bin != "" {
		l = l.Bin(b.opts.Bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return "", nil, err
	}
	return controlURL, l, nil
}

func (b *BrowserScraper) Name() string           { return "browser" }
func (b *BrowserScraper) Supports(u string) bool { return isWebURL(u) }

func (b *BrowserScraper) connect() (*rod.Browser, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.browser != nil {
		return b.browser, nil
	}

	controlURL, proc, err := b.launch()
	if err != nil {
		return nil, eris.Wrap(err, "browser: launch")
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		releaseProcess(proc)
		return nil, eris.Wrap(err, "browser: connect")
	}
	zap.L().Info("browser: launched", zap.String("control_url", controlURL))

	b.browser = browser
	b.proc = proc
	return browser, nil
}

// Scrape navigates to the URL, waits for the DOM to settle and returns the
// rendered HTML.
func (b *BrowserScraper) Scrape(ctx context.Context, targetURL string) (*Result, error) {
	browser, err := b.connect()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, b.opts.Timeout)
	defer cancel()

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		return nil, eris.Wrap(err, "browser: open page")
	}
	defer func() { _ = page.Close() }()

	p := page.Context(ctx)
	if err := p.Navigate(targetURL); err != nil {
		return nil, eris.Wrapf(err, "browser: navigate %s", targetURL)
	}
	if err := p.WaitDOMStable(300*time.Millisecond, 0.1); err != nil {
		if ctx.Err() != nil {
			return nil, eris.Wrap(ctx.Err(), "browser: wait for page")
		}
		zap.L().Debug("browser: DOM did not settle, using current DOM",
			zap.String("url", targetURL),
			zap.Error(err),
		)
	}

	statusCode := 0
	if res, err := p.Eval(`() => {
		try {
			const entries = performance.getEntriesByType("navigation");
			if (entries.length > 0) return entries[0].responseStatus || 0;
		} catch (e) {}
		return 0;
	}`); err == nil {
		statusCode = res.Value.Int()
	}
	if statusCode >= 400 {
		return nil, eris.Errorf("browser: status %d", statusCode)
	}

	html, err := p.HTML()
	if err != nil {
		return nil, eris.Wrap(err, "browser: read html")
	}
	if blocked, blockType := DetectBodyBlock([]byte(html)); blocked {
		return nil, eris.Errorf("browser: blocked (%s)", blockType)
	}

	title := evalString(p, `() => document.title`)
	finalURL := evalString(p, `() => window.location.href`)
	if finalURL == "" {
		finalURL = targetURL
	}
	if statusCode == 0 {
		statusCode = 200
	}

	return &Result{
		Page: model.CrawledPage{
			URL:        finalURL,
			Title:      title,
			HTML:       html,
			StatusCode: statusCode,
		},
		Source: "browser",
	}, nil
}

func evalString(p *rod.Page, js string) string {
	res, err := p.Eval(js)
	if err != nil {
		return ""
	}
	return res.Value.Str()
}

// Close shuts the browser down, kills its process and removes the
// temporary profile directory.
func (b *BrowserScraper) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	var err error
	if b.browser != nil {
		err = b.browser.Close()
		b.browser = nil
	}
	if b.proc != nil {
		releaseProcess(b.proc)
		b.proc = nil
	}
	return eris.Wrap(err, "browser: close")
}

// releaseProcess kills the process before Cleanup, which waits for it to
// exit.
func releaseProcess(p browserProcess) {
	p.Kill()
	p.Cleanup()
}
