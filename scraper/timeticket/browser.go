package timeticket

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"

	"github.com/Re-Local/Backend/utils"
)

// BrowserConfig controls the headless Chrome session.
type BrowserConfig struct {
	ChromeBin      string
	Headless       bool
	UserAgent      string
	AcceptLanguage string
	Locale         string
}

// Browser is a Page backed by a single long-lived chromedp tab. It is not
// safe for concurrent use; detail pages are visited one after another.
type Browser struct {
	allocCancel context.CancelFunc
	tabCtx      context.Context
	tabCancel   context.CancelFunc
}

// NewBrowser starts Chrome, opens one tab and applies the user agent and
// locale overrides. Callers must Close it.
func NewBrowser(ctx context.Context, cfg BrowserConfig, logger *utils.Logger) (*Browser, error) {
	chromeBin := findChromeBinary(cfg.ChromeBin)
	logger.Info("[browser] Using browser binary: %s", orDefault(chromeBin, "(chromedp default)"))

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", cfg.Headless),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("lang", cfg.Locale),
		chromedp.UserAgent(cfg.UserAgent),
	)
	if chromeBin != "" {
		opts = append(opts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	// Suppress chromedp log noise
	tabCtx, tabCancel := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...any) {}))

	err := chromedp.Run(tabCtx,
		network.Enable(),
		emulation.SetUserAgentOverride(cfg.UserAgent).WithAcceptLanguage(cfg.AcceptLanguage),
		emulation.SetLocaleOverride().WithLocale(strings.ReplaceAll(cfg.Locale, "-", "_")),
		network.SetExtraHTTPHeaders(network.Headers{"Accept-Language": cfg.AcceptLanguage}),
	)
	if err != nil {
		tabCancel()
		allocCancel()
		return nil, fmt.Errorf("browser: start: %w", err)
	}

	return &Browser{allocCancel: allocCancel, tabCtx: tabCtx, tabCancel: tabCancel}, nil
}

// Close shuts the tab and the browser process down.
func (b *Browser) Close() error {
	if b == nil {
		return nil
	}
	b.tabCancel()
	b.allocCancel()
	return nil
}

func (b *Browser) Navigate(ctx context.Context, url string) error {
	return b.run(ctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
}

func (b *Browser) Document(ctx context.Context) (*goquery.Document, error) {
	var html string
	if err := b.run(ctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return nil, err
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil, fmt.Errorf("browser: parse snapshot: %w", err)
	}
	return doc, nil
}

func (b *Browser) ClickText(ctx context.Context, text string) (bool, error) {
	label, err := json.Marshal(text)
	if err != nil {
		return false, fmt.Errorf("browser: encode label: %w", err)
	}
	var clicked bool
	err = b.run(ctx, chromedp.Evaluate(fmt.Sprintf(clickByNameJS, label), &clicked))
	return clicked, err
}

// run executes actions on the shared tab. The tab context outlives every
// call, so ctx's deadline and cancellation are forwarded onto a child of it.
func (b *Browser) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithCancel(b.tabCtx)
	if deadline, ok := ctx.Deadline(); ok {
		cancel()
		runCtx, cancel = context.WithDeadline(b.tabCtx, deadline)
	}
	defer cancel()

	stop := forwardCancel(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("chromedp: %w", ctxErr)
		}
		return fmt.Errorf("chromedp: %w", err)
	}
	return nil
}

func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

const clickByNameJS = `
(function(label) {
	var nodes = document.querySelectorAll('a, button, li, span, [role="tab"], [role="button"]');
	for (var i = 0; i < nodes.length; i++) {
		var el = nodes[i];
		var name = (el.getAttribute('aria-label') || el.textContent || '').trim();
		if (name === label) {
			el.click();
			return true;
		}
	}
	return false;
})(%s)`

// findChromeBinary locates Chrome/Chromium, preferring an explicit path.
func findChromeBinary(explicit string) string {
	if explicit != "" {
		return explicit
	}

	names := []string{"google-chrome-stable", "google-chrome", "chromium", "chromium-browser"}
	for _, name := range names {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}

	paths := []string{
		"/usr/bin/google-chrome-stable",
		"/usr/bin/google-chrome",
		"/usr/bin/chromium-browser",
		"/usr/bin/chromium",
		"/snap/bin/chromium",
		"/opt/google/chrome/google-chrome",
		"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}

func orDefault(s, fallback string) string {
	if s == "" {
		return fallback
	}
	return s
}

// settle waits d unless ctx ends first.
func settle(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
