package fetcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"

	"pagesift/internal/config"
	"pagesift/internal/types"
)

// BrowserFetcher obtains pages by driving a headless browser via Rod.
// One browser session is owned for the lifetime of the whole run, not
// per fetch; the pipeline driver acquires and releases it.
type BrowserFetcher struct {
	browser *rod.Browser
	page    *rod.Page
	cfg     *config.BrowserConfig
	logger  *slog.Logger
}

// NewBrowserFetcher launches a browser session configured per the
// browser config: headless execution, fixed viewport, and optional
// suppression of the automation-detection signal.
func NewBrowserFetcher(cfg *config.Config, logger *slog.Logger) (*BrowserFetcher, error) {
	bf := &BrowserFetcher{
		cfg:    &cfg.Browser,
		logger: logger.With("component", "browser_fetcher"),
	}

	launchURL, err := bf.launchBrowser()
	if err != nil {
		return nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(launchURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("connect browser: %w", err)
	}
	bf.browser = browser

	page, err := bf.newPage()
	if err != nil {
		_ = browser.Close()
		return nil, fmt.Errorf("open page: %w", err)
	}
	bf.page = page

	if err := page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:             cfg.Browser.ViewportWidth,
		Height:            cfg.Browser.ViewportHeight,
		DeviceScaleFactor: 1,
	}); err != nil {
		bf.logger.Warn("failed to set viewport", "error", err)
	}

	bf.logger.Info("browser session ready",
		"headless", cfg.Browser.Headless,
		"viewport", fmt.Sprintf("%dx%d", cfg.Browser.ViewportWidth, cfg.Browser.ViewportHeight),
		"suppress_automation", cfg.Browser.SuppressAutomation,
	)

	return bf, nil
}

// launchBrowser starts a Chromium instance with appropriate flags.
func (bf *BrowserFetcher) launchBrowser() (string, error) {
	l := launcher.New().
		Headless(bf.cfg.Headless).
		Set("disable-gpu").
		Set("disable-dev-shm-usage").
		Set("no-sandbox").
		Set("disable-setuid-sandbox").
		Set("window-size", fmt.Sprintf("%d,%d", bf.cfg.ViewportWidth, bf.cfg.ViewportHeight))

	if bf.cfg.SuppressAutomation {
		// Keeps navigator.webdriver unset so anti-bot heuristics are
		// less likely to block the session.
		l = l.Set("disable-blink-features", "AutomationControlled")
	}
	if bf.cfg.ChromePath != "" {
		l = l.Bin(bf.cfg.ChromePath)
	}

	return l.Launch()
}

// newPage creates the run-long page, stealth-patched if configured.
func (bf *BrowserFetcher) newPage() (*rod.Page, error) {
	if bf.cfg.SuppressAutomation {
		return stealth.Page(bf.browser)
	}
	return bf.browser.Page(proto.TargetCreateTarget{URL: "about:blank"})
}

// Fetch produces a page for the descriptor. For a fresh descriptor it
// navigates and suspends until the marker element is present; a Live
// descriptor means the interactive paginator already navigated, so
// only the rendered content is captured. A marker timeout is a
// FetchError, never a partially-rendered success.
func (bf *BrowserFetcher) Fetch(ctx context.Context, ref *types.PageRef) (*types.Page, error) {
	start := time.Now()

	if !ref.Live {
		if err := bf.page.Context(ctx).Navigate(ref.URL); err != nil {
			return nil, &types.FetchError{URL: ref.URL, Err: err}
		}
		if err := bf.WaitMarker(ctx); err != nil {
			return nil, &types.FetchError{URL: ref.URL, Err: err}
		}
	}

	html, err := bf.page.Context(ctx).HTML()
	if err != nil {
		return nil, &types.FetchError{URL: ref.URL, Err: err}
	}

	duration := time.Since(start)
	page := types.NewPage(*ref, []byte(html), duration)

	bf.logger.Debug("browser fetch complete",
		"url", ref.URL,
		"page", ref.Index,
		"live", ref.Live,
		"size", len(html),
		"duration", duration,
	)

	return page, nil
}

// WaitMarker suspends until the marker element is present in the
// current page, bounded by the configured wait timeout.
func (bf *BrowserFetcher) WaitMarker(ctx context.Context) error {
	page := bf.page.Context(ctx).Timeout(bf.cfg.WaitTimeout)

	var err error
	if bf.cfg.MarkerType == "xpath" {
		_, err = page.ElementX(bf.cfg.Marker)
	} else {
		_, err = page.Element(bf.cfg.Marker)
	}
	if err != nil {
		return fmt.Errorf("%w: %q after %s: %v",
			types.ErrMarkerTimeout, bf.cfg.Marker, bf.cfg.WaitTimeout, err)
	}
	return nil
}

// Page exposes the session page so the interactive paginator can
// activate the next affordance in the same rendered state. The
// session itself stays owned by this fetcher.
func (bf *BrowserFetcher) Page() *rod.Page {
	return bf.page
}

// Close shuts down the browser session.
func (bf *BrowserFetcher) Close() error {
	if bf.page != nil {
		_ = bf.page.Close()
	}
	if bf.browser != nil {
		return bf.browser.Close()
	}
	return nil
}

// Type returns the fetcher type identifier.
func (bf *BrowserFetcher) Type() string {
	return "browser"
}
