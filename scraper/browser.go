package scraper

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"sync"
	"time"

	"github.com/chromedp/chromedp"

	"repairer-discovery/utils"
)

// BrowserOptions configures the headless browser process.
type BrowserOptions struct {
	ChromeBin   string
	UserAgent   string
	PageTimeout time.Duration
}

// Browser is one headless Chrome process driving a single tab. It is not safe
// for concurrent use; every pipeline run opens its own.
type Browser struct {
	logger      *utils.Logger
	pageTimeout time.Duration

	tabCtx      context.Context
	cancelTab   context.CancelFunc
	cancelAlloc context.CancelFunc

	closeOnce sync.Once
}

// OpenBrowser starts the browser process and its tab. The process outlives
// ctx cancellation and is released only by Close.
func OpenBrowser(ctx context.Context, opts BrowserOptions, logger *utils.Logger) (*Browser, error) {
	chromeBin := findChromeBinary(opts.ChromeBin)
	logger.Debug("[browser] Using browser binary: %s", chromeBin)

	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-setuid-sandbox", true),
		chromedp.Flag("lang", "fr-FR"),
		chromedp.WindowSize(1366, 900),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	if chromeBin != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(chromeBin))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), allocOpts...)

	// Suppress chromedp log noise
	tabCtx, cancelTab := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(string, ...interface{}) {}))

	b := &Browser{
		logger:      logger,
		pageTimeout: opts.PageTimeout,
		tabCtx:      tabCtx,
		cancelTab:   cancelTab,
		cancelAlloc: cancelAlloc,
	}
	if b.pageTimeout == 0 {
		b.pageTimeout = 60 * time.Second
	}

	// An empty Run launches the process so start-up failures surface here.
	if err := chromedp.Run(tabCtx); err != nil {
		_ = b.Close()
		return nil, fmt.Errorf("browser: launch: %w", err)
	}
	return b, nil
}

// Render navigates the tab to url, runs the extra actions and returns the
// resulting document HTML.
func (b *Browser) Render(url string, actions ...chromedp.Action) (string, error) {
	ctx, cancel := context.WithTimeout(b.tabCtx, b.pageTimeout)
	defer cancel()

	var html string
	tasks := chromedp.Tasks{
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	}
	for _, a := range actions {
		tasks = append(tasks, a)
	}
	tasks = append(tasks, chromedp.OuterHTML("html", &html))

	if err := chromedp.Run(ctx, tasks); err != nil {
		return "", fmt.Errorf("browser: render %s: %w", url, err)
	}
	return html, nil
}

// Close shuts the tab and the browser process. It is safe to call more than once.
func (b *Browser) Close() error {
	var err error
	b.closeOnce.Do(func() {
		err = chromedp.Cancel(b.tabCtx)
		b.cancelTab()
		b.cancelAlloc()
		b.logger.Debug("[browser] Browser closed")
	})
	return err
}

// findChromeBinary locates Chrome/Chromium binary.
func findChromeBinary(override string) string {
	if override != "" {
		return override
	}
	if bin := os.Getenv("CHROME_BIN"); bin != "" {
		return bin
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
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err == nil {
			return p
		}
	}

	return ""
}
