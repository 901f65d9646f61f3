package browser

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"runtime"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/lance13c/shopassist/internal/config"
	"github.com/lance13c/shopassist/internal/logging"
)

// ChromeDPManager owns one Chrome instance and its main tab
type ChromeDPManager struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
	timeout     time.Duration
	isHeadless  bool
}

// FindChrome attempts to find a Chrome executable
func FindChrome() (string, error) {
	var paths []string

	switch runtime.GOOS {
	case "darwin":
		paths = []string{
			"/Applications/Google Chrome.app/Contents/MacOS/Google Chrome",
			"/Applications/Chromium.app/Contents/MacOS/Chromium",
			"/Applications/Brave Browser.app/Contents/MacOS/Brave Browser",
		}
	case "linux":
		paths = []string{
			"google-chrome",
			"google-chrome-stable",
			"chromium",
			"chromium-browser",
		}
	case "windows":
		paths = []string{
			`C:\Program Files\Google\Chrome\Application\chrome.exe`,
			`C:\Program Files (x86)\Google\Chrome\Application\chrome.exe`,
		}
	}

	for _, path := range paths {
		if runtime.GOOS == "darwin" {
			if _, err := os.Stat(path); err == nil {
				logging.Debug("Found Chrome at: %s", path)
				return path, nil
			}
		} else if found, err := exec.LookPath(path); err == nil {
			logging.Debug("Found Chrome at: %s", found)
			return found, nil
		}
	}

	if path, err := exec.LookPath("chrome"); err == nil {
		return path, nil
	}

	return "", ErrChromeNotFound
}

// NewChromeDPManager starts Chrome with the configured options
func NewChromeDPManager(cfg config.BrowserConfig) (*ChromeDPManager, error) {
	chromePath := cfg.ChromePath
	if chromePath == "" {
		var err error
		chromePath, err = FindChrome()
		if err != nil {
			return nil, err
		}
	}
	logging.Info("Using Chrome from: %s", chromePath)

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(chromePath),
		chromedp.WindowSize(cfg.WindowWidth, cfg.WindowHeight),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
	)
	if !cfg.Headless {
		logging.Info("Chrome will run in visible mode (headless=false)")
		opts = append(opts, chromedp.Flag("headless", false))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)

	ctx, cancel := chromedp.NewContext(
		allocCtx,
		chromedp.WithLogf(func(format string, v ...interface{}) {
			logging.Debug("[Chrome] "+format, v...)
		}),
	)

	// Start Chrome on the long-lived context; a timeout here would kill the browser
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, fmt.Errorf("failed to start Chrome: %w", err)
	}

	return &ChromeDPManager{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
		timeout:     cfg.Timeout,
		isHeadless:  cfg.Headless,
	}, nil
}

// run executes actions on the tab, bounded by the manager timeout and by ctx
func (m *ChromeDPManager) run(ctx context.Context, actions ...chromedp.Action) error {
	runCtx, cancel := context.WithTimeout(m.ctx, m.timeout)
	defer cancel()

	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	if err := chromedp.Run(runCtx, actions...); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if m.ctx.Err() != nil {
			return fmt.Errorf("Chrome context was cancelled")
		}
		return err
	}
	return nil
}

// Navigate loads url in the tab
func (m *ChromeDPManager) Navigate(ctx context.Context, url string) error {
	if err := m.run(ctx, chromedp.Navigate(url)); err != nil {
		return fmt.Errorf("failed to navigate to %s: %w", url, err)
	}
	return nil
}

// GetPageInfo gets current page URL and title
func (m *ChromeDPManager) GetPageInfo(ctx context.Context) (url string, title string, err error) {
	err = m.run(ctx,
		chromedp.Location(&url),
		chromedp.Title(&title),
	)
	return url, title, err
}

// WaitForPageLoad polls document.readyState until the page is interactive
func (m *ChromeDPManager) WaitForPageLoad(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	script := `document.readyState === 'complete' || document.readyState === 'interactive'`

	for {
		var ready bool
		if err := m.run(ctx, chromedp.Evaluate(script, &ready)); err != nil {
			return fmt.Errorf("failed to check page readiness: %w", err)
		}
		if ready {
			return nil
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for page to load")
		case <-time.After(100 * time.Millisecond):
		}
	}
}

// Document returns the auto-fill view of the current tab
func (m *ChromeDPManager) Document() *PageDocument {
	return &PageDocument{m: m}
}

// Close closes the browser and cleans up resources
func (m *ChromeDPManager) Close() {
	if m.cancel != nil {
		m.cancel()
	}
	if m.allocCancel != nil {
		m.allocCancel()
	}
}
