// Package chromebrowser implements the BrowserLauncher port on chromedp
// for the automated sign-in session, with the manual path falling back to
// the operating system's default browser.
package chromebrowser

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os/exec"

	"github.com/chromedp/chromedp"
	"github.com/cli/browser"

	"github.com/mhdalton/surplussync/internal/domain/model"
	"github.com/mhdalton/surplussync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.BrowserLauncher = (*Launcher)(nil)

// executableCandidates maps a browser choice to the binary names probed on
// PATH, in preference order.
var executableCandidates = map[model.BrowserChoice][]string{
	model.BrowserChrome:   {"google-chrome", "google-chrome-stable", "chrome"},
	model.BrowserChromium: {"chromium", "chromium-browser"},
	model.BrowserEdge:     {"microsoft-edge", "microsoft-edge-stable", "msedge"},
}

// Launcher drives a visible Chromium-family browser window. The sign-in
// flow watches the window's address bar, so headless mode is never used.
type Launcher struct{}

func New() *Launcher {
	return &Launcher{}
}

// Launch starts a browser window at the sign-in URL. choice selects the
// binary; BrowserDefault lets chromedp find an installed Chrome on its own.
// Startup failure returns a *driven.BrowserLaunchError.
func (l *Launcher) Launch(ctx context.Context, choice model.BrowserChoice, signInURL string) (driven.BrowserSession, error) {
	opts := []chromedp.ExecAllocatorOption{
		chromedp.NoFirstRun,
		chromedp.NoDefaultBrowserCheck,
		chromedp.Flag("headless", false),
	}

	if choice != model.BrowserDefault {
		path, err := findExecutable(choice)
		if err != nil {
			return nil, &driven.BrowserLaunchError{Browser: string(choice), Err: err}
		}
		opts = append(opts, chromedp.ExecPath(path))
	}

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(browserCtx, chromedp.Navigate(signInURL)); err != nil {
		cancelBrowser()
		cancelAlloc()
		return nil, &driven.BrowserLaunchError{Browser: string(choice), Err: err}
	}

	slog.Info("sign-in browser launched", "browser", choice)

	return &session{
		ctx:    browserCtx,
		cancel: func() { cancelBrowser(); cancelAlloc() },
	}, nil
}

// OpenDefault hands the URL to the user's default browser and returns.
func (l *Launcher) OpenDefault(signInURL string) error {
	if err := browser.OpenURL(signInURL); err != nil {
		return &driven.BrowserLaunchError{Browser: string(model.BrowserDefault), Err: err}
	}
	return nil
}

// findExecutable probes PATH for the chosen browser's binary.
func findExecutable(choice model.BrowserChoice) (string, error) {
	candidates, ok := executableCandidates[choice]
	if !ok {
		return "", fmt.Errorf("unknown browser %q", choice)
	}
	for _, name := range candidates {
		if path, err := exec.LookPath(name); err == nil {
			return path, nil
		}
	}
	return "", fmt.Errorf("no %s executable found on PATH", choice)
}

// session wraps a running chromedp browser context.
type session struct {
	ctx    context.Context
	cancel context.CancelFunc
}

// CurrentURL reads the address currently shown in the window. Once the
// user closes the window the chromedp context dies, which is reported as
// ErrUserAborted so the flow can stop polling.
func (s *session) CurrentURL(ctx context.Context) (string, error) {
	if err := s.ctx.Err(); err != nil {
		return "", fmt.Errorf("%w: %v", driven.ErrUserAborted, err)
	}

	var location string
	if err := chromedp.Run(s.ctx, chromedp.Location(&location)); err != nil {
		if s.ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return "", fmt.Errorf("%w: %v", driven.ErrUserAborted, err)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("reading browser location: %w", err)
	}

	return location, nil
}

// Close tears the browser down. Safe to call more than once.
func (s *session) Close() {
	s.cancel()
}
