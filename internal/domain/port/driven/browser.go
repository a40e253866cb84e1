package driven

import (
	"context"

	"github.com/mhdalton/surplussync/internal/domain/model"
)

// BrowserLauncher is the driven port for opening browsers during sign-in.
type BrowserLauncher interface {
	// Launch starts an automated browser session at the sign-in URL. The
	// session outlives the request that started it; it is torn down via
	// BrowserSession.Close. Failure to start returns a
	// *BrowserLaunchError so the user can pick another browser.
	Launch(ctx context.Context, choice model.BrowserChoice, signInURL string) (BrowserSession, error)

	// OpenDefault opens the URL in the user's default browser for the
	// manual copy-the-redirect path. No session handle is returned; the
	// user reports back by pasting the redirect URL.
	OpenDefault(signInURL string) error
}

// BrowserSession is a running automated browser window.
type BrowserSession interface {
	// CurrentURL returns the address currently shown in the window.
	// Returns ErrUserAborted (possibly wrapped) once the user has closed
	// the window.
	CurrentURL(ctx context.Context) (string, error)

	// Close tears the session down. Safe to call more than once.
	Close()
}
