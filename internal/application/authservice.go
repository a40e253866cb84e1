package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sync"
	"time"

	"github.com/mhdalton/surplussync/internal/domain/model"
	"github.com/mhdalton/surplussync/internal/domain/port/driven"
)

// ErrFlowInProgress is returned when a sign-in flow is started while
// another one is still running. Only one flow may be active at a time
// because both would contend for the same stored credentials.
var ErrFlowInProgress = errors.New("a sign-in flow is already in progress")

// defaultWatchInterval is how often the automated flow samples the browser
// window's address bar while waiting for the authorization redirect.
const defaultWatchInterval = 200 * time.Millisecond

// User-facing prompts for each flow position.
const (
	promptIdle           = "Not signed in. Start the sign-in flow to obtain tokens."
	promptAwaitingSignIn = "Finish signing in inside the browser window."
	promptAwaitingCode   = "Authorization redirect received; reading the code."
	promptManualPaste    = "Sign in, then paste the full redirect URL back here."
	promptExchanging     = "Exchanging the authorization code for tokens."
	promptComplete       = "Sign-in complete. New tokens are saved."
	promptFailed         = "Sign-in failed. Stored tokens are unchanged."
)

// AuthService runs the OAuth2 authorization-code flow: it opens a browser
// at the sign-in URL, waits for the redirect carrying the code, exchanges
// the code for tokens, and persists them. Stored credentials are only ever
// overwritten after a successful exchange.
//
// Two paths lead to the same exchange: the automated path watches a
// launched browser window for the redirect, and the manual path has the
// user paste the redirect URL by hand.
type AuthService struct {
	store       driven.ConfigStore
	marketplace driven.MarketplaceClient
	launcher    driven.BrowserLauncher

	watchInterval time.Duration
	now           func() time.Time

	mu     sync.Mutex
	active bool
	manual bool
	status model.AuthStatus
}

// NewAuthService creates a new AuthService.
func NewAuthService(store driven.ConfigStore, marketplace driven.MarketplaceClient, launcher driven.BrowserLauncher) *AuthService {
	return &AuthService{
		store:         store,
		marketplace:   marketplace,
		launcher:      launcher,
		watchInterval: defaultWatchInterval,
		now:           time.Now,
		status:        model.AuthStatus{State: model.AuthStateIdle, Prompt: promptIdle},
	}
}

// Status returns a snapshot of the flow for display.
func (s *AuthService) Status() model.AuthStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// StartSignIn launches the automated flow in the chosen browser. It
// returns once the browser is up; the redirect watch and the exchange run
// in the background and are observed through Status. Returns
// ErrFlowInProgress if a flow is already active.
func (s *AuthService) StartSignIn(ctx context.Context, choice model.BrowserChoice) error {
	if err := s.begin(false); err != nil {
		return err
	}

	settings, err := s.store.Load(ctx)
	if err != nil {
		s.fail(err)
		return err
	}

	session, err := s.launcher.Launch(ctx, choice, settings.EBay.SignInURL)
	if err != nil {
		s.fail(err)
		return err
	}

	s.setStatus(model.AuthStateAwaitingUserSignIn, promptAwaitingSignIn)
	slog.Info("sign-in flow started", "browser", choice)

	// The session outlives the request that started it; the watcher owns
	// its own lifetime and ends the flow through fail or complete.
	go s.watchSession(context.WithoutCancel(ctx), session)

	return nil
}

// OpenSignInPage starts the manual flow: the sign-in URL opens in the
// user's default browser and the flow waits for the redirect URL to come
// back through SubmitManualRedirect. Returns ErrFlowInProgress if a flow
// is already active.
func (s *AuthService) OpenSignInPage(ctx context.Context) error {
	if err := s.begin(true); err != nil {
		return err
	}

	settings, err := s.store.Load(ctx)
	if err != nil {
		s.fail(err)
		return err
	}

	if err := s.launcher.OpenDefault(settings.EBay.SignInURL); err != nil {
		s.fail(err)
		return err
	}

	s.setStatus(model.AuthStateAwaitingUserSignIn, promptManualPaste)
	slog.Info("sign-in page opened in default browser")
	return nil
}

// SubmitManualRedirect completes the manual flow with the redirect URL the
// user pasted. The URL must carry a code query parameter. Returns
// ErrFlowInProgress while an automated flow is still watching its browser
// window; a pasted URL must not race that watcher's exchange.
func (s *AuthService) SubmitManualRedirect(ctx context.Context, redirectURL string) error {
	s.mu.Lock()
	if s.active && !s.manual {
		s.mu.Unlock()
		return ErrFlowInProgress
	}
	// Allow pasting without an explicit OpenSignInPage first: the user
	// may have navigated to the sign-in URL on their own.
	s.active = true
	s.manual = true
	s.mu.Unlock()

	code, ok := extractAuthorizationCode(redirectURL)
	if !ok {
		err := fmt.Errorf("no authorization code in pasted URL")
		s.fail(err)
		return err
	}

	s.setStatus(model.AuthStateAwaitingAuthorizationCode, promptAwaitingCode)
	return s.exchangeAndPersist(ctx, code)
}

// begin claims the single flow slot and resets the status. The manual flag
// records which path owns the slot: only a manual flow accepts a pasted
// redirect URL.
func (s *AuthService) begin(manual bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active {
		return ErrFlowInProgress
	}
	s.active = true
	s.manual = manual
	s.status = model.AuthStatus{State: model.AuthStateIdle, Prompt: promptIdle}
	return nil
}

// watchSession samples the browser's address bar until the redirect
// carrying the authorization code appears, then closes the window and
// exchanges the code.
func (s *AuthService) watchSession(ctx context.Context, session driven.BrowserSession) {
	defer session.Close()

	ticker := time.NewTicker(s.watchInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.fail(ctx.Err())
			return
		case <-ticker.C:
			current, err := session.CurrentURL(ctx)
			if err != nil {
				s.fail(err)
				return
			}

			code, ok := extractAuthorizationCode(current)
			if !ok {
				continue
			}

			s.setStatus(model.AuthStateAwaitingAuthorizationCode, promptAwaitingCode)
			session.Close()

			if err := s.exchangeAndPersist(ctx, code); err != nil {
				slog.Error("sign-in flow failed", "error", err)
			}
			return
		}
	}
}

// exchangeAndPersist trades the code for tokens and writes them into the
// settings document. The document is re-read immediately before the
// mutation so fields changed by another process since the flow started are
// not clobbered, and only the fields the server actually returned are
// updated.
func (s *AuthService) exchangeAndPersist(ctx context.Context, code string) error {
	s.setStatus(model.AuthStateExchangingCode, promptExchanging)

	settings, err := s.store.Load(ctx)
	if err != nil {
		s.fail(err)
		return err
	}

	grant, err := s.marketplace.ExchangeAuthorizationCode(ctx, settings.EBay, code)
	if err != nil {
		s.fail(err)
		return err
	}

	settings, err = s.store.Load(ctx)
	if err != nil {
		s.fail(err)
		return err
	}

	if grant.AccessToken != "" {
		settings.EBay.AccessToken = grant.AccessToken
	}
	if grant.RefreshToken != "" {
		settings.EBay.RefreshToken = grant.RefreshToken
		// The expiry clock only restarts when a new refresh token was
		// actually issued.
		if grant.RefreshTokenExpiresIn > 0 {
			settings.EBay.RefreshTokenExpiresAt = grant.RefreshTokenExpiry(s.now())
		}
	}

	if err := s.store.Save(ctx, settings); err != nil {
		s.fail(err)
		return err
	}

	s.complete()
	slog.Info("sign-in complete",
		"has_access_token", grant.AccessToken != "",
		"has_refresh_token", grant.RefreshToken != "",
	)
	return nil
}

// setStatus records a non-terminal flow position.
func (s *AuthService) setStatus(state model.AuthState, prompt string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = model.AuthStatus{State: state, Prompt: prompt}
}

// complete ends the flow successfully and releases the flow slot.
func (s *AuthService) complete() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = model.AuthStatus{State: model.AuthStateComplete, Prompt: promptComplete}
	s.active = false
}

// fail ends the flow with an error and releases the flow slot.
func (s *AuthService) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = model.AuthStatus{
		State:  model.AuthStateFailed,
		Prompt: promptFailed,
		Err:    err.Error(),
	}
	s.active = false
}

// extractAuthorizationCode pulls the code query parameter out of a redirect
// URL. Intermediate sign-in pages have no code parameter and return
// ok=false; the watcher keeps polling through them.
func extractAuthorizationCode(rawURL string) (string, bool) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	code := parsed.Query().Get("code")
	return code, code != ""
}
