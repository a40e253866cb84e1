package model

// AuthState is the current position of the sign-in flow. Transitions only
// move forward; Complete and Failed are terminal until a new flow starts.
type AuthState string

const (
	// AuthStateIdle means no sign-in flow has been started.
	AuthStateIdle AuthState = "idle"

	// AuthStateAwaitingUserSignIn means a browser session is open and the
	// flow is waiting for the user to finish signing in.
	AuthStateAwaitingUserSignIn AuthState = "awaiting_user_sign_in"

	// AuthStateAwaitingAuthorizationCode means the redirect carrying the
	// authorization code has been observed and is being parsed.
	AuthStateAwaitingAuthorizationCode AuthState = "awaiting_authorization_code"

	// AuthStateExchangingCode means the code is being exchanged for tokens.
	AuthStateExchangingCode AuthState = "exchanging_code"

	// AuthStateComplete means new tokens were obtained and persisted.
	AuthStateComplete AuthState = "complete"

	// AuthStateFailed means the flow stopped before tokens were persisted.
	// The stored credentials are unchanged.
	AuthStateFailed AuthState = "failed"
)

// AuthStatus is a renderable snapshot of the sign-in flow: the state, a
// user-facing prompt, and the failure reason when State is Failed. The
// driving layer displays these verbatim and holds no flow logic of its own.
type AuthStatus struct {
	State  AuthState
	Prompt string
	Err    string
}

// BrowserChoice selects which browser drives the automated sign-in
// session, or BrowserDefault for the manual paste-the-URL path.
type BrowserChoice string

const (
	BrowserChrome   BrowserChoice = "chrome"
	BrowserChromium BrowserChoice = "chromium"
	BrowserEdge     BrowserChoice = "edge"
	BrowserDefault  BrowserChoice = "default"
)
