package driven

import (
	"errors"
	"fmt"
)

// Sentinel errors shared across ports. None of these trigger automatic
// retries; they are surfaced to the driving layer for display.
var (
	// ErrUserAborted indicates the user closed the sign-in window before
	// the authorization redirect was observed. The flow may be restarted.
	ErrUserAborted = errors.New("sign-in window closed before authorization completed")

	// ErrCallTimeout indicates an HTTP call exceeded the fixed per-call
	// timeout. Surfaced to the user, never retried automatically.
	ErrCallTimeout = errors.New("request timed out")

	// ErrUnauthorized indicates the marketplace rejected the access token.
	// The remedy is a full re-run of the sign-in flow, never a silent
	// refresh.
	ErrUnauthorized = errors.New("marketplace rejected the access token; sign in again")
)

// ConfigError reports a missing or unreadable settings document. It is
// fatal for the operation that hit it: without valid settings there are no
// credentials to act on.
type ConfigError struct {
	Path string
	Err  error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("configuration %s: %v", e.Path, e.Err)
}

func (e *ConfigError) Unwrap() error { return e.Err }

// BrowserLaunchError reports that the chosen browser could not be started.
// Recoverable: the user may retry with a different browser.
type BrowserLaunchError struct {
	Browser string
	Err     error
}

func (e *BrowserLaunchError) Error() string {
	return fmt.Sprintf("launching %s browser: %v", e.Browser, e.Err)
}

func (e *BrowserLaunchError) Unwrap() error { return e.Err }

// TokenExchangeError reports a non-200 response from the token endpoint.
// Stored credentials are left untouched when this is returned.
type TokenExchangeError struct {
	Status int
	Body   string
}

func (e *TokenExchangeError) Error() string {
	return fmt.Sprintf("token exchange failed with status %d: %s", e.Status, e.Body)
}

// AssetLookupError reports a non-200 response while looking up an asset
// record. No create or update is attempted after a failed lookup.
type AssetLookupError struct {
	AssetTag string
	Status   int
	Body     string
}

func (e *AssetLookupError) Error() string {
	return fmt.Sprintf("looking up asset %s: status %d: %s", e.AssetTag, e.Status, e.Body)
}

// AssetWriteError reports a non-200 response while creating or updating an
// asset record. The record is left in whatever state the server left it;
// there is no compensating rollback.
type AssetWriteError struct {
	AssetTag string
	Status   int
	Body     string
}

func (e *AssetWriteError) Error() string {
	return fmt.Sprintf("writing asset %s: status %d: %s", e.AssetTag, e.Status, e.Body)
}
