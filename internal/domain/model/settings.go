// Package model defines the domain types shared across ports, adapters,
// and application services.
package model

import "time"

// ExpiryDateLayout is the calendar-date format used for
// refresh_token_expires_at in the settings document, e.g. "Fri Sep 04 2026".
// Existing config files written by earlier versions of the tool use this
// layout, so it must not change.
const ExpiryDateLayout = "Mon Jan 02 2006"

// Settings is the shared configuration document (ebay.config.json).
// It is read and written only through the ConfigStore port; concurrent
// processes coordinate through the companion lock file.
type Settings struct {
	EBay       Credential        `json:"eBay"`
	ServiceNow ServiceNowAccount `json:"serviceNow"`
}

// Credential holds the eBay OAuth2 client configuration and the tokens
// obtained from the authorization-code flow.
//
// ClientID, ClientSecret, SignInURL, and RedirectURI are configured once by
// hand and never written by this program. AccessToken, RefreshToken, and
// RefreshTokenExpiresAt are overwritten only after a successful (HTTP 200)
// token exchange; a failed exchange leaves them untouched.
type Credential struct {
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	SignInURL    string `json:"sign_in_url"`
	RedirectURI  string `json:"redirect_uri"`

	AccessToken           string `json:"access_token,omitempty"`
	RefreshToken          string `json:"refresh_token,omitempty"`
	RefreshTokenExpiresAt string `json:"refresh_token_expires_at,omitempty"`
}

// ServiceNowAccount holds the Basic-auth credentials and instance URL for
// the downstream ticketing system.
type ServiceNowAccount struct {
	InstanceURL string `json:"instance_url"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

// TokenGrant is the useful subset of a successful authorization-code
// exchange response. Empty AccessToken or RefreshToken means the server
// omitted that field; callers must not overwrite a stored value with an
// absent one.
type TokenGrant struct {
	AccessToken           string
	RefreshToken          string
	RefreshTokenExpiresIn int // seconds, TTL of the refresh token
}

// RefreshTokenExpiry computes the calendar-date expiry string for a grant
// issued at the given time.
func (g TokenGrant) RefreshTokenExpiry(issuedAt time.Time) string {
	return issuedAt.Add(time.Duration(g.RefreshTokenExpiresIn) * time.Second).Format(ExpiryDateLayout)
}
