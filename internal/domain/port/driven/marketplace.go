package driven

import (
	"context"
	"time"

	"github.com/mhdalton/surplussync/internal/domain/model"
)

// MarketplaceClient is the driven port for the eBay APIs: the OAuth2 token
// endpoint and the fulfillment-order listing.
type MarketplaceClient interface {
	// ExchangeAuthorizationCode trades an authorization code for tokens,
	// authenticating with the credential's client ID and secret. A non-200
	// response returns a *TokenExchangeError carrying the status and body.
	ExchangeAuthorizationCode(ctx context.Context, cred model.Credential, code string) (*model.TokenGrant, error)

	// FetchOrders lists fulfillment orders created since the given time.
	// A 401 response returns ErrUnauthorized (wrapped); responses may be
	// served from the response cache.
	FetchOrders(ctx context.Context, accessToken string, since time.Time) ([]model.Order, error)
}
