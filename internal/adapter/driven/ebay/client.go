// Package ebay implements the MarketplaceClient port against the eBay
// OAuth2 token endpoint and the sell/fulfillment order API.
package ebay

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/mhdalton/surplussync/internal/adapter/driven/httpcall"
	"github.com/mhdalton/surplussync/internal/domain/model"
	"github.com/mhdalton/surplussync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.MarketplaceClient = (*Client)(nil)

// Production endpoints. See
// https://developer.ebay.com/api-docs/static/oauth-refresh-token-request.html
// for the token contract.
const (
	defaultTokenURL  = "https://api.ebay.com/identity/v1/oauth2/token"
	defaultOrdersURL = "https://api.ebay.com/sell/fulfillment/v1/order"
)

// creationDateLayout is the timestamp format the fulfillment order filter
// expects.
const creationDateLayout = "2006-01-02T15:04:05.000Z"

// Client implements the MarketplaceClient port. Order listings go through
// the response cache so that back-to-back refreshes (or a second process)
// reuse a recent payload instead of re-calling the API.
type Client struct {
	caller    *httpcall.Caller
	tokenURL  string
	ordersURL string
	cache     driven.ResponseCache
	cacheTTL  time.Duration
}

// NewClient creates a Client against the production eBay endpoints.
func NewClient(caller *httpcall.Caller, cache driven.ResponseCache, cacheTTL time.Duration) *Client {
	return &Client{
		caller:    caller,
		tokenURL:  defaultTokenURL,
		ordersURL: defaultOrdersURL,
		cache:     cache,
		cacheTTL:  cacheTTL,
	}
}

// NewClientWithBaseURL creates a Client whose endpoints are rooted at
// baseURL. Intended for tests pointing at an httptest server.
func NewClientWithBaseURL(caller *httpcall.Caller, baseURL string, cache driven.ResponseCache, cacheTTL time.Duration) *Client {
	return &Client{
		caller:    caller,
		tokenURL:  baseURL + "/identity/v1/oauth2/token",
		ordersURL: baseURL + "/sell/fulfillment/v1/order",
		cache:     cache,
		cacheTTL:  cacheTTL,
	}
}

// tokenResponse is the JSON body of a successful exchange. Absent fields
// decode to the empty string / zero and stay absent in the TokenGrant —
// they must never clobber a stored value.
type tokenResponse struct {
	AccessToken           string `json:"access_token"`
	RefreshToken          string `json:"refresh_token"`
	RefreshTokenExpiresIn int    `json:"refresh_token_expires_in"`
}

// ExchangeAuthorizationCode issues the single authorization_code grant
// POST. Client credentials travel as HTTP Basic auth; the code and
// redirect URI travel in the form body.
func (c *Client) ExchangeAuthorizationCode(ctx context.Context, cred model.Credential, code string) (*model.TokenGrant, error) {
	form := url.Values{}
	form.Set("grant_type", "authorization_code")
	form.Set("code", code)
	form.Set("redirect_uri", cred.RedirectURI)

	headers := map[string]string{
		"Content-Type": "application/x-www-form-urlencoded",
	}
	auth := &httpcall.BasicAuth{Username: cred.ClientID, Password: cred.ClientSecret}

	res, err := c.caller.Call(ctx, http.MethodPost, c.tokenURL, headers, []byte(form.Encode()), auth)
	if err != nil {
		return nil, fmt.Errorf("token exchange: %w", err)
	}

	if res.Status != http.StatusOK {
		return nil, &driven.TokenExchangeError{Status: res.Status, Body: res.Text()}
	}

	var tr tokenResponse
	if err := json.Unmarshal(res.Raw, &tr); err != nil {
		return nil, fmt.Errorf("decoding token response: %w", err)
	}

	slog.Info("authorization code exchanged",
		"has_access_token", tr.AccessToken != "",
		"has_refresh_token", tr.RefreshToken != "",
		"refresh_token_expires_in", tr.RefreshTokenExpiresIn,
	)

	return &model.TokenGrant{
		AccessToken:           tr.AccessToken,
		RefreshToken:          tr.RefreshToken,
		RefreshTokenExpiresIn: tr.RefreshTokenExpiresIn,
	}, nil
}

// Order listing DTOs, mapping only what the domain needs.
type ordersResponse struct {
	Orders []orderDTO `json:"orders"`
}

type orderDTO struct {
	OrderID      string `json:"orderId"`
	CancelStatus struct {
		CancelState string `json:"cancelState"`
	} `json:"cancelStatus"`
	LineItems []lineItemDTO `json:"lineItems"`
}

type lineItemDTO struct {
	Title                     string `json:"title"`
	SKU                       string `json:"sku"`
	LineItemFulfillmentStatus string `json:"lineItemFulfillmentStatus"`
	FulfillmentInstructions   struct {
		ShipByDate string `json:"shipByDate"`
	} `json:"lineItemFulfillmentInstructions"`
	Total struct {
		Value string `json:"value"`
	} `json:"total"`
}

// FetchOrders lists fulfillment orders created since the given time,
// consulting the response cache first and caching a fresh payload on
// success. A 401 wraps driven.ErrUnauthorized: the caller's remedy is a
// full re-sign-in, never a programmatic refresh.
func (c *Client) FetchOrders(ctx context.Context, accessToken string, since time.Time) ([]model.Order, error) {
	requestURL := fmt.Sprintf("%s?filter=creationdate:%%5B%s..%%5D&limit=200&fieldGroups=TAX_BREAKDOWN",
		c.ordersURL, since.UTC().Format(creationDateLayout))

	if c.cache != nil {
		if payload, ok, err := c.cache.Get(ctx, requestURL); err != nil {
			slog.Error("order cache read failed", "error", err)
		} else if ok {
			slog.Debug("order listing served from cache", "key", requestURL)
			return decodeOrders(payload)
		}
	}

	headers := map[string]string{
		"Accept":        "application/json",
		"Authorization": "Bearer " + accessToken,
	}

	res, err := c.caller.Call(ctx, http.MethodGet, requestURL, headers, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("listing orders: %w", err)
	}

	switch {
	case res.Status == http.StatusUnauthorized:
		return nil, fmt.Errorf("listing orders: %w: %s", driven.ErrUnauthorized, res.Text())
	case res.Status != http.StatusOK:
		return nil, fmt.Errorf("listing orders: status %d: %s", res.Status, res.Text())
	}

	orders, err := decodeOrders(res.Raw)
	if err != nil {
		return nil, err
	}

	if c.cache != nil {
		if err := c.cache.Put(ctx, requestURL, res.Raw, c.cacheTTL); err != nil {
			slog.Error("order cache write failed", "error", err)
		}
	}

	slog.Debug("orders fetched", "count", len(orders))
	return orders, nil
}

// decodeOrders maps the API payload to domain orders.
func decodeOrders(payload []byte) ([]model.Order, error) {
	var or ordersResponse
	if err := json.Unmarshal(payload, &or); err != nil {
		return nil, fmt.Errorf("decoding order listing: %w", err)
	}

	orders := make([]model.Order, 0, len(or.Orders))
	for _, o := range or.Orders {
		order := model.Order{
			OrderID:     o.OrderID,
			CancelState: o.CancelStatus.CancelState,
		}
		for _, li := range o.LineItems {
			item := model.LineItem{
				Title:             li.Title,
				SKU:               li.SKU,
				FulfillmentStatus: li.LineItemFulfillmentStatus,
				Total:             li.Total.Value,
			}
			if li.FulfillmentInstructions.ShipByDate != "" {
				if ts, err := time.Parse(time.RFC3339, li.FulfillmentInstructions.ShipByDate); err == nil {
					item.ShipByDate = ts
				}
			}
			order.LineItems = append(order.LineItems, item)
		}
		orders = append(orders, order)
	}

	return orders, nil
}
