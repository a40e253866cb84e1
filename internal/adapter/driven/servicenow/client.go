// Package servicenow implements the TicketingClient port against the
// ServiceNow Table API for the surplus-items table.
package servicenow

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/mhdalton/surplussync/internal/adapter/driven/httpcall"
	"github.com/mhdalton/surplussync/internal/domain/model"
	"github.com/mhdalton/surplussync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.TicketingClient = (*Client)(nil)

// tablePath is the Table API path of the surplus-items table.
const tablePath = "/api/now/table/u_computer_surplus_items"

// descriptionPrefix heads the bundle description. The sibling tags are
// appended comma-separated, e.g. "This item is part of a set AAA, BBB".
const descriptionPrefix = "This item is part of a set "

// Client implements the TicketingClient port. All three operations treat
// any status other than 200 as failure; there is no partial-success path.
type Client struct {
	caller   *httpcall.Caller
	tableURL string
	auth     httpcall.BasicAuth
}

// NewClient creates a Client for the given instance and Basic-auth account.
func NewClient(caller *httpcall.Caller, account model.ServiceNowAccount) *Client {
	return &Client{
		caller:   caller,
		tableURL: strings.TrimRight(account.InstanceURL, "/") + tablePath,
		auth:     httpcall.BasicAuth{Username: account.Username, Password: account.Password},
	}
}

// recordBody is the outgoing record. u_icn is set only on create: the tag
// identifies the record being inserted, and an update addresses the record
// by sys_id instead. u_price and u_description are omitted when the sale
// carries no price or no bundle siblings.
type recordBody struct {
	AssetTag    string `json:"u_icn,omitempty"`
	ItemState   string `json:"u_item_state"`
	Price       string `json:"u_price,omitempty"`
	Description string `json:"u_description,omitempty"`
}

// lookupResponse is the Table API envelope for a sys_id query.
type lookupResponse struct {
	Result []struct {
		SysID string `json:"sys_id"`
	} `json:"result"`
}

func (c *Client) jsonHeaders() map[string]string {
	return map[string]string{
		"Content-Type": "application/json",
		"Accept":       "application/json",
	}
}

// LookupAsset queries the table for the record carrying the asset tag.
// An empty result set means not found; that is not an error.
func (c *Client) LookupAsset(ctx context.Context, assetTag string) (string, bool, error) {
	query := url.Values{}
	query.Set("sysparm_fields", "sys_id")
	query.Set("sysparm_limit", "1")
	query.Set("u_icn", assetTag)

	res, err := c.caller.Call(ctx, http.MethodGet, c.tableURL+"?"+query.Encode(), c.jsonHeaders(), nil, &c.auth)
	if err != nil {
		return "", false, fmt.Errorf("looking up asset %s: %w", assetTag, err)
	}
	if res.Status != http.StatusOK {
		return "", false, &driven.AssetLookupError{AssetTag: assetTag, Status: res.Status, Body: res.Text()}
	}

	var lr lookupResponse
	if err := json.Unmarshal(res.Raw, &lr); err != nil {
		return "", false, fmt.Errorf("decoding lookup for asset %s: %w", assetTag, err)
	}
	if len(lr.Result) == 0 {
		return "", false, nil
	}

	return lr.Result[0].SysID, true, nil
}

// CreateAsset inserts a new record marked Sold, identified by its asset tag.
func (c *Client) CreateAsset(ctx context.Context, sale model.AssetSale) error {
	body, err := json.Marshal(buildRecord(sale, true))
	if err != nil {
		return fmt.Errorf("encoding record for asset %s: %w", sale.AssetTag, err)
	}

	res, err := c.caller.Call(ctx, http.MethodPost, c.tableURL, c.jsonHeaders(), body, &c.auth)
	if err != nil {
		return fmt.Errorf("creating asset %s: %w", sale.AssetTag, err)
	}
	if res.Status != http.StatusOK {
		return &driven.AssetWriteError{AssetTag: sale.AssetTag, Status: res.Status, Body: res.Text()}
	}

	slog.Info("asset record created", "asset_tag", sale.AssetTag, "bundle", sale.Bundle())
	return nil
}

// UpdateAsset re-asserts Sold on the record with the given sys_id. The tag
// is not resent; sys_id alone addresses the record.
func (c *Client) UpdateAsset(ctx context.Context, sysID string, sale model.AssetSale) error {
	body, err := json.Marshal(buildRecord(sale, false))
	if err != nil {
		return fmt.Errorf("encoding record for asset %s: %w", sale.AssetTag, err)
	}

	res, err := c.caller.Call(ctx, http.MethodPut, c.tableURL+"/"+url.PathEscape(sysID), c.jsonHeaders(), body, &c.auth)
	if err != nil {
		return fmt.Errorf("updating asset %s: %w", sale.AssetTag, err)
	}
	if res.Status != http.StatusOK {
		return &driven.AssetWriteError{AssetTag: sale.AssetTag, Status: res.Status, Body: res.Text()}
	}

	slog.Info("asset record updated", "asset_tag", sale.AssetTag, "sys_id", sysID)
	return nil
}

// buildRecord maps a sale onto the outgoing record shape.
func buildRecord(sale model.AssetSale, includeTag bool) recordBody {
	rec := recordBody{
		ItemState: string(model.SaleStateSold),
		Price:     sale.Price,
	}
	if includeTag {
		rec.AssetTag = sale.AssetTag
	}
	if sale.Bundle() {
		rec.Description = descriptionPrefix + strings.Join(sale.SiblingTags, ", ")
	}
	return rec
}
