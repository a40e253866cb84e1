package model

import (
	"strings"
	"time"
)

// Order is a marketplace fulfillment order. Only the fields the sync and
// summary logic need are mapped from the API payload.
type Order struct {
	OrderID     string
	CancelState string
	LineItems   []LineItem
}

// Canceled reports whether the buyer canceled the order. Canceled orders
// are skipped entirely: they are neither summarized nor marked sold.
func (o Order) Canceled() bool {
	return o.CancelState == "CANCELED"
}

// LineItem is a single sold item within an order. The SKU carries the
// asset tag; a comma-separated SKU denotes a bundle listing covering
// several physical assets.
type LineItem struct {
	Title             string
	SKU               string
	FulfillmentStatus string
	ShipByDate        time.Time
	Total             string
}

// Pending reports whether the item still needs to be shipped.
func (li LineItem) Pending() bool {
	return li.FulfillmentStatus == "NOT_STARTED"
}

// AssetTags splits the SKU into asset tags. The first tag is the primary
// record; any remaining tags are siblings recorded via the bundle
// description. Returns nil when the SKU is empty.
func (li LineItem) AssetTags() []string {
	if strings.TrimSpace(li.SKU) == "" {
		return nil
	}

	var tags []string
	for _, part := range strings.Split(li.SKU, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			tags = append(tags, part)
		}
	}
	return tags
}

// PendingShipment is a summary row for the orders endpoint: an item that
// has been sold but not yet shipped.
type PendingShipment struct {
	Title    string
	ShipBy   time.Time
	OrderID  string
	AssetTag string
}
