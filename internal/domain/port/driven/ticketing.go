package driven

import (
	"context"

	"github.com/mhdalton/surplussync/internal/domain/model"
)

// TicketingClient is the driven port for the downstream asset-tracking
// table. Records are identified by a server-assigned sys_id that is only
// ever obtained through LookupAsset — never generated on this side.
type TicketingClient interface {
	// LookupAsset finds the record for an asset tag. found is false when
	// no record exists; a non-200 response returns a *AssetLookupError.
	LookupAsset(ctx context.Context, assetTag string) (sysID string, found bool, err error)

	// CreateAsset inserts a new record marked Sold. A non-200 response
	// returns a *AssetWriteError.
	CreateAsset(ctx context.Context, sale model.AssetSale) error

	// UpdateAsset re-asserts Sold (and any supplied price/description) on
	// an existing record. A non-200 response returns a *AssetWriteError.
	UpdateAsset(ctx context.Context, sysID string, sale model.AssetSale) error
}
