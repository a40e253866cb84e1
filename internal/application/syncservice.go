package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mhdalton/surplussync/internal/domain/model"
	"github.com/mhdalton/surplussync/internal/domain/port/driven"
)

// SyncService records completed sales against the asset-tracking table.
// MarkSold is idempotent: re-running it for a tag that already has a record
// updates that record in place instead of inserting a duplicate.
type SyncService struct {
	ticketing driven.TicketingClient
}

// NewSyncService creates a new SyncService.
func NewSyncService(ticketing driven.TicketingClient) *SyncService {
	return &SyncService{ticketing: ticketing}
}

// MarkSold marks the asset with the given tag as Sold. price may be empty;
// siblingTags lists the other tags in the bundle when the item sold as part
// of a set. The lookup decides between create and update, so the server
// never ends up with two records for one tag.
func (s *SyncService) MarkSold(ctx context.Context, assetTag, price string, siblingTags []string) error {
	sale := model.AssetSale{
		AssetTag:    assetTag,
		Price:       price,
		SiblingTags: siblingTags,
	}

	sysID, found, err := s.ticketing.LookupAsset(ctx, assetTag)
	if err != nil {
		return fmt.Errorf("marking asset %s sold: %w", assetTag, err)
	}

	if found {
		if err := s.ticketing.UpdateAsset(ctx, sysID, sale); err != nil {
			return fmt.Errorf("marking asset %s sold: %w", assetTag, err)
		}
		slog.Info("sold asset updated", "asset_tag", assetTag, "sys_id", sysID)
		return nil
	}

	if err := s.ticketing.CreateAsset(ctx, sale); err != nil {
		return fmt.Errorf("marking asset %s sold: %w", assetTag, err)
	}
	slog.Info("sold asset created", "asset_tag", assetTag, "bundle", sale.Bundle())
	return nil
}
