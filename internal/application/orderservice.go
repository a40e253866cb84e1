package application

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mhdalton/surplussync/internal/domain/model"
	"github.com/mhdalton/surplussync/internal/domain/port/driven"
)

// syncRequest represents a manual sync trigger.
type syncRequest struct {
	done chan error
}

// OrderService orchestrates periodic order polling: it fetches recent
// marketplace orders, marks each sold line item's assets in the ticketing
// table, and keeps a summary of line items still waiting to ship.
//
// Each line item is keyed by order ID and SKU; a line item that synced
// successfully is not re-sent on later cycles within this process. The
// server-side lookup in SyncService keeps re-sends harmless anyway, this
// just avoids the extra round trips.
type OrderService struct {
	store       driven.ConfigStore
	marketplace driven.MarketplaceClient
	sync        *SyncService
	interval    time.Duration
	now         func() time.Time
	syncCh      chan syncRequest

	mu        sync.Mutex
	processed map[string]bool
	pending   []model.PendingShipment
}

// NewOrderService creates a new OrderService polling on the given interval.
func NewOrderService(store driven.ConfigStore, marketplace driven.MarketplaceClient, syncSvc *SyncService, interval time.Duration) *OrderService {
	return &OrderService{
		store:       store,
		marketplace: marketplace,
		sync:        syncSvc,
		interval:    interval,
		now:         time.Now,
		syncCh:      make(chan syncRequest),
		processed:   make(map[string]bool),
	}
}

// Start begins the polling loop. It runs an immediate sync, then syncs on
// the configured interval, and also listens for manual sync requests.
// Start blocks until the context is canceled.
func (s *OrderService) Start(ctx context.Context) {
	if err := s.syncOnce(ctx); err != nil {
		slog.Error("initial order sync failed", "error", err)
	}

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("order service stopped")
			return
		case <-ticker.C:
			if err := s.syncOnce(ctx); err != nil {
				slog.Error("order sync cycle failed", "error", err)
			}
		case req := <-s.syncCh:
			req.done <- s.syncOnce(ctx)
		}
	}
}

// SyncNow triggers an order sync immediately, bypassing the polling
// interval. It blocks until the sync completes or the context is canceled.
func (s *OrderService) SyncNow(ctx context.Context) error {
	done := make(chan error, 1)

	select {
	case s.syncCh <- syncRequest{done: done}:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// PendingShipments returns the line items from the last sync cycle that
// are still waiting to ship.
func (s *OrderService) PendingShipments() []model.PendingShipment {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.PendingShipment, len(s.pending))
	copy(out, s.pending)
	return out
}

// syncOnce fetches orders created since the start of the previous month
// and pushes each sold line item's assets to the ticketing table. Per-item
// failures are logged and skipped; the cycle as a whole only fails when
// the order fetch itself does.
func (s *OrderService) syncOnce(ctx context.Context) error {
	start := s.now()

	settings, err := s.store.Load(ctx)
	if err != nil {
		return err
	}
	if settings.EBay.AccessToken == "" {
		return fmt.Errorf("no access token stored; run the sign-in flow first")
	}

	since := startOfPreviousMonth(start)
	orders, err := s.marketplace.FetchOrders(ctx, settings.EBay.AccessToken, since)
	if err != nil {
		return err
	}

	var pending []model.PendingShipment
	var synced, skippedProcessed, itemErrors int

	for _, order := range orders {
		if order.Canceled() {
			continue
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}

		for _, item := range order.LineItems {
			tags := item.AssetTags()
			if len(tags) == 0 {
				slog.Warn("line item without asset tags skipped", "order", order.OrderID, "title", item.Title)
				continue
			}

			if item.Pending() {
				pending = append(pending, model.PendingShipment{
					Title:    item.Title,
					ShipBy:   item.ShipByDate,
					OrderID:  order.OrderID,
					AssetTag: tags[0],
				})
			}

			key := order.OrderID + "|" + item.SKU
			if s.alreadyProcessed(key) {
				skippedProcessed++
				continue
			}

			var siblings []string
			if len(tags) > 1 {
				siblings = tags[1:]
			}

			if err := s.sync.MarkSold(ctx, tags[0], item.Total, siblings); err != nil {
				slog.Error("line item sync failed", "order", order.OrderID, "asset_tag", tags[0], "error", err)
				itemErrors++
				continue
			}

			s.markProcessed(key)
			synced++
		}
	}

	s.mu.Lock()
	s.pending = pending
	s.mu.Unlock()

	slog.Info("order sync cycle complete",
		"orders", len(orders),
		"synced", synced,
		"skipped_processed", skippedProcessed,
		"pending_shipments", len(pending),
		"errors", itemErrors,
		"duration", time.Since(start).Round(time.Millisecond),
	)

	return nil
}

func (s *OrderService) alreadyProcessed(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[key]
}

func (s *OrderService) markProcessed(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.processed[key] = true
}

// startOfPreviousMonth returns midnight UTC on the first day of the month
// before t. Fetching from there keeps last month's late shipments visible
// without pulling the whole account history.
func startOfPreviousMonth(t time.Time) time.Time {
	t = t.UTC()
	year, month := t.Year(), t.Month()-1
	if month == 0 {
		month = time.December
		year--
	}
	return time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
}
