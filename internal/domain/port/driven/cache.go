package driven

import (
	"context"
	"time"
)

// ResponseCache is the driven port for short-lived caching of marketplace
// API payloads, keyed by request URL. It keeps the order poller from
// hammering the API when several refreshes land close together.
type ResponseCache interface {
	// Get returns the cached payload for key. ok is false on a miss or
	// when the entry has expired.
	Get(ctx context.Context, key string) (payload []byte, ok bool, err error)

	// Put stores payload under key with the given time-to-live,
	// replacing any existing entry.
	Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error

	// PurgeExpired deletes expired entries and returns how many were
	// removed.
	PurgeExpired(ctx context.Context) (int, error)
}
