package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mhdalton/surplussync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ResponseCache = (*CacheRepo)(nil)

// CacheRepo is the SQLite implementation of the ResponseCache port
// interface. Entries are keyed by request URL and carry an absolute expiry;
// an expired entry is treated as a miss even before the janitor removes it.
type CacheRepo struct {
	db  *DB
	now func() time.Time
}

// NewCacheRepo creates a new CacheRepo.
func NewCacheRepo(db *DB) *CacheRepo {
	return &CacheRepo{db: db, now: time.Now}
}

// Get returns the cached payload for key, or ok=false on a miss or an
// expired entry.
func (r *CacheRepo) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const query = `SELECT payload, expires_at FROM response_cache WHERE key = ?`

	var payload []byte
	var expiresAt int64
	err := r.db.Reader.QueryRowContext(ctx, query, key).Scan(&payload, &expiresAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("get cache entry %q: %w", key, err)
	}

	if r.now().UnixMilli() >= expiresAt {
		return nil, false, nil
	}

	return payload, true, nil
}

// Put stores or replaces the payload for key with the given time to live.
func (r *CacheRepo) Put(ctx context.Context, key string, payload []byte, ttl time.Duration) error {
	const query = `INSERT OR REPLACE INTO response_cache (key, payload, expires_at) VALUES (?, ?, ?)`

	expiresAt := r.now().Add(ttl).UnixMilli()
	if _, err := r.db.Writer.ExecContext(ctx, query, key, payload, expiresAt); err != nil {
		return fmt.Errorf("put cache entry %q: %w", key, err)
	}
	return nil
}

// PurgeExpired deletes every entry whose expiry has passed and returns how
// many were removed.
func (r *CacheRepo) PurgeExpired(ctx context.Context) (int, error) {
	const query = `DELETE FROM response_cache WHERE expires_at <= ?`

	res, err := r.db.Writer.ExecContext(ctx, query, r.now().UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("purge expired cache entries: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge expired cache entries: %w", err)
	}
	return int(n), nil
}

// Janitor purges expired entries every interval until ctx is cancelled.
// Run it in its own goroutine from the composition root.
func (r *CacheRepo) Janitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := r.PurgeExpired(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Error("cache janitor purge failed", "error", err)
				}
				continue
			}
			if n > 0 {
				slog.Debug("cache janitor purged entries", "count", n)
			}
		}
	}
}
