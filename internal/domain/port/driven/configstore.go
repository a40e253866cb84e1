// Package driven defines secondary port interfaces for external adapters.
package driven

import (
	"context"

	"github.com/mhdalton/surplussync/internal/domain/model"
)

// ConfigStore is the driven port for the shared settings document.
//
// Load and Save each acquire the cross-process file lock before touching
// the backing store and release it on every path. Save must be atomic from
// another process's point of view: a concurrent Load observes either the
// fully-old or fully-new document, never a torn mix. In-process locking is
// deliberately not part of the contract — other processes do not share
// this process's memory.
type ConfigStore interface {
	// Load reads the settings document. A missing or malformed document
	// returns a *ConfigError; callers treat that as fatal, not retryable.
	Load(ctx context.Context) (*model.Settings, error)

	// Save replaces the settings document with s.
	Save(ctx context.Context, s *model.Settings) error
}
