// Package configfile implements the ConfigStore port on a JSON document
// guarded by a cross-process advisory file lock.
package configfile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"

	"github.com/mhdalton/surplussync/internal/domain/model"
	"github.com/mhdalton/surplussync/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.ConfigStore = (*Store)(nil)

// lockRetryDelay is how often lock acquisition retries while another
// process holds the lock.
const lockRetryDelay = 50 * time.Millisecond

// Store reads and writes the settings document. Every operation takes the
// companion lock file (<path>.lock) for its full duration, so concurrent
// processes never interleave partial writes. Saves go through an atomic
// rename: a reader sees either the old document or the new one, never a
// torn mix.
//
// There is intentionally no in-process mutex here. The processes that
// contend for this file do not share memory; the file lock is the only
// mechanism that can order them.
type Store struct {
	path     string
	lockPath string
}

// New creates a Store for the settings document at path. The lock file is
// derived as path + ".lock".
func New(path string) *Store {
	return &Store{
		path:     path,
		lockPath: path + ".lock",
	}
}

// Load reads and decodes the settings document under the file lock.
// A missing or malformed document returns a *driven.ConfigError.
func (s *Store) Load(ctx context.Context) (*model.Settings, error) {
	unlock, err := s.acquireLock(ctx)
	if err != nil {
		return nil, err
	}
	defer unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		return nil, &driven.ConfigError{Path: s.path, Err: err}
	}

	var settings model.Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return nil, &driven.ConfigError{Path: s.path, Err: fmt.Errorf("parsing settings: %w", err)}
	}

	return &settings, nil
}

// Save encodes and writes the settings document under the file lock. The
// write lands in a temp file that is renamed over the target, so no reader
// ever observes a partially written document.
func (s *Store) Save(ctx context.Context, settings *model.Settings) error {
	unlock, err := s.acquireLock(ctx)
	if err != nil {
		return err
	}
	defer unlock()

	data, err := json.MarshalIndent(settings, "", "    ")
	if err != nil {
		return fmt.Errorf("encoding settings: %w", err)
	}

	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("writing settings %s: %w", s.path, err)
	}

	return nil
}

// acquireLock blocks until the cross-process lock is held or ctx is done.
// The returned func releases the lock and is safe to call exactly once.
func (s *Store) acquireLock(ctx context.Context) (func(), error) {
	fl := flock.New(s.lockPath)

	locked, err := fl.TryLockContext(ctx, lockRetryDelay)
	if err != nil {
		return nil, fmt.Errorf("acquiring lock %s: %w", s.lockPath, err)
	}
	if !locked {
		return nil, fmt.Errorf("acquiring lock %s: not acquired", s.lockPath)
	}

	return func() { _ = fl.Unlock() }, nil
}
