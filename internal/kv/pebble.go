// ABOUTME: Pebble (LSM) implementation of Store
// ABOUTME: Each key maps directly to a pebble key; writes are synced

package kv

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/pebble"
)

// PebbleStore implements Store on a pebble database directory
type PebbleStore struct {
	db     *pebble.DB
	logger *slog.Logger
}

// NewPebbleStore opens (or creates) a pebble database at dir.
func NewPebbleStore(dir string) (*PebbleStore, error) {
	logger := slog.Default().With("component", "kv", "backend", "pebble")
	if dir == "" {
		return nil, fmt.Errorf("pebble store requires a path")
	}

	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		logger.Error("pebble open failed", "path", dir, "error", err)
		return nil, fmt.Errorf("opening pebble: %w", err)
	}
	logger.Info("pebble store opened", "path", dir)
	return &PebbleStore{db: db, logger: logger}, nil
}

// Get returns the value stored under key.
func (p *PebbleStore) Get(ctx context.Context, key string) (string, error) {
	val, closer, err := p.db.Get([]byte(key))
	if errors.Is(err, pebble.ErrNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("reading key %s: %w", key, err)
	}
	// val is only valid until closer is closed
	out := string(val)
	if err := closer.Close(); err != nil {
		return "", fmt.Errorf("releasing key %s: %w", key, err)
	}
	return out, nil
}

// Set writes value under key.
func (p *PebbleStore) Set(ctx context.Context, key, value string) error {
	if err := p.db.Set([]byte(key), []byte(value), pebble.Sync); err != nil {
		return fmt.Errorf("writing key %s: %w", key, err)
	}
	return nil
}

// Remove deletes key. Pebble treats deleting a missing key as success.
func (p *PebbleStore) Remove(ctx context.Context, key string) error {
	if err := p.db.Delete([]byte(key), pebble.Sync); err != nil {
		return fmt.Errorf("deleting key %s: %w", key, err)
	}
	return nil
}

// Close flushes and closes the database.
func (p *PebbleStore) Close() error {
	if err := p.db.Close(); err != nil {
		return err
	}
	p.logger.Info("pebble store closed")
	return nil
}
