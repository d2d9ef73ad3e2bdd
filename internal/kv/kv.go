// ABOUTME: KeyValueStore interface, shared errors, and JSON helpers
// ABOUTME: Every sportzone component persists through this interface

package kv

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrNotFound is returned by Get when the key has no value
var ErrNotFound = errors.New("key not found")

// ErrUnknownDriver is returned by Open for an unsupported backend name
var ErrUnknownDriver = errors.New("unknown store driver")

// GuestNamespace is used in place of an identity when nobody is logged in
const GuestNamespace = "guest"

// Store is a persistent string-keyed store scoped to the running client.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// NamespacedKey builds the "{slice}_{identity|guest}" key used for user-scoped data.
func NamespacedKey(slice, identity string) string {
	if strings.TrimSpace(identity) == "" {
		return slice + "_" + GuestNamespace
	}
	return slice + "_" + identity
}

// GetJSON reads key and decodes it into v. It returns ErrNotFound untouched so
// callers can distinguish a missing key from a corrupt one.
func GetJSON(ctx context.Context, s Store, key string, v any) error {
	raw, err := s.Get(ctx, key)
	if err != nil {
		return err
	}
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("decoding %s: %w", key, err)
	}
	return nil
}

// SetJSON encodes v and writes it under key.
func SetJSON(ctx context.Context, s Store, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", key, err)
	}
	return s.Set(ctx, key, string(data))
}

// Options selects and configures a backend for Open.
type Options struct {
	// Driver is one of "memory", "sqlite", "sqlite3", "pebble", "dynamodb"
	Driver string
	// Path is the database file (sqlite) or directory (pebble)
	Path string

	DynamoTable    string
	DynamoRegion   string
	DynamoEndpoint string
}

// Open creates the store described by opts.
func Open(ctx context.Context, opts Options) (Store, error) {
	switch opts.Driver {
	case "memory":
		return NewMemoryStore(), nil
	case "", "sqlite":
		return NewSQLiteStore(opts.Path, DriverModernc)
	case "sqlite3":
		return NewSQLiteStore(opts.Path, DriverCgo)
	case "pebble":
		return NewPebbleStore(opts.Path)
	case "dynamodb":
		return NewDynamoStoreFromEnv(ctx, opts.DynamoTable, opts.DynamoRegion, opts.DynamoEndpoint)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}
