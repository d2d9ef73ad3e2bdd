// Package kv provides the persistent string-keyed store the rest of sportzone
// is built on.
//
// # Interface
//
// Store mirrors a browser's local storage: synchronous Get, Set and Remove on
// string keys and string values, with no transactions. Get reports a missing
// key with ErrNotFound.
//
// # Backends
//
//   - MemoryStore: an in-process map, used by tests
//   - SQLiteStore: a single kv table, driver "sqlite" (modernc.org/sqlite) or
//     "sqlite3" (github.com/mattn/go-sqlite3)
//   - PebbleStore: a cockroachdb/pebble LSM directory
//   - DynamoStore: one DynamoDB table keyed by a "pk" string attribute
//
// Open picks a backend from Options:
//
//	s, err := kv.Open(ctx, kv.Options{Driver: "sqlite", Path: "sportzone.db"})
//
// # Keys
//
// Callers own the key layout. The conventional keys are "currentUser",
// "users", and "{slice}_{identity}" for user-scoped state (see NamespacedKey).
//
// # JSON
//
// Values are opaque strings. GetJSON and SetJSON keep encoding at the caller
// boundary so backends never see structured data.
package kv
