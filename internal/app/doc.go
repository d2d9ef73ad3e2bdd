// Package app assembles the sportzone components from a Config.
//
// New opens the configured key-value store and wires the session, the
// user-scoped state, friends, the messenger, the catalog and the AI gateway.
// The persisted session is restored before New returns.
package app
