// Package settings mirrors user-configurable biometric enablement flags.
//
// The mirror is a lazily-populated per-user cache over a [Source] (redis in
// production, in-memory for tests), refreshed synchronously on external
// change notification and on user switch. Only the keyguard-enablement flag
// has subscribers; the other flags are read-only query state.
//
// # Architecture boundaries
//
// The mirror holds no locks: the broker guarantees every read and refresh
// runs on its dispatcher goroutine. Code outside that goroutine must go
// through the broker's public operations.
package settings
