// Package goBiometric provides an authentication arbitration broker that sits
// between callers, biometric sensing providers, and a single system prompt,
// with Redis-mirrored per-user settings, JWT proof tokens, and a
// device-credential fallback flow.
//
// The package is designed for concurrent server workloads: Broker methods are
// safe to call from multiple goroutines after initialization through
// [Builder.Build]. Internally every mutation funnels through one dispatch
// loop, so broker state needs no locks.
//
// # Architecture boundaries
//
// goBiometric is the public surface. It exposes [Broker], [Builder], [Config],
// the collaborator interfaces ([Provider], [PromptSurface], [TaskStackWatcher],
// [CredentialStore], [DeviceCredentialLauncher]), and value types
// (MetricsSnapshot, AuditEvent, etc.). All internal coordination — event
// dispatch, the readiness handshake — lives under internal/ and is never
// exported.
//
// # What this package must NOT do
//
//   - Render UI. The prompt is owned by the injected [PromptSurface]; the
//     broker only decides when it shows, hides, and what it says.
//   - Sense biometrics. Capture and matching belong to [Provider]
//     implementations; the broker never sees raw biometric data, only
//     opaque evidence bytes.
//   - Block the dispatch loop on collaborator calls; collaborators must
//     return promptly and report asynchronously through the receiver.
//
// # Ordering contract
//
// Events are handled strictly in arrival order, one at a time. Each attempt
// resolves through its client callback exactly once: one success or one
// terminal error, never both, never twice.
package goBiometric
