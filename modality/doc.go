// Package modality defines the closed set of biometric factors the broker
// arbitrates between, and bitmask helpers over that set.
//
// The set is deliberately closed (fingerprint, iris, face): the broker's
// handshake bookkeeping and error selection both rely on being able to
// enumerate every member in priority order via [Order].
package modality
