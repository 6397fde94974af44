// Package handshake implements the cookie bookkeeping for the readiness
// handshake: one random non-zero cookie per modality, matched back against
// asynchronous acknowledgements until none remain waiting.
package handshake
