package modality

import "strings"

// Modality defines a public type used by goBiometric APIs.
//
// Modality values are bitmasks: a single bit identifies one biometric factor,
// and OR-combined values describe multi-modal sets.
type Modality uint8

const (
	// Fingerprint is an exported constant or variable used by the arbitration broker.
	Fingerprint Modality = 1 << iota
	// Iris is an exported constant or variable used by the arbitration broker.
	Iris
	// Face is an exported constant or variable used by the arbitration broker.
	Face
)

// None is an exported constant or variable used by the arbitration broker.
const None Modality = 0

// Order lists single modalities in arbitration priority order. The registry
// scans providers in this order so error selection stays deterministic.
var Order = []Modality{Fingerprint, Iris, Face}

// Has reports whether the mask contains every bit of m.
func (mask Modality) Has(m Modality) bool {
	return m != None && mask&m == m
}

// Passive reports whether the modality authenticates without an explicit user
// action. Passive modalities pause the attempt on soft failure instead of
// continuing to sense.
func (mask Modality) Passive() bool {
	return mask&(Iris|Face) != 0 && mask&Fingerprint == 0
}

// Single reports whether exactly one modality bit is set.
func (mask Modality) Single() bool {
	return mask != None && mask&(mask-1) == None
}

// Split expands a mask into its single-modality components in priority order.
func Split(mask Modality) []Modality {
	out := make([]Modality, 0, len(Order))
	for _, m := range Order {
		if mask.Has(m) {
			out = append(out, m)
		}
	}
	return out
}

// String describes the string operation and its observable behavior.
func (mask Modality) String() string {
	if mask == None {
		return "none"
	}
	parts := make([]string, 0, len(Order))
	if mask.Has(Fingerprint) {
		parts = append(parts, "fingerprint")
	}
	if mask.Has(Iris) {
		parts = append(parts, "iris")
	}
	if mask.Has(Face) {
		parts = append(parts, "face")
	}
	if len(parts) == 0 {
		return "unknown"
	}
	return strings.Join(parts, "|")
}
