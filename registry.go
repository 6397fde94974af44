package goBiometric

import (
	"github.com/MrEthical07/goBiometric/modality"
	"github.com/MrEthical07/goBiometric/settings"
)

// registryEntry pairs one modality bit with its provider. Entries keep
// registration priority order.
type registryEntry struct {
	modality modality.Modality
	provider Provider
}

// registry is the fixed set of sensing backends, keyed by modality and
// ordered by priority. Built once at Build time, read-only afterwards.
type registry struct {
	entries []registryEntry
}

func newRegistry() *registry {
	return &registry{entries: make([]registryEntry, 0, len(modality.Order))}
}

// add registers a provider under one modality bit, replacing any previous
// registration for the same bit.
func (r *registry) add(m modality.Modality, p Provider) {
	for i := range r.entries {
		if r.entries[i].modality == m {
			r.entries[i].provider = p
			return
		}
	}
	r.entries = append(r.entries, registryEntry{modality: m, provider: p})
}

// get returns the provider for one modality bit.
func (r *registry) get(m modality.Modality) (Provider, bool) {
	for i := range r.entries {
		if r.entries[i].modality == m {
			return r.entries[i].provider, true
		}
	}
	return nil, false
}

// each visits every entry in priority order.
func (r *registry) each(fn func(m modality.Modality, p Provider)) {
	for i := range r.entries {
		fn(r.entries[i].modality, r.entries[i].provider)
	}
}

// empty reports whether nothing is registered.
func (r *registry) empty() bool { return len(r.entries) == 0 }

// resolution is the outcome of eligibility filtering for one attempt.
type resolution struct {
	// mask holds every eligible modality bit.
	mask modality.Modality
	// firstDetected is the highest-priority modality whose hardware is
	// present, kept for modality-specific enrollment error strings.
	firstDetected modality.Modality
	// code is CodeNone on success.
	code ErrorCode
}

// resolve filters registered modalities down to the set eligible for one
// attempt: hardware detected, templates enrolled, and not disabled by
// per-user settings. The error code distinguishes why nothing survived.
func (r *registry) resolve(userID int, mirror *settings.Mirror) resolution {
	if r.empty() {
		return resolution{code: CodeHardwareNotPresent}
	}

	var detected, enrolled, enabled modality.Modality
	var firstDetected modality.Modality
	r.each(func(m modality.Modality, p Provider) {
		if !p.IsHardwareDetected() {
			return
		}
		detected |= m
		if firstDetected == modality.None {
			firstDetected = m
		}
		if !p.HasEnrolledTemplates(userID) {
			return
		}
		enrolled |= m
		if m == modality.Face && !mirror.FaceEnabledForApps(userID) {
			return
		}
		enabled |= m
	})

	switch {
	case detected == modality.None:
		return resolution{code: CodeHardwareUnavailable}
	case enrolled == modality.None:
		return resolution{firstDetected: firstDetected, code: CodeNoBiometrics}
	case enabled == modality.None:
		return resolution{firstDetected: firstDetected, code: CodeHardwareUnavailable}
	}
	return resolution{mask: enabled, firstDetected: firstDetected}
}
