package settings

import (
	"context"

	"github.com/rs/zerolog"
)

// Defaults carries the values returned for flags that have never been
// written. They match the platform defaults: face is allowed everywhere and
// never forces confirmation unless the user opts in.
type Defaults struct {
	FaceKeyguard bool
	FaceApps     bool
	FaceConfirm  bool
}

// KeyguardCallback receives keyguard-enablement changes. A delivery error
// unregisters the callback; it never propagates further.
type KeyguardCallback interface {
	OnChanged(enabled bool, userID int) error
}

// Mirror is the process-wide cached view of user-configurable enablement
// flags. All reads and writes happen on the broker's dispatcher goroutine,
// so the cache needs no locking; the single-threaded ordering is the
// synchronization.
type Mirror struct {
	source   Source
	defaults Defaults
	log      zerolog.Logger

	faceKeyguard map[int]bool
	faceApps     map[int]bool
	faceConfirm  map[int]bool

	subscribers []KeyguardCallback
	activeUser  int
}

// NewMirror creates a mirror over the given source.
func NewMirror(source Source, defaults Defaults, log zerolog.Logger) *Mirror {
	return &Mirror{
		source:       source,
		defaults:     defaults,
		log:          log,
		faceKeyguard: make(map[int]bool),
		faceApps:     make(map[int]bool),
		faceConfirm:  make(map[int]bool),
	}
}

func (m *Mirror) cacheFor(flag Flag) (map[int]bool, bool) {
	switch flag {
	case FlagFaceKeyguard:
		return m.faceKeyguard, m.defaults.FaceKeyguard
	case FlagFaceApps:
		return m.faceApps, m.defaults.FaceApps
	case FlagFaceConfirm:
		return m.faceConfirm, m.defaults.FaceConfirm
	default:
		return nil, false
	}
}

// load reads the flag through the source, caching the result. Source errors
// fall back to the default without caching so a recovered source is re-read.
func (m *Mirror) load(flag Flag, userID int) bool {
	cache, def := m.cacheFor(flag)
	if cache == nil {
		m.log.Warn().Str("flag", string(flag)).Msg("unknown settings flag")
		return false
	}
	v, ok, err := m.source.ReadFlag(context.Background(), flag, userID)
	if err != nil {
		m.log.Warn().Err(err).Str("flag", string(flag)).Int("user", userID).
			Msg("settings source read failed, using default")
		return def
	}
	if !ok {
		v = def
	}
	cache[userID] = v
	return v
}

func (m *Mirror) get(flag Flag, userID int) bool {
	cache, _ := m.cacheFor(flag)
	if cache == nil {
		return false
	}
	if v, ok := cache[userID]; ok {
		return v
	}
	return m.load(flag, userID)
}

// FaceEnabledOnKeyguard reports whether face unlock is allowed on the
// keyguard for the user, lazily populating the cache.
func (m *Mirror) FaceEnabledOnKeyguard(userID int) bool {
	return m.get(FlagFaceKeyguard, userID)
}

// FaceEnabledForApps reports whether apps may use face for the user.
func (m *Mirror) FaceEnabledForApps(userID int) bool {
	return m.get(FlagFaceApps, userID)
}

// FaceAlwaysRequireConfirmation reports the user's explicit-confirmation
// override for face.
func (m *Mirror) FaceAlwaysRequireConfirmation(userID int) bool {
	return m.get(FlagFaceConfirm, userID)
}

// ActiveUser returns the user whose keyguard flag drives subscriber
// notifications.
func (m *Mirror) ActiveUser() int {
	return m.activeUser
}

// Refresh re-reads one flag from the source. When the keyguard flag of the
// active user changed, subscribers are notified.
func (m *Mirror) Refresh(flag Flag, userID int) {
	cache, _ := m.cacheFor(flag)
	if cache == nil {
		m.log.Warn().Str("flag", string(flag)).Msg("refresh for unknown settings flag")
		return
	}
	before, had := cache[userID]
	after := m.load(flag, userID)
	if flag == FlagFaceKeyguard && userID == m.activeUser && (!had || before != after) {
		m.NotifyKeyguardSubscribers(userID)
	}
}

// OnUserSwitch re-reads every flag for the new active user and re-notifies
// keyguard subscribers, mirroring a user-switch observer.
func (m *Mirror) OnUserSwitch(userID int) {
	m.activeUser = userID
	m.load(FlagFaceKeyguard, userID)
	m.load(FlagFaceApps, userID)
	m.load(FlagFaceConfirm, userID)
	m.NotifyKeyguardSubscribers(userID)
}

// Subscribe registers a keyguard-enablement callback.
func (m *Mirror) Subscribe(cb KeyguardCallback) {
	if cb == nil {
		return
	}
	m.subscribers = append(m.subscribers, cb)
}

// SubscriberCount returns the number of live subscribers.
func (m *Mirror) SubscriberCount() int {
	return len(m.subscribers)
}

// NotifyKeyguardSubscribers delivers the current keyguard flag to every
// subscriber. A subscriber whose delivery fails is unregistered and the
// notification continues; an unreachable callback must never take the broker
// down.
func (m *Mirror) NotifyKeyguardSubscribers(userID int) {
	enabled := m.FaceEnabledOnKeyguard(userID)
	kept := m.subscribers[:0]
	for _, cb := range m.subscribers {
		if err := cb.OnChanged(enabled, userID); err != nil {
			m.log.Warn().Err(err).Msg("keyguard subscriber unreachable, unregistering")
			continue
		}
		kept = append(kept, cb)
	}
	m.subscribers = kept
}
