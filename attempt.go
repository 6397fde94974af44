package goBiometric

import (
	"time"

	"github.com/google/uuid"

	"github.com/MrEthical07/goBiometric/internal/handshake"
	"github.com/MrEthical07/goBiometric/modality"
)

// sessionState tracks where one attempt sits in its lifecycle.
type sessionState int

const (
	// stateIdle means no attempt occupies the slot.
	stateIdle sessionState = iota
	// stateCalled means providers are preparing; cookies outstanding.
	stateCalled
	// stateStarted means sensing and the prompt are live.
	stateStarted
	// statePaused means a passive modality failed once and the prompt is
	// showing try-again.
	statePaused
	// statePendingConfirm means recognition succeeded and the broker is
	// waiting for the explicit confirm tap.
	statePendingConfirm
	// stateShowingFallback means the device-credential surface owns the
	// interaction.
	stateShowingFallback
)

func (s sessionState) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateCalled:
		return "called"
	case stateStarted:
		return "started"
	case statePaused:
		return "paused"
	case statePendingConfirm:
		return "pending_confirm"
	case stateShowingFallback:
		return "showing_fallback"
	default:
		return "unknown"
	}
}

// authAttempt is one in-flight authentication. The broker holds at most
// two: the current (interacting) one and a pending replacement still in
// its readiness handshake.
type authAttempt struct {
	attemptID       uuid.UUID
	cookies         *handshake.Set
	token           *CapabilityToken
	cryptoSessionID uint64
	userID          int
	client          ClientCallback
	callerPackage   string
	calling         CallingIdentity
	opts            Options

	// mask is the eligible modality set computed at admission; it only
	// shrinks if a provider errors during the handshake.
	mask modality.Modality

	// requireConfirmation is the admission-time policy; providers may
	// raise it through their ready ack, never lower it.
	requireConfirmation bool

	state sessionState

	// escrow holds the signed proof token between recognition and the
	// confirm tap. Released to the credential store on DismissPositive.
	escrow []byte

	startTime         time.Time
	authenticatedTime time.Time
}

func newAuthAttempt(ev evAuthenticate, mask modality.Modality, requireConfirmation bool, now time.Time) *authAttempt {
	return &authAttempt{
		attemptID:           uuid.New(),
		cookies:             handshake.NewSet(),
		token:               ev.token,
		cryptoSessionID:     ev.cryptoSessionID,
		userID:              ev.userID,
		client:              ev.client,
		callerPackage:       ev.callerPackage,
		calling:             ev.calling,
		opts:                ev.opts,
		mask:                mask,
		requireConfirmation: requireConfirmation,
		state:               stateCalled,
		startTime:           now,
	}
}

// ownsCookie reports whether the cookie belongs to this attempt's
// handshake, matched or still outstanding.
func (a *authAttempt) ownsCookie(c handshake.Cookie) bool {
	return a != nil && a.cookies.Contains(c)
}

// passive reports whether any passive modality participates, which makes
// failures pause the attempt instead of counting strikes silently.
func (a *authAttempt) passive() bool {
	return a.mask.Passive()
}
