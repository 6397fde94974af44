package goBiometric

import (
	"github.com/MrEthical07/goBiometric/internal/handshake"
	"github.com/MrEthical07/goBiometric/modality"
	"github.com/MrEthical07/goBiometric/settings"
)

// event is the closed union consumed by the broker loop. Every state
// transition enters through exactly one of these; nothing mutates broker
// state from outside the loop.
type event interface{ isEvent() }

type evAuthenticate struct {
	token           *CapabilityToken
	cryptoSessionID uint64
	userID          int
	client          ClientCallback
	opts            Options
	callerPackage   string
	calling         CallingIdentity
}

type evCancel struct {
	token         *CapabilityToken
	callerPackage string
	calling       CallingIdentity
	fromFallback  bool
}

type evReady struct {
	cookie              handshake.Cookie
	requireConfirmation bool
	userID              int
}

type evSucceeded struct {
	evidence []byte
}

type evFailed struct{}

type evError struct {
	cookie     handshake.Cookie
	code       ErrorCode
	vendorCode int
	message    string
}

// evDeferredError delivers a hard error to the client after the prompt has
// had time to show the message.
type evDeferredError struct {
	code    ErrorCode
	message string
}

type evAcquired struct {
	info    AcquiredInfo
	message string
}

type evDismissed struct {
	reason DismissReason
}

type evTryAgain struct{}

type evTaskStackChanged struct{}

type evFallbackSuccess struct{}

type evFallbackError struct {
	code    ErrorCode
	message string
}

type evRegisterCancel struct {
	cancel FallbackCancel
}

type evSetActiveUser struct {
	userID int
}

type evSettingChanged struct {
	flag   settings.Flag
	userID int
}

type evCallerVanished struct {
	token *CapabilityToken
}

type evRegisterKeyguardCallback struct {
	cb settings.KeyguardCallback
}

type evResetLockout struct {
	proofToken []byte
	reply      chan error
}

// evCanAuthenticate carries its reply channel: callers block on the loop's
// answer rather than racing broker state.
type evCanAuthenticate struct {
	userID int
	reply  chan ErrorCode
}

type evHasEnrolled struct {
	userID int
	mask   modality.Modality
	reply  chan bool
}

func (evAuthenticate) isEvent()             {}
func (evCancel) isEvent()                   {}
func (evReady) isEvent()                    {}
func (evSucceeded) isEvent()                {}
func (evFailed) isEvent()                   {}
func (evError) isEvent()                    {}
func (evDeferredError) isEvent()            {}
func (evAcquired) isEvent()                 {}
func (evDismissed) isEvent()                {}
func (evTryAgain) isEvent()                 {}
func (evTaskStackChanged) isEvent()         {}
func (evFallbackSuccess) isEvent()          {}
func (evFallbackError) isEvent()            {}
func (evRegisterCancel) isEvent()           {}
func (evSetActiveUser) isEvent()            {}
func (evSettingChanged) isEvent()           {}
func (evCallerVanished) isEvent()           {}
func (evRegisterKeyguardCallback) isEvent() {}
func (evResetLockout) isEvent()             {}
func (evCanAuthenticate) isEvent()          {}
func (evHasEnrolled) isEvent()              {}
