package goBiometric

import (
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/goBiometric/internal/dispatch"
	"github.com/MrEthical07/goBiometric/internal/handshake"
	"github.com/MrEthical07/goBiometric/modality"
	"github.com/MrEthical07/goBiometric/settings"
)

// Broker defines a public type used by goBiometric APIs.
//
// Broker arbitrates authentication between callers, biometric providers and
// the single system prompt. All state lives behind one dispatch loop, so
// every public method is safe for concurrent use.
type Broker struct {
	loop    *dispatch.Loop
	state   *brokerState
	metrics *Metrics
	audit   *auditDispatcher
	log     zerolog.Logger
}

func newBroker(cfg *Config, state *brokerState, metrics *Metrics, audit *auditDispatcher, log zerolog.Logger) *Broker {
	b := &Broker{
		state:   state,
		metrics: metrics,
		audit:   audit,
		log:     log,
	}
	state.recv = (*providerReceiver)(b)
	state.gestures = (*promptGestures)(b)
	state.taskListener = (*taskRelay)(b)
	state.postDelayed = func(d time.Duration, ev event) {
		b.loop.PostDelayed(d, ev)
	}
	state.watchToken = b.watchToken
	b.loop = dispatch.New(cfg.Dispatch.QueueSize, func(ev any) {
		state.handle(ev.(event))
	})
	return b
}

// Authenticate admits one authentication attempt. The outcome arrives
// through the client callback; the returned error only reports admission
// problems the broker can detect synchronously.
func (b *Broker) Authenticate(token *CapabilityToken, cryptoSessionID uint64, userID int, client ClientCallback, opts Options, callerPackage string, calling CallingIdentity) error {
	if token == nil || client == nil {
		return ErrNilArgument
	}
	if opts.Title == "" && !opts.UseDefaultTitle {
		return fmt.Errorf("goBiometric: prompt title required: %w", ErrNilArgument)
	}
	if !b.loop.Post(evAuthenticate{
		token:           token,
		cryptoSessionID: cryptoSessionID,
		userID:          userID,
		client:          client,
		opts:            opts,
		callerPackage:   callerPackage,
		calling:         calling,
	}) {
		return ErrBrokerClosed
	}
	return nil
}

// CancelAuthentication asks the broker to stop the caller's attempt. The
// client callback still receives a terminal canceled error.
func (b *Broker) CancelAuthentication(token *CapabilityToken, callerPackage string, calling CallingIdentity) error {
	if !b.loop.Post(evCancel{token: token, callerPackage: callerPackage, calling: calling}) {
		return ErrBrokerClosed
	}
	return nil
}

// CanAuthenticate reports whether a biometric attempt for the user could be
// admitted right now. CodeNone means yes; otherwise the code explains why.
func (b *Broker) CanAuthenticate(userID int) (ErrorCode, error) {
	reply := make(chan ErrorCode, 1)
	if !b.loop.Post(evCanAuthenticate{userID: userID, reply: reply}) {
		return CodeHardwareUnavailable, ErrBrokerClosed
	}
	select {
	case code := <-reply:
		return code, nil
	case <-b.loop.Done():
		return CodeHardwareUnavailable, ErrBrokerClosed
	}
}

// HasEnrolledBiometrics reports whether any modality in the mask has
// usable enrollments for the user. A zero mask checks every modality.
func (b *Broker) HasEnrolledBiometrics(userID int, mask modality.Modality) (bool, error) {
	reply := make(chan bool, 1)
	if !b.loop.Post(evHasEnrolled{userID: userID, mask: mask, reply: reply}) {
		return false, ErrBrokerClosed
	}
	select {
	case ok := <-reply:
		return ok, nil
	case <-b.loop.Done():
		return false, ErrBrokerClosed
	}
}

// RegisterEnabledOnKeyguardCallback subscribes to keyguard enablement
// changes. The current value is delivered immediately; a callback whose
// delivery fails is dropped.
func (b *Broker) RegisterEnabledOnKeyguardCallback(cb settings.KeyguardCallback) error {
	if cb == nil {
		return ErrNilArgument
	}
	if !b.loop.Post(evRegisterKeyguardCallback{cb: cb}) {
		return ErrBrokerClosed
	}
	return nil
}

// SetActiveUser switches the active user on every provider and the
// settings mirror.
func (b *Broker) SetActiveUser(userID int) error {
	if !b.loop.Post(evSetActiveUser{userID: userID}) {
		return ErrBrokerClosed
	}
	return nil
}

// NotifySettingChanged re-reads one settings flag for one user, notifying
// keyguard subscribers when the keyguard flag flips for the active user.
func (b *Broker) NotifySettingChanged(flag settings.Flag, userID int) error {
	if !b.loop.Post(evSettingChanged{flag: flag, userID: userID}) {
		return ErrBrokerClosed
	}
	return nil
}

// ResetLockout verifies the proof token and resets lockout on the modality
// it attests, or on every modality when it does not name one.
func (b *Broker) ResetLockout(proofToken []byte) error {
	if len(proofToken) == 0 {
		return ErrNilArgument
	}
	reply := make(chan error, 1)
	if !b.loop.Post(evResetLockout{proofToken: proofToken, reply: reply}) {
		return ErrBrokerClosed
	}
	select {
	case err := <-reply:
		return err
	case <-b.loop.Done():
		return ErrBrokerClosed
	}
}

// OnConfirmDeviceCredentialSuccess resolves the in-flight device-credential
// flow as authenticated.
func (b *Broker) OnConfirmDeviceCredentialSuccess() error {
	if !b.loop.Post(evFallbackSuccess{}) {
		return ErrBrokerClosed
	}
	return nil
}

// OnConfirmDeviceCredentialError resolves the in-flight device-credential
// flow with an error.
func (b *Broker) OnConfirmDeviceCredentialError(code ErrorCode, message string) error {
	if !b.loop.Post(evFallbackError{code: code, message: message}) {
		return ErrBrokerClosed
	}
	return nil
}

// RegisterCancellationCallback hands the broker a hook for tearing down the
// device-credential surface. The surface registers it once it is showing.
func (b *Broker) RegisterCancellationCallback(cancel FallbackCancel) error {
	if !b.loop.Post(evRegisterCancel{cancel: cancel}) {
		return ErrBrokerClosed
	}
	return nil
}

// Receiver returns the provider-facing surface. Providers built outside
// the registry, such as ones hosted in another process, report through it.
func (b *Broker) Receiver() ProviderReceiver { return b.state.recv }

// MetricsSnapshot returns a point-in-time snapshot of broker counters.
func (b *Broker) MetricsSnapshot() MetricsSnapshot { return b.metrics.Snapshot() }

// AuditDropped reports how many audit events were discarded because the
// sink could not keep up.
func (b *Broker) AuditDropped() uint64 {
	if b.audit == nil {
		return 0
	}
	return b.audit.Dropped()
}

// Close stops the dispatch loop, draining queued events first, then shuts
// the audit pipeline down. Public methods return ErrBrokerClosed afterwards.
func (b *Broker) Close() error {
	b.loop.Close()
	if b.audit != nil {
		b.audit.Close()
	}
	return nil
}

// barrier waits for every event posted before it to be handled. Used by
// tests to observe loop-confined state without racing it.
func (b *Broker) barrier() {
	b.loop.Call(func() {})
}

func (b *Broker) watchToken(t *CapabilityToken) {
	go func() {
		select {
		case <-t.Closed():
			b.loop.Post(evCallerVanished{token: t})
		case <-b.loop.Done():
		}
	}()
}

// providerReceiver adapts provider reports into loop events.
type providerReceiver Broker

func (r *providerReceiver) broker() *Broker { return (*Broker)(r) }

// OnReadyForAuthentication describes the onreadyforauthentication operation and its observable behavior.
func (r *providerReceiver) OnReadyForAuthentication(cookie handshake.Cookie, requireConfirmation bool, userID int) {
	r.broker().loop.Post(evReady{cookie: cookie, requireConfirmation: requireConfirmation, userID: userID})
}

// OnAuthenticationSucceeded describes the onauthenticationsucceeded operation and its observable behavior.
func (r *providerReceiver) OnAuthenticationSucceeded(evidence []byte) {
	r.broker().loop.Post(evSucceeded{evidence: evidence})
}

// OnAuthenticationFailed describes the onauthenticationfailed operation and its observable behavior.
func (r *providerReceiver) OnAuthenticationFailed() {
	r.broker().loop.Post(evFailed{})
}

// OnError describes the onerror operation and its observable behavior.
func (r *providerReceiver) OnError(cookie handshake.Cookie, code ErrorCode, vendorCode int, message string) {
	// Sensing timeouts surface as ordinary failures so the caller can
	// offer a retry, matching how failed recognitions behave.
	if code == CodeTimeout {
		r.broker().loop.Post(evFailed{})
		return
	}
	r.broker().loop.Post(evError{cookie: cookie, code: code, vendorCode: vendorCode, message: message})
}

// OnAcquired describes the onacquired operation and its observable behavior.
func (r *providerReceiver) OnAcquired(info AcquiredInfo, message string) {
	r.broker().loop.Post(evAcquired{info: info, message: message})
}

// promptGestures adapts prompt-surface gestures into loop events.
type promptGestures Broker

// OnDialogDismissed describes the ondialogdismissed operation and its observable behavior.
func (g *promptGestures) OnDialogDismissed(reason DismissReason) {
	(*Broker)(g).loop.Post(evDismissed{reason: reason})
}

// OnTryAgainPressed describes the ontryagainpressed operation and its observable behavior.
func (g *promptGestures) OnTryAgainPressed() {
	(*Broker)(g).loop.Post(evTryAgain{})
}

// taskRelay adapts foreground-change notifications into loop events.
type taskRelay Broker

// OnTaskStackChanged describes the ontaskstackchanged operation and its observable behavior.
func (t *taskRelay) OnTaskStackChanged() {
	(*Broker)(t).loop.Post(evTaskStackChanged{})
}

// IsBrokerClosed reports whether err means the broker was shut down.
func IsBrokerClosed(err error) bool {
	return errors.Is(err, ErrBrokerClosed)
}
