package goBiometric

import (
	"sync"

	"github.com/MrEthical07/goBiometric/internal/handshake"
	"github.com/MrEthical07/goBiometric/modality"
)

// CapabilityToken defines a public type used by goBiometric APIs.
//
// A CapabilityToken stands in for the caller binding of an attempt: the
// broker watches Closed and cancels the attempt when the caller goes away.
// Tokens are single use.
type CapabilityToken struct {
	id   uint64
	done chan struct{}
	once sync.Once
}

// NewCapabilityToken constructs a live token with a random identity.
func NewCapabilityToken() *CapabilityToken {
	return &CapabilityToken{
		id:   randomUint64(),
		done: make(chan struct{}),
	}
}

// ID returns the token's random identity. Useful for logging only.
func (t *CapabilityToken) ID() uint64 { return t.id }

// Close marks the caller as gone. Safe to call more than once.
func (t *CapabilityToken) Close() {
	t.once.Do(func() { close(t.done) })
}

// Closed returns a channel closed when the caller vanishes.
func (t *CapabilityToken) Closed() <-chan struct{} { return t.done }

// CallingIdentity defines a public type used by goBiometric APIs.
//
// CallingIdentity carries the caller process identity, forwarded verbatim
// to providers for their own access decisions.
type CallingIdentity struct {
	UID    int
	PID    int
	UserID int
}

// ConfirmationPolicy defines a public type used by goBiometric APIs.
type ConfirmationPolicy int

const (
	// ConfirmationDefault requires explicit confirmation unless a passive
	// modality with confirmation disabled handles the attempt.
	ConfirmationDefault ConfirmationPolicy = iota
	// ConfirmationRequired always demands an explicit confirm tap.
	ConfirmationRequired
	// ConfirmationSkip completes on recognition without a confirm tap,
	// unless per-user settings force confirmation anyway.
	ConfirmationSkip
)

// Options defines a public type used by goBiometric APIs.
//
// Options carries the prompt content and behavior flags for one attempt.
type Options struct {
	Title        string
	Subtitle     string
	Description  string
	NegativeText string

	// UseDefaultTitle substitutes the broker-configured title when Title
	// is empty instead of rejecting the request.
	UseDefaultTitle bool

	// AllowDeviceCredential routes the attempt to the device-credential
	// fallback instead of biometric sensing.
	AllowDeviceCredential bool

	// FromDeviceCredential marks a biometric attempt hosted inside the
	// credential fallback surface. Cancellation semantics differ there.
	FromDeviceCredential bool

	Confirmation ConfirmationPolicy
}

// DismissReason defines a public type used by goBiometric APIs.
type DismissReason int

const (
	// DismissPositive is the explicit confirm tap.
	DismissPositive DismissReason = 1
	// DismissNegative is the negative button.
	DismissNegative DismissReason = 2
	// DismissUserCancel is a tap outside the prompt or a back gesture.
	DismissUserCancel DismissReason = 3
)

// String returns a human readable description of the reason.
func (r DismissReason) String() string {
	switch r {
	case DismissPositive:
		return "positive"
	case DismissNegative:
		return "negative"
	case DismissUserCancel:
		return "user_cancel"
	default:
		return "unknown"
	}
}

// AcquiredInfo defines a public type used by goBiometric APIs.
//
// AcquiredInfo is the provider's image-quality feedback stream. Zero means
// a good capture; everything else is a help hint.
type AcquiredInfo int

// AcquiredGood is an exported constant or variable used by the arbitration broker.
const AcquiredGood AcquiredInfo = 0

// ClientCallback defines a public type used by goBiometric APIs.
//
// ClientCallback is the broker-to-caller channel. Every method may fail:
// the broker treats a delivery error as a lost caller and logs it, it never
// retries.
type ClientCallback interface {
	OnAuthenticationSucceeded() error
	OnAuthenticationFailed() error
	OnError(code ErrorCode, message string) error
	OnDialogDismissed(reason DismissReason) error
}

// ProviderReceiver defines a public type used by goBiometric APIs.
//
// ProviderReceiver is implemented by the broker and handed to providers in
// PrepareRequest; providers report sensing outcomes through it. All methods
// are safe to call from any goroutine.
type ProviderReceiver interface {
	OnReadyForAuthentication(cookie handshake.Cookie, requireConfirmation bool, userID int)
	OnAuthenticationSucceeded(evidence []byte)
	OnAuthenticationFailed()
	OnError(cookie handshake.Cookie, code ErrorCode, vendorCode int, message string)
	OnAcquired(info AcquiredInfo, message string)
}

// Cookie is the readiness-handshake correlation id issued per modality.
// Aliased so provider implementations outside this module can name it.
type Cookie = handshake.Cookie

// PrepareRequest defines a public type used by goBiometric APIs.
//
// PrepareRequest is the readiness-handshake payload sent to one provider.
type PrepareRequest struct {
	Cookie              handshake.Cookie
	Token               *CapabilityToken
	CryptoSessionID     uint64
	UserID              int
	CallerPackage       string
	Calling             CallingIdentity
	RequireConfirmation bool
	Receiver            ProviderReceiver
}

// Provider defines a public type used by goBiometric APIs.
//
// Provider is one biometric sensing backend. The broker never starts
// sensing directly: it prepares, waits for the cookie ack, then starts the
// prepared client.
type Provider interface {
	IsHardwareDetected() bool
	HasEnrolledTemplates(userID int) bool
	SetActiveUser(userID int)
	PrepareForAuthentication(req PrepareRequest) error
	StartPreparedClient(cookie handshake.Cookie) error
	CancelAuthenticationFromService(token *CapabilityToken, callerPackage string, calling CallingIdentity, fromClient bool) error
	ResetLockout(proofToken []byte) error
	ErrorString(code ErrorCode, vendorCode int) string
}

// PromptEvents defines a public type used by goBiometric APIs.
//
// PromptEvents is implemented by the broker and handed to the prompt
// surface so user gestures flow back in.
type PromptEvents interface {
	OnDialogDismissed(reason DismissReason)
	OnTryAgainPressed()
}

// PromptSurface defines a public type used by goBiometric APIs.
//
// PromptSurface renders the system authentication prompt. Exactly one
// prompt is showing at any time; the broker serializes all calls.
type PromptSurface interface {
	ShowPrompt(opts Options, mask modality.Modality, requireConfirmation bool, userID int, events PromptEvents) error
	HidePrompt() error
	OnAuthenticationResult(ok bool, failureReason string, requireConfirmation bool) error
	OnHelp(message string) error
	OnError(message string) error
}

// TaskStackListener defines a public type used by goBiometric APIs.
type TaskStackListener interface {
	OnTaskStackChanged()
}

// TaskStackWatcher defines a public type used by goBiometric APIs.
//
// TaskStackWatcher reports foreground changes so the broker can cancel an
// attempt whose caller lost the foreground.
type TaskStackWatcher interface {
	Register(l TaskStackListener) error
	Unregister(l TaskStackListener) error
	ForegroundPackage() (string, error)
}

// CredentialStore defines a public type used by goBiometric APIs.
//
// CredentialStore receives the signed proof token after a completed
// attempt, unlocking downstream keystore operations.
type CredentialStore interface {
	AddAuthToken(token []byte) error
}

// DeviceCredentialLauncher defines a public type used by goBiometric APIs.
//
// DeviceCredentialLauncher hosts the PIN/pattern/password fallback flow.
type DeviceCredentialLauncher interface {
	IsCredentialConfigured(userID int) bool
	Launch(userID int, opts Options) error
}

// FallbackCancel defines a public type used by goBiometric APIs.
//
// FallbackCancel tears down an in-flight device-credential flow. Registered
// by the fallback surface once it is showing.
type FallbackCancel func() error
