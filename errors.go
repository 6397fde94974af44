package goBiometric

import "errors"

var (
	// ErrHardwareNotPresent is an exported constant or variable used by the arbitration broker.
	ErrHardwareNotPresent = errors.New("biometric hardware not present")
	// ErrHardwareUnavailable is an exported constant or variable used by the arbitration broker.
	ErrHardwareUnavailable = errors.New("biometric hardware unavailable")
	// ErrNoBiometrics is an exported constant or variable used by the arbitration broker.
	ErrNoBiometrics = errors.New("no biometrics enrolled")
	// ErrNoDeviceCredential is an exported constant or variable used by the arbitration broker.
	ErrNoDeviceCredential = errors.New("no device credential configured")
	// ErrTimeout is an exported constant or variable used by the arbitration broker.
	ErrTimeout = errors.New("biometric sensing timed out")
	// ErrCanceled is an exported constant or variable used by the arbitration broker.
	ErrCanceled = errors.New("authentication canceled")
	// ErrUserCanceled is an exported constant or variable used by the arbitration broker.
	ErrUserCanceled = errors.New("authentication canceled by user")
	// ErrNegativeButton is an exported constant or variable used by the arbitration broker.
	ErrNegativeButton = errors.New("negative button pressed")
	// ErrLockout is an exported constant or variable used by the arbitration broker.
	ErrLockout = errors.New("too many failed attempts, biometric locked")
	// ErrLockoutPermanent is an exported constant or variable used by the arbitration broker.
	ErrLockoutPermanent = errors.New("biometric permanently locked")
	// ErrUnableToProcess is an exported constant or variable used by the arbitration broker.
	ErrUnableToProcess = errors.New("unable to process biometric input")
	// ErrBrokerClosed is an exported constant or variable used by the arbitration broker.
	ErrBrokerClosed = errors.New("broker closed")
	// ErrNilArgument is an exported constant or variable used by the arbitration broker.
	ErrNilArgument = errors.New("one or more nil arguments")
)

// ErrorCode defines a public type used by goBiometric APIs.
//
// ErrorCode is the wire code delivered through client callbacks; the numeric
// values are stable across releases.
type ErrorCode int

const (
	// CodeNone is an exported constant or variable used by the arbitration broker.
	CodeNone ErrorCode = 0
	// CodeHardwareUnavailable is an exported constant or variable used by the arbitration broker.
	CodeHardwareUnavailable ErrorCode = 1
	// CodeUnableToProcess is an exported constant or variable used by the arbitration broker.
	CodeUnableToProcess ErrorCode = 2
	// CodeTimeout is an exported constant or variable used by the arbitration broker.
	CodeTimeout ErrorCode = 3
	// CodeCanceled is an exported constant or variable used by the arbitration broker.
	CodeCanceled ErrorCode = 5
	// CodeLockout is an exported constant or variable used by the arbitration broker.
	CodeLockout ErrorCode = 7
	// CodeVendor is an exported constant or variable used by the arbitration broker.
	CodeVendor ErrorCode = 8
	// CodeLockoutPermanent is an exported constant or variable used by the arbitration broker.
	CodeLockoutPermanent ErrorCode = 9
	// CodeUserCanceled is an exported constant or variable used by the arbitration broker.
	CodeUserCanceled ErrorCode = 10
	// CodeNoBiometrics is an exported constant or variable used by the arbitration broker.
	CodeNoBiometrics ErrorCode = 11
	// CodeHardwareNotPresent is an exported constant or variable used by the arbitration broker.
	CodeHardwareNotPresent ErrorCode = 12
	// CodeNegativeButton is an exported constant or variable used by the arbitration broker.
	CodeNegativeButton ErrorCode = 13
	// CodeNoDeviceCredential is an exported constant or variable used by the arbitration broker.
	CodeNoDeviceCredential ErrorCode = 14
)

var codeErrors = map[ErrorCode]error{
	CodeHardwareUnavailable: ErrHardwareUnavailable,
	CodeUnableToProcess:     ErrUnableToProcess,
	CodeTimeout:             ErrTimeout,
	CodeCanceled:            ErrCanceled,
	CodeLockout:             ErrLockout,
	CodeLockoutPermanent:    ErrLockoutPermanent,
	CodeUserCanceled:        ErrUserCanceled,
	CodeNoBiometrics:        ErrNoBiometrics,
	CodeHardwareNotPresent:  ErrHardwareNotPresent,
	CodeNegativeButton:      ErrNegativeButton,
	CodeNoDeviceCredential:  ErrNoDeviceCredential,
}

// Err maps the wire code to its sentinel error, or nil for CodeNone.
// Vendor-specific codes map to ErrUnableToProcess.
func (c ErrorCode) Err() error {
	if c == CodeNone {
		return nil
	}
	if err, ok := codeErrors[c]; ok {
		return err
	}
	return ErrUnableToProcess
}

// Terminal reports whether an error with this code ends the attempt.
// Timeouts are soft: they surface as authentication failures, not
// termination.
func (c ErrorCode) Terminal() bool {
	return c != CodeNone && c != CodeTimeout
}

// String returns a human readable description of the code.
func (c ErrorCode) String() string {
	if err := c.Err(); err != nil {
		return err.Error()
	}
	return "ok"
}
