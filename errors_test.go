package goBiometric

import (
	"errors"
	"testing"
)

func TestErrorCodeNumbering(t *testing.T) {
	// The numeric values are a wire contract; renumbering breaks every
	// out-of-process consumer.
	want := map[ErrorCode]int{
		CodeNone:                0,
		CodeHardwareUnavailable: 1,
		CodeUnableToProcess:     2,
		CodeTimeout:             3,
		CodeCanceled:            5,
		CodeLockout:             7,
		CodeVendor:              8,
		CodeLockoutPermanent:    9,
		CodeUserCanceled:        10,
		CodeNoBiometrics:        11,
		CodeHardwareNotPresent:  12,
		CodeNegativeButton:      13,
		CodeNoDeviceCredential:  14,
	}
	for code, n := range want {
		if int(code) != n {
			t.Fatalf("code %s renumbered: got %d, want %d", code, int(code), n)
		}
	}
}

func TestErrorCodeErrMapping(t *testing.T) {
	if err := CodeNone.Err(); err != nil {
		t.Fatalf("CodeNone must map to nil, got %v", err)
	}
	if !errors.Is(CodeLockout.Err(), ErrLockout) {
		t.Fatalf("CodeLockout must map to ErrLockout")
	}
	if !errors.Is(CodeVendor.Err(), ErrUnableToProcess) {
		t.Fatalf("vendor codes must map to ErrUnableToProcess")
	}
	if !errors.Is(ErrorCode(999).Err(), ErrUnableToProcess) {
		t.Fatalf("unknown codes must map to ErrUnableToProcess")
	}
}

func TestErrorCodeTerminal(t *testing.T) {
	if CodeNone.Terminal() {
		t.Fatalf("CodeNone is not terminal")
	}
	if CodeTimeout.Terminal() {
		t.Fatalf("timeouts are soft failures, not terminal")
	}
	for _, code := range []ErrorCode{CodeCanceled, CodeLockout, CodeHardwareUnavailable, CodeNegativeButton} {
		if !code.Terminal() {
			t.Fatalf("code %s must be terminal", code)
		}
	}
}

func TestCapabilityTokenCloseIdempotent(t *testing.T) {
	tok := NewCapabilityToken()
	if tok.ID() == 0 {
		t.Fatalf("token id must be non-zero")
	}

	select {
	case <-tok.Closed():
		t.Fatalf("fresh token must not read closed")
	default:
	}

	tok.Close()
	tok.Close()

	select {
	case <-tok.Closed():
	default:
		t.Fatalf("token must read closed after Close")
	}
}

func TestDismissReasonString(t *testing.T) {
	cases := map[DismissReason]string{
		DismissPositive:   "positive",
		DismissNegative:   "negative",
		DismissUserCancel: "user_cancel",
	}
	for reason, want := range cases {
		if got := reason.String(); got != want {
			t.Fatalf("String(%d) = %q, want %q", reason, got, want)
		}
	}
}
