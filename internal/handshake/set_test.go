package handshake

import (
	"testing"

	"github.com/MrEthical07/goBiometric/modality"
)

func mustCookie(t *testing.T) Cookie {
	t.Helper()
	c, err := NewCookie()
	if err != nil {
		t.Fatalf("NewCookie failed: %v", err)
	}
	if c == 0 {
		t.Fatalf("NewCookie returned the reserved zero value")
	}
	return c
}

func TestSetMatchMovesCookie(t *testing.T) {
	s := NewSet()
	finger := mustCookie(t)
	face := mustCookie(t)
	s.Add(modality.Fingerprint, finger)
	s.Add(modality.Face, face)

	if s.Done() {
		t.Fatalf("set with outstanding cookies must not be done")
	}
	if s.Remaining() != 2 {
		t.Fatalf("expected 2 remaining, got %d", s.Remaining())
	}

	m, ok := s.Match(finger)
	if !ok || m != modality.Fingerprint {
		t.Fatalf("expected fingerprint match, got %v/%v", m, ok)
	}
	if s.Done() || s.Remaining() != 1 {
		t.Fatalf("one acknowledgement outstanding, got done=%v remaining=%d", s.Done(), s.Remaining())
	}

	if _, ok := s.Match(face); !ok {
		t.Fatalf("expected face match")
	}
	if !s.Done() {
		t.Fatalf("all cookies acknowledged, set must be done")
	}
}

func TestSetDuplicateMatchIsNoOp(t *testing.T) {
	s := NewSet()
	c := mustCookie(t)
	s.Add(modality.Fingerprint, c)

	if _, ok := s.Match(c); !ok {
		t.Fatalf("first match must succeed")
	}
	if _, ok := s.Match(c); ok {
		t.Fatalf("duplicate acknowledgement must be rejected")
	}
	if !s.Contains(c) {
		t.Fatalf("matched cookie still belongs to the set")
	}
}

func TestSetUnknownCookie(t *testing.T) {
	s := NewSet()
	s.Add(modality.Face, mustCookie(t))

	stranger := mustCookie(t)
	if _, ok := s.Match(stranger); ok {
		t.Fatalf("unknown cookie must not match")
	}
	if s.Contains(stranger) {
		t.Fatalf("unknown cookie must not be contained")
	}
}

func TestSetMatchedIteratesInPriorityOrder(t *testing.T) {
	s := NewSet()
	finger := mustCookie(t)
	face := mustCookie(t)
	s.Add(modality.Face, face)
	s.Add(modality.Fingerprint, finger)
	s.Match(face)
	s.Match(finger)

	var order []modality.Modality
	s.Matched(func(m modality.Modality, _ Cookie) {
		order = append(order, m)
	})
	if len(order) != 2 || order[0] != modality.Fingerprint || order[1] != modality.Face {
		t.Fatalf("expected priority order fingerprint,face, got %v", order)
	}
}

func TestSetMask(t *testing.T) {
	s := NewSet()
	s.Add(modality.Fingerprint, mustCookie(t))
	s.Add(modality.Face, mustCookie(t))
	s.Match(s.waiting[modality.Face])

	want := modality.Fingerprint | modality.Face
	if got := s.Mask(); got != want {
		t.Fatalf("expected mask %v, got %v", want, got)
	}
}
