package proof

import (
	"crypto/ed25519"
	"crypto/rand"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/goBiometric/modality"
)

func newHSManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(Config{
		TTL:           5 * time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "goBiometric",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}
	return m
}

func TestIssueAndVerifyHS256(t *testing.T) {
	m := newHSManager(t)
	now := time.Now()

	token, err := m.Issue(7, 42, 99, modality.Face, []byte("evidence"), now)
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.UserID != 7 || claims.Capability != 42 || claims.CryptoSessionID != 99 {
		t.Fatalf("claims mismatch: %+v", claims)
	}
	if modality.Modality(claims.Modality) != modality.Face {
		t.Fatalf("expected face modality, got %d", claims.Modality)
	}
	if claims.EvidenceDigest == "" {
		t.Fatalf("expected evidence digest")
	}
	if claims.Issuer != "goBiometric" {
		t.Fatalf("expected issuer goBiometric, got %q", claims.Issuer)
	}
}

func TestIssueAndVerifyEd25519(t *testing.T) {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("key generation failed: %v", err)
	}
	m, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodEd25519,
		PrivateKey:    priv,
		PublicKey:     pub,
		Issuer:        "goBiometric",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, err := m.Issue(0, 1, 0, modality.Fingerprint, nil, time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	claims, err := m.Verify(token)
	if err != nil {
		t.Fatalf("Verify failed: %v", err)
	}
	if claims.EvidenceDigest != "" {
		t.Fatalf("no evidence must mean no digest, got %q", claims.EvidenceDigest)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	m := newHSManager(t)

	token, err := m.Issue(0, 1, 0, modality.Fingerprint, nil, time.Now().Add(-10*time.Minute))
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Verify(token); !errors.Is(err, ErrProofExpired) {
		t.Fatalf("expected ErrProofExpired, got %v", err)
	}
}

func TestVerifyRejectsForeignKey(t *testing.T) {
	m := newHSManager(t)
	other, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("another-secret-another-secret-32"),
		Issuer:        "goBiometric",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, err := other.Issue(0, 1, 0, modality.Fingerprint, nil, time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Verify(token); !errors.Is(err, ErrProofInvalid) {
		t.Fatalf("expected ErrProofInvalid, got %v", err)
	}
}

func TestVerifyRejectsWrongIssuer(t *testing.T) {
	m := newHSManager(t)
	other, err := NewManager(Config{
		TTL:           time.Minute,
		SigningMethod: MethodHS256,
		PrivateKey:    []byte("0123456789abcdef0123456789abcdef"),
		Issuer:        "someone-else",
	})
	if err != nil {
		t.Fatalf("NewManager failed: %v", err)
	}

	token, err := other.Issue(0, 1, 0, modality.Fingerprint, nil, time.Now())
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if _, err := m.Verify(token); !errors.Is(err, ErrProofInvalid) {
		t.Fatalf("expected ErrProofInvalid for wrong issuer, got %v", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	m := newHSManager(t)
	if _, err := m.Verify([]byte("not.a.token")); !errors.Is(err, ErrProofInvalid) {
		t.Fatalf("expected ErrProofInvalid, got %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	if _, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("k")}); err == nil {
		t.Fatalf("zero TTL must be rejected")
	}
	if _, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256}); err == nil {
		t.Fatalf("hs256 without key must be rejected")
	}
	if _, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodEd25519, PrivateKey: []byte("short")}); err == nil {
		t.Fatalf("short ed25519 key must be rejected")
	}
	if _, err := NewManager(Config{TTL: time.Minute, SigningMethod: "rs512", PrivateKey: []byte("k")}); err == nil {
		t.Fatalf("unsupported method must be rejected")
	}
	if _, err := NewManager(Config{TTL: time.Minute, SigningMethod: MethodHS256, PrivateKey: []byte("k"), Leeway: 5 * time.Minute}); err == nil {
		t.Fatalf("excessive leeway must be rejected")
	}
}

func TestNilManager(t *testing.T) {
	var m *Manager
	if _, err := m.Issue(0, 1, 0, modality.None, nil, time.Now()); err == nil {
		t.Fatalf("nil manager Issue must fail")
	}
	if _, err := m.Verify([]byte("x")); err == nil {
		t.Fatalf("nil manager Verify must fail")
	}
}
