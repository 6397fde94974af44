package proof

import (
	"crypto/ed25519"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/MrEthical07/goBiometric/modality"
)

// SigningMethod defines a public type used by goBiometric APIs.
type SigningMethod string

const (
	// MethodEd25519 is an exported constant or variable used by the arbitration broker.
	MethodEd25519 SigningMethod = "ed25519"
	// MethodHS256 is an exported constant or variable used by the arbitration broker.
	MethodHS256 SigningMethod = "hs256"
)

var (
	// ErrProofInvalid is an exported constant or variable used by the arbitration broker.
	ErrProofInvalid = errors.New("invalid proof token")
	// ErrProofExpired is an exported constant or variable used by the arbitration broker.
	ErrProofExpired = errors.New("proof token expired")
)

// Config defines a public type used by goBiometric APIs.
//
// Config instances are intended to be configured during initialization and
// then treated as immutable unless documented otherwise.
type Config struct {
	TTL           time.Duration
	SigningMethod SigningMethod
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

// Claims carries what the credential store needs to trust a successful
// authentication: who, which logical operation, which crypto session, which
// modality, and a digest of the provider's raw evidence.
type Claims struct {
	UserID          int    `json:"uid"`
	Capability      uint64 `json:"cap"`
	CryptoSessionID uint64 `json:"csid,omitempty"`
	Modality        uint8  `json:"mod"`
	EvidenceDigest  string `json:"evd,omitempty"`
	jwt.RegisteredClaims
}

// Manager issues and verifies proof-of-authentication tokens. Tokens are
// escrowed by the broker while explicit confirmation is pending and only
// released to the credential store afterwards.
type Manager struct {
	config Config
	signer any
}

// NewManager describes the newmanager operation and its observable behavior.
//
// NewManager may return an error when the signing configuration is invalid.
func NewManager(cfg Config) (*Manager, error) {
	if cfg.TTL <= 0 {
		return nil, errors.New("invalid proof TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}
	m := &Manager{config: cfg}
	switch cfg.SigningMethod {
	case MethodHS256:
		if len(cfg.PrivateKey) == 0 {
			return nil, errors.New("hs256 requires private key")
		}
		m.signer = cfg.PrivateKey
	case MethodEd25519:
		if len(cfg.PrivateKey) != ed25519.PrivateKeySize {
			return nil, errors.New("ed25519 requires a 64-byte private key")
		}
		if len(cfg.PublicKey) != ed25519.PublicKeySize {
			return nil, errors.New("ed25519 requires a 32-byte public key")
		}
		m.signer = ed25519.PrivateKey(cfg.PrivateKey)
	default:
		return nil, errors.New("unsupported signing method")
	}
	return m, nil
}

// Issue creates a signed proof token for one successful authentication.
// evidence is the provider's raw match evidence; only its digest is carried.
func (m *Manager) Issue(userID int, capability, cryptoSessionID uint64, mod modality.Modality, evidence []byte, at time.Time) ([]byte, error) {
	if m == nil {
		return nil, errors.New("nil proof manager")
	}
	claims := Claims{
		UserID:          userID,
		Capability:      capability,
		CryptoSessionID: cryptoSessionID,
		Modality:        uint8(mod),
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.config.Issuer,
			Subject:   strconv.Itoa(userID),
			IssuedAt:  jwt.NewNumericDate(at),
			ExpiresAt: jwt.NewNumericDate(at.Add(m.config.TTL)),
		},
	}
	if len(evidence) > 0 {
		digest := sha256.Sum256(evidence)
		claims.EvidenceDigest = hex.EncodeToString(digest[:])
	}

	var method jwt.SigningMethod = jwt.SigningMethodHS256
	if m.config.SigningMethod == MethodEd25519 {
		method = jwt.SigningMethodEdDSA
	}
	signed, err := jwt.NewWithClaims(method, claims).SignedString(m.signer)
	if err != nil {
		return nil, err
	}
	return []byte(signed), nil
}

// Verify parses and validates a proof token previously issued by this
// manager. The broker calls it before fanning a lockout reset out to
// providers, so forged tokens never reach hardware.
func (m *Manager) Verify(token []byte) (*Claims, error) {
	if m == nil {
		return nil, errors.New("nil proof manager")
	}

	claims := &Claims{}
	opts := []jwt.ParserOption{
		jwt.WithLeeway(m.config.Leeway),
		jwt.WithExpirationRequired(),
	}
	if m.config.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(m.config.Issuer))
	}
	switch m.config.SigningMethod {
	case MethodHS256:
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	case MethodEd25519:
		opts = append(opts, jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}))
	}

	parsed, err := jwt.ParseWithClaims(string(token), claims, m.keyFunc, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrProofExpired
		}
		return nil, ErrProofInvalid
	}
	if !parsed.Valid {
		return nil, ErrProofInvalid
	}
	return claims, nil
}

func (m *Manager) keyFunc(*jwt.Token) (any, error) {
	switch m.config.SigningMethod {
	case MethodHS256:
		return m.config.PrivateKey, nil
	case MethodEd25519:
		return ed25519.PublicKey(m.config.PublicKey), nil
	default:
		return nil, errors.New("unsupported signing method")
	}
}
