package goBiometric

import (
	"errors"
	"time"
)

// Config defines a public type used by goBiometric APIs.
//
// Config instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Config struct {
	Prompt   PromptConfig
	Dispatch DispatchConfig
	Settings SettingsConfig
	Proof    ProofConfig
	Audit    AuditConfig
	Metrics  MetricsConfig
}

/*
====================================
PROMPT CONFIG
====================================
*/

// PromptConfig defines a public type used by goBiometric APIs.
//
// PromptConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type PromptConfig struct {
	// DefaultTitle substitutes an empty title when the caller opts into
	// UseDefaultTitle.
	DefaultTitle string

	// HideDialogDelay is how long a hard error stays on the prompt before
	// the broker delivers it to the caller and tears the prompt down.
	HideDialogDelay time.Duration
}

/*
====================================
DISPATCH CONFIG
====================================
*/

// DispatchConfig defines a public type used by goBiometric APIs.
//
// DispatchConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type DispatchConfig struct {
	// QueueSize bounds the event queue; posting blocks once it fills.
	QueueSize int
}

/*
====================================
SETTINGS CONFIG
====================================
*/

// SettingsConfig defines a public type used by goBiometric APIs.
//
// SettingsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type SettingsConfig struct {
	RedisPrefix string

	// Defaults apply when the settings source has no stored value for a
	// flag, or cannot be reached.
	FaceKeyguardDefault bool
	FaceAppsDefault     bool
	FaceConfirmDefault  bool
}

/*
====================================
PROOF CONFIG
====================================
*/

// ProofConfig defines a public type used by goBiometric APIs.
//
// ProofConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type ProofConfig struct {
	TTL           time.Duration
	SigningMethod string // "ed25519" (default), "hs256" optional
	PrivateKey    []byte
	PublicKey     []byte
	Issuer        string
	Leeway        time.Duration
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig defines a public type used by goBiometric APIs.
//
// AuditConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type AuditConfig struct {
	Enabled    bool
	BufferSize int
	DropIfFull bool
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig defines a public type used by goBiometric APIs.
//
// MetricsConfig instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

/*
====================================
DEFAULTS
====================================
*/

// DefaultConfig describes the defaultconfig operation and its observable behavior.
//
// DefaultConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func DefaultConfig() Config {
	return defaultConfig()
}

func defaultConfig() Config {
	return Config{
		Prompt: PromptConfig{
			DefaultTitle:    "Verify it's you",
			HideDialogDelay: 2 * time.Second,
		},
		Dispatch: DispatchConfig{
			QueueSize: 64,
		},
		Settings: SettingsConfig{
			RedisPrefix:         "bio",
			FaceKeyguardDefault: true,
			FaceAppsDefault:     true,
			FaceConfirmDefault:  false,
		},
		Proof: ProofConfig{
			TTL:           5 * time.Minute,
			SigningMethod: "ed25519",
			Issuer:        "goBiometric",
		},
		Audit: AuditConfig{
			Enabled:    false,
			BufferSize: 1024,
			DropIfFull: true,
		},
		Metrics: MetricsConfig{
			Enabled:                 false,
			EnableLatencyHistograms: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	out.Proof.PrivateKey = cloneBytes(cfg.Proof.PrivateKey)
	out.Proof.PublicKey = cloneBytes(cfg.Proof.PublicKey)
	return out
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}

/*
====================================
VALIDATION
====================================
*/

// Validate describes the validate operation and its observable behavior.
//
// Validate may return an error when input validation, dependency calls, or security checks fail.
// Validate does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (c *Config) Validate() error {
	// Prompt
	if c.Prompt.DefaultTitle == "" {
		return errors.New("Prompt DefaultTitle must not be empty")
	}
	if c.Prompt.HideDialogDelay < 0 {
		return errors.New("Prompt HideDialogDelay must be >= 0")
	}

	// Dispatch
	if c.Dispatch.QueueSize <= 0 {
		return errors.New("Dispatch QueueSize must be > 0")
	}

	// Proof
	if c.Proof.TTL <= 0 {
		return errors.New("Proof TTL must be > 0")
	}
	if c.Proof.SigningMethod != "ed25519" && c.Proof.SigningMethod != "hs256" {
		return errors.New("unsupported Proof signing method")
	}
	if c.Proof.SigningMethod == "ed25519" && len(c.Proof.PrivateKey) == 0 {
		return errors.New("ed25519 requires PrivateKey")
	}
	if c.Proof.SigningMethod == "ed25519" && len(c.Proof.PublicKey) == 0 {
		return errors.New("ed25519 requires PublicKey")
	}
	if c.Proof.SigningMethod == "hs256" && len(c.Proof.PrivateKey) == 0 {
		return errors.New("hs256 requires PrivateKey")
	}
	if c.Proof.Leeway < 0 {
		return errors.New("Proof Leeway must be >= 0")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when Audit is enabled")
	}

	return nil
}
