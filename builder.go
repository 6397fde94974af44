package goBiometric

import (
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/MrEthical07/goBiometric/modality"
	"github.com/MrEthical07/goBiometric/proof"
	"github.com/MrEthical07/goBiometric/settings"
)

// Builder defines a public type used by goBiometric APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  *redis.Client
	source settings.Source

	providers map[modality.Modality]Provider
	prompt    PromptSurface
	tasks     TaskStackWatcher
	creds     CredentialStore
	fallback  DeviceCredentialLauncher

	auditSink AuditSink
	logger    *zerolog.Logger
	clock     func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New may return an error when input validation, dependency calls, or security checks fail.
// New does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func New() *Builder {
	return &Builder{
		config:    defaultConfig(),
		providers: make(map[modality.Modality]Provider),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig may return an error when input validation, dependency calls, or security checks fail.
// WithConfig does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis may return an error when input validation, dependency calls, or security checks fail.
// WithRedis does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithRedis(client *redis.Client) *Builder {
	b.redis = client
	return b
}

// WithSettingsSource overrides the Redis-backed settings source. Mostly
// useful for tests and deployments without Redis.
func (b *Builder) WithSettingsSource(src settings.Source) *Builder {
	b.source = src
	return b
}

// WithProvider describes the withprovider operation and its observable behavior.
//
// WithProvider may return an error when input validation, dependency calls, or security checks fail.
// WithProvider does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithProvider(m modality.Modality, p Provider) *Builder {
	b.providers[m] = p
	return b
}

// WithPromptSurface describes the withpromptsurface operation and its observable behavior.
//
// WithPromptSurface may return an error when input validation, dependency calls, or security checks fail.
// WithPromptSurface does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithPromptSurface(p PromptSurface) *Builder {
	b.prompt = p
	return b
}

// WithTaskStackWatcher describes the withtaskstackwatcher operation and its observable behavior.
//
// WithTaskStackWatcher may return an error when input validation, dependency calls, or security checks fail.
// WithTaskStackWatcher does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithTaskStackWatcher(w TaskStackWatcher) *Builder {
	b.tasks = w
	return b
}

// WithCredentialStore describes the withcredentialstore operation and its observable behavior.
//
// WithCredentialStore may return an error when input validation, dependency calls, or security checks fail.
// WithCredentialStore does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithCredentialStore(s CredentialStore) *Builder {
	b.creds = s
	return b
}

// WithDeviceCredentialLauncher describes the withdevicecredentiallauncher operation and its observable behavior.
//
// WithDeviceCredentialLauncher may return an error when input validation, dependency calls, or security checks fail.
// WithDeviceCredentialLauncher does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithDeviceCredentialLauncher(l DeviceCredentialLauncher) *Builder {
	b.fallback = l
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
//
// WithAuditSink may return an error when input validation, dependency calls, or security checks fail.
// WithAuditSink does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger describes the withlogger operation and its observable behavior.
//
// WithLogger may return an error when input validation, dependency calls, or security checks fail.
// WithLogger does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLogger(l zerolog.Logger) *Builder {
	b.logger = &l
	return b
}

// WithClock overrides the broker's time source. Tests use this to make
// latency measurements deterministic.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
//
// WithMetricsEnabled may return an error when input validation, dependency calls, or security checks fail.
// WithMetricsEnabled does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
//
// WithLatencyHistograms may return an error when input validation, dependency calls, or security checks fail.
// WithLatencyHistograms does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when input validation, dependency calls, or security checks fail.
// Build does not mutate shared global state and can be used concurrently when the receiver and dependencies are concurrently safe.
func (b *Builder) Build() (*Broker, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if b.prompt == nil {
		return nil, errors.New("prompt surface required")
	}

	source := b.source
	if source == nil {
		if b.redis == nil {
			return nil, errors.New("redis client or settings source required")
		}
		source = settings.NewRedisSource(b.redis, cfg.Settings.RedisPrefix)
	}

	logger := zerolog.Nop()
	if b.logger != nil {
		logger = *b.logger
	}

	clock := b.clock
	if clock == nil {
		clock = time.Now
	}

	// -------- MODALITY REGISTRY --------
	for m, p := range b.providers {
		if p != nil && !m.Single() {
			return nil, errors.New("providers must register under a single modality bit")
		}
	}
	reg := newRegistry()
	for _, m := range modality.Order {
		if p, ok := b.providers[m]; ok && p != nil {
			reg.add(m, p)
		}
	}

	// -------- SETTINGS MIRROR --------
	mirror := settings.NewMirror(source, settings.Defaults{
		FaceKeyguard: cfg.Settings.FaceKeyguardDefault,
		FaceApps:     cfg.Settings.FaceAppsDefault,
		FaceConfirm:  cfg.Settings.FaceConfirmDefault,
	}, logger)

	// -------- PROOF MANAGER --------
	proofs, err := proof.NewManager(proof.Config{
		TTL:           cfg.Proof.TTL,
		SigningMethod: proof.SigningMethod(cfg.Proof.SigningMethod),
		PrivateKey:    cfg.Proof.PrivateKey,
		PublicKey:     cfg.Proof.PublicKey,
		Issuer:        cfg.Proof.Issuer,
		Leeway:        cfg.Proof.Leeway,
	})
	if err != nil {
		return nil, err
	}

	metrics := NewMetrics(cfg.Metrics)

	audit := newAuditDispatcher(cfg.Audit, b.auditSink)

	state := &brokerState{
		cfg:      &cfg,
		registry: reg,
		mirror:   mirror,
		prompt:   b.prompt,
		tasks:    b.tasks,
		creds:    b.creds,
		fallback: b.fallback,
		proofs:   proofs,
		metrics:  metrics,
		audit:    audit,
		log:      logger,
		now:      clock,
	}

	b.built = true
	return newBroker(&cfg, state, metrics, audit, logger), nil
}
