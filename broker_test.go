package goBiometric

import (
	"errors"
	"sync"
	"testing"

	"github.com/MrEthical07/goBiometric/internal/handshake"
	"github.com/MrEthical07/goBiometric/modality"
	"github.com/MrEthical07/goBiometric/settings"
)

const testProofKey = "0123456789abcdef0123456789abcdef"

type mockClient struct {
	mu         sync.Mutex
	successes  int
	failures   int
	codes      []ErrorCode
	messages   []string
	dismissed  []DismissReason
	deliverErr error
}

func (c *mockClient) OnAuthenticationSucceeded() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.successes++
	return c.deliverErr
}

func (c *mockClient) OnAuthenticationFailed() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failures++
	return c.deliverErr
}

func (c *mockClient) OnError(code ErrorCode, message string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes = append(c.codes, code)
	c.messages = append(c.messages, message)
	return c.deliverErr
}

func (c *mockClient) OnDialogDismissed(reason DismissReason) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.dismissed = append(c.dismissed, reason)
	return c.deliverErr
}

func (c *mockClient) successCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.successes
}

func (c *mockClient) failureCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.failures
}

func (c *mockClient) errorCodes() []ErrorCode {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ErrorCode, len(c.codes))
	copy(out, c.codes)
	return out
}

func (c *mockClient) lastMessage() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.messages) == 0 {
		return ""
	}
	return c.messages[len(c.messages)-1]
}

func (c *mockClient) dismissals() []DismissReason {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]DismissReason, len(c.dismissed))
	copy(out, c.dismissed)
	return out
}

type mockProvider struct {
	mu          sync.Mutex
	detected    bool
	enrolled    map[int]bool
	prepared    []PrepareRequest
	started     []handshake.Cookie
	cancels     int
	activeUser  int
	resets      [][]byte
	prepareErr  error
	startErr    error
	resetErr    error
	errorString string
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		detected: true,
		enrolled: map[int]bool{0: true},
	}
}

func (p *mockProvider) IsHardwareDetected() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.detected
}

func (p *mockProvider) HasEnrolledTemplates(userID int) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.enrolled[userID]
}

func (p *mockProvider) SetActiveUser(userID int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.activeUser = userID
}

func (p *mockProvider) PrepareForAuthentication(req PrepareRequest) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.prepareErr != nil {
		return p.prepareErr
	}
	p.prepared = append(p.prepared, req)
	return nil
}

func (p *mockProvider) StartPreparedClient(cookie handshake.Cookie) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.startErr != nil {
		return p.startErr
	}
	p.started = append(p.started, cookie)
	return nil
}

func (p *mockProvider) CancelAuthenticationFromService(*CapabilityToken, string, CallingIdentity, bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.cancels++
	return nil
}

func (p *mockProvider) ResetLockout(proofToken []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.resetErr != nil {
		return p.resetErr
	}
	p.resets = append(p.resets, proofToken)
	return nil
}

func (p *mockProvider) ErrorString(code ErrorCode, _ int) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.errorString != "" {
		return p.errorString
	}
	return code.String()
}

func (p *mockProvider) lastPrepared(t *testing.T) PrepareRequest {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.prepared) == 0 {
		t.Fatalf("provider was never prepared")
	}
	return p.prepared[len(p.prepared)-1]
}

func (p *mockProvider) preparedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.prepared)
}

func (p *mockProvider) startedCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.started)
}

func (p *mockProvider) cancelCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancels
}

type mockPrompt struct {
	mu      sync.Mutex
	shows   int
	hides   int
	results []bool
	helps   []string
	errs    []string
	events  PromptEvents
	opts    Options
	mask    modality.Modality
	confirm bool
	showErr error
}

func (p *mockPrompt) ShowPrompt(opts Options, mask modality.Modality, requireConfirmation bool, _ int, events PromptEvents) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.showErr != nil {
		return p.showErr
	}
	p.shows++
	p.opts = opts
	p.mask = mask
	p.confirm = requireConfirmation
	p.events = events
	return nil
}

func (p *mockPrompt) HidePrompt() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.hides++
	return nil
}

func (p *mockPrompt) OnAuthenticationResult(ok bool, _ string, _ bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.results = append(p.results, ok)
	return nil
}

func (p *mockPrompt) OnHelp(message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.helps = append(p.helps, message)
	return nil
}

func (p *mockPrompt) OnError(message string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.errs = append(p.errs, message)
	return nil
}

func (p *mockPrompt) showCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.shows
}

func (p *mockPrompt) hideCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.hides
}

func (p *mockPrompt) gestures(t *testing.T) PromptEvents {
	t.Helper()
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.events == nil {
		t.Fatalf("prompt was never shown")
	}
	return p.events
}

type mockTasks struct {
	mu           sync.Mutex
	registered   int
	unregistered int
	foreground   string
	fgErr        error
}

func (w *mockTasks) Register(TaskStackListener) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.registered++
	return nil
}

func (w *mockTasks) Unregister(TaskStackListener) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.unregistered++
	return nil
}

func (w *mockTasks) ForegroundPackage() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.foreground, w.fgErr
}

func (w *mockTasks) setForeground(pkg string) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.foreground = pkg
}

type mockCreds struct {
	mu     sync.Mutex
	tokens [][]byte
	addErr error
}

func (c *mockCreds) AddAuthToken(token []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.addErr != nil {
		return c.addErr
	}
	c.tokens = append(c.tokens, token)
	return nil
}

func (c *mockCreds) tokenCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tokens)
}

type mockLauncher struct {
	mu         sync.Mutex
	configured bool
	launches   int
	launchErr  error
}

func (l *mockLauncher) IsCredentialConfigured(int) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.configured
}

func (l *mockLauncher) Launch(int, Options) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.launchErr != nil {
		return l.launchErr
	}
	l.launches++
	return nil
}

func (l *mockLauncher) launchCount() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.launches
}

func testConfig() Config {
	cfg := defaultConfig()
	cfg.Prompt.HideDialogDelay = 0
	cfg.Proof.SigningMethod = "hs256"
	cfg.Proof.PrivateKey = []byte(testProofKey)
	cfg.Metrics.Enabled = true
	return cfg
}

type brokerHarness struct {
	broker   *Broker
	finger   *mockProvider
	face     *mockProvider
	prompt   *mockPrompt
	tasks    *mockTasks
	creds    *mockCreds
	launcher *mockLauncher
	source   *settings.StaticSource
}

func newBrokerHarness(t *testing.T, mask modality.Modality) *brokerHarness {
	t.Helper()

	h := &brokerHarness{
		prompt:   &mockPrompt{},
		tasks:    &mockTasks{foreground: "com.example.caller"},
		creds:    &mockCreds{},
		launcher: &mockLauncher{configured: true},
		source:   settings.NewStaticSource(),
	}

	b := New().
		WithConfig(testConfig()).
		WithSettingsSource(h.source).
		WithPromptSurface(h.prompt).
		WithTaskStackWatcher(h.tasks).
		WithCredentialStore(h.creds).
		WithDeviceCredentialLauncher(h.launcher)

	if mask.Has(modality.Fingerprint) {
		h.finger = newMockProvider()
		b = b.WithProvider(modality.Fingerprint, h.finger)
	}
	if mask.Has(modality.Face) {
		h.face = newMockProvider()
		b = b.WithProvider(modality.Face, h.face)
	}

	broker, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	h.broker = broker
	t.Cleanup(func() { _ = broker.Close() })
	return h
}

func defaultOptions() Options {
	return Options{
		Title:        "Unlock vault",
		NegativeText: "Use password",
	}
}

// authenticate admits an attempt and waits for the handshake fan-out.
func (h *brokerHarness) authenticate(t *testing.T, client *mockClient, opts Options) *CapabilityToken {
	t.Helper()
	token := NewCapabilityToken()
	err := h.broker.Authenticate(token, 42, 0, client, opts, "com.example.caller", CallingIdentity{UID: 1000, PID: 99, UserID: 0})
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	h.broker.barrier()
	return token
}

// ackAll acknowledges every outstanding cookie and waits for promotion.
func (h *brokerHarness) ackAll(t *testing.T) {
	t.Helper()
	for _, p := range []*mockProvider{h.finger, h.face} {
		if p == nil || p.preparedCount() == 0 {
			continue
		}
		req := p.lastPrepared(t)
		req.Receiver.OnReadyForAuthentication(req.Cookie, req.RequireConfirmation, req.UserID)
	}
	h.broker.barrier()
}

// startAttempt runs admission and the full handshake.
func (h *brokerHarness) startAttempt(t *testing.T, client *mockClient, opts Options) *CapabilityToken {
	t.Helper()
	token := h.authenticate(t, client, opts)
	h.ackAll(t)
	return token
}

func expectCodes(t *testing.T, client *mockClient, want ...ErrorCode) {
	t.Helper()
	got := client.errorCodes()
	if len(got) != len(want) {
		t.Fatalf("expected %d error deliveries, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("error %d: expected code %d, got %d", i, want[i], got[i])
		}
	}
}

var errRemoteGone = errors.New("remote endpoint gone")
