package main

import (
	"flag"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	goBiometric "github.com/MrEthical07/goBiometric"
	"github.com/MrEthical07/goBiometric/modality"
	"github.com/MrEthical07/goBiometric/settings"
)

func main() {
	var (
		ops         = flag.Int("ops", 50000, "authentication round trips to drive")
		queries     = flag.Int("queries", 200000, "concurrent availability queries")
		concurrency = flag.Int("concurrency", 256, "workers for the query phase")
	)
	flag.Parse()

	if *ops <= 0 || *queries <= 0 || *concurrency <= 0 {
		fmt.Fprintln(os.Stderr, "ops, queries, and concurrency must be > 0")
		os.Exit(2)
	}

	cfg := goBiometric.DefaultConfig()
	cfg.Proof.SigningMethod = "hs256"
	cfg.Proof.PrivateKey = []byte("0123456789abcdef0123456789abcdef")
	cfg.Metrics.Enabled = true
	cfg.Metrics.EnableLatencyHistograms = true

	provider := &instantProvider{}
	broker, err := goBiometric.New().
		WithConfig(cfg).
		WithSettingsSource(settings.NewStaticSource()).
		WithProvider(modality.Fingerprint, provider).
		WithPromptSurface(silentPrompt{}).
		WithCredentialStore(discardStore{}).
		Build()
	if err != nil {
		fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		os.Exit(1)
	}
	defer broker.Close()

	opts := goBiometric.Options{
		Title:        "loadtest",
		NegativeText: "cancel",
		Confirmation: goBiometric.ConfirmationSkip,
	}

	// ---------- phase 1: sequential authentication round trips ----------
	// The broker arbitrates a single attempt at a time; a second admission
	// displaces the first, so round trips are driven back to back.
	latencies := make([]time.Duration, 0, *ops)
	phaseStart := time.Now()
	for i := 0; i < *ops; i++ {
		done := make(chan struct{})
		token := goBiometric.NewCapabilityToken()
		start := time.Now()
		err := broker.Authenticate(token, uint64(i), 0, &signalClient{done: done}, opts,
			"com.example.loadtest", goBiometric.CallingIdentity{UID: 1000})
		if err != nil {
			fmt.Fprintf(os.Stderr, "authenticate failed at op %d: %v\n", i, err)
			os.Exit(1)
		}
		<-done
		latencies = append(latencies, time.Since(start))
		token.Close()
	}
	authElapsed := time.Since(phaseStart)

	// ---------- phase 2: concurrent availability queries ----------
	perWorker := *queries / *concurrency
	var wg sync.WaitGroup
	queryStart := time.Now()
	for w := 0; w < *concurrency; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < perWorker; i++ {
				if _, err := broker.CanAuthenticate(0); err != nil {
					fmt.Fprintf(os.Stderr, "query failed: %v\n", err)
					return
				}
			}
		}()
	}
	wg.Wait()
	queryElapsed := time.Since(queryStart)

	sort.Slice(latencies, func(i, j int) bool { return latencies[i] < latencies[j] })
	fmt.Printf("auth round trips: %d in %v (%.0f op/s)\n",
		*ops, authElapsed.Round(time.Millisecond), float64(*ops)/authElapsed.Seconds())
	fmt.Printf("  p50=%v p95=%v p99=%v max=%v\n",
		percentile(latencies, 0.50), percentile(latencies, 0.95),
		percentile(latencies, 0.99), latencies[len(latencies)-1])
	totalQueries := perWorker * *concurrency
	fmt.Printf("availability queries: %d in %v (%.0f op/s, %d workers)\n",
		totalQueries, queryElapsed.Round(time.Millisecond),
		float64(totalQueries)/queryElapsed.Seconds(), *concurrency)

	snap := broker.MetricsSnapshot()
	fmt.Printf("counters: requested=%d started=%d succeeded=%d rejected=%d\n",
		snap.Counters[goBiometric.MetricAuthRequested],
		snap.Counters[goBiometric.MetricAuthStarted],
		snap.Counters[goBiometric.MetricAuthSucceeded],
		snap.Counters[goBiometric.MetricAuthRejected])
}

func percentile(sorted []time.Duration, q float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(q * float64(len(sorted)-1))
	return sorted[idx]
}

// instantProvider acks readiness and recognizes the finger as soon as the
// prepared client starts.
type instantProvider struct {
	mu       sync.Mutex
	prepared map[goBiometric.Cookie]goBiometric.PrepareRequest
}

func (p *instantProvider) IsHardwareDetected() bool { return true }

func (p *instantProvider) HasEnrolledTemplates(int) bool { return true }

func (p *instantProvider) SetActiveUser(int) {}

func (p *instantProvider) PrepareForAuthentication(req goBiometric.PrepareRequest) error {
	p.mu.Lock()
	if p.prepared == nil {
		p.prepared = make(map[goBiometric.Cookie]goBiometric.PrepareRequest)
	}
	p.prepared[req.Cookie] = req
	p.mu.Unlock()

	go req.Receiver.OnReadyForAuthentication(req.Cookie, req.RequireConfirmation, req.UserID)
	return nil
}

func (p *instantProvider) StartPreparedClient(cookie goBiometric.Cookie) error {
	p.mu.Lock()
	req, ok := p.prepared[cookie]
	delete(p.prepared, cookie)
	p.mu.Unlock()
	if !ok {
		return fmt.Errorf("no prepared client for cookie %d", cookie)
	}

	go req.Receiver.OnAuthenticationSucceeded([]byte("match"))
	return nil
}

func (p *instantProvider) CancelAuthenticationFromService(*goBiometric.CapabilityToken, string, goBiometric.CallingIdentity, bool) error {
	return nil
}

func (p *instantProvider) ResetLockout([]byte) error { return nil }

func (p *instantProvider) ErrorString(code goBiometric.ErrorCode, _ int) string {
	return code.String()
}

type silentPrompt struct{}

func (silentPrompt) ShowPrompt(goBiometric.Options, modality.Modality, bool, int, goBiometric.PromptEvents) error {
	return nil
}

func (silentPrompt) HidePrompt() error { return nil }

func (silentPrompt) OnAuthenticationResult(bool, string, bool) error { return nil }

func (silentPrompt) OnHelp(string) error { return nil }

func (silentPrompt) OnError(string) error { return nil }

type discardStore struct{}

func (discardStore) AddAuthToken([]byte) error { return nil }

// signalClient closes done on the first terminal outcome.
type signalClient struct {
	once sync.Once
	done chan struct{}
}

func (c *signalClient) OnAuthenticationSucceeded() error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *signalClient) OnAuthenticationFailed() error { return nil }

func (c *signalClient) OnError(goBiometric.ErrorCode, string) error {
	c.once.Do(func() { close(c.done) })
	return nil
}

func (c *signalClient) OnDialogDismissed(goBiometric.DismissReason) error { return nil }
