package goBiometric

import (
	"time"

	"github.com/rs/zerolog"

	"github.com/MrEthical07/goBiometric/internal/handshake"
	"github.com/MrEthical07/goBiometric/modality"
	"github.com/MrEthical07/goBiometric/proof"
	"github.com/MrEthical07/goBiometric/settings"
)

// brokerState is everything the dispatch loop owns. Nothing in here is
// touched from outside the loop, so no field needs a lock.
type brokerState struct {
	cfg      *Config
	registry *registry
	mirror   *settings.Mirror
	prompt   PromptSurface
	tasks    TaskStackWatcher
	creds    CredentialStore
	fallback DeviceCredentialLauncher
	proofs   *proof.Manager
	metrics  *Metrics
	audit    *auditDispatcher
	log      zerolog.Logger
	now      func() time.Time

	postDelayed func(d time.Duration, ev event)
	watchToken  func(t *CapabilityToken)

	// recv, gestures and taskListener are the broker's inbound adapters,
	// handed to providers, the prompt surface and the task watcher.
	recv         ProviderReceiver
	gestures     PromptEvents
	taskListener TaskStackListener

	// current is the attempt the user interacts with; pending is a
	// replacement still completing its readiness handshake.
	current *authAttempt
	pending *authAttempt

	// fallbackSink receives the outcome of an in-flight device-credential
	// flow. At most one fallback flow exists at a time.
	fallbackSink   ClientCallback
	fallbackToken  *CapabilityToken
	fallbackCancel FallbackCancel

	taskListenerOn bool
}

// handle is the single entry point for every event.
func (s *brokerState) handle(ev event) {
	switch e := ev.(type) {
	case evAuthenticate:
		s.handleAuthenticate(e)
	case evCancel:
		s.handleCancel(e)
	case evReady:
		s.handleReady(e)
	case evSucceeded:
		s.handleSucceeded(e)
	case evFailed:
		s.handleFailed()
	case evError:
		s.handleError(e)
	case evDeferredError:
		s.handleDeferredError(e)
	case evAcquired:
		s.handleAcquired(e)
	case evDismissed:
		s.handleDismissed(e)
	case evTryAgain:
		s.handleTryAgain()
	case evTaskStackChanged:
		s.handleTaskStackChanged()
	case evFallbackSuccess:
		s.handleFallbackSuccess()
	case evFallbackError:
		s.handleFallbackError(e)
	case evRegisterCancel:
		s.fallbackCancel = e.cancel
	case evSetActiveUser:
		s.handleSetActiveUser(e)
	case evSettingChanged:
		s.mirror.Refresh(e.flag, e.userID)
	case evCallerVanished:
		s.handleCallerVanished(e)
	case evRegisterKeyguardCallback:
		s.handleRegisterKeyguardCallback(e)
	case evResetLockout:
		e.reply <- s.handleResetLockout(e)
	case evCanAuthenticate:
		e.reply <- s.registry.resolve(e.userID, s.mirror).code
	case evHasEnrolled:
		e.reply <- s.hasEnrolled(e.userID, e.mask)
	default:
		s.log.Warn().Msgf("broker: dropping unknown event %T", ev)
	}
}

// ==== ADMISSION ====

func (s *brokerState) handleAuthenticate(ev evAuthenticate) {
	if ev.opts.AllowDeviceCredential {
		s.launchFallback(ev)
		return
	}
	s.authenticateInternal(ev)
}

// authenticateInternal admits one biometric attempt: resolves the eligible
// modality set, runs the per-modality readiness handshake and parks the
// attempt as pending until every cookie comes back.
func (s *brokerState) authenticateInternal(ev evAuthenticate) {
	res := s.registry.resolve(ev.userID, s.mirror)
	if res.code != CodeNone {
		msg := res.code.String()
		if res.code == CodeNoBiometrics && res.firstDetected != modality.None {
			if p, ok := s.registry.get(res.firstDetected); ok {
				msg = p.ErrorString(CodeNoBiometrics, 0)
			}
		}
		s.metrics.Inc(MetricAuthRejected)
		s.deliverError(ev.client, res.code, msg)
		s.emitAudit("auth.rejected", nil, ev.userID, ev.callerPackage, modality.None, res.code, false)
		return
	}

	if ev.opts.Title == "" && ev.opts.UseDefaultTitle {
		ev.opts.Title = s.cfg.Prompt.DefaultTitle
	}

	requireConfirmation := true
	if ev.opts.Confirmation == ConfirmationSkip {
		requireConfirmation = false
		if res.mask.Has(modality.Face) && s.mirror.FaceAlwaysRequireConfirmation(ev.userID) {
			requireConfirmation = true
		}
	}

	s.admit(ev, res.mask, requireConfirmation)
}

// admit runs the readiness handshake for an already-resolved modality set.
// The try-again path enters here directly: eligibility is decided once at
// admission and the mask is never recomputed afterwards.
func (s *brokerState) admit(ev evAuthenticate, mask modality.Modality, requireConfirmation bool) {
	// A second request while one is still in its handshake wins the slot.
	// The displaced attempt resolves as canceled, never silently.
	if s.pending != nil {
		s.deliverError(s.pending.client, CodeCanceled, ErrCanceled.Error())
		s.cancelProviders(s.pending, false)
		s.emitAudit("auth.canceled", s.pending, s.pending.userID, s.pending.callerPackage, s.pending.mask, CodeCanceled, false)
		s.pending = nil
	}
	// Same rule for an active attempt, except a paused one: promotion treats
	// the paused slot as a try-again continuation and leaves its prompt up.
	if s.current != nil && s.current.state != statePaused {
		s.displaceCurrent()
	}

	attempt := newAuthAttempt(ev, mask, requireConfirmation, s.now())
	for _, m := range modality.Order {
		if !mask.Has(m) {
			continue
		}
		p, ok := s.registry.get(m)
		if !ok {
			continue
		}
		cookie, err := handshake.NewCookie()
		if err != nil {
			s.log.Error().Err(err).Msg("broker: cookie generation failed")
			attempt.mask = attempt.mask &^ m
			continue
		}
		err = p.PrepareForAuthentication(PrepareRequest{
			Cookie:              cookie,
			Token:               ev.token,
			CryptoSessionID:     ev.cryptoSessionID,
			UserID:              ev.userID,
			CallerPackage:       ev.callerPackage,
			Calling:             ev.calling,
			RequireConfirmation: requireConfirmation,
			Receiver:            s.recv,
		})
		if err != nil {
			s.log.Warn().Err(err).Str("modality", m.String()).Msg("broker: provider refused preparation")
			attempt.mask = attempt.mask &^ m
			continue
		}
		attempt.cookies.Add(m, cookie)
	}
	if attempt.mask == modality.None {
		s.metrics.Inc(MetricAuthRejected)
		s.deliverError(ev.client, CodeHardwareUnavailable, ErrHardwareUnavailable.Error())
		return
	}

	s.pending = attempt
	if s.watchToken != nil && ev.token != nil {
		s.watchToken(ev.token)
	}
	s.metrics.Inc(MetricAuthRequested)
	s.emitAudit("auth.requested", attempt, ev.userID, ev.callerPackage, attempt.mask, CodeNone, false)
}

// displaceCurrent resolves the active attempt as canceled so a new one can
// take the slot. An attempt parked behind the credential surface already
// resolved; it only needs clearing.
func (s *brokerState) displaceCurrent() {
	a := s.current
	s.current = nil
	if a.state == stateShowingFallback {
		return
	}
	s.deliverError(a.client, CodeCanceled, ErrCanceled.Error())
	s.hidePrompt()
	s.unregisterTaskListener()
	s.cancelProviders(a, false)
	s.metrics.Inc(MetricAuthCanceled)
	s.emitAudit("auth.canceled", a, a.userID, a.callerPackage, a.mask, CodeCanceled, false)
}

// ==== READINESS ====

func (s *brokerState) handleReady(ev evReady) {
	if s.pending == nil || !s.pending.cookies.Contains(ev.cookie) {
		s.log.Debug().Uint32("cookie", uint32(ev.cookie)).Msg("broker: stale readiness ack")
		return
	}
	m, ok := s.pending.cookies.Match(ev.cookie)
	if !ok {
		// Duplicate ack; the first one already counted.
		return
	}
	s.log.Debug().Str("modality", m.String()).Msg("broker: modality ready")

	// Confirmation hints only ratchet upward.
	if ev.requireConfirmation {
		s.pending.requireConfirmation = true
	}
	if !s.pending.cookies.Done() {
		return
	}
	s.promotePending()
}

// promotePending moves the fully-acked pending attempt into the current
// slot and opens the prompt. A paused current attempt means this promotion
// is a try-again continuation: the prompt is already up and stays up.
func (s *brokerState) promotePending() {
	continuing := s.current != nil && s.current.state == statePaused

	attempt := s.pending
	s.pending = nil
	attempt.cookies.Matched(func(m modality.Modality, c handshake.Cookie) {
		p, ok := s.registry.get(m)
		if !ok {
			return
		}
		if err := p.StartPreparedClient(c); err != nil {
			s.log.Warn().Err(err).Str("modality", m.String()).Msg("broker: start prepared client failed")
		}
	})
	s.current = attempt
	s.current.state = stateStarted
	s.metrics.Inc(MetricAuthStarted)
	s.emitAudit("auth.started", attempt, attempt.userID, attempt.callerPackage, attempt.mask, CodeNone, false)

	if continuing {
		return
	}
	if err := s.prompt.ShowPrompt(attempt.opts, attempt.mask, attempt.requireConfirmation, attempt.userID, s.gestures); err != nil {
		s.log.Error().Err(err).Msg("broker: prompt failed to show")
		s.deliverError(attempt.client, CodeHardwareUnavailable, ErrHardwareUnavailable.Error())
		s.cancelProviders(attempt, false)
		s.current = nil
		return
	}
	s.registerTaskListener()
}

// ==== OUTCOMES ====

func (s *brokerState) handleSucceeded(ev evSucceeded) {
	if s.current == nil || s.current.state != stateStarted {
		s.log.Debug().Msg("broker: dropping success with no started attempt")
		return
	}
	a := s.current

	var proofToken []byte
	if s.proofs != nil {
		tok, err := s.proofs.Issue(a.userID, a.token.ID(), a.cryptoSessionID, a.mask, ev.evidence, s.now())
		if err != nil {
			s.log.Error().Err(err).Msg("broker: proof issuance failed")
		} else {
			proofToken = tok
		}
	}

	if err := s.prompt.OnAuthenticationResult(true, "", a.requireConfirmation); err != nil {
		s.log.Warn().Err(err).Msg("broker: prompt result delivery failed")
	}

	if a.requireConfirmation {
		a.escrow = proofToken
		a.authenticatedTime = s.now()
		a.state = statePendingConfirm
		s.metrics.Inc(MetricAuthSucceeded)
		s.emitAudit("auth.recognized", a, a.userID, a.callerPackage, a.mask, CodeNone, true)
		return
	}

	s.releaseToken(proofToken)
	if err := a.client.OnAuthenticationSucceeded(); err != nil {
		s.log.Warn().Err(err).Msg("broker: success delivery failed")
	}
	s.unregisterTaskListener()
	s.metrics.Inc(MetricAuthSucceeded)
	s.metrics.Observe(MetricAuthLatency, s.now().Sub(a.startTime))
	s.emitAudit("auth.succeeded", a, a.userID, a.callerPackage, a.mask, CodeNone, true)
	s.cancelProviders(a, false)
	s.current = nil
}

func (s *brokerState) handleFailed() {
	if s.current == nil || (s.current.state != stateStarted && s.current.state != statePaused) {
		return
	}
	a := s.current
	if err := s.prompt.OnAuthenticationResult(false, "not recognized", a.requireConfirmation); err != nil {
		s.log.Warn().Err(err).Msg("broker: prompt result delivery failed")
	}
	// Passive modalities stop sensing after a miss; the prompt offers a
	// try-again affordance and the attempt parks until the user takes it.
	if a.passive() {
		a.state = statePaused
	}
	if err := a.client.OnAuthenticationFailed(); err != nil {
		s.log.Warn().Err(err).Msg("broker: failure delivery failed")
	}
	s.metrics.Inc(MetricAuthFailed)
}

func (s *brokerState) handleError(ev evError) {
	msg := ev.message
	if msg == "" {
		msg = ev.code.String()
	}

	switch {
	case s.current != nil && s.current.ownsCookie(ev.cookie):
		s.errorOnCurrent(ev.code, msg)
	case s.pending != nil && s.pending.ownsCookie(ev.cookie):
		// An attempt that errors before its handshake completes fails
		// outright; partial readiness never promotes.
		a := s.pending
		s.pending = nil
		s.deliverError(a.client, ev.code, msg)
		s.cancelProviders(a, false)
		s.emitAudit("auth.error", a, a.userID, a.callerPackage, a.mask, ev.code, false)
	default:
		s.log.Debug().Uint32("cookie", uint32(ev.cookie)).Int("code", int(ev.code)).Msg("broker: stale provider error")
	}
}

func (s *brokerState) errorOnCurrent(code ErrorCode, msg string) {
	a := s.current
	if code == CodeLockout || code == CodeLockoutPermanent {
		s.metrics.Inc(MetricLockout)
	} else {
		s.metrics.Inc(MetricHardwareError)
	}

	if a.opts.FromDeviceCredential {
		// The credential surface hosts this attempt; hand the error over
		// and leave the slot parked so foreground changes stay exempt.
		s.deliverError(a.client, code, msg)
		s.hidePrompt()
		a.state = stateShowingFallback
		s.emitAudit("auth.error", a, a.userID, a.callerPackage, a.mask, code, false)
		return
	}

	switch a.state {
	case stateStarted:
		if code == CodeCanceled {
			s.deliverError(a.client, code, msg)
			s.hidePrompt()
			s.unregisterTaskListener()
			s.metrics.Inc(MetricAuthCanceled)
			s.emitAudit("auth.canceled", a, a.userID, a.callerPackage, a.mask, code, false)
			s.current = nil
			return
		}
		// Hard error: let the prompt display it, then deliver after the
		// hide-dialog delay so the user sees why the prompt went away.
		if err := s.prompt.OnError(msg); err != nil {
			s.log.Warn().Err(err).Msg("broker: prompt error delivery failed")
		}
		s.postDelayed(s.cfg.Prompt.HideDialogDelay, evDeferredError{code: code, message: msg})
		s.emitAudit("auth.error", a, a.userID, a.callerPackage, a.mask, code, false)
	case statePaused, statePendingConfirm:
		s.deliverError(a.client, code, msg)
		s.hidePrompt()
		s.unregisterTaskListener()
		s.emitAudit("auth.error", a, a.userID, a.callerPackage, a.mask, code, false)
		s.current = nil
	default:
		s.log.Debug().Str("state", a.state.String()).Msg("broker: error in unexpected state")
	}
}

func (s *brokerState) handleDeferredError(ev evDeferredError) {
	if s.current == nil || s.current.state != stateStarted {
		return
	}
	a := s.current
	s.deliverError(a.client, ev.code, ev.message)
	s.hidePrompt()
	s.unregisterTaskListener()
	s.current = nil
}

func (s *brokerState) handleAcquired(ev evAcquired) {
	if s.current == nil || s.current.state != stateStarted {
		return
	}
	if ev.info == AcquiredGood {
		// Clears any help text still showing.
		if err := s.prompt.OnHelp(""); err != nil {
			s.log.Warn().Err(err).Msg("broker: prompt help delivery failed")
		}
		return
	}
	if ev.message == "" {
		return
	}
	if err := s.prompt.OnHelp(ev.message); err != nil {
		s.log.Warn().Err(err).Msg("broker: prompt help delivery failed")
	}
}

// ==== PROMPT GESTURES ====

func (s *brokerState) handleDismissed(ev evDismissed) {
	if s.current == nil {
		s.log.Debug().Str("reason", ev.reason.String()).Msg("broker: stale prompt dismissal")
		return
	}
	a := s.current
	s.emitAudit("prompt.dismissed", a, a.userID, a.callerPackage, a.mask, CodeNone, ev.reason == DismissPositive)

	switch ev.reason {
	case DismissPositive:
		if a.state != statePendingConfirm {
			s.log.Warn().Str("state", a.state.String()).Msg("broker: confirm tap outside pending confirmation")
			return
		}
		s.releaseToken(a.escrow)
		a.escrow = nil
		if err := a.client.OnAuthenticationSucceeded(); err != nil {
			s.log.Warn().Err(err).Msg("broker: success delivery failed")
		}
		s.metrics.Inc(MetricAuthConfirmed)
		s.metrics.Observe(MetricAuthLatency, s.now().Sub(a.startTime))
		s.metrics.Observe(MetricConfirmLatency, s.now().Sub(a.authenticatedTime))
		s.emitAudit("auth.confirmed", a, a.userID, a.callerPackage, a.mask, CodeNone, true)
	case DismissNegative:
		if err := a.client.OnDialogDismissed(DismissNegative); err != nil {
			s.log.Warn().Err(err).Msg("broker: dismissal delivery failed")
		}
		s.metrics.Inc(MetricNegativeButton)
	case DismissUserCancel:
		if err := a.client.OnDialogDismissed(DismissUserCancel); err != nil {
			s.log.Warn().Err(err).Msg("broker: dismissal delivery failed")
		}
		s.deliverError(a.client, CodeUserCanceled, ErrUserCanceled.Error())
		s.metrics.Inc(MetricUserCanceled)
	}

	s.cancelProviders(a, false)
	s.unregisterTaskListener()
	if a.opts.FromDeviceCredential && ev.reason != DismissPositive {
		a.state = stateShowingFallback
		return
	}
	s.current = nil
}

func (s *brokerState) handleTryAgain() {
	if s.current == nil || s.current.state != statePaused {
		return
	}
	a := s.current
	s.metrics.Inc(MetricTryAgain)
	// Re-admit under the same caller identity, on the modality set frozen at
	// the original admission. Enrollment or settings changes made while the
	// prompt sat paused do not apply to the retry. The paused attempt stays
	// in the slot so the promotion knows the prompt is already showing.
	s.admit(evAuthenticate{
		token:           a.token,
		cryptoSessionID: a.cryptoSessionID,
		userID:          a.userID,
		client:          a.client,
		opts:            a.opts,
		callerPackage:   a.callerPackage,
		calling:         a.calling,
	}, a.mask, a.requireConfirmation)
}

// ==== FOREGROUND TRACKING ====

func (s *brokerState) handleTaskStackChanged() {
	if s.current == nil || s.current.state == stateShowingFallback || s.current.opts.FromDeviceCredential {
		return
	}
	if s.tasks == nil {
		return
	}
	top, err := s.tasks.ForegroundPackage()
	if err != nil {
		s.log.Warn().Err(err).Msg("broker: foreground query failed")
		return
	}
	if top == "" || top == s.current.callerPackage {
		return
	}
	a := s.current
	s.log.Info().Str("caller", a.callerPackage).Str("foreground", top).Msg("broker: caller lost foreground, canceling")
	s.hidePrompt()
	s.unregisterTaskListener()
	s.deliverError(a.client, CodeCanceled, ErrCanceled.Error())
	s.cancelProviders(a, false)
	s.metrics.Inc(MetricTaskSwitchCancel)
	s.emitAudit("auth.canceled", a, a.userID, a.callerPackage, a.mask, CodeCanceled, false)
	s.current = nil
}

// ==== CANCELLATION ====

func (s *brokerState) handleCancel(ev evCancel) {
	switch {
	case s.current != nil && s.current.state == stateShowingFallback:
		// The attempt already resolved when it parked behind the
		// credential surface; canceling now only tears that surface down.
		s.invokeFallbackCancel()
		s.current = nil
		s.clearFallback()
	case s.current != nil && s.current.state != stateStarted:
		// Only a started attempt has a provider actively sensing whose
		// cancellation error will arrive; every other state synthesizes
		// the cancellation itself. A pending confirmation drops its
		// escrowed proof token here.
		a := s.current
		a.escrow = nil
		s.deliverError(a.client, CodeCanceled, ErrCanceled.Error())
		s.hidePrompt()
		s.unregisterTaskListener()
		s.cancelProviders(a, !ev.fromFallback)
		s.metrics.Inc(MetricAuthCanceled)
		s.emitAudit("auth.canceled", a, a.userID, a.callerPackage, a.mask, CodeCanceled, false)
		s.current = nil
	case s.current == nil && s.pending != nil:
		a := s.pending
		s.pending = nil
		s.deliverError(a.client, CodeCanceled, ErrCanceled.Error())
		s.cancelProviders(a, !ev.fromFallback)
		s.metrics.Inc(MetricAuthCanceled)
		s.emitAudit("auth.canceled", a, a.userID, a.callerPackage, a.mask, CodeCanceled, false)
	case s.current != nil:
		// Started: ask the providers to stop and let their cancellation
		// error drive the teardown.
		s.cancelProviders(s.current, !ev.fromFallback)
	default:
		s.log.Debug().Msg("broker: cancel with nothing in flight")
	}
}

func (s *brokerState) handleCallerVanished(ev evCallerVanished) {
	switch {
	case s.fallbackToken == ev.token && s.fallbackSink != nil:
		s.invokeFallbackCancel()
		s.clearFallback()
	case s.current != nil && s.current.token == ev.token:
		s.handleCancel(evCancel{token: ev.token, callerPackage: s.current.callerPackage, calling: s.current.calling})
	case s.pending != nil && s.pending.token == ev.token:
		a := s.pending
		s.pending = nil
		s.cancelProviders(a, false)
	}
}

// cancelProviders fans a cancellation over every provider the attempt
// touched. Provider errors are logged, not propagated; the attempt's fate
// is already decided by the caller.
func (s *brokerState) cancelProviders(a *authAttempt, fromClient bool) {
	for _, m := range modality.Order {
		if !a.mask.Has(m) {
			continue
		}
		p, ok := s.registry.get(m)
		if !ok {
			continue
		}
		if err := p.CancelAuthenticationFromService(a.token, a.callerPackage, a.calling, fromClient); err != nil {
			s.log.Warn().Err(err).Str("modality", m.String()).Msg("broker: provider cancel failed")
		}
	}
}

// ==== DEVICE-CREDENTIAL FALLBACK ====

func (s *brokerState) launchFallback(ev evAuthenticate) {
	if s.fallback == nil || !s.fallback.IsCredentialConfigured(ev.userID) {
		s.metrics.Inc(MetricAuthRejected)
		s.deliverError(ev.client, CodeNoDeviceCredential, ErrNoDeviceCredential.Error())
		return
	}
	if s.fallbackSink != nil {
		// One fallback flow at a time; the displaced caller resolves as
		// canceled just like a displaced pending attempt.
		s.deliverError(s.fallbackSink, CodeCanceled, ErrCanceled.Error())
	}
	s.fallbackSink = ev.client
	s.fallbackToken = ev.token
	s.fallbackCancel = nil
	if s.watchToken != nil && ev.token != nil {
		s.watchToken(ev.token)
	}
	if err := s.fallback.Launch(ev.userID, ev.opts); err != nil {
		s.log.Error().Err(err).Msg("broker: credential fallback launch failed")
		s.deliverError(ev.client, CodeUnableToProcess, err.Error())
		s.clearFallback()
		return
	}
	s.metrics.Inc(MetricFallbackLaunched)
	s.emitAudit("fallback.launched", nil, ev.userID, ev.callerPackage, modality.None, CodeNone, false)
}

func (s *brokerState) handleFallbackSuccess() {
	if s.fallbackSink == nil {
		s.log.Debug().Msg("broker: fallback success with no sink")
		return
	}
	if err := s.fallbackSink.OnAuthenticationSucceeded(); err != nil {
		s.log.Warn().Err(err).Msg("broker: fallback success delivery failed")
	}
	s.metrics.Inc(MetricFallbackSucceeded)
	s.clearFallback()
	if s.current != nil && s.current.state == stateShowingFallback {
		s.current = nil
	}
}

func (s *brokerState) handleFallbackError(ev evFallbackError) {
	if s.fallbackSink == nil {
		s.log.Debug().Msg("broker: fallback error with no sink")
		return
	}
	msg := ev.message
	if msg == "" {
		msg = ev.code.String()
	}
	s.deliverError(s.fallbackSink, ev.code, msg)
	s.metrics.Inc(MetricFallbackError)
	s.clearFallback()
	if s.current != nil && s.current.state == stateShowingFallback {
		s.current = nil
	}
}

func (s *brokerState) invokeFallbackCancel() {
	if s.fallbackCancel == nil {
		return
	}
	if err := s.fallbackCancel(); err != nil {
		s.log.Warn().Err(err).Msg("broker: fallback cancel failed")
	}
}

func (s *brokerState) clearFallback() {
	s.fallbackSink = nil
	s.fallbackToken = nil
	s.fallbackCancel = nil
}

// ==== USERS, SETTINGS, LOCKOUT ====

func (s *brokerState) handleSetActiveUser(ev evSetActiveUser) {
	s.registry.each(func(_ modality.Modality, p Provider) {
		p.SetActiveUser(ev.userID)
	})
	s.mirror.OnUserSwitch(ev.userID)
}

func (s *brokerState) handleRegisterKeyguardCallback(ev evRegisterKeyguardCallback) {
	userID := s.mirror.ActiveUser()
	if err := ev.cb.OnChanged(s.mirror.FaceEnabledOnKeyguard(userID), userID); err != nil {
		s.log.Warn().Err(err).Msg("broker: keyguard callback initial delivery failed, not registering")
		return
	}
	s.mirror.Subscribe(ev.cb)
}

func (s *brokerState) handleResetLockout(ev evResetLockout) error {
	claims, err := s.proofs.Verify(ev.proofToken)
	if err != nil {
		return err
	}
	target := modality.Modality(claims.Modality)
	var lastErr error
	s.registry.each(func(m modality.Modality, p Provider) {
		if target != modality.None && !target.Has(m) {
			return
		}
		if err := p.ResetLockout(ev.proofToken); err != nil {
			s.log.Warn().Err(err).Str("modality", m.String()).Msg("broker: lockout reset failed")
			lastErr = err
		}
	})
	return lastErr
}

func (s *brokerState) hasEnrolled(userID int, mask modality.Modality) bool {
	found := false
	s.registry.each(func(m modality.Modality, p Provider) {
		if found || (mask != modality.None && !mask.Has(m)) {
			return
		}
		if p.IsHardwareDetected() && p.HasEnrolledTemplates(userID) {
			found = true
		}
	})
	return found
}

// ==== SHARED HELPERS ====

func (s *brokerState) deliverError(cb ClientCallback, code ErrorCode, msg string) {
	if cb == nil {
		return
	}
	if err := cb.OnError(code, msg); err != nil {
		s.log.Warn().Err(err).Int("code", int(code)).Msg("broker: error delivery failed")
	}
}

func (s *brokerState) hidePrompt() {
	if err := s.prompt.HidePrompt(); err != nil {
		s.log.Warn().Err(err).Msg("broker: prompt hide failed")
	}
}

func (s *brokerState) registerTaskListener() {
	if s.tasks == nil || s.taskListenerOn {
		return
	}
	if err := s.tasks.Register(s.taskListener); err != nil {
		s.log.Warn().Err(err).Msg("broker: task listener registration failed")
		return
	}
	s.taskListenerOn = true
}

func (s *brokerState) unregisterTaskListener() {
	if s.tasks == nil || !s.taskListenerOn {
		return
	}
	if err := s.tasks.Unregister(s.taskListener); err != nil {
		s.log.Warn().Err(err).Msg("broker: task listener removal failed")
	}
	s.taskListenerOn = false
}

func (s *brokerState) releaseToken(tok []byte) {
	if s.creds == nil || len(tok) == 0 {
		return
	}
	if err := s.creds.AddAuthToken(tok); err != nil {
		s.log.Error().Err(err).Msg("broker: credential store rejected proof token")
	}
}

func (s *brokerState) emitAudit(eventType string, a *authAttempt, userID int, caller string, mask modality.Modality, code ErrorCode, success bool) {
	if s.audit == nil {
		return
	}
	ev := AuditEvent{
		Timestamp:     s.now(),
		EventType:     eventType,
		UserID:        userID,
		CallerPackage: caller,
		Modality:      mask.String(),
		ErrorCode:     int(code),
		Success:       success,
	}
	if a != nil {
		ev.AttemptID = a.attemptID
		if !a.startTime.IsZero() {
			ev.LatencyMS = s.now().Sub(a.startTime).Milliseconds()
		}
	}
	s.audit.Emit(ev)
}
