package provision

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/lumina-home/provision-go/pkg/discovery"
	"github.com/lumina-home/provision-go/pkg/registry"
	"github.com/lumina-home/provision-go/pkg/transport"
	"github.com/lumina-home/provision-go/pkg/verify"
)

// opEvent is what ended a suspension point.
type opEvent uint8

const (
	evElapsed opEvent = iota
	evManual
	evForce
	evCancel
)

// verdict is the outcome of a candidate verification leg.
type verdict uint8

const (
	// vContinue - candidate did not pan out, keep going.
	vContinue verdict = iota

	// vDone - the session reached Succeeded or PersistFailed.
	vDone

	// vCancelled - the session was cancelled mid-verification.
	vCancelled
)

// Session drives one provisioning attempt for one controller. A session is
// single-use: create, Start, feed operator input, observe Snapshots. All
// methods are safe for concurrent use; the pipeline itself runs as one
// sequential goroutine.
type Session struct {
	cfg    Config
	logger *zap.Logger

	mu            sync.Mutex
	snap          Snapshot
	pub           publisher
	started       bool
	loopDone      bool
	tr            transport.Transport
	creds         transport.Credentials
	haveCreds     bool
	pending       registry.Record
	pendingForced bool
	hasPending    bool
	runCancel     context.CancelFunc

	credCh     chan transport.Credentials
	manualCh   chan string
	forceCh    chan string
	cancelCh   chan struct{}
	cancelOnce sync.Once
	doneCh     chan struct{}
}

// New creates a session. Dial, Finder, Prober and Store are required; zero
// policy knobs fall back to DefaultConfig values.
func New(cfg Config) (*Session, error) {
	switch {
	case cfg.Dial == nil:
		return nil, fmt.Errorf("%w: Dial is required", ErrInvalidConfig)
	case cfg.Finder == nil:
		return nil, fmt.Errorf("%w: Finder is required", ErrInvalidConfig)
	case cfg.Prober == nil:
		return nil, fmt.Errorf("%w: Prober is required", ErrInvalidConfig)
	case cfg.Store == nil:
		return nil, fmt.Errorf("%w: Store is required", ErrInvalidConfig)
	}

	def := DefaultConfig()
	if cfg.CredentialAttempts <= 0 {
		cfg.CredentialAttempts = def.CredentialAttempts
	}
	if cfg.SettleDelay <= 0 {
		cfg.SettleDelay = def.SettleDelay
	}
	if cfg.DiscoveryAttempts <= 0 {
		cfg.DiscoveryAttempts = def.DiscoveryAttempts
	}
	if cfg.DiscoveryWindow <= 0 {
		cfg.DiscoveryWindow = def.DiscoveryWindow
	}
	if len(cfg.DiscoveryRetryWaits) == 0 {
		cfg.DiscoveryRetryWaits = def.DiscoveryRetryWaits
	}
	if cfg.ManualVerifyAttempts <= 0 {
		cfg.ManualVerifyAttempts = def.ManualVerifyAttempts
	}
	if cfg.ManualVerifyDelay <= 0 {
		cfg.ManualVerifyDelay = def.ManualVerifyDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	now := time.Now()
	s := &Session{
		cfg:    cfg,
		logger: cfg.Logger,
		snap: Snapshot{
			SessionID: uuid.New(),
			State:     StateIdle,
			StartedAt: now,
			UpdatedAt: now,
		},
		credCh:   make(chan transport.Credentials, 1),
		manualCh: make(chan string, 1),
		forceCh:  make(chan string, 1),
		cancelCh: make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
	return s, nil
}

// ID returns the session identifier.
func (s *Session) ID() uuid.UUID {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap.SessionID
}

// Snapshot returns the current session snapshot.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snap
}

// Snapshots subscribes to the session's state stream. The first delivery is
// the current snapshot; the channel closes when the session reaches a
// terminal state.
func (s *Session) Snapshots() <-chan Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pub.subscribe(s.snap)
}

// Done closes when the session pipeline has finished running. After Done,
// the session is terminal or in StatePersistFailed.
func (s *Session) Done() <-chan struct{} {
	return s.doneCh
}

// Start launches the session pipeline. ctx bounds the whole attempt; its
// cancellation is treated like operator cancellation.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.started {
		s.mu.Unlock()
		return ErrAlreadyStarted
	}
	s.started = true
	runCtx, cancel := context.WithCancel(ctx)
	s.runCancel = cancel
	s.mu.Unlock()

	s.cfg.Metrics.incStarted()
	go s.run(runCtx)
	return nil
}

// SubmitCredentials hands the operator's credentials to the session. Valid
// only in StateConnected.
func (s *Session) SubmitCredentials(creds transport.Credentials) error {
	s.mu.Lock()
	state := s.snap.State
	started := s.started
	s.mu.Unlock()

	if !started {
		return ErrNotStarted
	}
	if state != StateConnected {
		return fmt.Errorf("%w: %s", ErrInvalidState, state)
	}

	select {
	case s.credCh <- creds:
		return nil
	default:
		return ErrInputPending
	}
}

// SubmitManualAddress short-circuits discovery with an operator-supplied
// address. Valid any time after credentials have been delivered.
func (s *Session) SubmitManualAddress(address string) error {
	if address == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidState)
	}

	s.mu.Lock()
	state := s.snap.State
	s.mu.Unlock()

	switch state {
	case StateAwaitingReboot, StateDiscovering, StateVerifying, StateManualFallback:
	default:
		return fmt.Errorf("%w: %s", ErrInvalidState, state)
	}

	select {
	case s.manualCh <- address:
		return nil
	default:
		return ErrInputPending
	}
}

// ForceAccept persists a record for the address without verification. The
// record is flagged unverified and stays distinguishable from a verified
// one. Valid only in StateManualFallback: this is an acknowledged risk
// exception, never a silent skip.
func (s *Session) ForceAccept(address string) error {
	if address == "" {
		return fmt.Errorf("%w: empty address", ErrInvalidState)
	}

	s.mu.Lock()
	state := s.snap.State
	s.mu.Unlock()

	if state != StateManualFallback {
		return fmt.Errorf("%w: %s", ErrInvalidState, state)
	}

	select {
	case s.forceCh <- address:
		return nil
	default:
		return ErrInputPending
	}
}

// Cancel ends the session. The transport link is released and no record is
// persisted. Cancelling a terminal session is a no-op.
func (s *Session) Cancel() {
	s.cancelOnce.Do(func() {
		close(s.cancelCh)

		s.mu.Lock()
		cancel := s.runCancel
		idle := !s.started || s.loopDone
		terminal := s.snap.State.Terminal()
		s.mu.Unlock()

		if cancel != nil {
			cancel()
		}
		// With no pipeline left to observe the signal (not started, or
		// parked in StatePersistFailed), finish here.
		if idle && !terminal {
			s.finishCancelled()
		}
	})
}

// RetryPersist retries the registry write alone, without re-running
// discovery or verification. Valid only in StatePersistFailed.
func (s *Session) RetryPersist(ctx context.Context) error {
	s.mu.Lock()
	if s.snap.State != StatePersistFailed || !s.hasPending {
		state := s.snap.State
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrInvalidState, state)
	}
	rec := s.pending
	forced := s.pendingForced
	s.mu.Unlock()

	if err := s.cfg.Store.Save(ctx, rec); err != nil {
		wrapped := fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
		s.transition(func(sn *Snapshot) {
			sn.LastErr = wrapped
			sn.Message = msgPersistFailed
		})
		return wrapped
	}

	s.succeed(rec, forced)
	return nil
}

// run is the session pipeline: one sequential goroutine from Scanning to a
// terminal state.
func (s *Session) run(ctx context.Context) {
	defer close(s.doneCh)
	defer func() {
		s.mu.Lock()
		s.loopDone = true
		s.mu.Unlock()
	}()

	s.transition(func(sn *Snapshot) {
		sn.State = StateScanning
		sn.Message = msgScanning
	})

	tr, err := s.cfg.Dial(ctx)
	if err != nil {
		if s.interrupted(ctx) {
			s.finishCancelled()
			return
		}
		s.fail(fmt.Errorf("%w: %v", ErrConnectionFailure, err), msgFailedConnection)
		return
	}
	s.mu.Lock()
	s.tr = tr
	s.mu.Unlock()
	s.logger.Info("credential channel established", zap.String("transport", tr.Name()))
	s.transition(func(sn *Snapshot) {
		sn.Transport = tr.Name()
	})

	res, ok := s.credentialPhase(ctx)
	if !ok {
		return
	}

	// The link dies with the device's reboot anyway; release it now so
	// nothing holds the radio while we wait.
	s.closeTransport()

	s.transition(func(sn *Snapshot) {
		sn.State = StateAwaitingReboot
		sn.LastErr = nil
		sn.Message = msgAwaitingReboot
	})

	switch ev, payload := s.wait(ctx, s.cfg.SettleDelay); ev {
	case evCancel:
		s.finishCancelled()
		return
	case evManual:
		s.manualPhase(ctx, payload)
		return
	case evForce:
		s.forcePersist(ctx, payload)
		return
	}

	// A transport that learned the address directly still goes through
	// verification; it just skips the discovery pass first.
	if res.HasAddress() {
		cand := discovery.Candidate{Address: res.Address}
		if v := s.verifyCandidate(ctx, cand); v != vContinue {
			return
		}
		s.logger.Warn("transport-reported address did not verify, falling back to discovery",
			zap.String("address", res.Address))
	}

	s.discoveryPhase(ctx)
}

// credentialPhase runs the Connected/SendingCredentials loop with the
// bounded resubmission budget. Returns false when the session has already
// reached a terminal state.
func (s *Session) credentialPhase(ctx context.Context) (transport.Result, bool) {
	msg := msgEnterCredentials
	var lastErr error

	for attempt := 1; ; attempt++ {
		attempt := attempt
		s.transition(func(sn *Snapshot) {
			sn.State = StateConnected
			sn.CredentialAttempt = attempt
			sn.LastErr = lastErr
			sn.Message = msg
		})

		var creds transport.Credentials
		select {
		case <-ctx.Done():
			s.finishCancelled()
			return transport.Result{}, false
		case <-s.cancelCh:
			s.finishCancelled()
			return transport.Result{}, false
		case creds = <-s.credCh:
		}

		s.mu.Lock()
		s.creds = creds
		s.haveCreds = true
		s.mu.Unlock()

		s.transition(func(sn *Snapshot) {
			sn.State = StateSendingCredentials
			sn.NetworkName = creds.NetworkName()
			sn.Message = msgSending
		})

		res := s.tr.SendCredentials(ctx, creds)
		if res.OK {
			// Channels that need an explicit restart get one, best
			// effort: the device drops the link as it reboots.
			if rb, isRebooter := s.tr.(rebooter); isRebooter {
				if err := rb.Reboot(ctx); err != nil {
					s.logger.Debug("reboot instruction failed", zap.Error(err))
				}
			}
			s.logger.Info("credentials delivered",
				zap.String("network", creds.NetworkName()),
				zap.String("result", res.String()))
			return res, true
		}

		if s.interrupted(ctx) {
			s.finishCancelled()
			return res, false
		}

		s.logger.Warn("credential delivery failed",
			zap.Stringer("reason", res.Reason),
			zap.Int("attempt", attempt),
			zap.Error(res.Err))

		if res.Reason == transport.ReasonProtocol {
			// The device speaks something else; resubmitting the
			// same bytes cannot help.
			s.fail(fmt.Errorf("%w: %v", ErrConnectionFailure, res.Err), msgFailedConnection)
			return res, false
		}
		if res.Reason == transport.ReasonRejected {
			s.cfg.Metrics.incCredentialRejection()
		}

		if attempt >= s.cfg.CredentialAttempts {
			if res.Reason == transport.ReasonRejected {
				s.fail(fmt.Errorf("%w (%d attempts)", ErrCredentialRejected, attempt), msgFailedCredentials)
			} else {
				s.fail(fmt.Errorf("%w: %v", ErrConnectionFailure, res.Err), msgFailedConnection)
			}
			return res, false
		}

		msg = resendMessage(res.Reason)
		if res.Reason == transport.ReasonRejected {
			lastErr = ErrCredentialRejected
		} else {
			lastErr = fmt.Errorf("%w: %v", ErrConnectionFailure, res.Err)
		}
	}
}

// discoveryPhase runs bounded discovery passes and, when they all come up
// empty, parks the session in manual fallback. Manual fallback is always
// offered before the session may fail on this leg.
func (s *Session) discoveryPhase(ctx context.Context) {
	for attempt := 1; attempt <= s.cfg.DiscoveryAttempts; attempt++ {
		if attempt > 1 {
			switch ev, payload := s.wait(ctx, s.retryWait(attempt)); ev {
			case evCancel:
				s.finishCancelled()
				return
			case evManual:
				s.manualPhase(ctx, payload)
				return
			case evForce:
				s.forcePersist(ctx, payload)
				return
			}
		}

		attempt := attempt
		s.cfg.Metrics.incDiscoveryPass()
		s.transition(func(sn *Snapshot) {
			sn.State = StateDiscovering
			sn.DiscoveryAttempt = attempt
			sn.Message = msgDiscovering
		})

		v, ev, payload := s.discoverOnce(ctx, attempt)
		switch {
		case v == vDone || v == vCancelled:
			return
		case ev == evManual:
			s.manualPhase(ctx, payload)
			return
		case ev == evForce:
			s.forcePersist(ctx, payload)
			return
		}
		// Empty pass. Each retry is a fresh pass, not a resumption.
	}

	s.transition(func(sn *Snapshot) {
		sn.State = StateManualFallback
		sn.LastErr = ErrDiscoveryTimeout
		sn.Message = msgManualFallback
	})

	select {
	case <-ctx.Done():
		s.finishCancelled()
	case <-s.cancelCh:
		s.finishCancelled()
	case addr := <-s.manualCh:
		s.manualPhase(ctx, addr)
	case addr := <-s.forceCh:
		s.forcePersist(ctx, addr)
	}
}

// discoverOnce runs one bounded discovery pass, verifying candidates in
// arrival order. Verification stays sequential: the device is still
// stabilizing its network stack.
func (s *Session) discoverOnce(ctx context.Context, attempt int) (verdict, opEvent, string) {
	dctx, cancel := context.WithTimeout(ctx, s.cfg.DiscoveryWindow)
	defer cancel()

	candidates, err := s.cfg.Finder.Find(dctx)
	if err != nil {
		s.logger.Warn("discovery pass could not start", zap.Error(err))
		return vContinue, evElapsed, ""
	}

	seen := make(map[string]bool)
	for {
		select {
		case <-ctx.Done():
			s.finishCancelled()
			return vCancelled, evCancel, ""
		case <-s.cancelCh:
			s.finishCancelled()
			return vCancelled, evCancel, ""
		case addr := <-s.manualCh:
			return vContinue, evManual, addr
		case cand, open := <-candidates:
			if !open {
				return vContinue, evElapsed, ""
			}
			if seen[cand.Address] {
				continue
			}
			seen[cand.Address] = true

			if v := s.verifyCandidate(ctx, cand); v != vContinue {
				return v, evElapsed, ""
			}
			// Candidate did not verify; keep consuming the pass.
			s.transition(func(sn *Snapshot) {
				sn.State = StateDiscovering
				sn.DiscoveryAttempt = attempt
				sn.Message = msgDiscovering
			})
		}
	}
}

// verifyCandidate probes one candidate and persists on a positive identity.
func (s *Session) verifyCandidate(ctx context.Context, cand discovery.Candidate) verdict {
	s.transition(func(sn *Snapshot) {
		sn.State = StateVerifying
		sn.Address = cand.Address
		sn.Message = msgVerifying
	})

	id, err := s.cfg.Prober.Probe(ctx, cand.Address)
	if err != nil {
		if s.interrupted(ctx) {
			s.finishCancelled()
			return vCancelled
		}
		s.logger.Debug("candidate did not verify",
			zap.String("address", cand.Address),
			zap.Error(err))
		return vContinue
	}

	s.cfg.Metrics.incCandidateVerified()
	return s.persistVerified(ctx, id, cand)
}

// manualPhase verifies an operator-supplied address with bounded retries of
// the same address. A fresh address restarts the budget; exhausting it ends
// the session in StateFailed.
func (s *Session) manualPhase(ctx context.Context, address string) {
	var lastErr error

	attempt := 0
	for attempt < s.cfg.ManualVerifyAttempts {
		attempt++

		first := attempt == 1
		s.transition(func(sn *Snapshot) {
			sn.State = StateVerifying
			sn.Address = address
			if first {
				sn.Message = msgVerifying
			} else {
				sn.Message = msgManualVerifyRetry
			}
		})

		id, err := s.cfg.Prober.Probe(ctx, address)
		if err == nil {
			s.cfg.Metrics.incCandidateVerified()
			s.persistVerified(ctx, id, discovery.Candidate{Address: address})
			return
		}
		if s.interrupted(ctx) {
			s.finishCancelled()
			return
		}

		lastErr = classifyVerifyError(err)
		s.logger.Debug("manual address did not verify",
			zap.String("address", address),
			zap.Int("attempt", attempt),
			zap.Error(err))

		if attempt < s.cfg.ManualVerifyAttempts {
			switch ev, payload := s.wait(ctx, s.cfg.ManualVerifyDelay); ev {
			case evCancel:
				s.finishCancelled()
				return
			case evForce:
				s.forcePersist(ctx, payload)
				return
			case evManual:
				address = payload
				attempt = 0
			}
		}
	}

	s.fail(lastErr, msgFailedManualVerify)
}

// classifyVerifyError maps a probe error onto the session taxonomy.
func classifyVerifyError(err error) error {
	if isNotController(err) {
		return fmt.Errorf("%w: %v", ErrVerificationMismatch, err)
	}
	return fmt.Errorf("%w: %v", ErrDiscoveryTimeout, err)
}

func isNotController(err error) bool {
	return errors.Is(err, verify.ErrNotController)
}

// persistVerified builds and saves the verified record.
func (s *Session) persistVerified(ctx context.Context, id verify.Identity, cand discovery.Candidate) verdict {
	deviceID := id.DeviceID
	if deviceID == "" {
		deviceID = cand.DeviceID
	}
	addr := verify.NormalizeAddress(cand.Address)
	if deviceID == "" {
		// Identity endpoints on very old firmware omit the mac; the
		// host is the best stable key left.
		deviceID, _, _ = net.SplitHostPort(addr)
	}

	s.mu.Lock()
	creds := s.creds
	haveCreds := s.haveCreds
	owner := s.cfg.OwnerID
	s.mu.Unlock()

	rec := registry.Record{
		OwnerID:    owner,
		DeviceID:   deviceID,
		Address:    addr,
		Name:       id.Name,
		Firmware:   id.Firmware,
		Brand:      id.Brand,
		Configured: true,
	}
	if haveCreds {
		rec.NetworkName = creds.NetworkName()
		rec.CredentialFingerprint = creds.Fingerprint()
	}

	return s.persist(ctx, rec, false)
}

// forcePersist saves an unverified record for an operator-acknowledged
// address. The record carries Configured=false.
func (s *Session) forcePersist(ctx context.Context, address string) {
	addr := verify.NormalizeAddress(address)
	host, _, _ := net.SplitHostPort(addr)

	s.mu.Lock()
	creds := s.creds
	haveCreds := s.haveCreds
	owner := s.cfg.OwnerID
	s.mu.Unlock()

	rec := registry.Record{
		OwnerID:    owner,
		DeviceID:   host,
		Address:    addr,
		Configured: false,
	}
	if haveCreds {
		rec.NetworkName = creds.NetworkName()
		rec.CredentialFingerprint = creds.Fingerprint()
	}

	s.logger.Warn("persisting force-accepted record without verification",
		zap.String("address", addr))
	s.cfg.Metrics.incForced()
	s.persist(ctx, rec, true)
}

// persist writes the record and settles the session: Succeeded on success,
// PersistFailed (recoverable through RetryPersist) otherwise.
func (s *Session) persist(ctx context.Context, rec registry.Record, forced bool) verdict {
	if err := s.cfg.Store.Save(ctx, rec); err != nil {
		if s.interrupted(ctx) {
			s.finishCancelled()
			return vCancelled
		}

		s.logger.Error("registry write failed",
			zap.String("device_id", rec.DeviceID),
			zap.Error(err))

		s.mu.Lock()
		s.pending = rec
		s.pendingForced = forced
		s.hasPending = true
		s.mu.Unlock()

		s.transition(func(sn *Snapshot) {
			sn.State = StatePersistFailed
			sn.Address = rec.Address
			sn.DeviceID = rec.DeviceID
			sn.Forced = forced
			sn.LastErr = fmt.Errorf("%w: %v", ErrPersistenceFailure, err)
			sn.Message = msgPersistFailed
		})
		return vDone
	}

	s.succeed(rec, forced)
	return vDone
}

// succeed moves the session to its terminal success state. A fresh success
// discards stale error state and attempt counters.
func (s *Session) succeed(rec registry.Record, forced bool) {
	s.closeTransport()
	s.cfg.Metrics.incSucceeded()

	s.logger.Info("session succeeded",
		zap.String("device_id", rec.DeviceID),
		zap.String("address", rec.Address),
		zap.Bool("forced", forced))

	s.transition(func(sn *Snapshot) {
		sn.State = StateSucceeded
		sn.Address = rec.Address
		sn.DeviceID = rec.DeviceID
		sn.Forced = forced
		sn.CredentialAttempt = 0
		sn.DiscoveryAttempt = 0
		sn.LastErr = nil
		if forced {
			sn.Message = msgForced
		} else {
			sn.Message = msgSucceeded
		}
	})
}

// fail moves the session to StateFailed.
func (s *Session) fail(err error, msg string) {
	s.closeTransport()
	s.cfg.Metrics.incFailed()

	s.logger.Warn("session failed", zap.Error(err))

	s.transition(func(sn *Snapshot) {
		sn.State = StateFailed
		sn.LastErr = err
		sn.Message = msg
	})
}

// finishCancelled moves the session to StateCancelled, releasing the
// transport. Nothing is persisted on this path.
func (s *Session) finishCancelled() {
	s.closeTransport()
	s.cfg.Metrics.incCancelled()

	s.transition(func(sn *Snapshot) {
		sn.State = StateCancelled
		sn.LastErr = nil
		sn.Message = msgCancelled
	})
}

// transition applies a snapshot mutation and publishes the result. Once the
// session is terminal, further transitions are ignored.
func (s *Session) transition(mutate func(*Snapshot)) {
	s.mu.Lock()
	if s.snap.State.Terminal() {
		s.mu.Unlock()
		return
	}
	prev := s.snap.State
	mutate(&s.snap)
	s.snap.UpdatedAt = time.Now()
	snap := s.snap
	s.pub.publish(snap)
	if snap.State.Terminal() {
		s.pub.close()
	}
	s.mu.Unlock()

	if prev != snap.State {
		s.logger.Debug("session state change",
			zap.Stringer("from", prev),
			zap.Stringer("to", snap.State))
	}
}

// wait suspends for d, waking early for operator input or cancellation.
func (s *Session) wait(ctx context.Context, d time.Duration) (opEvent, string) {
	t := time.NewTimer(d)
	defer t.Stop()

	select {
	case <-ctx.Done():
		return evCancel, ""
	case <-s.cancelCh:
		return evCancel, ""
	case addr := <-s.manualCh:
		return evManual, addr
	case addr := <-s.forceCh:
		return evForce, addr
	case <-t.C:
		return evElapsed, ""
	}
}

// retryWait returns the wait before discovery pass n (n >= 2). The last
// configured wait repeats for later passes.
func (s *Session) retryWait(n int) time.Duration {
	idx := n - 2
	if idx >= len(s.cfg.DiscoveryRetryWaits) {
		idx = len(s.cfg.DiscoveryRetryWaits) - 1
	}
	return s.cfg.DiscoveryRetryWaits[idx]
}

// interrupted reports whether the session context or Cancel ended the
// current operation.
func (s *Session) interrupted(ctx context.Context) bool {
	if ctx.Err() != nil {
		return true
	}
	select {
	case <-s.cancelCh:
		return true
	default:
		return false
	}
}

// closeTransport releases the credential channel, once.
func (s *Session) closeTransport() {
	s.mu.Lock()
	tr := s.tr
	s.tr = nil
	s.mu.Unlock()

	if tr != nil {
		if err := tr.Close(); err != nil {
			s.logger.Debug("transport close failed", zap.Error(err))
		}
	}
}
