package provision

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/lumina-home/provision-go/pkg/discovery"
	"github.com/lumina-home/provision-go/pkg/registry"
	regmocks "github.com/lumina-home/provision-go/pkg/registry/mocks"
	"github.com/lumina-home/provision-go/pkg/transport"
	"github.com/lumina-home/provision-go/pkg/verify"
)

// scriptTransport replays a fixed sequence of delivery results; the last
// result repeats.
type scriptTransport struct {
	mu      sync.Mutex
	results []transport.Result
	sent    []transport.Credentials
	closed  int
}

func (f *scriptTransport) Name() string { return "script" }

func (f *scriptTransport) SendCredentials(_ context.Context, creds transport.Credentials) transport.Result {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, creds)
	i := len(f.sent) - 1
	if i >= len(f.results) {
		i = len(f.results) - 1
	}
	return f.results[i]
}

func (f *scriptTransport) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed++
	return nil
}

func (f *scriptTransport) closeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// scriptFinder replays one candidate slice per discovery pass.
type scriptFinder struct {
	mu     sync.Mutex
	passes [][]discovery.Candidate
	calls  int
}

func (f *scriptFinder) Find(_ context.Context) (<-chan discovery.Candidate, error) {
	f.mu.Lock()
	i := f.calls
	f.calls++
	var cands []discovery.Candidate
	if i < len(f.passes) {
		cands = f.passes[i]
	}
	f.mu.Unlock()

	ch := make(chan discovery.Candidate, len(cands)+1)
	for _, c := range cands {
		ch <- c
	}
	close(ch)
	return ch, nil
}

func (f *scriptFinder) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// probeOutcome is one scripted answer from the fake prober.
type probeOutcome struct {
	id  verify.Identity
	err error
}

// scriptProber answers per address from a scripted sequence; the last
// outcome repeats.
type scriptProber struct {
	mu       sync.Mutex
	outcomes map[string][]probeOutcome
	calls    map[string]int
}

func newScriptProber() *scriptProber {
	return &scriptProber{
		outcomes: make(map[string][]probeOutcome),
		calls:    make(map[string]int),
	}
}

func (p *scriptProber) add(address string, out probeOutcome) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.outcomes[address] = append(p.outcomes[address], out)
}

func (p *scriptProber) Probe(_ context.Context, address string) (verify.Identity, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls[address]++

	seq := p.outcomes[address]
	if len(seq) == 0 {
		return verify.Identity{}, fmt.Errorf("probe %s: no route to host", address)
	}
	i := p.calls[address] - 1
	if i >= len(seq) {
		i = len(seq) - 1
	}
	return seq[i].id, seq[i].err
}

func (p *scriptProber) callCount(address string) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.calls[address]
}

func controllerIdentity() verify.Identity {
	return verify.Identity{
		DeviceID: "aa:bb:cc:dd:ee:11",
		Name:     "Controller-AA11",
		Firmware: "0.14.1",
		Brand:    "Lumina",
		LEDCount: 30,
	}
}

func testCreds(t *testing.T) transport.Credentials {
	t.Helper()
	creds, err := transport.NewCredentials("HomeNet", "pw1234")
	require.NoError(t, err)
	return creds
}

// testConfig keeps every delay short enough for fast tests while preserving
// the production ordering of the pipeline.
func testConfig(tr transport.Transport, f discovery.Finder, p Prober, st registry.Store) Config {
	return Config{
		Dial: func(context.Context) (transport.Transport, error) {
			return tr, nil
		},
		Finder:               f,
		Prober:               p,
		Store:                st,
		CredentialAttempts:   3,
		SettleDelay:          5 * time.Millisecond,
		DiscoveryAttempts:    3,
		DiscoveryWindow:      100 * time.Millisecond,
		DiscoveryRetryWaits:  []time.Duration{time.Millisecond, 2 * time.Millisecond},
		ManualVerifyAttempts: 3,
		ManualVerifyDelay:    5 * time.Millisecond,
	}
}

func startSession(t *testing.T, cfg Config) (*Session, <-chan Snapshot) {
	t.Helper()
	s, err := New(cfg)
	require.NoError(t, err)
	snaps := s.Snapshots()
	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Cancel)
	return s, snaps
}

func waitForState(t *testing.T, snaps <-chan Snapshot, want State) Snapshot {
	t.Helper()
	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap, open := <-snaps:
			if !open {
				t.Fatalf("snapshot stream closed before reaching %s", want)
			}
			if snap.State == want {
				return snap
			}
			if snap.State.Terminal() {
				t.Fatalf("session terminated in %s (last err %v) while waiting for %s",
					snap.State, snap.LastErr, want)
			}
		case <-deadline:
			t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func TestSessionVerifiedThroughDiscovery(t *testing.T) {
	tr := &scriptTransport{results: []transport.Result{transport.Success()}}
	finder := &scriptFinder{passes: [][]discovery.Candidate{{
		{Address: "192.168.1.44:80", Name: "Controller-AA11", Source: discovery.SourceMDNS},
	}}}
	prober := newScriptProber()
	prober.add("192.168.1.44:80", probeOutcome{id: controllerIdentity()})
	store := registry.NewMemStore()

	s, snaps := startSession(t, testConfig(tr, finder, prober, store))

	connected := waitForState(t, snaps, StateConnected)
	assert.Equal(t, "script", connected.Transport)
	creds := testCreds(t)
	require.NoError(t, s.SubmitCredentials(creds))

	waitForState(t, snaps, StateAwaitingReboot)
	final := waitForState(t, snaps, StateSucceeded)

	assert.Equal(t, "aa:bb:cc:dd:ee:11", final.DeviceID)
	assert.Equal(t, "192.168.1.44:80", final.Address)
	assert.Equal(t, "script", final.Transport)
	assert.NoError(t, final.LastErr)
	assert.False(t, final.Forced)

	rec, err := store.Get(context.Background(), "aa:bb:cc:dd:ee:11")
	require.NoError(t, err)
	assert.True(t, rec.Configured)
	assert.Equal(t, "192.168.1.44:80", rec.Address)
	assert.Equal(t, "Controller-AA11", rec.Name)
	assert.Equal(t, "HomeNet", rec.NetworkName)
	assert.Equal(t, creds.Fingerprint(), rec.CredentialFingerprint)

	assert.Equal(t, 1, tr.closeCount())
}

func TestSessionTransportAddressSkipsDiscovery(t *testing.T) {
	tr := &scriptTransport{results: []transport.Result{transport.SuccessWithAddress("192.168.1.44")}}
	finder := &scriptFinder{}
	prober := newScriptProber()
	prober.add("192.168.1.44", probeOutcome{id: controllerIdentity()})
	store := registry.NewMemStore()

	s, snaps := startSession(t, testConfig(tr, finder, prober, store))

	waitForState(t, snaps, StateConnected)
	require.NoError(t, s.SubmitCredentials(testCreds(t)))

	waitForState(t, snaps, StateSucceeded)

	assert.Equal(t, 0, finder.callCount(), "discovery should be skipped when the transport reported the address")

	rec, err := store.Get(context.Background(), "aa:bb:cc:dd:ee:11")
	require.NoError(t, err)
	assert.Equal(t, "192.168.1.44:80", rec.Address)
}

func TestSessionCredentialRejectionReturnsToConnected(t *testing.T) {
	tr := &scriptTransport{results: []transport.Result{
		transport.Failure(transport.ReasonRejected, errors.New("bad psk")),
		transport.Success(),
	}}
	finder := &scriptFinder{passes: [][]discovery.Candidate{{
		{Address: "192.168.1.44:80"},
	}}}
	prober := newScriptProber()
	prober.add("192.168.1.44:80", probeOutcome{id: controllerIdentity()})
	store := registry.NewMemStore()

	s, snaps := startSession(t, testConfig(tr, finder, prober, store))

	first := waitForState(t, snaps, StateConnected)
	assert.Equal(t, 1, first.CredentialAttempt)
	require.NoError(t, s.SubmitCredentials(testCreds(t)))

	second := waitForState(t, snaps, StateConnected)
	assert.Equal(t, 2, second.CredentialAttempt)
	assert.ErrorIs(t, second.LastErr, ErrCredentialRejected)
	assert.NotEmpty(t, second.Message)

	require.NoError(t, s.SubmitCredentials(testCreds(t)))

	final := waitForState(t, snaps, StateSucceeded)
	assert.NoError(t, final.LastErr, "fresh success must not retain stale error state")
	assert.Zero(t, final.CredentialAttempt)
}

func TestSessionCredentialBudgetExhausted(t *testing.T) {
	tr := &scriptTransport{results: []transport.Result{
		transport.Failure(transport.ReasonRejected, errors.New("bad psk")),
	}}
	finder := &scriptFinder{}
	prober := newScriptProber()
	store := registry.NewMemStore()

	s, snaps := startSession(t, testConfig(tr, finder, prober, store))

	// The third rejection terminates the session instead of returning
	// to Connected.
	for i := 0; i < 3; i++ {
		waitForState(t, snaps, StateConnected)
		require.NoError(t, s.SubmitCredentials(testCreds(t)))
	}

	deadline := time.After(5 * time.Second)
	var final Snapshot
	for final.State != StateFailed {
		select {
		case snap, open := <-snaps:
			if !open {
				t.Fatal("stream closed before failure")
			}
			final = snap
		case <-deadline:
			t.Fatal("timed out waiting for StateFailed")
		}
	}

	assert.ErrorIs(t, final.LastErr, ErrCredentialRejected)
	assert.Equal(t, 0, finder.callCount())
	assert.Equal(t, 1, tr.closeCount())
}

func TestSessionEmptyDiscoveryOffersManualFallback(t *testing.T) {
	tr := &scriptTransport{results: []transport.Result{transport.Success()}}
	finder := &scriptFinder{} // every pass empty
	prober := newScriptProber()
	store := registry.NewMemStore()

	s, snaps := startSession(t, testConfig(tr, finder, prober, store))

	waitForState(t, snaps, StateConnected)
	require.NoError(t, s.SubmitCredentials(testCreds(t)))

	fallback := waitForState(t, snaps, StateManualFallback)
	assert.ErrorIs(t, fallback.LastErr, ErrDiscoveryTimeout)
	assert.Equal(t, 3, finder.callCount(), "manual fallback comes only after every discovery attempt")

	s.Cancel()
	cancelled := waitForState(t, snaps, StateCancelled)
	assert.Equal(t, StateCancelled, cancelled.State)
}

func TestSessionManualAddressVerifies(t *testing.T) {
	tr := &scriptTransport{results: []transport.Result{transport.Success()}}
	finder := &scriptFinder{}
	prober := newScriptProber()
	prober.add("192.168.1.50", probeOutcome{id: controllerIdentity()})
	store := registry.NewMemStore()

	s, snaps := startSession(t, testConfig(tr, finder, prober, store))

	waitForState(t, snaps, StateConnected)
	require.NoError(t, s.SubmitCredentials(testCreds(t)))
	waitForState(t, snaps, StateManualFallback)

	require.NoError(t, s.SubmitManualAddress("192.168.1.50"))

	final := waitForState(t, snaps, StateSucceeded)
	assert.NoError(t, final.LastErr, "success discards the discovery failure history")
	assert.False(t, final.Forced)

	rec, err := store.Get(context.Background(), "aa:bb:cc:dd:ee:11")
	require.NoError(t, err)
	assert.True(t, rec.Configured)
	assert.Equal(t, "192.168.1.50:80", rec.Address)
}

func TestSessionManualAddressRetriesSameAddressThenFails(t *testing.T) {
	tr := &scriptTransport{results: []transport.Result{transport.Success()}}
	finder := &scriptFinder{}
	prober := newScriptProber()
	prober.add("192.168.1.50", probeOutcome{
		err: fmt.Errorf("%w: status 404", verify.ErrNotController),
	})
	store := registry.NewMemStore()

	s, snaps := startSession(t, testConfig(tr, finder, prober, store))

	waitForState(t, snaps, StateConnected)
	require.NoError(t, s.SubmitCredentials(testCreds(t)))
	waitForState(t, snaps, StateManualFallback)
	require.NoError(t, s.SubmitManualAddress("192.168.1.50"))

	deadline := time.After(5 * time.Second)
	var final Snapshot
	for final.State != StateFailed {
		select {
		case snap, open := <-snaps:
			if !open {
				t.Fatal("stream closed before failure")
			}
			final = snap
		case <-deadline:
			t.Fatal("timed out waiting for StateFailed")
		}
	}

	assert.ErrorIs(t, final.LastErr, ErrVerificationMismatch)
	assert.Equal(t, 3, prober.callCount("192.168.1.50"), "the same address is retried, bounded")

	_, err := store.Get(context.Background(), "aa:bb:cc:dd:ee:11")
	assert.ErrorIs(t, err, registry.ErrNotFound)
}

func TestSessionForceAcceptPersistsUnverified(t *testing.T) {
	tr := &scriptTransport{results: []transport.Result{transport.Success()}}
	finder := &scriptFinder{}
	prober := newScriptProber()
	store := registry.NewMemStore()

	s, snaps := startSession(t, testConfig(tr, finder, prober, store))

	waitForState(t, snaps, StateConnected)
	require.NoError(t, s.SubmitCredentials(testCreds(t)))

	// Force accept is an explicit fallback-only transition.
	err := s.ForceAccept("192.168.1.60")
	assert.ErrorIs(t, err, ErrInvalidState)

	waitForState(t, snaps, StateManualFallback)
	require.NoError(t, s.ForceAccept("192.168.1.60"))

	final := waitForState(t, snaps, StateSucceeded)
	assert.True(t, final.Forced)

	rec, err := store.Get(context.Background(), "192.168.1.60")
	require.NoError(t, err)
	assert.False(t, rec.Configured, "a forced record must stay distinguishable from a verified one")
	assert.Equal(t, "192.168.1.60:80", rec.Address)
	assert.Equal(t, "HomeNet", rec.NetworkName)
}

func TestSessionCancelDuringAwaitingReboot(t *testing.T) {
	tr := &scriptTransport{results: []transport.Result{transport.Success()}}
	finder := &scriptFinder{}
	prober := newScriptProber()
	store := registry.NewMemStore()

	cfg := testConfig(tr, finder, prober, store)
	cfg.SettleDelay = 10 * time.Second

	s, snaps := startSession(t, cfg)

	waitForState(t, snaps, StateConnected)
	require.NoError(t, s.SubmitCredentials(testCreds(t)))
	waitForState(t, snaps, StateAwaitingReboot)

	s.Cancel()

	final := waitForState(t, snaps, StateCancelled)
	assert.NotEqual(t, StateFailed, final.State)
	assert.Equal(t, 1, tr.closeCount(), "cancellation must release the transport")

	// Nothing was persisted.
	_, err := store.Get(context.Background(), "aa:bb:cc:dd:ee:11")
	assert.ErrorIs(t, err, registry.ErrNotFound)

	select {
	case <-s.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("pipeline did not stop after cancel")
	}
}

func TestSessionPersistFailureRetriesPersistAlone(t *testing.T) {
	tr := &scriptTransport{results: []transport.Result{transport.Success()}}
	finder := &scriptFinder{passes: [][]discovery.Candidate{{
		{Address: "192.168.1.44:80"},
	}}}
	prober := newScriptProber()
	prober.add("192.168.1.44:80", probeOutcome{id: controllerIdentity()})

	store := regmocks.NewMockStore(t)
	store.EXPECT().Save(mock.Anything, mock.Anything).Return(errors.New("disk full")).Once()
	store.EXPECT().Save(mock.Anything, mock.MatchedBy(func(rec registry.Record) bool {
		return rec.DeviceID == "aa:bb:cc:dd:ee:11" && rec.Configured
	})).Return(nil).Once()

	s, snaps := startSession(t, testConfig(tr, finder, prober, store))

	waitForState(t, snaps, StateConnected)
	require.NoError(t, s.SubmitCredentials(testCreds(t)))

	failed := waitForState(t, snaps, StatePersistFailed)
	assert.ErrorIs(t, failed.LastErr, ErrPersistenceFailure)
	assert.Equal(t, 1, prober.callCount("192.168.1.44:80"))

	require.NoError(t, s.RetryPersist(context.Background()))

	final := waitForState(t, snaps, StateSucceeded)
	assert.NoError(t, final.LastErr)
	assert.Equal(t, 1, prober.callCount("192.168.1.44:80"),
		"persist retry must not re-run verification")
	assert.Equal(t, 1, finder.callCount(),
		"persist retry must not re-run discovery")
}

func TestSessionReprovisionUpdatesExistingRecord(t *testing.T) {
	store := registry.NewMemStore()

	runOnce := func(address string) {
		tr := &scriptTransport{results: []transport.Result{transport.Success()}}
		finder := &scriptFinder{passes: [][]discovery.Candidate{{
			{Address: address},
		}}}
		prober := newScriptProber()
		prober.add(address, probeOutcome{id: controllerIdentity()})

		s, snaps := startSession(t, testConfig(tr, finder, prober, store))
		waitForState(t, snaps, StateConnected)
		require.NoError(t, s.SubmitCredentials(testCreds(t)))
		waitForState(t, snaps, StateSucceeded)
	}

	runOnce("192.168.1.44:80")

	first, err := store.Get(context.Background(), "aa:bb:cc:dd:ee:11")
	require.NoError(t, err)

	// Same controller, new DHCP lease.
	runOnce("192.168.1.99:80")

	second, err := store.Get(context.Background(), "aa:bb:cc:dd:ee:11")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "re-verification updates, never duplicates")
	assert.Equal(t, "192.168.1.99:80", second.Address)
	assert.True(t, second.UpdatedAt.After(first.UpdatedAt) || second.UpdatedAt.Equal(first.UpdatedAt))
}

func TestSessionAPIStateGuards(t *testing.T) {
	tr := &scriptTransport{results: []transport.Result{transport.Success()}}
	finder := &scriptFinder{}
	prober := newScriptProber()
	store := registry.NewMemStore()

	s, err := New(testConfig(tr, finder, prober, store))
	require.NoError(t, err)

	assert.ErrorIs(t, s.SubmitCredentials(testCreds(t)), ErrNotStarted)
	assert.ErrorIs(t, s.SubmitManualAddress("192.168.1.2"), ErrInvalidState)
	assert.ErrorIs(t, s.RetryPersist(context.Background()), ErrInvalidState)

	require.NoError(t, s.Start(context.Background()))
	t.Cleanup(s.Cancel)
	assert.ErrorIs(t, s.Start(context.Background()), ErrAlreadyStarted)
}

func TestNewRequiresCollaborators(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}
