package provision

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumina-home/provision-go/internal/scenario"
	"github.com/lumina-home/provision-go/pkg/discovery"
	"github.com/lumina-home/provision-go/pkg/registry"
	"github.com/lumina-home/provision-go/pkg/transport"
	"github.com/lumina-home/provision-go/pkg/verify"
)

// TestScenarios replays the YAML-scripted provisioning scenarios under
// testdata/scenarios against the session state machine.
func TestScenarios(t *testing.T) {
	scenarios, err := scenario.LoadDir("testdata/scenarios")
	require.NoError(t, err)
	require.NotEmpty(t, scenarios)

	for _, sc := range scenarios {
		t.Run(sc.ID, func(t *testing.T) {
			runScenario(t, sc)
		})
	}
}

// snapCursor walks one snapshot subscription, remembering the last snapshot
// it read. A state an earlier step already observed satisfies a later wait
// without consuming the stream again; steps that move the session on call
// advance so the next wait reads fresh state.
type snapCursor struct {
	t     *testing.T
	snaps <-chan Snapshot
	last  Snapshot
	seen  bool
}

func (c *snapCursor) await(want State) Snapshot {
	c.t.Helper()
	if c.seen && c.last.State == want {
		return c.last
	}
	deadline := time.After(5 * time.Second)
	for {
		select {
		case snap, open := <-c.snaps:
			if !open {
				c.t.Fatalf("snapshot stream closed before reaching %s", want)
			}
			c.last = snap
			c.seen = true
			if snap.State == want {
				return snap
			}
			if snap.State.Terminal() {
				c.t.Fatalf("session terminated in %s (last err %v) while waiting for %s",
					snap.State, snap.LastErr, want)
			}
		case <-deadline:
			c.t.Fatalf("timed out waiting for state %s", want)
		}
	}
}

func (c *snapCursor) advance() {
	c.seen = false
}

func runScenario(t *testing.T, sc *scenario.Scenario) {
	t.Helper()

	tr := &scriptTransport{results: scriptedResults(t, sc.Transport.Outcomes)}
	finder := &scriptFinder{passes: scriptedPasses(sc.Discovery.Passes)}
	prober := scriptedProber(t, sc)
	store := registry.NewMemStore()

	s, snaps := startSession(t, testConfig(tr, finder, prober, store))
	cur := &snapCursor{t: t, snaps: snaps}

	for i, step := range sc.Steps {
		switch step.Action {
		case "submit_credentials":
			cur.await(StateConnected)
			creds, err := transport.NewCredentials(step.Network, step.Secret)
			require.NoError(t, err, "step %d", i+1)
			require.NoError(t, s.SubmitCredentials(creds), "step %d", i+1)
			cur.advance()

		case "await_state":
			snap := cur.await(parseState(t, step.State))
			if step.Attempt != 0 {
				assert.Equal(t, step.Attempt, snap.CredentialAttempt, "step %d", i+1)
			}

		case "submit_manual":
			require.NoError(t, s.SubmitManualAddress(step.Address), "step %d", i+1)
			cur.advance()

		case "force_accept":
			require.NoError(t, s.ForceAccept(step.Address), "step %d", i+1)
			cur.advance()

		case "cancel":
			s.Cancel()
			cur.advance()

		default:
			t.Fatalf("step %d: unhandled action %q", i+1, step.Action)
		}
	}

	final := cur.await(parseState(t, sc.Expect.FinalState))
	require.Equal(t, sc.Expect.FinalState, final.State.String())

	ctx := context.Background()
	if sc.Expect.Record != nil {
		want := sc.Expect.Record
		rec, err := store.Get(ctx, want.DeviceID)
		require.NoError(t, err, "expected a record for %s", want.DeviceID)
		assert.Equal(t, want.Address, rec.Address)
		assert.Equal(t, want.Configured, rec.Configured)
		if want.NetworkName != "" {
			assert.Equal(t, want.NetworkName, rec.NetworkName)
		}
	}
	if sc.Expect.EmptyRegistry {
		streamCtx, cancel := context.WithCancel(ctx)
		defer cancel()
		stream, err := store.Stream(streamCtx, "")
		require.NoError(t, err)
		select {
		case rec := <-stream:
			t.Fatalf("expected empty registry, found record for %s", rec.DeviceID)
		case <-time.After(50 * time.Millisecond):
		}
	}
}

func scriptedResults(t *testing.T, outcomes []string) []transport.Result {
	t.Helper()
	if len(outcomes) == 0 {
		return []transport.Result{transport.Success()}
	}

	results := make([]transport.Result, 0, len(outcomes))
	for _, outcome := range outcomes {
		switch {
		case outcome == "success":
			results = append(results, transport.Success())
		case strings.HasPrefix(outcome, "success-with-address:"):
			addr := strings.TrimPrefix(outcome, "success-with-address:")
			results = append(results, transport.SuccessWithAddress(addr))
		case outcome == "rejected":
			results = append(results, transport.Failure(transport.ReasonRejected, errors.New("scripted rejection")))
		case outcome == "unreachable":
			results = append(results, transport.Failure(transport.ReasonUnreachable, errors.New("scripted drop")))
		case outcome == "timeout":
			results = append(results, transport.Failure(transport.ReasonTimeout, errors.New("scripted timeout")))
		case outcome == "protocol":
			results = append(results, transport.Failure(transport.ReasonProtocol, errors.New("scripted protocol error")))
		default:
			t.Fatalf("unknown transport outcome %q", outcome)
		}
	}
	return results
}

func scriptedPasses(passes [][]string) [][]discovery.Candidate {
	out := make([][]discovery.Candidate, len(passes))
	for i, addrs := range passes {
		for _, addr := range addrs {
			out[i] = append(out[i], discovery.Candidate{Address: addr, Source: discovery.SourceMDNS})
		}
	}
	return out
}

func scriptedProber(t *testing.T, sc *scenario.Scenario) *scriptProber {
	t.Helper()

	id := verify.Identity{
		DeviceID: sc.Identity.DeviceID,
		Name:     sc.Identity.Name,
		LEDCount: sc.Identity.LEDCount,
	}

	prober := newScriptProber()
	for addr, outcomes := range sc.Verify {
		for _, outcome := range outcomes {
			switch outcome {
			case "controller":
				prober.add(addr, probeOutcome{id: id})
			case "mismatch":
				prober.add(addr, probeOutcome{
					err: fmt.Errorf("%w: scripted mismatch", verify.ErrNotController),
				})
			case "unreachable":
				prober.add(addr, probeOutcome{
					err: fmt.Errorf("probe %s: scripted unreachable", addr),
				})
			default:
				t.Fatalf("unknown verify outcome %q for %s", outcome, addr)
			}
		}
	}
	return prober
}

func parseState(t *testing.T, name string) State {
	t.Helper()
	for s := StateIdle; s <= StatePersistFailed; s++ {
		if s.String() == name {
			return s
		}
	}
	t.Fatalf("unknown state name %q", name)
	return StateIdle
}
