package discovery

import (
	"context"
	"errors"
	"testing"
	"time"
)

// stubFinder plays back a fixed candidate list.
type stubFinder struct {
	cands []Candidate
	err   error
	delay time.Duration
}

func (s *stubFinder) Find(ctx context.Context) (<-chan Candidate, error) {
	if s.err != nil {
		return nil, s.err
	}

	ch := make(chan Candidate)
	go func() {
		defer close(ch)
		for _, cand := range s.cands {
			if s.delay > 0 {
				select {
				case <-time.After(s.delay):
				case <-ctx.Done():
					return
				}
			}
			select {
			case ch <- cand:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}

func collect(t *testing.T, ch <-chan Candidate) []Candidate {
	t.Helper()

	var got []Candidate
	timeout := time.After(5 * time.Second)
	for {
		select {
		case cand, ok := <-ch:
			if !ok {
				return got
			}
			got = append(got, cand)
		case <-timeout:
			t.Fatal("timed out waiting for merged channel to close")
		}
	}
}

func TestMultiFinderNoFinders(t *testing.T) {
	m := NewMultiFinder(MultiConfig{})
	if _, err := m.Find(context.Background()); !errors.Is(err, ErrNoFinders) {
		t.Errorf("Find() error = %v, want ErrNoFinders", err)
	}
}

func TestMultiFinderMergesAndDedupes(t *testing.T) {
	a := &stubFinder{cands: []Candidate{
		{Address: "10.0.0.1:80", Source: SourceMDNS},
	}}
	b := &stubFinder{cands: []Candidate{
		{Address: "10.0.0.1:80", Source: SourceSweep},
		{Address: "10.0.0.2:80", Source: SourceSweep},
	}}

	m := NewMultiFinder(MultiConfig{Stagger: time.Millisecond}, a, b)
	ch, err := m.Find(context.Background())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	got := collect(t, ch)
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2: %v", len(got), got)
	}

	byAddr := make(map[string]Candidate, len(got))
	for _, cand := range got {
		byAddr[cand.Address] = cand
	}
	if _, ok := byAddr["10.0.0.1:80"]; !ok {
		t.Error("missing candidate 10.0.0.1:80")
	}
	if _, ok := byAddr["10.0.0.2:80"]; !ok {
		t.Error("missing candidate 10.0.0.2:80")
	}
}

func TestMultiFinderPrimaryStartError(t *testing.T) {
	boom := errors.New("boom")
	m := NewMultiFinder(MultiConfig{}, &stubFinder{err: boom})

	if _, err := m.Find(context.Background()); !errors.Is(err, boom) {
		t.Errorf("Find() error = %v, want %v", err, boom)
	}
}

func TestMultiFinderSecondaryStartErrorSkipped(t *testing.T) {
	a := &stubFinder{cands: []Candidate{{Address: "10.0.0.1:80"}}}
	b := &stubFinder{err: errors.New("no subnet")}

	m := NewMultiFinder(MultiConfig{Stagger: time.Millisecond}, a, b)
	ch, err := m.Find(context.Background())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	got := collect(t, ch)
	if len(got) != 1 || got[0].Address != "10.0.0.1:80" {
		t.Errorf("got %v, want the primary's single candidate", got)
	}
}

func TestMultiFinderStaggerOrdersFirstCandidate(t *testing.T) {
	a := &stubFinder{cands: []Candidate{{Address: "10.0.0.1:80", Source: SourceMDNS}}}
	b := &stubFinder{cands: []Candidate{{Address: "10.0.0.2:80", Source: SourceSweep}}}

	m := NewMultiFinder(MultiConfig{Stagger: 200 * time.Millisecond}, a, b)
	ch, err := m.Find(context.Background())
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	got := collect(t, ch)
	if len(got) != 2 {
		t.Fatalf("got %d candidates, want 2: %v", len(got), got)
	}
	// The staggered second finder must not beat the primary.
	if got[0].Address != "10.0.0.1:80" {
		t.Errorf("first candidate = %q, want the primary's", got[0].Address)
	}
}

func TestMultiFinderCancelled(t *testing.T) {
	a := &stubFinder{cands: []Candidate{{Address: "10.0.0.1:80"}}, delay: time.Hour}

	m := NewMultiFinder(MultiConfig{}, a)
	ctx, cancel := context.WithCancel(context.Background())

	ch, err := m.Find(ctx)
	if err != nil {
		t.Fatalf("Find: %v", err)
	}

	cancel()

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("expected the merged channel to close without candidates")
		}
	case <-time.After(2 * time.Second):
		t.Error("merged channel did not close after cancellation")
	}
}
