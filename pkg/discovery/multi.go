package discovery

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrNoFinders indicates a MultiFinder was built without any finders.
var ErrNoFinders = errors.New("discovery: no finders configured")

// MultiConfig configures a MultiFinder.
type MultiConfig struct {
	// Stagger is the delay between starting successive finders. The
	// first finder starts immediately; each later one waits another
	// Stagger, giving cheap passive discovery a head start before the
	// subnet sweep spends its probes.
	Stagger time.Duration

	// Logger receives finder events. Defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultMultiConfig returns the multi-finder defaults.
func DefaultMultiConfig() MultiConfig {
	return MultiConfig{Stagger: 2 * time.Second}
}

// MultiFinder runs several finders over one window and merges their
// candidates, deduplicated by address. Ordering follows arrival, so
// candidates from a fast finder surface before a slow one finishes.
type MultiFinder struct {
	finders []Finder
	cfg     MultiConfig
	logger  *zap.Logger
}

var _ Finder = (*MultiFinder)(nil)

// NewMultiFinder combines finders in the given order. The order decides
// who starts first and therefore who wins ties for an address.
func NewMultiFinder(cfg MultiConfig, finders ...Finder) *MultiFinder {
	def := DefaultMultiConfig()
	if cfg.Stagger <= 0 {
		cfg.Stagger = def.Stagger
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &MultiFinder{finders: finders, cfg: cfg, logger: cfg.Logger}
}

// Find starts the first finder immediately and each later finder after
// another stagger interval. A start failure of the first finder fails
// Find; later start failures are logged and skipped so one broken
// finder does not sink the window. The merged channel closes when all
// running finders are done or ctx ends.
func (m *MultiFinder) Find(ctx context.Context) (<-chan Candidate, error) {
	if len(m.finders) == 0 {
		return nil, ErrNoFinders
	}

	primary, err := m.finders[0].Find(ctx)
	if err != nil {
		return nil, err
	}

	out := make(chan Candidate)

	var (
		mu   sync.Mutex
		seen = make(map[string]bool)
		wg   sync.WaitGroup
	)

	forward := func(ch <-chan Candidate) {
		for cand := range ch {
			mu.Lock()
			dup := seen[cand.Address]
			seen[cand.Address] = true
			mu.Unlock()
			if dup {
				continue
			}

			select {
			case out <- cand:
			case <-ctx.Done():
				return
			}
		}
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		forward(primary)
	}()

	for i, finder := range m.finders[1:] {
		wg.Add(1)
		go func(delay time.Duration, f Finder) {
			defer wg.Done()

			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return
			}

			ch, err := f.Find(ctx)
			if err != nil {
				m.logger.Warn("finder failed to start", zap.Error(err))
				return
			}
			forward(ch)
		}(time.Duration(i+1)*m.cfg.Stagger, finder)
	}

	go func() {
		wg.Wait()
		close(out)
	}()

	return out, nil
}
