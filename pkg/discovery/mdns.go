package discovery

import (
	"context"
	"net"
	"time"

	"github.com/enbility/zeroconf/v3"
	"go.uber.org/zap"
)

// MDNSConfig configures an MDNSFinder.
type MDNSConfig struct {
	// Service is the primary service type to browse.
	// Defaults to ServiceTypeLumina.
	Service string

	// Fallback is a second service type browsed when the primary stays
	// silent for FallbackDelay. Empty disables the fallback.
	Fallback string

	// FallbackDelay is how long the primary browse may stay silent
	// before the fallback browse starts alongside it.
	FallbackDelay time.Duration

	// Interface restricts browsing to one network interface.
	// Empty string means all interfaces.
	Interface string

	// Logger receives browse events. Defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultMDNSConfig returns the mDNS finder defaults.
func DefaultMDNSConfig() MDNSConfig {
	return MDNSConfig{
		Service:       ServiceTypeLumina,
		Fallback:      ServiceTypeHTTP,
		FallbackDelay: 3 * time.Second,
	}
}

// MDNSFinder discovers controllers through their mDNS advertisements.
type MDNSFinder struct {
	cfg    MDNSConfig
	logger *zap.Logger
}

var _ Finder = (*MDNSFinder)(nil)

// NewMDNSFinder creates an mDNS finder. Zero MDNSConfig fields fall back
// to defaults.
func NewMDNSFinder(cfg MDNSConfig) *MDNSFinder {
	def := DefaultMDNSConfig()
	if cfg.Service == "" {
		cfg.Service = def.Service
	}
	if cfg.FallbackDelay <= 0 {
		cfg.FallbackDelay = def.FallbackDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &MDNSFinder{cfg: cfg, logger: cfg.Logger}
}

// Find browses the primary service type and, when it stays silent past the
// fallback delay, the fallback type as well. Entries from every interface
// are deduplicated by instance name. The channel closes when ctx ends.
func (f *MDNSFinder) Find(ctx context.Context) (<-chan Candidate, error) {
	out := make(chan Candidate)
	merged := make(chan *zeroconf.ServiceEntry)
	opts := f.browserOptions()

	// Each browse owns its channels; zeroconf closes them on return.
	// Forwarders funnel entries into merged, which never closes: the
	// consumer loop ends with ctx instead.
	startBrowse := func(service string) {
		entries := make(chan *zeroconf.ServiceEntry)
		removed := make(chan *zeroconf.ServiceEntry)

		go func() {
			_ = zeroconf.Browse(ctx, service, Domain, entries, removed, opts...)
		}()
		go func() {
			// A single pass only collects; departures are the
			// verifier's problem.
			for range removed {
			}
		}()
		go func() {
			for entry := range entries {
				select {
				case merged <- entry:
				case <-ctx.Done():
				}
			}
		}()
	}

	startBrowse(f.cfg.Service)

	go func() {
		defer close(out)

		var fallbackCh <-chan time.Time
		if f.cfg.Fallback != "" {
			timer := time.NewTimer(f.cfg.FallbackDelay)
			defer timer.Stop()
			fallbackCh = timer.C
		}

		// Track emitted instances; multiple interfaces repeat entries.
		seen := make(map[string]bool)

		for {
			select {
			case entry := <-merged:
				if entry == nil || seen[entry.Instance] {
					continue
				}
				seen[entry.Instance] = true

				cand, ok := entryToServiceEntry(entry).ToCandidate()
				if !ok {
					continue
				}
				f.logger.Debug("mdns candidate",
					zap.String("instance", entry.Instance),
					zap.String("address", cand.Address))

				select {
				case out <- cand:
				case <-ctx.Done():
					return
				}

			case <-fallbackCh:
				fallbackCh = nil
				if len(seen) > 0 {
					continue
				}
				f.logger.Debug("primary service silent, browsing fallback",
					zap.String("service", f.cfg.Fallback))
				startBrowse(f.cfg.Fallback)

			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// browserOptions returns zeroconf client options based on config.
func (f *MDNSFinder) browserOptions() []zeroconf.ClientOption {
	var opts []zeroconf.ClientOption

	if f.cfg.Interface != "" {
		iface, err := net.InterfaceByName(f.cfg.Interface)
		if err == nil {
			opts = append(opts, zeroconf.SelectIfaces([]net.Interface{*iface}))
		}
	}

	return opts
}

// entryToServiceEntry flattens a zeroconf entry, IPv4 addresses first.
func entryToServiceEntry(entry *zeroconf.ServiceEntry) *ServiceEntry {
	addrs := make([]string, 0, len(entry.AddrIPv4)+len(entry.AddrIPv6))
	for _, ip := range entry.AddrIPv4 {
		addrs = append(addrs, ip.String())
	}
	for _, ip := range entry.AddrIPv6 {
		addrs = append(addrs, ip.String())
	}

	return &ServiceEntry{
		Instance: entry.Instance,
		Service:  entry.Service,
		Domain:   entry.Domain,
		Host:     entry.HostName,
		Port:     entry.Port,
		Text:     entry.Text,
		Addrs:    addrs,
	}
}
