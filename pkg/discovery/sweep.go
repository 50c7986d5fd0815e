package discovery

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"sync"
	"time"

	probing "github.com/prometheus-community/pro-bing"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// maxSweepHosts caps how many addresses a single sweep may probe. A /24
// fits comfortably; anything larger is a misconfigured CIDR.
const maxSweepHosts = 1024

var (
	// ErrNoSubnet indicates that no sweepable IPv4 subnet could be
	// determined from the local interfaces.
	ErrNoSubnet = errors.New("discovery: no local IPv4 subnet found")

	// ErrSubnetTooLarge indicates the configured CIDR expands to more
	// hosts than a sweep is willing to probe.
	ErrSubnetTooLarge = errors.New("discovery: subnet too large to sweep")
)

// SweepConfig configures a SweepFinder.
type SweepConfig struct {
	// CIDR is the subnet to sweep, e.g. "192.168.1.0/24". Empty means
	// the subnet of the first usable local interface.
	CIDR string

	// Port is the TCP port knocked on hosts that answer the ping.
	// Defaults to DefaultPort.
	Port int

	// Concurrency bounds how many hosts are probed at once.
	Concurrency int

	// ProbeTimeout bounds the ICMP probe per host.
	ProbeTimeout time.Duration

	// KnockTimeout bounds the TCP connect per host.
	KnockTimeout time.Duration

	// RatePerSecond caps how many probes are started per second, so a
	// sweep does not flood consumer access points.
	RatePerSecond int

	// Logger receives sweep events. Defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultSweepConfig returns the sweep defaults.
func DefaultSweepConfig() SweepConfig {
	return SweepConfig{
		Port:          DefaultPort,
		Concurrency:   32,
		ProbeTimeout:  time.Second,
		KnockTimeout:  time.Second,
		RatePerSecond: 64,
	}
}

// SweepFinder probes a subnet for hosts that answer a ping and accept a
// TCP connection on the controller port. It is the fallback when a
// controller joins the network without announcing itself over mDNS.
type SweepFinder struct {
	cfg     SweepConfig
	limiter *rate.Limiter
	logger  *zap.Logger

	// probe reports whether a host answers an ICMP echo. Swappable so
	// tests can sweep loopback without raw sockets.
	probe func(ctx context.Context, host string) bool
}

var _ Finder = (*SweepFinder)(nil)

// NewSweepFinder creates a sweep finder. Zero SweepConfig fields fall
// back to defaults.
func NewSweepFinder(cfg SweepConfig) *SweepFinder {
	def := DefaultSweepConfig()
	if cfg.Port <= 0 {
		cfg.Port = def.Port
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = def.Concurrency
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = def.ProbeTimeout
	}
	if cfg.KnockTimeout <= 0 {
		cfg.KnockTimeout = def.KnockTimeout
	}
	if cfg.RatePerSecond <= 0 {
		cfg.RatePerSecond = def.RatePerSecond
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	f := &SweepFinder{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RatePerSecond),
		logger:  cfg.Logger,
	}
	f.probe = f.icmpProbe
	return f
}

// Find sweeps the subnet and emits one candidate per host that answers
// the ping and accepts the TCP knock. The channel closes once every
// host has been probed or ctx ends.
func (f *SweepFinder) Find(ctx context.Context) (<-chan Candidate, error) {
	subnet, err := f.subnet()
	if err != nil {
		return nil, err
	}

	hosts, err := expandHosts(subnet)
	if err != nil {
		return nil, err
	}

	f.logger.Info("starting subnet sweep",
		zap.String("subnet", subnet.String()),
		zap.Int("hosts", len(hosts)),
		zap.Int("port", f.cfg.Port))

	out := make(chan Candidate)

	go func() {
		defer close(out)

		var wg sync.WaitGroup
		sem := make(chan struct{}, f.cfg.Concurrency)

		for _, host := range hosts {
			if err := f.limiter.Wait(ctx); err != nil {
				break
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
			}
			if ctx.Err() != nil {
				break
			}

			wg.Add(1)
			go func(host string) {
				defer wg.Done()
				defer func() { <-sem }()

				if !f.probe(ctx, host) {
					return
				}
				if !f.knock(ctx, host) {
					return
				}

				addr := net.JoinHostPort(host, strconv.Itoa(f.cfg.Port))
				f.logger.Debug("sweep candidate", zap.String("address", addr))

				select {
				case out <- Candidate{Address: addr, Source: SourceSweep}:
				case <-ctx.Done():
				}
			}(host)
		}

		wg.Wait()
	}()

	return out, nil
}

// subnet resolves the configured CIDR, or the local one when unset.
func (f *SweepFinder) subnet() (*net.IPNet, error) {
	if f.cfg.CIDR == "" {
		return localSubnet()
	}

	_, subnet, err := net.ParseCIDR(f.cfg.CIDR)
	if err != nil {
		return nil, fmt.Errorf("discovery: invalid sweep CIDR %q: %w", f.cfg.CIDR, err)
	}
	return subnet, nil
}

// icmpProbe sends a single unprivileged echo request to the host.
func (f *SweepFinder) icmpProbe(ctx context.Context, host string) bool {
	pinger, err := probing.NewPinger(host)
	if err != nil {
		return false
	}

	pinger.Count = 1
	pinger.Timeout = f.cfg.ProbeTimeout
	pinger.SetPrivileged(false)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = pinger.Run()
	}()

	select {
	case <-done:
	case <-ctx.Done():
		pinger.Stop()
		return false
	}

	return pinger.Statistics().PacketsRecv > 0
}

// knock attempts a TCP connection to the controller port.
func (f *SweepFinder) knock(ctx context.Context, host string) bool {
	addr := net.JoinHostPort(host, strconv.Itoa(f.cfg.Port))
	d := net.Dialer{Timeout: f.cfg.KnockTimeout}
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return false
	}
	conn.Close()
	return true
}

// localSubnet returns the subnet of the first non-loopback interface
// with an IPv4 address.
func localSubnet() (*net.IPNet, error) {
	ifaces, err := net.Interfaces()
	if err != nil {
		return nil, fmt.Errorf("discovery: listing interfaces: %w", err)
	}

	for _, iface := range ifaces {
		if iface.Flags&net.FlagUp == 0 || iface.Flags&net.FlagLoopback != 0 {
			continue
		}

		addrs, err := iface.Addrs()
		if err != nil {
			continue
		}

		for _, addr := range addrs {
			ipNet, ok := addr.(*net.IPNet)
			if !ok || ipNet.IP.To4() == nil {
				continue
			}
			return &net.IPNet{
				IP:   ipNet.IP.Mask(ipNet.Mask),
				Mask: ipNet.Mask,
			}, nil
		}
	}

	return nil, ErrNoSubnet
}

// expandHosts lists the host addresses of a subnet, excluding the
// network and broadcast addresses.
func expandHosts(subnet *net.IPNet) ([]string, error) {
	ones, bits := subnet.Mask.Size()
	if bits != 32 {
		return nil, fmt.Errorf("discovery: sweep requires an IPv4 subnet, got %s", subnet)
	}

	hostBits := bits - ones
	total := 1 << hostBits
	if total-2 > maxSweepHosts {
		return nil, fmt.Errorf("%w: %s has %d hosts", ErrSubnetTooLarge, subnet, total-2)
	}

	// A /31 or /32 has no usable host range in the classic sense; probe
	// the addresses as given.
	if hostBits < 2 {
		var hosts []string
		for i := 0; i < total; i++ {
			hosts = append(hosts, offsetIP(subnet.IP, i).String())
		}
		return hosts, nil
	}

	hosts := make([]string, 0, total-2)
	for i := 1; i < total-1; i++ {
		hosts = append(hosts, offsetIP(subnet.IP, i).String())
	}
	return hosts, nil
}

// offsetIP returns base+offset as a 4-byte IP.
func offsetIP(base net.IP, offset int) net.IP {
	ip := make(net.IP, 4)
	copy(ip, base.To4())

	carry := offset
	for i := 3; i >= 0 && carry > 0; i-- {
		val := int(ip[i]) + carry
		ip[i] = byte(val % 256)
		carry = val / 256
	}
	return ip
}
