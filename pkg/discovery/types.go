package discovery

import (
	"context"
	"net"
	"strconv"
	"strings"
)

// Service browsing constants.
const (
	// ServiceTypeLumina is the controller's own mDNS service type.
	ServiceTypeLumina = "_lumina._tcp"

	// ServiceTypeHTTP is the generic service type older firmware
	// registers.
	ServiceTypeHTTP = "_http._tcp"

	// Domain is the mDNS browse domain.
	Domain = "local."

	// DefaultPort is the controller's HTTP port.
	DefaultPort = 80
)

// Source identifies which finder produced a candidate.
type Source uint8

const (
	// SourceMDNS - the candidate came from an mDNS advertisement.
	SourceMDNS Source = iota

	// SourceSweep - the candidate came from an address sweep.
	SourceSweep
)

// String returns the source name.
func (s Source) String() string {
	switch s {
	case SourceMDNS:
		return "mdns"
	case SourceSweep:
		return "sweep"
	default:
		return "unknown"
	}
}

// Candidate is one address that might host a freshly joined controller.
// Candidates are leads for the verifier, not confirmed devices.
type Candidate struct {
	// Address is the candidate's host:port network address.
	Address string

	// Name is the advertised display name, when known.
	Name string

	// DeviceID is the advertised stable device identifier, when known.
	DeviceID string

	// Source records which finder produced the candidate.
	Source Source
}

// Finder yields controller candidates for one discovery pass.
type Finder interface {
	// Find starts a fresh discovery pass. The returned channel closes
	// when the pass finishes or ctx is done. Each call starts a new
	// pass; finders are restartable.
	Find(ctx context.Context) (<-chan Candidate, error)
}

// ServiceEntry is a transport-neutral mDNS service entry. Browser
// implementations convert their library's entries into this shape before
// candidate conversion, which keeps the conversion testable without
// multicast traffic.
type ServiceEntry struct {
	Instance string
	Service  string
	Domain   string
	Host     string
	Port     int
	Text     []string
	Addrs    []string
}

// ToCandidate converts a service entry to a Candidate. The second return
// is false when the entry carries no usable address.
func (e *ServiceEntry) ToCandidate() (Candidate, bool) {
	if len(e.Addrs) == 0 {
		return Candidate{}, false
	}

	port := e.Port
	if port == 0 {
		port = DefaultPort
	}

	txt := parseTXT(e.Text)
	name := txt["name"]
	if name == "" {
		name = e.Instance
	}

	return Candidate{
		Address:  net.JoinHostPort(e.Addrs[0], strconv.Itoa(port)),
		Name:     name,
		DeviceID: txt["mac"],
		Source:   SourceMDNS,
	}, true
}

// parseTXT splits "key=value" TXT strings into a map. Keys without a value
// map to "". Later duplicates win.
func parseTXT(text []string) map[string]string {
	out := make(map[string]string, len(text))
	for _, s := range text {
		if s == "" {
			continue
		}
		key, value, _ := strings.Cut(s, "=")
		out[key] = value
	}
	return out
}
