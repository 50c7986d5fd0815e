// Package discovery finds freshly joined controllers on the home network.
//
// A Finder yields Candidates: addresses that might host the controller the
// orchestrator just provisioned. Candidates are leads, not answers; the
// verify package decides which one is the device.
//
// Two finders are provided. MDNSFinder browses the controller's own
// service type with a generic HTTP fallback for older firmware.
// SweepFinder walks the local /24 with rate-limited ICMP probes and a port
// knock for networks where multicast is filtered. MultiFinder runs several
// finders as one, deduplicating by address.
package discovery
