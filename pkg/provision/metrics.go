package provision

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics carries the session counters. One Metrics value is shared by all
// sessions of a process; a nil *Metrics disables instrumentation.
type Metrics struct {
	SessionsStarted      prometheus.Counter
	SessionsSucceeded    prometheus.Counter
	SessionsFailed       prometheus.Counter
	SessionsCancelled    prometheus.Counter
	CredentialRejections prometheus.Counter
	DiscoveryPasses      prometheus.Counter
	CandidatesVerified   prometheus.Counter
	ForcedRecords        prometheus.Counter
}

// NewMetrics builds and registers the session counters. reg may be nil to
// use the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		SessionsStarted: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "lumina",
			Subsystem: "provision",
			Name:      "sessions_started_total",
			Help:      "Provisioning sessions started.",
		}),
		SessionsSucceeded: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "lumina",
			Subsystem: "provision",
			Name:      "sessions_succeeded_total",
			Help:      "Provisioning sessions that persisted a record.",
		}),
		SessionsFailed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "lumina",
			Subsystem: "provision",
			Name:      "sessions_failed_total",
			Help:      "Provisioning sessions that ended in failure.",
		}),
		SessionsCancelled: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "lumina",
			Subsystem: "provision",
			Name:      "sessions_cancelled_total",
			Help:      "Provisioning sessions cancelled by the operator.",
		}),
		CredentialRejections: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "lumina",
			Subsystem: "provision",
			Name:      "credential_rejections_total",
			Help:      "Credential submissions the device rejected.",
		}),
		DiscoveryPasses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "lumina",
			Subsystem: "provision",
			Name:      "discovery_passes_total",
			Help:      "Discovery passes run across all sessions.",
		}),
		CandidatesVerified: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "lumina",
			Subsystem: "provision",
			Name:      "candidates_verified_total",
			Help:      "Candidate addresses that verified as controllers.",
		}),
		ForcedRecords: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "lumina",
			Subsystem: "provision",
			Name:      "forced_records_total",
			Help:      "Records persisted unverified through force accept.",
		}),
	}
}

func (m *Metrics) incStarted() {
	if m != nil {
		m.SessionsStarted.Inc()
	}
}

func (m *Metrics) incSucceeded() {
	if m != nil {
		m.SessionsSucceeded.Inc()
	}
}

func (m *Metrics) incFailed() {
	if m != nil {
		m.SessionsFailed.Inc()
	}
}

func (m *Metrics) incCancelled() {
	if m != nil {
		m.SessionsCancelled.Inc()
	}
}

func (m *Metrics) incCredentialRejection() {
	if m != nil {
		m.CredentialRejections.Inc()
	}
}

func (m *Metrics) incDiscoveryPass() {
	if m != nil {
		m.DiscoveryPasses.Inc()
	}
}

func (m *Metrics) incCandidateVerified() {
	if m != nil {
		m.CandidatesVerified.Inc()
	}
}

func (m *Metrics) incForced() {
	if m != nil {
		m.ForcedRecords.Inc()
	}
}
