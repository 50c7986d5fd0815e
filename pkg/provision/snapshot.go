package provision

import (
	"time"

	"github.com/google/uuid"
)

// Snapshot is one observable point-in-time view of a session. Snapshots are
// value copies; holding one never blocks the state machine.
type Snapshot struct {
	// SessionID identifies the session across its snapshots.
	SessionID uuid.UUID

	// State is the session state at snapshot time.
	State State

	// Transport names the credential channel once it is established.
	Transport string

	// NetworkName is the target network once credentials are submitted.
	NetworkName string

	// CredentialAttempt counts credential submissions, starting at 1
	// when the session first reaches StateConnected.
	CredentialAttempt int

	// DiscoveryAttempt counts discovery passes within the session.
	DiscoveryAttempt int

	// Address is the candidate or verified device address, when known.
	Address string

	// DeviceID is the stable device identifier once verified.
	DeviceID string

	// Forced is true when the record was persisted through ForceAccept,
	// skipping verification.
	Forced bool

	// LastErr is the most recent failure, nil after a fresh success.
	LastErr error

	// Message is operator-facing guidance for the current state. It
	// describes what to do next, never a raw transport error.
	Message string

	// StartedAt is when the session was created.
	StartedAt time.Time

	// UpdatedAt is when this snapshot was taken.
	UpdatedAt time.Time
}

// snapshotBuffer is the per-subscriber channel depth. A slow consumer loses
// oldest snapshots, never the state machine's progress.
const snapshotBuffer = 16

// publisher fans session snapshots out to subscribers.
type publisher struct {
	subs   []chan Snapshot
	closed bool
}

// subscribe registers a new subscriber and primes it with the current
// snapshot so late subscribers still observe the present state.
func (p *publisher) subscribe(current Snapshot) <-chan Snapshot {
	ch := make(chan Snapshot, snapshotBuffer)
	ch <- current
	if p.closed {
		close(ch)
		return ch
	}
	p.subs = append(p.subs, ch)
	return ch
}

// publish delivers a snapshot to every subscriber, dropping the oldest
// buffered snapshot when a subscriber is full.
func (p *publisher) publish(snap Snapshot) {
	for _, ch := range p.subs {
		select {
		case ch <- snap:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- snap:
			default:
			}
		}
	}
}

// close ends all subscriber streams.
func (p *publisher) close() {
	if p.closed {
		return
	}
	p.closed = true
	for _, ch := range p.subs {
		close(ch)
	}
	p.subs = nil
}
