package provision

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/lumina-home/provision-go/pkg/discovery"
	"github.com/lumina-home/provision-go/pkg/registry"
	"github.com/lumina-home/provision-go/pkg/transport"
	"github.com/lumina-home/provision-go/pkg/verify"
)

// Session errors. The first five form the failure taxonomy surfaced through
// snapshots; the rest guard the session API.
var (
	// ErrConnectionFailure - the credential channel could not be
	// established or broke down mid-delivery.
	ErrConnectionFailure = errors.New("could not reach the device")

	// ErrCredentialRejected - the device refused, or failed to persist,
	// the submitted credentials.
	ErrCredentialRejected = errors.New("device rejected the credentials")

	// ErrDiscoveryTimeout - the device never appeared on the home network
	// within the discovery budget.
	ErrDiscoveryTimeout = errors.New("device did not appear on the network")

	// ErrVerificationMismatch - an address answered, but not as the
	// expected controller.
	ErrVerificationMismatch = errors.New("address did not answer as a controller")

	// ErrPersistenceFailure - the device is reachable but its record
	// could not be written. Retry with RetryPersist.
	ErrPersistenceFailure = errors.New("could not save the device record")

	ErrAlreadyStarted = errors.New("session already started")
	ErrNotStarted     = errors.New("session not started")
	ErrInvalidState   = errors.New("operation not valid in current session state")
	ErrInputPending   = errors.New("previous operator input still pending")
	ErrInvalidConfig  = errors.New("invalid session configuration")
)

// State represents the session state.
type State uint8

const (
	// StateIdle - session created but not started.
	StateIdle State = iota

	// StateScanning - establishing the credential channel.
	StateScanning

	// StateConnected - channel up, waiting for operator credentials.
	StateConnected

	// StateSendingCredentials - credential delivery in flight.
	StateSendingCredentials

	// StateAwaitingReboot - credentials delivered; the device is
	// rebooting onto the target network.
	StateAwaitingReboot

	// StateDiscovering - a discovery pass is running.
	StateDiscovering

	// StateVerifying - probing one candidate address.
	StateVerifying

	// StateSucceeded - record persisted; terminal.
	StateSucceeded

	// StateManualFallback - automated discovery gave up; waiting for an
	// operator-supplied address.
	StateManualFallback

	// StateFailed - attempt exhausted; terminal.
	StateFailed

	// StateCancelled - operator cancelled; terminal, distinct from
	// StateFailed.
	StateCancelled

	// StatePersistFailed - the device verified but the registry write
	// failed. Only RetryPersist or Cancel leave this state.
	StatePersistFailed
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateScanning:
		return "SCANNING"
	case StateConnected:
		return "CONNECTED"
	case StateSendingCredentials:
		return "SENDING_CREDENTIALS"
	case StateAwaitingReboot:
		return "AWAITING_REBOOT"
	case StateDiscovering:
		return "DISCOVERING"
	case StateVerifying:
		return "VERIFYING"
	case StateSucceeded:
		return "SUCCEEDED"
	case StateManualFallback:
		return "MANUAL_FALLBACK"
	case StateFailed:
		return "FAILED"
	case StateCancelled:
		return "CANCELLED"
	case StatePersistFailed:
		return "PERSIST_FAILED"
	default:
		return "UNKNOWN"
	}
}

// Terminal reports whether the state ends the session. StatePersistFailed is
// not terminal: the verified outcome is still recoverable via RetryPersist.
func (s State) Terminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// DialFunc establishes the credential channel for one session. PairingDial
// and SoftAPDial build the two production channels; tests inject fakes.
type DialFunc func(ctx context.Context) (transport.Transport, error)

// Prober verifies that an address answers as a live controller.
// *verify.Verifier is the production implementation.
type Prober interface {
	Probe(ctx context.Context, address string) (verify.Identity, error)
}

// rebooter is implemented by channels that need an explicit restart
// instruction after credential delivery (the soft-AP path).
type rebooter interface {
	Reboot(ctx context.Context) error
}

// Config configures a provisioning session.
type Config struct {
	// Dial establishes the credential channel. Required.
	Dial DialFunc

	// Finder produces controller candidates on the home network. Required.
	Finder discovery.Finder

	// Prober verifies candidate addresses. Required.
	Prober Prober

	// Store persists the final record. Required.
	Store registry.Store

	// OwnerID scopes persisted records to an owning account. Optional.
	OwnerID string

	// CredentialAttempts bounds how often the operator may resubmit
	// credentials after a rejection before the session fails.
	CredentialAttempts int

	// SettleDelay is the wait after credential delivery before discovery
	// starts. The device needs it to leave its own AP, join the target
	// network and obtain a lease; discovering earlier burns discovery
	// attempts on a device that is still booting.
	SettleDelay time.Duration

	// DiscoveryAttempts bounds consecutive empty discovery passes before
	// the session offers manual fallback.
	DiscoveryAttempts int

	// DiscoveryWindow bounds each discovery pass.
	DiscoveryWindow time.Duration

	// DiscoveryRetryWaits are the waits before discovery passes 2..N.
	// The last entry repeats when there are more passes than entries.
	DiscoveryRetryWaits []time.Duration

	// ManualVerifyAttempts bounds verification retries of one
	// operator-supplied address before the session fails.
	ManualVerifyAttempts int

	// ManualVerifyDelay separates those retries; the device may still be
	// finishing its boot.
	ManualVerifyDelay time.Duration

	// Logger receives session events. Defaults to a no-op logger.
	Logger *zap.Logger

	// Metrics receives session counters. Optional.
	Metrics *Metrics
}

// DefaultConfig returns the session policy defaults.
func DefaultConfig() Config {
	return Config{
		CredentialAttempts:   3,
		SettleDelay:          10 * time.Second,
		DiscoveryAttempts:    3,
		DiscoveryWindow:      10 * time.Second,
		DiscoveryRetryWaits:  []time.Duration{2 * time.Second, 10 * time.Second},
		ManualVerifyAttempts: 3,
		ManualVerifyDelay:    10 * time.Second,
	}
}
