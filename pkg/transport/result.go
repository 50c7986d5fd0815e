package transport

import "fmt"

// Reason classifies why a credential delivery failed.
type Reason uint8

const (
	// ReasonNone - no failure recorded.
	ReasonNone Reason = iota

	// ReasonUnreachable - the device could not be reached on this channel.
	ReasonUnreachable

	// ReasonRejected - the device refused the submitted credentials.
	ReasonRejected

	// ReasonTimeout - the device did not answer within the allowed window.
	ReasonTimeout

	// ReasonProtocol - the device answered in a shape this library does
	// not understand.
	ReasonProtocol
)

// String returns the reason name.
func (r Reason) String() string {
	switch r {
	case ReasonNone:
		return "NONE"
	case ReasonUnreachable:
		return "UNREACHABLE"
	case ReasonRejected:
		return "REJECTED"
	case ReasonTimeout:
		return "TIMEOUT"
	case ReasonProtocol:
		return "PROTOCOL"
	default:
		return "UNKNOWN"
	}
}

// Result is the outcome of one credential delivery attempt. Exactly one of
// three shapes occurs: success with a device address, success without one,
// or failure with a Reason.
type Result struct {
	// OK is true when the device acknowledged, or plausibly accepted,
	// the credentials.
	OK bool

	// Address is the device's network address when the channel learned
	// it during delivery, "" otherwise.
	Address string

	// Reason classifies the failure when OK is false.
	Reason Reason

	// Err carries the underlying cause, when there is one.
	Err error
}

// Success builds a delivered result with no address information.
func Success() Result {
	return Result{OK: true}
}

// SuccessWithAddress builds a delivered result carrying the address the
// device reported during delivery.
func SuccessWithAddress(addr string) Result {
	return Result{OK: true, Address: addr}
}

// Failure builds a failed result. err may be nil when the reason alone
// describes the outcome.
func Failure(reason Reason, err error) Result {
	return Result{Reason: reason, Err: err}
}

// HasAddress reports whether the delivery produced a usable device address.
func (r Result) HasAddress() bool {
	return r.OK && r.Address != ""
}

// String renders the result for logs.
func (r Result) String() string {
	if r.OK {
		if r.Address != "" {
			return fmt.Sprintf("delivered (address %s)", r.Address)
		}
		return "delivered"
	}
	if r.Err != nil {
		return fmt.Sprintf("failed (%s): %v", r.Reason, r.Err)
	}
	return fmt.Sprintf("failed (%s)", r.Reason)
}
