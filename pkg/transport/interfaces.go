package transport

import "context"

// Transport is one channel capable of delivering credentials to a
// factory-fresh controller. Implementations never retry internally; retry
// policy belongs to the caller.
type Transport interface {
	// Name identifies the channel ("pairing", "softap") in logs and
	// session snapshots.
	Name() string

	// SendCredentials delivers the credentials over this channel and
	// classifies the outcome. It blocks until the device answers, the
	// channel's grace window lapses, or ctx is done.
	SendCredentials(ctx context.Context, creds Credentials) Result

	// Close releases the underlying link. Close is idempotent.
	Close() error
}
