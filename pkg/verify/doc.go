// Package verify confirms that a network address belongs to a reachable
// addressable-LED controller.
//
// A probe fetches the device's identity document and accepts the address
// only when the response carries a controller's shape: a non-empty name and
// a positive LED count. Anything else answering HTTP at that address is
// reported as ErrNotController so callers keep scanning instead of
// recording a stranger.
package verify
