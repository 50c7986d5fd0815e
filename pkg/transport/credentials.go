package transport

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"
)

// Credential limits, matching the controller firmware's config buffers.
const (
	// MaxNetworkNameLen is the longest accepted network name in bytes.
	MaxNetworkNameLen = 32

	// MaxSecretLen is the longest accepted network secret in bytes.
	MaxSecretLen = 64

	// FingerprintSize is the number of derived bytes in a credential
	// fingerprint (rendered as hex, so twice as many characters).
	FingerprintSize = 16
)

// Credential errors.
var (
	ErrEmptyNetworkName   = errors.New("network name is empty")
	ErrNetworkNameTooLong = errors.New("network name too long")
	ErrSecretTooLong      = errors.New("network secret too long")
)

// fingerprintInfo is the fixed HKDF info string for credential fingerprints.
var fingerprintInfo = []byte("lumina-credential-fingerprint-v1")

// Credentials carries the network name and secret handed to a controller.
// The zero value is not valid; build one with NewCredentials. The secret is
// never exposed through String or Fingerprint.
type Credentials struct {
	networkName string
	secret      string
}

// NewCredentials validates and builds a credential pair. The secret may be
// empty (open network); the network name may not.
func NewCredentials(networkName, secret string) (Credentials, error) {
	if networkName == "" {
		return Credentials{}, ErrEmptyNetworkName
	}
	if len(networkName) > MaxNetworkNameLen {
		return Credentials{}, fmt.Errorf("%w: %d > %d bytes", ErrNetworkNameTooLong, len(networkName), MaxNetworkNameLen)
	}
	if len(secret) > MaxSecretLen {
		return Credentials{}, fmt.Errorf("%w: %d > %d bytes", ErrSecretTooLong, len(secret), MaxSecretLen)
	}
	return Credentials{networkName: networkName, secret: secret}, nil
}

// NetworkName returns the network name (SSID).
func (c Credentials) NetworkName() string {
	return c.networkName
}

// Secret returns the network secret. Callers must not log it.
func (c Credentials) Secret() string {
	return c.secret
}

// Fingerprint derives a stable identifier for this credential pair:
// HKDF-SHA256 with the secret as input keying material and the network name
// as salt, truncated to FingerprintSize bytes and hex encoded. The same
// inputs produce the same fingerprint across runs and hosts.
func (c Credentials) Fingerprint() string {
	r := hkdf.New(sha256.New, []byte(c.secret), []byte(c.networkName), fingerprintInfo)
	buf := make([]byte, FingerprintSize)
	// A FingerprintSize read is always within the HKDF output limit.
	_, _ = io.ReadFull(r, buf)
	return hex.EncodeToString(buf)
}

// String renders the credentials with the secret redacted.
func (c Credentials) String() string {
	return fmt.Sprintf("Credentials(network=%q, fingerprint=%s)", c.networkName, c.Fingerprint())
}
