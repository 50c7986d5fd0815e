package registry

import (
	"time"

	"github.com/google/uuid"
)

// Record is the durable entity for one provisioned controller.
//
// DeviceID is the stable identifier (the device's MAC); everything else
// is mutable metadata on it. Address changes across DHCP leases,
// Configured records whether the address was positively verified, and a
// force-accepted record keeps Configured false so it stays
// distinguishable from a verified one.
type Record struct {
	// ID is the record's own identity, assigned on first save.
	ID uuid.UUID `json:"id"`

	// OwnerID scopes the record to an owning account. Empty in
	// single-user deployments.
	OwnerID string `json:"owner_id,omitempty"`

	// DeviceID is the stable device identifier records are keyed by.
	DeviceID string `json:"device_id"`

	// Address is the controller's last known host:port address.
	Address string `json:"address"`

	// Name is the controller's human-readable name, when known.
	Name string `json:"name,omitempty"`

	// NetworkName is the network the controller was configured onto.
	NetworkName string `json:"network_name,omitempty"`

	// CredentialFingerprint identifies which credentials were delivered
	// without storing the secret.
	CredentialFingerprint string `json:"credential_fingerprint,omitempty"`

	// Firmware is the reported firmware version, when known.
	Firmware string `json:"firmware,omitempty"`

	// Brand is the reported firmware brand, when known.
	Brand string `json:"brand,omitempty"`

	// Configured is true iff the address was verified to belong to this
	// controller. Force-accepted records carry false.
	Configured bool `json:"configured"`

	// CreatedAt is when the record was first persisted.
	CreatedAt time.Time `json:"created_at"`

	// UpdatedAt is when the record was last written.
	UpdatedAt time.Time `json:"updated_at"`
}
