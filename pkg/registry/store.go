package registry

import (
	"context"
	"errors"
)

var (
	// ErrNotFound indicates no record exists for the device identifier.
	ErrNotFound = errors.New("registry: record not found")

	// ErrEmptyDeviceID indicates a record without a device identifier.
	ErrEmptyDeviceID = errors.New("registry: empty device identifier")
)

// Store persists controller records.
type Store interface {
	// Save upserts a record keyed by its DeviceID. Writes are
	// last-write-wins as a whole record, never merged field by field.
	// On first save the store assigns ID and CreatedAt; UpdatedAt is
	// stamped on every save unless the caller set it.
	Save(ctx context.Context, rec Record) error

	// Delete removes the record for the device identifier. Deleting an
	// absent record is not an error.
	Delete(ctx context.Context, deviceID string) error

	// Get returns the record for the device identifier, or ErrNotFound.
	Get(ctx context.Context, deviceID string) (Record, error)

	// Stream returns a snapshot of current records followed by live
	// updates as records are saved. ownerID filters to one owner; empty
	// means all records. Around the snapshot boundary a record may be
	// delivered twice; consumers key by DeviceID. The channel closes
	// when ctx ends.
	Stream(ctx context.Context, ownerID string) (<-chan Record, error)
}
