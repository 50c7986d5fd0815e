package provision

import (
	"context"

	"github.com/lumina-home/provision-go/pkg/pairing"
	"github.com/lumina-home/provision-go/pkg/softap"
	"github.com/lumina-home/provision-go/pkg/transport"
)

// PairingDial returns a DialFunc that opens the short-range pairing channel
// through the given device handle.
func PairingDial(handle pairing.DeviceHandle, cfg pairing.Config) DialFunc {
	return func(ctx context.Context) (transport.Transport, error) {
		return pairing.Dial(ctx, handle, cfg)
	}
}

// SoftAPDial returns a DialFunc for the device's own access point. The
// caller must already be associated with that access point; the session
// confirms the association by fetching the device's identity document.
func SoftAPDial(cfg softap.Config) DialFunc {
	return func(ctx context.Context) (transport.Transport, error) {
		client, err := softap.New(cfg)
		if err != nil {
			return nil, err
		}
		if err := client.Ping(ctx); err != nil {
			_ = client.Close()
			return nil, err
		}
		return client, nil
	}
}
