package verify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// infoPath is the device identity endpoint.
const infoPath = "/json/info"

// Verifier errors.
var (
	// ErrNotController marks an address that answered HTTP without a
	// controller's identity shape.
	ErrNotController = errors.New("address does not answer as a controller")
)

// Identity is a controller's self-description.
type Identity struct {
	// DeviceID is the stable device identifier (the mac field).
	DeviceID string

	// Name is the device's configured display name.
	Name string

	// Firmware is the firmware version string, when reported.
	Firmware string

	// Brand is the firmware brand, when reported.
	Brand string

	// LEDCount is the configured strip length.
	LEDCount int
}

// Config tunes the verifier.
type Config struct {
	// Timeout bounds each probe.
	Timeout time.Duration

	// Logger receives probe events. Defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultConfig returns the verifier defaults.
func DefaultConfig() Config {
	return Config{
		Timeout: 12 * time.Second,
	}
}

// Verifier probes candidate addresses for a live controller.
type Verifier struct {
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a verifier. Zero Config fields fall back to defaults.
func New(cfg Config) *Verifier {
	def := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Verifier{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}
}

// Probe fetches the identity document at address. It returns the parsed
// Identity on success, ErrNotController when something other than a
// controller answered, and a wrapped transport error when nothing answered
// at all.
func (v *Verifier) Probe(ctx context.Context, address string) (Identity, error) {
	u := "http://" + NormalizeAddress(address) + infoPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to build probe request: %w", err)
	}

	resp, err := v.httpClient.Do(req)
	if err != nil {
		return Identity{}, fmt.Errorf("probe %s: %w", address, err)
	}
	defer func() {
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		v.logger.Debug("probe answered with non-OK status",
			zap.String("address", address),
			zap.Int("status", resp.StatusCode))
		return Identity{}, fmt.Errorf("%w: status %s", ErrNotController, resp.Status)
	}

	var info struct {
		Name  string `json:"name"`
		Ver   string `json:"ver"`
		MAC   string `json:"mac"`
		Brand string `json:"brand"`
		LEDs  struct {
			Count int `json:"count"`
		} `json:"leds"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrNotController, err)
	}

	// A controller identifies itself with a name and a strip length.
	if info.Name == "" || info.LEDs.Count <= 0 {
		return Identity{}, fmt.Errorf("%w: name %q, led count %d",
			ErrNotController, info.Name, info.LEDs.Count)
	}

	id := Identity{
		DeviceID: info.MAC,
		Name:     info.Name,
		Firmware: info.Ver,
		Brand:    info.Brand,
		LEDCount: info.LEDs.Count,
	}

	v.logger.Debug("probe identified controller",
		zap.String("address", address),
		zap.String("device_id", id.DeviceID),
		zap.String("name", id.Name))

	return id, nil
}

// NormalizeAddress completes a bare host with the device HTTP port.
func NormalizeAddress(address string) string {
	address = strings.TrimPrefix(address, "http://")
	address = strings.TrimSuffix(address, "/")
	if _, _, err := net.SplitHostPort(address); err != nil {
		return net.JoinHostPort(address, "80")
	}
	return address
}
