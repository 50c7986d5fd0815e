package softap

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/lumina-home/provision-go/pkg/transport"
)

// DefaultBaseURL is the controller AP's fixed gateway address.
const DefaultBaseURL = "http://4.3.2.1:80"

// Device endpoint paths.
const (
	settingsPath = "/settings/wifi"
	configPath   = "/json/cfg"
	statePath    = "/json/state"
	infoPath     = "/json/info"
)

// Client errors.
var (
	ErrInvalidBaseURL = errors.New("invalid base URL")
	ErrBadStatus      = errors.New("unexpected HTTP status")
)

// Config tunes the soft-AP client.
type Config struct {
	// BaseURL is the device AP's HTTP root. Defaults to DefaultBaseURL.
	BaseURL string

	// Timeout bounds each HTTP request against the device.
	Timeout time.Duration

	// Logger receives channel events. Defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultConfig returns the client defaults. The 10 second timeout matches
// the device firmware's own HTTP budget.
func DefaultConfig() Config {
	return Config{
		BaseURL: DefaultBaseURL,
		Timeout: 10 * time.Second,
	}
}

// Client speaks the device's configuration HTTP surface over its soft AP.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

var _ transport.Transport = (*Client)(nil)

// New creates a soft-AP client. Zero Config fields fall back to defaults.
func New(cfg Config) (*Client, error) {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = def.Timeout
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	u, err := url.Parse(cfg.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("%w: %q", ErrInvalidBaseURL, cfg.BaseURL)
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		logger:     cfg.Logger,
	}, nil
}

// Name identifies the channel in logs and session snapshots.
func (c *Client) Name() string {
	return "softap"
}

// Ping confirms the caller is actually associated with the device's access
// point by fetching its identity document.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.get(ctx, infoPath)
	if err != nil {
		return err
	}
	drainAndClose(resp)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}
	return nil
}

// SendCredentials delivers the credentials through the device's settings
// form and confirms them with a mandatory read-back of the saved config.
// A read-back mismatch means the device refused or mangled the submission.
func (c *Client) SendCredentials(ctx context.Context, creds transport.Credentials) transport.Result {
	form := url.Values{}
	form.Set("CS", creds.NetworkName())
	form.Set("PW", creds.Secret())
	form.Set("SV", "1")

	c.logger.Debug("posting credentials to device settings",
		zap.String("network", creds.NetworkName()),
		zap.String("fingerprint", creds.Fingerprint()))

	resp, err := c.postForm(ctx, settingsPath, form)
	if err != nil {
		return transport.Failure(reasonFromError(err), err)
	}
	drainAndClose(resp)

	// The device answers the settings form with 2xx, or a 3xx redirect
	// back to the settings page.
	if resp.StatusCode >= 400 {
		return transport.Failure(transport.ReasonProtocol,
			fmt.Errorf("%w: %s", ErrBadStatus, resp.Status))
	}

	saved, err := c.VerifySaved(ctx, creds)
	if err != nil {
		return transport.Failure(reasonFromError(err),
			fmt.Errorf("credentials delivered but read-back failed: %w", err))
	}
	if !saved {
		return transport.Failure(transport.ReasonRejected,
			errors.New("device did not persist the submitted network name"))
	}

	return transport.Success()
}

// VerifySaved reads the device's config back and reports whether the saved
// network name matches the submitted credentials.
func (c *Client) VerifySaved(ctx context.Context, creds transport.Credentials) (bool, error) {
	resp, err := c.get(ctx, configPath)
	if err != nil {
		return false, err
	}
	defer drainAndClose(resp)

	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}

	var cfg struct {
		Network struct {
			Instances []struct {
				SSID string `json:"ssid"`
			} `json:"ins"`
		} `json:"nw"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		return false, fmt.Errorf("failed to decode device config: %w", err)
	}

	for _, inst := range cfg.Network.Instances {
		if inst.SSID == creds.NetworkName() {
			return true, nil
		}
	}
	return false, nil
}

// Reboot instructs the device to restart and join the configured network.
// The device often drops the connection mid-response; that counts as
// delivered.
func (c *Client) Reboot(ctx context.Context) error {
	c.logger.Debug("sending reboot instruction")

	body := strings.NewReader(`{"rb":true}`)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+statePath, body)
	if err != nil {
		return fmt.Errorf("failed to build reboot request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if isConnectionDrop(err) {
			c.logger.Debug("connection dropped during reboot, treating as delivered")
			return nil
		}
		return fmt.Errorf("failed to send reboot: %w", err)
	}
	drainAndClose(resp)

	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: %s", ErrBadStatus, resp.Status)
	}
	return nil
}

// Close releases idle connections. Close is idempotent.
func (c *Client) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}

func (c *Client) postForm(ctx context.Context, path string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path,
		strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("device unreachable: %w", err)
	}
	return resp, nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("device unreachable: %w", err)
	}
	return resp, nil
}

// reasonFromError classifies a request error into a transport failure reason.
func reasonFromError(err error) transport.Reason {
	if errors.Is(err, context.DeadlineExceeded) {
		return transport.ReasonTimeout
	}
	var uerr *url.Error
	if errors.As(err, &uerr) && uerr.Timeout() {
		return transport.ReasonTimeout
	}
	return transport.ReasonUnreachable
}

// isConnectionDrop reports whether err looks like the device cutting the
// connection while rebooting. A timeout counts: the device may power-cycle
// before finishing the response.
func isConnectionDrop(err error) bool {
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}
	var uerr *url.Error
	if errors.As(err, &uerr) {
		if uerr.Timeout() {
			return true
		}
		if errors.Is(uerr.Err, io.EOF) || errors.Is(uerr.Err, io.ErrUnexpectedEOF) {
			return true
		}
		msg := uerr.Err.Error()
		return strings.Contains(msg, "connection reset") || strings.Contains(msg, "broken pipe")
	}
	return false
}

// drainAndClose finishes a response body so the connection can be reused.
func drainAndClose(resp *http.Response) {
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
