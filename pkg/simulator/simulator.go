package simulator

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/enbility/zeroconf/v3"
	"go.uber.org/zap"
)

// Simulator errors.
var (
	ErrAlreadyRunning = errors.New("simulator already running")
	ErrNotRunning     = errors.New("simulator not running")
)

// Config describes the simulated controller and its failure knobs.
type Config struct {
	// Name is the controller's display name.
	Name string

	// MAC is the stable device identifier it reports.
	MAC string

	// LEDCount is the reported strip length.
	LEDCount int

	// Firmware is the reported firmware version.
	Firmware string

	// PairingAddr and APAddr pin the listen addresses; empty picks a
	// free loopback port.
	PairingAddr string
	APAddr      string
	StationAddr string

	// BootDelay is how long the simulated reboot takes before the
	// station surface comes up.
	BootDelay time.Duration

	// RejectCredentials makes the device reject that many credential
	// deliveries before accepting one.
	RejectCredentials int

	// OmitResultChar drops the result characteristic from the pairing
	// describe response, forcing the delivered-unconfirmed path.
	OmitResultChar bool

	// PersistWrongSSID makes the soft-AP settings endpoint save a
	// mangled network name, so read-back verification fails.
	PersistWrongSSID bool

	// NeverJoin keeps the station surface down after reboot: the device
	// never appears on the network.
	NeverJoin bool

	// Advertise registers a _lumina._tcp mDNS service once joined.
	Advertise bool

	// Logger receives simulator events. Defaults to a no-op logger.
	Logger *zap.Logger
}

// DefaultConfig returns a plausible factory-fresh controller.
func DefaultConfig() Config {
	return Config{
		Name:      "Lumina-Setup",
		MAC:       "aa:bb:cc:dd:ee:01",
		LEDCount:  30,
		Firmware:  "0.14.1-sim",
		BootDelay: 500 * time.Millisecond,
	}
}

// Controller is one running simulated device.
type Controller struct {
	cfg    Config
	logger *zap.Logger

	mu              sync.Mutex
	running         bool
	savedSSID       string
	savedSecret     string
	rejectRemaining int
	rebooted        bool

	pairingLn  net.Listener
	apServer   *http.Server
	apLn       net.Listener
	stationSrv *http.Server
	stationLn  net.Listener
	mdnsServer *zeroconf.Server

	joinedCh  chan struct{}
	closeOnce sync.Once
	closed    chan struct{}
	wg        sync.WaitGroup
}

// New creates a controller. Zero Config fields fall back to defaults.
func New(cfg Config) *Controller {
	def := DefaultConfig()
	if cfg.Name == "" {
		cfg.Name = def.Name
	}
	if cfg.MAC == "" {
		cfg.MAC = def.MAC
	}
	if cfg.LEDCount <= 0 {
		cfg.LEDCount = def.LEDCount
	}
	if cfg.Firmware == "" {
		cfg.Firmware = def.Firmware
	}
	if cfg.BootDelay <= 0 {
		cfg.BootDelay = def.BootDelay
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	return &Controller{
		cfg:             cfg,
		logger:          cfg.Logger,
		rejectRemaining: cfg.RejectCredentials,
		joinedCh:        make(chan struct{}),
		closed:          make(chan struct{}),
	}
}

// Start brings up the pairing listener and the soft-AP HTTP surface.
func (c *Controller) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.running {
		return ErrAlreadyRunning
	}

	pairingAddr := c.cfg.PairingAddr
	if pairingAddr == "" {
		pairingAddr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", pairingAddr)
	if err != nil {
		return fmt.Errorf("failed to open pairing listener: %w", err)
	}
	c.pairingLn = ln

	apAddr := c.cfg.APAddr
	if apAddr == "" {
		apAddr = "127.0.0.1:0"
	}
	apLn, err := net.Listen("tcp", apAddr)
	if err != nil {
		ln.Close()
		return fmt.Errorf("failed to open AP listener: %w", err)
	}
	c.apLn = apLn
	c.apServer = &http.Server{Handler: c.apRouter()}

	c.running = true

	c.wg.Add(2)
	go func() {
		defer c.wg.Done()
		c.acceptPairing(ln)
	}()
	go func() {
		defer c.wg.Done()
		if err := c.apServer.Serve(apLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			c.logger.Debug("AP server stopped", zap.Error(err))
		}
	}()

	c.logger.Info("simulated controller started",
		zap.String("pairing", ln.Addr().String()),
		zap.String("ap", apLn.Addr().String()))
	return nil
}

// Stop tears the whole device down.
func (c *Controller) Stop() {
	c.closeOnce.Do(func() { close(c.closed) })

	c.mu.Lock()
	pairingLn := c.pairingLn
	apServer := c.apServer
	stationSrv := c.stationSrv
	mdns := c.mdnsServer
	c.pairingLn = nil
	c.apServer = nil
	c.stationSrv = nil
	c.mdnsServer = nil
	c.running = false
	c.mu.Unlock()

	if pairingLn != nil {
		pairingLn.Close()
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if apServer != nil {
		_ = apServer.Shutdown(shutdownCtx)
	}
	if stationSrv != nil {
		_ = stationSrv.Shutdown(shutdownCtx)
	}
	if mdns != nil {
		mdns.Shutdown()
	}
	c.wg.Wait()
}

// PairingAddr returns the pairing listener's address.
func (c *Controller) PairingAddr() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pairingLn == nil {
		return ""
	}
	return c.pairingLn.Addr().String()
}

// APBaseURL returns the soft-AP HTTP base URL.
func (c *Controller) APBaseURL() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.apLn == nil {
		return ""
	}
	return "http://" + c.apLn.Addr().String()
}

// StationAddress returns the station surface's host:port, "" until joined.
func (c *Controller) StationAddress() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.stationLn == nil {
		return ""
	}
	return c.stationLn.Addr().String()
}

// Joined closes once the device has joined the network and its station
// surface answers.
func (c *Controller) Joined() <-chan struct{} {
	return c.joinedCh
}

// SavedSSID returns what the device persisted from the last credential
// delivery.
func (c *Controller) SavedSSID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.savedSSID
}

// acceptCredentials applies one credential delivery against the rejection
// budget. It returns false when this delivery is scripted to be refused.
func (c *Controller) acceptCredentials(ssid, secret string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.rejectRemaining > 0 {
		c.rejectRemaining--
		c.logger.Debug("rejecting credentials",
			zap.String("ssid", ssid),
			zap.Int("rejections_left", c.rejectRemaining))
		return false
	}

	saved := ssid
	if c.cfg.PersistWrongSSID {
		// Mirrors firmware that mangles the stored value while still
		// answering the settings post with 200.
		saved = ssid + "-corrupt"
	}
	c.savedSSID = saved
	c.savedSecret = secret
	c.logger.Debug("credentials persisted", zap.String("ssid", saved))
	return true
}

// reboot tears down the setup surfaces and, after the boot delay, brings up
// the station surface on the home network.
func (c *Controller) reboot() {
	c.mu.Lock()
	if c.rebooted || !c.running {
		c.mu.Unlock()
		return
	}
	c.rebooted = true
	pairingLn := c.pairingLn
	apServer := c.apServer
	c.pairingLn = nil
	c.apServer = nil
	c.mu.Unlock()

	c.logger.Info("rebooting: dropping setup surfaces")
	if pairingLn != nil {
		pairingLn.Close()
	}
	if apServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		_ = apServer.Shutdown(shutdownCtx)
		cancel()
	}

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()

		select {
		case <-time.After(c.cfg.BootDelay):
		case <-c.closed:
			return
		}

		if c.cfg.NeverJoin {
			c.logger.Info("configured to never join; staying dark")
			return
		}
		if err := c.join(); err != nil {
			c.logger.Warn("station surface failed to start", zap.Error(err))
		}
	}()
}

// join starts the station HTTP surface and, when configured, the mDNS
// advertisement.
func (c *Controller) join() error {
	stationAddr := c.cfg.StationAddr
	if stationAddr == "" {
		stationAddr = "127.0.0.1:0"
	}
	ln, err := net.Listen("tcp", stationAddr)
	if err != nil {
		return fmt.Errorf("failed to open station listener: %w", err)
	}

	srv := &http.Server{Handler: c.stationRouter()}

	c.mu.Lock()
	c.stationLn = ln
	c.stationSrv = srv
	c.mu.Unlock()

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if serveErr := srv.Serve(ln); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			c.logger.Debug("station server stopped", zap.Error(serveErr))
		}
	}()

	if c.cfg.Advertise {
		if err := c.advertise(ln); err != nil {
			c.logger.Warn("mDNS advertisement failed", zap.Error(err))
		}
	}

	c.logger.Info("joined network", zap.String("station", ln.Addr().String()))
	close(c.joinedCh)
	return nil
}

// advertise registers the controller's _lumina._tcp service.
func (c *Controller) advertise(ln net.Listener) error {
	_, portStr, err := net.SplitHostPort(ln.Addr().String())
	if err != nil {
		return err
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return err
	}

	txt := []string{"mac=" + c.cfg.MAC, "name=" + c.cfg.Name}
	server, err := zeroconf.Register(c.cfg.Name, "_lumina._tcp", "local.", port, txt, nil)
	if err != nil {
		return err
	}

	c.mu.Lock()
	c.mdnsServer = server
	c.mu.Unlock()
	return nil
}
