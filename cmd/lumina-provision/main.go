// Command lumina-provision is the reference provisioner for Lumina LED
// controllers.
//
// It onboards a factory-fresh controller onto a home Wi-Fi network over one
// of two credential channels, watches for the device to reappear on the
// network, verifies it, and records it in the local device registry.
//
// Usage:
//
//	lumina-provision [flags]
//
// Flags:
//
//	-config string        Configuration file path
//	-transport string     Credential channel: pairing or softap (default "softap")
//	-pairing-addr string  TCP address of the pairing radio bridge
//	-softap-url string    Base URL of the device's soft AP (default from config)
//	-network string       Target network name (non-interactive mode)
//	-secret string        Target network secret (non-interactive mode)
//	-registry string      Registry database path (overrides config)
//	-interactive          Enable interactive command mode
//
// Examples:
//
//	# Provision over the device's own access point (join Lumina-Setup first)
//	lumina-provision -network HomeNet -secret hunter2
//
//	# Provision over the pairing bridge, interactively
//	lumina-provision -transport pairing -pairing-addr 127.0.0.1:9460 -interactive
//
// Interactive Commands:
//
//	provision <network> <secret> - Start a provisioning session
//	discover                     - Run one discovery pass
//	verify <address>             - Probe an address for a controller
//	manual <address>             - Hand the session a known device address
//	force <address>              - Record an address without verification
//	retry                        - Retry a failed registry write
//	cancel                       - Cancel the running session
//	status                       - Show session status
//	records                      - List registered controllers
//	quit                         - Exit
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/lumina-home/provision-go/cmd/lumina-provision/interactive"
	"github.com/lumina-home/provision-go/internal/config"
	"github.com/lumina-home/provision-go/pkg/discovery"
	"github.com/lumina-home/provision-go/pkg/pairing"
	"github.com/lumina-home/provision-go/pkg/provision"
	"github.com/lumina-home/provision-go/pkg/registry"
	"github.com/lumina-home/provision-go/pkg/softap"
	"github.com/lumina-home/provision-go/pkg/transport"
	"github.com/lumina-home/provision-go/pkg/verify"
)

type options struct {
	ConfigFile   string
	Transport    string
	PairingAddr  string
	SoftAPURL    string
	Network      string
	Secret       string
	RegistryPath string
	Interactive  bool
}

var opts options

func init() {
	flag.StringVar(&opts.ConfigFile, "config", "", "Configuration file path")
	flag.StringVar(&opts.Transport, "transport", "softap", "Credential channel: pairing or softap")
	flag.StringVar(&opts.PairingAddr, "pairing-addr", "", "TCP address of the pairing radio bridge")
	flag.StringVar(&opts.SoftAPURL, "softap-url", "", "Base URL of the device's soft AP")
	flag.StringVar(&opts.Network, "network", "", "Target network name (non-interactive mode)")
	flag.StringVar(&opts.Secret, "secret", "", "Target network secret (non-interactive mode)")
	flag.StringVar(&opts.RegistryPath, "registry", "", "Registry database path (overrides config)")
	flag.BoolVar(&opts.Interactive, "interactive", false, "Enable interactive command mode")
}

func main() {
	flag.Parse()

	v, err := config.Load(opts.ConfigFile)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := config.NewLogger(v)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	registryPath := v.GetString("registry.path")
	if opts.RegistryPath != "" {
		registryPath = opts.RegistryPath
	}
	store, err := registry.NewSQLiteStore(registryPath)
	if err != nil {
		logger.Fatal("failed to open registry", zap.String("path", registryPath), zap.Error(err))
	}
	defer store.Close()

	dial, err := buildDial(v)
	if err != nil {
		logger.Fatal("failed to build credential channel", zap.Error(err))
	}

	sessionCfg := sessionConfig(v, dial, store, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if opts.Interactive {
		ic, err := interactive.New(sessionCfg, store)
		if err != nil {
			logger.Fatal("failed to start interactive mode", zap.Error(err))
		}
		go ic.Run(ctx, cancel)

		awaitShutdown(ctx, logger)
		return
	}

	if opts.Network == "" {
		fmt.Fprintln(os.Stderr, "either -interactive or -network/-secret is required")
		flag.Usage()
		os.Exit(2)
	}

	if err := runOnce(ctx, sessionCfg, logger); err != nil {
		logger.Fatal("provisioning failed", zap.Error(err))
	}
}

// buildDial selects the credential channel from the -transport flag.
func buildDial(v *viper.Viper) (provision.DialFunc, error) {
	switch opts.Transport {
	case "pairing":
		if opts.PairingAddr == "" {
			return nil, fmt.Errorf("-transport pairing requires -pairing-addr")
		}
		handle := pairing.HandleFunc(func(ctx context.Context) (net.Conn, error) {
			var d net.Dialer
			return d.DialContext(ctx, "tcp", opts.PairingAddr)
		})
		return provision.PairingDial(handle, pairing.Config{
			ResultGrace:     v.GetDuration("pairing.result_grace"),
			ExchangeTimeout: v.GetDuration("pairing.exchange_timeout"),
		}), nil

	case "softap":
		cfg := softap.Config{Timeout: v.GetDuration("softap.timeout")}
		if opts.SoftAPURL != "" {
			cfg.BaseURL = opts.SoftAPURL
		}
		return provision.SoftAPDial(cfg), nil

	default:
		return nil, fmt.Errorf("unknown transport %q (use: pairing, softap)", opts.Transport)
	}
}

// sessionConfig assembles the session policy from the configuration tree.
func sessionConfig(v *viper.Viper, dial provision.DialFunc, store registry.Store, logger *zap.Logger) provision.Config {
	finders := []discovery.Finder{}
	if v.GetBool("discovery.mdns_enabled") {
		finders = append(finders, discovery.NewMDNSFinder(discovery.MDNSConfig{
			Service: v.GetString("discovery.service"),
			Logger:  logger.Named("mdns"),
		}))
	}
	finders = append(finders, discovery.NewSweepFinder(discovery.SweepConfig{
		CIDR:   v.GetString("discovery.sweep_cidr"),
		Logger: logger.Named("sweep"),
	}))

	cfg := provision.DefaultConfig()
	cfg.Dial = dial
	cfg.Finder = discovery.NewMultiFinder(discovery.MultiConfig{}, finders...)
	cfg.Prober = verify.New(verify.Config{
		Timeout: v.GetDuration("verify.timeout"),
		Logger:  logger.Named("verify"),
	})
	cfg.Store = store
	cfg.CredentialAttempts = v.GetInt("provision.credential_attempts")
	cfg.SettleDelay = v.GetDuration("provision.settle_delay")
	cfg.DiscoveryAttempts = v.GetInt("provision.discovery_attempts")
	cfg.DiscoveryWindow = v.GetDuration("provision.discovery_window")
	cfg.ManualVerifyAttempts = v.GetInt("provision.manual_verify_attempts")
	cfg.ManualVerifyDelay = v.GetDuration("provision.manual_verify_delay")
	cfg.Logger = logger.Named("session")
	return cfg
}

// runOnce drives a single session to completion with the credentials from
// the command line.
func runOnce(ctx context.Context, cfg provision.Config, logger *zap.Logger) error {
	creds, err := transport.NewCredentials(opts.Network, opts.Secret)
	if err != nil {
		return err
	}

	session, err := provision.New(cfg)
	if err != nil {
		return err
	}
	snaps := session.Snapshots()

	if err := session.Start(ctx); err != nil {
		return err
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	var (
		last      provision.Snapshot
		submitted bool
	)
	for {
		select {
		case sig := <-sigCh:
			logger.Info("received signal, cancelling session", zap.Stringer("signal", sig))
			session.Cancel()

		case snap, ok := <-snaps:
			if !ok {
				return finalOutcome(last)
			}
			last = snap
			logger.Info("session state",
				zap.Stringer("state", snap.State),
				zap.String("message", snap.Message))

			switch snap.State {
			case provision.StateConnected:
				if submitted {
					// A second Connected means the device rejected the
					// credentials. Without an operator there is nothing
					// to correct, so give up.
					logger.Error("device rejected the credentials")
					session.Cancel()
					continue
				}
				submitted = true
				if err := session.SubmitCredentials(creds); err != nil {
					return err
				}

			case provision.StateManualFallback:
				logger.Warn("device not found automatically; rerun with -interactive to supply an address manually")
				session.Cancel()
			}
		}
	}
}

// finalOutcome maps the last snapshot to the process result.
func finalOutcome(snap provision.Snapshot) error {
	switch snap.State {
	case provision.StateSucceeded:
		fmt.Printf("Provisioned %s (%s) at %s\n", snap.DeviceID, snap.NetworkName, snap.Address)
		return nil
	case provision.StateCancelled:
		return fmt.Errorf("session cancelled")
	default:
		if snap.LastErr != nil {
			return snap.LastErr
		}
		return fmt.Errorf("session ended in state %s", snap.State)
	}
}

func awaitShutdown(ctx context.Context, logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("received signal", zap.Stringer("signal", sig))
	case <-ctx.Done():
		// Interactive quit.
	}
}
