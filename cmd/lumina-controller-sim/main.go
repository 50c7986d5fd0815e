// Command lumina-controller-sim runs a simulated Lumina LED controller so
// the provisioner can be exercised end to end on one machine.
//
// The simulator exposes the device's two setup surfaces (a TCP pairing
// listener and the soft-AP HTTP endpoints) and, after a credential delivery
// and reboot, its post-join station surface.
//
// Usage:
//
//	lumina-controller-sim [flags]
//
// Flags:
//
//	-name string          Controller display name (default "Lumina-Setup")
//	-mac string           Reported MAC address
//	-leds int             Reported LED count (default 30)
//	-pairing-addr string  Pairing listener address (default "127.0.0.1:0")
//	-ap-addr string       Soft-AP HTTP address (default "127.0.0.1:0")
//	-station-addr string  Post-join HTTP address (default "127.0.0.1:0")
//	-boot-delay duration  Simulated reboot duration (default 500ms)
//	-reject int           Reject this many credential deliveries first
//	-omit-result          Omit the pairing result characteristic
//	-wrong-ssid           Persist a mangled network name
//	-never-join           Never appear on the network after reboot
//	-advertise            Register an mDNS advertisement once joined
//
// Examples:
//
//	# Well-behaved device, visible over mDNS after provisioning
//	lumina-controller-sim -advertise
//
//	# Device that rejects the first delivery and boots slowly
//	lumina-controller-sim -reject 1 -boot-delay 5s
package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/lumina-home/provision-go/pkg/simulator"
)

var (
	cfg      = simulator.DefaultConfig()
	logLevel string
)

func init() {
	flag.StringVar(&cfg.Name, "name", cfg.Name, "Controller display name")
	flag.StringVar(&cfg.MAC, "mac", cfg.MAC, "Reported MAC address")
	flag.IntVar(&cfg.LEDCount, "leds", cfg.LEDCount, "Reported LED count")
	flag.StringVar(&cfg.Firmware, "firmware", cfg.Firmware, "Reported firmware version")
	flag.StringVar(&cfg.PairingAddr, "pairing-addr", "127.0.0.1:0", "Pairing listener address")
	flag.StringVar(&cfg.APAddr, "ap-addr", "127.0.0.1:0", "Soft-AP HTTP address")
	flag.StringVar(&cfg.StationAddr, "station-addr", "127.0.0.1:0", "Post-join HTTP address")
	flag.DurationVar(&cfg.BootDelay, "boot-delay", cfg.BootDelay, "Simulated reboot duration")
	flag.IntVar(&cfg.RejectCredentials, "reject", 0, "Reject this many credential deliveries first")
	flag.BoolVar(&cfg.OmitResultChar, "omit-result", false, "Omit the pairing result characteristic")
	flag.BoolVar(&cfg.PersistWrongSSID, "wrong-ssid", false, "Persist a mangled network name")
	flag.BoolVar(&cfg.NeverJoin, "never-join", false, "Never appear on the network after reboot")
	flag.BoolVar(&cfg.Advertise, "advertise", false, "Register an mDNS advertisement once joined")
	flag.StringVar(&logLevel, "log-level", "debug", "Log level: debug, info, warn, error")
}

func main() {
	flag.Parse()

	logger, err := buildLogger(logLevel)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()
	cfg.Logger = logger

	sim := simulator.New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := sim.Start(ctx); err != nil {
		logger.Fatal("failed to start simulator", zap.Error(err))
	}

	logger.Info("simulated controller up",
		zap.String("name", cfg.Name),
		zap.String("mac", cfg.MAC),
		zap.String("pairing", sim.PairingAddr()),
		zap.String("ap", sim.APBaseURL()),
		zap.Duration("boot_delay", cfg.BootDelay))

	go func() {
		select {
		case <-sim.Joined():
			logger.Info("device joined the network",
				zap.String("station", sim.StationAddress()),
				zap.String("ssid", sim.SavedSSID()))
		case <-ctx.Done():
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("received signal, shutting down", zap.Stringer("signal", sig))

	done := make(chan struct{})
	go func() {
		sim.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(3 * time.Second):
		logger.Warn("shutdown timed out")
	}
}

func buildLogger(level string) (*zap.Logger, error) {
	zcfg := zap.NewDevelopmentConfig()
	lvl := zap.NewAtomicLevel()
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		return nil, err
	}
	zcfg.Level = lvl
	return zcfg.Build()
}
