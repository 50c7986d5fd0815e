// Package config bootstraps the provisioner binaries: a Viper-backed
// configuration tree and a Zap logger built from it. Library packages take
// explicit Config structs; this package only feeds them.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file and environment variables. An empty
// configPath falls back to the default search locations; a missing file is
// fine, the defaults carry the binary.
func Load(configPath string) (*viper.Viper, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("registry.path", "./data/lumina.db")

	v.SetDefault("provision.credential_attempts", 3)
	v.SetDefault("provision.discovery_attempts", 3)
	v.SetDefault("provision.settle_delay", "10s")
	v.SetDefault("provision.discovery_window", "10s")
	v.SetDefault("provision.manual_verify_attempts", 3)
	v.SetDefault("provision.manual_verify_delay", "10s")

	v.SetDefault("discovery.service", "_lumina._tcp")
	v.SetDefault("discovery.sweep_cidr", "")
	v.SetDefault("discovery.mdns_enabled", true)

	v.SetDefault("softap.base_url", "http://4.3.2.1:80")
	v.SetDefault("softap.timeout", "10s")

	v.SetDefault("pairing.result_grace", "5s")
	v.SetDefault("pairing.exchange_timeout", "10s")

	v.SetDefault("verify.timeout", "12s")

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("lumina")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		v.AddConfigPath("/etc/lumina")
	}

	// Environment variable support: LUMINA_REGISTRY_PATH=/var/lib/lumina.db
	v.SetEnvPrefix("LUMINA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading config: %w", err)
		}
		// Config file not found is fine -- use defaults
	}

	return v, nil
}
