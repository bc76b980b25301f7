// Package config loads daemon configuration from file and NOTIFYD_*
// environment variables via viper.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// Config is the notifyd daemon configuration.
type Config struct {
	// Relays to subscribe to for inbound gift wraps.
	Relays []string `mapstructure:"relays"`
	// RedisURL enables the Redis cache backend; empty selects in-memory.
	RedisURL string `mapstructure:"redis_url"`
	// LogLevel: debug, info, warn, error.
	LogLevel string `mapstructure:"log_level"`
	// MaxParallel bounds concurrent identity pipelines per wrap.
	MaxParallel int `mapstructure:"max_parallel"`
	// IdentityKeys are hex private keys of the local identities.
	IdentityKeys []string `mapstructure:"identity_keys"`
	// Follows and Hidden seed every identity's social graph.
	Follows []string `mapstructure:"follows"`
	Hidden  []string `mapstructure:"hidden"`
}

// Load reads configuration from the given file (optional) with environment
// overrides.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetDefault("relays", []string{})
	v.SetDefault("log_level", "info")
	v.SetDefault("max_parallel", 4)

	v.SetEnvPrefix("NOTIFYD")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	return &cfg, nil
}
