// Package config loads the server's configuration from an optional file,
// the environment, and command-line flags, via Viper, following the
// gofast-server reference's load/bind/unmarshal sequence.
package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config holds every key listed in the configuration surface.
type Config struct {
	Port int `mapstructure:"port"`

	LogLevel string `mapstructure:"loglevel"`
	LogFile  string `mapstructure:"logfile"`

	AOFEnabled bool   `mapstructure:"aof-enabled"`
	AOFFile    string `mapstructure:"aof-file"`
	AppendFsync string `mapstructure:"appendfsync"`
}

// DefaultConfig returns a Config populated with every key's documented
// default.
func DefaultConfig() *Config {
	return &Config{
		Port:        6379,
		LogLevel:    "info",
		LogFile:     "",
		AOFEnabled:  false,
		AOFFile:     "dump.aof",
		AppendFsync: "always",
	}
}

// Load reads configuration from, in ascending priority order: the built-in
// defaults, an optional config file named reactorkv.{yaml,json,toml} on the
// search path, environment variables prefixed REACTORKV_, and flags already
// parsed onto fs.
func Load(fs *pflag.FlagSet, configFile string) (*Config, error) {
	v := viper.New()
	def := DefaultConfig()

	v.SetDefault("port", def.Port)
	v.SetDefault("loglevel", def.LogLevel)
	v.SetDefault("logfile", def.LogFile)
	v.SetDefault("aof-enabled", def.AOFEnabled)
	v.SetDefault("aof-file", def.AOFFile)
	v.SetDefault("appendfsync", def.AppendFsync)

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("reactorkv")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/reactorkv/")
		v.AddConfigPath("$HOME/.reactorkv")
	}

	v.SetEnvPrefix("REACTORKV")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if fs != nil {
		if err := v.BindPFlags(fs); err != nil {
			return nil, fmt.Errorf("config: bind flags: %w", err)
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound {
			return nil, fmt.Errorf("config: read config file: %w", err)
		}
	}

	// aof-enabled is spelled yes/no in config files and the environment;
	// map those onto the bool the Config field holds.
	switch strings.ToLower(v.GetString("aof-enabled")) {
	case "yes":
		v.Set("aof-enabled", true)
	case "no":
		v.Set("aof-enabled", false)
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: unmarshal: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate rejects values that would make the server unable to start.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("config: invalid port %d (must be 1-65535)", c.Port)
	}
	switch c.LogLevel {
	case "debug", "info", "warn", "error", "fatal":
	default:
		return fmt.Errorf("config: invalid loglevel %q", c.LogLevel)
	}
	switch c.AppendFsync {
	case "always", "everysec", "no":
	default:
		return fmt.Errorf("config: invalid appendfsync %q", c.AppendFsync)
	}
	return nil
}
