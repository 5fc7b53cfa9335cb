// Package config loads server configuration from a file, environment
// variables, and CLI flags, grounded on tradSys's viper-based
// internal/config/config.go.
package config

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// Config is the complete set of knobs the server binary binds from cobra
// flags / viper.
type Config struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	MetricsPort   int    `mapstructure:"metrics_port"`
	Workers       int    `mapstructure:"workers"`
	LogLevel      string `mapstructure:"log_level"`
}

func defaults() Config {
	return Config{
		Host:        "localhost",
		Port:        9999,
		MetricsPort: 2112,
		Workers:     10,
		LogLevel:    "info",
	}
}

// BindFlags registers this package's flags on fs with their defaults, so a
// cobra command can call this once in its constructor.
func BindFlags(fs *pflag.FlagSet) {
	d := defaults()
	fs.String("host", d.Host, "address the matching engine listens on")
	fs.Int("port", d.Port, "port the matching engine listens on")
	fs.Int("metrics-port", d.MetricsPort, "port the /metrics HTTP endpoint listens on")
	fs.Int("workers", d.Workers, "number of session workers in the pool")
	fs.String("log-level", d.LogLevel, "zerolog level (trace, debug, info, warn, error)")
}

// Load builds a Config from defaults, an optional config file, environment
// variables prefixed MATCHENGINE_, and any flags already parsed onto fs.
func Load(configPath string, fs *pflag.FlagSet) (Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("matchengine")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/matchengine")
	}

	v.SetEnvPrefix("MATCHENGINE")
	v.AutomaticEnv()

	d := defaults()
	v.SetDefault("host", d.Host)
	v.SetDefault("port", d.Port)
	v.SetDefault("metrics_port", d.MetricsPort)
	v.SetDefault("workers", d.Workers)
	v.SetDefault("log_level", d.LogLevel)

	if fs != nil {
		binds := map[string]string{
			"host":         "host",
			"port":         "port",
			"metrics_port": "metrics-port",
			"workers":      "workers",
			"log_level":    "log-level",
		}
		for viperKey, flagName := range binds {
			flag := fs.Lookup(flagName)
			if flag == nil {
				continue
			}
			if err := v.BindPFlag(viperKey, flag); err != nil {
				return Config{}, fmt.Errorf("bind flag %s: %w", flagName, err)
			}
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); !notFound && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}
