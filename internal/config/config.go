// Package config centralizes startup configuration: flags, environment
// variables (optionally loaded from a .env file) and the positional CLI form
// of the reference binary (relay <ip> <port> [<host>]). Positional arguments,
// when present, override the flag and environment values for the same
// settings, for drop-in compatibility.
package config

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
)

// Config holds everything cmd/relay needs to bind a listener and filter
// upgrades.
type Config struct {
	Addr         string
	Port         string
	OriginSuffix string
	LogLevel     string
}

// Address returns the host:port pair to listen on.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.Addr, c.Port)
}

// Parse loads an optional .env file, then flags (whose defaults come from
// the environment), then applies any positional arguments for the three
// reference-CLI values (ip, port, host), which replace the flag/env values.
// A missing .env file is not an error.
func Parse(args []string) *Config {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file found, using environment variables")
	}

	fs := flag.NewFlagSet("relay", flag.ExitOnError)
	cfg := &Config{}

	fs.StringVar(&cfg.Addr, "addr", envOr("ADDR", "0.0.0.0"), "address to bind")
	fs.StringVar(&cfg.Port, "port", envOr("PORT", "8080"), "port to listen on")
	fs.StringVar(&cfg.OriginSuffix, "origin", envOr("ORIGIN_SUFFIX", ""), "accept upgrades only from an Origin host ending in this suffix (blank accepts any)")
	fs.StringVar(&cfg.LogLevel, "log-level", envOr("LOG_LEVEL", "info"), "debug, info, warn, or error")

	fs.Parse(args)

	// Positional override: relay <ip> <port> [<host>], matching the
	// reference binary's argv contract.
	switch fs.NArg() {
	case 0:
	case 1:
		cfg.Addr = fs.Arg(0)
	case 2:
		cfg.Addr = fs.Arg(0)
		cfg.Port = fs.Arg(1)
	default:
		cfg.Addr = fs.Arg(0)
		cfg.Port = fs.Arg(1)
		cfg.OriginSuffix = fs.Arg(2)
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// SlogLevel parses Config.LogLevel into a slog.Level, defaulting to Info on
// an unrecognized value.
func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
