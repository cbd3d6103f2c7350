// Package config loads runtime settings from the environment and the
// lending policy from an optional YAML file.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process settings. Empty DBPath selects the in-memory
// repository and empty RedisAddr the in-process cache.
type Config struct {
	Port         string
	Environment  string
	LogLevel     string
	DBPath       string
	RedisAddr    string
	CacheTTL     time.Duration
	RateLimitRPM int
	PolicyFile   string
}

func defaults() Config {
	return Config{
		Port:         "8080",
		Environment:  "production",
		CacheTTL:     10 * time.Minute,
		RateLimitRPM: 60,
	}
}

// Load reads envFile when it exists, then the process environment.
// Variables already set in the environment win over the file.
func Load(envFile string) (Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return Config{}, fmt.Errorf("load %s: %w", envFile, err)
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from lookup, typically os.LookupEnv.
func FromLookup(lookup func(string) (string, bool)) (Config, error) {
	cfg := defaults()

	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		v = strings.TrimSpace(v)
		return v, ok && v != ""
	}

	if v, ok := get("PORT"); ok {
		cfg.Port = v
	}
	if v, ok := get("ENV"); ok {
		cfg.Environment = strings.ToLower(v)
	}
	if v, ok := get("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := get("DB_PATH"); ok {
		cfg.DBPath = v
	}
	if v, ok := get("REDIS_ADDR"); ok {
		cfg.RedisAddr = v
	}
	if v, ok := get("POLICY_FILE"); ok {
		cfg.PolicyFile = v
	}

	if v, ok := get("CACHE_TTL"); ok {
		ttl, err := time.ParseDuration(v)
		if err != nil || ttl < 0 {
			return Config{}, fmt.Errorf("invalid CACHE_TTL %q", v)
		}
		cfg.CacheTTL = ttl
	}
	if v, ok := get("RATE_LIMIT_RPM"); ok {
		rpm, err := strconv.Atoi(v)
		if err != nil || rpm <= 0 {
			return Config{}, fmt.Errorf("invalid RATE_LIMIT_RPM %q", v)
		}
		cfg.RateLimitRPM = rpm
	}

	return cfg, nil
}

// Addr is the listen address for the HTTP server.
func (c Config) Addr() string {
	return ":" + c.Port
}
