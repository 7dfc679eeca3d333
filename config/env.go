// Package config loads runtime settings from the environment and optional
// .env files. Command line flags override what is loaded here.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Environment variable names.
const (
	EnvRegion        = "FMTCF_REGION"
	EnvProfile       = "FMTCF_PROFILE"
	EnvWorkers       = "FMTCF_WORKERS"
	EnvLookupTimeout = "FMTCF_LOOKUP_TIMEOUT"
	EnvMaxAttempts   = "FMTCF_MAX_ATTEMPTS"
	EnvFailFast      = "FMTCF_FAIL_FAST"
	EnvVerbose       = "FMTCF_VERBOSE"
)

// Defaults.
const (
	DefaultLookupTimeout = 10 * time.Second
	DefaultMaxAttempts   = 3
)

// Config holds settings shared by the CLI and the Lambda.
type Config struct {
	Region        string
	Profile       string
	Workers       int
	LookupTimeout time.Duration
	MaxAttempts   int
	FailFast      bool
	Verbose       bool
}

// LoadEnvFiles loads .env files into the process environment. Variables that
// are already set win. Missing files are an error only when named explicitly;
// with no arguments a missing ./.env is ignored.
func LoadEnvFiles(paths ...string) error {
	if len(paths) == 0 {
		if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("failed to load .env: %w", err)
		}
		return nil
	}
	if err := godotenv.Load(paths...); err != nil {
		return fmt.Errorf("failed to load env file: %w", err)
	}
	return nil
}

// FromEnv builds a Config from FMTCF_* variables, falling back to AWS_REGION
// and AWS_PROFILE.
func FromEnv() (Config, error) {
	cfg := Config{
		Region:        firstNonEmpty(os.Getenv(EnvRegion), os.Getenv("AWS_REGION")),
		Profile:       firstNonEmpty(os.Getenv(EnvProfile), os.Getenv("AWS_PROFILE")),
		LookupTimeout: DefaultLookupTimeout,
		MaxAttempts:   DefaultMaxAttempts,
	}

	var err error
	if cfg.Workers, err = intEnv(EnvWorkers, 0); err != nil {
		return Config{}, err
	}
	if cfg.MaxAttempts, err = intEnv(EnvMaxAttempts, DefaultMaxAttempts); err != nil {
		return Config{}, err
	}
	if v := os.Getenv(EnvLookupTimeout); v != "" {
		if cfg.LookupTimeout, err = time.ParseDuration(v); err != nil {
			return Config{}, fmt.Errorf("%s: %w", EnvLookupTimeout, err)
		}
	}
	if cfg.FailFast, err = boolEnv(EnvFailFast); err != nil {
		return Config{}, err
	}
	if cfg.Verbose, err = boolEnv(EnvVerbose); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

// Validate rejects settings that cannot work.
func (c Config) Validate() error {
	if c.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", c.Workers)
	}
	if c.MaxAttempts < 1 {
		return fmt.Errorf("max attempts must be at least 1, got %d", c.MaxAttempts)
	}
	if c.LookupTimeout < 0 {
		return fmt.Errorf("lookup timeout must not be negative, got %s", c.LookupTimeout)
	}
	return nil
}

// RequireEnv returns the value of key or an error when it is unset or empty.
func RequireEnv(key string) (string, error) {
	value := os.Getenv(key)
	if value == "" {
		return "", fmt.Errorf("%s environment variable is required", key)
	}
	return value, nil
}

func intEnv(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func boolEnv(key string) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return false, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
