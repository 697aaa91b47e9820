package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	EnvBackend         = "PINLOCK_BACKEND"
	EnvDBPath          = "PINLOCK_DB_PATH"
	EnvMaxAttempts     = "PINLOCK_MAX_ATTEMPTS"
	EnvLockoutDuration = "PINLOCK_LOCKOUT_DURATION"
	EnvLogLevel        = "PINLOCK_LOG_LEVEL"
	EnvBypassLockout   = "PINLOCK_BYPASS_LOCKOUT"
)

// applyEnv overlays the PINLOCK_* variables that are set and non-empty.
func (c *Config) applyEnv() error {
	if v, ok := lookup(EnvBackend); ok {
		c.Store.Backend = v
	}
	if v, ok := lookup(EnvDBPath); ok {
		c.Store.Path = v
	}
	if v, ok := lookup(EnvLogLevel); ok {
		c.Log.Level = v
	}
	if v, ok := lookup(EnvMaxAttempts); ok {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvMaxAttempts, err)
		}
		c.Lockout.MaxAttempts = n
	}
	if v, ok := lookup(EnvLockoutDuration); ok {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvLockoutDuration, err)
		}
		c.Lockout.Duration = d
	}
	if v, ok := lookup(EnvBypassLockout); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, EnvBypassLockout, err)
		}
		c.Lockout.Bypass = b
	}
	return nil
}

func lookup(name string) (string, bool) {
	v := strings.TrimSpace(os.Getenv(name))
	return v, v != ""
}
