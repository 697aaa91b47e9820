package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/illarion/pinlock/internal/auth"
	"github.com/illarion/pinlock/internal/crypto"
	"github.com/illarion/pinlock/internal/deviceid"
	"github.com/illarion/pinlock/internal/lockout"
	"github.com/illarion/pinlock/internal/logging"
	"github.com/illarion/pinlock/internal/store"
)

const (
	DefaultDigits   = 4
	DefaultLogLevel = "warn"
	dataDirName     = "pinlock"
)

var ErrInvalidConfig = errors.New("invalid config")

type StoreConfig struct {
	Backend string `yaml:"backend"`
	Service string `yaml:"service"`
	Path    string `yaml:"path"`
}

type DeviceConfig struct {
	Provider string `yaml:"provider"`
	Path     string `yaml:"path"`
}

type PINConfig struct {
	Digits     int    `yaml:"digits"`
	KDF        string `yaml:"kdf"`
	Iterations int    `yaml:"iterations"`
}

type LockoutConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	Duration    time.Duration `yaml:"duration"`
	// Bypass disables enforcement while keeping the bookkeeping. Debug only.
	Bypass bool `yaml:"bypass"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// MessagesConfig overrides user-facing strings. Empty values keep the
// built-in text.
type MessagesConfig struct {
	InvalidPIN   string `yaml:"invalid_pin"`
	LockedOut    string `yaml:"locked_out"`
	PINMismatch  string `yaml:"pin_mismatch"`
	PINFormat    string `yaml:"pin_format"`
	SaveFailed   string `yaml:"save_failed"`
	SetupSuccess string `yaml:"setup_success"`
}

// Config holds every runtime setting of the pinlock CLI.
type Config struct {
	Store    StoreConfig    `yaml:"store"`
	Device   DeviceConfig   `yaml:"device"`
	PIN      PINConfig      `yaml:"pin"`
	Lockout  LockoutConfig  `yaml:"lockout"`
	Log      LogConfig      `yaml:"log"`
	Messages MessagesConfig `yaml:"messages"`
}

// Defaults returns the built-in configuration: OS keychain storage, 4-digit
// PINs, 5 attempts and a 5 minute lockout.
func Defaults() *Config {
	dir := dataDir()
	return &Config{
		Store: StoreConfig{
			Backend: store.BackendKeyring,
			Service: store.DefaultService,
			Path:    filepath.Join(dir, "pinlock.db"),
		},
		Device: DeviceConfig{
			Provider: deviceid.ProviderMachineID,
			Path:     filepath.Join(dir, "device-id"),
		},
		PIN: PINConfig{
			Digits:     DefaultDigits,
			KDF:        crypto.KDFSHA256,
			Iterations: crypto.DefaultIters,
		},
		Lockout: LockoutConfig{
			MaxAttempts: lockout.DefaultMaxAttempts,
			Duration:    lockout.DefaultLockoutDuration,
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

func dataDir() string {
	base, err := os.UserConfigDir()
	if err != nil {
		return "." + dataDirName
	}
	return filepath.Join(base, dataDirName)
}

// Load builds a configuration from defaults, the YAML file at path (skipped
// when path is empty) and the environment. The result is not validated so
// callers can apply flags first.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config: %w", err)
	}
	// Fields absent from the file keep their current values.
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("%w: %s: %w", ErrInvalidConfig, path, err)
	}
	return nil
}

// Validate checks that the configuration is coherent.
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case store.BackendKeyring:
		if c.Store.Service == "" {
			return fmt.Errorf("%w: store.service must not be empty", ErrInvalidConfig)
		}
	case store.BackendBolt:
		if c.Store.Path == "" {
			return fmt.Errorf("%w: store.path is required for the %s backend", ErrInvalidConfig, store.BackendBolt)
		}
	case store.BackendMemory:
	default:
		return fmt.Errorf("%w: unknown store.backend %q", ErrInvalidConfig, c.Store.Backend)
	}

	switch c.Device.Provider {
	case deviceid.ProviderMachineID:
	case deviceid.ProviderFile:
		if c.Device.Path == "" {
			return fmt.Errorf("%w: device.path is required for the %s provider", ErrInvalidConfig, deviceid.ProviderFile)
		}
	default:
		return fmt.Errorf("%w: unknown device.provider %q", ErrInvalidConfig, c.Device.Provider)
	}

	if c.PIN.Digits <= 0 {
		return fmt.Errorf("%w: pin.digits must be > 0", ErrInvalidConfig)
	}
	switch c.PIN.KDF {
	case crypto.KDFSHA256:
	case crypto.KDFPBKDF2:
		if c.PIN.Iterations <= 0 {
			return fmt.Errorf("%w: pin.iterations must be > 0", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown pin.kdf %q", ErrInvalidConfig, c.PIN.KDF)
	}

	if c.Lockout.MaxAttempts <= 0 {
		return fmt.Errorf("%w: lockout.max_attempts must be > 0", ErrInvalidConfig)
	}
	if c.Lockout.Duration <= 0 {
		return fmt.Errorf("%w: lockout.duration must be > 0", ErrInvalidConfig)
	}
	if _, err := logging.ParseLevel(c.Log.Level); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

// StoreOptions returns the backend selection for store.Open.
func (c *Config) StoreOptions() store.Options {
	return store.Options{
		Backend: c.Store.Backend,
		Service: c.Store.Service,
		Path:    c.Store.Path,
	}
}

func (c *Config) KeyDeriver() (crypto.KeyDeriver, error) {
	return crypto.NewKeyDeriver(c.PIN.KDF, c.PIN.Iterations)
}

func (c *Config) DeviceProvider() (deviceid.Provider, error) {
	return deviceid.New(c.Device.Provider, c.Device.Path)
}

func (c *Config) LockoutMessages() lockout.Messages {
	return lockout.Messages{
		InvalidPIN: c.Messages.InvalidPIN,
		LockedOut:  c.Messages.LockedOut,
	}
}

func (c *Config) AuthMessages() auth.Messages {
	return auth.Messages{
		PINMismatch:  c.Messages.PINMismatch,
		PINFormat:    c.Messages.PINFormat,
		SaveFailed:   c.Messages.SaveFailed,
		SetupSuccess: c.Messages.SetupSuccess,
	}
}
