package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/illarion/pinlock/internal/auth"
	"github.com/illarion/pinlock/internal/config"
	"github.com/illarion/pinlock/internal/lockout"
	"github.com/illarion/pinlock/internal/logging"
	"github.com/illarion/pinlock/internal/prompt"
	"github.com/illarion/pinlock/internal/store"
	"github.com/illarion/pinlock/internal/vault"
)

var (
	ErrNotEnrolled     = errors.New("no PIN enrolled")
	ErrAlreadyEnrolled = errors.New("a PIN is already enrolled")
	ErrNotCompactable  = errors.New("backend does not support compaction")
)

// Options are the flags every command accepts.
type Options struct {
	ConfigPath string
	Backend    string
}

// PINReader supplies PINs to the commands that need them.
type PINReader interface {
	ReadPIN(label string) (string, error)
	ReadPINConfirm() (pin, confirm string, err error)
}

// envPINReader answers every prompt with the PINLOCK_PIN value and falls
// back to the terminal when it is unset.
type envPINReader struct {
	next PINReader
}

func (r envPINReader) ReadPIN(label string) (string, error) {
	if pin, ok := prompt.PINFromEnv(); ok {
		return pin, nil
	}
	return r.next.ReadPIN(label)
}

func (r envPINReader) ReadPINConfirm() (string, string, error) {
	if pin, ok := prompt.PINFromEnv(); ok {
		return pin, pin, nil
	}
	return r.next.ReadPINConfirm()
}

func defaultPINReader() PINReader {
	return envPINReader{next: prompt.Stdio()}
}

// Env is the wired object graph a command runs against.
type Env struct {
	Config *config.Config
	Store  store.Store
	Vault  *vault.Vault
	Policy *lockout.Policy
	Auth   *auth.Authenticator
	Log    logging.Logger

	closeStore func() error
}

// Open loads configuration, applies flag overrides and wires the store,
// vault, lockout policy and authenticator.
func Open(opts Options) (*Env, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return nil, err
	}
	if opts.Backend != "" {
		cfg.Store.Backend = opts.Backend
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logging.New(os.Stderr, cfg.Log.Level)
	if err != nil {
		return nil, err
	}

	s, closeStore, err := store.Open(cfg.StoreOptions())
	if err != nil {
		return nil, err
	}

	env, err := newEnv(cfg, s, log)
	if err != nil {
		closeStore()
		return nil, err
	}
	env.closeStore = closeStore
	return env, nil
}

// newEnv wires the domain objects on top of an open store.
func newEnv(cfg *config.Config, s store.Store, log logging.Logger) (*Env, error) {
	kdf, err := cfg.KeyDeriver()
	if err != nil {
		return nil, err
	}
	device, err := cfg.DeviceProvider()
	if err != nil {
		return nil, err
	}

	v := vault.New(s,
		vault.WithKeyDeriver(kdf),
		vault.WithDeviceID(device),
		vault.WithDigits(cfg.PIN.Digits),
		vault.WithLogger(log),
	)
	p := lockout.New(s,
		lockout.WithMaxAttempts(cfg.Lockout.MaxAttempts),
		lockout.WithLockoutDuration(cfg.Lockout.Duration),
		lockout.WithMessages(cfg.LockoutMessages()),
		lockout.WithLogger(log),
	)
	a := auth.New(v, p,
		auth.WithDigits(cfg.PIN.Digits),
		auth.WithBypassLockout(cfg.Lockout.Bypass),
		auth.WithMessages(cfg.AuthMessages()),
		auth.WithLogger(log),
	)

	return &Env{
		Config:     cfg,
		Store:      s,
		Vault:      v,
		Policy:     p,
		Auth:       a,
		Log:        log,
		closeStore: func() error { return nil },
	}, nil
}

func (e *Env) Close() error {
	return e.closeStore()
}

// enrolled reports whether a credential is stored, surfacing storage
// failures instead of treating them as "not enrolled".
func (e *Env) enrolled() (bool, error) {
	return e.Store.Exists(vault.CredentialKey)
}

// run opens the environment, runs fn and exits through HandleError on failure.
func run(ctx context.Context, opts Options, fn func(context.Context, *Env) error) {
	env, err := Open(opts)
	if err != nil {
		HandleError(err)
	}
	err = fn(ctx, env)
	if cerr := env.Close(); err == nil && cerr != nil {
		err = cerr
	}
	if err != nil {
		HandleError(err)
	}
}

// HandleError handles common errors consistently
func HandleError(err error) {
	writeError(os.Stderr, err)
	os.Exit(1)
}

func writeError(w io.Writer, err error) {
	switch {
	case errors.Is(err, auth.ErrLockedOut),
		errors.Is(err, auth.ErrInvalidPIN),
		errors.Is(err, auth.ErrPINMismatch),
		errors.Is(err, auth.ErrPINFormat),
		errors.Is(err, auth.ErrSaveFailed):
		// The command already printed the user message.
	case errors.Is(err, ErrNotEnrolled):
		fmt.Fprintf(w, "Error: no PIN enrolled\n")
		fmt.Fprintf(w, "Run 'pinlock enroll' first\n")
	case errors.Is(err, ErrAlreadyEnrolled):
		fmt.Fprintf(w, "Error: a PIN is already enrolled\n")
		fmt.Fprintf(w, "Use 'pinlock enroll -force' to replace it\n")
	case errors.Is(err, ErrNotCompactable):
		fmt.Fprintf(w, "Error: compact needs the %s backend\n", store.BackendBolt)
	case errors.Is(err, prompt.ErrNoInput):
		fmt.Fprintf(w, "Error: no PIN entered\n")
	case errors.Is(err, config.ErrInvalidConfig):
		fmt.Fprintf(w, "Error: %s\n", err)
	case errors.Is(err, store.ErrStorage):
		fmt.Fprintf(w, "Error: secure storage unavailable: %s\n", err)
	default:
		fmt.Fprintf(w, "Error: %s\n", err)
	}
}
