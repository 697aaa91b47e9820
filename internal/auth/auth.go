// Package auth composes the credential vault and the lockout policy into the
// enrollment and authentication flows a PIN screen drives.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/illarion/pinlock/internal/lockout"
	"github.com/illarion/pinlock/internal/logging"
	"github.com/illarion/pinlock/internal/store"
	"github.com/illarion/pinlock/internal/vault"
)

var (
	ErrLockedOut   = errors.New("locked out")
	ErrInvalidPIN  = errors.New("invalid PIN")
	ErrPINMismatch = errors.New("PINs do not match")
	ErrPINFormat   = errors.New("PIN has the wrong format")
	ErrSaveFailed  = errors.New("failed to save PIN")
)

// Messages are the enrollment strings shown to the user. PINFormat may
// contain one %d verb for the digit count.
type Messages struct {
	PINMismatch  string
	PINFormat    string
	SaveFailed   string
	SetupSuccess string
}

func DefaultMessages() Messages {
	return Messages{
		PINMismatch:  "PINs do not match",
		PINFormat:    "Enter your %d-digit PIN",
		SaveFailed:   "Failed to save PIN. Please try again",
		SetupSuccess: "PIN setup successful",
	}
}

// Result is the outcome of one flow step. Err is nil on success and one of
// the package sentinel errors otherwise; Message is safe to show the user and
// never carries a raw crypto or storage error.
type Result struct {
	Err     error
	Message string
}

func (r Result) OK() bool { return r.Err == nil }

// Authenticator runs enrollment and authentication.
type Authenticator struct {
	vault    *vault.Vault
	policy   *lockout.Policy
	digits   int
	bypass   bool
	messages Messages
	log      logging.Logger
}

type Option func(*Authenticator)

// WithDigits sets the required PIN length. Zero accepts any non-empty PIN.
func WithDigits(n int) Option {
	return func(a *Authenticator) { a.digits = n }
}

// WithBypassLockout lets attempts through while locked out. For debugging only.
func WithBypassLockout(bypass bool) Option {
	return func(a *Authenticator) { a.bypass = bypass }
}

// WithMessages overrides individual messages; empty fields keep their defaults.
func WithMessages(m Messages) Option {
	return func(a *Authenticator) {
		if m.PINMismatch != "" {
			a.messages.PINMismatch = m.PINMismatch
		}
		if m.PINFormat != "" {
			a.messages.PINFormat = m.PINFormat
		}
		if m.SaveFailed != "" {
			a.messages.SaveFailed = m.SaveFailed
		}
		if m.SetupSuccess != "" {
			a.messages.SetupSuccess = m.SetupSuccess
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(a *Authenticator) { a.log = l }
}

func New(v *vault.Vault, p *lockout.Policy, opts ...Option) *Authenticator {
	a := &Authenticator{
		vault:    v,
		policy:   p,
		messages: DefaultMessages(),
		log:      logging.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = a.log.With("component", "auth")
	return a
}

// Authenticate checks pin against the enrolled credential. While locked out
// the attempt is rejected before the vault is consulted and is not counted.
func (a *Authenticator) Authenticate(ctx context.Context, pin string) Result {
	if a.policy.IsLockedOut(ctx) {
		if !a.bypass {
			msg, _ := a.policy.StatusMessage(ctx)
			a.log.Info(ctx, "attempt blocked by lockout", "remaining_minutes", a.policy.RemainingLockoutMinutes(ctx))
			return Result{Err: ErrLockedOut, Message: msg}
		}
		a.log.Warn(ctx, "lockout bypassed")
	}

	if a.vault.Verify(ctx, pin) {
		a.policy.RecordSuccess(ctx)
		a.log.Info(ctx, "authentication succeeded")
		return Result{}
	}

	st := a.policy.RecordFailure(ctx)
	a.log.Info(ctx, "authentication failed", "attempts", st.FailedAttempts, "max", a.policy.MaxAttempts())

	msg, _ := a.policy.StatusMessage(ctx)
	if st.FailedAttempts >= a.policy.MaxAttempts() {
		return Result{Err: ErrLockedOut, Message: msg}
	}
	return Result{Err: ErrInvalidPIN, Message: msg}
}

// Enroll stores pin after checking its format and that confirm matches.
// Enrollment is not subject to the lockout policy and leaves its state
// untouched; only a successful Authenticate or expiry clears a lockout.
func (a *Authenticator) Enroll(ctx context.Context, pin, confirm string) Result {
	if !a.validFormat(pin) {
		return Result{Err: ErrPINFormat, Message: a.formatMessage()}
	}
	if pin != confirm {
		return Result{Err: ErrPINMismatch, Message: a.messages.PINMismatch}
	}

	if err := a.vault.Store(ctx, pin); err != nil {
		a.log.Error(ctx, "enrollment failed", "err", err)
		if errors.Is(err, store.ErrInvalidInput) {
			return Result{Err: ErrPINFormat, Message: a.formatMessage()}
		}
		return Result{Err: ErrSaveFailed, Message: a.messages.SaveFailed}
	}

	a.log.Info(ctx, "PIN enrolled")
	return Result{Message: a.messages.SetupSuccess}
}

// Forget erases the enrolled credential. It is refused with ErrLockedOut
// while a lockout is in force, and the lockout state is left as it is.
func (a *Authenticator) Forget(ctx context.Context) error {
	if a.policy.IsLockedOut(ctx) {
		return ErrLockedOut
	}
	return a.vault.Erase(ctx)
}

func (a *Authenticator) validFormat(pin string) bool {
	if a.digits > 0 {
		return vault.ValidPIN(pin, a.digits)
	}
	return pin != ""
}

func (a *Authenticator) formatMessage() string {
	if a.digits <= 0 {
		return "Enter your PIN"
	}
	if strings.Contains(a.messages.PINFormat, "%d") {
		return fmt.Sprintf(a.messages.PINFormat, a.digits)
	}
	return a.messages.PINFormat
}
