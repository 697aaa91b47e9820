package lockout

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/illarion/pinlock/internal/logging"
	"github.com/illarion/pinlock/internal/store"
)

// Storage keys
const (
	FailedAttemptsKey = "pinlock.failed_attempts"
	LockoutUntilKey   = "pinlock.lockout_until"
)

const (
	DefaultMaxAttempts     = 5
	DefaultLockoutDuration = 5 * time.Minute
)

// Messages are the user-facing strings produced by StatusMessage.
// LockedOut may contain one %d verb for the remaining minutes.
type Messages struct {
	InvalidPIN string
	LockedOut  string
}

// DefaultMessages returns the built-in English messages.
func DefaultMessages() Messages {
	return Messages{
		InvalidPIN: "Invalid PIN",
		LockedOut:  "Too many failed attempts. Please try again in %d minutes",
	}
}

// Clock returns the current time.
type Clock func() time.Time

// Policy is the lockout state machine. It is safe for concurrent use;
// every read-modify-write of the persisted state happens under one mutex.
type Policy struct {
	mu          sync.Mutex
	store       store.Store
	maxAttempts int
	duration    time.Duration
	now         Clock
	messages    Messages
	log         logging.Logger
}

type Option func(*Policy)

// WithMaxAttempts sets the failure threshold. Non-positive values keep the default.
func WithMaxAttempts(n int) Option {
	return func(p *Policy) {
		if n > 0 {
			p.maxAttempts = n
		}
	}
}

// WithLockoutDuration sets how long a lockout lasts. Non-positive values keep the default.
func WithLockoutDuration(d time.Duration) Option {
	return func(p *Policy) {
		if d > 0 {
			p.duration = d
		}
	}
}

func WithClock(c Clock) Option {
	return func(p *Policy) { p.now = c }
}

// WithMessages overrides individual messages; empty fields keep their defaults.
func WithMessages(m Messages) Option {
	return func(p *Policy) {
		if m.InvalidPIN != "" {
			p.messages.InvalidPIN = m.InvalidPIN
		}
		if m.LockedOut != "" {
			p.messages.LockedOut = m.LockedOut
		}
	}
}

func WithLogger(l logging.Logger) Option {
	return func(p *Policy) { p.log = l }
}

// New creates a policy persisting its state in s. Configuration is fixed
// after construction.
func New(s store.Store, opts ...Option) *Policy {
	p := &Policy{
		store:       s,
		maxAttempts: DefaultMaxAttempts,
		duration:    DefaultLockoutDuration,
		now:         time.Now,
		messages:    DefaultMessages(),
		log:         logging.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.log = p.log.With("component", "lockout")
	return p
}

func (p *Policy) MaxAttempts() int { return p.maxAttempts }

func (p *Policy) LockoutDuration() time.Duration { return p.duration }

// State returns the current state after applying lazy expiry.
func (p *Policy) State(ctx context.Context) State {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, _ := p.current(ctx)
	return st
}

// FailedAttempts returns the current failure count after applying lazy expiry.
func (p *Policy) FailedAttempts(ctx context.Context) int {
	return p.State(ctx).FailedAttempts
}

// IsLockedOut reports whether a lockout is in force. An expired lockout is
// cleared from the store as a side effect.
func (p *Policy) IsLockedOut(ctx context.Context) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, now := p.current(ctx)
	return st.LockedAt(now)
}

// RemainingLockoutMinutes returns the whole minutes left in the lockout,
// rounded down, or 0 when not locked out.
func (p *Policy) RemainingLockoutMinutes(ctx context.Context) int {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, now := p.current(ctx)
	return st.RemainingMinutes(now)
}

// RecordFailure counts a failed attempt and starts the lockout window once
// the threshold is reached. It returns the resulting state.
func (p *Policy) RecordFailure(ctx context.Context) State {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, now := p.current(ctx)
	st.FailedAttempts++
	if st.FailedAttempts >= p.maxAttempts {
		st.LockoutUntil = now.Add(p.duration).UTC()
		p.log.Warn(ctx, "lockout started", "attempts", st.FailedAttempts, "until", st.LockoutUntil)
	} else {
		p.log.Info(ctx, "failed attempt recorded", "attempts", st.FailedAttempts, "max", p.maxAttempts)
	}

	p.write(ctx, st)
	return st
}

// RecordSuccess clears all failure state, whatever it was.
func (p *Policy) RecordSuccess(ctx context.Context) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clear(ctx)
}

// StatusMessage returns the message to show for the current state, or
// ok=false when there is nothing to report.
func (p *Policy) StatusMessage(ctx context.Context) (msg string, ok bool) {
	p.mu.Lock()
	defer p.mu.Unlock()

	st, now := p.current(ctx)
	switch {
	case st.LockedAt(now) || st.FailedAttempts >= p.maxAttempts:
		return p.lockedOutMessage(st.RemainingMinutes(now)), true
	case st.FailedAttempts > 0:
		return p.messages.InvalidPIN, true
	default:
		return "", false
	}
}

func (p *Policy) lockedOutMessage(minutes int) string {
	if strings.Contains(p.messages.LockedOut, "%d") {
		return fmt.Sprintf(p.messages.LockedOut, minutes)
	}
	return p.messages.LockedOut
}

// current loads the state and applies lazy expiry. Callers hold p.mu.
func (p *Policy) current(ctx context.Context) (State, time.Time) {
	now := p.now()
	st := p.read(ctx)
	if !st.LockoutUntil.IsZero() && !now.Before(st.LockoutUntil) {
		p.log.Info(ctx, "lockout expired")
		p.clear(ctx)
		return State{}, now
	}
	return st, now
}

func (p *Policy) read(ctx context.Context) State {
	st, err := loadState(p.store)
	if err != nil {
		p.log.Warn(ctx, "lockout state unreadable, treating as unlocked", "err", err)
		return State{}
	}
	return st
}

func (p *Policy) write(ctx context.Context, st State) {
	if err := saveState(p.store, st); err != nil {
		p.log.Error(ctx, "failed to persist lockout state", "err", err)
	}
}

func (p *Policy) clear(ctx context.Context) {
	if err := clearState(p.store); err != nil {
		p.log.Error(ctx, "failed to clear lockout state", "err", err)
	}
}
