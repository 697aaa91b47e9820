package lockout

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/illarion/pinlock/internal/store"
)

// State is the persisted lockout record. A zero LockoutUntil means no
// lockout is recorded.
type State struct {
	FailedAttempts int
	LockoutUntil   time.Time
}

// LockedAt reports whether the lockout is still in force at now.
func (s State) LockedAt(now time.Time) bool {
	return !s.LockoutUntil.IsZero() && now.Before(s.LockoutUntil)
}

// RemainingMinutes returns floor((LockoutUntil - now) / 1m), never negative.
func (s State) RemainingMinutes(now time.Time) int {
	if !s.LockedAt(now) {
		return 0
	}
	return int(s.LockoutUntil.Sub(now) / time.Minute)
}

func loadState(s store.Store) (State, error) {
	var st State

	raw, err := s.Get(FailedAttemptsKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return State{}, err
	default:
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return State{}, fmt.Errorf("%w: bad attempt counter %q", store.ErrStorage, raw)
		}
		st.FailedAttempts = n
	}

	raw, err = s.Get(LockoutUntilKey)
	switch {
	case errors.Is(err, store.ErrNotFound):
	case err != nil:
		return State{}, err
	default:
		until, err := time.Parse(time.RFC3339Nano, raw)
		if err != nil {
			return State{}, fmt.Errorf("%w: bad lockout expiry %q", store.ErrStorage, raw)
		}
		st.LockoutUntil = until.UTC()
	}

	return st, nil
}

// saveState writes both fields. Both writes are attempted even if the first
// fails; the first error is returned.
func saveState(s store.Store, st State) error {
	err := s.Set(FailedAttemptsKey, strconv.Itoa(st.FailedAttempts))

	var untilErr error
	if st.LockoutUntil.IsZero() {
		untilErr = s.Remove(LockoutUntilKey)
	} else {
		untilErr = s.Set(LockoutUntilKey, st.LockoutUntil.UTC().Format(time.RFC3339Nano))
	}
	if err == nil {
		err = untilErr
	}
	return err
}

func clearState(s store.Store) error {
	return errors.Join(s.Remove(FailedAttemptsKey), s.Remove(LockoutUntilKey))
}
