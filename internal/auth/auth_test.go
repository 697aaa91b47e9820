package auth

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/illarion/pinlock/internal/deviceid"
	"github.com/illarion/pinlock/internal/lockout"
	"github.com/illarion/pinlock/internal/store"
	"github.com/illarion/pinlock/internal/vault"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time          { return c.t }
func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

type fixture struct {
	store  *store.Memory
	clock  *fakeClock
	vault  *vault.Vault
	policy *lockout.Policy
	auth   *Authenticator
}

func newFixture(t *testing.T, maxAttempts int, opts ...Option) *fixture {
	t.Helper()

	f := &fixture{
		store: store.NewMemory(),
		clock: &fakeClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)},
	}
	f.vault = vault.New(f.store, vault.WithDeviceID(deviceid.Static("test-device")), vault.WithDigits(4))
	f.policy = lockout.New(f.store,
		lockout.WithMaxAttempts(maxAttempts),
		lockout.WithLockoutDuration(5*time.Minute),
		lockout.WithClock(f.clock.Now),
	)
	f.auth = New(f.vault, f.policy, append([]Option{WithDigits(4)}, opts...)...)
	return f
}

func (f *fixture) enroll(t *testing.T, pin string) {
	t.Helper()
	res := f.auth.Enroll(context.Background(), pin, pin)
	require.True(t, res.OK(), "enroll: %v", res.Err)
}

func TestStoreThenVerify(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)
	f.enroll(t, "1234")

	res := f.auth.Authenticate(ctx, "1234")
	assert.True(t, res.OK())
	assert.Zero(t, f.policy.FailedAttempts(ctx))

	res = f.auth.Authenticate(ctx, "4321")
	assert.ErrorIs(t, res.Err, ErrInvalidPIN)
	assert.Equal(t, "Invalid PIN", res.Message)
	assert.Equal(t, 1, f.policy.FailedAttempts(ctx))
}

func TestLockoutScenario(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	f.enroll(t, "1234")

	for i := 1; i <= 2; i++ {
		res := f.auth.Authenticate(ctx, "0000")
		assert.ErrorIs(t, res.Err, ErrInvalidPIN)
	}
	res := f.auth.Authenticate(ctx, "0000")
	assert.ErrorIs(t, res.Err, ErrLockedOut, "third failure reaches the threshold")
	assert.True(t, f.policy.IsLockedOut(ctx))

	// Fourth attempt is rejected by policy even with the right PIN and is not counted.
	res = f.auth.Authenticate(ctx, "1234")
	assert.ErrorIs(t, res.Err, ErrLockedOut)
	assert.Equal(t, "Too many failed attempts. Please try again in 5 minutes", res.Message)
	assert.Equal(t, 3, f.policy.FailedAttempts(ctx))

	f.clock.Advance(5 * time.Minute)

	res = f.auth.Authenticate(ctx, "1234")
	assert.True(t, res.OK())
	assert.Zero(t, f.policy.FailedAttempts(ctx))
	assert.False(t, f.policy.IsLockedOut(ctx))
}

func TestLockedOutRejectsBeforeVault(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	f.enroll(t, "1234")

	f.auth.Authenticate(ctx, "9999")
	require.True(t, f.policy.IsLockedOut(ctx))

	// A locked policy never reaches the vault, so the counter does not move.
	require.NoError(t, f.store.Set(vault.CredentialKey, "garbage"))
	res := f.auth.Authenticate(ctx, "1234")
	assert.ErrorIs(t, res.Err, ErrLockedOut)
	assert.Equal(t, 1, f.policy.FailedAttempts(ctx))
}

func TestBypassLockout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 2, WithBypassLockout(true))
	f.enroll(t, "1234")

	f.auth.Authenticate(ctx, "0000")
	f.auth.Authenticate(ctx, "0000")
	require.True(t, f.policy.IsLockedOut(ctx))

	res := f.auth.Authenticate(ctx, "1234")
	assert.True(t, res.OK(), "bypass lets the attempt through")
	assert.False(t, f.policy.IsLockedOut(ctx), "success resets even via bypass")
	assert.Zero(t, f.policy.FailedAttempts(ctx))
}

func TestAuthenticateWithoutEnrollment(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)

	assert.False(t, f.vault.HasStoredCredential(ctx))
	res := f.auth.Authenticate(ctx, "1234")
	assert.ErrorIs(t, res.Err, ErrInvalidPIN)
}

func TestEnroll(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name    string
		pin     string
		confirm string
		wantErr error
		wantMsg string
	}{
		{"success", "1234", "1234", nil, "PIN setup successful"},
		{"mismatch", "1234", "1235", ErrPINMismatch, "PINs do not match"},
		{"too short", "123", "123", ErrPINFormat, "Enter your 4-digit PIN"},
		{"not digits", "12ab", "12ab", ErrPINFormat, "Enter your 4-digit PIN"},
		{"empty", "", "", ErrPINFormat, "Enter your 4-digit PIN"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, 5)
			res := f.auth.Enroll(ctx, tt.pin, tt.confirm)
			if tt.wantErr == nil {
				assert.True(t, res.OK())
			} else {
				assert.ErrorIs(t, res.Err, tt.wantErr)
			}
			assert.Equal(t, tt.wantMsg, res.Message)
			assert.Equal(t, tt.wantErr == nil, f.vault.HasStoredCredential(ctx))
		})
	}
}

func TestLockoutSurvivesReEnroll(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 3)
	f.enroll(t, "1234")
	for i := 0; i < 3; i++ {
		f.auth.Authenticate(ctx, "0000")
	}
	require.True(t, f.policy.IsLockedOut(ctx))

	f.enroll(t, "9999")
	assert.True(t, f.policy.IsLockedOut(ctx))
	assert.Equal(t, 3, f.policy.FailedAttempts(ctx))

	res := f.auth.Authenticate(ctx, "9999")
	assert.ErrorIs(t, res.Err, ErrLockedOut)

	f.clock.Advance(5 * time.Minute)
	assert.True(t, f.auth.Authenticate(ctx, "9999").OK())
}

func TestEnrollKeepsFailureCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)
	f.enroll(t, "1234")
	f.auth.Authenticate(ctx, "0000")
	f.auth.Authenticate(ctx, "0000")

	f.enroll(t, "5678")
	assert.Equal(t, 2, f.policy.FailedAttempts(ctx))
}

type brokenSetStore struct {
	*store.Memory
}

func (brokenSetStore) Set(string, string) error { return store.ErrStorage }

func TestEnrollStorageFailureIsGeneric(t *testing.T) {
	ctx := context.Background()
	s := brokenSetStore{Memory: store.NewMemory()}
	a := New(vault.New(s, vault.WithDeviceID(deviceid.Static("d"))), lockout.New(s), WithDigits(4))

	res := a.Enroll(ctx, "1234", "1234")
	assert.ErrorIs(t, res.Err, ErrSaveFailed)
	assert.Equal(t, "Failed to save PIN. Please try again", res.Message)
}

func TestForget(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 5)
	f.enroll(t, "1234")
	f.auth.Authenticate(ctx, "0000")

	require.NoError(t, f.auth.Forget(ctx))
	assert.False(t, f.vault.HasStoredCredential(ctx))
	assert.Equal(t, 1, f.policy.FailedAttempts(ctx), "forget leaves the lockout state alone")
	assert.False(t, f.auth.Authenticate(ctx, "1234").OK())

	_, err := f.store.Get(vault.SecureKeyKey)
	assert.NoError(t, err, "key material survives forget")
}

func TestForgetRefusedWhileLockedOut(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, 1)
	f.enroll(t, "1234")
	f.auth.Authenticate(ctx, "0000")
	require.True(t, f.policy.IsLockedOut(ctx))

	assert.ErrorIs(t, f.auth.Forget(ctx), ErrLockedOut)
	assert.True(t, f.vault.HasStoredCredential(ctx))
	assert.True(t, f.policy.IsLockedOut(ctx))
}

func TestCustomMessages(t *testing.T) {
	f := newFixture(t, 5, WithMessages(Messages{PINMismatch: "nope"}))

	res := f.auth.Enroll(context.Background(), "1234", "4321")
	assert.Equal(t, "nope", res.Message)

	res = f.auth.Enroll(context.Background(), "1", "1")
	assert.Equal(t, "Enter your 4-digit PIN", res.Message)
}

func TestAnyLengthPIN(t *testing.T) {
	ctx := context.Background()
	s := store.NewMemory()
	a := New(vault.New(s, vault.WithDeviceID(deviceid.Static("d"))), lockout.New(s))

	res := a.Enroll(ctx, "", "")
	assert.ErrorIs(t, res.Err, ErrPINFormat)
	assert.Equal(t, "Enter your PIN", res.Message)

	require.True(t, a.Enroll(ctx, "123456789", "123456789").OK())
	assert.True(t, a.Authenticate(ctx, "123456789").OK())
}
