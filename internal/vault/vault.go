package vault

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"unicode/utf8"

	"github.com/illarion/pinlock/internal/crypto"
	"github.com/illarion/pinlock/internal/deviceid"
	"github.com/illarion/pinlock/internal/logging"
	"github.com/illarion/pinlock/internal/store"
)

// Storage keys
const (
	CredentialKey = "pinlock.credential"
	SecureKeyKey  = "pinlock.secure_key"
)

const keyRandomBytes = 32

// Vault encrypts, persists and verifies a single PIN.
type Vault struct {
	store  store.Store
	kdf    crypto.KeyDeriver
	device deviceid.Provider
	digits int
	log    logging.Logger
}

type Option func(*Vault)

// WithKeyDeriver replaces the default SHA-256 key derivation.
func WithKeyDeriver(kdf crypto.KeyDeriver) Option {
	return func(v *Vault) { v.kdf = kdf }
}

// WithDeviceID sets the provider consulted when key material is generated.
func WithDeviceID(p deviceid.Provider) Option {
	return func(v *Vault) { v.device = p }
}

// WithDigits enforces a fixed-length decimal PIN on Store and on every
// decrypted value. Zero disables the check.
func WithDigits(n int) Option {
	return func(v *Vault) { v.digits = n }
}

func WithLogger(l logging.Logger) Option {
	return func(v *Vault) { v.log = l }
}

// New creates a vault over s.
func New(s store.Store, opts ...Option) *Vault {
	v := &Vault{
		store:  s,
		kdf:    crypto.SHA256{},
		device: deviceid.MachineID{},
		log:    logging.Nop(),
	}
	for _, opt := range opts {
		opt(v)
	}
	v.log = v.log.With("component", "vault")
	return v
}

// Store encrypts pin and writes it to the store, replacing any earlier
// credential.
func (v *Vault) Store(ctx context.Context, pin string) error {
	if pin == "" {
		return fmt.Errorf("%w: empty PIN", store.ErrInvalidInput)
	}
	if v.digits > 0 && !ValidPIN(pin, v.digits) {
		return fmt.Errorf("%w: PIN must be %d digits", store.ErrInvalidInput, v.digits)
	}

	material, err := v.getOrCreateSecureKey(ctx)
	if err != nil {
		return err
	}

	enc, err := v.encryptor(material)
	if err != nil {
		return err
	}
	defer enc.Destroy()

	plaintext := []byte(pin)
	defer crypto.ClearBytes(plaintext)

	envelope, err := enc.Encrypt(plaintext)
	if err != nil {
		return fmt.Errorf("%w: %w", store.ErrCrypto, err)
	}

	if err := v.store.Set(CredentialKey, base64.StdEncoding.EncodeToString(envelope)); err != nil {
		v.log.Error(ctx, "failed to write credential", "err", err)
		return err
	}

	v.log.Debug(ctx, "credential stored")
	return nil
}

// Load returns the stored PIN. ok is false with a nil error when nothing is
// enrolled. Corrupt or undecryptable envelopes return an error wrapping
// store.ErrCrypto.
func (v *Vault) Load(ctx context.Context) (pin string, ok bool, err error) {
	encoded, err := v.store.Get(CredentialKey)
	if errors.Is(err, store.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}

	material, err := v.store.Get(SecureKeyKey)
	if err != nil || material == "" {
		if err == nil || errors.Is(err, store.ErrNotFound) {
			return "", false, fmt.Errorf("%w: secure key missing for stored credential", store.ErrCrypto)
		}
		return "", false, err
	}

	envelope, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", false, fmt.Errorf("%w: malformed envelope: %w", store.ErrCrypto, err)
	}

	enc, err := v.encryptor(material)
	if err != nil {
		return "", false, err
	}
	defer enc.Destroy()

	plaintext, err := enc.Decrypt(envelope)
	if err != nil {
		return "", false, fmt.Errorf("%w: %w", store.ErrCrypto, err)
	}
	defer crypto.ClearBytes(plaintext)

	// CBC has no integrity check of its own. A tampered envelope that still
	// pads correctly decrypts to garbage, which the shape check rejects.
	if !utf8.Valid(plaintext) || (v.digits > 0 && !ValidPIN(string(plaintext), v.digits)) {
		return "", false, fmt.Errorf("%w: decrypted credential is malformed", store.ErrCrypto)
	}

	return string(plaintext), true, nil
}

// Verify reports whether candidate matches the stored PIN. Any load failure
// counts as a mismatch.
func (v *Vault) Verify(ctx context.Context, candidate string) bool {
	pin, ok, err := v.Load(ctx)
	if err != nil {
		v.log.Warn(ctx, "credential could not be loaded", "err", err)
		return false
	}
	return ok && candidate != "" && pin == candidate
}

// Erase removes the stored credential. The secure key is kept.
func (v *Vault) Erase(ctx context.Context) error {
	if err := v.store.Remove(CredentialKey); err != nil {
		v.log.Error(ctx, "failed to erase credential", "err", err)
		return err
	}
	v.log.Debug(ctx, "credential erased")
	return nil
}

// HasStoredCredential reports whether an envelope exists, without decrypting it.
func (v *Vault) HasStoredCredential(ctx context.Context) bool {
	ok, err := v.store.Exists(CredentialKey)
	if err != nil {
		v.log.Warn(ctx, "credential existence check failed", "err", err)
		return false
	}
	return ok
}

// getOrCreateSecureKey returns the device's key material, generating and
// persisting it when absent or empty.
func (v *Vault) getOrCreateSecureKey(ctx context.Context) (string, error) {
	existing, err := v.store.Get(SecureKeyKey)
	if err == nil && existing != "" {
		return existing, nil
	}
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		return "", err
	}

	random, err := crypto.GenerateRandom(keyRandomBytes)
	if err != nil {
		return "", fmt.Errorf("%w: %w", store.ErrCrypto, err)
	}
	defer crypto.ClearBytes(random)

	material := base64.StdEncoding.EncodeToString(random) + v.device.DeviceID()
	if err := v.store.Set(SecureKeyKey, material); err != nil {
		v.log.Error(ctx, "failed to persist secure key", "err", err)
		return "", err
	}

	v.log.Info(ctx, "generated new secure key")
	return material, nil
}

func (v *Vault) encryptor(material string) (*crypto.Encryptor, error) {
	key, err := v.kdf.DeriveKey(material)
	if err != nil {
		return nil, fmt.Errorf("%w: key derivation: %w", store.ErrCrypto, err)
	}
	enc, err := crypto.NewEncryptor(key)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", store.ErrCrypto, err)
	}
	return enc, nil
}

// ValidPIN reports whether pin is exactly digits ASCII decimal digits.
func ValidPIN(pin string, digits int) bool {
	if len(pin) != digits {
		return false
	}
	for i := 0; i < len(pin); i++ {
		if pin[i] < '0' || pin[i] > '9' {
			return false
		}
	}
	return true
}
