package store

import (
	"errors"
	"fmt"

	"github.com/zalando/go-keyring"
)

// DefaultService is the keyring service all pinlock entries share.
const DefaultService = "pinlock"

// Keyring stores values in the OS keyring. Each storage key becomes an
// account under one service name.
type Keyring struct {
	service string
}

// NewKeyring creates a keyring-backed store. An empty service selects
// DefaultService.
func NewKeyring(service string) *Keyring {
	if service == "" {
		service = DefaultService
	}
	return &Keyring{service: service}
}

// Get retrieves a value from the OS keyring
func (k *Keyring) Get(key string) (string, error) {
	value, err := keyring.Get(k.service, key)
	if err != nil {
		if errors.Is(err, keyring.ErrNotFound) {
			return "", ErrNotFound
		}
		return "", fmt.Errorf("%w: keyring get %s: %w", ErrStorage, key, err)
	}
	return value, nil
}

// Set stores a value in the OS keyring
func (k *Keyring) Set(key, value string) error {
	if err := keyring.Set(k.service, key, value); err != nil {
		return fmt.Errorf("%w: keyring set %s: %w", ErrStorage, key, err)
	}
	return nil
}

// Remove deletes a value from the OS keyring
func (k *Keyring) Remove(key string) error {
	err := keyring.Delete(k.service, key)
	if err != nil && !errors.Is(err, keyring.ErrNotFound) {
		return fmt.Errorf("%w: keyring delete %s: %w", ErrStorage, key, err)
	}
	return nil
}

// Exists checks if a value is stored in the keyring
func (k *Keyring) Exists(key string) (bool, error) {
	return existsVia(k, key)
}
