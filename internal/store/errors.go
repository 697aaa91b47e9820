package store

import "errors"

var (
	// ErrNotFound reports that no value exists for a key. It is an expected
	// outcome, not a fault.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput rejects empty PINs, keys or key material.
	ErrInvalidInput = errors.New("invalid input")

	// ErrCrypto covers key derivation, encryption, decryption and padding failures.
	ErrCrypto = errors.New("crypto failure")

	// ErrStorage wraps any read or write failure of the underlying store.
	ErrStorage = errors.New("storage failure")
)
