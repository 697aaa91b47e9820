package store

import (
	"errors"
	"fmt"
)

// Store is a text key-value store that is already encrypted at rest.
type Store interface {
	// Get returns the value for key, or ErrNotFound.
	Get(key string) (string, error)
	// Set writes value under key, overwriting any prior value.
	Set(key, value string) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
	// Exists reports whether a value is present for key.
	Exists(key string) (bool, error)
}

// Backend names accepted by Open.
const (
	BackendKeyring = "keyring"
	BackendBolt    = "bbolt"
	BackendMemory  = "memory"
)

// Options selects and parameterizes a backend.
type Options struct {
	Backend string
	// Service is the keyring service name.
	Service string
	// Path is the bbolt database file.
	Path string
}

// Open returns the backend named by opts.Backend. The returned close
// function releases backend resources and is never nil.
func Open(opts Options) (Store, func() error, error) {
	noop := func() error { return nil }

	switch opts.Backend {
	case BackendKeyring:
		return NewKeyring(opts.Service), noop, nil
	case BackendBolt:
		db, err := OpenBolt(opts.Path)
		if err != nil {
			return nil, noop, err
		}
		return db, db.Close, nil
	case BackendMemory:
		return NewMemory(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown store backend %q", opts.Backend)
	}
}

// existsVia derives Exists from Get.
func existsVia(s Store, key string) (bool, error) {
	_, err := s.Get(key)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	return false, err
}
