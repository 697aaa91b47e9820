package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	MetaBucket    = []byte("meta")    // schema version, creation time
	SecretsBucket = []byte("secrets") // storage key -> value
)

// Meta keys
var (
	MetaVersion = []byte("version")
	MetaCreated = []byte("created")
)

const boltSchemaVersion = "1"

// Bolt provides BBolt-based storage for pinlock
type Bolt struct {
	db *bolt.DB
}

// OpenBolt opens or creates a pinlock database and makes sure its buckets exist.
func OpenBolt(path string) (*Bolt, error) {
	if path == "" {
		return nil, fmt.Errorf("%w: empty database path", ErrInvalidInput)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("%w: create directory: %w", ErrStorage, err)
	}

	db, err := openDB(path)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to open database: %w", ErrStorage, err)
	}

	b := &Bolt{db: db}
	if err := b.initialize(); err != nil {
		db.Close()
		return nil, err
	}
	return b, nil
}

// initialize creates the bucket structure on first open
func (b *Bolt) initialize() error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [][]byte{MetaBucket, SecretsBucket} {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return fmt.Errorf("failed to create bucket %s: %w", bucket, err)
			}
		}

		meta := tx.Bucket(MetaBucket)
		if meta.Get(MetaVersion) != nil {
			return nil
		}
		if err := meta.Put(MetaVersion, []byte(boltSchemaVersion)); err != nil {
			return err
		}
		created, _ := time.Now().UTC().MarshalBinary()
		return meta.Put(MetaCreated, created)
	})
	if err != nil {
		return fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return nil
}

// Close closes the database
func (b *Bolt) Close() error {
	return b.db.Close()
}

// Path returns the database file path
func (b *Bolt) Path() string {
	return b.db.Path()
}

// Created returns when the database was first initialized
func (b *Bolt) Created() (time.Time, error) {
	var created time.Time
	err := b.db.View(func(tx *bolt.Tx) error {
		meta := tx.Bucket(MetaBucket)
		if meta == nil {
			return fmt.Errorf("meta bucket not found")
		}
		data := meta.Get(MetaCreated)
		if data == nil {
			return fmt.Errorf("created time not found")
		}
		return created.UnmarshalBinary(data)
	})
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %w", ErrStorage, err)
	}
	return created, nil
}

// Get retrieves a stored value
func (b *Bolt) Get(key string) (string, error) {
	var (
		value string
		found bool
	)
	err := b.db.View(func(tx *bolt.Tx) error {
		secrets := tx.Bucket(SecretsBucket)
		if secrets == nil {
			return fmt.Errorf("secrets bucket not found")
		}
		data := secrets.Get([]byte(key))
		if data == nil {
			return nil
		}
		// string() copies; the slice is only valid during the transaction
		value = string(data)
		found = true
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("%w: get %s: %w", ErrStorage, key, err)
	}
	if !found {
		return "", ErrNotFound
	}
	return value, nil
}

// Set stores a value, overwriting any previous one
func (b *Bolt) Set(key, value string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(SecretsBucket).Put([]byte(key), []byte(value))
	})
	if err != nil {
		return fmt.Errorf("%w: set %s: %w", ErrStorage, key, err)
	}
	return nil
}

// Remove deletes a value. Deleting a missing key is a no-op in bbolt.
func (b *Bolt) Remove(key string) error {
	err := b.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(SecretsBucket).Delete([]byte(key))
	})
	if err != nil {
		return fmt.Errorf("%w: remove %s: %w", ErrStorage, key, err)
	}
	return nil
}

// Exists checks whether a value is stored under key
func (b *Bolt) Exists(key string) (bool, error) {
	return existsVia(b, key)
}

// Compact rewrites the database into a fresh file, dropping the free pages
// that erased credentials leave behind. If anything fails before the swap,
// the original file stays in place and open.
func (b *Bolt) Compact() error {
	path := b.db.Path()
	tmpPath := path + ".compact"

	if err := b.compactTo(tmpPath); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: compact %s: %w", ErrStorage, path, err)
	}

	if err := b.db.Close(); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("%w: close before swap: %w", ErrStorage, err)
	}

	// Rename replaces path atomically, so whatever sits at path afterwards
	// is a complete database and is reopened either way.
	swapErr := os.Rename(tmpPath, path)
	if swapErr != nil {
		os.Remove(tmpPath)
	}

	db, err := openDB(path)
	if err != nil {
		return fmt.Errorf("%w: reopen after compact: %w", ErrStorage, errors.Join(swapErr, err))
	}
	b.db = db

	if swapErr != nil {
		return fmt.Errorf("%w: replace database: %w", ErrStorage, swapErr)
	}
	return nil
}

func (b *Bolt) compactTo(dstPath string) error {
	dst, err := openDB(dstPath)
	if err != nil {
		return err
	}
	if err := bolt.Compact(dst, b.db, 0); err != nil {
		dst.Close()
		return err
	}
	return dst.Close()
}

func openDB(path string) (*bolt.DB, error) {
	return bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
}
