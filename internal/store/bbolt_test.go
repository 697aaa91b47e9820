package store

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestOpenBoltInitializes(t *testing.T) {
	dir := t.TempDir()
	dbPath := filepath.Join(dir, "nested", "pinlock.db")

	db, err := OpenBolt(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if db.Path() != dbPath {
		t.Errorf("Path mismatch: got %s, want %s", db.Path(), dbPath)
	}

	created, err := db.Created()
	if err != nil {
		t.Fatalf("Failed to read creation time: %v", err)
	}
	if time.Since(created) > time.Minute {
		t.Errorf("Creation time looks wrong: %v", created)
	}

	info, err := os.Stat(dbPath)
	if err != nil {
		t.Fatalf("Database file should exist: %v", err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("Database permissions: got %o, want 600", perm)
	}
}

func TestOpenBoltEmptyPath(t *testing.T) {
	if _, err := OpenBolt(""); !errors.Is(err, ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}

func TestBoltCreatedSurvivesReopen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pinlock.db")

	db, err := OpenBolt(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	first, err := db.Created()
	if err != nil {
		t.Fatalf("Failed to read creation time: %v", err)
	}
	db.Close()

	db2, err := OpenBolt(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db2.Close()

	second, err := db2.Created()
	if err != nil {
		t.Fatalf("Failed to read creation time: %v", err)
	}
	if !first.Equal(second) {
		t.Errorf("Creation time changed on reopen: %v -> %v", first, second)
	}
}

func TestBoltPersistence(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pinlock.db")

	db, err := OpenBolt(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	if err := db.Set("pinlock.failed_attempts", "3"); err != nil {
		t.Fatalf("Failed to set value: %v", err)
	}
	db.Close()

	// Reopen and verify
	db2, err := OpenBolt(dbPath)
	if err != nil {
		t.Fatalf("Failed to reopen database: %v", err)
	}
	defer db2.Close()

	value, err := db2.Get("pinlock.failed_attempts")
	if err != nil {
		t.Fatalf("Failed to get value: %v", err)
	}
	if value != "3" {
		t.Errorf("Value not persisted correctly: got %q", value)
	}
}

func TestBoltCompact(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pinlock.db")

	db, err := OpenBolt(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Set("pinlock.credential", "envelope"); err != nil {
		t.Fatalf("Failed to set value: %v", err)
	}
	if err := db.Set("pinlock.secure_key", "key"); err != nil {
		t.Fatalf("Failed to set value: %v", err)
	}
	if err := db.Remove("pinlock.credential"); err != nil {
		t.Fatalf("Failed to remove value: %v", err)
	}

	if err := db.Compact(); err != nil {
		t.Fatalf("Compact failed: %v", err)
	}

	value, err := db.Get("pinlock.secure_key")
	if err != nil {
		t.Fatalf("Failed to get value after compact: %v", err)
	}
	if value != "key" {
		t.Errorf("Value mismatch after compact: got %q", value)
	}
	if _, err := db.Get("pinlock.credential"); !errors.Is(err, ErrNotFound) {
		t.Errorf("Removed key should stay removed, got %v", err)
	}

	for _, leftover := range []string{dbPath + ".compact", dbPath + ".backup"} {
		if _, err := os.Stat(leftover); !os.IsNotExist(err) {
			t.Errorf("%s should not exist after compact", leftover)
		}
	}
}

func TestBoltCompactFailureKeepsDatabaseOpen(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "pinlock.db")

	db, err := OpenBolt(dbPath)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	if err := db.Set("pinlock.secure_key", "key"); err != nil {
		t.Fatalf("Failed to set value: %v", err)
	}

	// A directory where the scratch file should go makes the copy fail.
	if err := os.Mkdir(dbPath+".compact", 0700); err != nil {
		t.Fatalf("Failed to create blocker: %v", err)
	}

	if err := db.Compact(); !errors.Is(err, ErrStorage) {
		t.Fatalf("Expected ErrStorage, got %v", err)
	}

	value, err := db.Get("pinlock.secure_key")
	if err != nil {
		t.Fatalf("Database should still be usable: %v", err)
	}
	if value != "key" {
		t.Errorf("Value mismatch after failed compact: got %q", value)
	}
}
