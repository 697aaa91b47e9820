// Package deviceid supplies the device identifier mixed into secure key
// material. Every provider is best effort and never fails: on any error it
// returns Fallback.
package deviceid

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Fallback is returned when no identifier can be determined.
const Fallback = "Unknown_Device"

// Provider names accepted by New.
const (
	ProviderMachineID = "machine-id"
	ProviderFile      = "file"
)

// Provider returns an identifier for the current device.
type Provider interface {
	DeviceID() string
}

// New returns the provider registered under name. path is only used by the
// file provider.
func New(name, path string) (Provider, error) {
	switch name {
	case "", ProviderMachineID:
		return MachineID{}, nil
	case ProviderFile:
		if path == "" {
			return nil, errors.New("file device id provider needs a path")
		}
		return File{Path: path}, nil
	default:
		return nil, fmt.Errorf("unknown device id provider %q", name)
	}
}

// Static always returns the same identifier.
type Static string

func (s Static) DeviceID() string {
	if s == "" {
		return Fallback
	}
	return string(s)
}

var machineIDPaths = []string{"/etc/machine-id", "/var/lib/dbus/machine-id"}

// MachineID reads the systemd/dbus machine id, then falls back to the hostname.
type MachineID struct {
	// Paths overrides the candidate files, mainly for tests.
	Paths []string
}

func (m MachineID) DeviceID() string {
	paths := m.Paths
	if paths == nil {
		paths = machineIDPaths
	}
	for _, p := range paths {
		if id := readID(p); id != "" {
			return id
		}
	}
	if host, err := os.Hostname(); err == nil && host != "" {
		return host
	}
	return Fallback
}

// File keeps a per-installation identifier in a file, generating a random
// UUID the first time. Removing the file yields a new identity, the same way
// an app reinstall does on mobile platforms.
type File struct {
	Path string
}

func (f File) DeviceID() string {
	if id := readID(f.Path); id != "" {
		return id
	}

	id := uuid.NewString()
	if err := os.MkdirAll(filepath.Dir(f.Path), 0700); err != nil {
		return Fallback
	}
	if err := os.WriteFile(f.Path, []byte(id+"\n"), 0600); err != nil {
		return Fallback
	}
	return id
}

func readID(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}
