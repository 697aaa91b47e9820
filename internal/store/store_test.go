package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"
)

func backends(t *testing.T) map[string]Store {
	t.Helper()

	keyring.MockInit()

	db, err := OpenBolt(filepath.Join(t.TempDir(), "pinlock.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return map[string]Store{
		BackendMemory:  NewMemory(),
		BackendBolt:    db,
		BackendKeyring: NewKeyring("pinlock-test"),
	}
}

func TestStoreContract(t *testing.T) {
	for name, s := range backends(t) {
		t.Run(name, func(t *testing.T) {
			_, err := s.Get("missing")
			assert.ErrorIs(t, err, ErrNotFound)

			ok, err := s.Exists("missing")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Set("k", "v1"))
			require.NoError(t, s.Set("k", "v2"))

			v, err := s.Get("k")
			require.NoError(t, err)
			assert.Equal(t, "v2", v, "Set must overwrite")

			ok, err = s.Exists("k")
			require.NoError(t, err)
			assert.True(t, ok)

			require.NoError(t, s.Remove("k"))
			require.NoError(t, s.Remove("k"), "Remove must be idempotent")

			_, err = s.Get("k")
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestOpen(t *testing.T) {
	keyring.MockInit()

	tests := []struct {
		name    string
		opts    Options
		wantErr bool
	}{
		{name: "memory", opts: Options{Backend: BackendMemory}},
		{name: "keyring", opts: Options{Backend: BackendKeyring}},
		{name: "bbolt", opts: Options{Backend: BackendBolt, Path: filepath.Join(t.TempDir(), "p.db")}},
		{name: "bbolt without path", opts: Options{Backend: BackendBolt}, wantErr: true},
		{name: "unknown", opts: Options{Backend: "sqlite"}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, closeFn, err := Open(tt.opts)
			require.NotNil(t, closeFn)
			defer closeFn()

			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestKeyringDefaultService(t *testing.T) {
	keyring.MockInit()

	k := NewKeyring("")
	require.NoError(t, k.Set("pinlock.secure_key", "material"))

	v, err := keyring.Get(DefaultService, "pinlock.secure_key")
	require.NoError(t, err)
	assert.Equal(t, "material", v)
}
