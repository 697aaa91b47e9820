package crypto

import (
	"crypto/sha256"
	"errors"
	"fmt"

	"golang.org/x/crypto/pbkdf2"
)

const (
	KDFSHA256 = "sha256"
	KDFPBKDF2 = "pbkdf2"

	DefaultIters = 210000 // Default PBKDF2 iterations (OWASP minimum)

	// randomPartLen is the length of base64(32 random bytes) at the start
	// of generated key material. Whatever follows is the device identifier.
	randomPartLen = 44
)

var ErrEmptyKeyMaterial = errors.New("empty key material")

// KeyDeriver turns secure key material into a 32-byte cipher key
type KeyDeriver interface {
	DeriveKey(material string) ([]byte, error)
}

// SHA256 derives the key as SHA-256 over the UTF-8 bytes of the material.
// This is the format existing stored credentials were written with.
type SHA256 struct{}

// DeriveKey hashes the key material
func (SHA256) DeriveKey(material string) ([]byte, error) {
	if material == "" {
		return nil, ErrEmptyKeyMaterial
	}
	sum := sha256.Sum256([]byte(material))
	return sum[:KeySize], nil
}

// PBKDF2 derives the key with PBKDF2-HMAC-SHA256. The salt is the SHA-256 of
// the device identifier embedded in the key material.
type PBKDF2 struct {
	Iterations int
}

// DeriveKey stretches the key material
func (k PBKDF2) DeriveKey(material string) ([]byte, error) {
	if material == "" {
		return nil, ErrEmptyKeyMaterial
	}
	iters := k.Iterations
	if iters <= 0 {
		iters = DefaultIters
	}

	saltSource := material
	if len(material) > randomPartLen {
		saltSource = material[randomPartLen:]
	}
	salt := sha256.Sum256([]byte(saltSource))

	return pbkdf2.Key([]byte(material), salt[:], iters, KeySize, sha256.New), nil
}

// NewKeyDeriver returns the deriver registered under name
func NewKeyDeriver(name string, iterations int) (KeyDeriver, error) {
	switch name {
	case "", KDFSHA256:
		return SHA256{}, nil
	case KDFPBKDF2:
		return PBKDF2{Iterations: iterations}, nil
	default:
		return nil, fmt.Errorf("unknown key derivation %q", name)
	}
}
