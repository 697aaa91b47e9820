package crypto

import (
	"bytes"
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

const (
	KeySize = 32            // AES-256 key size
	IVSize  = aes.BlockSize // CBC IV size
)

var (
	ErrInvalidKey        = errors.New("invalid key size")
	ErrInvalidCiphertext = errors.New("invalid ciphertext")
	ErrInvalidPadding    = errors.New("invalid padding")
)

// Encryptor provides AES-256-CBC envelope encryption
type Encryptor struct {
	key []byte
}

// NewEncryptor creates a new encryptor with the given key
func NewEncryptor(key []byte) (*Encryptor, error) {
	if len(key) != KeySize {
		return nil, fmt.Errorf("%w: got %d bytes", ErrInvalidKey, len(key))
	}
	return &Encryptor{
		key: key,
	}, nil
}

// Encrypt pads plaintext and encrypts it under a fresh random IV.
// The result is IV || ciphertext.
func (e *Encryptor) Encrypt(plaintext []byte) ([]byte, error) {
	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	iv, err := GenerateRandom(IVSize)
	if err != nil {
		return nil, fmt.Errorf("failed to generate IV: %w", err)
	}

	padded := Pad(plaintext, aes.BlockSize)
	defer ClearBytes(padded)

	result := make([]byte, IVSize+len(padded))
	copy(result, iv)
	cipher.NewCBCEncrypter(block, iv).CryptBlocks(result[IVSize:], padded)

	return result, nil
}

// Decrypt splits the IV off envelope, decrypts the remainder and strips
// the padding.
func (e *Encryptor) Decrypt(envelope []byte) ([]byte, error) {
	if len(envelope) < IVSize+aes.BlockSize {
		return nil, ErrInvalidCiphertext
	}
	body := envelope[IVSize:]
	if len(body)%aes.BlockSize != 0 {
		return nil, ErrInvalidCiphertext
	}

	block, err := aes.NewCipher(e.key)
	if err != nil {
		return nil, fmt.Errorf("failed to create cipher: %w", err)
	}

	plaintext := make([]byte, len(body))
	cipher.NewCBCDecrypter(block, envelope[:IVSize]).CryptBlocks(plaintext, body)

	unpadded, err := Unpad(plaintext, aes.BlockSize)
	if err != nil {
		ClearBytes(plaintext)
		return nil, err
	}
	return unpadded, nil
}

// Destroy clears the encryptor's key from memory
func (e *Encryptor) Destroy() {
	ClearBytes(e.key)
}

// Pad applies PKCS#7 padding. A full block is added when len(b) is already
// a multiple of blockSize.
func Pad(b []byte, blockSize int) []byte {
	n := blockSize - len(b)%blockSize
	out := make([]byte, len(b)+n)
	copy(out, b)
	copy(out[len(b):], bytes.Repeat([]byte{byte(n)}, n))
	return out
}

// Unpad validates and removes PKCS#7 padding
func Unpad(b []byte, blockSize int) ([]byte, error) {
	if len(b) == 0 || len(b)%blockSize != 0 {
		return nil, ErrInvalidPadding
	}
	n := int(b[len(b)-1])
	if n == 0 || n > blockSize {
		return nil, ErrInvalidPadding
	}
	for _, p := range b[len(b)-n:] {
		if int(p) != n {
			return nil, ErrInvalidPadding
		}
	}
	return b[:len(b)-n], nil
}

// ClearBytes securely clears a byte slice
func ClearBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

// GenerateRandom generates n random bytes
func GenerateRandom(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return b, nil
}
