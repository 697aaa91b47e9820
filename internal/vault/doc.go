// Package vault keeps the enrolled PIN encrypted at rest.
//
// The PIN is encrypted with AES-256-CBC under a key derived from per-device
// secure key material, and the resulting envelope (IV || ciphertext, base64)
// is written to a store.Store. The key material itself lives in the same
// store and is created on first enrollment:
//
//	base64(32 random bytes) + device identifier
//
// Erasing a credential keeps the key material so the next enrollment reuses it.
//
// The vault holds no plaintext between calls. Every Verify re-reads and
// re-decrypts the envelope, so an Erase is observed immediately.
package vault
