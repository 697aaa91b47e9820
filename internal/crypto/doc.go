// Package crypto provides the envelope encryption used for stored PINs.
//
// Encryption uses AES-256-CBC with:
//   - 32-byte key derived from the device's secure key material
//   - 16-byte random IV per encryption operation
//   - PKCS#7 padding, validated on decryption
//
// Envelope layout is IV || ciphertext. The caller base64-encodes it for
// text-only stores.
//
// Key derivation defaults to a single SHA-256 of the key material, which
// matches credentials already stored by earlier installations. PBKDF2 is
// available as an opt-in deriver.
//
// Memory safety:
//   - Use ClearBytes() to zero sensitive data after use
//   - Call Encryptor.Destroy() when done with encryption operations
package crypto
