// Package secrets encrypts sensitive payloads before they reach storage.
//
// A single 32-byte application key is combined with a purpose label through
// HKDF-SHA-256, and the derived key is used with AES-256-GCM. The nonce is
// prepended to the ciphertext so every encrypted value is self-contained.
// String helpers base64-encode the result for text columns.
//
// Use errors.Is against the package sentinels (ErrDecryptionFailed,
// ErrInvalidCiphertext, ...) to classify failures.
package secrets
