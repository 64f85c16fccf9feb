package secrets

import (
	"crypto/rand"
	"crypto/sha256"
	"errors"
	"io"

	"golang.org/x/crypto/hkdf"
)

const (
	// KeySize is the required size of the application key.
	KeySize = 32 // 256 bits for AES-256

	// saltInfo provides domain separation for HKDF derivation.
	saltInfo = "billingkit-secrets-v1"
)

// ValidateKey checks that the application key has the correct length.
func ValidateKey(key []byte) error {
	if len(key) != KeySize {
		return ErrInvalidKey
	}
	return nil
}

// deriveKey derives a purpose-bound key from the application key using
// HKDF-SHA-256. Distinct purposes ("subscription_metadata", "subscriber_pii")
// yield unrelated keys, so a leak of one derived key does not expose data
// encrypted for another purpose.
func deriveKey(key []byte, purpose string) ([]byte, error) {
	if err := ValidateKey(key); err != nil {
		return nil, err
	}

	reader := hkdf.New(sha256.New, key, []byte(purpose), []byte(saltInfo))

	derived := make([]byte, KeySize)
	if _, err := io.ReadFull(reader, derived); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}

	return derived, nil
}

// GenerateKey creates a new random 32-byte application key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}
