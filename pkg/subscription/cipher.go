package subscription

import (
	"errors"

	"github.com/dmitrymomot/billingkit/pkg/secrets"
)

const metadataPurpose = "subscription-metadata"

// aesCipher implements MetadataCipher on top of the secrets package, with a
// key derived for subscription metadata only. A leak of this derived key
// exposes nothing encrypted for other purposes.
type aesCipher struct {
	key []byte
}

// NewMetadataCipher returns a MetadataCipher bound to the given master key.
func NewMetadataCipher(key []byte) (MetadataCipher, error) {
	if err := secrets.ValidateKey(key); err != nil {
		return nil, err
	}
	return &aesCipher{key: key}, nil
}

func (c *aesCipher) Encrypt(plaintext []byte) (string, error) {
	ciphertext, err := secrets.EncryptString(c.key, metadataPurpose, string(plaintext))
	if err != nil {
		return "", errors.Join(ErrFailedToEncryptMetadata, err)
	}
	return ciphertext, nil
}

func (c *aesCipher) Decrypt(ciphertext string) ([]byte, error) {
	plaintext, err := secrets.DecryptString(c.key, metadataPurpose, ciphertext)
	if err != nil {
		return nil, errors.Join(ErrFailedToDecryptMetadata, err)
	}
	return []byte(plaintext), nil
}
