package secrets_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/billingkit/pkg/secrets"
)

func TestEncryptDecryptString(t *testing.T) {
	t.Parallel()

	key, err := secrets.GenerateKey()
	require.NoError(t, err)

	t.Run("round trip", func(t *testing.T) {
		t.Parallel()
		ct, err := secrets.EncryptString(key, "subscription_metadata", `{"id":"I-ABC"}`)
		require.NoError(t, err)
		assert.NotContains(t, ct, "I-ABC")

		pt, err := secrets.DecryptString(key, "subscription_metadata", ct)
		require.NoError(t, err)
		assert.Equal(t, `{"id":"I-ABC"}`, pt)
	})

	t.Run("purpose separation", func(t *testing.T) {
		t.Parallel()
		ct, err := secrets.EncryptString(key, "subscription_metadata", "payload")
		require.NoError(t, err)

		_, err = secrets.DecryptString(key, "subscriber_pii", ct)
		assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
	})

	t.Run("wrong key fails", func(t *testing.T) {
		t.Parallel()
		otherKey, err := secrets.GenerateKey()
		require.NoError(t, err)

		ct, err := secrets.EncryptString(key, "subscription_metadata", "payload")
		require.NoError(t, err)

		_, err = secrets.DecryptString(otherKey, "subscription_metadata", ct)
		assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
	})

	t.Run("invalid key length", func(t *testing.T) {
		t.Parallel()
		_, err := secrets.EncryptString([]byte("short"), "subscription_metadata", "payload")
		assert.ErrorIs(t, err, secrets.ErrInvalidKey)
	})

	t.Run("tampered ciphertext", func(t *testing.T) {
		t.Parallel()
		ct, err := secrets.EncryptBytes(key, "subscription_metadata", []byte("payload"))
		require.NoError(t, err)

		ct[len(ct)-1] ^= 0x01
		_, err = secrets.DecryptBytes(key, "subscription_metadata", ct)
		assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
	})

	t.Run("truncated ciphertext", func(t *testing.T) {
		t.Parallel()
		_, err := secrets.DecryptBytes(key, "subscription_metadata", []byte{0x01, 0x02})
		assert.ErrorIs(t, err, secrets.ErrInvalidCiphertext)
	})
}
