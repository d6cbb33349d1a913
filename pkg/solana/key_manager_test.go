package solana

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyManager(t *testing.T) {
	km := NewKeyManager(t.TempDir())

	t.Run("Generate Key Pair", func(t *testing.T) {
		account, err := km.GenerateKeyPair()
		require.NoError(t, err)
		assert.NotNil(t, account)
		assert.NotEmpty(t, account.PublicKey.ToBase58())
		assert.NotEmpty(t, account.PrivateKey)
		assert.Equal(t, 64, len(account.PrivateKey), "Private key should be 64 bytes")
	})

	t.Run("Encrypt and Decrypt Private Key", func(t *testing.T) {
		account, err := km.GenerateKeyPair()
		require.NoError(t, err)

		password := "test-password"
		encrypted, err := km.EncryptPrivateKey(account.PrivateKey, password)
		require.NoError(t, err)
		assert.NotEmpty(t, encrypted)

		decrypted, err := km.DecryptPrivateKey(encrypted, password)
		require.NoError(t, err)
		assert.True(t, bytes.Equal(account.PrivateKey[:], decrypted), "Decrypted private key should match original")
	})

	t.Run("Save and Load Keystore Entry", func(t *testing.T) {
		account, err := km.GenerateKeyPair()
		require.NoError(t, err)

		password := "test-password"
		require.NoError(t, km.SaveKeyStoreEntry(account, password))

		address := account.PublicKey.ToBase58()
		loaded, err := km.LoadKeyStoreEntry(address, password)
		require.NoError(t, err)
		assert.Equal(t, address, loaded.PublicKey.ToBase58())
		assert.True(t, bytes.Equal(account.PrivateKey[:], loaded.PrivateKey[:]))
	})

	t.Run("Load Signing Key", func(t *testing.T) {
		account, err := km.GenerateKeyPair()
		require.NoError(t, err)

		password := "test-password"
		require.NoError(t, km.SaveKeyStoreEntry(account, password))

		signing, err := km.LoadSigningKey(account.PublicKey.ToBase58(), password)
		require.NoError(t, err)
		assert.Equal(t, account.PublicKey.ToBase58(), signing.PublicKey().String())
	})

	t.Run("Error Cases", func(t *testing.T) {
		account, err := km.GenerateKeyPair()
		require.NoError(t, err)

		encrypted, err := km.EncryptPrivateKey(account.PrivateKey, "password1")
		require.NoError(t, err)

		_, err = km.DecryptPrivateKey(encrypted, "password2")
		assert.Error(t, err)

		_, err = km.LoadKeyStoreEntry("nonexistent-address", "password1")
		assert.Error(t, err)

		require.NoError(t, km.SaveKeyStoreEntry(account, "password1"))
		_, err = km.LoadSigningKey(account.PublicKey.ToBase58(), "wrong")
		assert.Error(t, err)
	})

	t.Run("Multiple Key Generation", func(t *testing.T) {
		keys := make(map[string]bool)
		for i := 0; i < 10; i++ {
			account, err := km.GenerateKeyPair()
			require.NoError(t, err)

			address := account.PublicKey.ToBase58()
			assert.False(t, keys[address], "Generated duplicate address")
			keys[address] = true
		}
	})
}
