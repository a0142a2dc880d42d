package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef") // 32 bytes

	ciphertext, err := Encrypt([]byte("super-secret-token"), key)
	require.NoError(t, err)
	assert.NotEqual(t, "super-secret-token", ciphertext)

	plaintext, err := Decrypt(ciphertext, key)
	require.NoError(t, err)
	assert.Equal(t, "super-secret-token", plaintext)
}

func TestDecryptWrongKey(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")
	otherKey := []byte("fedcba9876543210fedcba9876543210")

	ciphertext, err := Encrypt([]byte("secret"), key)
	require.NoError(t, err)

	_, err = Decrypt(ciphertext, otherKey)
	assert.Error(t, err)
}

func TestDecryptGarbage(t *testing.T) {
	key := []byte("0123456789abcdef0123456789abcdef")

	_, err := Decrypt("not base64!!", key)
	assert.Error(t, err)

	_, err = Decrypt("QQ==", key) // valid base64, shorter than a nonce
	assert.Error(t, err)
}
