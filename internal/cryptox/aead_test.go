package cryptox

import (
	"bytes"
	"crypto/rand"
	"testing"

	"github.com/openpass-dev/openpass/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func randKey(t *testing.T) []byte {
	t.Helper()
	key := make([]byte, KeySize)
	_, err := rand.Read(key)
	require.NoError(t, err)
	return key
}

func TestEncryptDecrypt_RoundTrip(t *testing.T) {
	key := randKey(t)

	payloads := [][]byte{
		[]byte("hello"),
		{},
		bytes.Repeat([]byte{0xAB}, 1<<16), // photo-sized
	}

	for _, p := range payloads {
		env, err := Encrypt(p, key)
		require.NoError(t, err)

		got, err := Decrypt(env, key)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestEncrypt_FreshNoncePerCall(t *testing.T) {
	key := randKey(t)

	e1, err := Encrypt([]byte("same plaintext"), key)
	require.NoError(t, err)
	e2, err := Encrypt([]byte("same plaintext"), key)
	require.NoError(t, err)

	assert.NotEqual(t, e1, e2)
}

func TestDecrypt_WrongKeyFailsIntegrity(t *testing.T) {
	env, err := Encrypt([]byte("secret"), randKey(t))
	require.NoError(t, err)

	_, err = Decrypt(env, randKey(t))
	assert.ErrorIs(t, err, common.ErrIntegrity)
}

func TestDecrypt_AnySingleBitFlipFailsIntegrity(t *testing.T) {
	key := randKey(t)
	env, err := Encrypt([]byte("tamper me"), key)
	require.NoError(t, err)

	for i := range env {
		corrupted := append([]byte(nil), env...)
		corrupted[i] ^= 0x01

		_, err := Decrypt(corrupted, key)
		assert.ErrorIs(t, err, common.ErrIntegrity, "byte %d", i)
	}
}

func TestDecrypt_TruncatedEnvelopeFailsIntegrity(t *testing.T) {
	key := randKey(t)

	for _, env := range [][]byte{nil, {}, {0x01}, make([]byte, nonceSize-1)} {
		_, err := Decrypt(env, key)
		assert.ErrorIs(t, err, common.ErrIntegrity)
	}
}

func TestEncrypt_BadKeyLength(t *testing.T) {
	_, err := Encrypt([]byte("x"), []byte("short"))
	assert.Error(t, err)
}
