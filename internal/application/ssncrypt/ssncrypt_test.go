package ssncrypt

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testKey = bytes.Repeat([]byte{0x42}, 32)

func TestEncryptDecrypt(t *testing.T) {
	c, err := New(testKey)
	require.NoError(t, err)

	token, err := c.Encrypt("123-45-6789")
	require.NoError(t, err)
	assert.True(t, IsToken(token))
	assert.NotContains(t, token, "123456789")
	assert.NotContains(t, token, "6789")

	plain, err := c.Decrypt(token)
	require.NoError(t, err)
	assert.Equal(t, "123456789", plain)

	again, err := c.Encrypt("123456789")
	require.NoError(t, err)
	assert.NotEqual(t, token, again)
}

func TestEncrypt_RejectsNonSSN(t *testing.T) {
	c, err := New(testKey)
	require.NoError(t, err)

	for _, in := range []string{"", "12345678", "1234567890", "***-**-6789", "abc-de-fghi"} {
		_, err := c.Encrypt(in)
		assert.ErrorIs(t, err, ErrInvalidSSN, in)
	}
}

func TestDecrypt_RejectsTampering(t *testing.T) {
	c, err := New(testKey)
	require.NoError(t, err)
	token, err := c.Encrypt("123456789")
	require.NoError(t, err)

	i := len(tokenPrefix) + 30
	swap := byte('A')
	if token[i] == swap {
		swap = 'B'
	}
	tampered := token[:i] + string(swap) + token[i+1:]
	_, err = c.Decrypt(tampered)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = c.Decrypt(strings.TrimPrefix(token, tokenPrefix))
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = c.Decrypt("v1:!!")
	assert.ErrorIs(t, err, ErrInvalidToken)

	other, err := New(bytes.Repeat([]byte{0x07}, 32))
	require.NoError(t, err)
	_, err = other.Decrypt(token)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNew_KeyLength(t *testing.T) {
	_, err := New([]byte("short"))
	assert.Error(t, err)
}

func TestEncrypt_NonceFailure(t *testing.T) {
	c, err := New(testKey)
	require.NoError(t, err)
	c.rand = failingReader{}

	_, err = c.Encrypt("123456789")
	assert.ErrorContains(t, err, "read nonce")
}

type failingReader struct{}

func (failingReader) Read([]byte) (int, error) { return 0, errors.New("no entropy") }
