package crypto

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testAESKeyHex = "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef"

func TestXORCipher_RoundTrip(t *testing.T) {
	c, err := NewXORCipher("trektoo-secret")
	require.NoError(t, err)

	for _, plaintext := range []string{"", "hello", `{"a":[1,2,3]}`, "héllo wörld", "emoji 🚀 ok"} {
		encoded, err := c.Encode(plaintext)
		require.NoError(t, err)
		if plaintext != "" {
			assert.NotEqual(t, plaintext, encoded)
		}

		decoded, err := c.Decode(encoded)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decoded)
	}
}

func TestXORCipher_WrongKeyDoesNotRecover(t *testing.T) {
	a, err := NewXORCipher("key-a")
	require.NoError(t, err)
	b, err := NewXORCipher("key-b")
	require.NoError(t, err)

	encoded, err := a.Encode("secret value")
	require.NoError(t, err)
	decoded, err := b.Decode(encoded)
	require.NoError(t, err)
	assert.NotEqual(t, "secret value", decoded)
}

func TestXORCipher_DecodeMalformed(t *testing.T) {
	c, err := NewXORCipher("k")
	require.NoError(t, err)

	_, err = c.Decode("!!!not-base64!!!")
	assert.ErrorIs(t, err, ErrMalformedCipherText)

	_, err = c.Decode(base64.StdEncoding.EncodeToString([]byte{0x01, 0x02, 0x03}))
	assert.ErrorIs(t, err, ErrMalformedCipherText)
}

func TestNewXORCipher_EmptyKey(t *testing.T) {
	_, err := NewXORCipher("")
	assert.Error(t, err)
}

func TestAESGCMEncoder_RoundTrip(t *testing.T) {
	enc, err := NewAESGCMEncoder(testAESKeyHex)
	require.NoError(t, err)

	for _, plaintext := range []string{"", "booking-42", `{"id":1,"name":"Ayu"}`} {
		token, err := enc.Encode(plaintext)
		require.NoError(t, err)

		decoded, err := enc.Decode(token)
		require.NoError(t, err)
		assert.Equal(t, plaintext, decoded)
	}
}

func TestAESGCMEncoder_Errors(t *testing.T) {
	_, err := NewAESGCMEncoder("abcd")
	assert.ErrorIs(t, err, ErrInvalidAESKeySize)

	_, err = NewAESGCMEncoder("not-hex")
	assert.Error(t, err)

	enc, err := NewAESGCMEncoder(testAESKeyHex)
	require.NoError(t, err)

	_, err = enc.Decode("%%%")
	assert.ErrorIs(t, err, ErrInvalidPayloadFormat)

	_, err = enc.Decode(base64.URLEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, ErrCiphertextTooShort)

	token, err := enc.Encode("x")
	require.NoError(t, err)
	other, err := NewAESGCMEncoder("fedcba9876543210fedcba9876543210fedcba9876543210fedcba9876543210")
	require.NoError(t, err)
	_, err = other.Decode(token)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestAESGCMEncoder_FreshNonce(t *testing.T) {
	enc, err := NewAESGCMEncoder(testAESKeyHex)
	require.NoError(t, err)

	a, err := enc.Encode(`"value"`)
	require.NoError(t, err)
	b, err := enc.Encode(`"value"`)
	require.NoError(t, err)
	assert.NotEqual(t, a, b, "nonce must differ per encryption")

	decoded, err := enc.Decode(a)
	require.NoError(t, err)
	assert.Equal(t, `"value"`, decoded)
}
