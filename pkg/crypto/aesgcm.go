package crypto

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
)

var (
	ErrInvalidAESKeySize    = errors.New("invalid AES key size")
	ErrInvalidPayloadFormat = errors.New("invalid payload format, expecting base64 encoded nonce+ciphertext")
	ErrCiphertextTooShort   = errors.New("ciphertext too short, cannot extract nonce")
	ErrDecryptionFailed     = errors.New("payload decryption failed")
)

const (
	// AES-256 requires a 32-byte key.
	aes256KeyBytes = 32
	// GCM standard nonce size.
	gcmNonceSizeBytes = 12
)

func newGCM(aesKeyHex string) (cipher.AEAD, error) {
	key, err := hex.DecodeString(aesKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode AES key from hex: %w", err)
	}
	if len(key) != aes256KeyBytes {
		return nil, fmt.Errorf("%w: expected %d bytes, got %d", ErrInvalidAESKeySize, aes256KeyBytes, len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("failed to create AES cipher block: %w", err)
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to create GCM cipher: %w", err)
	}
	return aesgcm, nil
}

// seal encrypts plaintext and returns base64url(nonce + ciphertext).
func seal(aesgcm cipher.AEAD, plaintext []byte) (string, error) {
	nonce := make([]byte, gcmNonceSizeBytes)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}
	sealed := aesgcm.Seal(nonce, nonce, plaintext, nil)
	return base64.URLEncoding.EncodeToString(sealed), nil
}

func open(aesgcm cipher.AEAD, payloadB64 string) ([]byte, error) {
	encrypted, err := base64.URLEncoding.DecodeString(payloadB64)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayloadFormat, err)
	}
	if len(encrypted) < gcmNonceSizeBytes {
		return nil, fmt.Errorf("%w: length %d, minimum %d", ErrCiphertextTooShort, len(encrypted), gcmNonceSizeBytes)
	}

	nonce := encrypted[:gcmNonceSizeBytes]
	ciphertext := encrypted[gcmNonceSizeBytes:]

	plaintext, err := aesgcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		// Usually "cipher: message authentication failed": wrong key or tampered payload.
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

// AESGCMEncoder is an authenticated Encoder for stored values.
type AESGCMEncoder struct {
	aead cipher.AEAD
}

// NewAESGCMEncoder builds an encoder from a hex encoded 32-byte key.
func NewAESGCMEncoder(aesKeyHex string) (*AESGCMEncoder, error) {
	aesgcm, err := newGCM(aesKeyHex)
	if err != nil {
		return nil, err
	}
	return &AESGCMEncoder{aead: aesgcm}, nil
}

func (e *AESGCMEncoder) Encode(plaintext string) (string, error) {
	return seal(e.aead, []byte(plaintext))
}

func (e *AESGCMEncoder) Decode(encoded string) (string, error) {
	plaintext, err := open(e.aead, encoded)
	if err != nil {
		return "", err
	}
	return string(plaintext), nil
}
