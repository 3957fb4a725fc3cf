package crypto

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"fmt"
	"unicode/utf16"
)

// ErrMalformedCipherText is returned when XOR cipher text cannot be decoded.
var ErrMalformedCipherText = errors.New("malformed xor cipher text")

// XORCipher obfuscates text with a repeating-key XOR over UTF-16 code units and
// base64 encodes the result. It hides values from casual inspection only and offers
// no integrity or confidentiality guarantees; use AESGCMEncoder for that.
type XORCipher struct {
	key []uint16
}

// NewXORCipher returns a cipher keyed by key. An empty key is rejected.
func NewXORCipher(key string) (*XORCipher, error) {
	if key == "" {
		return nil, errors.New("xor cipher key must not be empty")
	}
	return &XORCipher{key: utf16.Encode([]rune(key))}, nil
}

// Encode XORs every UTF-16 unit of plaintext with the key, writes each unit as two
// big-endian bytes and returns the standard base64 encoding.
func (c *XORCipher) Encode(plaintext string) (string, error) {
	units := utf16.Encode([]rune(plaintext))
	buf := make([]byte, 2*len(units))
	for i, u := range units {
		binary.BigEndian.PutUint16(buf[2*i:], u^c.key[i%len(c.key)])
	}
	return base64.StdEncoding.EncodeToString(buf), nil
}

// Decode reverses Encode.
func (c *XORCipher) Decode(encoded string) (string, error) {
	buf, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrMalformedCipherText, err)
	}
	if len(buf)%2 != 0 {
		return "", fmt.Errorf("%w: odd byte length %d", ErrMalformedCipherText, len(buf))
	}
	units := make([]uint16, len(buf)/2)
	for i := range units {
		units[i] = binary.BigEndian.Uint16(buf[2*i:]) ^ c.key[i%len(c.key)]
	}
	return string(utf16.Decode(units)), nil
}
