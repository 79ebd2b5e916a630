// Package ssncrypt turns a raw SSN into an opaque token that is safe to store in a draft.
package ssncrypt

import (
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/hkdf"
)

const (
	tokenPrefix = "v1:"
	hkdfInfo    = "driver-application/ssn/v1"
)

var (
	ErrInvalidSSN   = errors.New("ssn must be exactly 9 digits")
	ErrInvalidToken = errors.New("malformed ssn token")

	digitsPattern = regexp.MustCompile(`^\d{9}$`)
)

// Cipher seals SSNs with XChaCha20-Poly1305 under a key derived from the master key.
type Cipher struct {
	aead cipher.AEAD
	rand io.Reader
}

// New derives the data key from masterKey, which must be 32 bytes.
func New(masterKey []byte) (*Cipher, error) {
	if len(masterKey) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("ssn encryption key must be %d bytes, got %d", chacha20poly1305.KeySize, len(masterKey))
	}
	key := make([]byte, chacha20poly1305.KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, masterKey, nil, []byte(hkdfInfo)), key); err != nil {
		return nil, fmt.Errorf("derive ssn key: %w", err)
	}
	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, fmt.Errorf("create aead: %w", err)
	}
	return &Cipher{aead: aead, rand: rand.Reader}, nil
}

// Normalize strips dashes and checks for exactly 9 digits.
func Normalize(raw string) (string, error) {
	digits := strings.ReplaceAll(strings.TrimSpace(raw), "-", "")
	if !digitsPattern.MatchString(digits) {
		return "", ErrInvalidSSN
	}
	return digits, nil
}

// Encrypt returns a fresh token for raw; the same SSN never yields the same token twice.
func (c *Cipher) Encrypt(raw string) (string, error) {
	digits, err := Normalize(raw)
	if err != nil {
		return "", err
	}
	nonce := make([]byte, c.aead.NonceSize(), c.aead.NonceSize()+len(digits)+c.aead.Overhead())
	if _, err := io.ReadFull(c.rand, nonce); err != nil {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	sealed := c.aead.Seal(nonce, nonce, []byte(digits), []byte(tokenPrefix))
	return tokenPrefix + base64.RawURLEncoding.EncodeToString(sealed), nil
}

// Decrypt recovers the digits from a token.
func (c *Cipher) Decrypt(token string) (string, error) {
	if !strings.HasPrefix(token, tokenPrefix) {
		return "", ErrInvalidToken
	}
	sealed, err := base64.RawURLEncoding.DecodeString(strings.TrimPrefix(token, tokenPrefix))
	if err != nil || len(sealed) < c.aead.NonceSize()+c.aead.Overhead() {
		return "", ErrInvalidToken
	}
	nonce, body := sealed[:c.aead.NonceSize()], sealed[c.aead.NonceSize():]
	plain, err := c.aead.Open(nil, nonce, body, []byte(tokenPrefix))
	if err != nil {
		return "", ErrInvalidToken
	}
	return string(plain), nil
}

// IsToken reports whether s has the token shape. It does not authenticate it.
func IsToken(s string) bool {
	return strings.HasPrefix(s, tokenPrefix) && len(s) > len(tokenPrefix)
}
