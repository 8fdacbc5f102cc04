package vault

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"errors"
	"fmt"
)

// AlgorithmAES256GCM is the id stored next to every ciphertext. Future key
// rotation adds a new id instead of reformatting old records.
const AlgorithmAES256GCM = "aes256gcm"

// ErrDecrypt indicates the authenticated tag did not verify. The reason is
// never exposed to clients; a failed tag means tampering or key mismatch.
var ErrDecrypt = errors.New("vault: decryption failed")

// SecretBox wraps AES-256-GCM with the process-wide key. The key is
// read-only after startup.
type SecretBox struct {
	aead cipher.AEAD
}

// NewSecretBox builds the box from a 32-byte key.
func NewSecretBox(key []byte) (*SecretBox, error) {
	if len(key) != 32 {
		return nil, fmt.Errorf("vault: encryption key must be 32 bytes, got %d", len(key))
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("vault: init cipher: %w", err)
	}
	aead, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("vault: init gcm: %w", err)
	}
	return &SecretBox{aead: aead}, nil
}

// Seal encrypts plaintext under a fresh random nonce. Nonces are never
// reused for this key.
func (b *SecretBox) Seal(plaintext []byte) (ciphertext, nonce []byte, err error) {
	nonce = make([]byte, b.aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, nil, fmt.Errorf("vault: generate nonce: %w", err)
	}
	return b.aead.Seal(nil, nonce, plaintext, nil), nonce, nil
}

// Open decrypts and verifies the authenticated tag. A corrupted nonce,
// ciphertext or tag fails; garbage is never returned.
func (b *SecretBox) Open(ciphertext, nonce []byte) ([]byte, error) {
	if len(nonce) != b.aead.NonceSize() {
		return nil, ErrDecrypt
	}
	plaintext, err := b.aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, ErrDecrypt
	}
	return plaintext, nil
}
