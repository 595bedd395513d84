// Package cryptox implements the passphrase-based codec for encrypted
// documents: SHA-256 key derivation and AES-GCM content encryption with a
// per-document init vector.
package cryptox

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
)

// ErrDecryptionFailed is returned when a ciphertext cannot be opened. The
// wrong key and corrupted data are deliberately indistinguishable.
var ErrDecryptionFailed = errors.New("decryption failed")

// nonceSize is the AES-GCM nonce length used as the per-document init vector.
const nonceSize = 12

// DeriveKey derives a 32-byte AES key from a passphrase. Deterministic on
// purpose: the passphrase is never stored, so the key must be re-derivable
// from a re-supplied passphrase alone.
func DeriveKey(passphrase string) []byte {
	hash := sha256.Sum256([]byte(passphrase))
	return hash[:]
}

// NewInitVector generates a fresh random init vector, hex-encoded for
// storage alongside the document. The IV is not a secret; the passphrase is.
func NewInitVector() (string, error) {
	iv := make([]byte, nonceSize)
	if _, err := rand.Read(iv); err != nil {
		return "", err
	}
	return hex.EncodeToString(iv), nil
}

// Encrypt encrypts plaintext with the given key and hex-encoded init vector
// and returns base64 ciphertext suitable for storage.
func Encrypt(key []byte, ivHex string, plaintext []byte) (string, error) {
	aesgcm, iv, err := newGCM(key, ivHex)
	if err != nil {
		return "", err
	}
	ciphertext := aesgcm.Seal(nil, iv, plaintext, nil)
	return base64.StdEncoding.EncodeToString(ciphertext), nil
}

// Decrypt reverses Encrypt. It returns ErrDecryptionFailed when the key is
// wrong or the stored data is corrupted.
func Decrypt(key []byte, ivHex string, ciphertext string) ([]byte, error) {
	aesgcm, iv, err := newGCM(key, ivHex)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	raw, err := base64.StdEncoding.DecodeString(ciphertext)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	plaintext, err := aesgcm.Open(nil, iv, raw, nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	return plaintext, nil
}

func newGCM(key []byte, ivHex string) (cipher.AEAD, []byte, error) {
	iv, err := hex.DecodeString(ivHex)
	if err != nil {
		return nil, nil, err
	}
	if len(iv) != nonceSize {
		return nil, nil, errors.New("invalid init vector length")
	}
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, nil, err
	}
	aesgcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, nil, err
	}
	return aesgcm, iv, nil
}
