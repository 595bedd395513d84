package utils

import (
	"crypto/rand"
	"math/big"
	"strings"
)

// Slug length tiers. The long tier exists to shrink collision probability
// for high-volume callers, nothing more.
const (
	SlugLengthShort = 8
	SlugLengthLong  = 26

	// PassphraseLength is the length of auto-generated document passphrases.
	PassphraseLength = 12
)

const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789"

// GenerateSlug generates a random slug of the given length using crypto/rand
// and a fixed alphanumeric charset. Lengths other than the two supported
// tiers fall back to the short tier. Uniqueness is not guaranteed here; the
// store rejects duplicate slugs at insert time and the caller retries.
func GenerateSlug(length int) (string, error) {
	if length != SlugLengthShort && length != SlugLengthLong {
		length = SlugLengthShort
	}
	return randomString(length)
}

// GeneratePassphrase generates a random 12-character passphrase for
// encrypted documents created without an explicit password.
func GeneratePassphrase() (string, error) {
	return randomString(PassphraseLength)
}

func randomString(length int) (string, error) {
	result := make([]byte, length)
	for i := range result {
		idx, err := rand.Int(rand.Reader, big.NewInt(int64(len(alphabet))))
		if err != nil {
			return "", err
		}
		result[i] = alphabet[idx.Int64()]
	}
	return string(result), nil
}

// IsValidSlug checks if a slug has a supported length and contains only
// charset characters
func IsValidSlug(slug string) bool {
	if len(slug) != SlugLengthShort && len(slug) != SlugLengthLong {
		return false
	}
	for _, char := range slug {
		if !strings.ContainsRune(alphabet, char) {
			return false
		}
	}
	return true
}
