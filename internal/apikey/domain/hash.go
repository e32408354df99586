package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// HashSecret hashes the secret part of an API key, i.e. the key with its prefix removed.
func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// SplitKey returns the secret part of raw when it carries prefix.
func SplitKey(raw, prefix string) (string, bool) {
	if prefix == "" || !strings.HasPrefix(raw, prefix) {
		return "", false
	}
	return strings.TrimPrefix(raw, prefix), true
}
