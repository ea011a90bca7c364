package token

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// CodeBytes is the amount of randomness behind every verification code id (256 bits).
const CodeBytes = 32

// NewCodeID returns an unguessable URL-safe identifier suitable for use as a
// path segment: 32 random bytes, base64url without padding (43 characters).
func NewCodeID() (string, error) {
	b := make([]byte, CodeBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate code id: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// WellFormed reports whether s could have been produced by NewCodeID.
// Malformed input can be rejected without a store round-trip.
func WellFormed(s string) bool {
	if len(s) != base64.RawURLEncoding.EncodedLen(CodeBytes) {
		return false
	}
	b, err := base64.RawURLEncoding.DecodeString(s)
	return err == nil && len(b) == CodeBytes
}
