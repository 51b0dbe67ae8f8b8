package auth

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"time"
)

// magicTokenBytes is the raw entropy behind a magic token. 32 bytes keeps
// brute-force guessing infeasible within any sane expiry window.
const magicTokenBytes = 32

// NewMagicToken returns an opaque URL-safe token. Persistence is the caller's
// responsibility.
func NewMagicToken() (string, error) {
	buf := make([]byte, magicTokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to read random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

// MagicTokenExpiry computes the absolute expiry for a freshly issued token.
// All token timestamps are UTC end-to-end; mixing zoned and naive comparisons
// is how expiry checks rot.
func MagicTokenExpiry(ttl time.Duration) time.Time {
	return time.Now().UTC().Add(ttl)
}
