package utils

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
)

// opaqueTokenBytes is the entropy of verification and password-reset tokens.
const opaqueTokenBytes = 32

// NewOpaqueToken returns 32 bytes of crypto/rand output, hex encoded (64 chars).
// The same shape is used for email verification and password reset links.
func NewOpaqueToken() (string, error) {
	return randomHex(opaqueTokenBytes)
}

// HashToken returns the SHA-256 hex digest of a raw one-time token.  Only
// the digest is persisted so a leaked users table cannot be replayed.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return hex.EncodeToString(sum[:])
}

func randomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
