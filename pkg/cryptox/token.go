// Package cryptox provides the cryptographically strong random values used
// for access tokens, authorization codes and consent nonces.
package cryptox

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// Token size constants (in bytes before encoding).
const (
	// TokenSize128 provides 128 bits of entropy (32 hex chars). Used for
	// access tokens, authorization codes and authorize nonces.
	TokenSize128 = 16
	// TokenSize256 provides 256 bits of entropy (64 hex chars).
	TokenSize256 = 32
)

// RandomHex returns size bytes from the operating system's CSPRNG encoded as
// lowercase hex. A failure of the random source is returned as an error and
// must abort the calling operation; token generation never degrades to a
// weaker source.
func RandomHex(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("cryptox: token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("cryptox: random source unavailable: %w", err)
	}

	return hex.EncodeToString(buf), nil
}

// MustRandomHex is like RandomHex but panics on error. Use only during
// initialization where failure is unrecoverable.
func MustRandomHex(size int) string {
	s, err := RandomHex(size)
	if err != nil {
		panic(err)
	}
	return s
}
