package cryptox

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// ResetTokenBytes is the entropy of a password-reset token before encoding.
// 32 bytes gives 256 bits, which is far beyond brute-force reach for a
// token that also expires within the hour.
const ResetTokenBytes = 32

// GenerateToken creates a cryptographically secure random token of the
// given byte length, hex-encoded. The raw token is delivered to the user
// out-of-band and only its argon2 hash (HashPassword) is stored.
func GenerateToken(size int) (string, error) {
	if size <= 0 {
		return "", fmt.Errorf("token size must be positive, got %d", size)
	}

	buf := make([]byte, size)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate random token: %w", err)
	}

	return hex.EncodeToString(buf), nil
}
