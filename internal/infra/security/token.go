package security

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"
)

const (
	sessionIDBytes = 32
	csrfTokenBytes = 32
)

// GenerateSessionID returns an opaque hex token with 256 bits of randomness.
func GenerateSessionID() (string, error) {
	return randomHex(sessionIDBytes)
}

// GenerateCSRFToken returns a cryptographically random hex token for the
// double-submit cookie pair.
func GenerateCSRFToken() (string, error) {
	return randomHex(csrfTokenBytes)
}

func randomHex(byteLength int) (string, error) {
	buf := make([]byte, byteLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// HashToken calculates a SHA-256 hash of the provided value. Backup codes are
// stored in this form so the persistent store never sees them in plaintext.
func HashToken(value string) string {
	sum := sha256.Sum256([]byte(value))
	return hex.EncodeToString(sum[:])
}

// GenerateBackupCodes produces count plaintext backup codes, each codeLength
// uppercase base32-like characters.
func GenerateBackupCodes(count, codeLength int) ([]string, error) {
	const alphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

	codes := make([]string, 0, count)
	for i := 0; i < count; i++ {
		buf := make([]byte, codeLength)
		if _, err := rand.Read(buf); err != nil {
			return nil, fmt.Errorf("generate backup code: %w", err)
		}
		var b strings.Builder
		for _, c := range buf {
			b.WriteByte(alphabet[int(c)%len(alphabet)])
		}
		codes = append(codes, b.String())
	}
	return codes, nil
}
