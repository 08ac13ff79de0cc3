package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
)

// HashString creates a hex SHA-256 digest of input. A non-empty salt turns
// it into an HMAC so stored client keys cannot be reversed by brute force.
func HashString(input, salt string) string {
	if salt == "" {
		sum := sha256.Sum256([]byte(input))
		return hex.EncodeToString(sum[:])
	}

	h := hmac.New(sha256.New, []byte(salt))
	h.Write([]byte(input))
	return hex.EncodeToString(h.Sum(nil))
}
