package security

import (
	"crypto/sha256"
	"encoding/hex"
)

// HashToken is the storage key of a refresh token.
func HashToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
