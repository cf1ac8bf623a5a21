package oauth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

// tokenLength is the raw byte length of generated codes and tokens; the
// stored form is hex, twice as long.
const tokenLength = 32

// generateToken returns a cryptographically random opaque token.
func generateToken() (string, error) {
	bytes := make([]byte, tokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("generating token: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
