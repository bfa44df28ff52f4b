// Package secrets generates the opaque random tokens used as OAuth state
// values and session identifiers.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
)

// Token returns a URL-safe random string built from byteLength bytes of
// entropy. The output is unpadded base64url so it can be embedded in query
// strings and cookies without escaping. An entropy-source failure is returned
// as an error; there is no weaker fallback.
func Token(byteLength int) (string, error) {
	if byteLength <= 0 {
		return "", fmt.Errorf("secrets.Token: byte length must be positive, got %d", byteLength)
	}
	b := make([]byte, byteLength)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("secrets.Token: reading random source: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
