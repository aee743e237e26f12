// Package cryptoutil collects the security-sensitive primitives shared
// across the authorization core: random token generation, constant-time
// comparison, PKCE verification, password hashing, and access-token
// signing.
package cryptoutil

import (
	"crypto/rand"
	"encoding/base64"
)

// Entropy sizes for the various random identifiers this module mints.
// Chosen generously above the lower bounds RFC 6749 and RFC 7636 imply.
const (
	CodeEntropyBytes         = 32
	ClientSecretEntropyBytes = 24
	TokenEntropyBytes        = 32
)

// GenerateSecret returns a URL-safe, unpadded base64 string encoding n
// bytes read from crypto/rand.
func GenerateSecret(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
