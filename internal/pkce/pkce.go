// Package pkce generates PKCE verifier/challenge pairs (RFC 7636)
package pkce

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"

	"golang.org/x/oauth2"
)

// Challenge methods
const (
	MethodS256  = "S256"
	MethodPlain = "plain"
)

// Pair holds a verifier and the challenge derived from it
type Pair struct {
	Verifier  string
	Challenge string
	Method    string
}

// New returns an S256 pair. The verifier is 32 random bytes encoded as
// URL-safe base64 without padding.
func New() Pair {
	verifier := oauth2.GenerateVerifier()
	return Pair{
		Verifier:  verifier,
		Challenge: oauth2.S256ChallengeFromVerifier(verifier),
		Method:    MethodS256,
	}
}

// Verify reports whether verifier hashes to challenge under method
func Verify(verifier, challenge, method string) bool {
	var derived string
	switch method {
	case MethodS256:
		sum := sha256.Sum256([]byte(verifier))
		derived = base64.RawURLEncoding.EncodeToString(sum[:])
	case MethodPlain:
		derived = verifier
	default:
		return false
	}
	return subtle.ConstantTimeCompare([]byte(derived), []byte(challenge)) == 1
}
