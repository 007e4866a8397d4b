package core

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
	"strings"
)

// GenerateCodeVerifier returns a PKCE code verifier per RFC 7636: 32 random
// bytes, base64url encoded without padding (43 characters).
func GenerateCodeVerifier() (string, error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("core: generate code verifier: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(raw), nil
}

// CodeChallengeS256 derives the S256 code challenge for a verifier:
// base64url(SHA-256(verifier)) without padding.
func CodeChallengeS256(verifier string) (string, error) {
	verifier = strings.TrimSpace(verifier)
	if verifier == "" {
		return "", fmt.Errorf("core: code verifier is required")
	}
	digest := sha256.Sum256([]byte(verifier))
	return base64.RawURLEncoding.EncodeToString(digest[:]), nil
}
