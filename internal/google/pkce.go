package google

import (
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
)

const (
	// verifierBytes yields a 43 character verifier, the RFC 7636 minimum.
	verifierBytes = 32

	stateBytes = 16
)

// generateVerifier creates a PKCE code verifier from r, base64url encoded
// without padding.
func generateVerifier(r io.Reader) (string, error) {
	b := make([]byte, verifierBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// generateState creates a random state parameter for CSRF protection.
func generateState(r io.Reader) (string, error) {
	b := make([]byte, stateBytes)
	if _, err := io.ReadFull(r, b); err != nil {
		return "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	return hex.EncodeToString(b), nil
}
