// ABOUTME: Agent credential generation and fingerprinting
// ABOUTME: Credentials are random URL-safe strings; only their BLAKE2b digest is stored

package auth

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"golang.org/x/crypto/blake2b"
)

const (
	// CredentialPrefix marks credentials issued by this gateway
	CredentialPrefix = "pp_"

	// credentialSymbols is the number of random symbols after the prefix
	credentialSymbols = 42

	// credentialAlphabet has exactly 64 symbols so b%64 is unbiased
	credentialAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_"
)

// GenerateCredential returns a new credential of CredentialPrefix followed by
// 42 symbols from a 64-symbol alphabet (252 bits of entropy).
func GenerateCredential() (string, error) {
	buf := make([]byte, credentialSymbols)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading random bytes: %w", err)
	}

	out := make([]byte, len(CredentialPrefix)+credentialSymbols)
	copy(out, CredentialPrefix)
	for i, b := range buf {
		out[len(CredentialPrefix)+i] = credentialAlphabet[b%64]
	}
	return string(out), nil
}

// Fingerprint returns the hex BLAKE2b-256 digest of a credential.
func Fingerprint(credential string) string {
	sum := blake2b.Sum256([]byte(credential))
	return hex.EncodeToString(sum[:])
}
