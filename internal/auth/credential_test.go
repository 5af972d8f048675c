// ABOUTME: Tests for credential generation and fingerprinting
// ABOUTME: Checks format, alphabet, uniqueness and digest stability

package auth

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var credentialPattern = regexp.MustCompile(`^pp_[A-Za-z0-9_-]{42}$`)

func TestGenerateCredential_Format(t *testing.T) {
	cred, err := GenerateCredential()
	require.NoError(t, err)
	assert.Regexp(t, credentialPattern, cred)
}

func TestGenerateCredential_Distinct(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 1000; i++ {
		cred, err := GenerateCredential()
		require.NoError(t, err)
		require.False(t, seen[cred], "duplicate credential generated")
		seen[cred] = true
	}
}

func TestCredentialAlphabet(t *testing.T) {
	assert.Len(t, credentialAlphabet, 64)
	unique := make(map[rune]bool)
	for _, r := range credentialAlphabet {
		unique[r] = true
	}
	assert.Len(t, unique, 64)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint("pp_alpha")
	assert.Len(t, a, 64)
	assert.Equal(t, a, Fingerprint("pp_alpha"))
	assert.NotEqual(t, a, Fingerprint("pp_beta"))
	assert.NotContains(t, a, "alpha")
}
