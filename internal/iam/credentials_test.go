package iam

import (
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCredentialGenerator_GenerateLoginID(t *testing.T) {
	gen := NewCredentialGenerator()
	pattern := regexp.MustCompile(`^PAT-[A-Z0-9]{6}$`)

	t.Run("matches the login ID format", func(t *testing.T) {
		for i := 0; i < 100; i++ {
			loginID, err := gen.GenerateLoginID()
			require.NoError(t, err)
			assert.Regexp(t, pattern, loginID)
		}
	})

	t.Run("does not repeat across a large batch", func(t *testing.T) {
		seen := make(map[string]struct{}, 10000)
		for i := 0; i < 10000; i++ {
			loginID, err := gen.GenerateLoginID()
			require.NoError(t, err)
			_, dup := seen[loginID]
			require.False(t, dup, "duplicate login ID %s after %d draws", loginID, i)
			seen[loginID] = struct{}{}
		}
	})
}

func TestCredentialGenerator_GeneratePassword(t *testing.T) {
	gen := NewCredentialGenerator()
	pattern := regexp.MustCompile(`^[a-z0-9]{8}$`)

	for i := 0; i < 100; i++ {
		password, err := gen.GeneratePassword()
		require.NoError(t, err)
		assert.Regexp(t, pattern, password)
	}
}
