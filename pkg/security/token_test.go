package security_test

import (
	"testing"

	"github.com/angelmondragon/resellr-backend/pkg/security"
	"github.com/stretchr/testify/require"
)

func TestTokenHasherIssueAndMatch(t *testing.T) {
	hasher, err := security.NewTokenHasher("0123456789abcdef")
	require.NoError(t, err)

	token, digest, err := hasher.Issue()
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEqual(t, token, digest)
	require.Len(t, digest, 64)

	require.True(t, hasher.Matches(token, digest))
	require.False(t, hasher.Matches(token+"x", digest))
	require.False(t, hasher.Matches("", digest))

	other, err := security.NewTokenHasher("fedcba9876543210")
	require.NoError(t, err)
	require.False(t, other.Matches(token, digest), "digest must depend on the server secret")
}

func TestTokenHasherIssuesUniqueTokens(t *testing.T) {
	hasher, err := security.NewTokenHasher("0123456789abcdef")
	require.NoError(t, err)

	seen := map[string]struct{}{}
	for i := 0; i < 20; i++ {
		token, _, err := hasher.Issue()
		require.NoError(t, err)
		_, dup := seen[token]
		require.False(t, dup)
		seen[token] = struct{}{}
	}
}

func TestNewTokenHasherRequiresSecret(t *testing.T) {
	_, err := security.NewTokenHasher("")
	require.Error(t, err)
}
