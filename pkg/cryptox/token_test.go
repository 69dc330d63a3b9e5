package cryptox

import (
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tok, err := GenerateToken(ResetTokenBytes)
	require.NoError(t, err)
	require.Len(t, tok, ResetTokenBytes*2)

	raw, err := hex.DecodeString(tok)
	require.NoError(t, err)
	require.Len(t, raw, ResetTokenBytes)

	other, err := GenerateToken(ResetTokenBytes)
	require.NoError(t, err)
	require.NotEqual(t, tok, other)
}

func TestGenerateTokenRejectsNonPositiveSize(t *testing.T) {
	for _, size := range []int{0, -1} {
		_, err := GenerateToken(size)
		require.Error(t, err)
	}
}

func TestTokenHashVerifiesLikePassword(t *testing.T) {
	tok, err := GenerateToken(ResetTokenBytes)
	require.NoError(t, err)

	hash, err := HashPassword(tok)
	require.NoError(t, err)

	// Hashing is salted per computation, so equality of hashes can never be
	// used for lookup; verification must go through VerifyPassword.
	again, err := HashPassword(tok)
	require.NoError(t, err)
	require.NotEqual(t, hash, again)

	require.NoError(t, VerifyPassword(tok, hash))
	require.Error(t, VerifyPassword(tok+"x", hash))
}
