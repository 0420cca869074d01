package password_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clubpass/club-access-bot/internal/lib/password"
)

func TestGetHashAndCompare(t *testing.T) {
	hash, err := password.GetHash("admin123")
	require.NoError(t, err)
	require.NotEmpty(t, hash)
	require.NotEqual(t, "admin123", hash)

	require.NoError(t, password.CompareHash(hash, "admin123"))
	require.Error(t, password.CompareHash(hash, "wrong-password"))
}

func TestCompareHash_InvalidHash(t *testing.T) {
	require.Error(t, password.CompareHash("not-a-bcrypt-hash", "admin123"))
}
