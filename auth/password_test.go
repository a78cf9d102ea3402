package auth

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"chatd/errors"
)

func TestHashPassword_Roundtrip(t *testing.T) {
	req := require.New(t)

	// Given a plain text password
	password := "Str0ng&Secret!pass"

	// When it is hashed and compared back
	hash, err := HashPassword(password)
	req.NoError(err)
	match, err := ComparePassword(password, hash)

	// Then the comparison succeeds
	req.NoError(err)
	req.True(match)
	req.True(strings.HasPrefix(hash, "$argon2id$"))
}

func TestComparePassword_Wrong_Password(t *testing.T) {
	req := require.New(t)

	hash, err := HashPassword("Str0ng&Secret!pass")
	req.NoError(err)

	match, err := ComparePassword("Wr0ng&Secret!pass", hash)
	req.NoError(err)
	req.False(match)
}

func TestHashPassword_Unique_Salts(t *testing.T) {
	req := require.New(t)

	first, err := HashPassword("Str0ng&Secret!pass")
	req.NoError(err)
	second, err := HashPassword("Str0ng&Secret!pass")
	req.NoError(err)

	req.NotEqual(first, second)
}

func TestComparePassword_Malformed_Hash(t *testing.T) {
	req := require.New(t)

	_, err := ComparePassword("whatever", "not-a-valid-hash")
	req.Error(err)
	req.ErrorIs(err, errors.ErrInternal)
}
