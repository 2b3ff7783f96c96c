package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestBcryptHasher(t *testing.T) {
	hasher := NewBcryptHasher(bcrypt.MinCost)

	hash, err := hasher.Hash("supersecret")
	require.NoError(t, err)
	require.NotEqual(t, "supersecret", hash)

	require.NoError(t, hasher.Compare(hash, "supersecret"))
	require.ErrorIs(t, hasher.Compare(hash, "wrong-password"), ErrPasswordMismatch)
}

func TestTokenCodec_RoundTrip(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)

	issued, err := codec.Issue("user-1")
	require.NoError(t, err)
	require.NotEmpty(t, issued.Token)
	require.NotEmpty(t, issued.TokenID)

	claims, err := codec.Parse(issued.Token)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID())
	require.Equal(t, issued.TokenID, claims.TokenID())
}

func TestTokenCodec_UniqueTokenIDs(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)

	first, err := codec.Issue("user-1")
	require.NoError(t, err)
	second, err := codec.Issue("user-1")
	require.NoError(t, err)
	require.NotEqual(t, first.TokenID, second.TokenID)
}

func TestTokenCodec_Rejects(t *testing.T) {
	codec := NewTokenCodec("test-secret", time.Hour)
	issued, err := codec.Issue("user-1")
	require.NoError(t, err)

	_, err = NewTokenCodec("other-secret", time.Hour).Parse(issued.Token)
	require.ErrorIs(t, err, ErrInvalidToken)

	_, err = codec.Parse("not-a-token")
	require.ErrorIs(t, err, ErrInvalidToken)

	expired := NewTokenCodec("test-secret", time.Hour)
	expired.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	old, err := expired.Issue("user-1")
	require.NoError(t, err)
	_, err = codec.Parse(old.Token)
	require.ErrorIs(t, err, ErrInvalidToken)
}
