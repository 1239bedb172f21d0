package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
)

func newAccessToken(t *testing.T, userID string, expiresAt time.Time) string {
	t.Helper()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Hasura: HasuraClaims{
			UserID:       userID,
			DefaultRole:  "user",
			AllowedRoles: []string{"user", "me"},
		},
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("secret"))
	require.NoError(t, err)
	return token
}

func TestParseAccessToken(t *testing.T) {
	expiresAt := time.Now().Add(15 * time.Minute).Truncate(time.Second)
	token := newAccessToken(t, "8f1c1d1e-0000-4000-8000-000000000001", expiresAt)

	claims, err := ParseAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "8f1c1d1e-0000-4000-8000-000000000001", claims.Hasura.UserID)
	require.Equal(t, "user", claims.Hasura.DefaultRole)
	require.Equal(t, []string{"user", "me"}, claims.Hasura.AllowedRoles)
	require.True(t, expiresAt.Equal(claims.ExpiresAt.Time))
}

func TestParseAccessTokenExpiredIsStillReadable(t *testing.T) {
	token := newAccessToken(t, "u1", time.Now().Add(-time.Minute))
	claims, err := ParseAccessToken(token)
	require.NoError(t, err)
	require.Equal(t, "u1", claims.Hasura.UserID)
}

func TestParseAccessTokenInvalid(t *testing.T) {
	_, err := ParseAccessToken("")
	require.Error(t, err)

	_, err = ParseAccessToken("not-a-token")
	require.Error(t, err)
}
