package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

// HasuraClaims are the claims the GraphQL engine authorizes requests with.
type HasuraClaims struct {
	UserID       string   `json:"x-hasura-user-id"`
	DefaultRole  string   `json:"x-hasura-default-role"`
	AllowedRoles []string `json:"x-hasura-allowed-roles"`
}

// Claims of an access token.
type Claims struct {
	jwt.RegisteredClaims
	Hasura HasuraClaims `json:"https://hasura.io/jwt/claims"`
}

// ParseAccessToken decodes the claims of an access token without verifying its signature.
// The client only reads them; the backend is the one verifying the token.
func ParseAccessToken(accessToken string) (*Claims, error) {
	if accessToken == "" {
		return nil, errors.New("empty access token")
	}
	claims := &Claims{}
	if _, _, err := jwt.NewParser().ParseUnverified(accessToken, claims); err != nil {
		return nil, errors.Wrap(err, "parsing access token")
	}
	return claims, nil
}
