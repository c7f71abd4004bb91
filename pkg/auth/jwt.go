package auth

import (
	"errors"
	"os"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalid = errors.New("invalid credential")

// Claims carries the identity a credential attests to. IdentityID is the
// value matched against a route's identity requirement.
type Claims struct {
	IdentityID string `json:"identityId"`
	Subject    string `json:"sub,omitempty"`
	jwt.RegisteredClaims
}

func secret() []byte {
	s := os.Getenv("RELAYMESH_SECRET")
	if s == "" {
		s = "change-me-secret"
	}
	return []byte(s)
}

// Generate signs a credential for the given identity.
func Generate(identityID, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		IdentityID: identityID,
		Subject:    subject,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret())
}

// Parse verifies a credential and returns its claims.
func Parse(tokenStr string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(_ *jwt.Token) (interface{}, error) {
		return secret(), nil
	})
	if err != nil || !token.Valid {
		return nil, ErrInvalid
	}
	if claims, ok := token.Claims.(*Claims); ok {
		return claims, nil
	}
	return nil, ErrInvalid
}
