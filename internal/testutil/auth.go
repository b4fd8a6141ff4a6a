package testutil

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// AccessToken signs an HS256 access token for userID the way the identity
// provider issues them.
func AccessToken(t *testing.T, secret, userID string, ttl time.Duration) string {
	t.Helper()
	now := time.Now()
	claims := jwt.MapClaims{
		"user_id":    userID,
		"token_type": "access",
		"sub":        userID,
		"iss":        "moneta-api",
		"iat":        jwt.NewNumericDate(now),
		"nbf":        jwt.NewNumericDate(now),
		"exp":        jwt.NewNumericDate(now.Add(ttl)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("failed to sign access token: %v", err)
	}
	return token
}
