package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"ipwarden/internal/support"
)

func signingSecret() []byte {
	return []byte(support.GetEnv("JWT_SECRET", "ipwarden-dev-secret"))
}

// IssueToken mints a signed token for a moderator account. Mostly a test and
// bootstrap aid; real deployments front this with their own identity system.
func IssueToken(userID uint64, role string) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id": userID,
		"role":    role,
	})
	return token.SignedString(signingSecret())
}

// ValidateJWT parses and verifies a token, returning its claims.
func ValidateJWT(tokenString string) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return signingSecret(), nil
	})
	if err != nil {
		return nil, err
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
