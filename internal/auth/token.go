// Package auth verifies the platform's bearer tokens. Issuance lives in the
// marketplace backend; this service only checks signatures and claims.
package auth

import (
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/tutorlink/live/internal/domain"
)

var ErrInvalidToken = errors.New("invalid token")

type Verifier struct {
	secretKey []byte
	issuer    string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secretKey: []byte(secret), issuer: issuer}
}

// Verify parses the JWT and extracts the identity it certifies: userId from
// the subject, display name from the name claim.
func (v *Verifier) Verify(tokenStr string) (domain.User, error) {
	token, err := jwt.Parse(tokenStr, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.secretKey, nil
	}, jwt.WithIssuer(v.issuer))
	if err != nil || !token.Valid {
		return domain.User{}, ErrInvalidToken
	}
	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return domain.User{}, ErrInvalidToken
	}
	sub, ok := claims["sub"].(string)
	if !ok || sub == "" {
		return domain.User{}, ErrInvalidToken
	}
	name, _ := claims["name"].(string)
	if name == "" {
		name = sub
	}
	user, err := domain.NewUser(domain.UserID(sub), name)
	if err != nil {
		return domain.User{}, fmt.Errorf("token identity: %w", err)
	}
	return user, nil
}
