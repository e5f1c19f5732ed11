// Package auth holds the stateless credential helpers of the backoffice:
// signed invitation tokens and the password policy.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/npremz/astrobackoffice/internal/common"
)

const invitationIssuer = "astrobackoffice/invitation"

// InvitationClaims binds a token to one invitation row and its email.
// RegisteredClaims.ID carries the invitation id.
type InvitationClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// GenerateInvitationToken signs an HS256 token that expires together with
// the invitation.
func GenerateInvitationToken(invitationID, email string, secretKey []byte, issuedAt, expiresAt time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, InvitationClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        invitationID,
			Issuer:    invitationIssuer,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: email,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", fmt.Errorf("sign invitation: %w", err)
	}
	return tokenString, nil
}

// ParseInvitationToken verifies signature, issuer and expiry as of now.
// Expired tokens yield common.ErrTokenExpired, anything else unusable
// yields common.ErrInvalidToken.
func ParseInvitationToken(tokenString string, secretKey []byte, now time.Time) (*InvitationClaims, error) {
	claims := &InvitationClaims{}

	token, err := jwt.ParseWithClaims(tokenString, claims,
		func(t *jwt.Token) (any, error) { return secretKey, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(invitationIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(func() time.Time { return now }),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, common.ErrTokenExpired
		}
		return nil, common.ErrInvalidToken
	}

	if !token.Valid || claims.ID == "" || claims.Email == "" {
		return nil, common.ErrInvalidToken
	}

	return claims, nil
}
