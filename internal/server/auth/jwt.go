// Package auth issues and verifies the HS256 bearer tokens that identify a
// subject at the HTTP edge.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/golang-jwt/jwt/v5"
)

// Claims is the registered claim set plus the subject identifier
// every upload, session and dataset is scoped to.
type Claims struct {
	jwt.RegisteredClaims
	SubjectID string
}

func GenerateToken(subjectID string, secretKey []byte, validityDuration time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validityDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
		SubjectID: subjectID,
	})

	tokenString, err := token.SignedString(secretKey)
	if err != nil {
		return "", err
	}

	return tokenString, nil
}

// GetSubjectIDFromToken verifies tokenString and returns its subject.
// Expired tokens yield common.ErrTokenExpired, everything else that fails
// verification yields common.ErrInvalidToken.
func GetSubjectIDFromToken(tokenString string, secretKey []byte) (string, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return secretKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", common.ErrTokenExpired
		}
		return "", fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}

	if !token.Valid || claims.SubjectID == "" {
		return "", common.ErrInvalidToken
	}

	return claims.SubjectID, nil
}
