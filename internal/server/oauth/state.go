package oauth

import (
	"fmt"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/common"
	"github.com/dmitrijs2005/dataimport/internal/cryptox"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// StateSigner issues and verifies the OAuth state parameter. A state is an
// HS256 JWT binding the subject, a single-use nonce and an expiry.
type StateSigner struct {
	key []byte
	ttl time.Duration
	now func() time.Time
}

// StateClaims is what a verified state carries.
type StateClaims struct {
	SubjectID string
	Nonce     string
	ExpiresAt time.Time
}

// NewStateSigner derives the signing key from the server secret.
func NewStateSigner(secret string, ttl time.Duration) (*StateSigner, error) {
	key, err := cryptox.DeriveKey([]byte(secret), cryptox.PurposeOAuthState)
	if err != nil {
		return nil, err
	}
	return &StateSigner{key: key, ttl: ttl, now: time.Now}, nil
}

// TTL is how long an issued state stays valid.
func (s *StateSigner) TTL() time.Duration {
	return s.ttl
}

func (s *StateSigner) Issue(subjectID string) (string, error) {
	now := s.now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   subjectID,
		ID:        uuid.NewString(),
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
	})
	return token.SignedString(s.key)
}

// Parse verifies state. Every failure is common.ErrStateMismatch.
func (s *StateSigner) Parse(state string) (*StateClaims, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(state, claims, func(t *jwt.Token) (interface{}, error) {
		return s.key, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrStateMismatch, err)
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("%w: incomplete state", common.ErrStateMismatch)
	}
	return &StateClaims{SubjectID: claims.Subject, Nonce: claims.ID, ExpiresAt: claims.ExpiresAt.Time}, nil
}
