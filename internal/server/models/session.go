package models

import "time"

// ExternalSession is a subject's credentials at the external provider.
type ExternalSession struct {
	SubjectID    string
	AccessToken  string
	RefreshToken string
	TokenType    string
	Expiry       time.Time
	UpdatedAt    time.Time
}

// Expired reports whether the access token is no longer usable at now.
// A zero expiry never expires.
func (s *ExternalSession) Expired(now time.Time) bool {
	if s == nil || s.AccessToken == "" {
		return true
	}
	return !s.Expiry.IsZero() && !now.Before(s.Expiry)
}

// SessionState is the per-subject authorization lifecycle.
type SessionState string

const (
	StateUnauthenticated      SessionState = "unauthenticated"
	StateAuthorizationPending SessionState = "authorization_pending"
	StateAuthenticated        SessionState = "authenticated"
	StateExpired              SessionState = "expired"
)
