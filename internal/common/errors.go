// Package common defines shared constants and sentinel errors used across
// the upload, OAuth and import layers. Callers should use errors.Is to
// match these values and KindOf to classify them for the client.
package common

import (
	"context"
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")
	ErrInvalidRequest = errors.New("invalid request")

	// Auth errors (invalid or malformed subject token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Upload validation errors.
	ErrInvalidFileType = errors.New("invalid file type")
	ErrFileTooLarge    = errors.New("file too large")
	ErrTooManyFiles    = errors.New("too many files")

	// OAuth handshake errors.
	ErrInvalidGrant  = errors.New("invalid grant")
	ErrStateMismatch = errors.New("state mismatch")

	// Upstream (external provider) errors.
	ErrUpstreamUnavailable  = errors.New("upstream unavailable")
	ErrUpstreamUnauthorized = errors.New("upstream rejected credentials")
	ErrRateLimited          = errors.New("rate limited")
	ErrPermissionDenied     = errors.New("permission denied")
)

// ErrorKind is the client-facing classification of a failure. Only the kind
// and a safe message ever cross the HTTP boundary.
type ErrorKind string

const (
	KindInvalidFileType     ErrorKind = "InvalidFileType"
	KindFileTooLarge        ErrorKind = "FileTooLarge"
	KindTooManyFiles        ErrorKind = "TooManyFiles"
	KindInvalidGrant        ErrorKind = "InvalidGrant"
	KindStateMismatch       ErrorKind = "StateMismatch"
	KindNotFound            ErrorKind = "NotFound"
	KindUpstreamUnavailable ErrorKind = "UpstreamUnavailable"
	KindInvalidRequest      ErrorKind = "InvalidRequest"
	KindRateLimited         ErrorKind = "RateLimited"
	KindPermissionDenied    ErrorKind = "PermissionDenied"
	KindUnauthorized        ErrorKind = "Unauthorized"
	KindInternal            ErrorKind = "Internal"
)

var kinds = []struct {
	err  error
	kind ErrorKind
}{
	{ErrInvalidFileType, KindInvalidFileType},
	{ErrFileTooLarge, KindFileTooLarge},
	{ErrTooManyFiles, KindTooManyFiles},
	{ErrInvalidGrant, KindInvalidGrant},
	{ErrStateMismatch, KindStateMismatch},
	{ErrorNotFound, KindNotFound},
	{ErrUpstreamUnavailable, KindUpstreamUnavailable},
	{context.DeadlineExceeded, KindUpstreamUnavailable},
	{ErrInvalidRequest, KindInvalidRequest},
	{ErrRateLimited, KindRateLimited},
	{ErrPermissionDenied, KindPermissionDenied},
	{ErrorUnauthorized, KindUnauthorized},
	{ErrUpstreamUnauthorized, KindUnauthorized},
	{ErrInvalidToken, KindUnauthorized},
	{ErrTokenExpired, KindUnauthorized},
}

// KindOf classifies err by the first sentinel found in its chain.
// Anything unrecognised is KindInternal.
func KindOf(err error) ErrorKind {
	for _, k := range kinds {
		if errors.Is(err, k.err) {
			return k.kind
		}
	}
	return KindInternal
}

// AuthRequiredError carries an authorization URL through an error chain.
// The HTTP edge unwraps it into the auth-required response shape even when
// it arrives as an unhandled error.
type AuthRequiredError struct {
	AuthURL string
}

func (e *AuthRequiredError) Error() string {
	return fmt.Sprintf("authorization required: %s", e.AuthURL)
}

// AuthURLFromError returns the authorization URL embedded anywhere in err's
// chain, if there is one.
func AuthURLFromError(err error) (string, bool) {
	var are *AuthRequiredError
	if errors.As(err, &are) && are.AuthURL != "" {
		return are.AuthURL, true
	}
	return "", false
}
