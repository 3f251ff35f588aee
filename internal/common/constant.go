// Package common contains shared constants and sentinel errors used across
// the import service components.
package common

// AccessTokenHeaderName is the legacy HTTP header used to carry the
// subject access token when an Authorization header is not set.
const AccessTokenHeaderName = "access_token"

// MaxUploadSize is the default hard ceiling for a single staged file.
const MaxUploadSize int64 = 50 << 20
