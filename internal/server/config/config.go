// Package config handles configuration for the import server,
// including defaults, JSON overlay, environment and command-line flags.
package config

import (
	"time"

	"github.com/dmitrijs2005/dataimport/internal/common"
)

// Config holds runtime settings for the import server.
//
// Fields:
//   - EndpointAddrHTTP: bind address for the public HTTP endpoint.
//   - DatabaseDSN: PostgreSQL DSN (pgx). Empty keeps every store in memory.
//   - SecretKey: root secret; subject JWTs are verified with it and the OAuth
//     state and token-sealing keys are derived from it. Do not use test defaults in prod.
//   - UploadDir / MaxUploadSize / StagedFileTTL / SweepInterval: upload staging.
//   - Google*: OAuth client registration and endpoints; SheetsBaseURL for the resource API.
//   - OAuthStateTTL: lifetime of an issued authorization URL.
//   - UpstreamTimeout: bound on every call to the provider.
//   - SuccessRedirectURL / ErrorRedirectURL: where the callback sends the browser.
//   - RedisAddr / RedisChannel: optional grant store and notification channel.
//   - S3*: optional dataset archive (S3-compatible).
//   - LogFormat / LogLevel: "slog" or "zap", and the minimum level.
type Config struct {
	EndpointAddrHTTP string
	DatabaseDSN      string
	SecretKey        string

	UploadDir     string
	MaxUploadSize int64
	StagedFileTTL time.Duration
	SweepInterval time.Duration

	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	GoogleAuthURL      string
	GoogleTokenURL     string
	GoogleRevokeURL    string
	SheetsBaseURL      string

	OAuthStateTTL   time.Duration
	UpstreamTimeout time.Duration

	SuccessRedirectURL string
	ErrorRedirectURL   string

	RedisAddr    string
	RedisChannel string

	S3RootUser     string
	S3RootPassword string
	S3Bucket       string
	S3Region       string
	S3BaseEndpoint string

	LogFormat string
	LogLevel  string
}

// LoadDefaults populates Config with sensible development defaults.
// NOTE: These values are insecure for production and should be overridden.
func (c *Config) LoadDefaults() {
	c.EndpointAddrHTTP = ":8080"
	c.DatabaseDSN = ""
	c.SecretKey = "secretKey"

	c.UploadDir = "uploads"
	c.MaxUploadSize = common.MaxUploadSize
	c.StagedFileTTL = 24 * time.Hour
	c.SweepInterval = 15 * time.Minute

	c.GoogleRedirectURL = "http://localhost:8080/api/oauth/google/callback"
	c.GoogleAuthURL = "https://accounts.google.com/o/oauth2/auth"
	c.GoogleTokenURL = "https://oauth2.googleapis.com/token"
	c.GoogleRevokeURL = "https://oauth2.googleapis.com/revoke"
	c.SheetsBaseURL = "https://sheets.googleapis.com"

	c.OAuthStateTTL = 10 * time.Minute
	c.UpstreamTimeout = 15 * time.Second

	c.SuccessRedirectURL = "http://localhost:3000/datasets?oauth=success"
	c.ErrorRedirectURL = ""

	c.RedisChannel = "dataimport.events"

	c.S3Region = "us-east-1"

	c.LogFormat = "slog"
	c.LogLevel = "info"
}

// LoadConfig builds a Config by applying defaults, then overlaying values
// from an optional JSON file, the environment and finally command-line flags.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseEnv(cfg)
	parseFlags(cfg)
	return cfg
}

// ArchiveEnabled reports whether imported files are copied to object storage.
func (c *Config) ArchiveEnabled() bool {
	return c.S3Bucket != "" && c.S3BaseEndpoint != ""
}
