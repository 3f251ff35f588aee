package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/dataimport/internal/flagx"
)

var knownFlags = []string{
	"-a", "-d", "-s", "-u", "-m", "-t",
	"-google-client-id", "-google-client-secret", "-google-redirect-url",
	"-upstream-timeout", "-success-redirect", "-error-redirect",
	"-redis", "-s3-bucket", "-s3-endpoint", "-s3-region", "-s3-user", "-s3-password",
	"-log-format", "-log-level",
}

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-s string   root secret key
//	-u string   upload staging directory
//	-m int      max upload size, megabytes
//	-t int      staged file TTL, minutes
//	-google-client-id / -google-client-secret / -google-redirect-url string
//	-upstream-timeout int   provider call timeout, seconds
//	-success-redirect / -error-redirect string
//	-redis string           Redis address
//	-s3-bucket / -s3-endpoint / -s3-region / -s3-user / -s3-password string
//	-log-format / -log-level string
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Size and duration flags are integers and are converted to the
//     runtime units.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")
	fs.StringVar(&config.UploadDir, "u", config.UploadDir, "upload staging directory")

	maxUploadMB := fs.Int64("m", config.MaxUploadSize>>20, "max upload size (in megabytes)")
	stagedFileTTL := fs.Int("t", int(config.StagedFileTTL.Minutes()), "staged file ttl (in minutes)")

	fs.StringVar(&config.GoogleClientID, "google-client-id", config.GoogleClientID, "Google OAuth client id")
	fs.StringVar(&config.GoogleClientSecret, "google-client-secret", config.GoogleClientSecret, "Google OAuth client secret")
	fs.StringVar(&config.GoogleRedirectURL, "google-redirect-url", config.GoogleRedirectURL, "Google OAuth redirect URL")

	upstreamTimeout := fs.Int("upstream-timeout", int(config.UpstreamTimeout.Seconds()), "upstream timeout (in seconds)")

	fs.StringVar(&config.SuccessRedirectURL, "success-redirect", config.SuccessRedirectURL, "redirect after successful authorization")
	fs.StringVar(&config.ErrorRedirectURL, "error-redirect", config.ErrorRedirectURL, "redirect after failed authorization")
	fs.StringVar(&config.RedisAddr, "redis", config.RedisAddr, "Redis address")

	fs.StringVar(&config.S3Bucket, "s3-bucket", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3BaseEndpoint, "s3-endpoint", config.S3BaseEndpoint, "S3 base endpoint")
	fs.StringVar(&config.S3Region, "s3-region", config.S3Region, "S3 region")
	fs.StringVar(&config.S3RootUser, "s3-user", config.S3RootUser, "S3 user")
	fs.StringVar(&config.S3RootPassword, "s3-password", config.S3RootPassword, "S3 password")

	fs.StringVar(&config.LogFormat, "log-format", config.LogFormat, "log format (slog|zap)")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	config.MaxUploadSize = *maxUploadMB << 20
	config.StagedFileTTL = time.Duration(*stagedFileTTL) * time.Minute
	config.UpstreamTimeout = time.Duration(*upstreamTimeout) * time.Second
}
