package config

import (
	"os"

	"github.com/joho/godotenv"
)

// envVars maps environment variable names onto the string fields they set.
// Secrets usually arrive this way rather than through flags.
func envVars(c *Config) map[string]*string {
	return map[string]*string{
		"HTTP_ADDR":            &c.EndpointAddrHTTP,
		"DATABASE_DSN":         &c.DatabaseDSN,
		"SECRET_KEY":           &c.SecretKey,
		"UPLOAD_DIR":           &c.UploadDir,
		"GOOGLE_CLIENT_ID":     &c.GoogleClientID,
		"GOOGLE_CLIENT_SECRET": &c.GoogleClientSecret,
		"GOOGLE_REDIRECT_URL":  &c.GoogleRedirectURL,
		"SUCCESS_REDIRECT_URL": &c.SuccessRedirectURL,
		"ERROR_REDIRECT_URL":   &c.ErrorRedirectURL,
		"REDIS_ADDR":           &c.RedisAddr,
		"S3_ROOT_USER":         &c.S3RootUser,
		"S3_ROOT_PASSWORD":     &c.S3RootPassword,
		"S3_BUCKET":            &c.S3Bucket,
		"S3_REGION":            &c.S3Region,
		"S3_BASE_ENDPOINT":     &c.S3BaseEndpoint,
		"LOG_FORMAT":           &c.LogFormat,
		"LOG_LEVEL":            &c.LogLevel,
	}
}

// parseEnv overlays values from the process environment. A .env file in the
// working directory is loaded first when present; variables already set in
// the environment win over the file.
func parseEnv(config *Config) {
	_ = godotenv.Load()

	for name, dst := range envVars(config) {
		if v, ok := os.LookupEnv(name); ok && v != "" {
			*dst = v
		}
	}
}
