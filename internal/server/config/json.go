package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/dataimport/internal/flagx"
	"github.com/dmitrijs2005/dataimport/internal/timex"
)

// JsonConfig defines a configuration structure tailored for JSON unmarshalling.
// It uses timex.Duration for interval fields, which allows parsing both
// string values such as "15s" and integer nanoseconds.
//
// This struct is an intermediate DTO used only for reading JSON configuration
// files. Only fields present (non-zero) in the file override the target Config.
type JsonConfig struct {
	EndpointAddrHTTP   string         `json:"endpoint_addr_http"`
	DatabaseDSN        string         `json:"database_dsn"`
	SecretKey          string         `json:"secret_key"`
	UploadDir          string         `json:"upload_dir"`
	MaxUploadSize      int64          `json:"max_upload_size"`
	StagedFileTTL      timex.Duration `json:"staged_file_ttl"`
	SweepInterval      timex.Duration `json:"sweep_interval"`
	GoogleClientID     string         `json:"google_client_id"`
	GoogleClientSecret string         `json:"google_client_secret"`
	GoogleRedirectURL  string         `json:"google_redirect_url"`
	GoogleAuthURL      string         `json:"google_auth_url"`
	GoogleTokenURL     string         `json:"google_token_url"`
	GoogleRevokeURL    string         `json:"google_revoke_url"`
	SheetsBaseURL      string         `json:"sheets_base_url"`
	OAuthStateTTL      timex.Duration `json:"oauth_state_ttl"`
	UpstreamTimeout    timex.Duration `json:"upstream_timeout"`
	SuccessRedirectURL string         `json:"success_redirect_url"`
	ErrorRedirectURL   string         `json:"error_redirect_url"`
	RedisAddr          string         `json:"redis_addr"`
	RedisChannel       string         `json:"redis_channel"`
	S3RootUser         string         `json:"s3_root_user"`
	S3RootPassword     string         `json:"s3_root_password"`
	S3Bucket           string         `json:"s3_bucket"`
	S3Region           string         `json:"s3_region"`
	S3BaseEndpoint     string         `json:"s3_base_endpoint"`
	LogFormat          string         `json:"log_format"`
	LogLevel           string         `json:"log_level"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance.
//
// The file path comes from the -c or -config command-line flags. If neither
// is set, no JSON file is loaded. If the file cannot be read or contains
// invalid JSON, the function panics.
func parseJson(config *Config) {

	jsonConfigFile := flagx.ConfigPath(os.Args[1:])

	// nothing to load
	if jsonConfigFile == "" {
		return
	}

	c := &JsonConfig{}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	err = json.Unmarshal(file, c)
	if err != nil {
		panic(err)
	}

	setString(&config.EndpointAddrHTTP, c.EndpointAddrHTTP)
	setString(&config.DatabaseDSN, c.DatabaseDSN)
	setString(&config.SecretKey, c.SecretKey)
	setString(&config.UploadDir, c.UploadDir)
	if c.MaxUploadSize > 0 {
		config.MaxUploadSize = c.MaxUploadSize
	}
	if c.StagedFileTTL.Duration > 0 {
		config.StagedFileTTL = c.StagedFileTTL.Duration
	}
	if c.SweepInterval.Duration > 0 {
		config.SweepInterval = c.SweepInterval.Duration
	}
	setString(&config.GoogleClientID, c.GoogleClientID)
	setString(&config.GoogleClientSecret, c.GoogleClientSecret)
	setString(&config.GoogleRedirectURL, c.GoogleRedirectURL)
	setString(&config.GoogleAuthURL, c.GoogleAuthURL)
	setString(&config.GoogleTokenURL, c.GoogleTokenURL)
	setString(&config.GoogleRevokeURL, c.GoogleRevokeURL)
	setString(&config.SheetsBaseURL, c.SheetsBaseURL)
	if c.OAuthStateTTL.Duration > 0 {
		config.OAuthStateTTL = c.OAuthStateTTL.Duration
	}
	if c.UpstreamTimeout.Duration > 0 {
		config.UpstreamTimeout = c.UpstreamTimeout.Duration
	}
	setString(&config.SuccessRedirectURL, c.SuccessRedirectURL)
	setString(&config.ErrorRedirectURL, c.ErrorRedirectURL)
	setString(&config.RedisAddr, c.RedisAddr)
	setString(&config.RedisChannel, c.RedisChannel)
	setString(&config.S3RootUser, c.S3RootUser)
	setString(&config.S3RootPassword, c.S3RootPassword)
	setString(&config.S3Bucket, c.S3Bucket)
	setString(&config.S3Region, c.S3Region)
	setString(&config.S3BaseEndpoint, c.S3BaseEndpoint)
	setString(&config.LogFormat, c.LogFormat)
	setString(&config.LogLevel, c.LogLevel)
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}
