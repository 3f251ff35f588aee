package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempJSON(t *testing.T, dir, name string, data map[string]any) string {
	t.Helper()
	if dir == "" {
		dir = t.TempDir()
	}
	if name == "" {
		name = "cfg.json"
	}
	path := filepath.Join(dir, name)
	b, err := json.Marshal(data)
	require.NoError(t, err)
	require.NoError(t, os.WriteFile(path, b, 0o600))
	return path
}

func Test_parseJson_SourcesAndPrecedence(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })

	dir := t.TempDir()
	pathFlag := writeTempJSON(t, dir, "flag.json", map[string]any{
		"endpoint_addr_http":   "www.example:9000",
		"database_dsn":         "postgres://db",
		"secret_key":           "my_secret_key",
		"upload_dir":           "/var/uploads",
		"max_upload_size":      1024,
		"staged_file_ttl":      "2h",
		"oauth_state_ttl":      "5m",
		"upstream_timeout":     "3s",
		"google_client_id":     "cid",
		"sheets_base_url":      "http://sheets.local",
		"success_redirect_url": "http://app/ok",
		"redis_addr":           "redis:6379",
		"s3_bucket":            "bucket",
		"s3_base_endpoint":     "base_endpoint",
		"log_format":           "zap",
	})

	t.Run("loads from json", func(t *testing.T) {
		os.Args = []string{"testbin", "-config", pathFlag}

		cfg := &Config{}
		cfg.LoadDefaults()
		parseJson(cfg)

		assert.Equal(t, "www.example:9000", cfg.EndpointAddrHTTP)
		assert.Equal(t, "postgres://db", cfg.DatabaseDSN)
		assert.Equal(t, "my_secret_key", cfg.SecretKey)
		assert.Equal(t, "/var/uploads", cfg.UploadDir)
		assert.Equal(t, int64(1024), cfg.MaxUploadSize)
		assert.Equal(t, 2*time.Hour, cfg.StagedFileTTL)
		assert.Equal(t, 5*time.Minute, cfg.OAuthStateTTL)
		assert.Equal(t, 3*time.Second, cfg.UpstreamTimeout)
		assert.Equal(t, "cid", cfg.GoogleClientID)
		assert.Equal(t, "http://sheets.local", cfg.SheetsBaseURL)
		assert.Equal(t, "redis:6379", cfg.RedisAddr)
		assert.Equal(t, "bucket", cfg.S3Bucket)
		assert.Equal(t, "zap", cfg.LogFormat)

		// untouched by the file
		assert.Equal(t, "https://oauth2.googleapis.com/token", cfg.GoogleTokenURL)
		assert.Equal(t, 15*time.Minute, cfg.SweepInterval)
	})

	t.Run("no CONFIG and no flags → no changes", func(t *testing.T) {
		os.Args = []string{"testbin"}

		cfg := &Config{
			EndpointAddrHTTP: "defaults:1234",
			SecretKey:        "key",
			UpstreamTimeout:  2 * time.Second,
		}
		parseJson(cfg)

		assert.Equal(t, "defaults:1234", cfg.EndpointAddrHTTP)
		assert.Equal(t, "key", cfg.SecretKey)
		assert.Equal(t, 2*time.Second, cfg.UpstreamTimeout)
	})

	t.Run("missing file panics", func(t *testing.T) {
		os.Args = []string{"testbin", "-c", filepath.Join(dir, "nope.json")}
		assert.Panics(t, func() { parseJson(&Config{}) })
	})

	t.Run("invalid json panics", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.json")
		require.NoError(t, os.WriteFile(bad, []byte("{"), 0o600))
		os.Args = []string{"testbin", "-c", bad}
		assert.Panics(t, func() { parseJson(&Config{}) })
	})
}
