package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	var c Config
	c.LoadDefaults()

	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Equal(t, "", c.DatabaseDSN)
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.Equal(t, "uploads", c.UploadDir)
	assert.Equal(t, int64(50<<20), c.MaxUploadSize)
	assert.Equal(t, 24*time.Hour, c.StagedFileTTL)
	assert.Equal(t, 10*time.Minute, c.OAuthStateTTL)
	assert.Equal(t, 15*time.Second, c.UpstreamTimeout)
	assert.Equal(t, "https://oauth2.googleapis.com/token", c.GoogleTokenURL)
	assert.Equal(t, "https://sheets.googleapis.com", c.SheetsBaseURL)
	assert.Equal(t, "slog", c.LogFormat)
	assert.False(t, c.ArchiveEnabled())
}

func TestLoadConfig_UsesDefaultsBeforeParsing(t *testing.T) {
	origArgs := os.Args
	t.Cleanup(func() { os.Args = origArgs })
	os.Args = []string{"testbin"}

	for name := range envVars(&Config{}) {
		t.Setenv(name, "")
	}

	c := LoadConfig()

	require.NotNil(t, c, "LoadConfig must not return nil")

	assert.Equal(t, ":8080", c.EndpointAddrHTTP)
	assert.Equal(t, "secretKey", c.SecretKey)
	assert.Equal(t, int64(50<<20), c.MaxUploadSize)
	assert.Equal(t, 24*time.Hour, c.StagedFileTTL)
	assert.Equal(t, 15*time.Second, c.UpstreamTimeout)
}

func TestArchiveEnabled(t *testing.T) {
	c := &Config{S3Bucket: "datasets"}
	assert.False(t, c.ArchiveEnabled())

	c.S3BaseEndpoint = "http://127.0.0.1:9000"
	assert.True(t, c.ArchiveEnabled())
}
