// Package config handles configuration for the dataimport operator CLI.
package config

import "time"

// Config holds runtime settings for the CLI.
//
// Fields:
//   - ServerURL: base URL of the import server's HTTP edge.
//   - AccessToken: bearer JWT; when empty the CLI prompts for it.
//   - RequestTimeout: bound on every API call.
type Config struct {
	ServerURL      string
	AccessToken    string
	RequestTimeout time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerURL = "http://127.0.0.1:8080"
	c.AccessToken = ""
	c.RequestTimeout = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
