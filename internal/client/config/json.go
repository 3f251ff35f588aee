package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/dataimport/internal/flagx"
	"github.com/dmitrijs2005/dataimport/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// accept "30s" or integer nanoseconds.
type JsonConfig struct {
	ServerURL      string         `json:"server_url"`
	AccessToken    string         `json:"access_token"`
	RequestTimeout timex.Duration `json:"request_timeout"`
}

// parseJson overlays Config with values from the file named by -c/-config.
// Empty fields keep their current values. Panics on read or unmarshal errors.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.ConfigPath(os.Args[1:])
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerURL != "" {
		cfg.ServerURL = jc.ServerURL
	}
	if jc.AccessToken != "" {
		cfg.AccessToken = jc.AccessToken
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
}
