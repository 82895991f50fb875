// Package config loads the Auralis core configuration.
package config

import (
	"path/filepath"
	"time"
)

// Config represents the complete core configuration.
type Config struct {
	Server Server `mapstructure:"server"`
	Data   Data   `mapstructure:"data"`
	Log    Log    `mapstructure:"log"`
}

// Server contains remote library server settings.
type Server struct {
	BaseURL     string `mapstructure:"base_url"`
	HTTPTimeout int    `mapstructure:"http_timeout"` // in seconds
}

// Data contains local persistence settings.
type Data struct {
	Dir         string `mapstructure:"dir"`
	DownloadDir string `mapstructure:"download_dir"`
}

// Log contains logging settings.
type Log struct {
	Level string `mapstructure:"level"`
}

// GetHTTPTimeout returns the HTTP timeout as a time.Duration.
func (s *Server) GetHTTPTimeout() time.Duration {
	return time.Duration(s.HTTPTimeout) * time.Second
}

// StatePath returns the path of a persisted document inside the data dir.
func (d *Data) StatePath(name string) string {
	return filepath.Join(d.Dir, name)
}

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	return &Config{
		Server: Server{
			HTTPTimeout: 30,
		},
		Data: Data{
			Dir:         "data",
			DownloadDir: "data/downloads",
		},
		Log: Log{
			Level: "info",
		},
	}
}
