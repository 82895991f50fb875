package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Load reads the configuration from config.toml and returns a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("toml")
	viper.AddConfigPath("$HOME/.config/auralis/")
	viper.AddConfigPath(".")

	// Set defaults from DefaultConfig
	defaults := DefaultConfig()
	viper.SetDefault("server.http_timeout", defaults.Server.HTTPTimeout)
	viper.SetDefault("data.dir", defaults.Data.Dir)
	viper.SetDefault("data.download_dir", defaults.Data.DownloadDir)
	viper.SetDefault("log.level", defaults.Log.Level)

	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	// Validate required fields
	required := []string{
		"server.base_url",
	}
	for _, key := range required {
		if !viper.IsSet(key) {
			return nil, fmt.Errorf("missing required config: %s", key)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &cfg, nil
}
