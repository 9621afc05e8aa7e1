package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server ServerConfig
	Data   DataConfig
	Client ClientConfig
	CORS   CORSConfig
}

// ServerConfig holds HTTP server configuration for the fixture server.
type ServerConfig struct {
	Port string
	Env  string
}

// DataConfig holds the fixture data location.
type DataConfig struct {
	Dir string
}

// ClientConfig holds registry client configuration: where the registry API
// lives and how politely to talk to it.
type ClientConfig struct {
	BaseURL    string
	RateLimit  time.Duration
	Timeout    time.Duration
	MaxRetries int
}

// CORSConfig holds CORS configuration.
type CORSConfig struct {
	Origins []string
}

// Load reads configuration from environment variables.
// It uses viper to read values and provides sensible defaults for development.
func Load() (*Config, error) {
	v := viper.New()

	// Set defaults for development
	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("DATA_DIR", "./data")
	v.SetDefault("API_BASE_URL", "http://localhost:8000")
	v.SetDefault("API_RATE_LIMIT", "750ms")
	v.SetDefault("API_TIMEOUT", "10s")
	v.SetDefault("API_MAX_RETRIES", 3)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")

	// Bind environment variables
	v.AutomaticEnv()

	cfg := &Config{
		Server: ServerConfig{
			Port: v.GetString("PORT"),
			Env:  v.GetString("ENV"),
		},
		Data: DataConfig{
			Dir: v.GetString("DATA_DIR"),
		},
		Client: ClientConfig{
			BaseURL:    v.GetString("API_BASE_URL"),
			RateLimit:  v.GetDuration("API_RATE_LIMIT"),
			Timeout:    v.GetDuration("API_TIMEOUT"),
			MaxRetries: v.GetInt("API_MAX_RETRIES"),
		},
		CORS: CORSConfig{
			Origins: parseOrigins(v.GetString("CORS_ORIGINS")),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that required configuration is present and valid.
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}
	if c.Data.Dir == "" {
		return fmt.Errorf("DATA_DIR is required")
	}
	if c.Client.BaseURL == "" {
		return fmt.Errorf("API_BASE_URL is required")
	}
	if c.Client.RateLimit < 0 {
		return fmt.Errorf("API_RATE_LIMIT must be non-negative")
	}
	if c.Client.Timeout <= 0 {
		return fmt.Errorf("API_TIMEOUT must be positive")
	}
	if c.Client.MaxRetries < 0 {
		return fmt.Errorf("API_MAX_RETRIES must be non-negative")
	}
	if len(c.CORS.Origins) == 0 {
		return fmt.Errorf("CORS_ORIGINS is required")
	}
	return nil
}

// parseOrigins splits a comma-separated string of origins into a slice.
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
