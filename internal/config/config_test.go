package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8000", cfg.Server.Port)
	assert.Equal(t, "development", cfg.Server.Env)
	assert.Equal(t, "./data", cfg.Data.Dir)
	assert.Equal(t, "http://localhost:8000", cfg.Client.BaseURL)
	assert.Equal(t, 750*time.Millisecond, cfg.Client.RateLimit)
	assert.Equal(t, 10*time.Second, cfg.Client.Timeout)
	assert.Equal(t, 3, cfg.Client.MaxRetries)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.CORS.Origins)
}

func TestLoadFromEnvironment(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("API_BASE_URL", "https://oss.uredjenazemlja.hr")
	t.Setenv("API_RATE_LIMIT", "2s")
	t.Setenv("CORS_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, "https://oss.uredjenazemlja.hr", cfg.Client.BaseURL)
	assert.Equal(t, 2*time.Second, cfg.Client.RateLimit)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.Origins)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			Server: ServerConfig{Port: "8000", Env: "test"},
			Data:   DataConfig{Dir: "./data"},
			Client: ClientConfig{
				BaseURL:    "http://localhost:8000",
				RateLimit:  time.Second,
				Timeout:    time.Second,
				MaxRetries: 3,
			},
			CORS: CORSConfig{Origins: []string{"http://localhost:3000"}},
		}
	}

	assert.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing port", func(c *Config) { c.Server.Port = "" }},
		{"missing data dir", func(c *Config) { c.Data.Dir = "" }},
		{"missing base URL", func(c *Config) { c.Client.BaseURL = "" }},
		{"negative rate limit", func(c *Config) { c.Client.RateLimit = -time.Second }},
		{"zero timeout", func(c *Config) { c.Client.Timeout = 0 }},
		{"negative retries", func(c *Config) { c.Client.MaxRetries = -1 }},
		{"no origins", func(c *Config) { c.CORS.Origins = nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestParseOrigins(t *testing.T) {
	assert.Empty(t, parseOrigins(""))
	assert.Equal(t, []string{"a", "b"}, parseOrigins("a, b"))
	assert.Equal(t, []string{"a"}, parseOrigins("a,,  "))
}
