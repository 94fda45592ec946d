package config

import (
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                  "development",
		JWTSecret:            "secure-secret-at-least-32-chars-long",
		DBPassword:           "secure-password",
		Port:                 "8375",
		RedisURL:             "redis://localhost:6379",
		FeedPageSize:         10,
		DefaultLocalRadiusKm: 50,
		FeedCacheTTLSeconds:  15,
		TracingSampleRatio:   1,
	}
}

func TestConfig_ValidateSSLMode(t *testing.T) {
	tests := []struct {
		name        string
		env         string
		sslMode     string
		expectError bool
	}{
		{"Production with empty SSL mode", "production", "", true},
		{"Production with disable SSL mode", "production", "disable", true},
		{"Production with require SSL mode", "production", "require", false},
		{"Prod with verify-full SSL mode", "prod", "verify-full", false},
		{"Development with disable SSL mode", "development", "disable", false},
		{"Test with empty SSL mode", "test", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			c.Env = tt.env
			c.DBSSLMode = tt.sslMode

			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestConfig_ValidateFeedSettings(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero page size", func(c *Config) { c.FeedPageSize = 0 }},
		{"radius below minimum", func(c *Config) { c.DefaultLocalRadiusKm = 1 }},
		{"radius above maximum", func(c *Config) { c.DefaultLocalRadiusKm = 55 }},
		{"negative cache ttl", func(c *Config) { c.FeedCacheTTLSeconds = -1 }},
		{"sample ratio above one", func(c *Config) { c.TracingSampleRatio = 1.5 }},
		{"missing redis", func(c *Config) { c.RedisURL = "" }},
		{"missing jwt secret", func(c *Config) { c.JWTSecret = "" }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			assert.Error(t, c.Validate())
		})
	}
	assert.NoError(t, validConfig().Validate())
}

func TestConfig_ProductionRejectsDefaultSecret(t *testing.T) {
	c := validConfig()
	c.Env = "production"
	c.DBSSLMode = "require"
	c.JWTSecret = defaultJWTSecret
	assert.Error(t, c.Validate())
}

func TestLoadConfig_DefaultsAndNormalization(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "development")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("FEED_PAGE_SIZE", "12")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, "8375", c.Port)
	assert.Equal(t, 12, c.FeedPageSize)
	assert.Equal(t, 50, c.DefaultLocalRadiusKm)
	assert.Equal(t, 15, c.FeedCacheTTLSeconds)
	assert.Equal(t, "sidewidth-auth", c.JWTIssuer)
	assert.Equal(t, "sidewidth-client", c.JWTAudience)
	assert.False(t, c.IsProduction())
}
