package app

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "local-secret")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, ":8080", cfg.AppAddr)
	assert.Equal(t, 0.19, cfg.VATRate)
	assert.Equal(t, 90*24*time.Hour, cfg.ActivityRetention)
	assert.Equal(t, "America/Bogota", cfg.Location().String())
	assert.False(t, cfg.IsProduction())

	_, ok := cfg.Storage()
	assert.False(t, ok)
}

func TestLoadConfigRequiresJWTSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	require.Error(t, err)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string]map[string]string{
		"short production secret": {"APP_ENV": "production", "JWT_SECRET": "short"},
		"vat rate":                {"JWT_SECRET": "local-secret", "VAT_RATE": "1.5"},
		"retention":               {"JWT_SECRET": "local-secret", "ACTIVITY_RETENTION": "1h"},
		"timezone":                {"JWT_SECRET": "local-secret", "APP_TIMEZONE": "Mars/Olympus"},
		"log level":               {"JWT_SECRET": "local-secret", "LOG_LEVEL": "chatty"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := LoadConfig()
			require.Error(t, err)
		})
	}
}

func TestStorageConfig(t *testing.T) {
	cfg := &Config{S3Bucket: "logos", S3Region: "us-east-1", S3PublicBaseURL: "https://cdn.example.com"}

	sc, ok := cfg.Storage()
	require.True(t, ok)
	assert.Equal(t, "logos", sc.Bucket)
	assert.Equal(t, "https://cdn.example.com", sc.PublicBaseURL)
}
