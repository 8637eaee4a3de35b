package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() Config {
	return Config{
		Port:                "8080",
		JWTSecret:           "dev-secret",
		Env:                 "development",
		TracingSamplerRatio: 1,
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("APP_ENV", "test")
	t.Setenv("PORT", "9999")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "9999", cfg.Port)
	assert.Equal(t, "test", cfg.Env)
	assert.Equal(t, 300, cfg.IdentityCacheTTLSeconds)
	assert.Equal(t, 120, cfg.ReactionRateLimit)
	assert.False(t, cfg.TracingEnabled)
}

func TestLoadConfigMissingProfileFile(t *testing.T) {
	t.Setenv("APP_ENV", "staging")

	_, err := LoadConfig()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config.staging.yml")
}

func TestValidate(t *testing.T) {
	cfg := validConfig()
	assert.NoError(t, cfg.Validate())

	noPort := validConfig()
	noPort.Port = ""
	assert.EqualError(t, noPort.Validate(), "PORT is required")

	badRatio := validConfig()
	badRatio.TracingSamplerRatio = 2
	assert.Error(t, badRatio.Validate())
}

func TestValidateProduction(t *testing.T) {
	cfg := validConfig()
	cfg.Env = "production"
	cfg.JWTSecret = defaultJWTSecret
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "short"
	assert.Error(t, cfg.Validate())

	cfg.JWTSecret = "0123456789abcdef0123456789abcdef"
	cfg.DBPassword = "password"
	assert.Error(t, cfg.Validate())

	cfg.DBPassword = "a-much-better-password"
	cfg.DBSSLMode = "require"
	assert.NoError(t, cfg.Validate())
}

func TestDSNAndOrigins(t *testing.T) {
	cfg := Config{DBHost: "db", DBPort: "5432", DBUser: "u", DBPassword: "p", DBName: "n"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", cfg.DSN())

	cfg.AllowedOrigins = " http://a , ,http://b"
	assert.Equal(t, []string{"http://a", "http://b"}, cfg.Origins())
}
