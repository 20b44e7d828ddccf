package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		Env:                      "development",
		Port:                     "5000",
		JWTSecret:                "secure-secret-at-least-32-chars-long",
		DBDriver:                 DriverPostgres,
		DBHost:                   "localhost",
		DBPassword:               "secure-password",
		DBSSLMode:                "require",
		AvatarMaxUploadSizeMB:    5,
		DBConnMaxLifetimeMinutes: 1,
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(c *Config)
		expectError bool
	}{
		{"valid development", func(c *Config) {}, false},
		{"missing secret", func(c *Config) { c.JWTSecret = "" }, true},
		{"missing port", func(c *Config) { c.Port = "" }, true},
		{"unknown driver", func(c *Config) { c.DBDriver = "cassandra" }, true},
		{"mongo without uri", func(c *Config) { c.DBDriver = DriverMongo }, true},
		{"mongo with uri", func(c *Config) { c.DBDriver = DriverMongo; c.MongoURI = "mongodb://localhost:27017" }, false},
		{"sqlite with path", func(c *Config) { c.DBDriver = DriverSQLite; c.SQLitePath = ":memory:" }, false},
		{"postgres without host or url", func(c *Config) { c.DBHost = "" }, true},
		{"zero upload size", func(c *Config) { c.AvatarMaxUploadSizeMB = 0 }, true},
		{"production short secret", func(c *Config) { c.Env = "production"; c.JWTSecret = "short" }, true},
		{"production default password", func(c *Config) { c.Env = "production"; c.DBPassword = "password" }, true},
		{"production sslmode disabled", func(c *Config) { c.Env = "prod"; c.DBSSLMode = "disable" }, true},
		{"production sqlite", func(c *Config) { c.Env = "production"; c.DBDriver = DriverSQLite; c.SQLitePath = "x.db" }, true},
		{"production ok", func(c *Config) { c.Env = "production" }, false},
		{"production database url skips component checks", func(c *Config) {
			c.Env = "production"
			c.DBPassword = ""
			c.DBSSLMode = ""
			c.DatabaseURL = "postgres://u:p@db/arcade?sslmode=require"
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validConfig()
			tt.mutate(c)
			err := c.Validate()
			if tt.expectError {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLoadConfig_FromEnvironment(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "env-secret-that-is-long-enough-123456")
	t.Setenv("DB_SSLMODE", "  DISABLE  ")
	t.Setenv("DB_DRIVER", " SQLite ")
	t.Setenv("API_BASE_PATH", "v1/")

	c, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, "env-secret-that-is-long-enough-123456", c.JWTSecret)
	assert.Equal(t, "disable", c.DBSSLMode)
	assert.Equal(t, DriverSQLite, c.DBDriver)
	assert.Equal(t, "/v1", c.APIBasePath)
	assert.Equal(t, "5000", c.Port)
	assert.Equal(t, 168*time.Hour, c.TokenTTL())
	assert.Equal(t, int64(5*1024*1024), c.AvatarMaxBytes())
}

func TestLoadConfig_MissingSecretIsFatal(t *testing.T) {
	defer viper.Reset()

	t.Setenv("APP_ENV", "development")
	t.Setenv("JWT_SECRET", "")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "JWT_SECRET")
}
