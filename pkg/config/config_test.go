package config_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/nightgig/platform/auth/pkg/config"
)

func validConfig() config.Config {
	return config.Config{
		StorageDriver: config.StorageDriverMemory,
		JWT: config.JWTConfig{
			Secret:             strings.Repeat("s", 32),
			AccessTokenExpiry:  15 * time.Minute,
			RefreshTokenExpiry: 168 * time.Hour,
		},
		Security: config.SecurityConfig{
			MaxLoginAttempts: 5,
			LockoutDuration:  15 * time.Minute,
			RateLimitWindow:  15 * time.Minute,
			RateLimitMax:     100,
			AuthRateLimitMax: 20,
		},
	}
}

func TestConfig_Validate(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		modify func(c *config.Config)
		errFn  require.ErrorAssertionFunc
	}{
		{"valid", func(*config.Config) {}, require.NoError},
		{"short secret", func(c *config.Config) { c.JWT.Secret = "short" }, require.Error},
		{"refresh shorter than access", func(c *config.Config) { c.JWT.RefreshTokenExpiry = time.Minute }, require.Error},
		{"postgres without dsn", func(c *config.Config) { c.StorageDriver = config.StorageDriverPostgres }, require.Error},
		{"unknown driver", func(c *config.Config) { c.StorageDriver = "sqlite" }, require.Error},
		{"zero attempts", func(c *config.Config) { c.Security.MaxLoginAttempts = 0 }, require.Error},
		{"zero rate limit", func(c *config.Config) { c.Security.AuthRateLimitMax = 0 }, require.Error},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			c := validConfig()
			tt.modify(&c)
			tt.errFn(t, c.Validate())
		})
	}
}

func TestNew_ReadsEnvironment(t *testing.T) { //nolint:paralleltest
	t.Setenv("JWT_SECRET", strings.Repeat("k", 40))
	t.Setenv("STORAGE_DRIVER", "memory")
	t.Setenv("MAX_LOGIN_ATTEMPTS", "7")
	t.Setenv("KAFKA_BROKERS", "a:9092,b:9092")

	c, err := config.New("testdata/missing.env")
	require.NoError(t, err)

	require.Equal(t, 7, c.Security.MaxLoginAttempts)
	require.Equal(t, 15*time.Minute, c.Security.LockoutDuration)
	require.Equal(t, []string{"a:9092", "b:9092"}, c.KafkaBrokers)
	require.Equal(t, "refreshToken", c.Cookie.RefreshName)
	require.True(t, c.Google.VerifyTokens)
	require.False(t, c.GoogleEnabled())
	require.False(t, c.Security.TrustProxyHeaders, "forwarding headers are ignored unless enabled")
}
