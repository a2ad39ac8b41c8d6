package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	env "github.com/caarlos0/env/v7"
	"github.com/joho/godotenv"
)

const (
	StorageDriverPostgres = "postgres"
	StorageDriverMemory   = "memory"

	minJWTSecretLen = 32
)

type Config struct {
	HTTPPort         int    `env:"HTTP_PORT" envDefault:"8080"`
	StorageDriver    string `env:"STORAGE_DRIVER" envDefault:"postgres"`
	PostgresDSN      string `env:"POSTGRES_DSN"`
	PostgresMaxConns int32  `env:"POSTGRES_MAX_CONNS" envDefault:"10"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"info"`
	FrontendURL      string `env:"FRONTEND_URL" envDefault:"http://localhost:3000"`
	JWT              JWTConfig
	Security         SecurityConfig
	Cookie           CookieConfig
	Google           GoogleConfig
	Redis            RedisConfig
	Jobs             JobsConfig

	KafkaBrokers            []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaNotificationsTopic string   `env:"KAFKA_NOTIFICATION_TOPIC" envDefault:"notifications"`
	KafkaSecurityTopic      string   `env:"KAFKA_SECURITY_TOPIC" envDefault:"security-events"`
}

type JWTConfig struct {
	Secret             string        `env:"JWT_SECRET"`
	Issuer             string        `env:"JWT_ISSUER" envDefault:"nightgig-auth"`
	AccessTokenExpiry  time.Duration `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"15m"`
	RefreshTokenExpiry time.Duration `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"168h"`
}

type SecurityConfig struct {
	MaxLoginAttempts   int           `env:"MAX_LOGIN_ATTEMPTS" envDefault:"5"`
	LockoutDuration    time.Duration `env:"LOCKOUT_DURATION" envDefault:"15m"`
	RateLimitWindow    time.Duration `env:"RATE_LIMIT_WINDOW" envDefault:"15m"`
	RateLimitMax       int           `env:"RATE_LIMIT_MAX" envDefault:"100"`
	AuthRateLimitMax   int           `env:"AUTH_RATE_LIMIT_MAX" envDefault:"20"`
	PasswordResetTTL   time.Duration `env:"PASSWORD_RESET_TTL" envDefault:"1h"`
	EmailVerifyTTL     time.Duration `env:"EMAIL_VERIFY_TTL" envDefault:"24h"`
	TrustProxyHeaders  bool          `env:"TRUST_PROXY_HEADERS" envDefault:"false"`
	DenylistOnLogout   bool          `env:"DENYLIST_ON_LOGOUT" envDefault:"true"`
	RevokeOnTokenReuse bool          `env:"REVOKE_ON_TOKEN_REUSE" envDefault:"true"`
}

type CookieConfig struct {
	RefreshName string `env:"REFRESH_COOKIE_NAME" envDefault:"refreshToken"`
	Path        string `env:"REFRESH_COOKIE_PATH" envDefault:"/api/auth"`
	Domain      string `env:"REFRESH_COOKIE_DOMAIN"`
	Secure      bool   `env:"REFRESH_COOKIE_SECURE" envDefault:"true"`
}

type GoogleConfig struct {
	ClientID      string        `env:"GOOGLE_CLIENT_ID"`
	ClientSecret  string        `env:"GOOGLE_CLIENT_SECRET"`
	RedirectURI   string        `env:"GOOGLE_REDIRECT_URI"`
	AuthURL       string        `env:"GOOGLE_AUTH_URL" envDefault:"https://accounts.google.com/o/oauth2/v2/auth"`
	TokenURL      string        `env:"GOOGLE_TOKEN_URL" envDefault:"https://oauth2.googleapis.com/token"`
	UserInfoURL   string        `env:"GOOGLE_USERINFO_URL" envDefault:"https://openidconnect.googleapis.com/v1/userinfo"`
	Scope         string        `env:"GOOGLE_SCOPE" envDefault:"openid email profile"`
	Timeout       time.Duration `env:"GOOGLE_TIMEOUT" envDefault:"10s"`
	RetryAttempts int           `env:"GOOGLE_RETRY_ATTEMPTS" envDefault:"2"`
	VerifyTokens  bool          `env:"GOOGLE_VERIFY_TOKENS" envDefault:"true"`
}

type RedisConfig struct {
	Addr      string `env:"REDIS_ADDR"`
	Password  string `env:"REDIS_PASSWORD"`
	DB        int    `env:"REDIS_DB" envDefault:"0"`
	KeyPrefix string `env:"REDIS_KEY_PREFIX" envDefault:"nightgig:auth"`
}

type JobsConfig struct {
	TokenCleanupInterval  time.Duration `env:"JOB_TOKEN_CLEANUP_INTERVAL" envDefault:"1h"`
	WindowCleanupInterval time.Duration `env:"JOB_WINDOW_CLEANUP_INTERVAL" envDefault:"5m"`
}

func New(envPath string) (Config, error) {
	var c Config

	err := godotenv.Load(envPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}

	err = env.Parse(&c)
	if err != nil {
		return Config{}, err
	}

	if err := c.Validate(); err != nil {
		return Config{}, err
	}

	return c, nil
}

func (c Config) Validate() error {
	if len(c.JWT.Secret) < minJWTSecretLen {
		return fmt.Errorf("JWT_SECRET must be at least %d bytes", minJWTSecretLen)
	}

	if c.JWT.AccessTokenExpiry <= 0 || c.JWT.RefreshTokenExpiry <= c.JWT.AccessTokenExpiry {
		return errors.New("refresh token expiry must exceed a positive access token expiry")
	}

	switch c.StorageDriver {
	case StorageDriverPostgres:
		if c.PostgresDSN == "" {
			return errors.New("POSTGRES_DSN is required for the postgres storage driver")
		}
	case StorageDriverMemory:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.StorageDriver)
	}

	if c.Security.MaxLoginAttempts < 1 {
		return errors.New("MAX_LOGIN_ATTEMPTS must be positive")
	}

	if c.Security.RateLimitWindow <= 0 || c.Security.RateLimitMax < 1 || c.Security.AuthRateLimitMax < 1 {
		return errors.New("rate limit window and ceilings must be positive")
	}

	return nil
}

func (c Config) GoogleEnabled() bool {
	return c.Google.ClientID != "" && c.Google.ClientSecret != ""
}
