// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Supported local store drivers.
const (
	StoreDriverSQLite = "sqlite"
	StoreDriverRedis  = "redis"
	StoreDriverMemory = "memory"
)

// Config holds all configuration for the application.
type Config struct {
	// Mode: "debug" or "release". Also drives gin and the logger preset.
	GinMode string `mapstructure:"GIN_MODE"`

	// Logging Configuration
	LogLevel  string `mapstructure:"LOG_LEVEL"`
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// Firebase Configuration
	FirebaseAPIKey                string `mapstructure:"FIREBASE_API_KEY"`
	FirebaseProjectID             string `mapstructure:"FIREBASE_PROJECT_ID"`
	FirebaseServiceAccountKeyPath string `mapstructure:"FIREBASE_SERVICE_ACCOUNT_KEY_PATH"`
	IdentityToolkitEndpoint       string `mapstructure:"IDENTITY_TOOLKIT_ENDPOINT"`
	SecureTokenEndpoint           string `mapstructure:"SECURE_TOKEN_ENDPOINT"`
	UsersCollection               string `mapstructure:"FIRESTORE_USERS_COLLECTION"`

	// Google OAuth (federated sign-in)
	GoogleClientID      string        `mapstructure:"GOOGLE_CLIENT_ID"`
	GoogleClientSecret  string        `mapstructure:"GOOGLE_CLIENT_SECRET"`
	GoogleRedirectHost  string        `mapstructure:"GOOGLE_REDIRECT_HOST"`
	GoogleRedirectPort  int           `mapstructure:"GOOGLE_REDIRECT_PORT"`
	GoogleSignInTimeout time.Duration `mapstructure:"-"` // GOOGLE_SIGNIN_TIMEOUT_SECONDS

	// Backend session endpoints
	BackendBaseURL          string        `mapstructure:"BACKEND_BASE_URL"`
	BackendTimeout          time.Duration `mapstructure:"-"` // BACKEND_TIMEOUT_SECONDS
	BackendBreakerThreshold int           `mapstructure:"BACKEND_BREAKER_FAILURE_THRESHOLD"`
	BackendBreakerCooldown  time.Duration `mapstructure:"-"` // BACKEND_BREAKER_COOLDOWN_SECONDS

	// Local persistent store
	LocalStoreDriver string `mapstructure:"LOCAL_STORE_DRIVER"`
	LocalStorePath   string `mapstructure:"LOCAL_STORE_PATH"`
	RedisAddr        string `mapstructure:"REDIS_ADDR"`
	RedisPassword    string `mapstructure:"REDIS_PASSWORD"`
	RedisDB          int    `mapstructure:"REDIS_DB"`
	RedisKeyPrefix   string `mapstructure:"REDIS_KEY_PREFIX"`

	// Per-command deadline for the CLI.
	OperationTimeout time.Duration `mapstructure:"-"` // OPERATION_TIMEOUT_SECONDS
}

// Load attempts to load configuration from a .env file (if present) and environment variables.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("error loading .env file: %w", err)
		}
	}

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling configuration: %w", err)
	}

	// Durations are configured as whole seconds and converted here.
	cfg.GoogleSignInTimeout = time.Duration(v.GetInt("GOOGLE_SIGNIN_TIMEOUT_SECONDS")) * time.Second
	cfg.BackendTimeout = time.Duration(v.GetInt("BACKEND_TIMEOUT_SECONDS")) * time.Second
	cfg.BackendBreakerCooldown = time.Duration(v.GetInt("BACKEND_BREAKER_COOLDOWN_SECONDS")) * time.Second
	cfg.OperationTimeout = time.Duration(v.GetInt("OPERATION_TIMEOUT_SECONDS")) * time.Second

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("GIN_MODE", "debug")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("FIREBASE_API_KEY", "")
	v.SetDefault("FIREBASE_PROJECT_ID", "")
	v.SetDefault("FIREBASE_SERVICE_ACCOUNT_KEY_PATH", "") // Optional, falls back to ADC
	v.SetDefault("IDENTITY_TOOLKIT_ENDPOINT", "")         // Empty means the public endpoint
	v.SetDefault("SECURE_TOKEN_ENDPOINT", "https://securetoken.googleapis.com/v1/token")
	v.SetDefault("FIRESTORE_USERS_COLLECTION", "users")

	v.SetDefault("GOOGLE_CLIENT_ID", "")
	v.SetDefault("GOOGLE_CLIENT_SECRET", "")
	v.SetDefault("GOOGLE_REDIRECT_HOST", "127.0.0.1")
	v.SetDefault("GOOGLE_REDIRECT_PORT", 0)
	v.SetDefault("GOOGLE_SIGNIN_TIMEOUT_SECONDS", 180)

	v.SetDefault("BACKEND_BASE_URL", "http://localhost:3000")
	v.SetDefault("BACKEND_TIMEOUT_SECONDS", 10)
	v.SetDefault("BACKEND_BREAKER_FAILURE_THRESHOLD", 5)
	v.SetDefault("BACKEND_BREAKER_COOLDOWN_SECONDS", 30)

	v.SetDefault("LOCAL_STORE_DRIVER", StoreDriverSQLite)
	v.SetDefault("LOCAL_STORE_PATH", "authctl.db")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("REDIS_KEY_PREFIX", "authctl:")

	v.SetDefault("OPERATION_TIMEOUT_SECONDS", 60)
}

// Validate checks the settings every command depends on.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.FirebaseAPIKey) == "" {
		return fmt.Errorf("FATAL: FIREBASE_API_KEY is not set. This is required to reach the identity platform")
	}
	if c.FirebaseServiceAccountKeyPath != "" {
		if _, err := os.Stat(c.FirebaseServiceAccountKeyPath); os.IsNotExist(err) {
			return fmt.Errorf("FATAL: Firebase service account key file specified in FIREBASE_SERVICE_ACCOUNT_KEY_PATH (%s) not found", c.FirebaseServiceAccountKeyPath)
		}
	}
	switch c.LocalStoreDriver {
	case StoreDriverSQLite, StoreDriverRedis, StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported LOCAL_STORE_DRIVER %q (want sqlite, redis or memory)", c.LocalStoreDriver)
	}
	if c.UsersCollection == "" {
		return fmt.Errorf("FIRESTORE_USERS_COLLECTION must not be empty")
	}
	return nil
}
