package config

import (
	"errors"
	"sync"

	"github.com/spf13/viper"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// DevJWTSecret signs and verifies tokens when DEV_MODE is on and JWT_SECRET is unset.
const DevJWTSecret = "snapnotes-dev-only-secret-do-not-use-in-production"

var (
	ErrAppPortRange         = errors.New("APP_PORT must be between 1 and 65535")
	ErrLogLevelEmpty        = errors.New("LOG_LEVEL cannot be empty")
	ErrLogFormatEmpty       = errors.New("LOG_FORMAT cannot be empty")
	ErrStoreDriver          = errors.New("STORE_DRIVER must be one of mongo, postgres, memory")
	ErrMongoURIEmpty        = errors.New("MONGO_URI cannot be empty")
	ErrMongoDBNameEmpty     = errors.New("MONGO_DB_NAME cannot be empty")
	ErrPostgresDSNEmpty     = errors.New("POSTGRES_DSN cannot be empty")
	ErrJWTSecretRequired    = errors.New("JWT_SECRET cannot be empty")
	ErrJWTSecretTooShort    = errors.New("JWT_SECRET must be at least 32 characters for HS256")
	ErrWSMaxSessionSec      = errors.New("WS_MAX_SESSION_SEC must be greater than 0")
	ErrWSOutboxBuffer       = errors.New("WS_OUTBOX_BUFFER must be greater than 0")
	ErrNotesRatePerMin      = errors.New("NOTES_RATE_PER_MIN must be greater than or equal to 1")
	ErrMemoryDriverNeedsDev = errors.New("STORE_DRIVER=memory requires DEV_MODE")
)

// Config holds all application configuration
type Config struct {
	AppPort               int    `mapstructure:"APP_PORT"`
	LogLevel              string `mapstructure:"LOG_LEVEL"`
	LogFormat             string `mapstructure:"LOG_FORMAT"`
	StoreDriver           string `mapstructure:"STORE_DRIVER"`
	MongoURI              string `mapstructure:"MONGO_URI"`
	MongoDBName           string `mapstructure:"MONGO_DB_NAME"`
	PostgresDSN           string `mapstructure:"POSTGRES_DSN"`
	RedisURL              string `mapstructure:"REDIS_URL"`
	JWTSecret             string `mapstructure:"JWT_SECRET"`
	DevMode               bool   `mapstructure:"DEV_MODE"`
	WSMaxSessionSec       int    `mapstructure:"WS_MAX_SESSION_SEC"`
	WSOutboxBuffer        int    `mapstructure:"WS_OUTBOX_BUFFER"`
	NotesRatePerMin       int    `mapstructure:"NOTES_RATE_PER_MIN"`
	RouteMetricsEnabled   bool   `mapstructure:"ROUTE_METRICS_ENABLED"`
	RequestLoggingEnabled bool   `mapstructure:"REQUEST_LOGGING_ENABLED"`
	PyroscopeServer       string `mapstructure:"PYROSCOPE_SERVER"`
}

var (
	cachedConfig *Config
	configMutex  sync.RWMutex
)

// Load loads configuration from environment variables and .env file
// It caches the result for subsequent calls
func Load() (Config, error) {
	configMutex.RLock()
	if cachedConfig != nil {
		defer configMutex.RUnlock()
		return *cachedConfig, nil
	}
	configMutex.RUnlock()

	configMutex.Lock()
	defer configMutex.Unlock()

	// Double-check in case another goroutine loaded it while we waited for the lock
	if cachedConfig != nil {
		return *cachedConfig, nil
	}

	v := viper.New()

	v.SetDefault("APP_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("STORE_DRIVER", DriverMongo)
	v.SetDefault("MONGO_URI", "mongodb://mongo:27017")
	v.SetDefault("MONGO_DB_NAME", "snapnotes")
	v.SetDefault("POSTGRES_DSN", "")
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("DEV_MODE", false)
	v.SetDefault("WS_MAX_SESSION_SEC", 900)
	v.SetDefault("WS_OUTBOX_BUFFER", 16) // snapshots queued per WebSocket connection
	v.SetDefault("NOTES_RATE_PER_MIN", 120)
	v.SetDefault("ROUTE_METRICS_ENABLED", true)
	v.SetDefault("REQUEST_LOGGING_ENABLED", true)
	v.SetDefault("PYROSCOPE_SERVER", "")

	// Configure Viper to read from .env file (if present)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	// Try to read .env file (it's okay if it doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, err
		}
	}

	// Override with OS environment variables
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	cachedConfig = &cfg

	return cfg, nil
}

// ResetCache clears the cached configuration (for testing purposes)
func ResetCache() {
	configMutex.Lock()
	defer configMutex.Unlock()
	cachedConfig = nil
}

// SigningSecret returns the HS256 key used for bearer tokens.
func (c Config) SigningSecret() string {
	if c.JWTSecret == "" && c.DevMode {
		return DevJWTSecret
	}
	return c.JWTSecret
}

// Validate checks if required configuration fields are properly set
func (c Config) Validate() error {
	if c.AppPort <= 0 || c.AppPort > 65535 {
		return ErrAppPortRange
	}
	if c.LogLevel == "" {
		return ErrLogLevelEmpty
	}
	if c.LogFormat == "" {
		return ErrLogFormatEmpty
	}

	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return ErrMongoURIEmpty
		}
		if c.MongoDBName == "" {
			return ErrMongoDBNameEmpty
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return ErrPostgresDSNEmpty
		}
	case DriverMemory:
		if !c.DevMode {
			return ErrMemoryDriverNeedsDev
		}
	default:
		return ErrStoreDriver
	}

	if !c.DevMode {
		if c.JWTSecret == "" {
			return ErrJWTSecretRequired
		}
		if len(c.JWTSecret) < 32 {
			return ErrJWTSecretTooShort
		}
	}
	if c.WSMaxSessionSec <= 0 {
		return ErrWSMaxSessionSec
	}
	if c.WSOutboxBuffer <= 0 {
		return ErrWSOutboxBuffer
	}
	if c.NotesRatePerMin < 1 {
		return ErrNotesRatePerMin
	}
	return nil
}
