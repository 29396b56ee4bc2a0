package config

import (
	"errors"
	"sync"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	AppPort               int    `mapstructure:"APP_PORT"`
	LogLevel              string `mapstructure:"LOG_LEVEL"`
	LogFormat             string `mapstructure:"LOG_FORMAT"`
	StoreBackend          string `mapstructure:"STORE_BACKEND"`
	MongoURI              string `mapstructure:"MONGO_URI"`
	MongoDBName           string `mapstructure:"MONGO_DB_NAME"`
	SQLitePath            string `mapstructure:"SQLITE_PATH"`
	JWTSecret             string `mapstructure:"JWT_SECRET"`
	WSOutboxBuffer        int    `mapstructure:"WS_OUTBOX_BUFFER"`
	RouteMetricsEnabled   bool   `mapstructure:"ROUTE_METRICS_ENABLED"`
	RequestLoggingEnabled bool   `mapstructure:"REQUEST_LOGGING_ENABLED"`
	RateLimitPerMin       int    `mapstructure:"RATE_LIMIT_PER_MIN"`
	GatewayRejectUnknown  bool   `mapstructure:"GATEWAY_REJECT_UNKNOWN"`
	RequestTimeoutMS      int    `mapstructure:"REQUEST_TIMEOUT_MS"`
	PresenceWindowMS      int    `mapstructure:"PRESENCE_WINDOW_MS"`
	ReadyFallbackMS       int    `mapstructure:"READY_FALLBACK_MS"`
	RemoteDebounceMS      int    `mapstructure:"REMOTE_DEBOUNCE_MS"`
	PyroscopeAddress      string `mapstructure:"PYROSCOPE_SERVER_ADDRESS"`
	GatewayURL            string `mapstructure:"GATEWAY_URL"`
	RemoteEndpoint        string `mapstructure:"REMOTE_ENDPOINT"`
	LocalStorePath        string `mapstructure:"LOCAL_STORE_PATH"`
}

// Store backends accepted by STORE_BACKEND.
const (
	BackendMongo  = "mongo"
	BackendSQLite = "sqlite"
	BackendMemory = "memory"
)

// Validation errors returned by Config.Validate.
var (
	ErrAppPortRange      = errors.New("APP_PORT must be between 1 and 65535")
	ErrLogLevelEmpty     = errors.New("LOG_LEVEL cannot be empty")
	ErrLogFormatEmpty    = errors.New("LOG_FORMAT cannot be empty")
	ErrStoreBackend      = errors.New("STORE_BACKEND must be one of mongo, sqlite, memory")
	ErrMongoURIEmpty     = errors.New("MONGO_URI cannot be empty")
	ErrMongoDBNameEmpty  = errors.New("MONGO_DB_NAME cannot be empty")
	ErrSQLitePathEmpty   = errors.New("SQLITE_PATH cannot be empty")
	ErrJWTSecretTooShort = errors.New("JWT_SECRET must be at least 32 characters")
	ErrWSOutboxBuffer    = errors.New("WS_OUTBOX_BUFFER must be greater than 0")
	ErrRequestTimeout    = errors.New("REQUEST_TIMEOUT_MS must be greater than 0")
	ErrPresenceWindow    = errors.New("PRESENCE_WINDOW_MS must be greater than 0")
	ErrReadyFallback     = errors.New("READY_FALLBACK_MS must not be shorter than PRESENCE_WINDOW_MS")
	ErrRemoteDebounce    = errors.New("REMOTE_DEBOUNCE_MS cannot be negative")
	ErrRateLimit         = errors.New("RATE_LIMIT_PER_MIN cannot be negative")
)

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

	if cachedConfig != nil {
		return *cachedConfig, nil
	}

	v := viper.New()

	v.SetDefault("APP_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
	v.SetDefault("STORE_BACKEND", BackendMongo)
	v.SetDefault("MONGO_URI", "mongodb://mongo:27017")
	v.SetDefault("MONGO_DB_NAME", "postit")
	v.SetDefault("SQLITE_PATH", "postit.db")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("WS_OUTBOX_BUFFER", 256)
	v.SetDefault("ROUTE_METRICS_ENABLED", true)
	v.SetDefault("REQUEST_LOGGING_ENABLED", false)
	v.SetDefault("RATE_LIMIT_PER_MIN", 0)
	v.SetDefault("GATEWAY_REJECT_UNKNOWN", false)
	v.SetDefault("REQUEST_TIMEOUT_MS", 5000)
	v.SetDefault("PRESENCE_WINDOW_MS", 100)
	v.SetDefault("READY_FALLBACK_MS", 500)
	v.SetDefault("REMOTE_DEBOUNCE_MS", 300)
	v.SetDefault("PYROSCOPE_SERVER_ADDRESS", "")
	v.SetDefault("GATEWAY_URL", "ws://localhost:8080/ws/gateway")
	v.SetDefault("REMOTE_ENDPOINT", "")
	v.SetDefault("LOCAL_STORE_PATH", "")

	// Configure Viper to read from .env file (if present)
	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return Config{}, err
		}
	}

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
	switch c.StoreBackend {
	case BackendMongo:
		if c.MongoURI == "" {
			return ErrMongoURIEmpty
		}
		if c.MongoDBName == "" {
			return ErrMongoDBNameEmpty
		}
	case BackendSQLite:
		if c.SQLitePath == "" {
			return ErrSQLitePathEmpty
		}
	case BackendMemory:
	default:
		return ErrStoreBackend
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return ErrJWTSecretTooShort
	}
	if c.WSOutboxBuffer <= 0 {
		return ErrWSOutboxBuffer
	}
	if c.RequestTimeoutMS <= 0 {
		return ErrRequestTimeout
	}
	if c.PresenceWindowMS <= 0 {
		return ErrPresenceWindow
	}
	if c.ReadyFallbackMS < c.PresenceWindowMS {
		return ErrReadyFallback
	}
	if c.RemoteDebounceMS < 0 {
		return ErrRemoteDebounce
	}
	if c.RateLimitPerMin < 0 {
		return ErrRateLimit
	}
	return nil
}

// RequestTimeout is the deadline of a single cross-context request.
func (c Config) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutMS) * time.Millisecond
}

// PresenceWindow is how long the page waits for the bridge to announce itself.
func (c Config) PresenceWindow() time.Duration {
	return time.Duration(c.PresenceWindowMS) * time.Millisecond
}

// ReadyFallback is the longest the UI waits for the readiness event.
func (c Config) ReadyFallback() time.Duration {
	return time.Duration(c.ReadyFallbackMS) * time.Millisecond
}

// RemoteDebounce is the quiescence window for coalescing content edits.
func (c Config) RemoteDebounce() time.Duration {
	return time.Duration(c.RemoteDebounceMS) * time.Millisecond
}
