package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/devopshub/gatehouse/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis / cache configuration
	Cache CacheConfig

	// Access control configuration
	Access AccessConfig

	// Observability configuration
	Observability ObservabilityConfig

	// Maintenance configuration
	Maintenance MaintenanceConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string

	// Rate limiting for the unauthenticated endpoints (login, request-access)
	LoginRatePerMinute int
	LoginRateBurst     int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	URL          string
	MaxOpenConns int
	MaxIdleConns int
	ConnTimeout  time.Duration
}

// CacheConfig holds Redis cache configuration
type CacheConfig struct {
	Enabled       bool
	RedisURL      string
	RedisPassword string
	RedisDB       int
	ContentTTL    time.Duration
}

// AccessConfig holds access-control configuration
type AccessConfig struct {
	// PermanentAdminEmail can never be removed or demoted. Empty keeps the
	// compiled-in default.
	PermanentAdminEmail string

	// InitialPermissions seeds the permission list on first boot against an
	// empty store (comma-separated emails).
	InitialPermissions []string

	SessionTTL       time.Duration
	SessionCacheSize int
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// MaintenanceConfig holds background maintenance settings
type MaintenanceConfig struct {
	Enabled bool

	// Cron expressions (robfig/cron, with seconds field disabled)
	SessionPurgeSchedule string
	AuditPurgeSchedule   string

	AuditRetention time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server:        loadServerConfig(),
		Database:      loadDatabaseConfig(),
		Cache:         loadCacheConfig(),
		Access:        loadAccessConfig(),
		Observability: loadObservabilityConfig(),
		Maintenance:   loadMaintenanceConfig(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// loadServerConfig loads server configuration from environment
func loadServerConfig() ServerConfig {
	return ServerConfig{
		Host:               getEnv("GATEHOUSE_HOST", "0.0.0.0"),
		Port:               getEnv("GATEHOUSE_PORT", "8080"),
		ReadTimeout:        getEnvDuration("GATEHOUSE_READ_TIMEOUT", 15*time.Second),
		WriteTimeout:       getEnvDuration("GATEHOUSE_WRITE_TIMEOUT", 15*time.Second),
		IdleTimeout:        getEnvDuration("GATEHOUSE_IDLE_TIMEOUT", 60*time.Second),
		ShutdownTimeout:    getEnvDuration("GATEHOUSE_SHUTDOWN_TIMEOUT", 30*time.Second),
		HealthPort:         getEnv("GATEHOUSE_HEALTH_PORT", "9090"),
		LoginRatePerMinute: getEnvInt("GATEHOUSE_LOGIN_RATE_PER_MINUTE", 10),
		LoginRateBurst:     getEnvInt("GATEHOUSE_LOGIN_RATE_BURST", 5),
	}
}

// loadDatabaseConfig loads PostgreSQL configuration from environment
func loadDatabaseConfig() DatabaseConfig {
	return DatabaseConfig{
		URL:          getEnv("GATEHOUSE_POSTGRES_URL", ""),
		MaxOpenConns: getEnvInt("GATEHOUSE_POSTGRES_MAX_CONNS", 20),
		MaxIdleConns: getEnvInt("GATEHOUSE_POSTGRES_IDLE_CONNS", 2),
		ConnTimeout:  getEnvDuration("GATEHOUSE_POSTGRES_TIMEOUT", 10*time.Second),
	}
}

// loadCacheConfig loads Redis cache configuration from environment
func loadCacheConfig() CacheConfig {
	return CacheConfig{
		Enabled:       getEnvBool("GATEHOUSE_CACHE_ENABLED", true),
		RedisURL:      getEnv("GATEHOUSE_REDIS_URL", ""),
		RedisPassword: getEnv("GATEHOUSE_REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("GATEHOUSE_REDIS_DB", 0),
		ContentTTL:    getEnvDuration("GATEHOUSE_CONTENT_CACHE_TTL", 5*time.Minute),
	}
}

// loadAccessConfig loads access-control configuration from environment
func loadAccessConfig() AccessConfig {
	var initial []string
	if raw := getEnv("GATEHOUSE_INITIAL_PERMISSIONS", ""); raw != "" {
		for _, email := range strings.Split(raw, ",") {
			if email = strings.TrimSpace(email); email != "" {
				initial = append(initial, email)
			}
		}
	}

	return AccessConfig{
		PermanentAdminEmail: getEnv("GATEHOUSE_PERMANENT_ADMIN", ""),
		InitialPermissions:  initial,
		SessionTTL:          getEnvDuration("GATEHOUSE_SESSION_TTL", 24*time.Hour),
		SessionCacheSize:    getEnvInt("GATEHOUSE_SESSION_CACHE_SIZE", 1024),
	}
}

// loadObservabilityConfig loads observability configuration from environment
func loadObservabilityConfig() ObservabilityConfig {
	return ObservabilityConfig{
		LogLevel:       parseLogLevel(getEnv("GATEHOUSE_LOG_LEVEL", "info")),
		MetricsEnabled: getEnvBool("GATEHOUSE_METRICS_ENABLED", true),
	}
}

// loadMaintenanceConfig loads maintenance configuration from environment
func loadMaintenanceConfig() MaintenanceConfig {
	return MaintenanceConfig{
		Enabled:              getEnvBool("GATEHOUSE_MAINTENANCE_ENABLED", true),
		SessionPurgeSchedule: getEnv("GATEHOUSE_SESSION_PURGE_SCHEDULE", "@every 1h"),
		AuditPurgeSchedule:   getEnv("GATEHOUSE_AUDIT_PURGE_SCHEDULE", "@daily"),
		AuditRetention:       getEnvDuration("GATEHOUSE_AUDIT_RETENTION", 90*24*time.Hour),
	}
}

// Validate checks configuration consistency
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("GATEHOUSE_POSTGRES_URL is required")
	}

	if c.Cache.Enabled && c.Cache.RedisURL == "" {
		return fmt.Errorf("GATEHOUSE_REDIS_URL is required when caching is enabled")
	}

	if c.Access.SessionTTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}

	if c.Access.SessionCacheSize <= 0 {
		return fmt.Errorf("session cache size must be positive")
	}

	if c.Server.LoginRatePerMinute <= 0 || c.Server.LoginRateBurst <= 0 {
		return fmt.Errorf("login rate limit values must be positive")
	}

	if c.Maintenance.AuditRetention <= 0 {
		return fmt.Errorf("audit retention must be positive")
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
