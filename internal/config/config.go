package config

import (
	"os"
	"strconv"
	"strings"

	"pdf-form-drafts/internal/domain"
)

const (
	DriverMemory   = "memory"
	DriverSupabase = "supabase"

	AuthModeHeader   = "header"
	AuthModeSupabase = "supabase"

	GuardNone  = "none"
	GuardLocal = "local"
	GuardRedis = "redis"
)

var defaultAllowedOrigins = []string{
	"http://localhost:5173",
	"http://localhost:4173",
	"http://localhost:3000",
}

// AppConfig implements the domain.Config interface
type AppConfig struct {
	ServerPort          string
	LogLevel            string
	StorageRoot         string
	DBDriver            string
	DBDSN               string
	DBMaxConns          int
	AutoMigrate         bool
	SupabaseURL         string
	SupabaseKey         string
	ExportBucket        string
	AuthMode            string
	VersionGuard        string
	RedisAddr           string
	ExportRatePerMinute int
	CleanupSchedule     string
	AllowedOrigins      []string
}

// NewConfig creates a new configuration instance with default values
func NewConfig() domain.Config {
	return &AppConfig{
		// Cloud Run (and many PaaS) provide the listening port via PORT.
		// Keep SERVER_PORT for local/dev compatibility.
		ServerPort:          getEnvOrDefault("PORT", getEnvOrDefault("SERVER_PORT", "8080")),
		LogLevel:            getEnvOrDefault("LOG_LEVEL", "info"),
		StorageRoot:         getEnvOrDefault("STORAGE_ROOT", "./storage"),
		DBDriver:            strings.ToLower(getEnvOrDefault("DB_DRIVER", DriverMemory)),
		DBDSN:               getEnvOrDefault("DB_DSN", ""),
		DBMaxConns:          getEnvIntOrDefault("DB_MAX_CONNS", 10),
		AutoMigrate:         getEnvBoolOrDefault("AUTO_MIGRATE", true),
		SupabaseURL:         getEnvOrDefault("SUPABASE_URL", ""),
		SupabaseKey:         getEnvOrDefault("SUPABASE_ANON_KEY", ""),
		ExportBucket:        getEnvOrDefault("SUPABASE_EXPORT_BUCKET", ""),
		AuthMode:            strings.ToLower(getEnvOrDefault("AUTH_MODE", AuthModeHeader)),
		VersionGuard:        strings.ToLower(getEnvOrDefault("VERSION_GUARD", GuardNone)),
		RedisAddr:           getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		ExportRatePerMinute: getEnvIntOrDefault("EXPORT_RATE_PER_MINUTE", 30),
		CleanupSchedule:     getEnvOrDefault("CLEANUP_SCHEDULE", "0 */15 * * * *"),
		AllowedOrigins:      getEnvListOrDefault("ALLOWED_ORIGINS", defaultAllowedOrigins),
	}
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetStorageRoot returns the directory holding drawings and exports
func (c *AppConfig) GetStorageRoot() string {
	return c.StorageRoot
}

func (c *AppConfig) GetDBDriver() string {
	return c.DBDriver
}

func (c *AppConfig) GetDBDSN() string {
	return c.DBDSN
}

func (c *AppConfig) GetDBMaxConns() int {
	return c.DBMaxConns
}

func (c *AppConfig) GetAutoMigrate() bool {
	return c.AutoMigrate
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the Supabase anon key
func (c *AppConfig) GetSupabaseKey() string {
	return c.SupabaseKey
}

// GetExportBucket returns the Storage bucket exports are mirrored to, if any
func (c *AppConfig) GetExportBucket() string {
	return c.ExportBucket
}

func (c *AppConfig) GetAuthMode() string {
	return c.AuthMode
}

func (c *AppConfig) GetVersionGuard() string {
	return c.VersionGuard
}

func (c *AppConfig) GetRedisAddr() string {
	return c.RedisAddr
}

func (c *AppConfig) GetExportRatePerMinute() int {
	return c.ExportRatePerMinute
}

func (c *AppConfig) GetCleanupSchedule() string {
	return c.CleanupSchedule
}

func (c *AppConfig) GetAllowedOrigins() []string {
	return c.AllowedOrigins
}

// Helper functions for environment variable handling
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvListOrDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
