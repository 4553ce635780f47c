package config

import (
	"reflect"
	"testing"
)

var configEnv = []string{
	"PORT", "SERVER_PORT", "LOG_LEVEL", "STORAGE_ROOT", "DB_DRIVER", "DB_DSN",
	"DB_MAX_CONNS", "AUTO_MIGRATE", "SUPABASE_URL", "SUPABASE_ANON_KEY",
	"SUPABASE_EXPORT_BUCKET", "AUTH_MODE", "VERSION_GUARD", "REDIS_ADDR",
	"EXPORT_RATE_PER_MINUTE", "CLEANUP_SCHEDULE", "ALLOWED_ORIGINS",
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range configEnv {
		t.Setenv(k, "")
	}
}

func TestNewConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg := NewConfig()

	if cfg.GetServerPort() != "8080" {
		t.Fatalf("expected default server port 8080, got %s", cfg.GetServerPort())
	}
	if cfg.GetLogLevel() != "info" {
		t.Fatalf("expected default log level info, got %s", cfg.GetLogLevel())
	}
	if cfg.GetStorageRoot() != "./storage" {
		t.Fatalf("expected default storage root ./storage, got %s", cfg.GetStorageRoot())
	}
	if cfg.GetDBDriver() != DriverMemory {
		t.Fatalf("expected default driver memory, got %s", cfg.GetDBDriver())
	}
	if cfg.GetDBMaxConns() != 10 {
		t.Fatalf("expected default max conns 10, got %d", cfg.GetDBMaxConns())
	}
	if !cfg.GetAutoMigrate() {
		t.Fatal("expected auto migrate on by default")
	}
	if cfg.GetAuthMode() != AuthModeHeader {
		t.Fatalf("expected default auth mode header, got %s", cfg.GetAuthMode())
	}
	if cfg.GetVersionGuard() != GuardNone {
		t.Fatalf("expected default version guard none, got %s", cfg.GetVersionGuard())
	}
	if cfg.GetExportRatePerMinute() != 30 {
		t.Fatalf("expected default export rate 30, got %d", cfg.GetExportRatePerMinute())
	}
	if cfg.GetCleanupSchedule() != "0 */15 * * * *" {
		t.Fatalf("unexpected default cleanup schedule %q", cfg.GetCleanupSchedule())
	}
	if !reflect.DeepEqual(cfg.GetAllowedOrigins(), defaultAllowedOrigins) {
		t.Fatalf("unexpected default origins %v", cfg.GetAllowedOrigins())
	}
	if cfg.GetExportBucket() != "" {
		t.Fatalf("expected no export bucket by default, got %s", cfg.GetExportBucket())
	}
}

func TestNewConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DB_DRIVER", "PGX")
	t.Setenv("DB_DSN", "postgres://localhost/drafts")
	t.Setenv("DB_MAX_CONNS", "4")
	t.Setenv("AUTO_MIGRATE", "false")
	t.Setenv("VERSION_GUARD", "redis")
	t.Setenv("EXPORT_RATE_PER_MINUTE", "5")
	t.Setenv("ALLOWED_ORIGINS", " https://a.example , ,https://b.example")

	cfg := NewConfig()

	if cfg.GetServerPort() != "9090" {
		t.Fatalf("expected server port 9090, got %s", cfg.GetServerPort())
	}
	if cfg.GetDBDriver() != "pgx" {
		t.Fatalf("expected driver pgx, got %s", cfg.GetDBDriver())
	}
	if cfg.GetDBMaxConns() != 4 {
		t.Fatalf("expected max conns 4, got %d", cfg.GetDBMaxConns())
	}
	if cfg.GetAutoMigrate() {
		t.Fatal("expected auto migrate off")
	}
	if cfg.GetVersionGuard() != GuardRedis {
		t.Fatalf("expected version guard redis, got %s", cfg.GetVersionGuard())
	}
	if cfg.GetExportRatePerMinute() != 5 {
		t.Fatalf("expected export rate 5, got %d", cfg.GetExportRatePerMinute())
	}
	want := []string{"https://a.example", "https://b.example"}
	if !reflect.DeepEqual(cfg.GetAllowedOrigins(), want) {
		t.Fatalf("expected origins %v, got %v", want, cfg.GetAllowedOrigins())
	}
}

func TestNewConfig_ServerPortFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "7070")

	if got := NewConfig().GetServerPort(); got != "7070" {
		t.Fatalf("expected SERVER_PORT fallback 7070, got %s", got)
	}
}

func TestNewConfig_InvalidNumbersUseDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("DB_MAX_CONNS", "many")
	t.Setenv("AUTO_MIGRATE", "maybe")

	cfg := NewConfig()
	if cfg.GetDBMaxConns() != 10 {
		t.Fatalf("expected fallback max conns 10, got %d", cfg.GetDBMaxConns())
	}
	if !cfg.GetAutoMigrate() {
		t.Fatal("expected fallback auto migrate true")
	}
}
