package config

import (
	"testing"
	"time"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"PORT", "SERVER_PORT", "LOG_LEVEL", "SUPABASE_URL", "SUPABASE_ANON_KEY",
		"SUPABASE_SERVICE_ROLE_KEY", "SUPABASE_ACCESS_TOKEN", "SUPABASE_PROJECT_REF",
		"SUPABASE_API_URL", "DATABASE_URL", "MIGRATIONS_DIR", "LEDGER_PATH",
		"CORS_ORIGINS", "HTTP_TIMEOUT",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfig_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.GetServerPort() != "8080" {
		t.Fatalf("expected default server port 8080, got %s", cfg.GetServerPort())
	}
	if cfg.GetLogLevel() != "info" {
		t.Fatalf("expected default log level info, got %s", cfg.GetLogLevel())
	}
	if cfg.GetSupabaseURL() != "" {
		t.Fatalf("expected default supabase url empty, got %s", cfg.GetSupabaseURL())
	}
	if cfg.GetManagementAPIURL() != "https://api.supabase.com" {
		t.Fatalf("expected default management api url, got %s", cfg.GetManagementAPIURL())
	}
	if cfg.GetMigrationsDir() != "supabase/migrations" {
		t.Fatalf("expected default migrations dir, got %s", cfg.GetMigrationsDir())
	}
	if cfg.GetLedgerPath() != "data/migrations.db" {
		t.Fatalf("expected default ledger path, got %s", cfg.GetLedgerPath())
	}
	if len(cfg.GetCORSOrigins()) != 2 {
		t.Fatalf("expected 2 default cors origins, got %v", cfg.GetCORSOrigins())
	}
	if cfg.GetHTTPTimeout() != 30*time.Second {
		t.Fatalf("expected default timeout 30s, got %s", cfg.GetHTTPTimeout())
	}
}

func TestLoadConfig_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("PORT", "9090")
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SUPABASE_URL", "https://abcdefgh.supabase.co/")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("SUPABASE_SERVICE_ROLE_KEY", "service")
	t.Setenv("SUPABASE_ACCESS_TOKEN", "sbp_token")
	t.Setenv("SUPABASE_API_URL", "http://localhost:9999/")
	t.Setenv("CORS_ORIGINS", "https://a.example,https://b.example,https://c.example")
	t.Setenv("HTTP_TIMEOUT", "5s")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	if cfg.GetServerPort() != "9090" {
		t.Fatalf("expected server port 9090, got %s", cfg.GetServerPort())
	}
	if cfg.GetLogLevel() != "debug" {
		t.Fatalf("expected log level debug, got %s", cfg.GetLogLevel())
	}
	if cfg.GetSupabaseURL() != "https://abcdefgh.supabase.co" {
		t.Fatalf("expected trailing slash trimmed, got %s", cfg.GetSupabaseURL())
	}
	if cfg.GetSupabaseKey() != "service" {
		t.Fatalf("expected service role key to win, got %s", cfg.GetSupabaseKey())
	}
	if cfg.GetProjectRef() != "abcdefgh" {
		t.Fatalf("expected project ref derived from url, got %s", cfg.GetProjectRef())
	}
	if cfg.GetManagementAPIURL() != "http://localhost:9999" {
		t.Fatalf("expected management api url override, got %s", cfg.GetManagementAPIURL())
	}
	if len(cfg.GetCORSOrigins()) != 3 {
		t.Fatalf("expected 3 cors origins, got %v", cfg.GetCORSOrigins())
	}
	if cfg.GetHTTPTimeout() != 5*time.Second {
		t.Fatalf("expected timeout 5s, got %s", cfg.GetHTTPTimeout())
	}
}

func TestLoadConfig_Fallbacks(t *testing.T) {
	clearEnv(t)
	t.Setenv("SERVER_PORT", "9091")
	t.Setenv("SUPABASE_ANON_KEY", "anon")
	t.Setenv("SUPABASE_URL", "http://localhost:54321")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if cfg.GetServerPort() != "9091" {
		t.Fatalf("expected server port 9091, got %s", cfg.GetServerPort())
	}
	if cfg.GetSupabaseKey() != "anon" {
		t.Fatalf("expected anon key without service role, got %s", cfg.GetSupabaseKey())
	}
	if cfg.GetProjectRef() != "" {
		t.Fatalf("expected no project ref for local url, got %s", cfg.GetProjectRef())
	}
}

func TestLoadConfig_InvalidDuration(t *testing.T) {
	clearEnv(t)
	t.Setenv("HTTP_TIMEOUT", "not-a-duration")

	if _, err := LoadConfig(); err == nil {
		t.Fatalf("expected error for invalid duration")
	}
}
