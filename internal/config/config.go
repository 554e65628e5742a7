package config

import (
	"fmt"
	"strings"
	"time"

	"vehicle-data-tools/internal/domain"

	"github.com/caarlos0/env/v11"
)

// AppConfig implements the domain.Config interface
type AppConfig struct {
	// Cloud Run (and many PaaS) provide the listening port via PORT.
	// Keep SERVER_PORT for local/dev compatibility.
	Port       string `env:"PORT"`
	ServerPort string `env:"SERVER_PORT" envDefault:"8080"`
	LogLevel   string `env:"LOG_LEVEL" envDefault:"info"`

	SupabaseURL    string `env:"SUPABASE_URL"`
	SupabaseKey    string `env:"SUPABASE_ANON_KEY"`
	ServiceRoleKey string `env:"SUPABASE_SERVICE_ROLE_KEY"`

	// Management API access
	AccessToken      string `env:"SUPABASE_ACCESS_TOKEN"`
	ProjectRef       string `env:"SUPABASE_PROJECT_REF"`
	ManagementAPIURL string `env:"SUPABASE_API_URL" envDefault:"https://api.supabase.com"`

	DatabaseURL   string        `env:"DATABASE_URL"`
	MigrationsDir string        `env:"MIGRATIONS_DIR" envDefault:"supabase/migrations"`
	LedgerPath    string        `env:"LEDGER_PATH" envDefault:"data/migrations.db"`
	CORSOrigins   []string      `env:"CORS_ORIGINS" envSeparator:"," envDefault:"http://localhost:5173,http://localhost:3000"`
	HTTPTimeout   time.Duration `env:"HTTP_TIMEOUT" envDefault:"30s"`
}

// LoadConfig reads configuration from the environment
func LoadConfig() (*AppConfig, error) {
	var cfg AppConfig
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	if cfg.Port != "" {
		cfg.ServerPort = cfg.Port
	}
	cfg.ManagementAPIURL = strings.TrimRight(cfg.ManagementAPIURL, "/")
	cfg.SupabaseURL = strings.TrimRight(cfg.SupabaseURL, "/")
	if cfg.ProjectRef == "" {
		cfg.ProjectRef = projectRefFromURL(cfg.SupabaseURL)
	}
	return &cfg, nil
}

// projectRefFromURL derives the project ref from https://<ref>.supabase.co
func projectRefFromURL(u string) string {
	host := strings.TrimPrefix(strings.TrimPrefix(u, "https://"), "http://")
	if i := strings.IndexAny(host, "/:"); i >= 0 {
		host = host[:i]
	}
	ref, rest, ok := strings.Cut(host, ".")
	if !ok || rest != "supabase.co" {
		return ""
	}
	return ref
}

// GetServerPort returns the server port
func (c *AppConfig) GetServerPort() string {
	return c.ServerPort
}

// GetLogLevel returns the logging level
func (c *AppConfig) GetLogLevel() string {
	return c.LogLevel
}

// GetSupabaseURL returns the Supabase URL
func (c *AppConfig) GetSupabaseURL() string {
	return c.SupabaseURL
}

// GetSupabaseKey returns the key used by the SDK client. The service role
// key wins over the anon key so scripts can bypass RLS.
func (c *AppConfig) GetSupabaseKey() string {
	if c.ServiceRoleKey != "" {
		return c.ServiceRoleKey
	}
	return c.SupabaseKey
}

// GetAccessToken returns the Management API personal access token
func (c *AppConfig) GetAccessToken() string {
	return c.AccessToken
}

// GetProjectRef returns the Supabase project ref
func (c *AppConfig) GetProjectRef() string {
	return c.ProjectRef
}

// GetManagementAPIURL returns the Management API base URL
func (c *AppConfig) GetManagementAPIURL() string {
	return c.ManagementAPIURL
}

// GetDatabaseURL returns the direct Postgres connection string
func (c *AppConfig) GetDatabaseURL() string {
	return c.DatabaseURL
}

// GetMigrationsDir returns the migrations directory
func (c *AppConfig) GetMigrationsDir() string {
	return c.MigrationsDir
}

// GetLedgerPath returns the local run ledger path
func (c *AppConfig) GetLedgerPath() string {
	return c.LedgerPath
}

// GetCORSOrigins returns the allowed CORS origins
func (c *AppConfig) GetCORSOrigins() []string {
	return c.CORSOrigins
}

// GetHTTPTimeout returns the timeout for outbound HTTP calls
func (c *AppConfig) GetHTTPTimeout() time.Duration {
	return c.HTTPTimeout
}

var _ domain.Config = (*AppConfig)(nil)
