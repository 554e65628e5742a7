package supabase

import "time"

type nopLogger struct{}

func (nopLogger) Info(msg string, fields ...interface{})             {}
func (nopLogger) Error(msg string, err error, fields ...interface{}) {}
func (nopLogger) Debug(msg string, fields ...interface{})            {}
func (nopLogger) Warn(msg string, fields ...interface{})             {}

type stubConfig struct {
	apiURL     string
	projectRef string
	token      string
	url        string
	key        string
}

func (c stubConfig) GetServerPort() string         { return "8080" }
func (c stubConfig) GetLogLevel() string           { return "info" }
func (c stubConfig) GetSupabaseURL() string        { return c.url }
func (c stubConfig) GetSupabaseKey() string        { return c.key }
func (c stubConfig) GetAccessToken() string        { return c.token }
func (c stubConfig) GetProjectRef() string         { return c.projectRef }
func (c stubConfig) GetManagementAPIURL() string   { return c.apiURL }
func (c stubConfig) GetDatabaseURL() string        { return "" }
func (c stubConfig) GetMigrationsDir() string      { return "" }
func (c stubConfig) GetLedgerPath() string         { return "" }
func (c stubConfig) GetCORSOrigins() []string      { return nil }
func (c stubConfig) GetHTTPTimeout() time.Duration { return 5 * time.Second }
