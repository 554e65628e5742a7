package config

import (
	"context"
	"errors"
	"fmt"

	"vehicle-data-tools/internal/domain"
	"vehicle-data-tools/internal/infra/supabase"
	"vehicle-data-tools/internal/repository"
	"vehicle-data-tools/internal/service"
	"vehicle-data-tools/pkg/logger"
)

// Executor kinds accepted by Container.Executor.
const (
	ExecutorAuto       = ""
	ExecutorManagement = "management"
	ExecutorPostgres   = "postgres"
)

// Container holds all application dependencies
type Container struct {
	Config           domain.Config
	Logger           domain.Logger
	SupabaseClient   *supabase.SupabaseClient
	ManagementClient *supabase.ManagementClient
	Loader           *service.MigrationLoader

	executor domain.MigrationExecutor
	ledger   domain.RunLedger
}

// NewContainer loads configuration and builds the shared clients. Executors
// and the ledger are opened on first use so scripts that do not need them
// work without their settings.
func NewContainer() (*Container, error) {
	cfg, err := LoadConfig()
	if err != nil {
		return nil, err
	}
	return NewContainerWithConfig(cfg, logger.NewLogger(cfg.GetLogLevel())), nil
}

// NewContainerWithConfig builds a container from explicit dependencies
func NewContainerWithConfig(cfg domain.Config, appLogger domain.Logger) *Container {
	return &Container{
		Config:           cfg,
		Logger:           appLogger,
		SupabaseClient:   supabase.NewSupabaseClient(cfg, appLogger),
		ManagementClient: supabase.NewManagementClient(cfg, appLogger),
		Loader:           service.NewMigrationLoader(appLogger),
	}
}

// GetConfig returns the configuration instance
func (c *Container) GetConfig() domain.Config {
	return c.Config
}

// GetLogger returns the logger instance
func (c *Container) GetLogger() domain.Logger {
	return c.Logger
}

// SDKConfigured reports whether SUPABASE_URL and a key are set.
func (c *Container) SDKConfigured() bool {
	return c.Config.GetSupabaseURL() != "" && c.Config.GetSupabaseKey() != ""
}

// Executor returns the migration executor of the given kind. With
// ExecutorAuto the direct connection is used when DATABASE_URL is set.
func (c *Container) Executor(ctx context.Context, kind string) (domain.MigrationExecutor, error) {
	if c.executor != nil {
		return c.executor, nil
	}

	if kind == ExecutorAuto {
		kind = ExecutorManagement
		if c.Config.GetDatabaseURL() != "" {
			kind = ExecutorPostgres
		}
	}

	switch kind {
	case ExecutorPostgres:
		if c.Config.GetDatabaseURL() == "" {
			return nil, fmt.Errorf("postgres executor requires DATABASE_URL: %w", domain.ErrNotConfigured)
		}
		exec, err := repository.NewPostgresExecutor(ctx, c.Config.GetDatabaseURL(), c.Logger)
		if err != nil {
			return nil, err
		}
		c.executor = exec
	case ExecutorManagement:
		if !c.ManagementClient.Configured() {
			return nil, fmt.Errorf("management executor requires SUPABASE_ACCESS_TOKEN and SUPABASE_PROJECT_REF: %w", domain.ErrNotConfigured)
		}
		c.executor = repository.NewManagementExecutor(c.ManagementClient, c.Logger)
	default:
		return nil, fmt.Errorf("unknown executor %q", kind)
	}

	c.Logger.Debug("Migration executor selected", "executor", c.executor.Name())
	return c.executor, nil
}

// Ledger opens the local run ledger
func (c *Container) Ledger() (domain.RunLedger, error) {
	if c.ledger != nil {
		return c.ledger, nil
	}
	ledger, err := repository.OpenLedger(c.Config.GetLedgerPath())
	if err != nil {
		return nil, err
	}
	c.ledger = ledger
	return c.ledger, nil
}

// MigrationService wires the apply flow
func (c *Container) MigrationService(ctx context.Context, executorKind string) (*service.MigrationService, error) {
	exec, err := c.Executor(ctx, executorKind)
	if err != nil {
		return nil, err
	}
	ledger, err := c.Ledger()
	if err != nil {
		return nil, err
	}
	return service.NewMigrationService(c.Loader, exec, ledger, c.prober(), c.Logger), nil
}

// VerificationService wires the verify flow
func (c *Container) VerificationService(ctx context.Context, executorKind string) (*service.VerificationService, error) {
	exec, err := c.Executor(ctx, executorKind)
	if err != nil {
		return nil, err
	}
	ledger, err := c.Ledger()
	if err != nil {
		c.Logger.Warn("Run ledger unavailable, skipping checksum drift checks", "error", err)
		ledger = nil
	}

	var buckets domain.BucketLister
	if c.SDKConfigured() {
		buckets = c.SupabaseClient
	}
	return service.NewVerificationService(
		c.Loader,
		repository.NewSchemaInspector(exec),
		buckets,
		c.prober(),
		ledger,
		c.Logger,
	), nil
}

// ImportService wires the vehicle import
func (c *Container) ImportService() (*service.ImportService, error) {
	if err := c.SupabaseClient.Initialize(); err != nil {
		return nil, err
	}
	repo := repository.NewSupabaseVehicleRepository(c.SupabaseClient, c.Logger)
	return service.NewImportService(repo, c.Logger), nil
}

// CSVCleaner returns the vehicle CSV cleaner
func (c *Container) CSVCleaner() domain.CSVCleaner {
	return service.NewCSVCleaner(c.Logger)
}

// StorageService returns the storage uploader
func (c *Container) StorageService() (domain.StorageService, error) {
	if !c.SDKConfigured() {
		return nil, fmt.Errorf("storage upload requires SUPABASE_URL and a key: %w", domain.ErrNotConfigured)
	}
	return supabase.NewStorageService(c.Config.GetSupabaseURL(), c.Config.GetSupabaseKey()), nil
}

// AuthService returns the token validator used by the server
func (c *Container) AuthService() domain.AuthService {
	return service.NewAuthService(c.SupabaseClient, c.Logger)
}

func (c *Container) prober() domain.TableProber {
	if !c.SDKConfigured() {
		return nil
	}
	return c.SupabaseClient
}

// Close releases the executor and the ledger
func (c *Container) Close() error {
	var errs []error
	if c.executor != nil {
		errs = append(errs, c.executor.Close())
		c.executor = nil
	}
	if c.ledger != nil {
		errs = append(errs, c.ledger.Close())
		c.ledger = nil
	}
	if s, ok := c.Logger.(interface{ Sync() error }); ok {
		_ = s.Sync()
	}
	return errors.Join(errs...)
}
