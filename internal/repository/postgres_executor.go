package repository

import (
	"context"
	"fmt"

	"vehicle-data-tools/internal/domain"
	apperrors "vehicle-data-tools/pkg/errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresExecutor applies migrations over a direct database connection,
// one transaction per migration.
type PostgresExecutor struct {
	pool   *pgxpool.Pool
	logger domain.Logger
}

// NewPostgresExecutor connects to databaseURL.
func NewPostgresExecutor(ctx context.Context, databaseURL string, logger domain.Logger) (*PostgresExecutor, error) {
	if databaseURL == "" {
		return nil, apperrors.NewValidationError("DATABASE_URL is required for the postgres executor")
	}
	cfg, err := pgxpool.ParseConfig(databaseURL)
	if err != nil {
		return nil, apperrors.NewValidationError("invalid DATABASE_URL", err.Error())
	}
	cfg.MaxConns = 4

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, apperrors.NewNetworkError("failed to connect to database", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, apperrors.NewNetworkError("failed to ping database", err)
	}
	return &PostgresExecutor{pool: pool, logger: logger}, nil
}

func (e *PostgresExecutor) Name() string {
	return "postgres"
}

func (e *PostgresExecutor) EnsureHistory(ctx context.Context) error {
	if _, err := e.pool.Exec(ctx, ensureHistorySQL); err != nil {
		return apperrors.NewProcessingError("failed to create migration history table", err)
	}
	return nil
}

func (e *PostgresExecutor) AppliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := e.pool.Query(ctx, appliedVersionsSQL)
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to read migration history", err)
	}
	versions, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, apperrors.NewProcessingError("failed to read migration history", err)
	}

	applied := make(map[string]bool, len(versions))
	for _, v := range versions {
		applied[v] = true
	}
	return applied, nil
}

func (e *PostgresExecutor) Apply(ctx context.Context, m *domain.Migration) error {
	tx, err := e.pool.Begin(ctx)
	if err != nil {
		return apperrors.NewNetworkError("failed to begin transaction", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	for i, stmt := range m.Statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return apperrors.NewProcessingError(
				fmt.Sprintf("statement %d of %s failed", i+1, m.Version),
				err,
			)
		}
	}
	if _, err := tx.Exec(ctx, insertHistorySQL, m.Version, m.Name, m.Statements); err != nil {
		return apperrors.NewProcessingError("failed to record migration history", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return apperrors.NewProcessingError("failed to commit migration", err)
	}

	e.logger.Debug("Migration committed", "version", m.Version, "statements", len(m.Statements))
	return nil
}

func (e *PostgresExecutor) Query(ctx context.Context, sql string) ([]map[string]interface{}, error) {
	rows, err := e.pool.Query(ctx, sql)
	if err != nil {
		return nil, apperrors.NewProcessingError("query failed", err)
	}
	result, err := pgx.CollectRows(rows, pgx.RowToMap)
	if err != nil {
		return nil, apperrors.NewProcessingError("query failed", err)
	}
	return result, nil
}

func (e *PostgresExecutor) Close() error {
	e.pool.Close()
	return nil
}

var _ domain.MigrationExecutor = (*PostgresExecutor)(nil)
