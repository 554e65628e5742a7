package repository

import (
	"context"
	"strings"

	"vehicle-data-tools/internal/domain"
)

// QueryRunner executes SQL text remotely and returns result rows.
type QueryRunner interface {
	RunQuery(ctx context.Context, query string) ([]map[string]interface{}, error)
}

// ManagementExecutor applies migrations through the Management API query
// endpoint. A migration and its history row travel as one multi-statement
// query, which Postgres runs in a single implicit transaction.
type ManagementExecutor struct {
	runner QueryRunner
	logger domain.Logger
}

func NewManagementExecutor(runner QueryRunner, logger domain.Logger) *ManagementExecutor {
	return &ManagementExecutor{runner: runner, logger: logger}
}

func (e *ManagementExecutor) Name() string {
	return "management-api"
}

func (e *ManagementExecutor) EnsureHistory(ctx context.Context) error {
	_, err := e.runner.RunQuery(ctx, ensureHistorySQL)
	return err
}

func (e *ManagementExecutor) AppliedVersions(ctx context.Context) (map[string]bool, error) {
	rows, err := e.runner.RunQuery(ctx, appliedVersionsSQL)
	if err != nil {
		return nil, err
	}
	return versionsFromRows(rows), nil
}

func (e *ManagementExecutor) Apply(ctx context.Context, m *domain.Migration) error {
	body := strings.TrimSpace(m.SQL)
	if body != "" && !strings.HasSuffix(body, ";") {
		body += ";"
	}
	query := body + "\n" + historyInsertLiteral(m)

	e.logger.Debug("Sending migration to management api", "version", m.Version, "bytes", len(query))
	_, err := e.runner.RunQuery(ctx, query)
	return err
}

func (e *ManagementExecutor) Query(ctx context.Context, sql string) ([]map[string]interface{}, error) {
	return e.runner.RunQuery(ctx, sql)
}

func (e *ManagementExecutor) Close() error {
	return nil
}

var _ domain.MigrationExecutor = (*ManagementExecutor)(nil)
