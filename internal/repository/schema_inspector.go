package repository

import (
	"context"

	"vehicle-data-tools/internal/domain"
)

const (
	tablesSQL = `SELECT table_schema, table_name FROM information_schema.tables
WHERE table_schema NOT IN ('pg_catalog', 'information_schema')`

	rlsSQL = `SELECT schemaname, tablename, rowsecurity FROM pg_catalog.pg_tables
WHERE schemaname NOT IN ('pg_catalog', 'information_schema')`

	policiesSQL = `SELECT schemaname, tablename, policyname FROM pg_catalog.pg_policies`
)

// SchemaInspector reads catalog state through a migration executor.
type SchemaInspector struct {
	executor domain.MigrationExecutor
}

func NewSchemaInspector(executor domain.MigrationExecutor) *SchemaInspector {
	return &SchemaInspector{executor: executor}
}

// Tables returns every user-visible table.
func (i *SchemaInspector) Tables(ctx context.Context) (map[domain.TableRef]bool, error) {
	rows, err := i.executor.Query(ctx, tablesSQL)
	if err != nil {
		return nil, err
	}
	tables := make(map[domain.TableRef]bool, len(rows))
	for _, row := range rows {
		tables[domain.TableRef{Schema: getString(row, "table_schema"), Name: getString(row, "table_name")}] = true
	}
	return tables, nil
}

// RLSEnabled maps each table to whether row level security is on.
func (i *SchemaInspector) RLSEnabled(ctx context.Context) (map[domain.TableRef]bool, error) {
	rows, err := i.executor.Query(ctx, rlsSQL)
	if err != nil {
		return nil, err
	}
	enabled := make(map[domain.TableRef]bool, len(rows))
	for _, row := range rows {
		enabled[domain.TableRef{Schema: getString(row, "schemaname"), Name: getString(row, "tablename")}] = getBool(row, "rowsecurity")
	}
	return enabled, nil
}

// Policies returns every row level security policy.
func (i *SchemaInspector) Policies(ctx context.Context) (map[domain.PolicyRef]bool, error) {
	rows, err := i.executor.Query(ctx, policiesSQL)
	if err != nil {
		return nil, err
	}
	policies := make(map[domain.PolicyRef]bool, len(rows))
	for _, row := range rows {
		policies[domain.PolicyRef{
			Table: domain.TableRef{Schema: getString(row, "schemaname"), Name: getString(row, "tablename")},
			Name:  getString(row, "policyname"),
		}] = true
	}
	return policies, nil
}

// AppliedVersions returns the versions in the remote history table.
func (i *SchemaInspector) AppliedVersions(ctx context.Context) (map[string]bool, error) {
	return i.executor.AppliedVersions(ctx)
}

var _ domain.SchemaInspector = (*SchemaInspector)(nil)
