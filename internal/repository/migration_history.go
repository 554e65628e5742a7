package repository

import (
	"fmt"
	"strings"

	"vehicle-data-tools/internal/domain"
)

// The history table matches the one the Supabase CLI maintains, so
// migrations applied here are visible to `supabase migration list`.
const (
	ensureHistorySQL = `CREATE SCHEMA IF NOT EXISTS supabase_migrations;
CREATE TABLE IF NOT EXISTS supabase_migrations.schema_migrations (
	version text NOT NULL PRIMARY KEY,
	statements text[],
	name text
);`

	appliedVersionsSQL = `SELECT version FROM supabase_migrations.schema_migrations ORDER BY version`

	insertHistorySQL = `INSERT INTO supabase_migrations.schema_migrations (version, name, statements) VALUES ($1, $2, $3)`
)

// quoteLiteral renders s as a standard-conforming SQL string literal.
func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

// historyInsertLiteral renders the history row for m without bind
// parameters, for transports that only accept SQL text.
func historyInsertLiteral(m *domain.Migration) string {
	array := "'{}'::text[]"
	if len(m.Statements) > 0 {
		quoted := make([]string, len(m.Statements))
		for i, s := range m.Statements {
			quoted[i] = quoteLiteral(s)
		}
		array = "ARRAY[" + strings.Join(quoted, ", ") + "]::text[]"
	}
	return fmt.Sprintf(
		"INSERT INTO supabase_migrations.schema_migrations (version, name, statements) VALUES (%s, %s, %s);",
		quoteLiteral(m.Version), quoteLiteral(m.Name), array,
	)
}

func versionsFromRows(rows []map[string]interface{}) map[string]bool {
	versions := make(map[string]bool, len(rows))
	for _, row := range rows {
		if v := getString(row, "version"); v != "" {
			versions[v] = true
		}
	}
	return versions
}

// Helper functions for type conversion
func getString(data map[string]interface{}, key string) string {
	if val, ok := data[key]; ok && val != nil {
		switch v := val.(type) {
		case string:
			return v
		case []byte:
			return string(v)
		default:
			return fmt.Sprint(v)
		}
	}
	return ""
}

func getBool(data map[string]interface{}, key string) bool {
	if val, ok := data[key]; ok && val != nil {
		switch v := val.(type) {
		case bool:
			return v
		case string:
			return v == "t" || v == "true"
		}
	}
	return false
}
