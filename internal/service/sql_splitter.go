package service

import (
	"fmt"
	"regexp"
	"strings"

	"vehicle-data-tools/internal/domain"
)

// SplitStatements splits SQL text into top-level statements on ';'.
// Quoted strings, quoted identifiers and dollar-quoted bodies are kept
// intact. Comments outside of them are dropped.
func SplitStatements(sql string) ([]string, error) {
	var (
		stmts []string
		b     strings.Builder
	)

	flush := func() {
		if s := strings.TrimSpace(b.String()); s != "" {
			stmts = append(stmts, s)
		}
		b.Reset()
	}

	n := len(sql)
	for i := 0; i < n; {
		c := sql[i]
		switch {
		case c == '-' && i+1 < n && sql[i+1] == '-':
			end := strings.IndexByte(sql[i:], '\n')
			if end < 0 {
				i = n
			} else {
				i += end
			}

		case c == '/' && i+1 < n && sql[i+1] == '*':
			end, err := skipBlockComment(sql, i)
			if err != nil {
				return nil, err
			}
			b.WriteByte(' ')
			i = end

		case c == '\'':
			backslash := i > 0 && (sql[i-1] == 'E' || sql[i-1] == 'e') && (i < 2 || !isIdentByte(sql[i-2]))
			end, err := skipQuoted(sql, i, '\'', backslash)
			if err != nil {
				return nil, err
			}
			b.WriteString(sql[i:end])
			i = end

		case c == '"':
			end, err := skipQuoted(sql, i, '"', false)
			if err != nil {
				return nil, err
			}
			b.WriteString(sql[i:end])
			i = end

		case c == '$':
			tag := dollarTag(sql, i)
			if tag == "" {
				b.WriteByte(c)
				i++
				continue
			}
			closeAt := strings.Index(sql[i+len(tag):], tag)
			if closeAt < 0 {
				return nil, fmt.Errorf("%w: dollar quote %s at offset %d", domain.ErrUnterminatedSQL, tag, i)
			}
			end := i + len(tag) + closeAt + len(tag)
			b.WriteString(sql[i:end])
			i = end

		case c == ';':
			flush()
			i++

		default:
			b.WriteByte(c)
			i++
		}
	}
	flush()

	return stmts, nil
}

// skipBlockComment returns the offset just past the comment starting at i.
// Postgres block comments nest.
func skipBlockComment(sql string, i int) (int, error) {
	depth := 0
	n := len(sql)
	for j := i; j < n; {
		switch {
		case sql[j] == '/' && j+1 < n && sql[j+1] == '*':
			depth++
			j += 2
		case sql[j] == '*' && j+1 < n && sql[j+1] == '/':
			depth--
			j += 2
			if depth == 0 {
				return j, nil
			}
		default:
			j++
		}
	}
	return 0, fmt.Errorf("%w: block comment at offset %d", domain.ErrUnterminatedSQL, i)
}

// skipQuoted returns the offset just past the quoted token starting at i.
// A doubled quote is an escaped quote.
func skipQuoted(sql string, i int, quote byte, backslash bool) (int, error) {
	n := len(sql)
	for j := i + 1; j < n; j++ {
		switch {
		case backslash && sql[j] == '\\':
			j++
		case sql[j] == quote:
			if j+1 < n && sql[j+1] == quote {
				j++
				continue
			}
			return j + 1, nil
		}
	}
	return 0, fmt.Errorf("%w: %c-quoted text at offset %d", domain.ErrUnterminatedSQL, quote, i)
}

// dollarTag returns the $tag$ opening at i, or "" when i does not start one.
func dollarTag(sql string, i int) string {
	if i > 0 && isIdentByte(sql[i-1]) {
		return ""
	}
	j := i + 1
	for j < len(sql) && sql[j] != '$' {
		c := sql[j]
		if !isIdentByte(c) || (j == i+1 && c >= '0' && c <= '9') {
			return ""
		}
		j++
	}
	if j >= len(sql) {
		return ""
	}
	return sql[i : j+1]
}

func isIdentByte(c byte) bool {
	return c == '_' || c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' || c >= '0' && c <= '9' || c >= 0x80
}

const (
	identPattern     = `(?:"(?:[^"]|"")+"|[A-Za-z_][A-Za-z0-9_$]*)`
	qualifiedPattern = identPattern + `(?:\s*\.\s*` + identPattern + `)?`
)

var (
	createTableRe = regexp.MustCompile(`(?is)^create\s+(?:unlogged\s+)?table\s+(?:if\s+not\s+exists\s+)?(` + qualifiedPattern + `)`)
	dropTableRe   = regexp.MustCompile(`(?is)^drop\s+table\s+(?:if\s+exists\s+)?(.+?)(?:\s+(?:cascade|restrict))?$`)
	enableRLSRe   = regexp.MustCompile(`(?is)^alter\s+table\s+(?:if\s+exists\s+)?(?:only\s+)?(` + qualifiedPattern + `)\s+enable\s+row\s+level\s+security`)
	disableRLSRe  = regexp.MustCompile(`(?is)^alter\s+table\s+(?:if\s+exists\s+)?(?:only\s+)?(` + qualifiedPattern + `)\s+disable\s+row\s+level\s+security`)
	createPolicy  = regexp.MustCompile(`(?is)^create\s+policy\s+(` + identPattern + `)\s+on\s+(` + qualifiedPattern + `)`)
	dropPolicyRe  = regexp.MustCompile(`(?is)^drop\s+policy\s+(?:if\s+exists\s+)?(` + identPattern + `)\s+on\s+(` + qualifiedPattern + `)`)
	insertBucket  = regexp.MustCompile(`(?is)^insert\s+into\s+storage\s*\.\s*buckets\s*\(([^)]*)\)\s*values\s*(.*)$`)
	deleteBucket  = regexp.MustCompile(`(?is)^delete\s+from\s+storage\s*\.\s*buckets\s+where\s+(?:id|name)\s*=\s*'((?:[^']|'')*)'`)
)

// ClassifyStatement reports the schema objects a statement creates and drops.
func ClassifyStatement(stmt string) (created, dropped domain.SchemaObjects) {
	stmt = strings.TrimSpace(stmt)

	if m := createTableRe.FindStringSubmatch(stmt); m != nil {
		created.Tables = append(created.Tables, parseTableRef(m[1]))
		return
	}
	if m := dropTableRe.FindStringSubmatch(stmt); m != nil {
		for _, name := range splitTopLevel(m[1]) {
			dropped.Tables = append(dropped.Tables, parseTableRef(name))
		}
		return
	}
	if m := enableRLSRe.FindStringSubmatch(stmt); m != nil {
		created.RLSTables = append(created.RLSTables, parseTableRef(m[1]))
		return
	}
	if m := disableRLSRe.FindStringSubmatch(stmt); m != nil {
		dropped.RLSTables = append(dropped.RLSTables, parseTableRef(m[1]))
		return
	}
	if m := createPolicy.FindStringSubmatch(stmt); m != nil {
		created.Policies = append(created.Policies, domain.PolicyRef{
			Name:  normalizeIdent(m[1]),
			Table: parseTableRef(m[2]),
		})
		return
	}
	if m := dropPolicyRe.FindStringSubmatch(stmt); m != nil {
		dropped.Policies = append(dropped.Policies, domain.PolicyRef{
			Name:  normalizeIdent(m[1]),
			Table: parseTableRef(m[2]),
		})
		return
	}
	if m := insertBucket.FindStringSubmatch(stmt); m != nil {
		created.Buckets = append(created.Buckets, bucketIDs(m[1], m[2])...)
		return
	}
	if m := deleteBucket.FindStringSubmatch(stmt); m != nil {
		dropped.Buckets = append(dropped.Buckets, strings.ReplaceAll(m[1], "''", "'"))
	}
	return
}

// DeclaredObjects folds the objects of migrations applied in order.
func DeclaredObjects(migrations []*domain.Migration) domain.SchemaObjects {
	var total domain.SchemaObjects
	for _, m := range migrations {
		total.Remove(m.Dropped)
		total.Merge(m.Objects)
	}
	return total
}

func classifyAll(stmts []string) (objects, dropped domain.SchemaObjects) {
	for _, stmt := range stmts {
		c, d := ClassifyStatement(stmt)
		objects.Remove(d)
		objects.Merge(c)
		dropped.Merge(d)
	}
	return objects, dropped
}

func parseTableRef(s string) domain.TableRef {
	parts := splitQualified(s)
	if len(parts) == 1 {
		return domain.TableRef{Schema: "public", Name: normalizeIdent(parts[0])}
	}
	return domain.TableRef{Schema: normalizeIdent(parts[0]), Name: normalizeIdent(parts[1])}
}

// splitQualified splits schema.name on the dot outside double quotes.
func splitQualified(s string) []string {
	inQuote := false
	for i := 0; i < len(s); i++ {
		switch s[i] {
		case '"':
			inQuote = !inQuote
		case '.':
			if !inQuote {
				return []string{strings.TrimSpace(s[:i]), strings.TrimSpace(s[i+1:])}
			}
		}
	}
	return []string{strings.TrimSpace(s)}
}

// normalizeIdent folds unquoted identifiers to lower case and unquotes
// quoted ones.
func normalizeIdent(s string) string {
	s = strings.TrimSpace(s)
	if len(s) >= 2 && s[0] == '"' && s[len(s)-1] == '"' {
		return strings.ReplaceAll(s[1:len(s)-1], `""`, `"`)
	}
	return strings.ToLower(s)
}

// bucketIDs extracts the id column of every VALUES tuple.
func bucketIDs(columns, values string) []string {
	cols := splitTopLevel(columns)
	idx := -1
	for i, c := range cols {
		if normalizeIdent(c) == "id" {
			idx = i
			break
		}
	}
	if idx < 0 {
		for i, c := range cols {
			if normalizeIdent(c) == "name" {
				idx = i
				break
			}
		}
	}
	if idx < 0 {
		return nil
	}

	var ids []string
	for _, tuple := range valueTuples(values) {
		fields := splitTopLevel(tuple)
		if idx >= len(fields) {
			continue
		}
		v := strings.TrimSpace(fields[idx])
		if len(v) >= 2 && v[0] == '\'' && v[len(v)-1] == '\'' {
			ids = append(ids, strings.ReplaceAll(v[1:len(v)-1], "''", "'"))
		}
	}
	return ids
}

// valueTuples returns the contents of each top-level parenthesized group.
func valueTuples(s string) []string {
	var (
		tuples  []string
		depth   int
		start   int
		inQuote bool
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\'':
			inQuote = !inQuote
		case inQuote:
		case c == '(':
			if depth == 0 {
				start = i + 1
			}
			depth++
		case c == ')':
			depth--
			if depth == 0 {
				tuples = append(tuples, s[start:i])
			}
		}
	}
	return tuples
}

// splitTopLevel splits on commas outside quotes and parentheses.
func splitTopLevel(s string) []string {
	var (
		parts  []string
		depth  int
		start  int
		single bool
		double bool
	)
	for i := 0; i < len(s); i++ {
		switch c := s[i]; {
		case c == '\'' && !double:
			single = !single
		case c == '"' && !single:
			double = !double
		case single || double:
		case c == '(':
			depth++
		case c == ')':
			depth--
		case c == ',' && depth == 0:
			parts = append(parts, strings.TrimSpace(s[start:i]))
			start = i + 1
		}
	}
	if last := strings.TrimSpace(s[start:]); last != "" {
		parts = append(parts, last)
	}
	return parts
}
