package database

import (
	"strings"
	"testing"
)

// The repositories write empty optional strings and absent timestamps as SQL
// NULL, so these columns must stay nullable or the very first insert of a
// fresh card (no subtopic, no archive reason, no provenance) fails.
func TestOptionalColumnsAreNullable(t *testing.T) {
	optional := map[string][]string{
		"cards": {
			"subtopic", "archive_reason", "created_from_attempt_id",
			"session_id", "last_reviewed_at", "archived_at",
		},
		"review_attempts": {"review_session_id"},
	}

	for table, columns := range optional {
		ddl := findTableDDL(t, table)
		for _, column := range columns {
			line := findColumnLine(t, ddl, column)
			if strings.Contains(line, "NOT NULL") {
				t.Errorf("%s.%s must be nullable, declared as %q", table, column, strings.TrimSpace(line))
			}
		}
	}
}

func TestEveryTableHasCreateStatement(t *testing.T) {
	for _, table := range []string{"cards", "review_attempts", "review_sessions", "mistake_index"} {
		findTableDDL(t, table)
	}
}

func findTableDDL(t *testing.T, table string) string {
	t.Helper()
	for _, stmt := range migrations {
		if strings.HasPrefix(stmt, "CREATE TABLE IF NOT EXISTS "+table+" ") {
			return stmt
		}
	}
	t.Fatalf("no CREATE TABLE statement for %s", table)
	return ""
}

func findColumnLine(t *testing.T, ddl, column string) string {
	t.Helper()
	for _, line := range strings.Split(ddl, "\n") {
		fields := strings.Fields(line)
		if len(fields) > 0 && fields[0] == column {
			return line
		}
	}
	t.Fatalf("column %s not declared", column)
	return ""
}
