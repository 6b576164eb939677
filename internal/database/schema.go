package database

import (
	"database/sql"
	"fmt"
	"strings"

	"garagem/internal/database/migrations"
)

// DumpSchema returns the CREATE statements of every table and index in db,
// tables first, each followed by a blank line. SQLite internals and the
// migration bookkeeping table are left out.
func DumpSchema(db *sql.DB) (string, error) {
	st, err := migrations.ReadStatus(db)
	if err != nil {
		return "", err
	}

	rows, err := db.Query(`
		SELECT sql || ';'
		FROM sqlite_master
		WHERE type IN ('table', 'index')
		  AND sql IS NOT NULL
		  AND name NOT LIKE 'sqlite_%'
		  AND tbl_name != 'schema_migrations'
		ORDER BY CASE type WHEN 'table' THEN 1 ELSE 2 END, name
	`)
	if err != nil {
		return "", fmt.Errorf("listing schema objects: %w", err)
	}
	defer rows.Close()

	var b strings.Builder
	fmt.Fprintf(&b, "-- Generated from internal/database/migrations/files at version %d.\n", st.Current)
	b.WriteString("-- Do not edit; run `go generate ./internal/database`.\n\n")
	for rows.Next() {
		var stmt string
		if err := rows.Scan(&stmt); err != nil {
			return "", fmt.Errorf("scanning schema object: %w", err)
		}
		b.WriteString(stmt)
		b.WriteString("\n\n")
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("listing schema objects: %w", err)
	}
	return b.String(), nil
}
