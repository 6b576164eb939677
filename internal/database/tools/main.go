// Command tools writes internal/database/schema.sql from the embedded
// migrations. Run it from the repository root.
package main

import (
	"fmt"
	"os"
	"path/filepath"

	"garagem/internal/database"
	"garagem/internal/database/migrations"
)

func main() {
	db, err := database.OpenConnection(":memory:")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	if err := migrations.MigrateUp(db); err != nil {
		fmt.Fprintf(os.Stderr, "Migration failed: %v\n", err)
		os.Exit(1)
	}

	schema, err := database.DumpSchema(db)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to dump schema: %v\n", err)
		os.Exit(1)
	}

	outPath := filepath.Join("internal", "database", "schema.sql")
	if err := os.WriteFile(outPath, []byte(schema), 0644); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to write schema file: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Generated %s\n", outPath)
}
