package database

// schema.sql is a readable snapshot of the migrated schema. Regenerate it
// after adding a migration:
//   go generate ./internal/database

//go:generate sh -c "cd ../.. && go run ./internal/database/tools"
