// Package migration applies versioned SQL schema files to a database/sql
// connection.
//
// Migration files live in an fs.FS (usually an embed.FS owned by the storage
// backend) and follow the naming convention {version}_{description}.sql, for
// example "001_initial_schema.sql". Applied versions are tracked in a
// schema_migrations table and each file runs inside its own transaction.
//
// Statements are split on a trailing semicolon at the end of a line. Bodies of
// CREATE TRIGGER statements run until a line ending in "END;".
//
// Example usage:
//
//	scanner := migration.NewFileScanner(schemaFS)
//	executor := migration.NewExecutor(db, migration.DialectSQLite)
//	manager := migration.NewMigrationManager(scanner, executor, "schema", logger)
//	if err := manager.RunMigrations(ctx); err != nil {
//		return err
//	}
package migration
