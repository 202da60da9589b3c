package catalog

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
)

//go:embed schema.sql
var schemaSQL string

// catalogSchemaVersion is stored in the SQLite user_version header. Bump it
// with every schema.sql change; catalogs from another version have to go
// through export and import.
const catalogSchemaVersion = 1

// ErrSchemaMismatch is returned by Open for a catalog written by a different
// schema version, or for a database file that is not a catalog at all.
var ErrSchemaMismatch = errors.New("catalog schema version mismatch")

func (s *Store) initSchema(ctx context.Context) error {
	var version int
	if err := s.db.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return storeErr("open", fmt.Errorf("read user_version: %w", err))
	}
	if version == catalogSchemaVersion {
		return nil
	}
	if version == 0 {
		var tables int
		if err := s.db.QueryRowContext(ctx,
			"SELECT COUNT(1) FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%'",
		).Scan(&tables); err != nil {
			return storeErr("open", fmt.Errorf("inspect tables: %w", err))
		}
		if tables == 0 {
			return s.createSchema(ctx)
		}
	}
	return fmt.Errorf("%w: %s has version %d, this build reads %d; export the catalog with the build that wrote it, remove the file and import",
		ErrSchemaMismatch, s.path, version, catalogSchemaVersion)
}

func (s *Store) createSchema(ctx context.Context) error {
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
			return fmt.Errorf("create tables: %w", err)
		}
		// PRAGMA does not take bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", catalogSchemaVersion)); err != nil {
			return fmt.Errorf("stamp user_version: %w", err)
		}
		return nil
	})
	if err != nil {
		return storeErr("create schema", err)
	}
	return nil
}
