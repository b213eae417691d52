// Package db opens and migrates the embedded libsql database backing the
// durable state store and the decision audit log.
package db

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/tursodatabase/go-libsql"
)

// Connect opens (creating if necessary) an embedded libsql database at the
// given path and verifies basic connectivity.
func Connect(path string) (*sql.DB, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("could not create database directory %s: %w", dir, err)
	}

	if _, err := os.Stat(path); os.IsNotExist(err) {
		file, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("could not create db at path %s: %w", path, err)
		}
		file.Close()
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=1&_journal_mode=WAL&_synchronous=NORMAL&_temp_store=memory", path)

	conn, err := sql.Open("libsql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open libsql connection: %w", err)
	}

	var result int
	if err := conn.QueryRowContext(context.Background(), "SELECT 1").Scan(&result); err != nil {
		conn.Close()
		return nil, fmt.Errorf("connectivity check failed: %w", err)
	}

	return conn, nil
}
