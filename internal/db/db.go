package db

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"surfsup-server/internal/config"

	_ "github.com/mattn/go-sqlite3"
)

// RequiredTables are the tables the climate queries read from.
var RequiredTables = []string{"station", "measurement"}

// Open opens the dataset read-only. The database file must already exist;
// this service never creates or migrates it.
func Open(cfg config.Config, logger *slog.Logger) (*sql.DB, error) {
	dsn, err := buildDSN(cfg)
	if err != nil {
		return nil, err
	}

	var db *sql.DB
	if cfg.SQLiteLogStatements {
		connector, err := NewLoggingConnector(dsn, logger)
		if err != nil {
			return nil, fmt.Errorf("db connector: %w", err)
		}
		db = sql.OpenDB(connector)
	} else {
		db, err = sql.Open(cfg.SQLiteDriver, dsn)
		if err != nil {
			return nil, fmt.Errorf("db open: %w", err)
		}
	}

	if cfg.SQLiteMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.SQLiteMaxOpenConns)
	}
	if cfg.SQLiteMaxIdleConns >= 0 {
		db.SetMaxIdleConns(cfg.SQLiteMaxIdleConns)
	}
	if cfg.SQLiteConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.SQLiteConnMaxLifetime)
	}

	// Validate connectivity early
	if err := db.Ping(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("db ping: %w", err)
	}

	return db, nil
}

func Close(db *sql.DB) error {
	if db == nil {
		return nil
	}
	return db.Close()
}

// VerifySchema fails when any of RequiredTables is missing.
func VerifySchema(ctx context.Context, db *sql.DB) error {
	for _, table := range RequiredTables {
		var name string
		err := db.QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type IN ('table', 'view') AND name = ?`, table,
		).Scan(&name)
		if err == sql.ErrNoRows {
			return fmt.Errorf("dataset is missing table %q", table)
		}
		if err != nil {
			return fmt.Errorf("lookup table %q: %w", table, err)
		}
	}
	return nil
}

func buildDSN(cfg config.Config) (string, error) {
	if cfg.SQLiteDSN != "" {
		return cfg.SQLiteDSN, nil
	}

	// mode=ro would otherwise surface a missing file as an opaque ping error.
	path := cfg.SQLitePath
	if !strings.HasPrefix(path, "file:") {
		if _, err := os.Stat(path); err != nil {
			return "", fmt.Errorf("dataset %s: %w", path, err)
		}
	}

	// - mode=ro / _query_only: the dataset is never written
	// - busy_timeout: tolerate an external tool holding a lock on the file
	params := []string{
		"mode=ro",
		"_query_only=true",
		"_busy_timeout=5000",
	}

	if strings.HasPrefix(path, "file:") {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		return path + sep + strings.Join(params, "&"), nil
	}

	return fmt.Sprintf("file:%s?%s", path, strings.Join(params, "&")), nil
}
