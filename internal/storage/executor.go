package storage

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Executor is the narrow persistence surface the repository needs: DDL,
// parameterised writes and parameterised reads.
type Executor interface {
	Execute(ctx context.Context, ddl string) error
	Run(ctx context.Context, query string, args ...any) (RunResult, error)
	Query(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// RunResult reports the effect of a write.
type RunResult struct {
	LastInsertID int64
	RowsAffected int64
}

// DB is an Executor over a SQLite database file.
type DB struct {
	db *sql.DB
}

// Open creates the database directory if needed, applies the migrations and
// evolves the schema to the current column set.
func Open(ctx context.Context, dbPath string, logger *slog.Logger) (*DB, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// One writer at a time; SQLite would otherwise answer SQLITE_BUSY.
	db.SetMaxOpenConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	d := &DB{db: db}
	if err := EvolveSchema(ctx, d, logger); err != nil {
		db.Close()
		return nil, err
	}

	logger.InfoContext(ctx, "SQLite database ready", "db_path", dbPath)
	return d, nil
}

func (d *DB) Execute(ctx context.Context, ddl string) error {
	_, err := d.db.ExecContext(ctx, ddl)
	return err
}

func (d *DB) Run(ctx context.Context, query string, args ...any) (RunResult, error) {
	res, err := d.db.ExecContext(ctx, query, args...)
	if err != nil {
		return RunResult{}, err
	}
	var out RunResult
	out.LastInsertID, _ = res.LastInsertId()
	out.RowsAffected, _ = res.RowsAffected()
	return out, nil
}

func (d *DB) Query(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	return d.db.QueryContext(ctx, query, args...)
}

func (d *DB) Close() error {
	if d.db != nil {
		return d.db.Close()
	}
	return nil
}
