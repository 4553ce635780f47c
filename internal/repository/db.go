package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"pdf-form-drafts/internal/domain"
)

// OpenDB opens and pings a database for the given dialect.
func OpenDB(ctx context.Context, d Dialect, dsn string, maxConns int) (*sql.DB, error) {
	if d.Name == MySQLDialect.Name {
		var err error
		if dsn, err = normalizeMySQLDSN(dsn); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open(d.DriverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if maxConns <= 0 {
		maxConns = 10
	}
	if d.Name == SQLiteDialect.Name {
		// Single writer; avoids SQLITE_BUSY between pooled connections.
		maxConns = 1
	}
	idle := maxConns / 2
	if idle < 1 {
		idle = 1
	}
	db.SetMaxOpenConns(maxConns)
	db.SetMaxIdleConns(idle)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}
	return db, nil
}

// normalizeMySQLDSN makes DATETIME columns scan into time.Time in UTC.
func normalizeMySQLDSN(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	return cfg.FormatDSN(), nil
}

// EnsureSchema creates the template and draft tables when missing.
func EnsureSchema(ctx context.Context, db *sql.DB, d Dialect, logger domain.Logger) error {
	for _, stmt := range d.Schema() {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema (%s): %w", d.Name, err)
		}
	}
	logger.Info("Database schema ready", "dialect", d.Name)
	return nil
}
