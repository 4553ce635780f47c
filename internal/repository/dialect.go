package repository

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Dialect captures the per-database differences the SQL repositories care
// about: placeholder syntax, DDL, and how a unique violation is reported.
type Dialect struct {
	Name       string
	DriverName string
	numbered   bool
	schema     []string
	isUnique   func(error) bool
}

// Placeholder returns the bind marker for the n-th (1-based) argument.
func (d Dialect) Placeholder(n int) string {
	if d.numbered {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

// Rebind rewrites a query written with ? markers into the dialect's syntax.
func (d Dialect) Rebind(q string) string {
	if !d.numbered {
		return q
	}
	var b strings.Builder
	n := 0
	for _, r := range q {
		if r == '?' {
			n++
			b.WriteString(d.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// IsUniqueViolation reports whether err is the database's duplicate-key error.
func (d Dialect) IsUniqueViolation(err error) bool {
	if err == nil || d.isUnique == nil {
		return false
	}
	return d.isUnique(err)
}

func (d Dialect) Schema() []string { return d.schema }

const postgresSchema = `
CREATE TABLE IF NOT EXISTS pdf_templates (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	stored_path TEXT NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
)`

const postgresDraftSchema = `
CREATE TABLE IF NOT EXISTS pdf_drafts (
	id                 TEXT PRIMARY KEY,
	template_id        TEXT NOT NULL REFERENCES pdf_templates(id),
	user_id            TEXT NOT NULL,
	version            INTEGER NOT NULL,
	form_data_json     TEXT NOT NULL,
	annotations_json   TEXT NULL,
	drawing_image_path TEXT NULL,
	status             TEXT NOT NULL,
	created_at         TIMESTAMPTZ NOT NULL,
	updated_at         TIMESTAMPTZ NOT NULL,
	CONSTRAINT pdf_drafts_user_template_version_key UNIQUE (user_id, template_id, version)
)`

const sqliteTemplateSchema = `
CREATE TABLE IF NOT EXISTS pdf_templates (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL,
	stored_path TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
)`

const sqliteDraftSchema = `
CREATE TABLE IF NOT EXISTS pdf_drafts (
	id                 TEXT PRIMARY KEY,
	template_id        TEXT NOT NULL REFERENCES pdf_templates(id),
	user_id            TEXT NOT NULL,
	version            INTEGER NOT NULL,
	form_data_json     TEXT NOT NULL,
	annotations_json   TEXT NULL,
	drawing_image_path TEXT NULL,
	status             TEXT NOT NULL,
	created_at         DATETIME NOT NULL,
	updated_at         DATETIME NOT NULL,
	UNIQUE (user_id, template_id, version)
)`

const mysqlTemplateSchema = `
CREATE TABLE IF NOT EXISTS pdf_templates (
	id          VARCHAR(64) PRIMARY KEY,
	name        VARCHAR(255) NOT NULL,
	stored_path VARCHAR(1024) NOT NULL,
	created_at  DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6)
)`

const mysqlDraftSchema = `
CREATE TABLE IF NOT EXISTS pdf_drafts (
	id                 VARCHAR(64) PRIMARY KEY,
	template_id        VARCHAR(64) NOT NULL,
	user_id            VARCHAR(128) NOT NULL,
	version            INT NOT NULL,
	form_data_json     LONGTEXT NOT NULL,
	annotations_json   LONGTEXT NULL,
	drawing_image_path VARCHAR(1024) NULL,
	status             VARCHAR(32) NOT NULL,
	created_at         DATETIME(6) NOT NULL,
	updated_at         DATETIME(6) NOT NULL,
	UNIQUE KEY pdf_drafts_user_template_version_key (user_id, template_id, version),
	FOREIGN KEY (template_id) REFERENCES pdf_templates(id)
)`

const draftListIndex = `CREATE INDEX IF NOT EXISTS pdf_drafts_user_template_idx ON pdf_drafts (user_id, template_id)`

func isPQUnique(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && pqErr.Code == "23505"
}

func isPgxUnique(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func isMySQLUnique(err error) bool {
	var myErr *mysql.MySQLError
	return errors.As(err, &myErr) && myErr.Number == 1062
}

func isSQLiteUnique(err error) bool {
	var sqErr *sqlite.Error
	if !errors.As(err, &sqErr) {
		return false
	}
	return sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE || sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY
}

var (
	PostgresDialect = Dialect{
		Name: "postgres", DriverName: "postgres", numbered: true,
		schema:   []string{postgresSchema, postgresDraftSchema, draftListIndex},
		isUnique: isPQUnique,
	}
	PgxDialect = Dialect{
		Name: "pgx", DriverName: "pgx", numbered: true,
		schema:   []string{postgresSchema, postgresDraftSchema, draftListIndex},
		isUnique: isPgxUnique,
	}
	SQLiteDialect = Dialect{
		Name: "sqlite", DriverName: "sqlite",
		schema:   []string{sqliteTemplateSchema, sqliteDraftSchema, draftListIndex},
		isUnique: isSQLiteUnique,
	}
	// MySQL has no CREATE INDEX IF NOT EXISTS; the unique key already covers
	// the (user_id, template_id) prefix used by list queries.
	MySQLDialect = Dialect{
		Name: "mysql", DriverName: "mysql",
		schema:   []string{mysqlTemplateSchema, mysqlDraftSchema},
		isUnique: isMySQLUnique,
	}
)

// DialectFor maps a DB_DRIVER value onto its dialect.
func DialectFor(driver string) (Dialect, error) {
	switch strings.ToLower(driver) {
	case "postgres", "postgresql", "pq":
		return PostgresDialect, nil
	case "pgx":
		return PgxDialect, nil
	case "sqlite", "sqlite3":
		return SQLiteDialect, nil
	case "mysql":
		return MySQLDialect, nil
	}
	return Dialect{}, fmt.Errorf("unsupported sql driver %q", driver)
}
