// Package postgres implements the account store on PostgreSQL through the
// pgx stdlib driver, with schema managed by goose.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/msomdec/stylist-users/internal/domain"
	"github.com/msomdec/stylist-users/internal/repository/postgres/migrations"
)

// DB wraps a PostgreSQL handle and implements domain.Database.
type DB struct {
	SqlDB    *sql.DB
	accounts *AccountRepository
}

// New opens a connection pool for the given DSN and verifies it with a ping
// bounded by connectTimeout.
func New(ctx context.Context, dsn string, connectTimeout time.Duration) (*DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(20)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)

	pingCtx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	out := &DB{SqlDB: db}
	out.accounts = NewAccountRepository(out)
	return out, nil
}

// gooseUp is replaced in tests.
var gooseUp = func(ctx context.Context, db *sql.DB, dir string, opts ...goose.OptionsFunc) error {
	return goose.UpContext(ctx, db, dir, opts...)
}

// Migrate applies the embedded goose migrations.
func (db *DB) Migrate(ctx context.Context) error {
	goose.SetBaseFS(migrations.Migrations)
	if err := goose.SetDialect("pgx"); err != nil {
		return fmt.Errorf("set goose dialect: %w", err)
	}
	if err := gooseUp(ctx, db.SqlDB, "."); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

func (db *DB) Ping(ctx context.Context) error {
	return db.SqlDB.PingContext(ctx)
}

func (db *DB) Close() error {
	return db.SqlDB.Close()
}

func (db *DB) Driver() string {
	return "postgres"
}

// Accounts returns the account store.
func (db *DB) Accounts() domain.AccountStore {
	return db.accounts
}
