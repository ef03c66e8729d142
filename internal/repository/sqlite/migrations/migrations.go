// Package migrations holds the SQLite schema, applied with goose.
package migrations

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"

	"github.com/pressly/goose/v3"
)

// FS contains the versioned *.sql migration files.
//
//go:embed *.sql
var FS embed.FS

// Up applies every pending migration and returns how many ran. goose
// records applied versions in goose_db_version, so repeated runs are no-ops.
// The caller keeps ownership of db.
func Up(ctx context.Context, db *sql.DB) (int, error) {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, FS)
	if err != nil {
		return 0, fmt.Errorf("create goose provider: %w", err)
	}

	results, err := provider.Up(ctx)
	if err != nil {
		return 0, fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		slog.InfoContext(ctx, "migration applied",
			"driver", "sqlite",
			"version", r.Source.Version,
			"file", r.Source.Path,
			"duration", r.Duration,
		)
	}
	return len(results), nil
}

// Version reports the highest applied schema version, or 0 before the
// first migration.
func Version(ctx context.Context, db *sql.DB) (int64, error) {
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, FS)
	if err != nil {
		return 0, fmt.Errorf("create goose provider: %w", err)
	}
	return provider.GetDBVersion(ctx)
}
