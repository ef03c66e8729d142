package migrations_test

import (
	"context"
	"database/sql"
	"testing"

	_ "modernc.org/sqlite"

	"github.com/msomdec/stylist-users/internal/repository/sqlite/migrations"
)

func openMemory(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	// Every pooled connection to :memory: is a separate database.
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })
	return db
}

func migrate(t *testing.T, db *sql.DB) {
	t.Helper()
	if _, err := migrations.Up(context.Background(), db); err != nil {
		t.Fatalf("Up: %v", err)
	}
}

func TestUp_CreatesAccountsTable(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	applied, err := migrations.Up(ctx, db)
	if err != nil {
		t.Fatalf("Up: %v", err)
	}
	if applied != 1 {
		t.Fatalf("expected 1 migration applied, got %d", applied)
	}

	_, err = db.ExecContext(ctx,
		"INSERT INTO accounts (id, name, email, password_hash) VALUES (?, ?, ?, ?)",
		"a1", "Ana", "ana@example.com", "hash123",
	)
	if err != nil {
		t.Fatalf("insert into accounts: %v", err)
	}

	version, err := migrations.Version(ctx, db)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if version != 1 {
		t.Fatalf("expected schema version 1, got %d", version)
	}
}

func TestUp_Idempotent(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()

	migrate(t, db)

	applied, err := migrations.Up(ctx, db)
	if err != nil {
		t.Fatalf("second Up: %v", err)
	}
	if applied != 0 {
		t.Fatalf("expected no migrations on second run, got %d", applied)
	}

	var count int
	err = db.QueryRowContext(ctx, "SELECT COUNT(*) FROM goose_db_version WHERE version_id > 0").Scan(&count)
	if err != nil {
		t.Fatalf("count goose_db_version: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 applied version, got %d", count)
	}
}

func TestVersion_BeforeMigrations(t *testing.T) {
	db := openMemory(t)

	version, err := migrations.Version(context.Background(), db)
	if err != nil {
		t.Fatalf("Version: %v", err)
	}
	if version != 0 {
		t.Fatalf("expected version 0 on an empty database, got %d", version)
	}
}

func TestSchema_EmailIsCaseInsensitiveUnique(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	migrate(t, db)

	if _, err := db.ExecContext(ctx,
		"INSERT INTO accounts (id, name, email, password_hash) VALUES ('a1', 'Ana', 'ana@example.com', 'h')",
	); err != nil {
		t.Fatalf("insert: %v", err)
	}
	_, err := db.ExecContext(ctx,
		"INSERT INTO accounts (id, name, email, password_hash) VALUES ('a2', 'Ana', 'ANA@example.com', 'h')",
	)
	if err == nil {
		t.Fatal("expected unique violation for an email differing only in case")
	}
}

func TestSchema_ProviderSubjectsNullable(t *testing.T) {
	db := openMemory(t)
	ctx := context.Background()
	migrate(t, db)

	// Two password-only accounts both have NULL subjects.
	for i, email := range []string{"a@example.com", "b@example.com"} {
		if _, err := db.ExecContext(ctx,
			"INSERT INTO accounts (id, name, email, password_hash) VALUES (?, 'X', ?, 'h')",
			[]string{"a1", "a2"}[i], email,
		); err != nil {
			t.Fatalf("insert %s: %v", email, err)
		}
	}

	if _, err := db.ExecContext(ctx,
		"INSERT INTO accounts (id, name, email, google_subject) VALUES ('a3', 'G', 'g1@example.com', 'g-1')",
	); err != nil {
		t.Fatalf("insert google account: %v", err)
	}
	_, err := db.ExecContext(ctx,
		"INSERT INTO accounts (id, name, email, google_subject) VALUES ('a4', 'G', 'g2@example.com', 'g-1')",
	)
	if err == nil {
		t.Fatal("expected unique violation for a reused google subject")
	}
}

func TestSchema_RequiresAuthMethod(t *testing.T) {
	db := openMemory(t)
	migrate(t, db)

	_, err := db.ExecContext(context.Background(),
		"INSERT INTO accounts (id, name, email) VALUES (?, ?, ?)",
		"a1", "No Credentials", "none@example.com",
	)
	if err == nil {
		t.Fatal("expected CHECK constraint to reject an account without password or provider subject")
	}
}

func TestSchema_RejectsUnknownRole(t *testing.T) {
	db := openMemory(t)
	migrate(t, db)

	_, err := db.ExecContext(context.Background(),
		"INSERT INTO accounts (id, name, email, password_hash, role) VALUES (?, ?, ?, ?, ?)",
		"a1", "Root", "root@example.com", "hash", "superuser",
	)
	if err == nil {
		t.Fatal("expected CHECK constraint to reject unknown role")
	}
}
