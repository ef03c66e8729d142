package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/msomdec/stylist-users/internal/domain"
)

// AccountRepository implements domain.AccountStore using SQLite.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new SQLite-backed AccountRepository.
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db.SqlDB}
}

const accountColumns = `id, name, email, password_hash, google_subject, apple_subject,
	role, avatar, preferences, email_verified, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAccount(row rowScanner) (*domain.Account, error) {
	var (
		a             domain.Account
		google, apple sql.NullString
		role          string
		prefs         string
	)
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &google, &apple,
		&role, &a.Avatar, &prefs, &a.EmailVerified, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.GoogleSubject = google.String
	a.AppleSubject = apple.String
	a.Role = domain.Role(role)
	if err := json.Unmarshal([]byte(prefs), &a.Preferences); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	return &a, nil
}

func (r *AccountRepository) findOne(ctx context.Context, q queryer, where string, args ...any) (*domain.Account, error) {
	a, err := scanAccount(q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+where, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query account: %w", err)
	}
	return a, nil
}

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	return r.findOne(ctx, r.db, "id = ?", id)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, r.db, "email = ?", domain.NormalizeEmail(email))
}

func (r *AccountRepository) FindByProviderSubject(ctx context.Context, provider domain.Provider, subject string) (*domain.Account, error) {
	col, err := subjectColumn(provider)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, r.db, col+" = ?", subject)
}

func (r *AccountRepository) Insert(ctx context.Context, account *domain.Account) error {
	prefs, err := json.Marshal(account.Preferences)
	if err != nil {
		return fmt.Errorf("encode preferences: %w", err)
	}

	id := uuid.NewString()
	email := domain.NormalizeEmail(account.Email)
	now := time.Now().UTC()
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO accounts (`+accountColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, account.Name, email, account.PasswordHash,
		nullable(account.GoogleSubject), nullable(account.AppleSubject),
		string(account.Role), account.Avatar, string(prefs), account.EmailVerified, now, now,
	)
	if err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return dup
		}
		return fmt.Errorf("insert account: %w", err)
	}

	account.ID = id
	account.Email = email
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

// UpdateByID reads the row, applies the patch and writes it back inside one
// transaction. Uniqueness is still enforced by the table's indexes.
func (r *AccountRepository) UpdateByID(ctx context.Context, id string, patch domain.AccountPatch) (*domain.Account, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	a, err := r.findOne(ctx, tx, "id = ?", id)
	if err != nil {
		return nil, err
	}
	if err := a.Apply(patch); err != nil {
		return nil, err
	}

	prefs, err := json.Marshal(a.Preferences)
	if err != nil {
		return nil, fmt.Errorf("encode preferences: %w", err)
	}
	a.UpdatedAt = time.Now().UTC()

	_, err = tx.ExecContext(ctx,
		`UPDATE accounts SET name = ?, email = ?, password_hash = ?, google_subject = ?,
		 apple_subject = ?, avatar = ?, preferences = ?, email_verified = ?, updated_at = ?
		 WHERE id = ?`,
		a.Name, a.Email, a.PasswordHash, nullable(a.GoogleSubject), nullable(a.AppleSubject),
		a.Avatar, string(prefs), a.EmailVerified, a.UpdatedAt, id,
	)
	if err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("update account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return a, nil
}

func subjectColumn(p domain.Provider) (string, error) {
	switch p {
	case domain.ProviderGoogle:
		return "google_subject", nil
	case domain.ProviderApple:
		return "apple_subject", nil
	}
	return "", domain.InvalidInput("unknown identity provider %q", p)
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// uniqueViolation maps a SQLite unique constraint failure to the matching
// domain error, or returns nil for any other error.
func uniqueViolation(err error) error {
	msg := err.Error()
	if !strings.Contains(msg, "UNIQUE constraint failed") {
		return nil
	}
	if strings.Contains(msg, "accounts.email") {
		return domain.ErrDuplicateEmail
	}
	return domain.ErrDuplicateIdentity
}
