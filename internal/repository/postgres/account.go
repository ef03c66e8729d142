package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/msomdec/stylist-users/internal/domain"
)

const uniqueViolationCode = "23505"

// AccountRepository implements domain.AccountStore using PostgreSQL.
type AccountRepository struct {
	db *sql.DB
}

// NewAccountRepository creates a new PostgreSQL-backed AccountRepository.
func NewAccountRepository(db *DB) *AccountRepository {
	return &AccountRepository{db: db.SqlDB}
}

const accountColumns = `id, name, email, password_hash, google_subject, apple_subject,
	role, avatar, preferences, email_verified, created_at, updated_at`

type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func scanAccount(row *sql.Row) (*domain.Account, error) {
	var (
		a             domain.Account
		google, apple sql.NullString
		role          string
		prefs         []byte
	)
	err := row.Scan(&a.ID, &a.Name, &a.Email, &a.PasswordHash, &google, &apple,
		&role, &a.Avatar, &prefs, &a.EmailVerified, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.GoogleSubject = google.String
	a.AppleSubject = apple.String
	a.Role = domain.Role(role)
	if err := json.Unmarshal(prefs, &a.Preferences); err != nil {
		return nil, fmt.Errorf("decode preferences: %w", err)
	}
	return &a, nil
}

func (r *AccountRepository) findOne(ctx context.Context, q queryer, query string, args ...any) (*domain.Account, error) {
	a, err := scanAccount(q.QueryRowContext(ctx, `SELECT `+accountColumns+` FROM accounts WHERE `+query, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, fmt.Errorf("query account: %w", err)
	}
	return a, nil
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}
	return r.findOne(ctx, r.db, "id = $1", id)
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	return r.findOne(ctx, r.db, "LOWER(email) = $1", domain.NormalizeEmail(email))
}

func (r *AccountRepository) FindByProviderSubject(ctx context.Context, provider domain.Provider, subject string) (*domain.Account, error) {
	col, err := subjectColumn(provider)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, r.db, col+" = $1", subject)
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
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`,
		id, account.Name, email, account.PasswordHash,
		nullable(account.GoogleSubject), nullable(account.AppleSubject),
		string(account.Role), account.Avatar, prefs, account.EmailVerified, now, now,
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

// UpdateByID locks the row with SELECT ... FOR UPDATE, applies the patch and
// writes it back in the same transaction.
func (r *AccountRepository) UpdateByID(ctx context.Context, id string, patch domain.AccountPatch) (*domain.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, domain.ErrNotFound
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	a, err := r.findOne(ctx, tx, "id = $1 FOR UPDATE", id)
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
		`UPDATE accounts SET name = $1, email = $2, password_hash = $3, google_subject = $4,
		 apple_subject = $5, avatar = $6, preferences = $7, email_verified = $8, updated_at = $9
		 WHERE id = $10`,
		a.Name, a.Email, a.PasswordHash, nullable(a.GoogleSubject), nullable(a.AppleSubject),
		a.Avatar, prefs, a.EmailVerified, a.UpdatedAt, id,
	)
	if err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return nil, dup
		}
		return nil, fmt.Errorf("update account: %w", err)
	}

	if err := tx.Commit(); err != nil {
		if dup := uniqueViolation(err); dup != nil {
			return nil, dup
		}
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

// uniqueViolation maps a 23505 error to the matching domain error by
// constraint name, or returns nil for any other error.
func uniqueViolation(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != uniqueViolationCode {
		return nil
	}
	if pgErr.ConstraintName == "accounts_email_lower_idx" {
		return domain.ErrDuplicateEmail
	}
	return domain.ErrDuplicateIdentity
}
