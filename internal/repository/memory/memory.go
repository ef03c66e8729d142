// Package memory provides a process-local account store. It backs the
// offline mode and unit tests; data does not survive a restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/msomdec/stylist-users/internal/domain"
)

// DB implements domain.Database on top of an in-memory AccountRepository.
type DB struct {
	accounts *AccountRepository
}

// New returns an empty in-memory database.
func New() *DB {
	return &DB{accounts: NewAccountRepository()}
}

func (db *DB) Migrate(ctx context.Context) error { return nil }
func (db *DB) Ping(ctx context.Context) error    { return nil }
func (db *DB) Close() error                      { return nil }
func (db *DB) Driver() string                    { return "memory" }

// Accounts returns the account store.
func (db *DB) Accounts() domain.AccountStore {
	return db.accounts
}

// AccountRepository keeps accounts in maps guarded by a single mutex. The
// secondary indexes play the role of unique constraints.
type AccountRepository struct {
	mu        sync.RWMutex
	byID      map[string]*domain.Account
	byEmail   map[string]string
	bySubject map[domain.Provider]map[string]string
	now       func() time.Time
}

// NewAccountRepository creates an empty repository.
func NewAccountRepository() *AccountRepository {
	return &AccountRepository{
		byID:    make(map[string]*domain.Account),
		byEmail: make(map[string]string),
		bySubject: map[domain.Provider]map[string]string{
			domain.ProviderGoogle: {},
			domain.ProviderApple:  {},
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

func (r *AccountRepository) FindByID(ctx context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(a), nil
}

func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, ok := r.byEmail[domain.NormalizeEmail(email)]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *AccountRepository) FindByProviderSubject(ctx context.Context, provider domain.Provider, subject string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	idx, ok := r.bySubject[provider]
	if !ok || subject == "" {
		return nil, domain.ErrNotFound
	}
	id, ok := idx[subject]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return clone(r.byID[id]), nil
}

func (r *AccountRepository) Insert(ctx context.Context, account *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := domain.NormalizeEmail(account.Email)
	if _, taken := r.byEmail[email]; taken {
		return domain.ErrDuplicateEmail
	}
	if err := r.checkSubjects(account, ""); err != nil {
		return err
	}

	now := r.now()
	stored := clone(account)
	stored.ID = uuid.NewString()
	stored.Email = email
	stored.CreatedAt = now
	stored.UpdatedAt = now

	r.byID[stored.ID] = stored
	r.index(stored)

	account.ID = stored.ID
	account.Email = email
	account.CreatedAt = now
	account.UpdatedAt = now
	return nil
}

func (r *AccountRepository) UpdateByID(ctx context.Context, id string, patch domain.AccountPatch) (*domain.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, ok := r.byID[id]
	if !ok {
		return nil, domain.ErrNotFound
	}

	next := clone(current)
	if err := next.Apply(patch); err != nil {
		return nil, err
	}
	if next.Email != current.Email {
		if owner, taken := r.byEmail[next.Email]; taken && owner != id {
			return nil, domain.ErrDuplicateEmail
		}
	}
	if err := r.checkSubjects(next, id); err != nil {
		return nil, err
	}
	next.UpdatedAt = r.now()

	r.unindex(current)
	r.byID[id] = next
	r.index(next)
	return clone(next), nil
}

func (r *AccountRepository) checkSubjects(a *domain.Account, self string) error {
	for _, p := range []domain.Provider{domain.ProviderGoogle, domain.ProviderApple} {
		sub := a.Subject(p)
		if sub == "" {
			continue
		}
		if owner, taken := r.bySubject[p][sub]; taken && owner != self {
			return domain.ErrDuplicateIdentity
		}
	}
	return nil
}

func (r *AccountRepository) index(a *domain.Account) {
	r.byEmail[a.Email] = a.ID
	for _, p := range []domain.Provider{domain.ProviderGoogle, domain.ProviderApple} {
		if sub := a.Subject(p); sub != "" {
			r.bySubject[p][sub] = a.ID
		}
	}
}

func (r *AccountRepository) unindex(a *domain.Account) {
	delete(r.byEmail, a.Email)
	for _, p := range []domain.Provider{domain.ProviderGoogle, domain.ProviderApple} {
		if sub := a.Subject(p); sub != "" {
			delete(r.bySubject[p], sub)
		}
	}
}

// clone copies an account so callers never alias stored state.
func clone(a *domain.Account) *domain.Account {
	c := *a
	c.Preferences = domain.Preferences{
		Style:     append([]string(nil), a.Preferences.Style...),
		Colors:    append([]string(nil), a.Preferences.Colors...),
		Occasions: append([]string(nil), a.Preferences.Occasions...),
	}
	if a.Preferences.Sizes != nil {
		c.Preferences.Sizes = make(map[string]any, len(a.Preferences.Sizes))
		for k, v := range a.Preferences.Sizes {
			c.Preferences.Sizes[k] = v
		}
	}
	return &c
}
