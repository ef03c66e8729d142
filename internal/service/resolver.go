package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/msomdec/stylist-users/internal/domain"
)

// OutcomeRecorder observes the result of every resolver and guard
// operation. kind is "ok" on success.
type OutcomeRecorder interface {
	RecordOutcome(operation, kind string)
}

type nopRecorder struct{}

func (nopRecorder) RecordOutcome(string, string) {}

// Session is the result of a successful sign-in: the public account and a
// freshly issued session token.
type Session struct {
	Account domain.PublicAccount
	Token   string
}

// ProfileUpdate is a caller-supplied profile patch. Password and Role are
// accepted so a request can carry them, but UpdateProfile never applies
// them.
type ProfileUpdate struct {
	Name        *string             `json:"name,omitempty"`
	Email       *string             `json:"email,omitempty"`
	Avatar      *string             `json:"avatar,omitempty"`
	Preferences *domain.Preferences `json:"preferences,omitempty"`
	Password    *string             `json:"password,omitempty"`
	Role        *domain.Role        `json:"role,omitempty"`
}

// Resolver maps credentials to exactly one account and issues session
// tokens. Every returned error is a *domain.Error.
type Resolver struct {
	accounts  domain.AccountStore
	vault     *Vault
	tokens    *TokenIssuer
	verifiers *VerifierRegistry
	outcomes  OutcomeRecorder
}

// NewResolver creates a Resolver. verifiers may be nil when no identity
// provider is configured; outcomes may be nil.
func NewResolver(accounts domain.AccountStore, vault *Vault, tokens *TokenIssuer, verifiers *VerifierRegistry, outcomes OutcomeRecorder) *Resolver {
	if outcomes == nil {
		outcomes = nopRecorder{}
	}
	return &Resolver{
		accounts:  accounts,
		vault:     vault,
		tokens:    tokens,
		verifiers: verifiers,
		outcomes:  outcomes,
	}
}

// RegisterLocal creates a password account and signs it in.
func (r *Resolver) RegisterLocal(ctx context.Context, name, email, password string) (*Session, error) {
	const op = "register_local"

	name, err := validateName(name)
	if err != nil {
		return nil, r.fail(ctx, op, err)
	}
	email, err = validateEmail(email)
	if err != nil {
		return nil, r.fail(ctx, op, err)
	}
	if err := validatePassword(password); err != nil {
		return nil, r.fail(ctx, op, err)
	}

	hash, err := r.vault.Hash(password)
	if err != nil {
		return nil, r.fail(ctx, op, err)
	}

	account := &domain.Account{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         domain.RoleUser,
		Avatar:       domain.DefaultAvatar,
	}
	if err := r.accounts.Insert(ctx, account); err != nil {
		return nil, r.fail(ctx, op, err)
	}

	return r.session(ctx, op, account)
}

// LoginLocal checks an email and password. Unknown emails and wrong
// passwords fail identically with ErrInvalidCredentials.
func (r *Resolver) LoginLocal(ctx context.Context, email, password string) (*Session, error) {
	const op = "login_local"

	if email == "" || password == "" {
		return nil, r.fail(ctx, op, domain.InvalidInput("email and password are required"))
	}

	account, err := r.accounts.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			r.vault.burn(password)
			return nil, r.fail(ctx, op, domain.ErrInvalidCredentials)
		}
		return nil, r.fail(ctx, op, err)
	}

	if !r.vault.Verify(password, account.PasswordHash) {
		return nil, r.fail(ctx, op, domain.ErrInvalidCredentials)
	}

	return r.session(ctx, op, account)
}

// ResolveOAuth finds or creates the account for a verified provider
// profile: by provider subject first, then by email (linking the subject),
// then by creating a new account.
func (r *Resolver) ResolveOAuth(ctx context.Context, provider domain.Provider, profile *domain.OAuthProfile) (*Session, error) {
	op := "resolve_oauth_" + string(provider)

	if _, err := domain.ParseProvider(string(provider)); err != nil {
		return nil, r.fail(ctx, op, err)
	}
	if profile == nil || profile.Subject == "" {
		return nil, r.fail(ctx, op, domain.NewError(domain.KindInvalidToken, "profile has no subject"))
	}

	account, err := r.accounts.FindByProviderSubject(ctx, provider, profile.Subject)
	if err == nil {
		return r.session(ctx, op, account)
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return nil, r.fail(ctx, op, err)
	}

	email := domain.NormalizeEmail(profile.Email)
	if email != "" {
		existing, err := r.accounts.FindByEmail(ctx, email)
		switch {
		case err == nil:
			linked, err := r.accounts.UpdateByID(ctx, existing.ID, domain.LinkSubject(provider, profile.Subject))
			if err != nil {
				return nil, r.fail(ctx, op, err)
			}
			slog.InfoContext(ctx, "linked identity provider", "provider", provider, "account_id", linked.ID)
			return r.session(ctx, op, linked)
		case !errors.Is(err, domain.ErrNotFound):
			return nil, r.fail(ctx, op, err)
		}
	}

	if email == "" {
		return nil, r.fail(ctx, op, domain.InvalidInput("identity provider did not share an email address"))
	}

	avatar := profile.Picture
	if avatar == "" {
		avatar = domain.DefaultAvatar
	}
	account = &domain.Account{
		Name:          displayName(profile.Name),
		Email:         email,
		Role:          domain.RoleUser,
		Avatar:        avatar,
		EmailVerified: true,
	}
	switch provider {
	case domain.ProviderGoogle:
		account.GoogleSubject = profile.Subject
	case domain.ProviderApple:
		account.AppleSubject = profile.Subject
	}
	if err := r.accounts.Insert(ctx, account); err != nil {
		return nil, r.fail(ctx, op, err)
	}

	return r.session(ctx, op, account)
}

// AuthenticateOAuth verifies a provider credential and resolves the
// resulting profile.
func (r *Resolver) AuthenticateOAuth(ctx context.Context, provider domain.Provider, cred domain.OAuthCredential) (*Session, error) {
	op := "authenticate_oauth_" + string(provider)

	verifier, err := r.verifiers.Get(provider)
	if err != nil {
		return nil, r.fail(ctx, op, err)
	}
	profile, err := verifier.Verify(ctx, cred)
	if err != nil {
		return nil, r.fail(ctx, op, err)
	}
	return r.ResolveOAuth(ctx, provider, profile)
}

// GetProfile returns the public projection of an account.
func (r *Resolver) GetProfile(ctx context.Context, id string) (*domain.PublicAccount, error) {
	const op = "get_profile"

	account, err := r.accounts.FindByID(ctx, id)
	if err != nil {
		return nil, r.fail(ctx, op, err)
	}
	r.outcomes.RecordOutcome(op, "ok")
	public := account.Public()
	return &public, nil
}

// UpdateProfile applies name, email, avatar and preferences changes.
// Password and role in the update are discarded. A changed email is no
// longer verified.
func (r *Resolver) UpdateProfile(ctx context.Context, id string, update ProfileUpdate) (*domain.PublicAccount, error) {
	const op = "update_profile"

	var patch domain.AccountPatch
	if update.Name != nil {
		name, err := validateName(*update.Name)
		if err != nil {
			return nil, r.fail(ctx, op, err)
		}
		patch.Name = &name
	}
	if update.Email != nil {
		email, err := validateEmail(*update.Email)
		if err != nil {
			return nil, r.fail(ctx, op, err)
		}
		patch.Email = &email
	}
	patch.Avatar = update.Avatar
	patch.Preferences = update.Preferences

	account, err := r.accounts.UpdateByID(ctx, id, patch)
	if err != nil {
		return nil, r.fail(ctx, op, err)
	}
	r.outcomes.RecordOutcome(op, "ok")
	public := account.Public()
	return &public, nil
}

// UpdatePreferences replaces an account's preferences.
func (r *Resolver) UpdatePreferences(ctx context.Context, id string, prefs domain.Preferences) (*domain.Preferences, error) {
	const op = "update_preferences"

	account, err := r.accounts.UpdateByID(ctx, id, domain.AccountPatch{Preferences: &prefs})
	if err != nil {
		return nil, r.fail(ctx, op, err)
	}
	r.outcomes.RecordOutcome(op, "ok")
	return &account.Preferences, nil
}

// ChangePassword sets a new local password. Accounts that already have one
// must present it; accounts created through a provider may set their first
// password without one. A password equal to the current one is not
// re-hashed and nothing is written.
func (r *Resolver) ChangePassword(ctx context.Context, id, current, next string) error {
	const op = "change_password"

	if err := validatePassword(next); err != nil {
		return r.fail(ctx, op, err)
	}

	account, err := r.accounts.FindByID(ctx, id)
	if err != nil {
		return r.fail(ctx, op, err)
	}
	if account.PasswordHash != "" && !r.vault.Verify(current, account.PasswordHash) {
		return r.fail(ctx, op, domain.ErrInvalidCredentials)
	}

	digest, changed, err := r.vault.HashIfChanged(next, account.PasswordHash)
	if err != nil {
		return r.fail(ctx, op, err)
	}
	if changed {
		if _, err := r.accounts.UpdateByID(ctx, id, domain.AccountPatch{PasswordHash: &digest}); err != nil {
			return r.fail(ctx, op, err)
		}
	}
	r.outcomes.RecordOutcome(op, "ok")
	return nil
}

func (r *Resolver) session(ctx context.Context, op string, account *domain.Account) (*Session, error) {
	token, err := r.tokens.Issue(account)
	if err != nil {
		return nil, r.fail(ctx, op, err)
	}
	r.outcomes.RecordOutcome(op, "ok")
	return &Session{Account: account.Public(), Token: token}, nil
}

// fail converts err into a *domain.Error and records the outcome. Store
// absence becomes AccountNotFound; anything untagged becomes StoreFailure.
func (r *Resolver) fail(ctx context.Context, op string, err error) error {
	out := toDomainError(err, domain.KindAccountNotFound)
	if out.Kind == domain.KindStoreFailure {
		slog.ErrorContext(ctx, "identity operation failed", "op", op, "error", err)
	}
	r.outcomes.RecordOutcome(op, string(out.Kind))
	return out
}

func toDomainError(err error, notFound domain.Kind) *domain.Error {
	var de *domain.Error
	if errors.As(err, &de) {
		if de.Kind == domain.KindNotFound {
			return domain.WrapError(notFound, "account lookup", err)
		}
		return de
	}
	return domain.WrapError(domain.KindStoreFailure, "unexpected failure", err)
}
