package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/msomdec/stylist-users/internal/domain"
)

// AuthContext identifies the caller of an authenticated request.
type AuthContext struct {
	AccountID string
	Email     string
	Role      domain.Role
}

// IsAdmin reports whether the caller holds the admin role.
func (a *AuthContext) IsAdmin() bool {
	return a != nil && a.Role == domain.RoleAdmin
}

// Guard resolves session tokens to an AuthContext.
type Guard struct {
	tokens   *TokenIssuer
	accounts domain.AccountStore
	outcomes OutcomeRecorder
}

// NewGuard creates a Guard. outcomes may be nil.
func NewGuard(tokens *TokenIssuer, accounts domain.AccountStore, outcomes OutcomeRecorder) *Guard {
	if outcomes == nil {
		outcomes = nopRecorder{}
	}
	return &Guard{tokens: tokens, accounts: accounts, outcomes: outcomes}
}

// Authenticate verifies token and loads the account it names. Missing,
// malformed, expired, forged and stale tokens all fail with
// ErrUnauthorized. The role comes from the stored account, not the token.
func (g *Guard) Authenticate(ctx context.Context, token string) (*AuthContext, error) {
	const op = "authenticate"

	if token == "" {
		return nil, g.fail(op, domain.NewError(domain.KindUnauthorized, "no token"))
	}
	claims, err := g.tokens.Verify(token)
	if err != nil {
		return nil, g.fail(op, domain.WrapError(domain.KindUnauthorized, "session token", err))
	}

	account, err := g.accounts.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, g.fail(op, domain.WrapError(domain.KindUnauthorized, "token subject no longer exists", err))
		}
		slog.ErrorContext(ctx, "session lookup failed", "error", err)
		return nil, g.fail(op, toDomainError(err, domain.KindUnauthorized))
	}

	g.outcomes.RecordOutcome(op, "ok")
	return &AuthContext{
		AccountID: account.ID,
		Email:     account.Email,
		Role:      account.Role,
	}, nil
}

// RequireAdmin permits only admin callers.
func (g *Guard) RequireAdmin(ac *AuthContext) error {
	if ac == nil {
		return g.fail("require_admin", domain.ErrUnauthorized)
	}
	if !ac.IsAdmin() {
		return g.fail("require_admin", domain.ErrForbidden)
	}
	g.outcomes.RecordOutcome("require_admin", "ok")
	return nil
}

func (g *Guard) fail(op string, err *domain.Error) error {
	g.outcomes.RecordOutcome(op, string(err.Kind))
	return err
}
