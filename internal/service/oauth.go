package service

import (
	"context"
	"encoding/json"
	"errors"
	"slices"
	"strconv"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"

	"github.com/msomdec/stylist-users/internal/domain"
)

// Published signing keys of the supported identity providers.
const (
	GoogleJWKSURL = "https://www.googleapis.com/oauth2/v3/certs"
	AppleJWKSURL  = "https://appleid.apple.com/auth/keys"
)

// IdentityVerifier turns a credential presented by a client into verified
// identity facts. Implementations make no account decisions.
type IdentityVerifier interface {
	Provider() domain.Provider
	Verify(ctx context.Context, cred domain.OAuthCredential) (*domain.OAuthProfile, error)
}

// VerifierRegistry holds the configured verifiers by provider.
type VerifierRegistry struct {
	verifiers map[domain.Provider]IdentityVerifier
}

// NewVerifierRegistry registers the given verifiers. Nil entries are skipped
// so unconfigured providers can be passed through unchanged.
func NewVerifierRegistry(list ...IdentityVerifier) *VerifierRegistry {
	m := make(map[domain.Provider]IdentityVerifier)
	for _, v := range list {
		if v == nil {
			continue
		}
		m[v.Provider()] = v
	}
	return &VerifierRegistry{verifiers: m}
}

// Get returns the verifier for p. A provider with no verifier is reported as
// an upstream failure: the server cannot vouch for that issuer.
func (r *VerifierRegistry) Get(p domain.Provider) (IdentityVerifier, error) {
	if r != nil {
		if v, ok := r.verifiers[p]; ok {
			return v, nil
		}
	}
	return nil, domain.NewError(domain.KindUpstreamFailure, "provider "+string(p)+" is not configured")
}

// Configured lists the providers that have a verifier.
func (r *VerifierRegistry) Configured() []domain.Provider {
	if r == nil {
		return nil
	}
	out := make([]domain.Provider, 0, len(r.verifiers))
	for p := range r.verifiers {
		out = append(out, p)
	}
	slices.Sort(out)
	return out
}

var googleIssuers = []string{"https://accounts.google.com", "accounts.google.com"}

// GoogleVerifier validates Google ID tokens.
type GoogleVerifier struct {
	verifier *oidc.IDTokenVerifier
}

// NewGoogleVerifier creates a verifier that checks signatures against keys
// and requires the audience to be clientID. Production callers pass
// oidc.NewRemoteKeySet(ctx, GoogleJWKSURL).
func NewGoogleVerifier(keys oidc.KeySet, clientID string) *GoogleVerifier {
	// Google signs with either issuer spelling; it is checked after Verify.
	v := oidc.NewVerifier(googleIssuers[0], keys, &oidc.Config{
		ClientID:             clientID,
		SupportedSigningAlgs: []string{oidc.RS256},
		SkipIssuerCheck:      true,
	})
	return &GoogleVerifier{verifier: v}
}

func (g *GoogleVerifier) Provider() domain.Provider {
	return domain.ProviderGoogle
}

// Verify validates cred.IDToken and extracts the profile.
func (g *GoogleVerifier) Verify(ctx context.Context, cred domain.OAuthCredential) (*domain.OAuthProfile, error) {
	if cred.IDToken == "" {
		return nil, domain.InvalidInput("idToken is required")
	}

	idToken, err := g.verifier.Verify(ctx, cred.IDToken)
	if err != nil {
		return nil, classifyVerifyError(ctx, "google", err)
	}
	if !slices.Contains(googleIssuers, idToken.Issuer) {
		return nil, domain.NewError(domain.KindInvalidToken, "google id_token has unexpected issuer")
	}

	var claims struct {
		Email         string   `json:"email"`
		EmailVerified flexBool `json:"email_verified"`
		Name          string   `json:"name"`
		Picture       string   `json:"picture"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, domain.WrapError(domain.KindInvalidToken, "google id_token claims", err)
	}
	if idToken.Subject == "" {
		return nil, domain.NewError(domain.KindInvalidToken, "google id_token missing subject")
	}

	return &domain.OAuthProfile{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		Name:          claims.Name,
		Picture:       claims.Picture,
		EmailVerified: bool(claims.EmailVerified),
	}, nil
}

// classifyVerifyError separates tokens the issuer's keys rejected from
// failures to reach the issuer at all.
func classifyVerifyError(ctx context.Context, provider string, err error) error {
	if ctx.Err() != nil || strings.Contains(err.Error(), "fetching keys") {
		return domain.WrapError(domain.KindUpstreamFailure, provider+" key set unavailable", err)
	}
	return domain.WrapError(domain.KindInvalidToken, provider+" id_token rejected", err)
}

// flexBool decodes a JSON boolean that some issuers send as a string.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	switch t := v.(type) {
	case bool:
		*b = flexBool(t)
	case string:
		parsed, err := strconv.ParseBool(t)
		if err != nil {
			return err
		}
		*b = flexBool(parsed)
	case nil:
		*b = false
	default:
		return errors.New("email_verified: unsupported type")
	}
	return nil
}
