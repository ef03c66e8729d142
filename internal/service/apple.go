package service

import (
	"context"
	"crypto/ecdsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/oauth2"

	"github.com/msomdec/stylist-users/internal/domain"
)

const (
	AppleIssuer   = "https://appleid.apple.com"
	AppleTokenURL = "https://appleid.apple.com/auth/token"

	// AppleClientSecretTTL is the validity window of a generated client
	// secret, just under Apple's six month maximum.
	AppleClientSecretTTL = 15777000 * time.Second
)

// AppleClientSecret builds the ES256 assertion Apple expects as the
// client_secret of a token request.
type AppleClientSecret struct {
	teamID   string
	clientID string
	keyID    string
	key      *ecdsa.PrivateKey
	now      func() time.Time
}

// NewAppleClientSecret parses the PEM encoded P-256 private key. Literal
// "\n" sequences, as found in single-line environment values, are expanded.
func NewAppleClientSecret(teamID, clientID, keyID, privateKeyPEM string) (*AppleClientSecret, error) {
	if teamID == "" || clientID == "" || keyID == "" || privateKeyPEM == "" {
		return nil, errors.New("apple client secret requires team id, client id, key id and private key")
	}
	pem := strings.ReplaceAll(privateKeyPEM, `\n`, "\n")
	key, err := jwt.ParseECPrivateKeyFromPEM([]byte(pem))
	if err != nil {
		return nil, fmt.Errorf("parse apple private key: %w", err)
	}
	return &AppleClientSecret{
		teamID:   teamID,
		clientID: clientID,
		keyID:    keyID,
		key:      key,
		now:      time.Now,
	}, nil
}

// Generate signs a fresh client secret.
func (s *AppleClientSecret) Generate() (string, error) {
	now := s.now()
	claims := jwt.RegisteredClaims{
		Issuer:    s.teamID,
		Subject:   s.clientID,
		Audience:  jwt.ClaimStrings{AppleIssuer},
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(AppleClientSecretTTL)),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodES256, claims)
	token.Header["kid"] = s.keyID

	signed, err := token.SignedString(s.key)
	if err != nil {
		return "", fmt.Errorf("sign apple client secret: %w", err)
	}
	return signed, nil
}

// AppleVerifier validates Sign in with Apple ID tokens against Apple's
// published keys and, when a client secret is configured, redeems
// authorization codes for ID tokens.
type AppleVerifier struct {
	clientID   string
	verifier   *oidc.IDTokenVerifier
	secret     *AppleClientSecret
	tokenURL   string
	httpClient *http.Client
}

// AppleOption configures an AppleVerifier.
type AppleOption func(*AppleVerifier)

// WithAppleCodeExchange enables authorization code redemption.
func WithAppleCodeExchange(secret *AppleClientSecret) AppleOption {
	return func(v *AppleVerifier) { v.secret = secret }
}

// WithAppleTokenURL overrides Apple's token endpoint.
func WithAppleTokenURL(u string) AppleOption {
	return func(v *AppleVerifier) { v.tokenURL = u }
}

// WithAppleHTTPClient sets the client used for code exchange.
func WithAppleHTTPClient(c *http.Client) AppleOption {
	return func(v *AppleVerifier) { v.httpClient = c }
}

// NewAppleVerifier creates a verifier requiring issuer AppleIssuer and
// audience clientID. Production callers pass
// oidc.NewRemoteKeySet(ctx, AppleJWKSURL).
func NewAppleVerifier(keys oidc.KeySet, clientID string, opts ...AppleOption) *AppleVerifier {
	v := &AppleVerifier{
		clientID: clientID,
		verifier: oidc.NewVerifier(AppleIssuer, keys, &oidc.Config{
			ClientID:             clientID,
			SupportedSigningAlgs: []string{oidc.RS256},
		}),
		tokenURL:   AppleTokenURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(v)
	}
	return v
}

func (a *AppleVerifier) Provider() domain.Provider {
	return domain.ProviderApple
}

// Verify validates cred.IDToken, or exchanges cred.AuthorizationCode for
// one first, and extracts the profile. Apple never sends name or picture in
// the ID token.
func (a *AppleVerifier) Verify(ctx context.Context, cred domain.OAuthCredential) (*domain.OAuthProfile, error) {
	raw := cred.IDToken
	if raw == "" {
		if cred.AuthorizationCode == "" {
			return nil, domain.InvalidInput("idToken or authorizationCode is required")
		}
		var err error
		raw, err = a.exchange(ctx, cred.AuthorizationCode)
		if err != nil {
			return nil, err
		}
	}

	idToken, err := a.verifier.Verify(ctx, raw)
	if err != nil {
		return nil, classifyVerifyError(ctx, "apple", err)
	}

	var claims struct {
		Email         string   `json:"email"`
		EmailVerified flexBool `json:"email_verified"`
	}
	if err := idToken.Claims(&claims); err != nil {
		return nil, domain.WrapError(domain.KindInvalidToken, "apple id_token claims", err)
	}
	if idToken.Subject == "" {
		return nil, domain.NewError(domain.KindInvalidToken, "apple id_token missing subject")
	}

	return &domain.OAuthProfile{
		Subject:       idToken.Subject,
		Email:         claims.Email,
		EmailVerified: bool(claims.EmailVerified),
	}, nil
}

func (a *AppleVerifier) exchange(ctx context.Context, code string) (string, error) {
	if a.secret == nil {
		return "", domain.NewError(domain.KindUpstreamFailure, "apple code exchange is not configured")
	}
	clientSecret, err := a.secret.Generate()
	if err != nil {
		return "", domain.WrapError(domain.KindUpstreamFailure, "apple client secret", err)
	}

	cfg := &oauth2.Config{
		ClientID:     a.clientID,
		ClientSecret: clientSecret,
		Endpoint: oauth2.Endpoint{
			TokenURL:  a.tokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
	ctx = context.WithValue(ctx, oauth2.HTTPClient, a.httpClient)

	token, err := cfg.Exchange(ctx, code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.ErrorCode == "invalid_grant" {
			return "", domain.WrapError(domain.KindInvalidToken, "apple rejected authorization code", err)
		}
		return "", domain.WrapError(domain.KindUpstreamFailure, "apple token exchange", err)
	}

	raw, ok := token.Extra("id_token").(string)
	if !ok || raw == "" {
		return "", domain.NewError(domain.KindUpstreamFailure, "apple did not return an id_token")
	}
	return raw, nil
}
