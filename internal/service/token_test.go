package service_test

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/msomdec/stylist-users/internal/domain"
	"github.com/msomdec/stylist-users/internal/service"
)

const testJWTSecret = "test-secret-key-for-unit-tests-0123456789"

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := service.NewTokenIssuer(testJWTSecret, time.Hour, "")

	account := &domain.Account{ID: "U", Role: domain.RoleUser}
	token, err := issuer.Issue(account)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	claims, err := issuer.Verify(token)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "U" {
		t.Fatalf("expected subject U, got %s", claims.Subject)
	}
	if claims.Role != domain.RoleUser {
		t.Fatalf("expected role user, got %s", claims.Role)
	}
	if claims.IssuedAt == nil || claims.ExpiresAt == nil {
		t.Fatal("expected iat and exp claims")
	}
	if got := claims.ExpiresAt.Sub(claims.IssuedAt.Time); got != time.Hour {
		t.Fatalf("expected 1h lifetime, got %v", got)
	}
}

func TestTokenIssuer_DefaultTTL(t *testing.T) {
	issuer := service.NewTokenIssuer(testJWTSecret, 0, "")
	if issuer.TTL() != 7*24*time.Hour {
		t.Fatalf("expected 7 day default, got %v", issuer.TTL())
	}
}

func TestTokenIssuer_FlippedSignature(t *testing.T) {
	issuer := service.NewTokenIssuer(testJWTSecret, time.Hour, "")

	token, err := issuer.Issue(&domain.Account{ID: "U", Role: domain.RoleUser})
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	// Flip a byte in the middle of the signature segment.
	dot := strings.LastIndex(token, ".")
	sig := []byte(token[dot+1:])
	i := len(sig) / 2
	if sig[i] == 'A' {
		sig[i] = 'B'
	} else {
		sig[i] = 'A'
	}
	forged := token[:dot+1] + string(sig)

	_, err = issuer.Verify(forged)
	if !errors.Is(err, domain.ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestTokenIssuer_RejectsInvalidTokens(t *testing.T) {
	issuer := service.NewTokenIssuer(testJWTSecret, time.Hour, "stylist")
	now := time.Now()

	sign := func(method jwt.SigningMethod, key any, claims jwt.Claims) string {
		t.Helper()
		s, err := jwt.NewWithClaims(method, claims).SignedString(key)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return s
	}
	valid := func() service.Claims {
		return service.Claims{
			Role: domain.RoleUser,
			RegisteredClaims: jwt.RegisteredClaims{
				Subject:   "U",
				Issuer:    "stylist",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
			},
		}
	}

	expired := valid()
	expired.ExpiresAt = jwt.NewNumericDate(now.Add(-time.Minute))

	noExpiry := valid()
	noExpiry.ExpiresAt = nil

	wrongIssuer := valid()
	wrongIssuer.Issuer = "someone-else"

	noSubject := valid()
	noSubject.Subject = ""

	badRole := valid()
	badRole.Role = "superuser"

	tests := []struct {
		name  string
		token string
	}{
		{"empty", ""},
		{"garbage", "not.a.jwt"},
		{"expired", sign(jwt.SigningMethodHS256, []byte(testJWTSecret), expired)},
		{"no expiry", sign(jwt.SigningMethodHS256, []byte(testJWTSecret), noExpiry)},
		{"wrong secret", sign(jwt.SigningMethodHS256, []byte("another-secret"), valid())},
		{"wrong algorithm", sign(jwt.SigningMethodHS512, []byte(testJWTSecret), valid())},
		{"alg none", sign(jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, valid())},
		{"wrong issuer", sign(jwt.SigningMethodHS256, []byte(testJWTSecret), wrongIssuer)},
		{"no subject", sign(jwt.SigningMethodHS256, []byte(testJWTSecret), noSubject)},
		{"unknown role", sign(jwt.SigningMethodHS256, []byte(testJWTSecret), badRole)},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := issuer.Verify(tc.token)
			if !errors.Is(err, domain.ErrInvalidToken) {
				t.Fatalf("expected ErrInvalidToken, got %v", err)
			}
			var de *domain.Error
			if !errors.As(err, &de) || de.Message() != "Invalid token" {
				t.Fatalf("expected generic message, got %v", err)
			}
		})
	}
}
