package domain_test

import (
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/msomdec/stylist-users/internal/domain"
)

func TestError_IsMatchesByKind(t *testing.T) {
	err := domain.WrapError(domain.KindStoreFailure, "insert account", errors.New("disk I/O error"))

	if !errors.Is(err, domain.ErrStoreFailure) {
		t.Fatal("expected wrapped error to match ErrStoreFailure")
	}
	if errors.Is(err, domain.ErrNotFound) {
		t.Fatal("did not expect match with ErrNotFound")
	}

	outer := fmt.Errorf("resolve: %w", err)
	if !errors.Is(outer, domain.ErrStoreFailure) {
		t.Fatal("expected match through fmt.Errorf wrapping")
	}
}

func TestError_MessageHidesDetail(t *testing.T) {
	err := domain.WrapError(domain.KindInvalidToken, "signature is invalid", errors.New("crypto/hmac"))

	if err.Message() != "Invalid token" {
		t.Fatalf("expected generic message, got %q", err.Message())
	}
	if strings.Contains(err.Message(), "signature") {
		t.Fatal("message must not contain developer detail")
	}
	if !strings.Contains(err.Error(), "signature is invalid") {
		t.Fatalf("expected Error() to carry detail for logs, got %q", err.Error())
	}
}

func TestError_SentinelErrorString(t *testing.T) {
	if domain.ErrInvalidCredentials.Error() != "Invalid credentials" {
		t.Fatalf("unexpected sentinel text %q", domain.ErrInvalidCredentials.Error())
	}
}

func TestParseProvider(t *testing.T) {
	for _, name := range []string{"google", "apple"} {
		p, err := domain.ParseProvider(name)
		if err != nil {
			t.Fatalf("ParseProvider(%q): %v", name, err)
		}
		if string(p) != name {
			t.Fatalf("expected %q, got %q", name, p)
		}
	}

	if _, err := domain.ParseProvider("github"); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
}

func TestAccount_HasAuthMethod(t *testing.T) {
	tests := []struct {
		name string
		acct domain.Account
		want bool
	}{
		{"password only", domain.Account{PasswordHash: "h"}, true},
		{"google only", domain.Account{GoogleSubject: "g1"}, true},
		{"apple only", domain.Account{AppleSubject: "a1"}, true},
		{"nothing", domain.Account{Email: "x@example.com"}, false},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.acct.HasAuthMethod(); got != tc.want {
				t.Fatalf("HasAuthMethod() = %t, want %t", got, tc.want)
			}
		})
	}
}

func TestAccount_PublicOmitsCredentials(t *testing.T) {
	acct := domain.Account{
		ID:            "u1",
		Email:         "ana@example.com",
		PasswordHash:  "$2a$10$secret",
		GoogleSubject: "g1",
		Role:          domain.RoleUser,
	}

	pub := acct.Public()
	if pub.ID != "u1" || pub.Email != "ana@example.com" || pub.Role != domain.RoleUser {
		t.Fatalf("unexpected projection %+v", pub)
	}
	if strings.Contains(fmt.Sprintf("%+v", pub), "secret") {
		t.Fatal("public projection leaked the password hash")
	}
}

func TestNormalizeEmail(t *testing.T) {
	if got := domain.NormalizeEmail("  Ana@Example.COM "); got != "ana@example.com" {
		t.Fatalf("NormalizeEmail = %q", got)
	}
}

func TestAccount_ApplyEmailChangeClearsVerification(t *testing.T) {
	same := " Ana@Example.com "
	other := "ana.new@example.com"
	verified := true

	tests := []struct {
		name  string
		patch domain.AccountPatch
		want  bool
	}{
		{"same address different case", domain.AccountPatch{Email: &same}, true},
		{"new address", domain.AccountPatch{Email: &other}, false},
		{"new address explicitly verified", domain.AccountPatch{Email: &other, EmailVerified: &verified}, true},
		{"no email change", domain.AccountPatch{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			a := domain.Account{Email: "ana@example.com", GoogleSubject: "g1", EmailVerified: true}
			if err := a.Apply(tc.patch); err != nil {
				t.Fatalf("Apply: %v", err)
			}
			if a.EmailVerified != tc.want {
				t.Fatalf("EmailVerified = %t, want %t", a.EmailVerified, tc.want)
			}
		})
	}
}
