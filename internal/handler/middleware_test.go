package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/msomdec/stylist-users/internal/domain"
	"github.com/msomdec/stylist-users/internal/handler"
	"github.com/msomdec/stylist-users/internal/repository/sqlite"
	"github.com/msomdec/stylist-users/internal/service"
)

const testJWTSecret = "test-secret-for-handler-tests-0123456789"

type testServices struct {
	resolver *service.Resolver
	guard    *service.Guard
	tokens   *service.TokenIssuer
	db       *sqlite.DB
}

func newTestServices(t *testing.T, verifiers ...service.IdentityVerifier) *testServices {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	db, err := sqlite.New(dbPath)
	if err != nil {
		t.Fatalf("New DB: %v", err)
	}
	if err := db.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	vault, err := service.NewVault(4)
	if err != nil {
		t.Fatalf("NewVault: %v", err)
	}
	tokens := service.NewTokenIssuer(testJWTSecret, time.Hour, "")
	return &testServices{
		resolver: service.NewResolver(db.Accounts(), vault, tokens, service.NewVerifierRegistry(verifiers...), nil),
		guard:    service.NewGuard(tokens, db.Accounts(), nil),
		tokens:   tokens,
		db:       db,
	}
}

// insertAccount stores an account directly and returns a token for it.
func (s *testServices) insertAccount(t *testing.T, email string, role domain.Role) (*domain.Account, string) {
	t.Helper()
	a := &domain.Account{Name: "Direct", Email: email, PasswordHash: "unused", Role: role, Avatar: domain.DefaultAvatar}
	if err := s.db.Accounts().Insert(context.Background(), a); err != nil {
		t.Fatalf("Insert: %v", err)
	}
	token, err := s.tokens.Issue(a)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	return a, token
}

func decodeEnvelope(t *testing.T, body []byte) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(body, &out); err != nil {
		t.Fatalf("decode body %q: %v", body, err)
	}
	return out
}

func TestRequireAuth_ValidToken(t *testing.T) {
	svc := newTestServices(t)
	account, token := svc.insertAccount(t, "valid@example.com", domain.RoleUser)

	var got *service.AuthContext
	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = handler.AuthFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "bearer "+token)
	w := httptest.NewRecorder()

	handler.RequireAuth(svc.guard, inner).ServeHTTP(w, req)

	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}
	if got == nil || got.AccountID != account.ID || got.Email != "valid@example.com" {
		t.Fatalf("unexpected auth context %+v", got)
	}
}

func TestRequireAuth_Rejections(t *testing.T) {
	svc := newTestServices(t)
	_, token := svc.insertAccount(t, "r@example.com", domain.RoleUser)

	stale, _ := svc.tokens.Issue(&domain.Account{ID: "gone", Role: domain.RoleUser})

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic " + token},
		{"no token", "Bearer "},
		{"tampered", "Bearer " + token + "x"},
		{"stale account", "Bearer " + stale},
	}

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("inner handler should not be called")
	})

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/protected", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			w := httptest.NewRecorder()

			handler.RequireAuth(svc.guard, inner).ServeHTTP(w, req)

			if w.Code != http.StatusUnauthorized {
				t.Fatalf("expected 401, got %d", w.Code)
			}
			body := decodeEnvelope(t, w.Body.Bytes())
			if body["success"] != false || body["message"] != "Not authorized" || body["code"] != "UNAUTHORIZED" {
				t.Fatalf("unexpected body %v", body)
			}
		})
	}
}

func TestRequireAdmin(t *testing.T) {
	svc := newTestServices(t)
	_, userToken := svc.insertAccount(t, "user@example.com", domain.RoleUser)
	_, adminToken := svc.insertAccount(t, "admin@example.com", domain.RoleAdmin)

	h := handler.RequireAuth(svc.guard, handler.RequireAdmin(svc.guard, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})))

	for _, tc := range []struct {
		token string
		want  int
	}{
		{userToken, http.StatusForbidden},
		{adminToken, http.StatusOK},
	} {
		req := httptest.NewRequest(http.MethodGet, "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+tc.token)
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != tc.want {
			t.Fatalf("expected %d, got %d", tc.want, w.Code)
		}
	}
}

func TestSecurityHeaders(t *testing.T) {
	h := handler.SecurityHeaders(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	for header, want := range map[string]string{
		"X-Content-Type-Options": "nosniff",
		"X-Frame-Options":        "DENY",
		"Referrer-Policy":        "no-referrer",
	} {
		if got := w.Header().Get(header); got != want {
			t.Fatalf("%s: expected %q, got %q", header, want, got)
		}
	}
	if w.Header().Get("Strict-Transport-Security") != "" {
		t.Fatal("HSTS must only be sent over TLS")
	}
}

func TestCORS(t *testing.T) {
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	h := handler.CORS([]string{"https://app.example.com"})(next)

	t.Run("allowed origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/", nil)
		req.Header.Set("Origin", "https://app.example.com")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://app.example.com" {
			t.Fatalf("unexpected allow-origin %q", got)
		}
	})

	t.Run("other origin", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/users/", nil)
		req.Header.Set("Origin", "https://evil.example.com")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
			t.Fatalf("expected no allow-origin, got %q", got)
		}
		if w.Code != http.StatusOK {
			t.Fatalf("expected request to pass through, got %d", w.Code)
		}
	})

	t.Run("preflight", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodOptions, "/api/users/profile", nil)
		req.Header.Set("Origin", "https://app.example.com")
		req.Header.Set("Access-Control-Request-Method", "PUT")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		if w.Code != http.StatusNoContent {
			t.Fatalf("expected 204, got %d", w.Code)
		}
	})

	t.Run("wildcard", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Origin", "https://anything.example.com")
		w := httptest.NewRecorder()
		handler.CORS([]string{"*"})(next).ServeHTTP(w, req)
		if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://anything.example.com" {
			t.Fatalf("unexpected allow-origin %q", got)
		}
	})
}

func TestRecoverer(t *testing.T) {
	h := handler.Recoverer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", w.Code)
	}
	body := decodeEnvelope(t, w.Body.Bytes())
	if body["message"] != "Server error" {
		t.Fatalf("unexpected body %v", body)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mw := func(name string) func(http.Handler) http.Handler {
		return func(next http.Handler) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				order = append(order, name)
				next.ServeHTTP(w, r)
			})
		}
	}
	h := handler.Chain(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}), mw("a"), mw("b"), handler.RequestLogger)
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))

	if len(order) != 2 || order[0] != "a" || order[1] != "b" {
		t.Fatalf("unexpected order %v", order)
	}
}
