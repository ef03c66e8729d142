package handler

import (
	"net/http"

	"github.com/msomdec/stylist-users/internal/service"
	"github.com/msomdec/stylist-users/internal/view"
)

type route struct {
	Method      string
	Path        string
	Auth        string
	Description string
}

var apiRoutes = []route{
	{"POST", "/api/users/register", "public", "Create an account with name, email and password"},
	{"POST", "/api/users/login", "public", "Sign in with email and password"},
	{"POST", "/api/users/auth/google", "public", "Sign in with a Google ID token"},
	{"POST", "/api/users/auth/apple", "public", "Sign in with an Apple ID token or authorization code"},
	{"GET", "/api/users/profile", "bearer", "Read the caller's profile"},
	{"PUT", "/api/users/profile", "bearer", "Update name, email, avatar or preferences"},
	{"PUT", "/api/users/preferences", "bearer", "Replace the caller's preferences"},
	{"PUT", "/api/users/password", "bearer", "Set a new password"},
	{"GET", "/api/users/admin/dashboard", "admin", "Admin-only check"},
}

// Deps holds everything RegisterRoutes wires into the mux.
type Deps struct {
	Resolver *service.Resolver
	Guard    *service.Guard
	Health   *HealthHandler
	Home     view.HomeData
	Metrics  http.Handler
}

// RegisterRoutes sets up all HTTP routes on the given mux.
func RegisterRoutes(mux *http.ServeMux, d Deps) {
	users := NewUserHandler(d.Resolver)
	auth := func(h http.HandlerFunc) http.Handler { return RequireAuth(d.Guard, h) }
	admin := func(h http.HandlerFunc) http.Handler { return RequireAuth(d.Guard, RequireAdmin(d.Guard, h)) }

	mux.Handle("GET /{$}", NewHomeHandler(d.Home))
	if d.Health != nil {
		mux.HandleFunc("GET /health", d.Health.HandleHealth)
	}
	if d.Metrics != nil {
		mux.Handle("GET /metrics", d.Metrics)
	}

	mux.HandleFunc("GET /api/users/{$}", users.HandleIndex)
	mux.HandleFunc("POST /api/users/register", users.HandleRegister)
	mux.HandleFunc("POST /api/users/login", users.HandleLogin)
	mux.HandleFunc("POST /api/users/auth/google", users.HandleGoogleAuth)
	mux.HandleFunc("POST /api/users/auth/apple", users.HandleAppleAuth)

	mux.Handle("GET /api/users/profile", auth(users.HandleGetProfile))
	mux.Handle("PUT /api/users/profile", auth(users.HandleUpdateProfile))
	mux.Handle("PUT /api/users/preferences", auth(users.HandleUpdatePreferences))
	mux.Handle("PUT /api/users/password", auth(users.HandleChangePassword))

	mux.Handle("GET /api/users/admin/dashboard", admin(HandleAdminDashboard))
}
