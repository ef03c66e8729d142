package handler

import (
	"net/http"

	"github.com/msomdec/stylist-users/internal/domain"
	"github.com/msomdec/stylist-users/internal/service"
)

// UserHandler serves the /api/users endpoints.
type UserHandler struct {
	resolver *service.Resolver
}

// NewUserHandler creates a new UserHandler.
func NewUserHandler(resolver *service.Resolver) *UserHandler {
	return &UserHandler{resolver: resolver}
}

// HandleIndex lists the user API routes.
// GET /api/users/
func (h *UserHandler) HandleIndex(w http.ResponseWriter, r *http.Request) {
	paths := make([]string, 0, len(apiRoutes))
	for _, rt := range apiRoutes {
		paths = append(paths, rt.Method+" "+rt.Path)
	}
	writeSuccess(w, http.StatusOK, envelope{
		Message: "User API is working",
		Data:    map[string]any{"availableRoutes": paths},
	})
}

// HandleRegister creates a local account.
// POST /api/users/register
// Request:  {"name":"...","email":"...","password":"..."}
// Response: {"success":true,"data":{...},"token":"..."}
func (h *UserHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := readJSON(w, r, &req); err != nil {
		writeFailure(w, r, err)
		return
	}
	if req.Name == "" || req.Email == "" || req.Password == "" {
		writeFailure(w, r, domain.InvalidInput("please provide name, email, and password"))
		return
	}

	session, err := h.resolver.RegisterLocal(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, envelope{Data: session.Account, Token: session.Token})
}

// HandleLogin signs in with email and password.
// POST /api/users/login
// Request:  {"email":"...","password":"..."}
func (h *UserHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := readJSON(w, r, &req); err != nil {
		writeFailure(w, r, err)
		return
	}

	session, err := h.resolver.LoginLocal(r.Context(), req.Email, req.Password)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{Data: session.Account, Token: session.Token})
}

// HandleGoogleAuth signs in with a Google ID token.
// POST /api/users/auth/google
// Request: {"idToken":"..."}
func (h *UserHandler) HandleGoogleAuth(w http.ResponseWriter, r *http.Request) {
	var req oauthRequest
	if err := readJSON(w, r, &req); err != nil {
		writeFailure(w, r, err)
		return
	}
	if req.IDToken == "" {
		writeFailure(w, r, domain.InvalidInput("please provide Google ID token"))
		return
	}

	h.oauth(w, r, domain.ProviderGoogle, domain.OAuthCredential{IDToken: req.IDToken})
}

// HandleAppleAuth signs in with an Apple ID token or authorization code.
// POST /api/users/auth/apple
// Request: {"idToken":"..."} or {"authorizationCode":"..."}
func (h *UserHandler) HandleAppleAuth(w http.ResponseWriter, r *http.Request) {
	var req oauthRequest
	if err := readJSON(w, r, &req); err != nil {
		writeFailure(w, r, err)
		return
	}
	if req.IDToken == "" && req.AuthorizationCode == "" {
		writeFailure(w, r, domain.InvalidInput("please provide Apple ID token"))
		return
	}

	h.oauth(w, r, domain.ProviderApple, domain.OAuthCredential{
		IDToken:           req.IDToken,
		AuthorizationCode: req.AuthorizationCode,
	})
}

func (h *UserHandler) oauth(w http.ResponseWriter, r *http.Request, provider domain.Provider, cred domain.OAuthCredential) {
	session, err := h.resolver.AuthenticateOAuth(r.Context(), provider, cred)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{Data: session.Account, Token: session.Token})
}

// HandleGetProfile returns the caller's profile.
// GET /api/users/profile
func (h *UserHandler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	ac := AuthFromContext(r.Context())

	profile, err := h.resolver.GetProfile(r.Context(), ac.AccountID)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{Data: profile})
}

// HandleUpdateProfile patches the caller's profile. Password and role in
// the body are ignored.
// PUT /api/users/profile
func (h *UserHandler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ac := AuthFromContext(r.Context())

	var req service.ProfileUpdate
	if err := readJSON(w, r, &req); err != nil {
		writeFailure(w, r, err)
		return
	}

	profile, err := h.resolver.UpdateProfile(r.Context(), ac.AccountID, req)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{Data: profile})
}

// HandleUpdatePreferences replaces the caller's preferences with the body.
// PUT /api/users/preferences
func (h *UserHandler) HandleUpdatePreferences(w http.ResponseWriter, r *http.Request) {
	ac := AuthFromContext(r.Context())

	var prefs domain.Preferences
	if err := readJSON(w, r, &prefs); err != nil {
		writeFailure(w, r, err)
		return
	}

	updated, err := h.resolver.UpdatePreferences(r.Context(), ac.AccountID, prefs)
	if err != nil {
		writeFailure(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{Data: preferencesResponse{Preferences: *updated}})
}

// HandleChangePassword sets a new password for the caller.
// PUT /api/users/password
// Request: {"currentPassword":"...","newPassword":"..."}
func (h *UserHandler) HandleChangePassword(w http.ResponseWriter, r *http.Request) {
	ac := AuthFromContext(r.Context())

	var req passwordRequest
	if err := readJSON(w, r, &req); err != nil {
		writeFailure(w, r, err)
		return
	}

	if err := h.resolver.ChangePassword(r.Context(), ac.AccountID, req.CurrentPassword, req.NewPassword); err != nil {
		writeFailure(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, envelope{Message: "Password updated"})
}
