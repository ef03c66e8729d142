package handler

import (
	"github.com/msomdec/stylist-users/internal/domain"
)

// envelope is the response shape shared by every API endpoint.
type envelope struct {
	Success bool        `json:"success"`
	Message string      `json:"message,omitempty"`
	Code    domain.Kind `json:"code,omitempty"`
	Data    any         `json:"data,omitempty"`
	Token   string      `json:"token,omitempty"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type oauthRequest struct {
	IDToken           string `json:"idToken"`
	AuthorizationCode string `json:"authorizationCode"`
}

type passwordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

type preferencesResponse struct {
	Preferences domain.Preferences `json:"preferences"`
}

// callerDTO is the admin dashboard's view of the authenticated caller.
type callerDTO struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}
