package handler

import (
	"net/http"
)

// HandleAdminDashboard confirms admin access.
// GET /api/users/admin/dashboard
func HandleAdminDashboard(w http.ResponseWriter, r *http.Request) {
	ac := AuthFromContext(r.Context())
	writeSuccess(w, http.StatusOK, envelope{
		Message: "Admin dashboard accessed successfully",
		Data:    map[string]any{"user": callerDTO{ID: ac.AccountID, Email: ac.Email, Role: ac.Role}},
	})
}
