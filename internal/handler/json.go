package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/msomdec/stylist-users/internal/domain"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// writeJSON sends a JSON response with the given status code and data.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("write JSON response", "error", err)
	}
}

// writeSuccess sends a success envelope.
func writeSuccess(w http.ResponseWriter, status int, resp envelope) {
	resp.Success = true
	writeJSON(w, status, resp)
}

// writeError sends a failure envelope with the given status and message.
func writeError(w http.ResponseWriter, status int, code domain.Kind, message string) {
	writeJSON(w, status, envelope{Code: code, Message: message})
}

// writeFailure maps err to a status and its stable message. Raw error text
// is logged, never returned.
func writeFailure(w http.ResponseWriter, r *http.Request, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		de = domain.WrapError(domain.KindStoreFailure, "unclassified handler error", err)
	}

	status := statusForKind(de.Kind)
	if status >= http.StatusInternalServerError {
		slog.ErrorContext(r.Context(), "request failed", "method", r.Method, "path", r.URL.Path, "kind", de.Kind, "error", de)
	} else {
		slog.DebugContext(r.Context(), "request rejected", "method", r.Method, "path", r.URL.Path, "kind", de.Kind)
	}

	message := de.Message()
	if de.Kind == domain.KindInvalidInput && de.Detail != "" {
		message = de.Detail
	}
	writeError(w, status, de.Kind, message)
}

func statusForKind(kind domain.Kind) int {
	switch kind {
	case domain.KindInvalidInput:
		return http.StatusBadRequest
	case domain.KindDuplicateEmail, domain.KindDuplicateIdentity:
		return http.StatusConflict
	case domain.KindInvalidCredentials, domain.KindInvalidToken, domain.KindUnauthorized:
		return http.StatusUnauthorized
	case domain.KindForbidden:
		return http.StatusForbidden
	case domain.KindAccountNotFound, domain.KindNotFound:
		return http.StatusNotFound
	case domain.KindUpstreamFailure:
		return http.StatusBadGateway
	case domain.KindStoreFailure:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// readJSON decodes the request body into the given destination.
func readJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return domain.InvalidInput("invalid request body")
	}
	return nil
}
