package web

// errors.go provides unified error response handling for the web layer.
//
// Handlers call respondError(w, r, err); the error is classified into an
// HTTP status, logged with full technical detail server-side, and returned
// to the client as the user-friendly message core.MapError produces.

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/serviapp/serviapp/internal/auth"
	"github.com/serviapp/serviapp/internal/core"
	"github.com/serviapp/serviapp/internal/store"
)

// ErrorResponse is the JSON structure for error responses: machine-readable
// code plus human-readable message and suggested action.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

// respondError logs the technical error and writes the mapped user message
// with the status implied by the error kind.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := userMessage(err)

	slog.Error("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
		"request_id", middleware.GetReqID(r.Context()),
	)

	writeJSON(w, status, ErrorResponse{
		Error:   userMsg.Message,
		Message: userMsg.Message,
		Action:  userMsg.Action,
		Code:    userMsg.Code,
	})
}

// userMessage resolves the user-facing message for an error. Auth and
// account errors originate outside the domain package, so they are
// translated here before deferring to core.MapError.
func userMessage(err error) core.UserMessage {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return core.UserMessage{
			Message: "Email ou senha incorretos.",
			Action:  "Verifique seus dados e tente novamente.",
			Code:    "AUTH004",
		}
	case errors.Is(err, auth.ErrInvalidToken):
		return core.UserMessage{
			Message: "Sua sessão expirou.",
			Action:  "Faça login novamente.",
			Code:    "AUTH002",
		}
	case errors.Is(err, store.ErrEmailTaken):
		return core.UserMessage{
			Message: "Este email já está cadastrado.",
			Action:  "Faça login ou use outro email.",
			Code:    "AUTH003",
		}
	}
	return core.MapError(err)
}

// statusFor maps domain error kinds to HTTP statuses.
func statusFor(err error) int {
	var ve *core.ValidationError
	var re *core.RemoteError

	switch {
	case errors.Is(err, core.ErrUnauthorized),
		errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, core.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, core.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, core.ErrDuplicateOwner),
		errors.Is(err, store.ErrEmailTaken):
		return http.StatusConflict
	case errors.Is(err, core.ErrEmptySelection), errors.As(err, &ve):
		return http.StatusBadRequest
	case errors.As(err, &re):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// writeJSON encodes v with the given status. Encoding errors are logged;
// headers are already sent by then.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("json encode error", "error", err)
	}
}

// badRequest writes a plain 400 with a literal message, for malformed
// requests that never reached the domain.
func badRequest(w http.ResponseWriter, message string) {
	writeJSON(w, http.StatusBadRequest, ErrorResponse{
		Error:   message,
		Message: message,
		Code:    "REQ400",
	})
}
