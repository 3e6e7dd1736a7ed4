package web

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/serviapp/serviapp/internal/core"
)

// credentialsRequest is the body for sign-up and sign-in.
type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// sessionResponse describes the caller's resolved session.
type sessionResponse struct {
	Authenticated bool   `json:"authenticated"`
	UID           string `json:"uid,omitempty"`
	Email         string `json:"email,omitempty"`
	IsAdmin       bool   `json:"isAdmin"`
	RecordID      string `json:"recordId,omitempty"`
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "corpo da requisição inválido")
		return
	}

	identity, err := s.auth.SignUp(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	// Sign the new account in immediately, matching the sign-up flow
	// clients expect.
	token, identity, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"token": token,
		"uid":   identity.UID,
		"email": identity.Email,
	})
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "corpo da requisição inválido")
		return
	}

	token, identity, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"token": token,
		"uid":   identity.UID,
		"email": identity.Email,
	})
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token := tokenFrom(r.Context())
	if token != "" {
		s.auth.SignOut(token)
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "signed out"})
}

// handleSession reports the caller's session context: whether it is
// authenticated, its role, and the record it owns, if any.
func (s *Server) handleSession(w http.ResponseWriter, r *http.Request) {
	sess := sessionFrom(r.Context())
	resp := sessionResponse{IsAdmin: sess.IsAdmin}
	if sess.Identity != nil {
		resp.Authenticated = true
		resp.UID = sess.Identity.UID
		resp.Email = sess.Identity.Email
		resp.RecordID = sess.OwnedRecordID
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSetUserRole promotes or demotes an account. The authorization check
// lives in the domain service; this handler only shapes the request.
func (s *Server) handleSetUserRole(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.requireIdentity(w, r)
	if !ok {
		return
	}

	var req struct {
		Papel string `json:"papel"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		badRequest(w, "corpo da requisição inválido")
		return
	}

	uid := chi.URLParam(r, "uid")
	if err := s.service.SetUserRole(r.Context(), sess, uid, req.Papel); err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"uid": uid, "papel": req.Papel})
}

// requireIdentity returns the session when the caller is authenticated,
// responding 401 otherwise.
func (s *Server) requireIdentity(w http.ResponseWriter, r *http.Request) (core.SessionContext, bool) {
	sess := sessionFrom(r.Context())
	if sess.Identity == nil {
		s.respondError(w, r, core.ErrUnauthorized)
		return core.SessionContext{}, false
	}
	return sess, true
}
