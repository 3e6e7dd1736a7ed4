package core

import (
	"context"
	"log/slog"
)

// Identity is the opaque identity issued by the auth service: a unique id
// and the sign-in email.
type Identity struct {
	UID   string `json:"uid"`
	Email string `json:"email"`
}

// RoleAdmin is the stored role flag value granting administrator rights.
// The per-user role document is the canonical admin source; the static
// allow-list only seeds it at sign-up.
const RoleAdmin = "admin"

// RoleUser is the ordinary-account role flag, used when demoting an admin.
const RoleUser = "user"

// SessionContext is the resolved authorization state for one identity. It is
// derived, never persisted, and recomputed whenever the identity changes.
type SessionContext struct {
	// Identity is nil for anonymous sessions.
	Identity *Identity `json:"identity,omitempty"`

	// IsAdmin is true when the identity's stored role flag equals "admin".
	IsAdmin bool `json:"isAdmin"`

	// OwnedRecordID is the id of the identity's listing, or "" when none.
	OwnedRecordID string `json:"ownedRecordId,omitempty"`
}

// Anonymous is the session for a logged-out caller: no identity, no rights.
func Anonymous() SessionContext { return SessionContext{} }

// CanMutate reports whether the session may update or delete rec.
func (s SessionContext) CanMutate(rec *ServiceRecord) bool {
	if s.Identity == nil {
		return false
	}
	return s.IsAdmin || rec.UserID == s.Identity.UID
}

// Resolve computes the SessionContext for identity. A nil identity resolves
// to the anonymous session without error.
//
// Administrator status comes from the stored per-user role flag. The owned
// record is the one whose userId matches; should more than one exist (a
// data-integrity anomaly the one-record-per-user invariant forbids), the
// first by creation order wins and the anomaly is logged, not fatal.
//
// On remote-read failure the role is indeterminate: the zero-rights session
// is returned together with the error so callers can retry.
func (s *Service) Resolve(ctx context.Context, identity *Identity) (SessionContext, error) {
	if identity == nil {
		return Anonymous(), nil
	}

	sess := SessionContext{Identity: identity}

	role, err := s.store.Role(ctx, identity.UID)
	if err != nil {
		return Anonymous(), remoteErr("store.role", err)
	}
	sess.IsAdmin = role == RoleAdmin

	owned, err := s.store.FindByOwner(ctx, identity.UID)
	if err != nil {
		return Anonymous(), remoteErr("store.findByOwner", err)
	}
	if len(owned) > 0 {
		if len(owned) > 1 {
			slog.Warn("identity owns multiple listings, using oldest",
				"uid", identity.UID,
				"count", len(owned),
			)
		}
		sess.OwnedRecordID = owned[0].ID
	}

	return sess, nil
}
