// Package auth is the identity collaborator: email/password sign-up and
// sign-in, opaque signed session tokens, sign-out, identity-change
// notifications, and inactivity-based automatic logout.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/serviapp/serviapp/internal/core"
	"github.com/serviapp/serviapp/internal/store"
	"golang.org/x/crypto/bcrypt"
)

// ErrInvalidCredentials is returned by SignIn for an unknown email or a
// wrong password; the two cases are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid email or password")

// ErrInvalidToken is returned when a presented token is malformed, expired,
// or belongs to no live session (signed out, idle-expired).
var ErrInvalidToken = errors.New("invalid or expired session token")

const minPasswordLen = 6

// UserStore is the slice of the document store the identity service needs.
type UserStore interface {
	CreateUser(ctx context.Context, u *store.User) error
	UserByEmail(ctx context.Context, email string) (store.User, error)
}

// EventType classifies identity-change notifications.
type EventType int

const (
	// EventSignedIn fires after a successful sign-in.
	EventSignedIn EventType = iota
	// EventSignedOut fires after an explicit sign-out or an idle expiry.
	EventSignedOut
)

// Event is one identity change. Idle reports whether a sign-out was caused
// by the inactivity window rather than an explicit request.
type Event struct {
	Type     EventType
	Identity core.Identity
	Token    string
	Idle     bool
}

// Config for the identity service.
type Config struct {
	// Secret signs session tokens.
	Secret string

	// TokenTTL bounds a session's absolute lifetime.
	TokenTTL time.Duration

	// IdleTimeout signs a session out after this window of inactivity.
	// Zero disables idle logout.
	IdleTimeout time.Duration

	// AdminEmails seeds the stored role flag to admin at sign-up for
	// matching addresses. It is never consulted after sign-up; the stored
	// flag is the canonical source.
	AdminEmails []string
}

type session struct {
	identity core.Identity
	idle     *IdleTimer
}

// Service issues identities and owns the live session table.
type Service struct {
	users       UserStore
	key         []byte
	tokenTTL    time.Duration
	idleTimeout time.Duration
	adminEmails map[string]bool
	now         func() time.Time

	mu        sync.Mutex
	sessions  map[string]*session // token -> session
	listeners []func(Event)
}

// NewService validates cfg and builds the identity service.
func NewService(users UserStore, cfg Config) (*Service, error) {
	if strings.TrimSpace(cfg.Secret) == "" {
		return nil, errors.New("auth secret is required")
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	admins := make(map[string]bool, len(cfg.AdminEmails))
	for _, e := range cfg.AdminEmails {
		e = strings.ToLower(strings.TrimSpace(e))
		if e != "" {
			admins[e] = true
		}
	}
	return &Service{
		users:       users,
		key:         []byte(cfg.Secret),
		tokenTTL:    ttl,
		idleTimeout: cfg.IdleTimeout,
		adminEmails: admins,
		now:         time.Now,
		sessions:    make(map[string]*session),
	}, nil
}

// Subscribe registers a listener for identity-change events. Listeners are
// invoked synchronously on sign-in and sign-out, in registration order.
func (s *Service) Subscribe(fn func(Event)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// SignUp registers a new user and returns its identity. Emails on the admin
// allow-list get the admin role flag stored at creation.
func (s *Service) SignUp(ctx context.Context, email, password string) (core.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || !strings.Contains(email, "@") {
		return core.Identity{}, core.NewValidationError("email", "endereço de email inválido")
	}
	if len(password) < minPasswordLen {
		return core.Identity{}, core.NewValidationError("senha", fmt.Sprintf("a senha deve ter pelo menos %d caracteres", minPasswordLen))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return core.Identity{}, fmt.Errorf("hash password: %w", err)
	}

	u := store.User{Email: email, PasswordHash: string(hash)}
	if s.adminEmails[email] {
		u.Role = core.RoleAdmin
	}
	if err := s.users.CreateUser(ctx, &u); err != nil {
		return core.Identity{}, err
	}

	slog.Info("user signed up", "uid", u.ID, "admin", u.Role == core.RoleAdmin)
	return core.Identity{UID: u.ID, Email: u.Email}, nil
}

// SignIn verifies credentials and opens a session, returning its token.
func (s *Service) SignIn(ctx context.Context, email, password string) (string, core.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))

	u, err := s.users.UserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return "", core.Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return "", core.Identity{}, fmt.Errorf("look up user: %w", err)
	}
	if bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		return "", core.Identity{}, ErrInvalidCredentials
	}

	identity := core.Identity{UID: u.ID, Email: u.Email}
	token, err := mintToken(s.key, tokenClaims{
		UID:   identity.UID,
		Email: identity.Email,
		Exp:   s.now().Add(s.tokenTTL).Unix(),
	})
	if err != nil {
		return "", core.Identity{}, err
	}

	sess := &session{identity: identity}
	if s.idleTimeout > 0 {
		sess.idle = NewIdleTimer(s.idleTimeout, func() {
			s.expireIdle(token)
		})
	}

	s.mu.Lock()
	s.sessions[token] = sess
	s.mu.Unlock()

	s.emit(Event{Type: EventSignedIn, Identity: identity, Token: token})
	slog.Info("user signed in", "uid", identity.UID)
	return token, identity, nil
}

// SignOut tears down the session for token. Unknown tokens are a no-op.
func (s *Service) SignOut(token string) {
	s.endSession(token, false)
}

// IdentityFromToken validates token against the signature, expiry, and the
// live session table, and registers activity on the idle timer.
func (s *Service) IdentityFromToken(token string) (core.Identity, error) {
	if _, err := parseToken(s.key, token, s.now()); err != nil {
		// A token past its absolute TTL may still have a live entry in the
		// session table when the idle timer is disabled. Drop it so the
		// table does not accumulate dead sessions.
		s.endSession(token, false)
		return core.Identity{}, ErrInvalidToken
	}

	s.mu.Lock()
	sess, ok := s.sessions[token]
	s.mu.Unlock()
	if !ok {
		return core.Identity{}, ErrInvalidToken
	}

	if sess.idle != nil {
		sess.idle.Touch()
	}
	return sess.identity, nil
}

// expireIdle is the idle timer callback: sign the session out and report the
// cause.
func (s *Service) expireIdle(token string) {
	slog.Info("session expired after inactivity")
	s.endSession(token, true)
}

func (s *Service) endSession(token string, idle bool) {
	s.mu.Lock()
	sess, ok := s.sessions[token]
	if ok {
		delete(s.sessions, token)
	}
	s.mu.Unlock()
	if !ok {
		return
	}

	if sess.idle != nil {
		sess.idle.Stop()
	}
	s.emit(Event{Type: EventSignedOut, Identity: sess.identity, Token: token, Idle: idle})
	slog.Info("user signed out", "uid", sess.identity.UID, "idle", idle)
}

func (s *Service) emit(ev Event) {
	s.mu.Lock()
	listeners := append(([]func(Event))(nil), s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(ev)
	}
}

// ActiveSessions returns the number of live sessions.
func (s *Service) ActiveSessions() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
