// Package store provides the document-store collaborator behind the
// "servicos" and "users" collections. Three drivers share one contract:
// postgres (canonical), sqlite (local/dev), and memory (tests).
package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/serviapp/serviapp/internal/core"
)

// Driver names accepted by Open.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverMemory   = "memory"
)

// ErrEmailTaken is returned by CreateUser when the email is already
// registered.
var ErrEmailTaken = errors.New("email already registered")

// User is one document of the "users" collection: sign-in credentials plus
// the per-user role flag (the canonical administrator source).
type User struct {
	ID           string
	Email        string
	PasswordHash string
	Role         string
	CreatedAt    time.Time
}

// Store is the full document-store contract: the record operations consumed
// by core.Service plus the user operations consumed by the auth service.
type Store interface {
	core.RemoteStore

	// CreateUser stores a new user, assigning its ID and CreatedAt.
	// Fails with ErrEmailTaken on a duplicate email.
	CreateUser(ctx context.Context, u *User) error

	// UserByEmail returns the user registered under email, or
	// core.ErrNotFound.
	UserByEmail(ctx context.Context, email string) (User, error)

	// SetRole replaces the stored role flag for uid.
	SetRole(ctx context.Context, uid, role string) error

	// Close releases the underlying connections.
	Close() error
}

// Config selects and configures a driver.
type Config struct {
	Driver string

	// URL is the postgres connection string (postgres driver).
	URL string

	// Path is the database file path (sqlite driver).
	Path string
}

// Open constructs the configured driver.
func Open(ctx context.Context, cfg Config) (Store, error) {
	switch cfg.Driver {
	case DriverPostgres:
		return OpenPostgres(ctx, cfg.URL)
	case DriverSQLite:
		return OpenSQLite(cfg.Path)
	case DriverMemory:
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
