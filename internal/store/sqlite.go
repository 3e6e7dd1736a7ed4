package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/serviapp/serviapp/internal/core"

	_ "modernc.org/sqlite" // pure go sqlite driver
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS servicos (
	id            TEXT PRIMARY KEY,
	nome          TEXT NOT NULL,
	categoria     TEXT NOT NULL,
	servico       TEXT NOT NULL,
	telefone      TEXT NOT NULL,
	email         TEXT NOT NULL DEFAULT '',
	estado        TEXT NOT NULL,
	cidade        TEXT NOT NULL,
	logo_url      TEXT NOT NULL DEFAULT '',
	data_cadastro TIMESTAMP NOT NULL,
	user_id       TEXT NOT NULL UNIQUE
);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL UNIQUE COLLATE NOCASE,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMP NOT NULL
);
`

// SQLite is a single-file Store for local development, mirroring the
// Postgres semantics including the schema-level one-record-per-owner
// constraint.
type SQLite struct {
	db *sql.DB
}

var _ Store = (*SQLite)(nil)

// OpenSQLite opens (creating if needed) the database file and applies the
// schema.
func OpenSQLite(path string) (*SQLite, error) {
	if path == "" {
		path = "serviapp.db"
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil && !errors.Is(err, os.ErrExist) {
			return nil, fmt.Errorf("create dirs: %w", err)
		}
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) ListByNewest(ctx context.Context) ([]core.ServiceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+serviceColumns+" FROM servicos ORDER BY data_cadastro DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list servicos: %w", err)
	}
	defer rows.Close()

	var out []core.ServiceRecord
	for rows.Next() {
		rec, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan servico: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Get(ctx context.Context, id string) (core.ServiceRecord, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+serviceColumns+" FROM servicos WHERE id = ?", id)
	rec, err := scanService(row)
	if errors.Is(err, sql.ErrNoRows) {
		return core.ServiceRecord{}, core.ErrNotFound
	}
	if err != nil {
		return core.ServiceRecord{}, fmt.Errorf("get servico: %w", err)
	}
	return rec, nil
}

func (s *SQLite) Insert(ctx context.Context, rec *core.ServiceRecord) error {
	rec.ID = uuid.New().String()
	rec.DataCadastro = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO servicos (`+serviceColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Nome, rec.Categoria, rec.Servico, rec.Telefone, rec.Email,
		rec.Estado, rec.Cidade, rec.LogoURL, rec.DataCadastro, rec.UserID)
	if isSQLiteUnique(err, "servicos.user_id") {
		return core.ErrDuplicateOwner
	}
	if err != nil {
		return fmt.Errorf("insert servico: %w", err)
	}
	return nil
}

func (s *SQLite) Update(ctx context.Context, rec core.ServiceRecord) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE servicos
		SET nome = ?, categoria = ?, servico = ?, telefone = ?, email = ?,
		    estado = ?, cidade = ?, logo_url = ?, user_id = ?
		WHERE id = ?`,
		rec.Nome, rec.Categoria, rec.Servico, rec.Telefone, rec.Email,
		rec.Estado, rec.Cidade, rec.LogoURL, rec.UserID, rec.ID)
	if err != nil {
		return fmt.Errorf("update servico: %w", err)
	}
	return requireRow(res)
}

func (s *SQLite) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM servicos WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete servico: %w", err)
	}
	return requireRow(res)
}

func (s *SQLite) FindByOwner(ctx context.Context, userID string) ([]core.ServiceRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+serviceColumns+" FROM servicos WHERE user_id = ? ORDER BY data_cadastro ASC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("find servicos by owner: %w", err)
	}
	defer rows.Close()

	var out []core.ServiceRecord
	for rows.Next() {
		rec, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan servico: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *SQLite) Role(ctx context.Context, uid string) (string, error) {
	var role string
	err := s.db.QueryRowContext(ctx, "SELECT role FROM users WHERE id = ?", uid).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get user role: %w", err)
	}
	return role, nil
}

func (s *SQLite) CreateUser(ctx context.Context, u *User) error {
	u.ID = uuid.New().String()
	u.CreatedAt = time.Now().UTC()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO users (id, email, password_hash, role, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		u.ID, u.Email, u.PasswordHash, u.Role, u.CreatedAt)
	if isSQLiteUnique(err, "users.email") {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (s *SQLite) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, email, password_hash, role, created_at
		FROM users WHERE email = ?`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, core.ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (s *SQLite) SetRole(ctx context.Context, uid, role string) error {
	res, err := s.db.ExecContext(ctx, "UPDATE users SET role = ? WHERE id = ?", role, uid)
	if err != nil {
		return fmt.Errorf("set user role: %w", err)
	}
	return requireRow(res)
}

func (s *SQLite) Close() error { return s.db.Close() }

// isSQLiteUnique reports whether err is a unique violation on the named
// column ("table.column" as sqlite formats it).
func isSQLiteUnique(err error, column string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, column)
}

// requireRow maps a zero-row result to core.ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}
