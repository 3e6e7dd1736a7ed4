package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/serviapp/serviapp/internal/core"
)

// pgUniqueViolation is the Postgres error code for unique-constraint
// violations.
const pgUniqueViolation = "23505"

const pgSchema = `
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
	data_cadastro TIMESTAMPTZ NOT NULL,
	user_id       TEXT NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS servicos_user_id_key ON servicos (user_id);

CREATE TABLE IF NOT EXISTS users (
	id            TEXT PRIMARY KEY,
	email         TEXT NOT NULL,
	password_hash TEXT NOT NULL,
	role          TEXT NOT NULL DEFAULT '',
	created_at    TIMESTAMPTZ NOT NULL
);
CREATE UNIQUE INDEX IF NOT EXISTS users_email_key ON users (lower(email));
`

const serviceColumns = "id, nome, categoria, servico, telefone, email, estado, cidade, logo_url, data_cadastro, user_id"

// Postgres is the canonical persistent Store, backed by a pgx pool. The
// one-record-per-owner invariant is enforced by the unique index on
// servicos.user_id rather than relying only on the resolver pre-check.
type Postgres struct {
	pool *pgxpool.Pool
}

var _ Store = (*Postgres)(nil)

// OpenPostgres connects, verifies the connection, and applies the schema.
func OpenPostgres(ctx context.Context, url string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	if _, err := pool.Exec(ctx, pgSchema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// NewPostgres wraps an existing pool (the pool's lifecycle stays with the
// caller).
func NewPostgres(pool *pgxpool.Pool) *Postgres { return &Postgres{pool: pool} }

func (p *Postgres) ListByNewest(ctx context.Context) ([]core.ServiceRecord, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT "+serviceColumns+" FROM servicos ORDER BY data_cadastro DESC, id DESC")
	if err != nil {
		return nil, fmt.Errorf("list servicos: %w", err)
	}
	defer rows.Close()
	return scanServices(rows)
}

func (p *Postgres) Get(ctx context.Context, id string) (core.ServiceRecord, error) {
	row := p.pool.QueryRow(ctx,
		"SELECT "+serviceColumns+" FROM servicos WHERE id = $1", id)
	rec, err := scanService(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.ServiceRecord{}, core.ErrNotFound
	}
	if err != nil {
		return core.ServiceRecord{}, fmt.Errorf("get servico: %w", err)
	}
	return rec, nil
}

func (p *Postgres) Insert(ctx context.Context, rec *core.ServiceRecord) error {
	rec.ID = uuid.New().String()
	rec.DataCadastro = time.Now().UTC()

	_, err := p.pool.Exec(ctx, `
		INSERT INTO servicos (`+serviceColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		rec.ID, rec.Nome, rec.Categoria, rec.Servico, rec.Telefone, rec.Email,
		rec.Estado, rec.Cidade, rec.LogoURL, rec.DataCadastro, rec.UserID)
	if isPgUnique(err, "servicos_user_id_key") {
		return core.ErrDuplicateOwner
	}
	if err != nil {
		return fmt.Errorf("insert servico: %w", err)
	}
	return nil
}

func (p *Postgres) Update(ctx context.Context, rec core.ServiceRecord) error {
	tag, err := p.pool.Exec(ctx, `
		UPDATE servicos
		SET nome = $2, categoria = $3, servico = $4, telefone = $5, email = $6,
		    estado = $7, cidade = $8, logo_url = $9, user_id = $10
		WHERE id = $1`,
		rec.ID, rec.Nome, rec.Categoria, rec.Servico, rec.Telefone, rec.Email,
		rec.Estado, rec.Cidade, rec.LogoURL, rec.UserID)
	if err != nil {
		return fmt.Errorf("update servico: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (p *Postgres) Delete(ctx context.Context, id string) error {
	tag, err := p.pool.Exec(ctx, "DELETE FROM servicos WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete servico: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (p *Postgres) FindByOwner(ctx context.Context, userID string) ([]core.ServiceRecord, error) {
	rows, err := p.pool.Query(ctx,
		"SELECT "+serviceColumns+" FROM servicos WHERE user_id = $1 ORDER BY data_cadastro ASC",
		userID)
	if err != nil {
		return nil, fmt.Errorf("find servicos by owner: %w", err)
	}
	defer rows.Close()
	return scanServices(rows)
}

func (p *Postgres) Role(ctx context.Context, uid string) (string, error) {
	var role string
	err := p.pool.QueryRow(ctx, "SELECT role FROM users WHERE id = $1", uid).Scan(&role)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("get user role: %w", err)
	}
	return role, nil
}

func (p *Postgres) CreateUser(ctx context.Context, u *User) error {
	u.ID = uuid.New().String()
	u.CreatedAt = time.Now().UTC()

	_, err := p.pool.Exec(ctx, `
		INSERT INTO users (id, email, password_hash, role, created_at)
		VALUES ($1, $2, $3, $4, $5)`,
		u.ID, u.Email, u.PasswordHash, u.Role, u.CreatedAt)
	if isPgUnique(err, "users_email_key") {
		return ErrEmailTaken
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (User, error) {
	var u User
	err := p.pool.QueryRow(ctx, `
		SELECT id, email, password_hash, role, created_at
		FROM users WHERE lower(email) = lower($1)`, email).
		Scan(&u.ID, &u.Email, &u.PasswordHash, &u.Role, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return User{}, core.ErrNotFound
	}
	if err != nil {
		return User{}, fmt.Errorf("get user by email: %w", err)
	}
	return u, nil
}

func (p *Postgres) SetRole(ctx context.Context, uid, role string) error {
	tag, err := p.pool.Exec(ctx, "UPDATE users SET role = $2 WHERE id = $1", uid, role)
	if err != nil {
		return fmt.Errorf("set user role: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (p *Postgres) Close() error {
	p.pool.Close()
	return nil
}

// isPgUnique reports whether err is a unique violation on the named
// constraint.
func isPgUnique(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	return pgErr.Code == pgUniqueViolation &&
		(pgErr.ConstraintName == constraint || strings.Contains(pgErr.Message, constraint))
}

// rowScanner covers pgx.Row and pgx.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanService(row rowScanner) (core.ServiceRecord, error) {
	var rec core.ServiceRecord
	err := row.Scan(&rec.ID, &rec.Nome, &rec.Categoria, &rec.Servico,
		&rec.Telefone, &rec.Email, &rec.Estado, &rec.Cidade,
		&rec.LogoURL, &rec.DataCadastro, &rec.UserID)
	return rec, err
}

func scanServices(rows pgx.Rows) ([]core.ServiceRecord, error) {
	var out []core.ServiceRecord
	for rows.Next() {
		rec, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan servico: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}
