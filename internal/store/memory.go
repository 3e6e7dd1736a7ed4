package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/serviapp/serviapp/internal/core"
)

// Memory is an in-memory Store for tests. It enforces the same invariants as
// the persistent drivers: unique record ids, one record per owner, unique
// user emails.
type Memory struct {
	mu       sync.RWMutex
	services map[string]core.ServiceRecord
	users    map[string]User // keyed by user id

	now func() time.Time
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		services: make(map[string]core.ServiceRecord),
		users:    make(map[string]User),
		now:      time.Now,
	}
}

var _ Store = (*Memory)(nil)

// SetClock overrides the timestamp source, for deterministic tests.
func (m *Memory) SetClock(now func() time.Time) { m.now = now }

func (m *Memory) ListByNewest(ctx context.Context) ([]core.ServiceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]core.ServiceRecord, 0, len(m.services))
	for _, r := range m.services {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DataCadastro.Equal(out[j].DataCadastro) {
			return out[i].ID > out[j].ID
		}
		return out[i].DataCadastro.After(out[j].DataCadastro)
	})
	return out, nil
}

func (m *Memory) Get(ctx context.Context, id string) (core.ServiceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rec, ok := m.services[id]
	if !ok {
		return core.ServiceRecord{}, core.ErrNotFound
	}
	return rec, nil
}

func (m *Memory) Insert(ctx context.Context, rec *core.ServiceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.services {
		if existing.UserID == rec.UserID {
			return core.ErrDuplicateOwner
		}
	}
	rec.ID = uuid.New().String()
	rec.DataCadastro = m.now().UTC()
	m.services[rec.ID] = *rec
	return nil
}

func (m *Memory) Update(ctx context.Context, rec core.ServiceRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[rec.ID]; !ok {
		return core.ErrNotFound
	}
	m.services[rec.ID] = rec
	return nil
}

func (m *Memory) Delete(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[id]; !ok {
		return core.ErrNotFound
	}
	delete(m.services, id)
	return nil
}

func (m *Memory) FindByOwner(ctx context.Context, userID string) ([]core.ServiceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []core.ServiceRecord
	for _, r := range m.services {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].DataCadastro.Before(out[j].DataCadastro)
	})
	return out, nil
}

func (m *Memory) Role(ctx context.Context, uid string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.users[uid].Role, nil
}

func (m *Memory) CreateUser(ctx context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	email := strings.ToLower(u.Email)
	for _, existing := range m.users {
		if strings.ToLower(existing.Email) == email {
			return ErrEmailTaken
		}
	}
	u.ID = uuid.New().String()
	u.CreatedAt = m.now().UTC()
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) UserByEmail(ctx context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	email = strings.ToLower(email)
	for _, u := range m.users {
		if strings.ToLower(u.Email) == email {
			return u, nil
		}
	}
	return User{}, core.ErrNotFound
}

func (m *Memory) SetRole(ctx context.Context, uid, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[uid]
	if !ok {
		return core.ErrNotFound
	}
	u.Role = role
	m.users[uid] = u
	return nil
}

func (m *Memory) Close() error { return nil }

// SeedService inserts a fully-formed record (id and timestamp included),
// bypassing the one-per-owner check. Test helper for shaping fixtures.
func (m *Memory) SeedService(rec core.ServiceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[rec.ID] = rec
}
