package auth

import (
	"context"
	"database/sql"
	"sync"
	"time"

	"github.com/iliyamo/auth-service/internal/model"
)

// In-memory store fakes backing the service and sweeper tests.  They
// honor the same error contract as the MySQL repositories: sql.ErrNoRows
// for missing rows, ErrConflict for duplicate emails.

type memUserStore struct {
	mu     sync.Mutex
	nextID uint64
	users  map[uint64]model.User
}

func newMemUserStore() *memUserStore {
	return &memUserStore{nextID: 1, users: map[uint64]model.User{}}
}

func (m *memUserStore) Create(_ context.Context, u model.User) (uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return 0, ErrConflict
		}
	}
	u.ID = m.nextID
	m.nextID++
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	m.users[u.ID] = u
	return u.ID, nil
}

func (m *memUserStore) GetByEmail(_ context.Context, email string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (m *memUserStore) GetByID(_ context.Context, id uint64) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return model.User{}, sql.ErrNoRows
	}
	return u, nil
}

func (m *memUserStore) GetByExternalID(_ context.Context, externalID string) (model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.ExternalID != nil && *u.ExternalID == externalID {
			return u, nil
		}
	}
	return model.User{}, sql.ErrNoRows
}

func (m *memUserStore) UpdateRole(_ context.Context, id uint64, role string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[id]
	if !ok {
		return sql.ErrNoRows
	}
	u.Role = role
	m.users[id] = u
	return nil
}

func (m *memUserStore) Delete(_ context.Context, id uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.users, id)
	return nil
}

func (m *memUserStore) List(_ context.Context, offset, limit int) ([]model.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.User
	for _, u := range m.users {
		out = append(out, u)
	}
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

type memTokenStore struct {
	mu      sync.Mutex
	nextID  uint64
	records []model.RefreshTokenRecord
}

func newMemTokenStore() *memTokenStore {
	return &memTokenStore{nextID: 1}
}

func (m *memTokenStore) Append(_ context.Context, userID uint64, token string, createdAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records = append(m.records, model.RefreshTokenRecord{
		ID:        m.nextID,
		UserID:    userID,
		Token:     token,
		CreatedAt: createdAt,
	})
	m.nextID++
	return nil
}

func (m *memTokenStore) Contains(_ context.Context, userID uint64, token string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, r := range m.records {
		if r.UserID == userID && r.Token == token {
			return true, nil
		}
	}
	return false, nil
}

func (m *memTokenStore) RemoveOne(_ context.Context, userID uint64, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	for _, r := range m.records {
		if r.UserID == userID && r.Token == token {
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return nil
}

func (m *memTokenStore) RemoveAll(_ context.Context, userID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	kept := m.records[:0]
	for _, r := range m.records {
		if r.UserID != userID {
			kept = append(kept, r)
		}
	}
	m.records = kept
	return nil
}

func (m *memTokenStore) ListForUser(_ context.Context, userID uint64) ([]model.RefreshTokenRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []model.RefreshTokenRecord
	for _, r := range m.records {
		if r.UserID == userID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (m *memTokenStore) UsersWithTokens(_ context.Context) ([]uint64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	seen := map[uint64]bool{}
	var out []uint64
	for _, r := range m.records {
		if !seen[r.UserID] {
			seen[r.UserID] = true
			out = append(out, r.UserID)
		}
	}
	return out, nil
}

func (m *memTokenStore) RemoveByID(_ context.Context, userID uint64, ids []uint64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	drop := map[uint64]bool{}
	for _, id := range ids {
		drop[id] = true
	}
	removed := 0
	kept := m.records[:0]
	for _, r := range m.records {
		if r.UserID == userID && drop[r.ID] {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return removed, nil
}

func (m *memTokenStore) RemoveOlderThan(_ context.Context, cutoff time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	removed := 0
	kept := m.records[:0]
	for _, r := range m.records {
		if r.CreatedAt.Before(cutoff) {
			removed++
			continue
		}
		kept = append(kept, r)
	}
	m.records = kept
	return removed, nil
}

func (m *memTokenStore) count(userID uint64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, r := range m.records {
		if r.UserID == userID {
			n++
		}
	}
	return n
}

// memAudit records events in memory; failures can be injected to check
// the log-and-continue policy.
type memAudit struct {
	mu     sync.Mutex
	events []string
	fail   bool
}

func (m *memAudit) Record(_ context.Context, userID uint64, action string, success bool, _ string, _ Meta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.fail {
		return context.DeadlineExceeded
	}
	m.events = append(m.events, action)
	return nil
}
