package repository

import (
	"context"
	"sync"
	"time"

	"github.com/Dan9191/social-auth/internal/models"
)

// MemoryStore is a map-backed user store with the same lookup semantics as
// the Postgres one. It backs the service when DB_CONN is "memory".
type MemoryStore struct {
	mu     sync.Mutex
	users  []*models.User
	nextID int64
	open   int
	// FailWith, when set, is returned by every lookup.
	FailWith error
}

// NewMemoryStore returns an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{nextID: 1}
}

// Session opens a handle on the store. Each handle must be closed.
func (m *MemoryStore) Session(ctx context.Context) (*MemorySession, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.Lock()
	m.open++
	m.mu.Unlock()
	return &MemorySession{store: m}, nil
}

// OpenSessions reports how many sessions have not been closed yet
func (m *MemoryStore) OpenSessions() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.open
}

// MemorySession implements the user queries against a MemoryStore
type MemorySession struct {
	store  *MemoryStore
	closed bool
}

// Close releases the session. Closing twice is a no-op.
func (s *MemorySession) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.store.mu.Lock()
	s.store.open--
	s.store.mu.Unlock()
	return nil
}

func (s *MemorySession) CreateUser(_ context.Context, user *models.User) error {
	m := s.store
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, u := range m.users {
		if u.Email == user.Email {
			return ErrEmailExists
		}
		if u.Username == user.Username {
			return ErrUsernameExists
		}
	}
	user.ID = m.nextID
	user.CreatedAt = time.Now().UTC()
	m.nextID++
	stored := *user
	m.users = append(m.users, &stored)
	return nil
}

func (s *MemorySession) FindUserByEmail(_ context.Context, email string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Email == email })
}

func (s *MemorySession) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.Username == username })
}

func (s *MemorySession) FindUserByID(_ context.Context, id int64) (*models.User, error) {
	return s.find(func(u *models.User) bool { return u.ID == id })
}

func (s *MemorySession) find(match func(*models.User) bool) (*models.User, error) {
	m := s.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailWith != nil {
		return nil, m.FailWith
	}
	for _, u := range m.users {
		if match(u) {
			found := *u
			return &found, nil
		}
	}
	return nil, ErrUserNotFound
}
