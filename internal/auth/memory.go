package auth

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/elnino282/acm-backend/internal/ids"
)

// MemoryUserStore is an in-process UserStore used by tests and by the API
// when no database is configured.
type MemoryUserStore struct {
	mu     sync.RWMutex
	byID   map[string]*User
	byName map[string]string // lowercased username -> id
}

// NewMemoryUserStore returns an empty in-process user store.
func NewMemoryUserStore() *MemoryUserStore {
	return &MemoryUserStore{
		byID:   make(map[string]*User),
		byName: make(map[string]string),
	}
}

func (s *MemoryUserStore) Create(_ context.Context, u *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := strings.ToLower(u.Username)
	if _, exists := s.byName[key]; exists {
		return ErrUsernameTaken
	}
	if u.ID == "" {
		u.ID = ids.New()
	}
	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	cp := cloneUser(u)
	s.byID[u.ID] = cp
	s.byName[key] = u.ID
	return nil
}

func (s *MemoryUserStore) Find(_ context.Context, id string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(u), nil
}

func (s *MemoryUserStore) FindByUsername(_ context.Context, username string) (*User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	id, ok := s.byName[strings.ToLower(strings.TrimSpace(username))]
	if !ok {
		return nil, ErrUserNotFound
	}
	return cloneUser(s.byID[id]), nil
}

func cloneUser(u *User) *User {
	cp := *u
	cp.Roles = append([]Role(nil), u.Roles...)
	return &cp
}
