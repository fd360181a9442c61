package store

import (
	"context"
	"sort"
	"sync"

	"contribution-metrics/internal/user/models"
	id "contribution-metrics/pkg/domain"
	"contribution-metrics/pkg/platform/sentinel"
)

// InMemory is a map-backed user store for tests and local runs.
// Email uniqueness and ON DELETE SET NULL for managers mirror the Postgres schema.
type InMemory struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

func NewInMemory() *InMemory {
	return &InMemory{users: make(map[id.UserID]*models.User)}
}

func (s *InMemory) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.users[user.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if s.emailTakenLocked(user.Email, user.ID) {
		return sentinel.ErrAlreadyUsed
	}
	s.users[user.ID] = copyUser(user)
	return nil
}

func (s *InMemory) FindByID(_ context.Context, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return copyUser(u), nil
}

func (s *InMemory) FindByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(_ context.Context) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectLocked(func(*models.User) bool { return true }), nil
}

func (s *InMemory) ListByManager(_ context.Context, managerID id.UserID) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.collectLocked(func(u *models.User) bool { return u.ReportsTo(managerID) }), nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users), nil
}

// Execute loads the user, applies fn and stores the result while holding the write lock.
func (s *InMemory) Execute(_ context.Context, userID id.UserID, fn func(*models.User) (*models.User, error)) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[userID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	next, err := fn(copyUser(current))
	if err != nil {
		return nil, err
	}
	if s.emailTakenLocked(next.Email, userID) {
		return nil, sentinel.ErrAlreadyUsed
	}
	s.users[userID] = copyUser(next)
	return copyUser(next), nil
}

func (s *InMemory) Delete(_ context.Context, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[userID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.users, userID)
	for _, u := range s.users {
		if u.ReportsTo(userID) {
			u.ManagerID = nil
		}
	}
	return nil
}

func (s *InMemory) emailTakenLocked(email string, except id.UserID) bool {
	for _, u := range s.users {
		if u.ID != except && u.Email == email {
			return true
		}
	}
	return false
}

func (s *InMemory) collectLocked(keep func(*models.User) bool) []*models.User {
	out := make([]*models.User, 0, len(s.users))
	for _, u := range s.users {
		if keep(u) {
			out = append(out, copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID.String() < out[j].ID.String()
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

func copyUser(u *models.User) *models.User {
	return u.Clone()
}
