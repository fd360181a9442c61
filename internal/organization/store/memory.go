package store

import (
	"context"
	"sort"
	"sync"

	"contribution-metrics/internal/organization/models"
	id "contribution-metrics/pkg/domain"
	"contribution-metrics/pkg/platform/sentinel"
)

type record struct {
	org   models.Organization
	token string
}

// InMemory is a map-backed organization store for tests and local runs.
type InMemory struct {
	mu   sync.RWMutex
	orgs map[id.OrganizationID]*record
}

func NewInMemory() *InMemory {
	return &InMemory{orgs: make(map[id.OrganizationID]*record)}
}

func (s *InMemory) Create(_ context.Context, org *models.Organization, accessToken string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.orgs[org.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if s.nameTakenLocked(org.Name, org.ID) {
		return sentinel.ErrAlreadyUsed
	}
	s.orgs[org.ID] = &record{org: *org, token: accessToken}
	return nil
}

func (s *InMemory) FindByID(_ context.Context, orgID id.OrganizationID) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.orgs[orgID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	org := rec.org
	return &org, nil
}

func (s *InMemory) FindByName(_ context.Context, name string) (*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, rec := range s.orgs {
		if rec.org.Name == name {
			org := rec.org
			return &org, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(_ context.Context) ([]*models.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*models.Organization, 0, len(s.orgs))
	for _, rec := range s.orgs {
		org := rec.org
		out = append(out, &org)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *InMemory) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.orgs), nil
}

func (s *InMemory) Execute(ctx context.Context, orgID id.OrganizationID, fn func(*models.Organization) (*models.Organization, error)) (*models.Organization, error) {
	return s.mutate(orgID, nil, fn)
}

func (s *InMemory) RotateToken(_ context.Context, orgID id.OrganizationID, accessToken string, fn func(*models.Organization) (*models.Organization, error)) (*models.Organization, error) {
	return s.mutate(orgID, &accessToken, fn)
}

func (s *InMemory) AccessToken(_ context.Context, orgID id.OrganizationID) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.orgs[orgID]
	if !ok {
		return "", sentinel.ErrNotFound
	}
	return rec.token, nil
}

func (s *InMemory) Delete(_ context.Context, orgID id.OrganizationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.orgs[orgID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.orgs, orgID)
	return nil
}

func (s *InMemory) mutate(orgID id.OrganizationID, token *string, fn func(*models.Organization) (*models.Organization, error)) (*models.Organization, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.orgs[orgID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	current := rec.org
	next, err := fn(&current)
	if err != nil {
		return nil, err
	}
	if s.nameTakenLocked(next.Name, orgID) {
		return nil, sentinel.ErrAlreadyUsed
	}
	rec.org = *next
	if token != nil {
		rec.token = *token
	}
	out := rec.org
	return &out, nil
}

func (s *InMemory) nameTakenLocked(name string, except id.OrganizationID) bool {
	for orgID, rec := range s.orgs {
		if orgID != except && rec.org.Name == name {
			return true
		}
	}
	return false
}
