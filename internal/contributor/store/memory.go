package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"contribution-metrics/internal/contributor/models"
	id "contribution-metrics/pkg/domain"
	"contribution-metrics/pkg/platform/sentinel"
)

// InMemory is a map-backed contributor store for tests and local runs.
type InMemory struct {
	mu           sync.RWMutex
	contributors map[id.ContributorID]*models.Contributor
}

func NewInMemory() *InMemory {
	return &InMemory{contributors: make(map[id.ContributorID]*models.Contributor)}
}

func (s *InMemory) Create(_ context.Context, c *models.Contributor) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.contributors[c.ID]; exists {
		return sentinel.ErrAlreadyUsed
	}
	if s.usernameTakenLocked(c.CurrentUsername, c.ID) {
		return sentinel.ErrAlreadyUsed
	}
	s.contributors[c.ID] = c.Clone()
	return nil
}

func (s *InMemory) FindByID(_ context.Context, contributorID id.ContributorID) (*models.Contributor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.contributors[contributorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return c.Clone(), nil
}

func (s *InMemory) FindByUsername(_ context.Context, username string) (*models.Contributor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.contributors {
		if c.CurrentUsername == username {
			return c.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

// FindByEmail returns the oldest contributor whose current email matches.
func (s *InMemory) FindByEmail(_ context.Context, address string) (*models.Contributor, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.sortedLocked() {
		if c.CurrentEmail == address {
			return c.Clone(), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *InMemory) List(_ context.Context, filter models.ListFilter) ([]*models.Contributor, int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := make([]*models.Contributor, 0)
	for _, c := range s.sortedLocked() {
		if filter.Matches(c) {
			matched = append(matched, c)
		}
	}
	total := len(matched)

	page := make([]*models.Contributor, 0, min(filter.Limit, total))
	for i := filter.Offset; i < total && len(page) < filter.Limit; i++ {
		page = append(page, matched[i].Clone())
	}
	return page, total, nil
}

func (s *InMemory) Count(_ context.Context) (total, linked int, err error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, c := range s.contributors {
		if c.IsLinked() {
			linked++
		}
	}
	return len(s.contributors), linked, nil
}

func (s *InMemory) Execute(_ context.Context, contributorID id.ContributorID, fn func(*models.Contributor) (*models.Contributor, error)) (*models.Contributor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.contributors[contributorID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	next, err := fn(current.Clone())
	if err != nil {
		return nil, err
	}
	if s.usernameTakenLocked(next.CurrentUsername, contributorID) {
		return nil, sentinel.ErrAlreadyUsed
	}
	s.contributors[contributorID] = next.Clone()
	return next, nil
}

func (s *InMemory) Delete(_ context.Context, contributorID id.ContributorID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.contributors[contributorID]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.contributors, contributorID)
	return nil
}

// UnlinkUser clears every link to userID and returns the contributors it
// changed, in creation order.
func (s *InMemory) UnlinkUser(_ context.Context, userID id.UserID, now time.Time) ([]*models.Contributor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	unlinked := make([]*models.Contributor, 0)
	for _, c := range s.sortedLocked() {
		if c.UserID == nil || *c.UserID != userID {
			continue
		}
		next := c.UnlinkFromUser(now)
		s.contributors[c.ID] = next
		unlinked = append(unlinked, next.Clone())
	}
	return unlinked, nil
}

func (s *InMemory) usernameTakenLocked(username string, except id.ContributorID) bool {
	for cid, c := range s.contributors {
		if cid != except && c.CurrentUsername == username {
			return true
		}
	}
	return false
}

func (s *InMemory) sortedLocked() []*models.Contributor {
	out := make([]*models.Contributor, 0, len(s.contributors))
	for _, c := range s.contributors {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.String() < out[j].ID.String()
	})
	return out
}
