package store

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/capitalize-ai/powerlunch/internal/model"
)

// MemoryStore is an in-process Store. Commit validates every staged operation
// under the write lock before applying any of them, so it honours the same
// all-or-nothing contract as the transactional backends.
type MemoryStore struct {
	mu            sync.RWMutex
	registrations map[string]map[string]model.Registration
	groups        map[string]map[string]model.Group
	idFunc        func() string
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		registrations: make(map[string]map[string]model.Registration),
		groups:        make(map[string]map[string]model.Group),
		idFunc:        newGroupID,
	}
}

// WithIDFunc overrides group id allocation.
func (s *MemoryStore) WithIDFunc(fn func() string) *MemoryStore {
	s.idFunc = fn
	return s
}

// PutRegistration inserts or replaces a registration.
func (s *MemoryStore) PutRegistration(conferenceID string, reg model.Registration) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.registrations[conferenceID] == nil {
		s.registrations[conferenceID] = make(map[string]model.Registration)
	}
	s.registrations[conferenceID][reg.ID] = reg
}

// DeleteRegistration removes a registration.
func (s *MemoryStore) DeleteRegistration(conferenceID, id string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.registrations[conferenceID], id)
}

// Registration returns a single registration.
func (s *MemoryStore) Registration(conferenceID, id string) (model.Registration, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	reg, ok := s.registrations[conferenceID][id]
	return reg, ok
}

// Groups returns all groups of a conference ordered by id.
func (s *MemoryStore) Groups(conferenceID string) []model.Group {
	s.mu.RLock()
	defer s.mu.RUnlock()

	groups := make([]model.Group, 0, len(s.groups[conferenceID]))
	for _, g := range s.groups[conferenceID] {
		groups = append(groups, g)
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].ID < groups[j].ID })
	return groups
}

// PendingRegistrations implements Store.
func (s *MemoryStore) PendingRegistrations(ctx context.Context, conferenceID, lunchDate string) ([]model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var regs []model.Registration
	for _, r := range s.registrations[conferenceID] {
		if r.Status == model.RegistrationPending && r.LunchDate == lunchDate {
			regs = append(regs, r)
		}
	}
	sort.Slice(regs, func(i, j int) bool { return regs[i].ID < regs[j].ID })
	return regs, nil
}

// RegistrationsByID implements Store.
func (s *MemoryStore) RegistrationsByID(ctx context.Context, conferenceID string, ids []string) ([]model.Registration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	regs := make([]model.Registration, 0, len(ids))
	for _, id := range ids {
		if r, ok := s.registrations[conferenceID][id]; ok {
			regs = append(regs, r)
		}
	}
	return regs, nil
}

// Group implements Store.
func (s *MemoryStore) Group(ctx context.Context, conferenceID, groupID string) (*model.Group, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	g, ok := s.groups[conferenceID][groupID]
	if !ok {
		return nil, ErrGroupNotFound
	}
	return &g, nil
}

// NewGroupID implements Store.
func (s *MemoryStore) NewGroupID() string {
	return s.idFunc()
}

// Commit implements Store.
func (s *MemoryStore) Commit(ctx context.Context, conferenceID string, batch *Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	regs := s.registrations[conferenceID]
	seen := make(map[string]bool, len(batch.Transitions()))
	for _, t := range batch.Transitions() {
		var current *model.Registration
		if reg, ok := regs[t.RegistrationID]; ok {
			current = &reg
		}
		if err := checkTransition(t, current); err != nil {
			return err
		}
		if seen[t.RegistrationID] {
			return fmt.Errorf("%w: registration %s staged twice", ErrPreconditionFailed, t.RegistrationID)
		}
		seen[t.RegistrationID] = true
	}
	for _, g := range batch.Groups() {
		if _, exists := s.groups[conferenceID][g.ID]; exists {
			return fmt.Errorf("%w: group %s already exists", ErrPreconditionFailed, g.ID)
		}
	}

	if s.groups[conferenceID] == nil {
		s.groups[conferenceID] = make(map[string]model.Group)
	}
	for _, g := range batch.Groups() {
		s.groups[conferenceID][g.ID] = g
	}
	for _, t := range batch.Transitions() {
		reg := regs[t.RegistrationID]
		reg.Status = model.RegistrationMatched
		reg.GroupID = t.GroupID
		reg.UpdatedAt = t.UpdatedAt
		regs[t.RegistrationID] = reg
	}
	return nil
}

// Ping implements Store.
func (s *MemoryStore) Ping(ctx context.Context) error {
	return nil
}
