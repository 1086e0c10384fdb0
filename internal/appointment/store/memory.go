package store

import (
	"context"
	"sort"
	"sync"

	"citamed/internal/appointment/models"
	"citamed/pkg/platform/sentinel"
)

// InMemoryStore keeps aggregates in a map. It mirrors the conditional write
// semantics of the Postgres store so service tests exercise the same
// create-if-absent and update-if-present behavior.
type InMemoryStore struct {
	mu           sync.RWMutex
	appointments map[string]*models.Appointment
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{appointments: make(map[string]*models.Appointment)}
}

func (s *InMemoryStore) Create(_ context.Context, appt *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.appointments[appt.ID]; exists {
		return sentinel.ErrConflict
	}
	s.appointments[appt.ID] = appt.Clone()
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id string) (*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	appt, ok := s.appointments[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return appt.Clone(), nil
}

func (s *InMemoryStore) ListByInsured(_ context.Context, insuredID models.InsuredID) ([]*models.Appointment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var result []*models.Appointment
	for _, appt := range s.appointments {
		if appt.InsuredID.Equal(insuredID) {
			result = append(result, appt.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.After(result[j].CreatedAt)
	})
	return result, nil
}

func (s *InMemoryStore) Update(_ context.Context, appt *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.appointments[appt.ID]; !exists {
		return sentinel.ErrNotFound
	}
	s.appointments[appt.ID] = appt.Clone()
	return nil
}
