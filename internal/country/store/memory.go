package store

import (
	"context"
	"sync"

	"citamed/internal/appointment/models"
)

// InMemoryStore mirrors the upsert semantics of the Postgres store for unit
// tests: one logical record per appointment id regardless of how many times
// the same message is applied.
type InMemoryStore struct {
	mu      sync.RWMutex
	records map[string]*models.Appointment
	upserts int
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{records: make(map[string]*models.Appointment)}
}

func (s *InMemoryStore) Upsert(_ context.Context, appt *models.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.upserts++
	s.records[appt.ID] = appt.Clone()
	return nil
}

func (s *InMemoryStore) Close() {}

// Count returns the number of logical records.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Upserts returns how many writes were applied, including overwrites.
func (s *InMemoryStore) Upserts() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.upserts
}

// Get returns the stored record for an appointment id, or nil.
func (s *InMemoryStore) Get(id string) *models.Appointment {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if appt, ok := s.records[id]; ok {
		return appt.Clone()
	}
	return nil
}
