// Package store persists the appointment aggregate.
//
// Both writes are conditional so redelivered messages and racing retries
// serialize at the storage layer: Create inserts only when the id is absent,
// Update touches only an existing row. Implementations return
// pkg/platform/sentinel errors; services translate them into domain errors.
package store

import (
	"context"

	"citamed/internal/appointment/models"
)

// Store is the central appointment repository.
type Store interface {
	// Create inserts the aggregate if the id is absent.
	// Returns sentinel.ErrConflict when the id already exists.
	Create(ctx context.Context, appt *models.Appointment) error

	// FindByID returns the aggregate or sentinel.ErrNotFound.
	FindByID(ctx context.Context, id string) (*models.Appointment, error)

	// ListByInsured returns all appointments for the insured, newest first.
	ListByInsured(ctx context.Context, insuredID models.InsuredID) ([]*models.Appointment, error)

	// Update persists mutated state for an existing aggregate.
	// Returns sentinel.ErrNotFound when the id is absent.
	Update(ctx context.Context, appt *models.Appointment) error
}
