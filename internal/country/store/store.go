// Package store persists appointments in a country's backing database.
//
// The only write is an idempotent upsert keyed by appointment id: redelivery
// of the same routed message produces no duplicate row and no error. That
// property is what makes at-least-once delivery safe on this path.
package store

import (
	"context"

	"citamed/internal/appointment/models"
)

// Store is one country's appointment store.
type Store interface {
	// Upsert inserts the record or updates it in place when the appointment
	// id already exists. The write is transactional: the whole record commits
	// or none of it does.
	Upsert(ctx context.Context, appt *models.Appointment) error

	// Close releases the connection pool.
	Close()
}
