package models

import (
	"time"

	dErrors "citamed/pkg/domain-errors"
)

// Metadata keys written by lifecycle transitions.
const (
	MetadataKeyFailureReason      = "failureReason"
	MetadataKeyCancellationReason = "cancellationReason"
)

// Appointment is the aggregate root for one scheduling request.
//
// Invariants:
//   - ID and CreatedAt are set once at creation and never change
//   - Status only changes through transitions allowed by the status table
//   - ScheduleID is a positive integer at creation time, never revalidated after
//   - CompletedAt is set if and only if the completion transition was applied
//   - UpdatedAt is touched on every mutation
//
// Mutators are side-effect-free on failure: the legality check runs before any
// field is written, so a rejected transition leaves the aggregate untouched.
type Appointment struct {
	ID          string            `json:"appointmentId"`
	InsuredID   InsuredID         `json:"insuredId"`
	ScheduleID  int64             `json:"scheduleId"`
	Country     CountryCode       `json:"countryISO"`
	Status      Status            `json:"status"`
	CreatedAt   time.Time         `json:"createdAt"`
	UpdatedAt   time.Time         `json:"updatedAt"`
	CompletedAt *time.Time        `json:"completedAt,omitempty"`
	Metadata    map[string]string `json:"metadata,omitempty"`
}

// New creates a pending appointment.
//
// Errors: returns CodeValidation when scheduleID is not a positive integer.
// Zero and negative values are rejected here; non-integral values never reach
// this point because the transport layer rejects them at decode time.
func New(id string, insuredID InsuredID, scheduleID int64, country CountryCode, metadata map[string]string, now time.Time) (*Appointment, error) {
	if scheduleID <= 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "scheduleId must be a positive integer")
	}
	return &Appointment{
		ID:         id,
		InsuredID:  insuredID,
		ScheduleID: scheduleID,
		Country:    country,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
		Metadata:   cloneMetadata(metadata),
	}, nil
}

// Reconstruct rebuilds an aggregate from persisted or transmitted state
// without re-deriving timestamps. Used when rehydrating from storage or from
// an inbound message; fields are assumed to have been validated as value
// objects by the caller.
func Reconstruct(id string, insuredID InsuredID, scheduleID int64, country CountryCode, status Status, createdAt, updatedAt time.Time, completedAt *time.Time, metadata map[string]string) *Appointment {
	return &Appointment{
		ID:          id,
		InsuredID:   insuredID,
		ScheduleID:  scheduleID,
		Country:     country,
		Status:      status,
		CreatedAt:   createdAt,
		UpdatedAt:   updatedAt,
		CompletedAt: completedAt,
		Metadata:    cloneMetadata(metadata),
	}
}

// CanComplete checks if the appointment can transition to completed.
// Use with ApplyCompletion for the check-then-mutate pattern.
func (a *Appointment) CanComplete() error {
	if !a.Status.CanTransitionTo(StatusCompleted) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot transition from %s to %s", a.Status, StatusCompleted)
	}
	return nil
}

// ApplyCompletion transitions to completed and records the completion time.
// Call CanComplete first to validate the transition.
func (a *Appointment) ApplyCompletion(now time.Time) {
	a.Status = StatusCompleted
	completedAt := now
	a.CompletedAt = &completedAt
	a.UpdatedAt = now
}

// Complete validates and applies the completion transition in one call.
func (a *Appointment) Complete(now time.Time) error {
	if err := a.CanComplete(); err != nil {
		return err
	}
	a.ApplyCompletion(now)
	return nil
}

// Fail transitions to failed, recording the reason in metadata when given.
func (a *Appointment) Fail(reason string, now time.Time) error {
	if !a.Status.CanTransitionTo(StatusFailed) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot transition from %s to %s", a.Status, StatusFailed)
	}
	a.Status = StatusFailed
	a.UpdatedAt = now
	if reason != "" {
		a.MergeMetadata(map[string]string{MetadataKeyFailureReason: reason})
	}
	return nil
}

// Cancel transitions to cancelled, recording the reason in metadata when
// given. Appointments are never physically deleted; cancellation is the
// terminal disposition for "delete" requests.
func (a *Appointment) Cancel(reason string, now time.Time) error {
	if !a.Status.CanTransitionTo(StatusCancelled) {
		return dErrors.Newf(dErrors.CodeInvariantViolation, "cannot transition from %s to %s", a.Status, StatusCancelled)
	}
	a.Status = StatusCancelled
	a.UpdatedAt = now
	if reason != "" {
		a.MergeMetadata(map[string]string{MetadataKeyCancellationReason: reason})
	}
	return nil
}

// MergeMetadata applies a shallow merge: an incoming key overwrites an
// existing key of the same name, all other keys are preserved.
func (a *Appointment) MergeMetadata(incoming map[string]string) {
	if len(incoming) == 0 {
		return
	}
	if a.Metadata == nil {
		a.Metadata = make(map[string]string, len(incoming))
	}
	for k, v := range incoming {
		a.Metadata[k] = v
	}
}

// Clone returns a deep copy so stores can hand out aggregates without
// exposing shared mutable state.
func (a *Appointment) Clone() *Appointment {
	cp := *a
	if a.CompletedAt != nil {
		completedAt := *a.CompletedAt
		cp.CompletedAt = &completedAt
	}
	cp.Metadata = cloneMetadata(a.Metadata)
	return &cp
}

func cloneMetadata(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}
	cp := make(map[string]string, len(m))
	for k, v := range m {
		cp[k] = v
	}
	return cp
}
