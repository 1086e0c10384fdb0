package models

import (
	dErrors "citamed/pkg/domain-errors"
)

// Status is the lifecycle state of an appointment.
type Status string

const (
	StatusPending   Status = "pending"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// statusTransitions is the single source of truth for legal status changes.
// Directed, no self-loops. Every aggregate mutator goes through
// CanTransitionTo; nothing bypasses this table.
var statusTransitions = map[Status][]Status{
	StatusPending:   {StatusCompleted, StatusFailed, StatusCancelled},
	StatusCompleted: {StatusCancelled},
	StatusFailed:    {StatusPending},
	StatusCancelled: {},
}

// ParseStatus constructs a Status from external input.
//
// Errors: returns CodeValidation when the value is outside the four-member
// enumeration.
func ParseStatus(raw string) (Status, error) {
	s := Status(raw)
	if !s.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid appointment status: %q", raw)
	}
	return s, nil
}

// IsValid checks if the status is one of the supported enum values.
func (s Status) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// CanTransitionTo reports whether moving from s to next is a legal transition.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

func (s Status) String() string {
	return string(s)
}
