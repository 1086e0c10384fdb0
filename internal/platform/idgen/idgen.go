// Package idgen generates opaque unique identifiers.
package idgen

import "github.com/google/uuid"

// Generator produces UUID-backed identifiers. The zero value is ready to use;
// services accept it behind a small interface so tests can fix ids.
type Generator struct{}

func New() Generator {
	return Generator{}
}

// NewID returns a full UUID string, used for event identifiers.
func (Generator) NewID() string {
	return uuid.NewString()
}

// NewPrefixedID returns the prefix joined with the first UUID segment.
// Appointment ids stay short enough to read aloud while collisions remain
// practically impossible at this system's volume.
func (Generator) NewPrefixedID(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}
