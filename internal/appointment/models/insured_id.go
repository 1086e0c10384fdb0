package models

import (
	"fmt"
	"strconv"

	dErrors "citamed/pkg/domain-errors"
)

// InsuredID is the insured person's code: up to five digits, stored in its
// canonical left-zero-padded five character form. Equality and store lookups
// always use the canonical form.
//
// Usage: construct via ParseInsuredID at trust boundaries to enforce the
// format; direct casting bypasses validation.
type InsuredID string

// ParseInsuredID constructs an InsuredID from external input.
//
// Errors: returns CodeValidation when the value is empty, contains non-digit
// characters, or exceeds 99999.
func ParseInsuredID(raw string) (InsuredID, error) {
	if raw == "" {
		return "", dErrors.New(dErrors.CodeValidation, "insuredId cannot be empty")
	}
	for _, r := range raw {
		if r < '0' || r > '9' {
			return "", dErrors.New(dErrors.CodeValidation, "insuredId must contain only digits")
		}
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n > 99999 {
		return "", dErrors.New(dErrors.CodeValidation, "insuredId must be between 0 and 99999")
	}
	return InsuredID(fmt.Sprintf("%05d", n)), nil
}

// Equal compares by canonical value.
func (id InsuredID) Equal(other InsuredID) bool {
	return id == other
}

func (id InsuredID) String() string {
	return string(id)
}
