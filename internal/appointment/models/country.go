package models

import (
	dErrors "citamed/pkg/domain-errors"
)

// CountryCode is the ISO code of a country with a backing appointment store.
// The set is closed: every code needs its own database and message topic, so
// adding one is a deployment concern, not a data concern.
type CountryCode string

const (
	CountryPE CountryCode = "PE"
	CountryCL CountryCode = "CL"
)

// validCountryCodes is the single source of truth for supported countries.
var validCountryCodes = map[CountryCode]bool{
	CountryPE: true,
	CountryCL: true,
}

// ParseCountryCode constructs a CountryCode from external input. Matching is
// case-sensitive: "pe" is rejected.
//
// Errors: returns CodeValidation when the value is not exactly "PE" or "CL".
func ParseCountryCode(raw string) (CountryCode, error) {
	c := CountryCode(raw)
	if !c.IsValid() {
		return "", dErrors.Newf(dErrors.CodeValidation, "invalid country ISO code: %q, must be one of: PE, CL", raw)
	}
	return c, nil
}

// IsValid checks if the code is one of the supported countries.
func (c CountryCode) IsValid() bool {
	return validCountryCodes[c]
}

func (c CountryCode) String() string {
	return string(c)
}
