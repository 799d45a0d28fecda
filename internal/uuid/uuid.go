// Package uuid generates the random identifiers given to sessions and live clients.
package uuid

import (
	"fmt"

	"github.com/google/uuid"
)

// New returns a random (version 4) identifier in canonical form.
func New() string {
	return uuid.NewString()
}

// Validate returns an error unless s is a canonical version 4 identifier.
func Validate(s string) error {
	id, err := uuid.Parse(s)
	if err != nil {
		return fmt.Errorf("invalid id %q: %w", s, err)
	}
	if id.Version() != 4 || id.Variant() != uuid.RFC4122 || id.String() != s {
		return fmt.Errorf("invalid id %q: not a canonical v4 uuid", s)
	}
	return nil
}

// Short returns the first block of id, enough to tell clients apart in logs.
func Short(id string) string {
	if len(id) >= 8 {
		return id[:8]
	}
	return id
}
