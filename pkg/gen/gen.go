// Package gen provides utility functions for generating values.
package gen

import (
	"github.com/google/uuid"
)

// ID returns a random UUIDv4 string used for job and request identifiers.
func ID() string {
	return uuid.NewString()
}

// IsID reports whether s parses as a UUID.
func IsID(s string) bool {
	return uuid.Validate(s) == nil
}
