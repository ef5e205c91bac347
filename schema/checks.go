package schema

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

const (
	msgFieldRequired = "The %s field is required."
	msgFieldRange    = "The field %s must be between %d and %d."
	msgFieldNotEmpty = "The %s field must not be empty."
	msgFieldUUID     = "The %s field must be a valid UUID."
)

// Checks collects field constraint violations of one payload, in the order the constraints are declared.
type Checks struct {
	violations []string
}

// Required fails if value is empty or consists of whitespace only.
func (c *Checks) Required(field string, value string) *Checks {
	if strings.TrimSpace(value) == "" {
		c.fail(msgFieldRequired, field)
	}

	return c
}

// Present fails if an optional value was not supplied.
func (c *Checks) Present(field string, supplied bool) *Checks {
	if !supplied {
		c.fail(msgFieldRequired, field)
	}

	return c
}

// Range fails if value lies outside [minimum, maximum].
func (c *Checks) Range(field string, value, minimum, maximum int64) *Checks {
	if value < minimum || value > maximum {
		c.fail(msgFieldRange, field, minimum, maximum)
	}

	return c
}

// NotEmpty fails if a collection has no elements.
func (c *Checks) NotEmpty(field string, length int) *Checks {
	if length == 0 {
		c.fail(msgFieldNotEmpty, field)
	}

	return c
}

// UUID fails if a non-empty value is not a UUID. Emptiness is left to Required.
func (c *Checks) UUID(field string, value string) *Checks {
	if value == "" {
		return c
	}

	if _, err := uuid.Parse(value); err != nil {
		c.fail(msgFieldUUID, field)
	}

	return c
}

// Violations returns the collected messages.
func (c *Checks) Violations() []string {
	return c.violations
}

func (c *Checks) fail(format string, args ...any) {
	c.violations = append(c.violations, fmt.Sprintf(format, args...))
}
