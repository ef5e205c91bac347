package schema

import (
	"errors"
	"fmt"
	"slices"
)

const msgNotAValidEventType = "%q is not a valid Event Type."

// Result is the outcome of validating one payload.
type Result struct {
	IsValid bool
	Errors  []string
	cause   error
}

// Err returns nil for a valid Result and otherwise an error wrapping ErrUnknownEventType or
// ErrSchemaValidation together with all messages.
func (r Result) Err() error {
	if r.IsValid {
		return nil
	}

	errs := []error{r.cause}
	for _, msg := range r.Errors {
		errs = append(errs, errors.New(msg))
	}

	return errors.Join(errs...)
}

// Validator checks raw payloads against the schemas of a TypeRegistry.
//
// Validate is pure: it never touches storage and returns the same Result for the same input.
type Validator struct {
	registry *TypeRegistry
}

// NewValidator creates a Validator resolving schemas via registry.
func NewValidator(registry *TypeRegistry) *Validator {
	return &Validator{registry: registry}
}

// Validate checks rawPayload against the schema registered for typeName.
func (v *Validator) Validate(typeName string, rawPayload []byte) Result {
	s, ok := v.registry.TryGetType(typeName)
	if !ok {
		return Result{
			Errors: []string{fmt.Sprintf(msgNotAValidEventType, typeName)},
			cause:  ErrUnknownEventType,
		}
	}

	payload, decodeErrors := s.Decode(rawPayload)
	if len(decodeErrors) > 0 {
		return Result{Errors: decodeErrors, cause: ErrSchemaValidation}
	}

	checks := &Checks{}
	payload.Check(checks)

	if violations := checks.Violations(); len(violations) > 0 {
		return Result{Errors: slices.Clone(violations), cause: ErrSchemaValidation}
	}

	return Result{IsValid: true}
}
