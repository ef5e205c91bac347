package schema

import (
	"errors"
	"fmt"
	"slices"
)

// TypeRegistry maps discriminators to their payload Schema.
//
// It is built once and never changes afterward, so it is safe for concurrent use.
type TypeRegistry struct {
	schemas map[string]Schema
	names   []string
}

// NewTypeRegistry indexes the given schemas by their discriminator.
//
// Returns ErrEmptyEventType or ErrDuplicateEventType if the schemas are inconsistent.
func NewTypeRegistry(schemas ...Schema) (*TypeRegistry, error) {
	registry := &TypeRegistry{
		schemas: make(map[string]Schema, len(schemas)),
		names:   make([]string, 0, len(schemas)),
	}

	for _, s := range schemas {
		if s.eventType == "" {
			return nil, ErrEmptyEventType
		}

		if _, exists := registry.schemas[s.eventType]; exists {
			return nil, errors.Join(ErrDuplicateEventType, fmt.Errorf("event type %q", s.eventType))
		}

		registry.schemas[s.eventType] = s
		registry.names = append(registry.names, s.eventType)
	}

	slices.Sort(registry.names)

	return registry, nil
}

// MustNewTypeRegistry is like NewTypeRegistry but panics on inconsistent schemas.
// It is meant for process startup, where such a registry is a programming error.
func MustNewTypeRegistry(schemas ...Schema) *TypeRegistry {
	registry, err := NewTypeRegistry(schemas...)
	if err != nil {
		panic(err)
	}

	return registry
}

// IsValidType reports whether name is a registered discriminator. The lookup is case-sensitive.
func (r *TypeRegistry) IsValidType(name string) bool {
	_, ok := r.schemas[name]

	return ok
}

// TryGetType returns the Schema registered under name.
func (r *TypeRegistry) TryGetType(name string) (Schema, bool) {
	s, ok := r.schemas[name]

	return s, ok
}

// ListTypes returns all registered discriminators in ascending order.
func (r *TypeRegistry) ListTypes() []string {
	return slices.Clone(r.names)
}
