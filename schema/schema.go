package schema

import (
	"bytes"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

const (
	msgInvalidJSON      = "The payload is not valid JSON."
	msgNotAnObject      = "The payload must be a JSON object."
	msgMissingRequired  = "JSON deserialization for type '%s' was missing required properties, including the following: %s"
	msgDecodeFailedWith = "The payload could not be decoded into '%s': %s"
)

var jsonAPI = jsoniter.ConfigCompatibleWithStandardLibrary

// Payload is implemented by every registered payload shape.
// Check declares the field constraints of the payload, see Checks.
type Payload interface {
	Check(c *Checks)
}

// Schema describes one payload shape and the discriminator it is registered under.
//
// Schemas are only built with Define, the zero value is not usable.
type Schema struct {
	eventType string
	goType    string
	required  []string
	decode    func(raw []byte) (Payload, error)
}

// Define builds the Schema of the payload type T registered under eventType.
//
// The required property names are checked for presence in the raw JSON object before decoding,
// in the given order.
func Define[T Payload](eventType string, required ...string) Schema {
	var zero T

	return Schema{
		eventType: eventType,
		goType:    fmt.Sprintf("%T", zero),
		required:  required,
		decode: func(raw []byte) (Payload, error) {
			var payload T
			if err := jsonAPI.Unmarshal(raw, &payload); err != nil {
				return nil, err
			}

			return payload, nil
		},
	}
}

// EventType returns the discriminator of the Schema.
func (s Schema) EventType() string {
	return s.eventType
}

// RequiredProperties returns the property names that must be present in a payload.
func (s Schema) RequiredProperties() []string {
	return append([]string(nil), s.required...)
}

// Decode decodes raw into the payload shape of the Schema without running field constraints.
//
// The returned message list is empty when decoding succeeded.
func (s Schema) Decode(raw []byte) (Payload, []string) {
	if s.decode == nil {
		panic(fmt.Sprintf("schema for event type %q has no decoder, it was not built with Define", s.eventType))
	}

	if !jsonAPI.Valid(raw) {
		return nil, []string{msgInvalidJSON}
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, []string{msgNotAnObject}
	}

	var properties map[string]jsoniter.RawMessage
	if err := jsonAPI.Unmarshal(trimmed, &properties); err != nil {
		return nil, []string{msgNotAnObject}
	}

	missing := make([]string, 0)
	for _, name := range s.required {
		if _, ok := properties[name]; !ok {
			missing = append(missing, name)
		}
	}

	if len(missing) > 0 {
		return nil, []string{fmt.Sprintf(msgMissingRequired, s.goType, strings.Join(missing, ", "))}
	}

	payload, err := s.decode(trimmed)
	if err != nil {
		return nil, []string{fmt.Sprintf(msgDecodeFailedWith, s.goType, err.Error())}
	}

	return payload, nil
}
