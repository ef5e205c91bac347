package eventstore

import (
	"encoding/base64"
	"errors"
	"fmt"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"
)

// tokenJSON uses sorted map keys, so equal tokens always encode to equal strings.
var tokenJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// ContinuationToken says "resume after the event with ID, using the same filter parameters".
//
// The string form is base64 of the UTF-8 JSON document
//
//	{"Id":"<event-id>","QueryParameters":{"type":"a","iTwinId":"..."}}
//
// where a parameter with several values is encoded as a JSON array.
// This shape is persisted by clients, so it must stay readable by later versions.
type ContinuationToken struct {
	ID              uuid.UUID
	QueryParameters QueryParameters
}

type tokenWire struct {
	ID              string         `json:"Id"`
	QueryParameters map[string]any `json:"QueryParameters"`
}

type tokenWireIn struct {
	ID              string                         `json:"Id"`
	QueryParameters map[string]jsoniter.RawMessage `json:"QueryParameters"`
}

// CreateToken encodes the position lastID and the filter parameters into an opaque string.
func CreateToken(lastID uuid.UUID, params QueryParameters) (string, error) {
	return ContinuationToken{ID: lastID, QueryParameters: params}.Encode()
}

// Encode returns the opaque string form of the token.
func (t ContinuationToken) Encode() (string, error) {
	wire := tokenWire{
		ID:              t.ID.String(),
		QueryParameters: make(map[string]any, len(t.QueryParameters)),
	}

	for name, values := range t.QueryParameters {
		switch len(values) {
		case 0:
			continue
		case 1:
			wire.QueryParameters[name] = values[0]
		default:
			wire.QueryParameters[name] = values
		}
	}

	raw, err := tokenJSON.Marshal(wire)
	if err != nil {
		return "", fmt.Errorf("encoding continuation token: %w", err)
	}

	return base64.StdEncoding.EncodeToString(raw), nil
}

// ParseToken decodes a string created by CreateToken.
//
// Any undecodable input, including tokens carrying unknown or invalid parameters,
// fails with an error wrapping ErrMalformedContinuationToken.
func ParseToken(encoded string) (ContinuationToken, error) {
	raw, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return ContinuationToken{}, errors.Join(ErrMalformedContinuationToken, err)
	}

	var wire tokenWireIn
	if err = tokenJSON.Unmarshal(raw, &wire); err != nil {
		return ContinuationToken{}, errors.Join(ErrMalformedContinuationToken, err)
	}

	id, err := uuid.Parse(wire.ID)
	if err != nil || id == uuid.Nil {
		return ContinuationToken{}, errors.Join(ErrMalformedContinuationToken, fmt.Errorf("invalid id %q", wire.ID))
	}

	params := make(QueryParameters, len(wire.QueryParameters))
	for name, rawValue := range wire.QueryParameters {
		values, decodeErr := decodeParameterValues(rawValue)
		if decodeErr != nil {
			return ContinuationToken{}, errors.Join(ErrMalformedContinuationToken, decodeErr)
		}

		params[name] = sanitizeValues(values)
	}

	if _, err = BuildQuery().WithParameters(params); err != nil {
		return ContinuationToken{}, errors.Join(ErrMalformedContinuationToken, err)
	}

	return ContinuationToken{ID: id, QueryParameters: params}, nil
}

func decodeParameterValues(raw jsoniter.RawMessage) ([]string, error) {
	var single string
	if err := tokenJSON.Unmarshal(raw, &single); err == nil {
		return []string{single}, nil
	}

	var multiple []string
	if err := tokenJSON.Unmarshal(raw, &multiple); err != nil {
		return nil, fmt.Errorf("parameter value %s is neither a string nor a list of strings", string(raw))
	}

	return multiple, nil
}
