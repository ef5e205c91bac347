package eventstore

import (
	"errors"
	"fmt"
	"maps"
	"net/url"
	"slices"
	"strings"
)

// Query parameter names. The filter parameters are carried by continuation tokens,
// ParamTop and ParamContinuationToken only control pagination.
const (
	ParamID                = "id"
	ParamITwinID           = "iTwinId"
	ParamAccountID         = "accountId"
	ParamCorrelationID     = "correlationId"
	ParamType              = "type"
	ParamTimeAfter         = "timeAfter"
	ParamTimeBefore        = "timeBefore"
	ParamTop               = "top"
	ParamContinuationToken = "continuationtoken"
)

var errEmptyParameterValue = errors.New("value must not be empty")

var knownParameters = func() map[string]string {
	names := []string{
		ParamID, ParamITwinID, ParamAccountID, ParamCorrelationID, ParamType,
		ParamTimeAfter, ParamTimeBefore, ParamTop, ParamContinuationToken,
	}

	known := make(map[string]string, len(names))
	for _, name := range names {
		known[strings.ToLower(name)] = name
	}

	return known
}()

// CanonicalParameterName maps a case-insensitive parameter name to its canonical spelling.
func CanonicalParameterName(name string) (string, bool) {
	canonical, ok := knownParameters[strings.ToLower(name)]

	return canonical, ok
}

func isFilterParameter(canonical string) bool {
	return canonical != ParamTop && canonical != ParamContinuationToken
}

// ParameterError reports the query parameter that made a query invalid.
// Err is ErrUnknownQueryParameter or wraps ErrInvalidParameterValue.
type ParameterError struct {
	Name  string
	Value string
	Err   error
}

func (e *ParameterError) Error() string {
	if errors.Is(e.Err, ErrUnknownQueryParameter) {
		return fmt.Sprintf("%s: %q", ErrUnknownQueryParameter.Error(), e.Name)
	}

	return fmt.Sprintf("invalid value %q for query parameter %q: %v", e.Value, e.Name, e.Err)
}

func (e *ParameterError) Unwrap() error {
	return e.Err
}

// QueryParameters holds filter parameters by name, in the shape of url.Values.
// Values per name are kept sorted and free of duplicates.
type QueryParameters map[string][]string

// Get returns the first value of name or "".
func (p QueryParameters) Get(name string) string {
	if values := p[name]; len(values) > 0 {
		return values[0]
	}

	return ""
}

// With returns a copy of p with value added to name.
func (p QueryParameters) With(name string, value string) QueryParameters {
	next := p.Clone()
	if next == nil {
		next = QueryParameters{}
	}

	next[name] = sanitizeValues(append(slices.Clone(next[name]), value))

	return next
}

// Merge returns a copy of p with all values of other added.
func (p QueryParameters) Merge(other QueryParameters) QueryParameters {
	next := p.Clone()
	if next == nil {
		next = QueryParameters{}
	}

	for name, values := range other {
		next[name] = sanitizeValues(append(slices.Clone(next[name]), values...))
	}

	return next
}

// Clone returns a deep copy of p.
func (p QueryParameters) Clone() QueryParameters {
	if p == nil {
		return nil
	}

	clone := make(QueryParameters, len(p))
	for name, values := range p {
		clone[name] = slices.Clone(values)
	}

	return clone
}

// Encode renders p as a URL query string sorted by name.
func (p QueryParameters) Encode() string {
	return url.Values(p).Encode()
}

func (p QueryParameters) names() []string {
	return slices.Sorted(maps.Keys(p))
}

func sanitizeValues(values []string) []string {
	slices.Sort(values)
	values = slices.Compact(values)

	return slices.Clip(values)
}
