package eventstore

import (
	"errors"
	"slices"
	"time"

	"github.com/google/uuid"
)

/***** Predicate *****/

// Field names an Event property a Predicate compares.
type Field string

const (
	FieldID            Field = "id"
	FieldITwinID       Field = "iTwinId"
	FieldAccountID     Field = "accountId"
	FieldCorrelationID Field = "correlationId"
	FieldType          Field = "type"
	FieldTime          Field = "time"
)

// Operator is the comparison a Predicate applies.
type Operator string

const (
	OpEqual          Operator = "eq"
	OpGreaterThan    Operator = "gt"
	OpGreaterOrEqual Operator = "gte"
	OpLessOrEqual    Operator = "lte"
)

// Predicate is one comparison of the backend-neutral query representation.
// Engines translate Predicates into their native query language; Matches is the reference semantics.
//
// The value is a uuid.UUID for FieldID, FieldITwinID and FieldAccountID, a time.Time for FieldTime
// and a string otherwise.
type Predicate struct {
	field Field
	op    Operator
	value any
}

func (p Predicate) Field() Field {
	return p.field
}

func (p Predicate) Operator() Operator {
	return p.op
}

func (p Predicate) Value() any {
	return p.value
}

// Matches reports whether e satisfies the Predicate.
// An Event without Time never satisfies a FieldTime predicate.
func (p Predicate) Matches(e Event) bool {
	switch p.field {
	case FieldID:
		return compare(CompareIDs(e.ID, p.value.(uuid.UUID)), p.op)
	case FieldITwinID:
		return compare(CompareIDs(e.ITwinID, p.value.(uuid.UUID)), p.op)
	case FieldAccountID:
		return compare(CompareIDs(e.AccountID, p.value.(uuid.UUID)), p.op)
	case FieldCorrelationID:
		return p.op == OpEqual && e.CorrelationID == p.value.(string)
	case FieldType:
		return p.op == OpEqual && e.Type == p.value.(string)
	case FieldTime:
		if e.Time == nil {
			return false
		}

		return compare(e.Time.Compare(p.value.(time.Time)), p.op)
	default:
		return false
	}
}

func compare(cmp int, op Operator) bool {
	switch op {
	case OpEqual:
		return cmp == 0
	case OpGreaterThan:
		return cmp > 0
	case OpGreaterOrEqual:
		return cmp >= 0
	case OpLessOrEqual:
		return cmp <= 0
	default:
		return false
	}
}

/***** Criteria *****/

// Criteria is the rendered form of a QueryBuilder: a conjunction of Predicates.
// The empty Criteria matches every event.
type Criteria struct {
	predicates []Predicate
}

func (c Criteria) Predicates() []Predicate {
	return slices.Clone(c.predicates)
}

// Matches reports whether e satisfies every Predicate.
func (c Criteria) Matches(e Event) bool {
	for _, p := range c.predicates {
		if !p.Matches(e) {
			return false
		}
	}

	return true
}

// WithIDAfter returns a copy of the Criteria additionally requiring ID > id.
func (c Criteria) WithIDAfter(id uuid.UUID) Criteria {
	c.predicates = append(slices.Clip(c.predicates), Predicate{field: FieldID, op: OpGreaterThan, value: id})

	return c
}

/***** QueryBuilder *****/

// QueryBuilder is an immutable description of a filter.
//
// Every Where* method returns a new QueryBuilder with one more predicate and leaves the receiver untouched,
// so one base query can be branched into several specialized ones:
//
//	base := BuildQuery().WhereITwinID(iTwinID)
//	created := base.WhereType("imodels.imodel.created.v1")
//	pushed := base.WhereType("imodels.changeset.pushed.v1")
//
// Besides the predicates, the builder records the query parameters that produced them.
// They are embedded in continuation tokens and in the self link of a Page.
type QueryBuilder struct {
	predicates []Predicate
	parameters QueryParameters
	token      *ContinuationToken
}

// BuildQuery creates an empty QueryBuilder matching every event.
func BuildQuery() QueryBuilder {
	return QueryBuilder{}
}

func (qb QueryBuilder) WhereID(id uuid.UUID) QueryBuilder {
	return qb.where(Predicate{field: FieldID, op: OpEqual, value: id}, ParamID, id.String())
}

func (qb QueryBuilder) WhereITwinID(iTwinID uuid.UUID) QueryBuilder {
	return qb.where(Predicate{field: FieldITwinID, op: OpEqual, value: iTwinID}, ParamITwinID, iTwinID.String())
}

func (qb QueryBuilder) WhereAccountID(accountID uuid.UUID) QueryBuilder {
	return qb.where(Predicate{field: FieldAccountID, op: OpEqual, value: accountID}, ParamAccountID, accountID.String())
}

func (qb QueryBuilder) WhereCorrelationID(correlationID string) QueryBuilder {
	return qb.where(Predicate{field: FieldCorrelationID, op: OpEqual, value: correlationID}, ParamCorrelationID, correlationID)
}

func (qb QueryBuilder) WhereType(eventType string) QueryBuilder {
	return qb.where(Predicate{field: FieldType, op: OpEqual, value: eventType}, ParamType, eventType)
}

// WhereTimeAfter matches events with Time >= from.
func (qb QueryBuilder) WhereTimeAfter(from time.Time) QueryBuilder {
	from = from.UTC()

	return qb.where(Predicate{field: FieldTime, op: OpGreaterOrEqual, value: from}, ParamTimeAfter, formatTime(from))
}

// WhereTimeBefore matches events with Time <= until.
func (qb QueryBuilder) WhereTimeBefore(until time.Time) QueryBuilder {
	until = until.UTC()

	return qb.where(Predicate{field: FieldTime, op: OpLessOrEqual, value: until}, ParamTimeBefore, formatTime(until))
}

// WhereTimeBetween matches events with from <= Time <= until.
func (qb QueryBuilder) WhereTimeBetween(from, until time.Time) QueryBuilder {
	return qb.WhereTimeAfter(from).WhereTimeBefore(until)
}

// WithContinuationToken resumes the query after token.ID, re-applying the parameters carried by the token
// in addition to the predicates of the builder.
func (qb QueryBuilder) WithContinuationToken(token ContinuationToken) QueryBuilder {
	token.QueryParameters = token.QueryParameters.Clone()
	qb.token = &token

	return qb
}

// WithParameters applies every parameter through the matching Where* method.
//
// Parameter names are matched case-insensitively. Returns a *ParameterError wrapping
// ErrUnknownQueryParameter or ErrInvalidParameterValue for the first offending parameter.
func (qb QueryBuilder) WithParameters(params QueryParameters) (QueryBuilder, error) {
	for _, name := range params.names() {
		canonical, ok := CanonicalParameterName(name)
		if !ok || !isFilterParameter(canonical) {
			return qb, &ParameterError{Name: name, Err: ErrUnknownQueryParameter}
		}

		for _, value := range params[name] {
			next, err := qb.whereParameter(canonical, value)
			if err != nil {
				return qb, &ParameterError{Name: name, Value: value, Err: errors.Join(ErrInvalidParameterValue, err)}
			}

			qb = next
		}
	}

	return qb, nil
}

// Criteria renders the builder into the conjunction engines evaluate.
//
// With a continuation token, the token's parameters and ID > token.ID are added to the builder's own predicates.
func (qb QueryBuilder) Criteria() (Criteria, error) {
	predicates := slices.Clone(qb.predicates)

	if qb.token != nil {
		resumed, err := BuildQuery().WithParameters(qb.token.QueryParameters)
		if err != nil {
			return Criteria{}, errors.Join(ErrMalformedContinuationToken, err)
		}

		predicates = append(predicates, resumed.predicates...)
		predicates = append(predicates, Predicate{field: FieldID, op: OpGreaterThan, value: qb.token.ID})
	}

	return Criteria{predicates: predicates}, nil
}

// Parameters returns the query parameters supplied directly to the builder.
func (qb QueryBuilder) Parameters() QueryParameters {
	return qb.parameters.Clone()
}

// EffectiveParameters returns the builder's parameters merged with those of its continuation token.
func (qb QueryBuilder) EffectiveParameters() QueryParameters {
	if qb.token == nil {
		return qb.parameters.Clone()
	}

	return qb.parameters.Merge(qb.token.QueryParameters)
}

// ContinuationToken returns the token the builder resumes from, if any.
func (qb QueryBuilder) ContinuationToken() (ContinuationToken, bool) {
	if qb.token == nil {
		return ContinuationToken{}, false
	}

	token := *qb.token
	token.QueryParameters = token.QueryParameters.Clone()

	return token, true
}

func (qb QueryBuilder) where(predicate Predicate, param string, value string) QueryBuilder {
	qb.predicates = append(slices.Clip(qb.predicates), predicate)
	qb.parameters = qb.parameters.With(param, value)

	return qb
}

func (qb QueryBuilder) whereParameter(canonical string, value string) (QueryBuilder, error) {
	switch canonical {
	case ParamID:
		id, err := uuid.Parse(value)
		if err != nil {
			return qb, err
		}

		return qb.WhereID(id), nil

	case ParamITwinID:
		id, err := uuid.Parse(value)
		if err != nil {
			return qb, err
		}

		return qb.WhereITwinID(id), nil

	case ParamAccountID:
		id, err := uuid.Parse(value)
		if err != nil {
			return qb, err
		}

		return qb.WhereAccountID(id), nil

	case ParamCorrelationID:
		if value == "" {
			return qb, errEmptyParameterValue
		}

		return qb.WhereCorrelationID(value), nil

	case ParamType:
		if value == "" {
			return qb, errEmptyParameterValue
		}

		return qb.WhereType(value), nil

	case ParamTimeAfter:
		t, err := parseTime(value)
		if err != nil {
			return qb, err
		}

		return qb.WhereTimeAfter(t), nil

	case ParamTimeBefore:
		t, err := parseTime(value)
		if err != nil {
			return qb, err
		}

		return qb.WhereTimeBefore(t), nil

	default:
		return qb, ErrUnknownQueryParameter
	}
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(value string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, value)
}
