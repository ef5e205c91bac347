package httpapi

import (
	"errors"
	"net/http"
	"net/url"
	"slices"
	"strconv"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
)

// QueryEvents answers GET /events with one page of matching events.
//
// Parameter names are case-insensitive. Filters supplied next to a continuation token narrow the resumed query.
// Type filters must name a registered event type, and top and continuationtoken may be supplied once.
// Reads are eventually consistent, so engines with a replica serve them from there.
func (h *EventsHandler) QueryEvents(w http.ResponseWriter, r *http.Request) {
	query, size, problem := h.parseQuery(r)
	if problem != nil {
		writeJSON(w, r, h.logger, http.StatusBadRequest, problem)
		return
	}

	page, err := h.repository.GetPaginatedEvents(eventstore.WithEventualConsistency(r.Context()), query, size)
	if err != nil {
		if errors.Is(err, eventstore.ErrMalformedContinuationToken) {
			writeJSON(w, r, h.logger, http.StatusBadRequest, invalidParameter(
				suppliedParameter(r.URL.Query(), eventstore.ParamContinuationToken),
			))

			return
		}

		h.writeStorageFailure(w, r, "querying events failed", err)

		return
	}

	writeJSON(w, r, h.logger, http.StatusOK, page)
}

func (h *EventsHandler) parseQuery(r *http.Request) (eventstore.QueryBuilder, eventstore.PageSize, *ParameterProblem) {
	values := r.URL.Query()
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}

	slices.Sort(names)

	query := eventstore.BuildQuery()
	filters := eventstore.QueryParameters{}

	var size eventstore.PageSize

	paging := map[string]bool{}

	for _, name := range names {
		canonical, ok := eventstore.CanonicalParameterName(name)
		if !ok {
			return query, 0, &ParameterProblem{Error: errorUnknownParameter, InvalidParameter: name}
		}

		value := values.Get(name)

		if canonical == eventstore.ParamTop || canonical == eventstore.ParamContinuationToken {
			if paging[canonical] || len(values[name]) > 1 {
				return query, 0, invalidParameter(name, values[name][len(values[name])-1])
			}

			paging[canonical] = true
		}

		switch canonical {
		case eventstore.ParamTop:
			requested, err := strconv.Atoi(value)
			if err != nil {
				return query, 0, invalidParameter(name, value)
			}

			if size, err = eventstore.NewPageSize(requested); err != nil {
				return query, 0, invalidParameter(name, value)
			}

		case eventstore.ParamContinuationToken:
			token, err := eventstore.ParseToken(value)
			if err != nil {
				return query, 0, invalidParameter(name, value)
			}

			query = query.WithContinuationToken(token)

		case eventstore.ParamType:
			for _, v := range values[name] {
				if !h.registry.IsValidType(v) {
					return query, 0, invalidParameter(name, v)
				}

				filters = filters.With(name, v)
			}

		default:
			for _, v := range values[name] {
				filters = filters.With(name, v)
			}
		}
	}

	query, err := query.WithParameters(filters)
	if err != nil {
		var paramErr *eventstore.ParameterError
		if errors.As(err, &paramErr) {
			if errors.Is(err, eventstore.ErrUnknownQueryParameter) {
				return query, 0, &ParameterProblem{Error: errorUnknownParameter, InvalidParameter: paramErr.Name}
			}

			return query, 0, invalidParameter(paramErr.Name, paramErr.Value)
		}

		return query, 0, &ParameterProblem{Error: errorInvalidParameter}
	}

	return query, size, nil
}

// suppliedParameter returns the name as spelled by the caller and the first value of a canonical parameter.
func suppliedParameter(values url.Values, canonical string) (string, string) {
	for name := range values {
		if c, ok := eventstore.CanonicalParameterName(name); ok && c == canonical {
			return name, values.Get(name)
		}
	}

	return canonical, ""
}

func invalidParameter(name string, value string) *ParameterProblem {
	return &ParameterProblem{Error: errorInvalidParameter, InvalidParameter: name, InvalidValue: value}
}
