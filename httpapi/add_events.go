package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
	"github.com/AntonStoeckl/typed-eventstore-go/logging"
	"github.com/AntonStoeckl/typed-eventstore-go/schema"
)

const bodyPath = "Events"

// AddEventRequest is one entry of a POST /events body.
// Time is optional, events without it get the time they were received.
type AddEventRequest struct {
	ITwinID       string          `json:"iTwinId"`
	AccountID     string          `json:"accountId"`
	CorrelationID string          `json:"correlationId,omitempty"`
	EventType     string          `json:"eventType"`
	Data          json.RawMessage `json:"data"`
	Time          string          `json:"time,omitempty"`
}

// AddEvents answers POST /events. Either every entry is valid and the batch is handed to the repository,
// or nothing is stored and all problems are reported.
func (h *EventsHandler) AddEvents(w http.ResponseWriter, r *http.Request) {
	var requests []AddEventRequest

	body := http.MaxBytesReader(w, r.Body, h.maxBodyBytes)
	if err := wireJSON.NewDecoder(body).Decode(&requests); err != nil {
		writeValidationProblem(w, r, h.logger, map[string][]string{
			bodyPath: {"The request body must be a JSON array of events."},
		})

		return
	}

	if len(requests) == 0 {
		writeValidationProblem(w, r, h.logger, map[string][]string{
			bodyPath: {"At least one event is required."},
		})

		return
	}

	receivedAt := h.now().UTC()

	toAdd, problems := h.buildEvents(requests, receivedAt)
	if len(problems) > 0 {
		writeValidationProblem(w, r, h.logger, problems)
		return
	}

	added, err := h.repository.AddEvents(r.Context(), toAdd)
	if err != nil {
		h.writeStorageFailure(w, r, "adding events failed", err)
		return
	}

	writeJSON(w, r, h.logger, http.StatusCreated, AddEventsResponse{Count: added, Items: toAdd})
}

func (h *EventsHandler) buildEvents(requests []AddEventRequest, receivedAt time.Time) (eventstore.Events, map[string][]string) {
	problems := make(map[string][]string)
	built := make(eventstore.Events, 0, len(requests))

	for i, req := range requests {
		prefix := fmt.Sprintf("%s[%d].", bodyPath, i)
		report := func(field string, messages []string) {
			if len(messages) > 0 {
				problems[prefix+field] = append(problems[prefix+field], messages...)
			}
		}

		report("ITwinId", (&schema.Checks{}).Required("ITwinId", req.ITwinID).UUID("ITwinId", req.ITwinID).Violations())
		report("AccountId", (&schema.Checks{}).Required("AccountId", req.AccountID).UUID("AccountId", req.AccountID).Violations())

		typeChecks := (&schema.Checks{}).Required("EventType", req.EventType)
		report("EventType", typeChecks.Violations())

		if len(req.Data) == 0 {
			report("Data", (&schema.Checks{}).Present("Data", false).Violations())
		} else if req.EventType != "" {
			result := h.validator.Validate(req.EventType, req.Data)

			switch {
			case result.IsValid:
			case errors.Is(result.Err(), schema.ErrUnknownEventType):
				report("EventType", result.Errors)
			default:
				report("Data", result.Errors)
			}
		}

		occurredAt := receivedAt
		if req.Time != "" {
			parsed, err := time.Parse(time.RFC3339Nano, req.Time)
			if err != nil {
				report("Time", []string{"The Time field must be an RFC 3339 timestamp."})
			}

			occurredAt = parsed
		}

		if len(problems) > 0 {
			continue
		}

		event, err := eventstore.BuildEvent(
			uuid.MustParse(req.ITwinID),
			uuid.MustParse(req.AccountID),
			req.CorrelationID,
			h.source,
			req.EventType,
			&occurredAt,
			req.Data,
		)
		if err != nil {
			report("Data", []string{err.Error()})
			continue
		}

		event.SpecVersion = h.specVersion
		built = append(built, event)
	}

	return built, problems
}

func (h *EventsHandler) writeStorageFailure(w http.ResponseWriter, r *http.Request, message string, err error) {
	h.logger.ErrorContext(r.Context(), message, logging.FieldError, err)

	if errors.Is(err, eventstore.ErrDuplicateEventID) {
		writeJSON(w, r, h.logger, http.StatusConflict, ParameterProblem{Error: err.Error()})
		return
	}

	writeJSON(w, r, h.logger, http.StatusInternalServerError, ParameterProblem{Error: errorInternal})
}
