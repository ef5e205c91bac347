package httpapi

import (
	"net/http"

	jsoniter "github.com/json-iterator/go"

	"github.com/AntonStoeckl/typed-eventstore-go/logging"
)

var wireJSON = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	titleValidationFailed   = "One or more validation errors occurred."
	errorUnknownParameter   = "Unknown Query Parameter"
	errorInvalidParameter   = "Invalid Parameter Value"
	errorInternal           = "Internal Server Error"
	errorServiceUnavailable = "Service Unavailable"
)

// ValidationProblem is the body of a rejected POST /events, keyed by array index path, e.g. Events[0].EventType.
type ValidationProblem struct {
	Title  string              `json:"title"`
	Status int                 `json:"status"`
	Errors map[string][]string `json:"errors"`
}

// ParameterProblem is the body of a rejected GET /events.
type ParameterProblem struct {
	Error            string `json:"error"`
	InvalidParameter string `json:"invalidParameter,omitempty"`
	InvalidValue     string `json:"invalidValue,omitempty"`
}

// AddEventsResponse is the body of an accepted POST /events.
type AddEventsResponse struct {
	Count int `json:"count"`
	Items any `json:"items"`
}

type typesResponse struct {
	Items []string `json:"items"`
}

type healthResponse struct {
	Status string `json:"status"`
}

func writeJSON(w http.ResponseWriter, r *http.Request, logger *logging.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := wireJSON.NewEncoder(w).Encode(body); err != nil {
		logger.WarnContext(r.Context(), "failed to encode JSON response", logging.FieldError, err)
	}
}

func writeValidationProblem(w http.ResponseWriter, r *http.Request, logger *logging.Logger, errs map[string][]string) {
	writeJSON(w, r, logger, http.StatusBadRequest, ValidationProblem{
		Title:  titleValidationFailed,
		Status: http.StatusBadRequest,
		Errors: errs,
	})
}
