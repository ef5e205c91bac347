package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/AntonStoeckl/typed-eventstore-go/eventstore"
	"github.com/AntonStoeckl/typed-eventstore-go/logging"
	"github.com/AntonStoeckl/typed-eventstore-go/schema"
)

const (
	defaultSource       = "/events"
	defaultMaxBodyBytes = 4 << 20
)

// Pinger is implemented by repositories that can check their backend connection.
type Pinger interface {
	Ping(ctx context.Context) error
}

// EventsHandler serves the events endpoints on top of one repository.
type EventsHandler struct {
	repository   eventstore.EventRepository
	registry     *schema.TypeRegistry
	validator    *schema.Validator
	logger       *logging.Logger
	source       string
	specVersion  string
	maxBodyBytes int64
	now          func() time.Time
}

// Option defines a functional option for configuring EventsHandler.
type Option func(*EventsHandler)

// WithLogger sets the logger used for failures and access logs.
func WithLogger(logger *logging.Logger) Option {
	return func(h *EventsHandler) {
		h.logger = logger
	}
}

// WithSource sets the Source stamped on received events.
func WithSource(source string) Option {
	return func(h *EventsHandler) {
		h.source = source
	}
}

// WithSpecVersion sets the SpecVersion stamped on received events.
func WithSpecVersion(specVersion string) Option {
	return func(h *EventsHandler) {
		h.specVersion = specVersion
	}
}

// WithMaxBodyBytes limits the size of a POST /events body.
func WithMaxBodyBytes(limit int64) Option {
	return func(h *EventsHandler) {
		h.maxBodyBytes = limit
	}
}

// WithClock sets the clock that supplies the time of events received without one.
func WithClock(now func() time.Time) Option {
	return func(h *EventsHandler) {
		h.now = now
	}
}

// NewEventsHandler creates an EventsHandler. Payloads are validated against registry.
func NewEventsHandler(repository eventstore.EventRepository, registry *schema.TypeRegistry, options ...Option) *EventsHandler {
	h := &EventsHandler{
		repository:   repository,
		registry:     registry,
		validator:    schema.NewValidator(registry),
		logger:       logging.Default(),
		source:       defaultSource,
		specVersion:  eventstore.DefaultSpecVersion,
		maxBodyBytes: defaultMaxBodyBytes,
		now:          time.Now,
	}

	for _, option := range options {
		option(h)
	}

	return h
}

// ListTypes answers GET /events/types with the registered event types.
func (h *EventsHandler) ListTypes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, r, h.logger, http.StatusOK, typesResponse{Items: h.registry.ListTypes()})
}

// Health answers GET /healthz. Repositories implementing Pinger are pinged.
func (h *EventsHandler) Health(w http.ResponseWriter, r *http.Request) {
	if pinger, ok := h.repository.(Pinger); ok {
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := pinger.Ping(ctx); err != nil {
			h.logger.WarnContext(r.Context(), "health check failed", logging.FieldError, err)
			writeJSON(w, r, h.logger, http.StatusServiceUnavailable, healthResponse{Status: errorServiceUnavailable})

			return
		}
	}

	writeJSON(w, r, h.logger, http.StatusOK, healthResponse{Status: "ok"})
}
