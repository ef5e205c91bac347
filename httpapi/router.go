package httpapi

import (
	"net/http"
)

// NewRouter registers the events routes. metrics is mounted at /metrics unless nil.
// Every request gets a request ID and an access log record.
func NewRouter(h *EventsHandler, metrics http.Handler) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /events", h.AddEvents)
	mux.HandleFunc("GET /events", h.QueryEvents)
	mux.HandleFunc("GET /events/types", h.ListTypes)
	mux.HandleFunc("GET /healthz", h.Health)

	if metrics != nil {
		mux.Handle("GET /metrics", metrics)
	}

	return RequestID(AccessLog(h.logger)(mux))
}
