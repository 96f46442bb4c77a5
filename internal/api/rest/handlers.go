package rest

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/clintrovert/scrummaster/internal/engine"
	"github.com/clintrovert/scrummaster/internal/events"
	"github.com/clintrovert/scrummaster/internal/observers"
)

// Backend is the engine surface exposed over HTTP
type Backend interface {
	HealthCheck() engine.HealthReport
	ProcessingStatus() engine.ProcessingStatus
	Filter(f events.Filter) []events.Event
	Statistics() events.Statistics
	Notify(ctx context.Context, e events.Event)
}

// Handler handles REST API requests
type Handler struct {
	backend Backend
	apiKey  string
	stream  *StreamHub
	logger  *zap.Logger
}

// NewHandler creates a REST handler. Event ingest is refused when apiKey
// is empty; stream may be nil to disable the websocket endpoint.
func NewHandler(backend Backend, apiKey string, stream *StreamHub, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		backend: backend,
		apiKey:  apiKey,
		stream:  stream,
		logger:  logger,
	}
}

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error string `json:"error"`
}

// IngestResponse acknowledges an ingested event
type IngestResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Liveness handles GET /health
func (h *Handler) Liveness(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetStatus handles GET /api/v1/status
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.backend.ProcessingStatus())
}

// GetHealth handles GET /api/v1/health. Unhealthy systems answer 503.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	report := h.backend.HealthCheck()
	status := http.StatusOK
	if !report.Overall {
		status = http.StatusServiceUnavailable
	}
	h.writeJSON(w, status, report)
}

// ListEvents handles GET /api/v1/events
func (h *Handler) ListEvents(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}

	matched := h.backend.Filter(filter)
	if matched == nil {
		matched = []events.Event{}
	}
	h.writeJSON(w, http.StatusOK, matched)
}

// GetStatistics handles GET /api/v1/events/stats
func (h *Handler) GetStatistics(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, h.backend.Statistics())
}

// IngestEvent handles POST /api/events, the endpoint dashboard sinks post
// to. Accepted events are published on the local bus.
func (h *Handler) IngestEvent(w http.ResponseWriter, r *http.Request) {
	if !h.authorized(r) {
		h.writeJSON(w, http.StatusUnauthorized, ErrorResponse{Error: "invalid or missing API key"})
		return
	}

	var payload observers.DashboardEvent
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "invalid event payload: " + err.Error()})
		return
	}
	if payload.Type == "" {
		h.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: "event type is required"})
		return
	}

	h.backend.Notify(r.Context(), events.Event{
		ID:        payload.ID,
		Type:      payload.Type,
		Data:      payload.Data,
		Timestamp: payload.Timestamp,
		Phase:     payload.Phase,
		Progress:  payload.Progress,
		Message:   payload.Message,
	})

	h.logger.Debug("ingested event",
		zap.String("id", payload.ID),
		zap.String("event_type", string(payload.Type)),
		zap.String("source", payload.Metadata.Source),
	)

	h.writeJSON(w, http.StatusAccepted, IngestResponse{ID: payload.ID, Status: "accepted"})
}

// authorized checks the bearer token against the configured API key. An
// empty key rejects every request.
func (h *Handler) authorized(r *http.Request) bool {
	if h.apiKey == "" {
		return false
	}
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(token), []byte(h.apiKey)) == 1
}

// RegisterRoutes registers the versioned API routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/status", h.GetStatus)
	r.Get("/health", h.GetHealth)
	r.Get("/events", h.ListEvents)
	r.Get("/events/stats", h.GetStatistics)
	if h.stream != nil {
		r.Get("/stream", h.stream.ServeHTTP)
	}
}

// Router returns the full route tree
func (h *Handler) Router() http.Handler {
	router := chi.NewRouter()
	router.Get("/health", h.Liveness)
	router.Post("/api/events", h.IngestEvent)
	router.Route("/api/v1", h.RegisterRoutes)
	return router
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to encode response", zap.Error(err))
	}
}

func parseFilter(r *http.Request) (events.Filter, error) {
	q := r.URL.Query()
	f := events.Filter{
		Type:  events.Type(q.Get("type")),
		Phase: q.Get("phase"),
	}

	var err error
	if f.MinProgress, err = parseProgress(q.Get("min_progress"), "min_progress"); err != nil {
		return f, err
	}
	if f.MaxProgress, err = parseProgress(q.Get("max_progress"), "max_progress"); err != nil {
		return f, err
	}
	if raw := q.Get("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return f, &queryError{param: "since", value: raw}
		}
		f.Since = since
	}
	return f, nil
}

func parseProgress(raw, param string) (*float64, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, &queryError{param: param, value: raw}
	}
	return &v, nil
}

type queryError struct {
	param string
	value string
}

func (e *queryError) Error() string {
	return "invalid " + e.param + ": " + strconv.Quote(e.value)
}
