package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/example/yescount/internal/application"
	"github.com/example/yescount/internal/votingwindow"
)

type eventService interface {
	GetEvent(ctx context.Context, id int64) (application.Event, error)
	ListEvents(ctx context.Context, params application.EventListParams) ([]application.Event, error)
	VotingBallot(ctx context.Context) (application.Ballot, error)
}

// EventHandler serves the event catalog and the monthly voting window.
type EventHandler struct {
	service   eventService
	now       func() time.Time
	responder responder
	logger    *slog.Logger
}

func NewEventHandler(service eventService, now func() time.Time, logger *slog.Logger) *EventHandler {
	base := defaultLogger(logger)
	if now == nil {
		now = time.Now
	}
	return &EventHandler{service: service, now: now, responder: newResponder(base), logger: base}
}

func (h *EventHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "EventHandler", operation, attrs...)
}

func (h *EventHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	params, err := buildEventListParams(r.URL.Query())
	if err != nil {
		h.log(r.Context(), "List", "error_kind", "bad_request").WarnContext(r.Context(), "invalid event filter", "error", err)
		h.responder.writeBadRequest(r.Context(), w, err)
		return
	}

	events, err := h.service.ListEvents(r.Context(), params)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if events == nil {
		events = []application.Event{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, eventsResponse{Events: events})
}

func (h *EventHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	id, ok := parsePositiveID(r.PathValue("id"))
	if !ok {
		h.responder.writeBadRequest(r.Context(), w, errInvalidEventID)
		return
	}

	event, err := h.service.GetEvent(r.Context(), id)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, event)
}

func (h *EventHandler) Ballot(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	ballot, err := h.service.VotingBallot(r.Context())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if ballot.Events == nil {
		ballot.Events = []application.Event{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, ballot)
}

func (h *EventHandler) VotingWindow(w http.ResponseWriter, r *http.Request) {
	if h == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, votingwindow.Current(h.now()))
}

func buildEventListParams(values url.Values) (application.EventListParams, error) {
	var params application.EventListParams

	if raw := strings.TrimSpace(values.Get("starts_after")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return params, errors.New("starts_after must be an RFC 3339 timestamp")
		}
		params.StartsAfter = &t
	}
	if raw := strings.TrimSpace(values.Get("starts_before")); raw != "" {
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return params, errors.New("starts_before must be an RFC 3339 timestamp")
		}
		params.StartsBefore = &t
	}
	if raw := strings.TrimSpace(values.Get("limit")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			return params, errors.New("limit must be an integer")
		}
		params.Limit = n
	}
	params.Source = strings.TrimSpace(values.Get("source"))
	return params, nil
}

type eventsResponse struct {
	Events []application.Event `json:"events"`
}
