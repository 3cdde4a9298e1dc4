package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/yescount/internal/application"
	"github.com/example/yescount/internal/engine"
)

type availabilityService interface {
	SetAvailability(ctx context.Context, params application.SetAvailabilityParams) (application.AvailabilityResult, error)
	GroupAvailability(ctx context.Context, sessionID string) ([]application.DateAvailability, error)
	OverlapMatrix(ctx context.Context, sessionID string) (application.OverlapMatrix, error)
	ParticipantAvailability(ctx context.Context, sessionID string, participantID int64) ([]engine.Slot, error)
}

// AvailabilityHandler serves the availability ledger and overlap endpoints.
type AvailabilityHandler struct {
	service   availabilityService
	responder responder
	logger    *slog.Logger
}

func NewAvailabilityHandler(service availabilityService, logger *slog.Logger) *AvailabilityHandler {
	base := defaultLogger(logger)
	return &AvailabilityHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *AvailabilityHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "AvailabilityHandler", operation, attrs...)
}

func (h *AvailabilityHandler) Set(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, "Set")
	if !ok {
		return
	}

	var req availabilityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Set", "session_id", sessionID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode availability request", "error", err)
		h.responder.writeBadRequest(r.Context(), w, errBadRequestBody)
		return
	}

	result, err := h.service.SetAvailability(r.Context(), application.SetAvailabilityParams{
		SessionID:     sessionID,
		ParticipantID: req.ParticipantID,
		Slots:         req.Slots,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}

func (h *AvailabilityHandler) Group(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, "Group")
	if !ok {
		return
	}

	dates, err := h.service.GroupAvailability(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if dates == nil {
		dates = []application.DateAvailability{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, groupedAvailabilityResponse{SessionID: sessionID, Dates: dates})
}

func (h *AvailabilityHandler) Overlap(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, "Overlap")
	if !ok {
		return
	}

	matrix, err := h.service.OverlapMatrix(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, matrix)
}

func (h *AvailabilityHandler) Participant(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, "Participant")
	if !ok {
		return
	}
	participantID, ok := parsePositiveID(r.PathValue("participant"))
	if !ok {
		h.responder.writeBadRequest(r.Context(), w, errInvalidPartID)
		return
	}

	slots, err := h.service.ParticipantAvailability(r.Context(), sessionID, participantID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if slots == nil {
		slots = []engine.Slot{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityRequest{ParticipantID: participantID, Slots: slots})
}

func (h *AvailabilityHandler) sessionID(w http.ResponseWriter, r *http.Request, operation string) (string, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return "", false
	}
	return requireSessionID(w, r, h.responder, h.log(r.Context(), operation))
}

type availabilityRequest struct {
	ParticipantID int64         `json:"participant_id"`
	Slots         []engine.Slot `json:"slots"`
}

type groupedAvailabilityResponse struct {
	SessionID string                         `json:"session_id"`
	Dates     []application.DateAvailability `json:"dates"`
}
