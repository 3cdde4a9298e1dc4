package http

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/yescount/internal/application"
)

type voteService interface {
	CastVote(ctx context.Context, params application.CastVoteParams) error
	Tally(ctx context.Context, sessionID string) (application.Tally, error)
	ParticipantVotes(ctx context.Context, sessionID string, participantID int64) ([]application.Vote, error)
}

// VoteHandler serves the interest ledger endpoints.
type VoteHandler struct {
	service   voteService
	responder responder
	logger    *slog.Logger
}

func NewVoteHandler(service voteService, logger *slog.Logger) *VoteHandler {
	base := defaultLogger(logger)
	return &VoteHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *VoteHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "VoteHandler", operation, attrs...)
}

// Cast records one vote and answers with the refreshed tally.
func (h *VoteHandler) Cast(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, "Cast")
	if !ok {
		return
	}

	var req voteRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Cast", "session_id", sessionID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode vote request", "error", err)
		h.responder.writeBadRequest(r.Context(), w, errBadRequestBody)
		return
	}

	err := h.service.CastVote(r.Context(), application.CastVoteParams{
		SessionID:     sessionID,
		ParticipantID: req.ParticipantID,
		EventID:       req.EventID,
		Interested:    req.Interested,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	tally, err := h.service.Tally(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, tally)
}

func (h *VoteHandler) Tally(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, "Tally")
	if !ok {
		return
	}

	tally, err := h.service.Tally(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, tally)
}

func (h *VoteHandler) ParticipantVotes(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, "ParticipantVotes")
	if !ok {
		return
	}
	participantID, ok := parsePositiveID(r.PathValue("participant"))
	if !ok {
		h.responder.writeBadRequest(r.Context(), w, errInvalidPartID)
		return
	}

	votes, err := h.service.ParticipantVotes(r.Context(), sessionID, participantID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	if votes == nil {
		votes = []application.Vote{}
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, participantVotesResponse{
		SessionID:     sessionID,
		ParticipantID: participantID,
		Votes:         votes,
	})
}

func (h *VoteHandler) sessionID(w http.ResponseWriter, r *http.Request, operation string) (string, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return "", false
	}
	return requireSessionID(w, r, h.responder, h.log(r.Context(), operation))
}

func parsePositiveID(raw string) (int64, bool) {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type voteRequest struct {
	ParticipantID int64 `json:"participant_id"`
	EventID       int64 `json:"event_id"`
	Interested    bool  `json:"interested"`
}

type participantVotesResponse struct {
	SessionID     string             `json:"session_id"`
	ParticipantID int64              `json:"participant_id"`
	Votes         []application.Vote `json:"votes"`
}
