package http

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/example/yescount/internal/application"
)

var errInvalidTop = errors.New("top must be an integer")

type recommendationService interface {
	ComputeRecommendations(ctx context.Context, sessionID string, topN int) (application.Recommendations, error)
	RankEventsOnly(ctx context.Context, sessionID string) (application.EventRanking, error)
}

// RecommendationHandler serves ranked recommendations.
type RecommendationHandler struct {
	service   recommendationService
	responder responder
	logger    *slog.Logger
}

func NewRecommendationHandler(service recommendationService, logger *slog.Logger) *RecommendationHandler {
	base := defaultLogger(logger)
	return &RecommendationHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RecommendationHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "RecommendationHandler", operation, attrs...)
}

// Recommendations answers GET /sessions/{id}/recommendations?top=N. A missing
// top uses the configured default.
func (h *RecommendationHandler) Recommendations(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, "Recommendations")
	if !ok {
		return
	}

	topN := 0
	if raw := strings.TrimSpace(r.URL.Query().Get("top")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			h.responder.writeBadRequest(r.Context(), w, errInvalidTop)
			return
		}
		topN = n
	}

	result, err := h.service.ComputeRecommendations(r.Context(), sessionID, topN)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, result)
}

func (h *RecommendationHandler) Rankings(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, "Rankings")
	if !ok {
		return
	}

	ranking, err := h.service.RankEventsOnly(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, ranking)
}

func (h *RecommendationHandler) sessionID(w http.ResponseWriter, r *http.Request, operation string) (string, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return "", false
	}
	return requireSessionID(w, r, h.responder, h.log(r.Context(), operation))
}
