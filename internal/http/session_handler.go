package http

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/yescount/internal/application"
)

type sessionService interface {
	CreateSession(ctx context.Context, params application.CreateSessionParams) (application.Session, error)
	Preview(ctx context.Context, sessionID string) (application.Preview, error)
	IsValid(ctx context.Context, sessionID string) (bool, error)
	UpdatePreferences(ctx context.Context, params application.UpdatePreferencesParams) (application.Session, error)
	Lock(ctx context.Context, sessionID, actor string) (application.Session, error)
	Archive(ctx context.Context, sessionID, actor string) (application.Session, error)
	DeleteSession(ctx context.Context, sessionID, actor string) error
	InviteText(ctx context.Context, sessionID, from string) (string, error)
	SessionURL(sessionID string) string
	Join(ctx context.Context, sessionID, name string) (application.JoinResult, error)
}

// SessionHandler serves the session lifecycle and membership endpoints.
type SessionHandler struct {
	service   sessionService
	responder responder
	logger    *slog.Logger
}

func NewSessionHandler(service sessionService, logger *slog.Logger) *SessionHandler {
	base := defaultLogger(logger)
	return &SessionHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *SessionHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	if h == nil {
		return slog.Default()
	}
	return handlerLogger(ctx, h.logger, "SessionHandler", operation, attrs...)
}

func (h *SessionHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req createSessionRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode session request", "error", err)
		h.responder.writeBadRequest(r.Context(), w, errBadRequestBody)
		return
	}

	session, err := h.service.CreateSession(r.Context(), application.CreateSessionParams{
		Name:        req.Name,
		Organizer:   req.Organizer,
		Preferences: req.Preferences,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Create", "session_id", session.ID).InfoContext(r.Context(), "session created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, sessionResponse{
		Session: session,
		URL:     h.service.SessionURL(session.ID),
	})
}

func (h *SessionHandler) Preview(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, "Preview")
	if !ok {
		return
	}

	preview, err := h.service.Preview(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, preview)
}

func (h *SessionHandler) Validity(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, "Validity")
	if !ok {
		return
	}

	valid, err := h.service.IsValid(r.Context(), sessionID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, validityResponse{SessionID: sessionID, Valid: valid})
}

func (h *SessionHandler) UpdatePreferences(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, "UpdatePreferences")
	if !ok {
		return
	}

	var req preferencesRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "UpdatePreferences", "session_id", sessionID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode preferences request", "error", err)
		h.responder.writeBadRequest(r.Context(), w, errBadRequestBody)
		return
	}

	session, err := h.service.UpdatePreferences(r.Context(), application.UpdatePreferencesParams{
		SessionID:   sessionID,
		Actor:       req.Actor,
		Preferences: req.Preferences,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: session, URL: h.service.SessionURL(session.ID)})
}

func (h *SessionHandler) Lock(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Lock", h.service.Lock)
}

func (h *SessionHandler) Archive(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, "Archive", h.service.Archive)
}

func (h *SessionHandler) transition(w http.ResponseWriter, r *http.Request, operation string, apply func(context.Context, string, string) (application.Session, error)) {
	sessionID, ok := h.sessionID(w, r, operation)
	if !ok {
		return
	}

	var req actorRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), operation, "session_id", sessionID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode actor request", "error", err)
		h.responder.writeBadRequest(r.Context(), w, errBadRequestBody)
		return
	}

	session, err := apply(r.Context(), sessionID, req.Actor)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), operation, "session_id", sessionID, "status", session.Status).InfoContext(r.Context(), "session status changed")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, sessionResponse{Session: session, URL: h.service.SessionURL(session.ID)})
}

func (h *SessionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, "Delete")
	if !ok {
		return
	}

	if err := h.service.DeleteSession(r.Context(), sessionID, r.URL.Query().Get("actor")); err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.log(r.Context(), "Delete", "session_id", sessionID).InfoContext(r.Context(), "session deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func (h *SessionHandler) Invite(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, "Invite")
	if !ok {
		return
	}

	text, err := h.service.InviteText(r.Context(), sessionID, r.URL.Query().Get("from"))
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, inviteResponse{
		SessionID: sessionID,
		URL:       h.service.SessionURL(sessionID),
		Text:      text,
	})
}

func (h *SessionHandler) Join(w http.ResponseWriter, r *http.Request) {
	sessionID, ok := h.sessionID(w, r, "Join")
	if !ok {
		return
	}

	var req joinRequest
	if err := decodeJSON(r, &req); err != nil {
		h.log(r.Context(), "Join", "session_id", sessionID, "error_kind", "bad_request").WarnContext(r.Context(), "failed to decode join request", "error", err)
		h.responder.writeBadRequest(r.Context(), w, errBadRequestBody)
		return
	}

	result, err := h.service.Join(r.Context(), sessionID, req.Name)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	h.responder.writeJSON(r.Context(), w, status, result)
}

func (h *SessionHandler) sessionID(w http.ResponseWriter, r *http.Request, operation string) (string, bool) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return "", false
	}
	return requireSessionID(w, r, h.responder, h.log(r.Context(), operation))
}

// requireSessionID reads the path session ID placed in the context by the router.
func requireSessionID(w http.ResponseWriter, r *http.Request, resp responder, logger *slog.Logger) (string, bool) {
	id, ok := SessionIDFromContext(r.Context())
	if !ok || strings.TrimSpace(id) == "" {
		logger.WarnContext(r.Context(), "missing session id", "error_kind", "bad_request")
		resp.writeBadRequest(r.Context(), w, errMissingSessionID)
		return "", false
	}
	return strings.TrimSpace(id), true
}

// decodeJSON decodes the request body into dst. An empty body leaves dst untouched.
func decodeJSON(r *http.Request, dst any) error {
	if r.Body == nil {
		return nil
	}
	err := json.NewDecoder(r.Body).Decode(dst)
	if err == io.EOF {
		return nil
	}
	return err
}

type createSessionRequest struct {
	Name        string          `json:"name"`
	Organizer   string          `json:"organizer"`
	Preferences json.RawMessage `json:"preferences"`
}

type preferencesRequest struct {
	Actor       string          `json:"actor"`
	Preferences json.RawMessage `json:"preferences"`
}

type actorRequest struct {
	Actor string `json:"actor"`
}

type joinRequest struct {
	Name string `json:"name"`
}

type sessionResponse struct {
	Session application.Session `json:"session"`
	URL     string              `json:"url"`
}

type validityResponse struct {
	SessionID string `json:"session_id"`
	Valid     bool   `json:"valid"`
}

type inviteResponse struct {
	SessionID string `json:"session_id"`
	URL       string `json:"url"`
	Text      string `json:"text"`
}
