package application

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/example/yescount/internal/cache"
	"github.com/example/yescount/internal/engine"
	"github.com/example/yescount/internal/identity"
	"github.com/example/yescount/internal/persistence"
)

const (
	maxSessionNameLength = 100
	previewTopEvents     = 3
)

// SessionSettings configures session lifecycle rules.
type SessionSettings struct {
	TTL             time.Duration
	MaxParticipants int
	BaseURL         string
}

// DefaultSessionSettings returns a 7 day TTL and a cap of 10 participants.
func DefaultSessionSettings() SessionSettings {
	return SessionSettings{TTL: 7 * 24 * time.Hour, MaxParticipants: 10, BaseURL: "http://localhost:8080"}
}

// allowedFrom lists, per target status, the statuses a session may leave to reach it.
var allowedFrom = map[string][]string{
	StatusLocked:   {StatusOpen},
	StatusArchived: {StatusOpen, StatusLocked},
}

// SessionService governs session lifecycle, membership and write gating.
type SessionService struct {
	repos       Repositories
	cache       cache.DerivedCache
	settings    SessionSettings
	idGenerator func() string
	now         func() time.Time
	logger      *slog.Logger
}

// NewSessionService constructs a session service with the provided dependencies.
func NewSessionService(repos Repositories, derived cache.DerivedCache, settings SessionSettings, idGenerator func() string, now func() time.Time) *SessionService {
	return NewSessionServiceWithLogger(repos, derived, settings, idGenerator, now, nil)
}

// NewSessionServiceWithLogger constructs a session service with a specified logger.
func NewSessionServiceWithLogger(repos Repositories, derived cache.DerivedCache, settings SessionSettings, idGenerator func() string, now func() time.Time, logger *slog.Logger) *SessionService {
	defaults := DefaultSessionSettings()
	if settings.TTL <= 0 {
		settings.TTL = defaults.TTL
	}
	if settings.MaxParticipants <= 0 {
		settings.MaxParticipants = defaults.MaxParticipants
	}
	if settings.BaseURL == "" {
		settings.BaseURL = defaults.BaseURL
	}
	if derived == nil {
		derived = cache.Nop{}
	}
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if now == nil {
		now = time.Now
	}
	return &SessionService{
		repos:       repos,
		cache:       derived,
		settings:    settings,
		idGenerator: idGenerator,
		now:         now,
		logger:      defaultLogger(logger),
	}
}

func (s *SessionService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "SessionService", operation, attrs...)
}

// AssertWritable fails when the session no longer accepts participant writes.
// Archived takes precedence over locked, and both over expiry.
func AssertWritable(session persistence.Session, now time.Time) error {
	switch session.Status {
	case StatusArchived:
		return ErrSessionArchived
	case StatusLocked:
		return ErrSessionLocked
	}
	if isExpired(session, now) {
		return ErrSessionExpired
	}
	return nil
}

func isExpired(session persistence.Session, now time.Time) bool {
	return !now.Before(session.ExpiresAt)
}

// CreateSession validates input and persists a new open session.
func (s *SessionService) CreateSession(ctx context.Context, params CreateSessionParams) (session Session, err error) {
	logger := s.loggerWith(ctx, "CreateSession", "organizer", identity.DisplayName(params.Organizer))
	defer func() {
		logResult(ctx, logger, err, "failed to create session", "session created", "session_id", session.ID)
		err = finalizeError(ctx, err)
	}()

	vErr := &ValidationError{}
	name := identity.DisplayName(params.Name)
	switch {
	case name == "":
		vErr.add("name", "session name is required")
	case utf8.RuneCountInString(name) > maxSessionNameLength:
		vErr.add("name", fmt.Sprintf("session name must be at most %d characters", maxSessionNameLength))
	}
	if msg := nameProblem(params.Organizer); msg != "" {
		vErr.add("organizer", msg)
	}
	prefs, prefErr := parsePreferences(params.Preferences)
	vErr.merge(prefErr)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	encoded, err := prefs.Marshal()
	if err != nil {
		return
	}

	now := s.now().UTC()
	record := persistence.Session{
		ID:               s.idGenerator(),
		Name:             name,
		CreatedBy:        identity.DisplayName(params.Organizer),
		AdminPreferences: encoded,
		Status:           StatusOpen,
		CreatedAt:        now,
		ExpiresAt:        now.Add(s.settings.TTL),
	}
	if err = s.repos.Sessions.CreateSession(ctx, record); err != nil {
		err = mapRepoError(err)
		return
	}

	session = s.toSession(record, prefs)
	return
}

// GetSession returns the session view.
func (s *SessionService) GetSession(ctx context.Context, sessionID string) (Session, error) {
	record, err := s.repos.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return Session{}, finalizeError(ctx, mapSessionLookupError(err, sessionID))
	}
	prefs, err := storedPreferences(record)
	if err != nil {
		return Session{}, finalizeError(ctx, err)
	}
	return s.toSession(record, prefs), nil
}

// Preview returns the read-only aggregate shown to prospective participants.
func (s *SessionService) Preview(ctx context.Context, sessionID string) (preview Preview, err error) {
	defer func() { err = finalizeError(ctx, err) }()

	session, err := s.GetSession(ctx, sessionID)
	if err != nil {
		return
	}

	participants, err := s.repos.Participants.ListParticipants(ctx, sessionID)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	names := make([]string, 0, len(participants))
	for _, p := range participants {
		names = append(names, p.Name)
	}

	top, err := s.topEvents(ctx, sessionID, previewTopEvents)
	if err != nil {
		return
	}

	preview = Preview{Session: session, Participants: names, TopEvents: top}
	return
}

// topEvents returns up to limit events with the most interested votes.
func (s *SessionService) topEvents(ctx context.Context, sessionID string, limit int) ([]EventSummary, error) {
	votes, err := s.repos.Votes.ListVotes(ctx, sessionID)
	if err != nil {
		return nil, mapRepoError(err)
	}
	tally := buildTally(sessionID, votes)

	ranked := make([]EventTally, 0, len(tally.Events))
	for _, e := range tally.Events {
		if e.YesVotes > 0 {
			ranked = append(ranked, e)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].YesVotes != ranked[j].YesVotes {
			return ranked[i].YesVotes > ranked[j].YesVotes
		}
		return ranked[i].EventID < ranked[j].EventID
	})
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	if len(ranked) == 0 {
		return []EventSummary{}, nil
	}

	ids := make([]int64, len(ranked))
	for i, e := range ranked {
		ids[i] = e.EventID
	}
	events, err := s.repos.Events.ListEvents(ctx, persistence.EventFilter{IDs: ids})
	if err != nil {
		return nil, mapRepoError(err)
	}
	byID := make(map[int64]persistence.Event, len(events))
	for _, e := range events {
		byID[e.ID] = e
	}

	out := make([]EventSummary, 0, len(ranked))
	for _, r := range ranked {
		event, ok := byID[r.EventID]
		if !ok {
			continue
		}
		out = append(out, EventSummary{EventID: event.ID, Title: event.Title, DateStart: event.DateStart, YesVotes: r.YesVotes})
	}
	return out, nil
}

// Join adds a participant to the session, or returns the existing participant
// registered under an equivalent name.
func (s *SessionService) Join(ctx context.Context, sessionID, name string) (result JoinResult, err error) {
	logger := s.loggerWith(ctx, "Join", "session_id", sessionID)
	defer func() {
		logResult(ctx, logger, err, "failed to join session", "participant joined",
			"participant_id", result.Participant.ID, "created", result.Created)
		err = finalizeError(ctx, err)
	}()

	if msg := nameProblem(name); msg != "" {
		err = newValidationError("name", msg)
		return
	}

	session, err := s.repos.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		err = mapSessionLookupError(err, sessionID)
		return
	}
	now := s.now()
	if err = AssertWritable(session, now); err != nil {
		return
	}

	participant, created, err := s.repos.Participants.JoinParticipant(ctx, persistence.Participant{
		SessionID:      sessionID,
		Name:           identity.DisplayName(name),
		NameNormalized: identity.Normalize(name),
	}, s.settings.MaxParticipants, now.UTC())
	if err != nil {
		err = s.resolveWriteError(ctx, sessionID, err)
		return
	}

	if created {
		s.invalidate(ctx, sessionID)
	}
	result = JoinResult{Participant: toParticipant(participant), Created: created}
	return
}

// Lock moves an open session to locked. Locking a locked session succeeds without change.
func (s *SessionService) Lock(ctx context.Context, sessionID, actor string) (Session, error) {
	return s.Transition(ctx, sessionID, actor, StatusLocked)
}

// Archive moves an open or locked session to archived.
func (s *SessionService) Archive(ctx context.Context, sessionID, actor string) (Session, error) {
	return s.Transition(ctx, sessionID, actor, StatusArchived)
}

// Transition applies an organizer requested status change using a conditional update.
func (s *SessionService) Transition(ctx context.Context, sessionID, actor, to string) (session Session, err error) {
	logger := s.loggerWith(ctx, "Transition", "session_id", sessionID, "to", to)
	changed := false
	defer func() {
		logResult(ctx, logger, err, "failed to change session status", "session status applied", "changed", changed)
		err = finalizeError(ctx, err)
	}()

	from, ok := allowedFrom[to]
	if !ok {
		err = fmt.Errorf("%w: cannot move a session to %q", ErrInvalidTransition, to)
		return
	}

	record, err := s.repos.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		err = mapSessionLookupError(err, sessionID)
		return
	}
	if !identity.Equal(actor, record.CreatedBy) {
		err = ErrForbidden
		return
	}

	changed, err = s.repos.Sessions.UpdateSessionStatus(ctx, sessionID, from, to)
	if err != nil {
		err = mapRepoError(err)
		return
	}
	if changed {
		s.invalidate(ctx, sessionID)
	}

	record, err = s.repos.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		err = mapSessionLookupError(err, sessionID)
		return
	}
	if !changed && (record.Status != to || to == StatusArchived) {
		err = fmt.Errorf("%w: session is %s", ErrInvalidTransition, record.Status)
		return
	}

	prefs, err := storedPreferences(record)
	if err != nil {
		return
	}
	session = s.toSession(record, prefs)
	return
}

// UpdatePreferences replaces the organizer preferences of an open, unexpired session.
func (s *SessionService) UpdatePreferences(ctx context.Context, params UpdatePreferencesParams) (session Session, err error) {
	logger := s.loggerWith(ctx, "UpdatePreferences", "session_id", params.SessionID)
	defer func() {
		logResult(ctx, logger, err, "failed to update preferences", "preferences updated")
		err = finalizeError(ctx, err)
	}()

	record, err := s.repos.Sessions.GetSession(ctx, params.SessionID)
	if err != nil {
		err = mapSessionLookupError(err, params.SessionID)
		return
	}
	if !identity.Equal(params.Actor, record.CreatedBy) {
		err = ErrForbidden
		return
	}
	now := s.now()
	if err = AssertWritable(record, now); err != nil {
		return
	}

	prefs, vErr := parsePreferences(params.Preferences)
	if vErr.HasErrors() {
		err = vErr
		return
	}
	encoded, err := prefs.Marshal()
	if err != nil {
		return
	}

	if err = s.repos.Sessions.UpdateAdminPreferences(ctx, params.SessionID, encoded, now.UTC()); err != nil {
		err = s.resolveWriteError(ctx, params.SessionID, err)
		return
	}
	s.invalidate(ctx, params.SessionID)

	record.AdminPreferences = encoded
	session = s.toSession(record, prefs)
	return
}

// IsValid reports whether the session exists, is not archived and has not expired.
func (s *SessionService) IsValid(ctx context.Context, sessionID string) (bool, error) {
	record, err := s.repos.Sessions.GetSession(ctx, sessionID)
	if errors.Is(err, persistence.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, finalizeError(ctx, mapRepoError(err))
	}
	return record.Status != StatusArchived && !isExpired(record, s.now()), nil
}

// DeleteSession removes the session and everything recorded in it.
func (s *SessionService) DeleteSession(ctx context.Context, sessionID, actor string) (err error) {
	logger := s.loggerWith(ctx, "DeleteSession", "session_id", sessionID)
	defer func() {
		logResult(ctx, logger, err, "failed to delete session", "session deleted")
		err = finalizeError(ctx, err)
	}()

	record, err := s.repos.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		err = mapSessionLookupError(err, sessionID)
		return
	}
	if !identity.Equal(actor, record.CreatedBy) {
		err = ErrForbidden
		return
	}
	if err = s.repos.Sessions.DeleteSession(ctx, sessionID); err != nil {
		err = mapSessionLookupError(err, sessionID)
		return
	}
	s.invalidate(ctx, sessionID)
	return
}

// SessionURL returns the shareable link of a session.
func (s *SessionService) SessionURL(sessionID string) string {
	return s.settings.BaseURL + "?session=" + url.QueryEscape(sessionID)
}

// InviteText builds the message a participant shares to invite others.
func (s *SessionService) InviteText(ctx context.Context, sessionID, from string) (string, error) {
	record, err := s.repos.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		return "", finalizeError(ctx, mapSessionLookupError(err, sessionID))
	}
	inviter := identity.DisplayName(from)
	if inviter == "" {
		inviter = record.CreatedBy
	}

	lines := []string{
		fmt.Sprintf("%s invited you to plan: %s", inviter, record.Name),
		"Join here: " + s.SessionURL(sessionID),
	}
	top, err := s.topEvents(ctx, sessionID, 1)
	if err != nil {
		return "", finalizeError(ctx, err)
	}
	if len(top) > 0 {
		lines = append(lines, fmt.Sprintf("Current top pick: %s (%s)", top[0].Title, top[0].DateStart.Format("Mon Jan 2")))
	}
	lines = append(lines, "Vote on events and add your availability to finalize the plan.")
	return strings.Join(lines, "\n"), nil
}

func (s *SessionService) toSession(record persistence.Session, prefs engine.Preferences) Session {
	return Session{
		ID:          record.ID,
		Name:        record.Name,
		CreatedBy:   record.CreatedBy,
		Status:      record.Status,
		Expired:     isExpired(record, s.now()),
		Preferences: prefs,
		CreatedAt:   record.CreatedAt,
		ExpiresAt:   record.ExpiresAt,
	}
}

// resolveWriteError turns a store rejection into the precise gate error by
// re-reading the session when the store reports it closed.
func (s *SessionService) resolveWriteError(ctx context.Context, sessionID string, err error) error {
	return resolveWriteError(ctx, s.repos.Sessions, s.now, sessionID, err)
}

func (s *SessionService) invalidate(ctx context.Context, sessionID string) {
	invalidate(ctx, s.cache, s.loggerWith(ctx, "invalidate"), sessionID)
}

func nameProblem(raw string) string {
	switch err := identity.Validate(raw); {
	case err == nil:
		return ""
	case errors.Is(err, identity.ErrEmptyName):
		return "name is required"
	case errors.Is(err, identity.ErrNameTooLong):
		return fmt.Sprintf("name must be at most %d characters", identity.MaxNameLength)
	default:
		return "use letters, numbers, spaces, apostrophes, or hyphens only"
	}
}

func parsePreferences(raw json.RawMessage) (engine.Preferences, *ValidationError) {
	prefs, err := engine.ParsePreferences(raw)
	if err == nil {
		return prefs, nil
	}
	vErr := &ValidationError{}
	var prefErrs engine.PreferenceErrors
	if errors.As(err, &prefErrs) {
		for field, msg := range prefErrs {
			if field != "preferences" {
				field = "preferences." + field
			}
			vErr.add(field, msg)
		}
		return prefs, vErr
	}
	vErr.add("preferences", err.Error())
	return prefs, vErr
}

// storedPreferences decodes the preference record written at creation time.
func storedPreferences(record persistence.Session) (engine.Preferences, error) {
	prefs, err := engine.ParsePreferences(record.AdminPreferences)
	if err != nil {
		return engine.Preferences{}, fmt.Errorf("session %s has an unreadable preference record: %w", record.ID, err)
	}
	return prefs, nil
}
