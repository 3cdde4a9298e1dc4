package http

import (
	"net/http"
)

type RouterConfig struct {
	Sessions        *SessionHandler
	Votes           *VoteHandler
	Availability    *AvailabilityHandler
	Recommendations *RecommendationHandler
	Events          *EventHandler
	Health          *HealthHandler
	Middleware      []func(http.Handler) http.Handler
}

func NewRouter(cfg RouterConfig) http.Handler {
	mux := http.NewServeMux()

	if cfg.Sessions != nil {
		mux.HandleFunc("POST /sessions", cfg.Sessions.Create)
		mux.HandleFunc("GET /sessions/{id}", withSession(cfg.Sessions.Preview))
		mux.HandleFunc("DELETE /sessions/{id}", withSession(cfg.Sessions.Delete))
		mux.HandleFunc("GET /sessions/{id}/validity", withSession(cfg.Sessions.Validity))
		mux.HandleFunc("PUT /sessions/{id}/preferences", withSession(cfg.Sessions.UpdatePreferences))
		mux.HandleFunc("POST /sessions/{id}/lock", withSession(cfg.Sessions.Lock))
		mux.HandleFunc("POST /sessions/{id}/archive", withSession(cfg.Sessions.Archive))
		mux.HandleFunc("GET /sessions/{id}/invite", withSession(cfg.Sessions.Invite))
		mux.HandleFunc("POST /sessions/{id}/participants", withSession(cfg.Sessions.Join))
	}

	if cfg.Votes != nil {
		mux.HandleFunc("PUT /sessions/{id}/votes", withSession(cfg.Votes.Cast))
		mux.HandleFunc("GET /sessions/{id}/votes", withSession(cfg.Votes.Tally))
		mux.HandleFunc("GET /sessions/{id}/participants/{participant}/votes", withSession(cfg.Votes.ParticipantVotes))
	}

	if cfg.Availability != nil {
		mux.HandleFunc("PUT /sessions/{id}/availability", withSession(cfg.Availability.Set))
		mux.HandleFunc("GET /sessions/{id}/availability", withSession(cfg.Availability.Group))
		mux.HandleFunc("GET /sessions/{id}/overlap", withSession(cfg.Availability.Overlap))
		mux.HandleFunc("GET /sessions/{id}/participants/{participant}/availability", withSession(cfg.Availability.Participant))
	}

	if cfg.Recommendations != nil {
		mux.HandleFunc("GET /sessions/{id}/recommendations", withSession(cfg.Recommendations.Recommendations))
		mux.HandleFunc("GET /sessions/{id}/rankings", withSession(cfg.Recommendations.Rankings))
	}

	if cfg.Events != nil {
		mux.HandleFunc("GET /events", cfg.Events.List)
		mux.HandleFunc("GET /events/ballot", cfg.Events.Ballot)
		mux.HandleFunc("GET /events/{id}", cfg.Events.Get)
		mux.HandleFunc("GET /voting-window", cfg.Events.VotingWindow)
	}

	if cfg.Health != nil {
		mux.HandleFunc("GET /healthz", cfg.Health.Live)
		mux.HandleFunc("GET /readyz", cfg.Health.Ready)
	}

	var handler http.Handler = mux
	if len(cfg.Middleware) > 0 {
		for i := len(cfg.Middleware) - 1; i >= 0; i-- {
			if cfg.Middleware[i] != nil {
				handler = cfg.Middleware[i](handler)
			}
		}
	}

	return handler
}

// withSession moves the {id} path value into the request context.
func withSession(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := ContextWithSessionID(r.Context(), r.PathValue("id"))
		next(w, r.WithContext(ctx))
	}
}
