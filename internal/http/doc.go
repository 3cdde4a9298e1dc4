// Package http exposes the planning services as a JSON API.
//
// The router exposes the following endpoints:
//   - POST /sessions: creates a session. Body: {"name","organizer","preferences"}.
//     Response: {"session","url"}.
//   - GET /sessions/{id}, DELETE /sessions/{id}?actor=: preview (session, participant
//     names, top voted events) and organizer-only deletion.
//   - GET /sessions/{id}/validity: reports whether the session exists and is unexpired.
//   - PUT /sessions/{id}/preferences, POST /sessions/{id}/lock, POST /sessions/{id}/archive:
//     organizer operations. Bodies carry {"actor"}; preferences also {"preferences"}.
//   - GET /sessions/{id}/invite?from=: shareable invitation text.
//   - POST /sessions/{id}/participants: joins by display name. Answers 201 for a new
//     participant and 200 when the name matched an existing one.
//   - PUT /sessions/{id}/votes, GET /sessions/{id}/votes: vote ledger and tally.
//   - PUT /sessions/{id}/availability, GET /sessions/{id}/availability,
//     GET /sessions/{id}/overlap: availability ledger, date grouping and overlap cells.
//   - GET /sessions/{id}/participants/{participant}/votes and .../availability:
//     one participant's own records.
//   - GET /sessions/{id}/recommendations?top=N, GET /sessions/{id}/rankings: ranked
//     (event, slot) pairs and the interest-only event ranking.
//   - GET /events, GET /events/{id}, GET /events/ballot, GET /voting-window: catalog.
//   - GET /healthz, GET /readyz: probes.
//
// Failures share one payload: {"error_kind","message","retryable","correlation_id","errors"}.
package http
