package application

import (
	"context"
	"testing"
	"time"
)

func TestVoteService_Tally(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	session := env.createSession(t, "Ana", "")
	p1 := env.join(t, session.ID, "Ana")
	p2 := env.join(t, session.ID, "Ben")
	p3 := env.join(t, session.ID, "Cleo")
	e1 := env.addEvent(t, "e1", "Concert", testStart.Add(72*time.Hour), nil)
	e2 := env.addEvent(t, "e2", "Museum", testStart.Add(96*time.Hour), nil)

	env.vote(t, session.ID, p1.ID, e1, true)
	env.vote(t, session.ID, p2.ID, e1, true)
	env.vote(t, session.ID, p3.ID, e2, true)
	env.vote(t, session.ID, p1.ID, e2, false)

	tally, err := env.votes.Tally(ctx, session.ID)
	if err != nil {
		t.Fatalf("Tally returned error: %v", err)
	}
	yes := tally.YesVotes()
	if len(yes) != 2 || yes[e1] != 2 || yes[e2] != 1 {
		t.Fatalf("expected {e1:2, e2:1}, got %v", yes)
	}
	if tally.Events[1].TotalVotes != 2 {
		t.Fatalf("expected two votes on e2, got %+v", tally.Events[1])
	}

	// Re-casting the same vote does not double count.
	env.vote(t, session.ID, p1.ID, e1, true)
	tally, _ = env.votes.Tally(ctx, session.ID)
	if tally.YesVotes()[e1] != 2 {
		t.Fatalf("expected revote to be idempotent, got %v", tally.YesVotes())
	}

	// Flipping a vote updates the cached tally.
	env.vote(t, session.ID, p2.ID, e1, false)
	tally, _ = env.votes.Tally(ctx, session.ID)
	if tally.YesVotes()[e1] != 1 {
		t.Fatalf("expected flipped vote to be reflected, got %v", tally.YesVotes())
	}
	if ids := tally.Events[0].InterestedParticipantIDs; len(ids) != 1 || ids[0] != p1.ID {
		t.Fatalf("expected only p1 interested in e1, got %v", ids)
	}

	votes, err := env.votes.ParticipantVotes(ctx, session.ID, p1.ID)
	if err != nil || len(votes) != 2 {
		t.Fatalf("expected two votes for p1, got %v, %v", votes, err)
	}
}

func TestVoteService_CastVoteValidation(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t)
	ctx := context.Background()
	session := env.createSession(t, "Ana", "")
	other := env.createSession(t, "Zed", "")
	ana := env.join(t, session.ID, "Ana")
	outsider := env.join(t, other.ID, "Zed")
	eventID := env.addEvent(t, "e1", "Concert", testStart.Add(72*time.Hour), nil)

	err := env.votes.CastVote(ctx, CastVoteParams{SessionID: session.ID, ParticipantID: ana.ID, EventID: 9999, Interested: true})
	assertKind(t, err, KindNotFound)

	err = env.votes.CastVote(ctx, CastVoteParams{SessionID: session.ID, ParticipantID: outsider.ID, EventID: eventID, Interested: true})
	assertKind(t, err, KindNotFound)

	err = env.votes.CastVote(ctx, CastVoteParams{SessionID: "missing", ParticipantID: ana.ID, EventID: eventID, Interested: true})
	assertKind(t, err, KindNotFound)

	_, err = env.votes.Tally(ctx, "missing")
	assertKind(t, err, KindNotFound)

	env.clock.Advance(7*24*time.Hour + time.Minute)
	err = env.votes.CastVote(ctx, CastVoteParams{SessionID: session.ID, ParticipantID: ana.ID, EventID: eventID, Interested: true})
	assertKind(t, err, KindSessionExpired)
}
