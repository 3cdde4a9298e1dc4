package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoader_ParseEnvironment(t *testing.T) {
	t.Parallel()

	t.Run("applies defaults when variables are missing", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadFrom(map[string]string{})
		if err != nil {
			t.Fatalf("LoadFrom returned error: %v", err)
		}

		if cfg.HTTPPort != 8080 {
			t.Fatalf("expected default HTTP port 8080, got %d", cfg.HTTPPort)
		}
		if cfg.SQLitePath != "yescount.db" {
			t.Fatalf("unexpected default sqlite path: %q", cfg.SQLitePath)
		}
		if cfg.SessionTTL != 7*24*time.Hour {
			t.Fatalf("expected 7 day session TTL, got %s", cfg.SessionTTL)
		}
		if cfg.MaxParticipants != 10 {
			t.Fatalf("expected participant cap 10, got %d", cfg.MaxParticipants)
		}
		if cfg.WeightInterest != 0.4 || cfg.WeightOverlap != 0.4 || cfg.WeightAdmin != 0.2 {
			t.Fatalf("unexpected default weights: %v %v %v", cfg.WeightInterest, cfg.WeightOverlap, cfg.WeightAdmin)
		}
		if cfg.DefaultTopN != 5 {
			t.Fatalf("expected default top N 5, got %d", cfg.DefaultTopN)
		}
		if cfg.BallotSize != 30 || cfg.BallotSource != "" {
			t.Fatalf("unexpected ballot defaults: size %d source %q", cfg.BallotSize, cfg.BallotSource)
		}
		if cfg.UsesPostgres() {
			t.Fatalf("expected sqlite backend by default")
		}
		if cfg.Location().String() != "America/New_York" {
			t.Fatalf("unexpected location %s", cfg.Location())
		}
	})

	t.Run("reads overrides", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadFrom(map[string]string{
			"YESCOUNT_HTTP_PORT":        "9090",
			"YESCOUNT_DATABASE_URL":     "postgres://planner:secret@db:5432/yescount?sslmode=disable",
			"YESCOUNT_SESSION_TTL":      "48h",
			"YESCOUNT_MAX_PARTICIPANTS": "4",
			"YESCOUNT_BASE_URL":         "https://plan.example.com/",
			"YESCOUNT_REDIS_URL":        "redis://cache:6379/0",
			"YESCOUNT_WEIGHT_ADMIN":     "0",
		})
		if err != nil {
			t.Fatalf("LoadFrom returned error: %v", err)
		}

		if cfg.HTTPPort != 9090 {
			t.Fatalf("expected port 9090, got %d", cfg.HTTPPort)
		}
		if !cfg.UsesPostgres() {
			t.Fatalf("expected postgres backend when database URL is set")
		}
		if cfg.SessionTTL != 48*time.Hour {
			t.Fatalf("expected 48h TTL, got %s", cfg.SessionTTL)
		}
		if cfg.MaxParticipants != 4 {
			t.Fatalf("expected cap 4, got %d", cfg.MaxParticipants)
		}
		if cfg.BaseURL != "https://plan.example.com" {
			t.Fatalf("expected trailing slash to be trimmed, got %q", cfg.BaseURL)
		}
		if cfg.WeightAdmin != 0 {
			t.Fatalf("expected admin weight override, got %v", cfg.WeightAdmin)
		}
	})

	t.Run("reports every invalid variable", func(t *testing.T) {
		t.Parallel()

		_, err := LoadFrom(map[string]string{
			"YESCOUNT_HTTP_PORT":        "0",
			"YESCOUNT_DATABASE_URL":     "mysql://db/yescount",
			"YESCOUNT_MAX_PARTICIPANTS": "-1",
			"YESCOUNT_TIMEZONE":         "Mars/Olympus",
			"YESCOUNT_PURGE_SCHEDULE":   "whenever",
			"YESCOUNT_LOG_LEVEL":        "loud",
			"YESCOUNT_BALLOT_SIZE":      "0",
		})
		if err == nil {
			t.Fatalf("expected error for invalid values")
		}
		for _, key := range []string{
			"YESCOUNT_HTTP_PORT",
			"YESCOUNT_DATABASE_URL",
			"YESCOUNT_MAX_PARTICIPANTS",
			"YESCOUNT_TIMEZONE",
			"YESCOUNT_PURGE_SCHEDULE",
			"YESCOUNT_LOG_LEVEL",
			"YESCOUNT_BALLOT_SIZE",
		} {
			if !strings.Contains(err.Error(), key) {
				t.Fatalf("expected error to mention %s, got %v", key, err)
			}
		}
	})

	t.Run("rejects all-zero weights", func(t *testing.T) {
		t.Parallel()

		_, err := LoadFrom(map[string]string{
			"YESCOUNT_WEIGHT_INTEREST": "0",
			"YESCOUNT_WEIGHT_OVERLAP":  "0",
			"YESCOUNT_WEIGHT_ADMIN":    "0",
		})
		if err == nil || !strings.Contains(err.Error(), "YESCOUNT_WEIGHT_OVERLAP") {
			t.Fatalf("expected weight error, got %v", err)
		}
	})

	t.Run("wraps unparsable values", func(t *testing.T) {
		t.Parallel()

		if _, err := LoadFrom(map[string]string{"YESCOUNT_SESSION_TTL": "a week"}); err == nil {
			t.Fatalf("expected parse error for malformed duration")
		}
	})
}
