package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/caarlos0/env/v11"
	"github.com/robfig/cron/v3"

	"github.com/example/yescount/internal/logging"
)

// Config captures environment driven configuration values for the yescount service.
type Config struct {
	HTTPPort        int           `env:"YESCOUNT_HTTP_PORT" envDefault:"8080"`
	DatabaseURL     string        `env:"YESCOUNT_DATABASE_URL"`
	SQLitePath      string        `env:"YESCOUNT_SQLITE_PATH" envDefault:"yescount.db"`
	SessionTTL      time.Duration `env:"YESCOUNT_SESSION_TTL" envDefault:"168h"`
	MaxParticipants int           `env:"YESCOUNT_MAX_PARTICIPANTS" envDefault:"10"`
	BaseURL         string        `env:"YESCOUNT_BASE_URL" envDefault:"http://localhost:8080"`
	Timezone        string        `env:"YESCOUNT_TIMEZONE" envDefault:"America/New_York"`

	WeightInterest float64 `env:"YESCOUNT_WEIGHT_INTEREST" envDefault:"0.4"`
	WeightOverlap  float64 `env:"YESCOUNT_WEIGHT_OVERLAP" envDefault:"0.4"`
	WeightAdmin    float64 `env:"YESCOUNT_WEIGHT_ADMIN" envDefault:"0.2"`
	DefaultTopN    int     `env:"YESCOUNT_DEFAULT_TOP_N" envDefault:"5"`

	BallotSource string `env:"YESCOUNT_BALLOT_SOURCE"`
	BallotSize   int    `env:"YESCOUNT_BALLOT_SIZE" envDefault:"30"`

	CacheTTL        time.Duration `env:"YESCOUNT_CACHE_TTL" envDefault:"30s"`
	CacheMaxEntries int           `env:"YESCOUNT_CACHE_MAX_ENTRIES" envDefault:"256"`
	RedisURL        string        `env:"YESCOUNT_REDIS_URL"`

	PurgeSchedule  string        `env:"YESCOUNT_PURGE_SCHEDULE" envDefault:"@every 1h"`
	PurgeRetention time.Duration `env:"YESCOUNT_PURGE_RETENTION" envDefault:"720h"`

	LogLevel string `env:"YESCOUNT_LOG_LEVEL" envDefault:"info"`
}

// Location resolves the configured timezone. Load has already validated it.
func (c Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// UsesPostgres reports whether the Postgres backend is selected.
func (c Config) UsesPostgres() bool {
	return strings.TrimSpace(c.DatabaseURL) != ""
}

// Load parses configuration values from the current process environment.
//
// Defaults come from the struct tags. Every variable holding an unusable value
// is reported in a single error.
func Load() (Config, error) {
	return LoadFrom(nil)
}

// LoadFrom behaves like Load but reads variables from the supplied map. A nil
// map falls back to the process environment.
func LoadFrom(environ map[string]string) (Config, error) {
	var cfg Config
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("failed to parse environment: %w", err)
	}

	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)
	cfg.RedisURL = strings.TrimSpace(cfg.RedisURL)
	cfg.BallotSource = strings.TrimSpace(cfg.BallotSource)
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")

	if invalid := cfg.validate(); len(invalid) > 0 {
		return Config{}, fmt.Errorf("invalid environment values: %s", strings.Join(invalid, ", "))
	}

	return cfg, nil
}

func (c Config) validate() []string {
	invalid := make([]string, 0, 4)

	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		invalid = append(invalid, "YESCOUNT_HTTP_PORT")
	}
	if c.DatabaseURL != "" && !hasScheme(c.DatabaseURL, "postgres", "postgresql") {
		invalid = append(invalid, "YESCOUNT_DATABASE_URL")
	}
	if c.DatabaseURL == "" && strings.TrimSpace(c.SQLitePath) == "" {
		invalid = append(invalid, "YESCOUNT_SQLITE_PATH")
	}
	if c.SessionTTL <= 0 {
		invalid = append(invalid, "YESCOUNT_SESSION_TTL")
	}
	if c.MaxParticipants <= 0 {
		invalid = append(invalid, "YESCOUNT_MAX_PARTICIPANTS")
	}
	if !hasScheme(c.BaseURL, "http", "https") {
		invalid = append(invalid, "YESCOUNT_BASE_URL")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil || strings.TrimSpace(c.Timezone) == "" {
		invalid = append(invalid, "YESCOUNT_TIMEZONE")
	}
	if c.WeightInterest < 0 {
		invalid = append(invalid, "YESCOUNT_WEIGHT_INTEREST")
	}
	if c.WeightOverlap < 0 {
		invalid = append(invalid, "YESCOUNT_WEIGHT_OVERLAP")
	}
	if c.WeightAdmin < 0 {
		invalid = append(invalid, "YESCOUNT_WEIGHT_ADMIN")
	}
	if c.WeightInterest >= 0 && c.WeightOverlap >= 0 && c.WeightAdmin >= 0 && c.WeightInterest+c.WeightOverlap+c.WeightAdmin == 0 {
		invalid = append(invalid, "YESCOUNT_WEIGHT_INTEREST", "YESCOUNT_WEIGHT_OVERLAP", "YESCOUNT_WEIGHT_ADMIN")
	}
	if c.DefaultTopN <= 0 {
		invalid = append(invalid, "YESCOUNT_DEFAULT_TOP_N")
	}
	if c.BallotSize <= 0 {
		invalid = append(invalid, "YESCOUNT_BALLOT_SIZE")
	}
	if c.CacheTTL <= 0 {
		invalid = append(invalid, "YESCOUNT_CACHE_TTL")
	}
	if c.CacheMaxEntries <= 0 {
		invalid = append(invalid, "YESCOUNT_CACHE_MAX_ENTRIES")
	}
	if c.RedisURL != "" && !hasScheme(c.RedisURL, "redis", "rediss") {
		invalid = append(invalid, "YESCOUNT_REDIS_URL")
	}
	if _, err := cron.ParseStandard(c.PurgeSchedule); err != nil {
		invalid = append(invalid, "YESCOUNT_PURGE_SCHEDULE")
	}
	if c.PurgeRetention < 0 {
		invalid = append(invalid, "YESCOUNT_PURGE_RETENTION")
	}
	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		invalid = append(invalid, "YESCOUNT_LOG_LEVEL")
	}

	return invalid
}

func hasScheme(raw string, schemes ...string) bool {
	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		return false
	}
	for _, scheme := range schemes {
		if strings.EqualFold(parsed.Scheme, scheme) {
			return true
		}
	}
	return false
}
