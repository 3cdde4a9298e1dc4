// Package janitor periodically purges sessions that expired longer ago than
// the retention period. Deleting a session cascades to its participants,
// votes and availability.
package janitor

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/robfig/cron/v3"
)

// DefaultTimeout bounds one purge run.
const DefaultTimeout = time.Minute

// Purger removes sessions whose expiry is before cutoff.
type Purger interface {
	DeleteExpiredSessions(ctx context.Context, cutoff time.Time) (int64, error)
}

// Options configures a Janitor.
type Options struct {
	// Schedule is a standard cron expression or descriptor such as "@every 1h".
	Schedule  string
	Retention time.Duration
	Timeout   time.Duration
	Now       func() time.Time
	Logger    *slog.Logger
}

// Janitor runs the purge on a cron schedule.
type Janitor struct {
	sessions  Purger
	retention time.Duration
	timeout   time.Duration
	now       func() time.Time
	logger    *slog.Logger
	cron      *cron.Cron
}

// New builds a janitor and registers its job. The schedule is not running
// until Start is called.
func New(sessions Purger, opts Options) (*Janitor, error) {
	if sessions == nil {
		return nil, fmt.Errorf("janitor: purger is required")
	}
	if opts.Retention < 0 {
		return nil, fmt.Errorf("janitor: retention cannot be negative")
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	logger := opts.Logger.With("component", "janitor")

	j := &Janitor{
		sessions:  sessions,
		retention: opts.Retention,
		timeout:   opts.Timeout,
		now:       opts.Now,
		logger:    logger,
	}

	cronLog := cronLogger{logger: logger}
	j.cron = cron.New(
		cron.WithLocation(time.UTC),
		cron.WithLogger(cronLog),
		cron.WithChain(cron.Recover(cronLog), cron.SkipIfStillRunning(cronLog)),
	)
	if _, err := j.cron.AddFunc(opts.Schedule, j.run); err != nil {
		return nil, fmt.Errorf("janitor: invalid schedule %q: %w", opts.Schedule, err)
	}
	return j, nil
}

// Start begins running the schedule in the background.
func (j *Janitor) Start() {
	j.cron.Start()
	j.logger.Info("expired session purge scheduled", "retention", j.retention.String())
}

// Stop halts the schedule and returns a context that is done once a running
// purge has finished.
func (j *Janitor) Stop() context.Context {
	return j.cron.Stop()
}

// RunOnce deletes every session that expired before now minus the retention.
func (j *Janitor) RunOnce(ctx context.Context) (int64, error) {
	cutoff := j.now().UTC().Add(-j.retention)
	removed, err := j.sessions.DeleteExpiredSessions(ctx, cutoff)
	if err != nil {
		j.logger.ErrorContext(ctx, "failed to purge expired sessions", "cutoff", cutoff, "error", err)
		return 0, err
	}
	if removed > 0 {
		j.logger.InfoContext(ctx, "expired sessions purged", "removed", removed, "cutoff", cutoff)
	} else {
		j.logger.DebugContext(ctx, "no expired sessions to purge", "cutoff", cutoff)
	}
	return removed, nil
}

func (j *Janitor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()
	_, _ = j.RunOnce(ctx)
}

// cronLogger routes cron's own logging to slog.
type cronLogger struct {
	logger *slog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error(msg, append(keysAndValues, "error", err)...)
}
