// Package jobrunner implements the Background Job Runner: it iterates the
// active-user fleet on a per-job cadence and dispatches per-user work with
// business-hours gating, idempotency, and failure isolation. Scheduling is
// grounded on the cron.Cron + SkipIfStillRunning idiom used throughout the
// pack's own scheduler service, generalized from single-job dispatch to a
// per-(job,user) non-overlap guarantee.
package jobrunner

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/hooks"
	"github.com/aria-platform/aria-core/internal/store"
	"github.com/aria-platform/aria-core/internal/telemetry"
)

// UserSource supplies the active-user fleet a job iterates. Active means
// the user has completed onboarding; what that means concretely is a
// decision left to the concrete UserSource implementation wired in
// cmd/ariad.
type UserSource interface {
	ActiveUsers(ctx context.Context) ([]core.User, error)
}

// Job is one unit of recurring background work. RunForUser performs the
// gather-inputs/idempotency-check/persist/route sequence for a single
// user and returns how many insights it produced, so the runner can fold
// that into the JobRunSummary.
type Job interface {
	Name() string
	// Cadence is a cron.v3 expression; the runner registers it directly
	// with cron.Cron.AddFunc.
	Cadence() string
	// InBusinessHoursOnly reports whether this job should be skipped
	// outside the user's configured business-hours window. Jobs that are
	// not time-of-day sensitive (e.g. a weekly digest gated by its own
	// day/hour check) return false.
	InBusinessHoursOnly() bool
	// RunForUser performs the job's work for one user and returns the
	// number of insights produced (for the summary) and any error.
	RunForUser(ctx context.Context, user core.User, now time.Time) (produced int, err error)
}

// BusinessHours is the server's configured business-hours window,
// interpreted in each user's own timezone.
type BusinessHours struct {
	StartHour int // inclusive, 0-23
	EndHour   int // exclusive, 0-24
}

func (b BusinessHours) contains(t time.Time) bool {
	h := t.Hour()
	return h >= b.StartHour && h < b.EndHour
}

// Runner drives registered Jobs on their own cadence.
type Runner struct {
	cron    *cron.Cron
	users   UserSource
	hours   BusinessHours
	runs    store.JobRunStore
	bus     hooks.Bus
	logger  telemetry.Logger
	metrics telemetry.Metrics

	mu       sync.Mutex
	inFlight map[string]struct{} // "job:user" keys currently running
}

// Config wires a Runner's dependencies.
type Config struct {
	Users         UserSource
	BusinessHours BusinessHours
	Runs          store.JobRunStore
	Bus           hooks.Bus
	Logger        telemetry.Logger
	Metrics       telemetry.Metrics
	// Location is the cron scheduler's own clock location, used only to
	// evaluate cron expressions; each job resolves user-local time
	// independently via RunForUser's now/user.Timezone.
	Location *time.Location
}

// New constructs a Runner. Call Register for each Job, then Start.
func New(cfg Config) *Runner {
	if cfg.Logger == nil {
		cfg.Logger = telemetry.NoopLogger{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.NoopMetrics{}
	}
	if cfg.Bus == nil {
		cfg.Bus = hooks.NewBus()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Runner{
		cron:     cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DefaultLogger))),
		users:    cfg.Users,
		hours:    cfg.BusinessHours,
		runs:     cfg.Runs,
		bus:      cfg.Bus,
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
		inFlight: make(map[string]struct{}),
	}
}

// Register schedules job on its own cadence.
func (r *Runner) Register(job Job) error {
	_, err := r.cron.AddFunc(job.Cadence(), func() {
		r.runOnce(context.Background(), job)
	})
	if err != nil {
		return fmt.Errorf("jobrunner: register %s: %w", job.Name(), err)
	}
	return nil
}

// Start begins cron dispatch. It does not block.
func (r *Runner) Start() { r.cron.Start() }

// Stop halts cron dispatch and waits for in-flight invocations to finish
// or ctx to be cancelled.
func (r *Runner) Stop(ctx context.Context) error {
	done := r.cron.Stop()
	select {
	case <-done.Done():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunNow executes job immediately, outside its cron schedule. Useful for
// manual triggers and tests.
func (r *Runner) RunNow(ctx context.Context, job Job) core.JobRunSummary {
	return r.runOnce(ctx, job)
}

func (r *Runner) runOnce(ctx context.Context, job Job) core.JobRunSummary {
	now := time.Now().UTC()
	summary := core.JobRunSummary{JobName: job.Name(), StartedAt: now}
	_ = r.bus.Publish(ctx, hooks.Event{Type: hooks.EventJobRunStarted, At: now, Data: map[string]any{"job": job.Name()}})

	users, err := r.users.ActiveUsers(ctx)
	if err != nil {
		summary.FinishedAt = time.Now().UTC()
		summary.Errors = append(summary.Errors, fmt.Errorf("load active users: %w", err))
		r.finish(ctx, job, summary)
		return summary
	}
	summary.UsersConsidered = len(users)

	for _, user := range users {
		if !r.claim(job.Name(), user.ID) {
			continue // an invocation for this (job, user) pair is still running
		}
		r.runForUser(ctx, job, user, now, &summary)
		r.release(job.Name(), user.ID)
	}

	summary.FinishedAt = time.Now().UTC()
	r.finish(ctx, job, summary)
	return summary
}

func (r *Runner) runForUser(ctx context.Context, job Job, user core.User, now time.Time, summary *core.JobRunSummary) {
	defer func() {
		if rec := recover(); rec != nil {
			summary.UsersFailed++
			r.logger.Warn(ctx, "jobrunner: job panicked", "job", job.Name(), "user_id", user.ID, "panic", rec)
		}
	}()

	userNow := nowInTimezone(now, user.Timezone)
	if job.InBusinessHoursOnly() && !r.hours.contains(userNow) {
		summary.UsersSkipped++
		r.metrics.IncCounter("jobrunner.skipped_off_hours", 1, "job", job.Name())
		return
	}

	produced, err := job.RunForUser(ctx, user, userNow)
	if err != nil {
		summary.UsersFailed++
		r.logger.Warn(ctx, "jobrunner: job failed for user", "job", job.Name(), "user_id", user.ID, "error", err)
		return
	}
	summary.UsersProcessed++
	r.metrics.IncCounter("jobrunner.items_produced", float64(produced), "job", job.Name())
}

func (r *Runner) finish(ctx context.Context, job Job, summary core.JobRunSummary) {
	if r.runs != nil {
		if err := r.runs.SaveJobRun(ctx, summary); err != nil {
			r.logger.Warn(ctx, "jobrunner: save job run summary failed", "job", job.Name(), "error", err)
		}
	}
	_ = r.bus.Publish(ctx, hooks.Event{Type: hooks.EventJobRunFinished, At: summary.FinishedAt, Data: map[string]any{
		"job": job.Name(), "processed": summary.UsersProcessed, "skipped": summary.UsersSkipped, "failed": summary.UsersFailed,
	}})
}

func (r *Runner) claim(jobName, userID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := jobName + ":" + userID
	if _, busy := r.inFlight[key]; busy {
		return false
	}
	r.inFlight[key] = struct{}{}
	return true
}

func (r *Runner) release(jobName, userID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.inFlight, jobName+":"+userID)
}

// nowInTimezone resolves now in tz, falling back to UTC on any lookup
// failure (unknown or empty timezone name), per the timezone rule every
// time-sensitive job check follows.
func nowInTimezone(now time.Time, tz string) time.Time {
	if tz == "" {
		return now.UTC()
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return now.UTC()
	}
	return now.In(loc)
}
