package jobrunner

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/aria-platform/aria-core/internal/core"
	"github.com/aria-platform/aria-core/internal/store/inmem"
)

type fakeUserSource struct {
	users []core.User
	err   error
}

func (f fakeUserSource) ActiveUsers(context.Context) ([]core.User, error) { return f.users, f.err }

type fakeJob struct {
	name          string
	cadence       string
	businessHours bool
	produced      int
	failFor       map[string]bool
	calledWith    []core.User
}

func (j *fakeJob) Name() string              { return j.name }
func (j *fakeJob) Cadence() string           { return j.cadence }
func (j *fakeJob) InBusinessHoursOnly() bool { return j.businessHours }
func (j *fakeJob) RunForUser(_ context.Context, user core.User, _ time.Time) (int, error) {
	j.calledWith = append(j.calledWith, user)
	if j.failFor != nil && j.failFor[user.ID] {
		return 0, errors.New("boom")
	}
	return j.produced, nil
}

func TestRunNowProcessesEveryActiveUser(t *testing.T) {
	st := inmem.New()
	users := fakeUserSource{users: []core.User{{ID: "u1"}, {ID: "u2"}}}
	r := New(Config{Users: users, Runs: st, BusinessHours: BusinessHours{StartHour: 0, EndHour: 24}})
	job := &fakeJob{name: "signal-scan", produced: 2}

	summary := r.RunNow(context.Background(), job)
	require.Equal(t, 2, summary.UsersConsidered)
	require.Equal(t, 2, summary.UsersProcessed)
	require.Zero(t, summary.UsersFailed)
	require.Len(t, job.calledWith, 2)

	saved, err := st.LastRun(context.Background(), "signal-scan")
	require.NoError(t, err)
	require.Equal(t, 2, saved.UsersProcessed)
}

func TestRunNowSkipsOutsideBusinessHours(t *testing.T) {
	st := inmem.New()
	users := fakeUserSource{users: []core.User{{ID: "u1"}}}
	// An empty [0,0) window never contains any hour, so a business-hours
	// job is skipped regardless of when the test actually runs.
	r := New(Config{Users: users, Runs: st, BusinessHours: BusinessHours{StartHour: 0, EndHour: 0}})
	job := &fakeJob{name: "debrief", businessHours: true}

	summary := r.RunNow(context.Background(), job)
	require.Equal(t, 1, summary.UsersSkipped)
	require.Zero(t, summary.UsersProcessed)
	require.Empty(t, job.calledWith)
}

func TestRunNowRecordsPerUserFailures(t *testing.T) {
	st := inmem.New()
	users := fakeUserSource{users: []core.User{{ID: "u1"}, {ID: "u2"}}}
	r := New(Config{Users: users, Runs: st, BusinessHours: BusinessHours{StartHour: 0, EndHour: 24}})
	job := &fakeJob{name: "overdue-commitment", failFor: map[string]bool{"u1": true}}

	summary := r.RunNow(context.Background(), job)
	require.Equal(t, 1, summary.UsersFailed)
	require.Equal(t, 1, summary.UsersProcessed)
}

func TestRunNowRecordsUserSourceError(t *testing.T) {
	st := inmem.New()
	users := fakeUserSource{err: errors.New("db unreachable")}
	r := New(Config{Users: users, Runs: st})
	job := &fakeJob{name: "weekly-digest"}

	summary := r.RunNow(context.Background(), job)
	require.Len(t, summary.Errors, 1)
	require.Zero(t, summary.UsersConsidered)
}

func TestRunNowIsolatesPanickingUser(t *testing.T) {
	st := inmem.New()
	users := fakeUserSource{users: []core.User{{ID: "u1"}}}
	r := New(Config{Users: users, Runs: st, BusinessHours: BusinessHours{StartHour: 0, EndHour: 24}})
	job := &panickingJob{}

	summary := r.RunNow(context.Background(), job)
	require.Equal(t, 1, summary.UsersFailed)
}

type panickingJob struct{}

func (panickingJob) Name() string              { return "panicker" }
func (panickingJob) Cadence() string           { return "@every 1h" }
func (panickingJob) InBusinessHoursOnly() bool { return false }
func (panickingJob) RunForUser(context.Context, core.User, time.Time) (int, error) {
	panic("boom")
}

func TestRegisterRejectsInvalidCadence(t *testing.T) {
	r := New(Config{Users: fakeUserSource{}})
	err := r.Register(&fakeJob{name: "bad-cadence-job"})
	require.Error(t, err, "fakeJob's cadence string is not a valid cron expression here")
}
