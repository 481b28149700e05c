package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/attikos/foresight/internal/events"
)

type stubJob struct {
	name string
	runs int
	err  error
}

func (j *stubJob) Run() error {
	j.runs++
	return j.err
}

func (j *stubJob) Name() string { return j.name }

func testScheduler(t *testing.T) (*Scheduler, *events.Bus) {
	t.Helper()
	log := zerolog.New(nil).Level(zerolog.Disabled)
	bus := events.NewBus(log)
	return New(events.NewManager(bus, log), log), bus
}

func TestRunNowExecutesRegisteredJob(t *testing.T) {
	s, bus := testScheduler(t)

	var started, completed int
	bus.Subscribe(events.JobStarted, func(*events.Event) { started++ })
	bus.Subscribe(events.JobCompleted, func(*events.Event) { completed++ })

	job := &stubJob{name: "sweep"}
	require.NoError(t, s.AddJob("0 0 3 * * *", job))

	require.NoError(t, s.RunNow("sweep"))
	assert.Equal(t, 1, job.runs)
	assert.Equal(t, 1, started)
	assert.Equal(t, 1, completed)

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "ok", jobs[0].LastStatus)
	assert.False(t, jobs[0].LastRun.IsZero())
}

func TestRunNowUnknownJob(t *testing.T) {
	s, _ := testScheduler(t)
	err := s.RunNow("missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestAddJobRejectsDuplicateName(t *testing.T) {
	s, _ := testScheduler(t)
	require.NoError(t, s.AddJob("@every 1h", &stubJob{name: "sweep"}))

	err := s.AddJob("@every 2h", &stubJob{name: "sweep"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s, _ := testScheduler(t)
	err := s.AddJob("not a schedule", &stubJob{name: "sweep"})
	require.Error(t, err)
}

func TestRunNowRecordsFailure(t *testing.T) {
	s, bus := testScheduler(t)

	var failed int
	bus.Subscribe(events.JobFailed, func(*events.Event) { failed++ })

	job := &stubJob{name: "sweep", err: errors.New("no actuals")}
	require.NoError(t, s.AddJob("@every 1h", job))

	err := s.RunNow("sweep")
	require.Error(t, err)
	assert.Equal(t, 1, failed)

	jobs := s.Jobs()
	require.Len(t, jobs, 1)
	assert.Equal(t, "failed", jobs[0].LastStatus)
	assert.Equal(t, "no actuals", jobs[0].LastError)
}

func TestJobsSortedByName(t *testing.T) {
	s, _ := testScheduler(t)
	require.NoError(t, s.AddJob("@every 1h", &stubJob{name: "wal_checkpoint"}))
	require.NoError(t, s.AddJob("@every 2h", &stubJob{name: "calibration_sweep"}))

	jobs := s.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, "calibration_sweep", jobs[0].Name)
	assert.Equal(t, "@every 2h", jobs[0].Schedule)
	assert.Equal(t, "wal_checkpoint", jobs[1].Name)
}
