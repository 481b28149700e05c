// Package scheduler runs background jobs on cron schedules: the nightly
// calibration sweep, fixings sync, database maintenance, run retention, and
// report archival.
package scheduler

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/attikos/foresight/internal/events"
)

// ErrJobNotFound is returned when a job name is not registered.
var ErrJobNotFound = errors.New("job not registered")

// Job represents a scheduled job.
type Job interface {
	Run() error
	Name() string
}

// JobStatus is the introspection row for one registered job.
type JobStatus struct {
	Name       string    `json:"name"`
	Schedule   string    `json:"schedule"`
	LastRun    time.Time `json:"last_run"`
	LastStatus string    `json:"last_status,omitempty"`
	LastError  string    `json:"last_error,omitempty"`
}

type registration struct {
	job        Job
	schedule   string
	lastRun    time.Time
	lastStatus string
	lastError  string
}

// Scheduler manages background jobs.
type Scheduler struct {
	cron   *cron.Cron
	events *events.Manager
	log    zerolog.Logger

	mu   sync.Mutex
	jobs map[string]*registration
}

// New creates a new scheduler. Schedules use six fields, seconds first.
func New(eventManager *events.Manager, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:   cron.New(cron.WithSeconds()),
		events: eventManager,
		log:    log.With().Str("component", "scheduler").Logger(),
		jobs:   make(map[string]*registration),
	}
}

// Start starts the scheduler.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("Scheduler started")
}

// Stop stops the scheduler and waits for running jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Scheduler stopped")
}

// AddJob registers a new job with a cron schedule.
// Schedule examples:
//   - "0 */5 * * * *"   - Every 5 minutes
//   - "0 0 3 * * *"     - 03:00 daily
//   - "@every 30s"      - Every 30 seconds
func (s *Scheduler) AddJob(schedule string, job Job) error {
	s.mu.Lock()
	if _, exists := s.jobs[job.Name()]; exists {
		s.mu.Unlock()
		return fmt.Errorf("job %s already registered", job.Name())
	}
	s.jobs[job.Name()] = &registration{job: job, schedule: schedule}
	s.mu.Unlock()

	_, err := s.cron.AddFunc(schedule, func() { s.runJob(job) })
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", job.Name(), err)
	}

	s.log.Info().
		Str("schedule", schedule).
		Str("job", job.Name()).
		Msg("Job registered")
	return nil
}

// RunNow executes a registered job immediately, outside its schedule.
func (s *Scheduler) RunNow(name string) error {
	s.mu.Lock()
	reg, ok := s.jobs[name]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("job %s: %w", name, ErrJobNotFound)
	}

	s.log.Info().Str("job", name).Msg("Running job immediately")
	return s.runJob(reg.job)
}

// Jobs lists registered jobs sorted by name.
func (s *Scheduler) Jobs() []JobStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]JobStatus, 0, len(s.jobs))
	for name, reg := range s.jobs {
		out = append(out, JobStatus{
			Name:       name,
			Schedule:   reg.schedule,
			LastRun:    reg.lastRun,
			LastStatus: reg.lastStatus,
			LastError:  reg.lastError,
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

func (s *Scheduler) runJob(job Job) error {
	name := job.Name()
	s.events.Emit(events.JobStarted, "scheduler", map[string]interface{}{"job": name})
	s.log.Debug().Str("job", name).Msg("Running job")

	err := job.Run()

	s.mu.Lock()
	if reg, ok := s.jobs[name]; ok {
		reg.lastRun = time.Now().UTC()
		if err != nil {
			reg.lastStatus = "failed"
			reg.lastError = err.Error()
		} else {
			reg.lastStatus = "ok"
			reg.lastError = ""
		}
	}
	s.mu.Unlock()

	if err != nil {
		s.events.Emit(events.JobFailed, "scheduler", map[string]interface{}{
			"job":   name,
			"error": err.Error(),
		})
		s.log.Error().Err(err).Str("job", name).Msg("Job failed")
		return err
	}

	s.events.Emit(events.JobCompleted, "scheduler", map[string]interface{}{"job": name})
	s.log.Debug().Str("job", name).Msg("Job completed")
	return nil
}
