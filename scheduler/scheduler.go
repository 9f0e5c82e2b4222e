// Package scheduler runs the conversion at startup and then on a daily
// schedule, coordinating runs through the report store.
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/giygas/rxnorm-fhir/interfaces"
	"github.com/giygas/rxnorm-fhir/logging"
	"github.com/giygas/rxnorm-fhir/rxnormparser/entities"
	"github.com/go-co-op/gocron"
)

// ErrRunInProgress is returned when a run is requested while another one is active
var ErrRunInProgress = errors.New("run already in progress")

// Compile-time check to ensure Scheduler implements Scheduler interface
var _ interfaces.Scheduler = (*Scheduler)(nil)

// staleAfter is the age of the last success that triggers a warning
const staleAfter = 25 * time.Hour

// Scheduler handles scheduled rebuilds and staleness monitoring
type Scheduler struct {
	store     interfaces.ReportStore
	runner    interfaces.Runner
	schedule  string
	scheduler *gocron.Scheduler
	job       *gocron.Job
	done      chan struct{}
}

// NewScheduler creates a scheduler running runner at the times of schedule, e.g. "06:00;18:00"
func NewScheduler(store interfaces.ReportStore, runner interfaces.Runner, schedule string) *Scheduler {
	return &Scheduler{
		store:     store,
		runner:    runner,
		schedule:  schedule,
		scheduler: gocron.NewScheduler(time.Local),
		done:      make(chan struct{}),
	}
}

// Start performs the initial run, then schedules the following ones.
// A failed initial run is kept in the report store and does not stop the scheduler.
func (s *Scheduler) Start() error {
	if _, err := s.RunOnce(); err != nil {
		logging.Error("Initial conversion failed", "error", err)
	}

	s.scheduler.SingletonModeAll()
	job, err := s.scheduler.Every(1).Days().At(s.schedule).Do(func() {
		if _, err := s.RunOnce(); err != nil {
			logging.Error("Scheduled conversion failed", "error", err)
		}
	})
	if err != nil {
		logging.Error("Failed to schedule conversions", "error", err, "schedule", s.schedule)
		return fmt.Errorf("failed to schedule conversions: %w", err)
	}
	s.job = job

	s.scheduler.StartAsync()
	logging.Info("Conversions scheduled", "schedule", s.schedule, "next_run", s.NextRun().Format(time.RFC3339))

	s.startHealthMonitoring()

	return nil
}

// Stop stops the scheduler and the monitoring goroutine
func (s *Scheduler) Stop() {
	s.scheduler.Stop()
	select {
	case <-s.done:
	default:
		close(s.done)
	}
}

// NextRun returns the time of the next scheduled run, zero before Start
func (s *Scheduler) NextRun() time.Time {
	if s.job == nil {
		return time.Time{}
	}
	return s.job.NextRun()
}

// RunOnce performs one conversion unless another one is running
func (s *Scheduler) RunOnce() (*entities.RunReport, error) {
	if !s.store.BeginRun() {
		logging.Info("Conversion already in progress, skipping...")
		return nil, ErrRunInProgress
	}
	defer s.store.EndRun()

	report, err := s.runner.Run()
	s.store.StoreReport(report)
	if err != nil {
		return report, fmt.Errorf("conversion %s failed: %w", runIDOf(report), err)
	}
	return report, nil
}

func runIDOf(report *entities.RunReport) string {
	if report == nil {
		return "unknown"
	}
	return report.RunID
}

// startHealthMonitoring warns when no run succeeded for too long
func (s *Scheduler) startHealthMonitoring() {
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()

		for {
			select {
			case <-s.done:
				return
			case <-ticker.C:
				if time.Since(s.store.GetLastSuccess()) > staleAfter {
					logging.Warn("No successful conversion in over 25 hours")
				}
			}
		}
	}()
}
