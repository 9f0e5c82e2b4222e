// Package data holds the state shared between the scheduled runs and the
// ops server. Reads are lock free, stores swap whole values atomically.
package data

import (
	"sync/atomic"
	"time"

	"github.com/giygas/rxnorm-fhir/interfaces"
	"github.com/giygas/rxnorm-fhir/rxnormparser/entities"
)

// Compile-time check to ensure ReportContainer implements ReportStore
var _ interfaces.ReportStore = (*ReportContainer)(nil)

// ReportContainer keeps the last run report and the run guard
type ReportContainer struct {
	lastReport      atomic.Pointer[entities.RunReport]
	lastSuccess     atomic.Value // time.Time
	running         atomic.Bool
	serverStartTime atomic.Value // time.Time
}

// NewReportContainer creates an empty container
func NewReportContainer() *ReportContainer {
	rc := &ReportContainer{}
	rc.lastSuccess.Store(time.Time{})
	rc.serverStartTime.Store(time.Time{})
	return rc
}

// GetLastReport returns the report of the last finished run, nil before the first one
func (rc *ReportContainer) GetLastReport() *entities.RunReport {
	return rc.lastReport.Load()
}

// GetLastSuccess returns the finish time of the last successful run
func (rc *ReportContainer) GetLastSuccess() time.Time {
	if t, ok := rc.lastSuccess.Load().(time.Time); ok {
		return t
	}
	return time.Time{}
}

// IsRunning returns true while a conversion is in progress
func (rc *ReportContainer) IsRunning() bool {
	return rc.running.Load()
}

// SetServerStartTime sets the server start time
func (rc *ReportContainer) SetServerStartTime(startTime time.Time) {
	rc.serverStartTime.Store(startTime)
}

// GetServerStartTime returns the server start time
func (rc *ReportContainer) GetServerStartTime() time.Time {
	if t, ok := rc.serverStartTime.Load().(time.Time); ok {
		return t
	}
	return time.Time{}
}

// StoreReport replaces the last report. A failed run keeps the previous success time.
func (rc *ReportContainer) StoreReport(report *entities.RunReport) {
	if report == nil {
		return
	}
	rc.lastReport.Store(report)
	if report.Status == entities.RunSucceeded {
		rc.lastSuccess.Store(report.FinishedAt)
	}
}

// BeginRun marks the start of a run.
// Returns true if the run can proceed, false if another run is in progress
func (rc *ReportContainer) BeginRun() bool {
	return rc.running.CompareAndSwap(false, true)
}

// EndRun marks the end of a run
func (rc *ReportContainer) EndRun() {
	rc.running.Store(false)
}
