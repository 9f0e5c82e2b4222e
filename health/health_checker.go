// Package health provides health checking for the serve command
package health

import (
	"math"
	"net/http"
	"time"

	"github.com/giygas/rxnorm-fhir/interfaces"
	"github.com/giygas/rxnorm-fhir/rxnormparser/entities"
)

// Health statuses
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// HealthCheckerImpl implements the interfaces.HealthChecker interface
type HealthCheckerImpl struct {
	store   interfaces.ReportStore
	nextRun func() time.Time
}

// Compile-time check to ensure HealthCheckerImpl implements HealthChecker interface
var _ interfaces.HealthChecker = (*HealthCheckerImpl)(nil)

// NewHealthChecker creates a health checker. nextRun may be nil when nothing is scheduled.
func NewHealthChecker(store interfaces.ReportStore, nextRun func() time.Time) *HealthCheckerImpl {
	return &HealthCheckerImpl{
		store:   store,
		nextRun: nextRun,
	}
}

// HealthCheck derives the status from the age and outcome of the last runs
func (h *HealthCheckerImpl) HealthCheck() (status string, data map[string]any, httpStatus int) {
	report := h.store.GetLastReport()
	lastSuccess := h.store.GetLastSuccess()
	isRunning := h.store.IsRunning()
	age := time.Since(lastSuccess)

	switch {
	case lastSuccess.IsZero() && isRunning:
		status = StatusDegraded
		httpStatus = http.StatusServiceUnavailable

	case lastSuccess.IsZero():
		status = StatusUnhealthy
		httpStatus = http.StatusServiceUnavailable

	case age > 48*time.Hour:
		status = StatusUnhealthy
		httpStatus = http.StatusServiceUnavailable

	case age > 24*time.Hour:
		status = StatusDegraded
		httpStatus = http.StatusServiceUnavailable

	case report != nil && report.Status == entities.RunFailed:
		status = StatusDegraded
		httpStatus = http.StatusOK

	default:
		status = StatusHealthy
		httpStatus = http.StatusOK
	}

	data = map[string]any{
		"is_running": isRunning,
	}
	if !lastSuccess.IsZero() {
		data["last_success"] = lastSuccess.Format(time.RFC3339)
		data["data_age_hours"] = math.Round(age.Hours()*10) / 10
	}
	if report != nil {
		data["last_run_id"] = report.RunID
		data["last_status"] = report.Status
		data["substances"] = report.Resources.Substances
		data["medications"] = report.Resources.Medications
		data["medication_knowledge"] = report.Resources.MedicationKnowledge
		if report.Error != "" {
			data["last_error"] = report.Error
		}
	}
	if next := h.CalculateNextRun(); !next.IsZero() {
		data["next_run"] = next.Format(time.RFC3339)
	}
	if start := h.store.GetServerStartTime(); !start.IsZero() {
		data["uptime_seconds"] = math.Round(time.Since(start).Seconds())
	}

	return status, data, httpStatus
}

// CalculateNextRun returns the next scheduled run time, zero when unscheduled
func (h *HealthCheckerImpl) CalculateNextRun() time.Time {
	if h.nextRun == nil {
		return time.Time{}
	}
	return h.nextRun()
}
