// Package interfaces defines the core abstractions of the converter
// so that the run driver and the ops server can be tested with mocks.
package interfaces

import (
	"time"

	"github.com/giygas/rxnorm-fhir/builder"
	"github.com/giygas/rxnorm-fhir/rxnormparser/entities"
)

// Parser loads an RxNorm release into a snapshot
type Parser interface {
	// ParseAll reads the concepts, relationships and attributes files
	ParseAll() (*entities.Snapshot, error)
}

// Runner performs one full conversion
type Runner interface {
	Run() (*entities.RunReport, error)
}

// ReportStore keeps the outcome of the last run.
// Reads are lock free, runs are serialized with BeginRun/EndRun.
type ReportStore interface {
	GetLastReport() *entities.RunReport
	GetLastSuccess() time.Time
	IsRunning() bool
	GetServerStartTime() time.Time

	StoreReport(report *entities.RunReport)
	BeginRun() bool
	EndRun()
}

// Scheduler triggers conversions on a schedule
type Scheduler interface {
	Start() error
	Stop()
	NextRun() time.Time
}

// HealthChecker reports the health of the serve process
type HealthChecker interface {
	// HealthCheck returns the status, its details and the HTTP status to answer with
	HealthCheck() (status string, details map[string]any, httpStatus int)

	// CalculateNextRun returns the next scheduled run time
	CalculateNextRun() time.Time
}

// ResourceValidator checks the built resources before they are written
type ResourceValidator interface {
	// ReportQuality lists every data quality issue found
	ReportQuality(resources *builder.Resources) *entities.QualityReport

	// CheckIntegrity returns an error when the report has blocking issues
	CheckIntegrity(report *entities.QualityReport) error
}
