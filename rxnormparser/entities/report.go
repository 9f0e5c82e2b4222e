package entities

import "time"

// Run statuses
const (
	RunSucceeded = "succeeded"
	RunFailed    = "failed"
)

// FileStats counts what happened to the lines of one input file
type FileStats struct {
	File           string `json:"file"`
	TotalLines     int    `json:"totalLines"`
	Stored         int    `json:"stored"`
	Filtered       int    `json:"filtered"` // Other vocabulary or suppressed
	Ignored        int    `json:"ignored"`  // Unused term, relation or attribute type
	EmptyLines     int    `json:"emptyLines"`
	MissingColumns int    `json:"missingColumns"`
	LongLines      int    `json:"longLines"` // Longer than the read buffer
}

// Skipped returns the number of malformed lines
func (s FileStats) Skipped() int {
	return s.EmptyLines + s.MissingColumns + s.LongLines
}

// QualityReport summarizes data quality issues of the built resources
type QualityReport struct {
	DanglingReferences            []string `json:"danglingReferences,omitempty"`
	DuplicateIDs                  []string `json:"duplicateIds,omitempty"`
	SynonymViolations             []string `json:"synonymViolations,omitempty"`
	RejectedMedications           []string `json:"rejectedMedications,omitempty"`
	MedicationsWithoutIngredients int      `json:"medicationsWithoutIngredients"`
	MedicationsWithoutDoseForm    int      `json:"medicationsWithoutDoseForm"`
	UnparsedStrengths             int      `json:"unparsedStrengths"`
}

// HasIntegrityErrors reports issues that make the bundles unusable
func (q *QualityReport) HasIntegrityErrors() bool {
	return len(q.DanglingReferences) > 0 || len(q.DuplicateIDs) > 0
}

// StageTiming is the duration of one pipeline stage
type StageTiming struct {
	Name       string `json:"name"`
	DurationMs int64  `json:"durationMs"`
}

// ResourceCounts counts the emitted resources per type
type ResourceCounts struct {
	Substances          int `json:"substances"`
	Medications         int `json:"medications"`
	MedicationKnowledge int `json:"medicationKnowledge"`
}

// RunReport describes one conversion run
type RunReport struct {
	RunID          string         `json:"runId"`
	Status         string         `json:"status"`
	Error          string         `json:"error,omitempty"`
	StartedAt      time.Time      `json:"startedAt"`
	FinishedAt     time.Time      `json:"finishedAt"`
	Files          []FileStats    `json:"files"`
	Resources      ResourceCounts `json:"resources"`
	UnitsOfMeasure []string       `json:"unitsOfMeasure"`
	Quality        *QualityReport `json:"quality,omitempty"`
	Stages         []StageTiming  `json:"stages"`
	Outputs        []string       `json:"outputs,omitempty"`
}

// Duration returns how long the run took
func (r *RunReport) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
