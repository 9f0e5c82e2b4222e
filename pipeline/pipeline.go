// Package pipeline runs one full RxNorm to FHIR conversion
package pipeline

import (
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/giygas/rxnorm-fhir/builder"
	"github.com/giygas/rxnorm-fhir/config"
	"github.com/giygas/rxnorm-fhir/export"
	"github.com/giygas/rxnorm-fhir/fhir"
	"github.com/giygas/rxnorm-fhir/interfaces"
	"github.com/giygas/rxnorm-fhir/logging"
	"github.com/giygas/rxnorm-fhir/metrics"
	"github.com/giygas/rxnorm-fhir/rxnormparser"
	"github.com/giygas/rxnorm-fhir/rxnormparser/entities"
	"github.com/giygas/rxnorm-fhir/validation"
	"github.com/google/uuid"
)

// Compile-time checks to ensure Pipeline and its default parser implement their interfaces
var (
	_ interfaces.Runner = (*Pipeline)(nil)
	_ interfaces.Parser = (*rxnormparser.RRFParser)(nil)
)

// Pipeline loads the RRF files, builds the resources, checks them and writes the bundles
type Pipeline struct {
	cfg       *config.Config
	parser    interfaces.Parser
	validator interfaces.ResourceValidator
}

// New creates a pipeline reading the files named in cfg
func New(cfg *config.Config) *Pipeline {
	return NewWithDependencies(cfg, rxnormparser.NewRRFParser(cfg), validation.NewBundleValidator())
}

// NewWithDependencies creates a pipeline with the given parser and validator
func NewWithDependencies(cfg *config.Config, parser interfaces.Parser, validator interfaces.ResourceValidator) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		parser:    parser,
		validator: validator,
	}
}

// run is the state of a single conversion
type run struct {
	logger *slog.Logger
	report *entities.RunReport
}

// stage times fn and records it in the report
func (r *run) stage(name string, fn func() error) error {
	r.logger.Info("Starting " + name)
	start := time.Now()

	err := fn()

	elapsed := time.Since(start)
	metrics.StageDuration.WithLabelValues(name).Observe(elapsed.Seconds())
	r.report.Stages = append(r.report.Stages, entities.StageTiming{Name: name, DurationMs: elapsed.Milliseconds()})
	r.logger.Info("Finished "+name, "elapsed_ms", elapsed.Milliseconds())

	return err
}

// step is a stage that can't fail
func (r *run) step(name string, fn func()) {
	_ = r.stage(name, func() error {
		fn()
		return nil
	})
}

// Run performs one conversion. Every call starts from empty tables.
func (p *Pipeline) Run() (*entities.RunReport, error) {
	runID := uuid.NewString()
	r := &run{
		logger: logging.With("run_id", runID),
		report: &entities.RunReport{
			RunID:     runID,
			StartedAt: time.Now(),
		},
	}

	r.logger.Info("Conversion started",
		"input_dir", p.cfg.InputDir,
		"output_dir", p.cfg.OutputDir,
		"attribute_mode", p.cfg.AttributeMode,
		"strength_policy", p.cfg.StrengthPolicy)

	err := p.execute(r)
	r.report.FinishedAt = time.Now()

	if err != nil {
		r.report.Status = entities.RunFailed
		r.report.Error = err.Error()
		metrics.RunsTotal.WithLabelValues(entities.RunFailed).Inc()
		r.logger.Error("Conversion failed", "error", err, "duration", r.report.Duration())
	} else {
		r.report.Status = entities.RunSucceeded
		metrics.RunsTotal.WithLabelValues(entities.RunSucceeded).Inc()
		metrics.LastRunTimestamp.SetToCurrentTime()
		r.logger.Info("Conversion completed",
			"substances", r.report.Resources.Substances,
			"medications", r.report.Resources.Medications,
			"medication_knowledge", r.report.Resources.MedicationKnowledge,
			"duration", r.report.Duration())
	}

	if p.cfg.MetricsFile != "" {
		if werr := metrics.WriteTextfile(p.cfg.MetricsFile); werr != nil {
			r.logger.Warn("Failed to write metrics textfile", "error", werr)
		}
	}

	return r.report, err
}

func (p *Pipeline) execute(r *run) error {
	var snap *entities.Snapshot
	if err := r.stage("load", func() error {
		var err error
		snap, err = p.parser.ParseAll()
		return err
	}); err != nil {
		return fmt.Errorf("failed to load RxNorm files: %w", err)
	}
	r.report.Files = snap.Stats()

	b := builder.New(snap, builder.OptionsFromConfig(p.cfg))

	var res *builder.Resources
	r.step("build", func() {
		res = b.Build()
	})

	units := slices.Clone(res.Units.Items())
	slices.Sort(units)
	r.report.UnitsOfMeasure = units
	r.report.Resources = entities.ResourceCounts{
		Substances:          res.Substances.Len(),
		Medications:         res.Medications.Len(),
		MedicationKnowledge: res.MedicationKnowledge.Len(),
	}
	metrics.UnitsOfMeasure.Set(float64(len(units)))
	r.logger.Info("Units of measure", "count", len(units), "units", units)

	if err := r.stage("validate", func() error {
		r.report.Quality = p.validator.ReportQuality(res)
		return p.validator.CheckIntegrity(r.report.Quality)
	}); err != nil {
		return err
	}

	if err := r.stage("write", func() error {
		paths, err := export.WriteBundles(p.cfg.OutputDir, []export.Artifact{
			{Name: export.SubstanceFile, Bundle: fhir.NewCollection(res.Substances.Values())},
			{Name: export.MedicationFile, Bundle: fhir.NewCollection(res.Medications.Values())},
			{Name: export.MedicationKnowledgeFile, Bundle: fhir.NewCollection(res.MedicationKnowledge.Values())},
		})
		r.report.Outputs = paths
		return err
	}); err != nil {
		return err
	}

	metrics.ResourcesTotal.WithLabelValues(fhir.TypeSubstance).Add(float64(res.Substances.Len()))
	metrics.ResourcesTotal.WithLabelValues(fhir.TypeMedication).Add(float64(res.Medications.Len()))
	metrics.ResourcesTotal.WithLabelValues(fhir.TypeMedicationKnowledge).Add(float64(res.MedicationKnowledge.Len()))

	return nil
}
