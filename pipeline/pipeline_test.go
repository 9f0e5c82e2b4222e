package pipeline

import (
	"bytes"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/giygas/rxnorm-fhir/builder"
	"github.com/giygas/rxnorm-fhir/config"
	"github.com/giygas/rxnorm-fhir/export"
	"github.com/giygas/rxnorm-fhir/rrftest"
	"github.com/giygas/rxnorm-fhir/rxnormparser"
	"github.com/giygas/rxnorm-fhir/rxnormparser/entities"
	"github.com/giygas/rxnorm-fhir/validation"
)

var bundleFiles = []string{export.SubstanceFile, export.MedicationFile, export.MedicationKnowledgeFile}

func testConfig(inputDir, outputDir string) *config.Config {
	return &config.Config{
		InputDir:          inputDir,
		ConceptsFile:      "MRCONSO.RRF",
		RelationshipsFile: "MRREL.RRF",
		AttributesFile:    "MRSAT.RRF",
		OutputDir:         outputDir,
		FHIRBaseURL:       "http://localhost:8080/hapi-fhir-jpaserver/fhir/",
		Vocabulary:        "RXNORM",
		ExcludedSources:   []string{"DRUGBANK"},
		AttributeMode:     config.AttributeModeFull,
		StrengthPolicy:    config.StrengthPermissive,
		InputEncoding:     config.EncodingUTF8,
	}
}

func sampleInput(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	rrftest.Sample().Write(t, dir)
	return dir
}

func TestRunWritesBundles(t *testing.T) {
	out := filepath.Join(t.TempDir(), "output")

	report, err := New(testConfig(sampleInput(t), out)).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if report.Status != entities.RunSucceeded || report.RunID == "" {
		t.Errorf("Unexpected report header %s/%s", report.Status, report.RunID)
	}
	want := entities.ResourceCounts{Substances: 2, Medications: 6, MedicationKnowledge: 6}
	if report.Resources != want {
		t.Errorf("Expected %+v, got %+v", want, report.Resources)
	}
	if !slices.Equal(report.UnitsOfMeasure, []string{"MG"}) {
		t.Errorf("Unexpected units %v", report.UnitsOfMeasure)
	}
	if len(report.Files) != 3 {
		t.Errorf("Expected stats for 3 files, got %d", len(report.Files))
	}

	var stages []string
	for _, s := range report.Stages {
		stages = append(stages, s.Name)
	}
	if !slices.Equal(stages, []string{"load", "build", "validate", "write"}) {
		t.Errorf("Unexpected stages %v", stages)
	}

	for _, name := range bundleFiles {
		if _, err := os.Stat(filepath.Join(out, name)); err != nil {
			t.Errorf("Expected %s to be written: %v", name, err)
		}
	}
	if len(report.Outputs) != 3 {
		t.Errorf("Expected 3 outputs, got %v", report.Outputs)
	}
}

func TestRunIsDeterministic(t *testing.T) {
	in := sampleInput(t)
	first := filepath.Join(t.TempDir(), "a")
	second := filepath.Join(t.TempDir(), "b")

	if _, err := New(testConfig(in, first)).Run(); err != nil {
		t.Fatalf("First run failed: %v", err)
	}
	if _, err := New(testConfig(in, second)).Run(); err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	for _, name := range bundleFiles {
		a, _ := os.ReadFile(filepath.Join(first, name))
		b, _ := os.ReadFile(filepath.Join(second, name))
		if len(a) == 0 || !bytes.Equal(a, b) {
			t.Errorf("%s differs between runs", name)
		}
	}
}

func TestSuppressedRowsNeverEmitted(t *testing.T) {
	out := t.TempDir()
	if _, err := New(testConfig(sampleInput(t), out)).Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	for _, name := range bundleFiles {
		data, _ := os.ReadFile(filepath.Join(out, name))
		if strings.Contains(string(data), "9999") || strings.Contains(string(data), "Withdrawn") {
			t.Errorf("%s contains a suppressed concept", name)
		}
		if strings.Contains(string(data), "Paracetamol") {
			t.Errorf("%s contains an excluded synonym", name)
		}
	}
}

func TestMissingInputWritesNothing(t *testing.T) {
	in := sampleInput(t)
	if err := os.Remove(filepath.Join(in, "MRREL.RRF")); err != nil {
		t.Fatal(err)
	}
	out := filepath.Join(t.TempDir(), "output")

	report, err := New(testConfig(in, out)).Run()
	if !errors.Is(err, rxnormparser.ErrInputMissing) {
		t.Fatalf("Expected ErrInputMissing, got %v", err)
	}
	if report.Status != entities.RunFailed || report.Error == "" {
		t.Errorf("Expected a failed report, got %+v", report)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Errorf("Expected no output directory, got %v", err)
	}
}

// failingValidator reports every build as broken
type failingValidator struct{}

func (failingValidator) ReportQuality(*builder.Resources) *entities.QualityReport {
	return &entities.QualityReport{DanglingReferences: []string{"med-1 -> Substance/subst-404"}}
}

func (failingValidator) CheckIntegrity(*entities.QualityReport) error {
	return validation.ErrInvalidBundle
}

func TestIntegrityFailureWritesNothing(t *testing.T) {
	cfg := testConfig(sampleInput(t), filepath.Join(t.TempDir(), "output"))
	p := NewWithDependencies(cfg, rxnormparser.NewRRFParser(cfg), failingValidator{})

	report, err := p.Run()
	if !errors.Is(err, validation.ErrInvalidBundle) {
		t.Fatalf("Expected ErrInvalidBundle, got %v", err)
	}
	if report.Quality == nil || len(report.Quality.DanglingReferences) != 1 {
		t.Errorf("Expected the quality report to be kept, got %+v", report.Quality)
	}
	if _, err := os.Stat(cfg.OutputDir); !os.IsNotExist(err) {
		t.Errorf("Expected no output directory, got %v", err)
	}
}

// stubParser returns a fixed result
type stubParser struct {
	err error
}

func (s stubParser) ParseAll() (*entities.Snapshot, error) {
	return nil, s.err
}

func TestParserErrorFailsRun(t *testing.T) {
	cfg := testConfig(t.TempDir(), t.TempDir())
	boom := errors.New("boom")

	_, err := NewWithDependencies(cfg, stubParser{err: boom}, validation.NewBundleValidator()).Run()
	if !errors.Is(err, boom) {
		t.Fatalf("Expected wrapped parser error, got %v", err)
	}
}

func TestRunWritesMetricsTextfile(t *testing.T) {
	cfg := testConfig(sampleInput(t), t.TempDir())
	cfg.MetricsFile = filepath.Join(t.TempDir(), "rxnorm.prom")

	if _, err := New(cfg).Run(); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	data, err := os.ReadFile(cfg.MetricsFile)
	if err != nil {
		t.Fatalf("Expected metrics textfile: %v", err)
	}
	if !strings.Contains(string(data), "rxnorm_runs_total") {
		t.Errorf("Expected run counter in textfile:\n%s", data)
	}
}

func TestFirstLineModeKeepsRunning(t *testing.T) {
	cfg := testConfig(sampleInput(t), t.TempDir())
	cfg.AttributeMode = config.AttributeModeFirstLine

	report, err := New(cfg).Run()
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if report.Files[2].TotalLines != 1 {
		t.Errorf("Expected a single attribute line read, got %d", report.Files[2].TotalLines)
	}
}
