package config

import (
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range GetEnvVars() {
		t.Setenv(name, "")
	}
}

func TestLoadWithDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if cfg.ConceptsFile != "MRCONSO.RRF" {
		t.Errorf("Expected default concepts file MRCONSO.RRF, got %s", cfg.ConceptsFile)
	}
	if cfg.OutputDir != "./output" {
		t.Errorf("Expected default output dir ./output, got %s", cfg.OutputDir)
	}
	if cfg.Vocabulary != "RXNORM" {
		t.Errorf("Expected default vocabulary RXNORM, got %s", cfg.Vocabulary)
	}
	if cfg.AttributeMode != AttributeModeFull {
		t.Errorf("Expected default attribute mode %s, got %s", AttributeModeFull, cfg.AttributeMode)
	}
	if cfg.StrengthPolicy != StrengthPermissive {
		t.Errorf("Expected default strength policy %s, got %s", StrengthPermissive, cfg.StrengthPolicy)
	}
	if !slices.Equal(cfg.ExcludedSources, []string{"DRUGBANK"}) {
		t.Errorf("Expected DRUGBANK to be excluded by default, got %v", cfg.ExcludedSources)
	}
	if cfg.Env != EnvDevelopment {
		t.Errorf("Expected default env dev, got %s", cfg.Env)
	}
	if cfg.Schedule != "06:00;18:00" {
		t.Errorf("Expected default schedule 06:00;18:00, got %s", cfg.Schedule)
	}
}

func TestLoadValidConfig(t *testing.T) {
	clearEnv(t)
	t.Setenv("INPUT_DIR", "/data/rrf")
	t.Setenv("OUTPUT_DIR", "/data/out")
	t.Setenv("ATTRIBUTE_LOADER_MODE", "FIRST-LINE")
	t.Setenv("STRENGTH_POLICY", "strict")
	t.Setenv("INPUT_ENCODING", "auto")
	t.Setenv("EXCLUDED_SYNONYM_SOURCES", "DRUGBANK, MTHSPL ,")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if got := cfg.ConceptsPath(); got != filepath.Join("/data/rrf", "MRCONSO.RRF") {
		t.Errorf("Unexpected concepts path %s", got)
	}
	if got := cfg.AttributesPath(); got != filepath.Join("/data/rrf", "MRSAT.RRF") {
		t.Errorf("Unexpected attributes path %s", got)
	}
	if cfg.AttributeMode != AttributeModeFirstLine {
		t.Errorf("Expected attribute mode to be lower-cased, got %s", cfg.AttributeMode)
	}
	if cfg.StrengthPolicy != StrengthStrict {
		t.Errorf("Expected strict policy, got %s", cfg.StrengthPolicy)
	}
	if !slices.Equal(cfg.ExcludedSources, []string{"DRUGBANK", "MTHSPL"}) {
		t.Errorf("Unexpected excluded sources %v", cfg.ExcludedSources)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("Expected log level debug, got %s", cfg.LogLevel)
	}
}

func TestExcludedSourcesCanBeEmptied(t *testing.T) {
	clearEnv(t)
	t.Setenv("EXCLUDED_SYNONYM_SOURCES", " , ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if len(cfg.ExcludedSources) != 0 {
		t.Errorf("Expected no excluded sources, got %v", cfg.ExcludedSources)
	}
}

func TestInvalidValues(t *testing.T) {
	testCases := []struct {
		name     string
		key      string
		value    string
		expected string
	}{
		{"attribute mode", "ATTRIBUTE_LOADER_MODE", "half", "ATTRIBUTE_LOADER_MODE must be one of"},
		{"strength policy", "STRENGTH_POLICY", "lenient", "STRENGTH_POLICY must be one of"},
		{"encoding", "INPUT_ENCODING", "utf-16", "INPUT_ENCODING must be one of"},
		{"base url scheme", "FHIR_BASE_URL", "ftp://example.org/fhir/", "must use http or https"},
		{"base url slash", "FHIR_BASE_URL", "http://example.org/fhir", "must end with a slash"},
		{"port not a number", "PORT", "abc", "PORT must be a valid number"},
		{"port out of range", "PORT", "65536", "PORT must be between 1 and 65535"},
		{"privileged port", "PORT", "80", "PORT 80 is privileged"},
		{"address", "ADDRESS", "invalid", "ADDRESS must be a valid IP address"},
		{"env", "ENV", "invalid", "ENV must be one of"},
		{"log level", "LOG_LEVEL", "invalid", "LOG_LEVEL must be one of"},
		{"retention", "LOG_RETENTION_WEEKS", "60", "LOG_RETENTION_WEEKS is too large"},
		{"log size", "MAX_LOG_FILE_SIZE", "1024", "MAX_LOG_FILE_SIZE is too small"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tc.key, tc.value)

			_, err := Load()
			if err == nil {
				t.Fatalf("Expected error for %s=%s, got nil", tc.key, tc.value)
			}
			if !strings.Contains(err.Error(), tc.expected) {
				t.Errorf("Expected error containing %q, got %q", tc.expected, err.Error())
			}
		})
	}
}
