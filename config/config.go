// Package config has the configuration of the RxNorm to FHIR converter
package config

import (
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Environment names
const (
	EnvDevelopment = "dev"
	EnvStaging     = "staging"
	EnvProduction  = "prod"
	EnvTest        = "test"
)

// Attribute loader modes
const (
	// AttributeModeFull reads every line of the attribute file
	AttributeModeFull = "full"
	// AttributeModeFirstLine reproduces the historical converter, which stopped after the first line
	AttributeModeFirstLine = "first-line"
)

// Strength parsing policies
const (
	// StrengthPermissive omits the strength ratio when a number can't be parsed
	StrengthPermissive = "permissive"
	// StrengthStrict drops the whole medication when a number can't be parsed
	StrengthStrict = "strict"
)

// Input encodings
const (
	EncodingUTF8   = "utf-8"
	EncodingLatin1 = "iso-8859-1"
	EncodingAuto   = "auto"
)

// Config holds all application configuration
type Config struct {
	InputDir          string
	ConceptsFile      string
	RelationshipsFile string
	AttributesFile    string
	OutputDir         string
	FHIRBaseURL       string
	Vocabulary        string
	ExcludedSources   []string // Vocabularies whose terms are never used as synonyms
	AttributeMode     string
	StrengthPolicy    string
	InputEncoding     string
	MetricsFile       string // Prometheus textfile written after each run, empty disables it
	Schedule          string // gocron At() expression used by the serve command
	Port              string
	Address           string
	Env               string
	LogLevel          string
	LogDir            string
	LogRetentionWeeks int   // Number of weeks to keep log files
	MaxLogFileSize    int64 // Maximum log file size in bytes
}

// Load loads and validates configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		InputDir:          getEnvWithDefault("INPUT_DIR", "."),
		ConceptsFile:      getEnvWithDefault("CONCEPTS_FILE", "MRCONSO.RRF"),
		RelationshipsFile: getEnvWithDefault("RELATIONSHIPS_FILE", "MRREL.RRF"),
		AttributesFile:    getEnvWithDefault("ATTRIBUTES_FILE", "MRSAT.RRF"),
		OutputDir:         getEnvWithDefault("OUTPUT_DIR", "./output"),
		FHIRBaseURL:       getEnvWithDefault("FHIR_BASE_URL", "http://localhost:8080/hapi-fhir-jpaserver/fhir/"),
		Vocabulary:        getEnvWithDefault("VOCABULARY", "RXNORM"),
		ExcludedSources:   getListEnvWithDefault("EXCLUDED_SYNONYM_SOURCES", []string{"DRUGBANK"}),
		AttributeMode:     strings.ToLower(getEnvWithDefault("ATTRIBUTE_LOADER_MODE", AttributeModeFull)),
		StrengthPolicy:    strings.ToLower(getEnvWithDefault("STRENGTH_POLICY", StrengthPermissive)),
		InputEncoding:     strings.ToLower(getEnvWithDefault("INPUT_ENCODING", EncodingUTF8)),
		MetricsFile:       os.Getenv("METRICS_FILE"),
		Schedule:          getEnvWithDefault("SCHEDULE", "06:00;18:00"),
		Port:              getEnvWithDefault("PORT", "8000"),
		Address:           getEnvWithDefault("ADDRESS", "127.0.0.1"),
		Env:               strings.ToLower(getEnvWithDefault("ENV", EnvDevelopment)),
		LogLevel:          strings.ToLower(getEnvWithDefault("LOG_LEVEL", "info")),
		LogDir:            getEnvWithDefault("LOG_DIR", "logs"),
		LogRetentionWeeks: getIntEnvWithDefault("LOG_RETENTION_WEEKS", 4),         // 4 weeks default
		MaxLogFileSize:    getInt64EnvWithDefault("MAX_LOG_FILE_SIZE", 104857600), // 100MB default
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// ConceptsPath returns the full path of the concepts file
func (c *Config) ConceptsPath() string {
	return filepath.Join(c.InputDir, c.ConceptsFile)
}

// RelationshipsPath returns the full path of the relationships file
func (c *Config) RelationshipsPath() string {
	return filepath.Join(c.InputDir, c.RelationshipsFile)
}

// AttributesPath returns the full path of the attributes file
func (c *Config) AttributesPath() string {
	return filepath.Join(c.InputDir, c.AttributesFile)
}

// Validate validates all configuration values
func (c *Config) Validate() error {
	if err := validateRequired(c.ConceptsFile, "CONCEPTS_FILE"); err != nil {
		return err
	}
	if err := validateRequired(c.RelationshipsFile, "RELATIONSHIPS_FILE"); err != nil {
		return err
	}
	if err := validateRequired(c.AttributesFile, "ATTRIBUTES_FILE"); err != nil {
		return err
	}
	if err := validateRequired(c.OutputDir, "OUTPUT_DIR"); err != nil {
		return err
	}
	if err := validateRequired(c.Vocabulary, "VOCABULARY"); err != nil {
		return err
	}

	if err := validateBaseURL(c.FHIRBaseURL); err != nil {
		return fmt.Errorf("invalid FHIR_BASE_URL: %w", err)
	}

	if err := validateOneOf(c.AttributeMode, "ATTRIBUTE_LOADER_MODE", AttributeModeFull, AttributeModeFirstLine); err != nil {
		return err
	}

	if err := validateOneOf(c.StrengthPolicy, "STRENGTH_POLICY", StrengthPermissive, StrengthStrict); err != nil {
		return err
	}

	if err := validateOneOf(c.InputEncoding, "INPUT_ENCODING", EncodingUTF8, EncodingLatin1, EncodingAuto); err != nil {
		return err
	}

	if err := validatePort(c.Port); err != nil {
		return fmt.Errorf("invalid PORT: %w", err)
	}

	if err := validateAddress(c.Address); err != nil {
		return fmt.Errorf("invalid ADDRESS: %w", err)
	}

	if err := validateOneOf(c.Env, "ENV", EnvDevelopment, EnvStaging, EnvProduction, EnvTest); err != nil {
		return err
	}

	if err := validateOneOf(c.LogLevel, "LOG_LEVEL", "debug", "info", "warn", "error"); err != nil {
		return err
	}

	if err := validateLogRetentionWeeks(c.LogRetentionWeeks); err != nil {
		return fmt.Errorf("invalid LOG_RETENTION_WEEKS: %w", err)
	}

	if err := validateMaxLogFileSize(c.MaxLogFileSize); err != nil {
		return fmt.Errorf("invalid MAX_LOG_FILE_SIZE: %w", err)
	}

	return nil
}

func validateRequired(value, name string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s cannot be empty", name)
	}
	return nil
}

// validateOneOf checks that value is one of the allowed values
func validateOneOf(value, name string, allowed ...string) error {
	for _, a := range allowed {
		if value == a {
			return nil
		}
	}
	return fmt.Errorf("%s must be one of: %v, got: %s", name, allowed, value)
}

// validateBaseURL checks the base used for extension urls
func validateBaseURL(base string) error {
	if base == "" {
		return fmt.Errorf("FHIR_BASE_URL cannot be empty")
	}

	u, err := url.Parse(base)
	if err != nil {
		return fmt.Errorf("FHIR_BASE_URL must be a valid URL: %w", err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("FHIR_BASE_URL must use http or https, got: %s", base)
	}

	if !strings.HasSuffix(base, "/") {
		return fmt.Errorf("FHIR_BASE_URL must end with a slash, got: %s", base)
	}

	return nil
}

// validatePort validates the PORT environment variable
func validatePort(port string) error {
	if port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}

	portNum, err := strconv.Atoi(port)
	if err != nil {
		return fmt.Errorf("PORT must be a valid number: %w", err)
	}

	if portNum < 1 || portNum > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535")
	}

	if portNum < 1024 {
		return fmt.Errorf("PORT %d is privileged (less than 1024), use ports 1024-65535", portNum)
	}

	return nil
}

// validateAddress validates the ADDRESS environment variable
func validateAddress(address string) error {
	if address == "" {
		return fmt.Errorf("ADDRESS cannot be empty")
	}

	if address == "127.0.0.1" || address == "::1" || address == "localhost" {
		return nil
	}

	ip := net.ParseIP(address)
	if ip == nil {
		return fmt.Errorf("ADDRESS must be a valid IP address or 'localhost', got: %s", address)
	}

	if !ip.IsLoopback() && !ip.IsPrivate() && !ip.IsUnspecified() {
		return fmt.Errorf("ADDRESS %s is a public IP, consider using private network ranges for security", address)
	}

	return nil
}

// validateLogRetentionWeeks validates the LOG_RETENTION_WEEKS environment variable
func validateLogRetentionWeeks(weeks int) error {
	if weeks <= 0 {
		return fmt.Errorf("LOG_RETENTION_WEEKS must be positive, got: %d", weeks)
	}

	if weeks > 52 { // 1 year maximum
		return fmt.Errorf("LOG_RETENTION_WEEKS is too large (max 52 weeks), got: %d", weeks)
	}

	return nil
}

// validateMaxLogFileSize validates the MAX_LOG_FILE_SIZE environment variable
func validateMaxLogFileSize(size int64) error {
	if size <= 0 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE must be positive, got: %d", size)
	}

	// Minimum 1MB, maximum 1GB
	if size < 1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too small (min 1MB), got: %d bytes", size)
	}

	if size > 1024*1024*1024 {
		return fmt.Errorf("MAX_LOG_FILE_SIZE is too large (max 1GB), got: %d bytes", size)
	}

	return nil
}

// getEnvWithDefault gets an environment variable with a default value
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getListEnvWithDefault reads a comma separated list, blank items are dropped
func getListEnvWithDefault(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var items []string
	for _, item := range strings.Split(value, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}
	return items
}

// getIntEnvWithDefault gets an environment variable as int with a default value
func getIntEnvWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getInt64EnvWithDefault gets an environment variable as int64 with a default value
func getInt64EnvWithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// GetEnvVars returns a list of all expected environment variables
func GetEnvVars() []string {
	return []string{
		"INPUT_DIR",
		"CONCEPTS_FILE",
		"RELATIONSHIPS_FILE",
		"ATTRIBUTES_FILE",
		"OUTPUT_DIR",
		"FHIR_BASE_URL",
		"VOCABULARY",
		"EXCLUDED_SYNONYM_SOURCES",
		"ATTRIBUTE_LOADER_MODE",
		"STRENGTH_POLICY",
		"INPUT_ENCODING",
		"METRICS_FILE",
		"SCHEDULE",
		"PORT",
		"ADDRESS",
		"ENV",
		"LOG_LEVEL",
		"LOG_DIR",
		"LOG_RETENTION_WEEKS",
		"MAX_LOG_FILE_SIZE",
	}
}
