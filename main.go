package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/giygas/rxnorm-fhir/config"
	"github.com/giygas/rxnorm-fhir/data"
	"github.com/giygas/rxnorm-fhir/health"
	"github.com/giygas/rxnorm-fhir/logging"
	"github.com/giygas/rxnorm-fhir/pipeline"
	"github.com/giygas/rxnorm-fhir/scheduler"
	"github.com/giygas/rxnorm-fhir/server"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

// flagOverrides holds the command line values that take precedence over the environment
type flagOverrides struct {
	inputDir  string
	outputDir string
	logLevel  string
}

func main() {
	var flags flagOverrides

	rootCmd := &cobra.Command{
		Use:           "rxnorm-fhir",
		Short:         "Convert an RxNorm RRF release into FHIR bundles",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(&flags)
		},
	}

	rootCmd.PersistentFlags().StringVar(&flags.inputDir, "input-dir", "", "directory holding MRCONSO, MRREL and MRSAT (overrides INPUT_DIR)")
	rootCmd.PersistentFlags().StringVar(&flags.outputDir, "output-dir", "", "directory the bundles are written to (overrides OUTPUT_DIR)")
	rootCmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "debug, info, warn or error (overrides LOG_LEVEL)")

	rootCmd.AddCommand(runCmd(&flags))
	rootCmd.AddCommand(serveCmd(&flags))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func runCmd(flags *flagOverrides) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run one conversion and exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnce(flags)
		},
	}
}

func serveCmd(flags *flagOverrides) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Convert on a schedule and expose health, metrics and the last report",
		RunE: func(cmd *cobra.Command, args []string) error {
			return serve(flags)
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), "rxnorm-fhir", version)
		},
	}
}

// loadEnvironment reads the .env file from the working directory,
// then from the executable directory
func loadEnvironment() {
	if err := godotenv.Load(); err == nil {
		return
	}

	ex, err := os.Executable()
	if err != nil {
		return
	}
	_ = godotenv.Load(filepath.Join(filepath.Dir(ex), ".env"))
}

// setup loads the configuration, applies the flags and starts the logger
func setup(flags *flagOverrides) (*config.Config, error) {
	loadEnvironment()

	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	if flags.inputDir != "" {
		cfg.InputDir = flags.inputDir
	}
	if flags.outputDir != "" {
		cfg.OutputDir = flags.outputDir
	}
	if flags.logLevel != "" {
		cfg.LogLevel = flags.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid flags: %w", err)
	}

	logging.InitLoggerWithOptions(logging.Options{
		Dir:            cfg.LogDir,
		Level:          cfg.LogLevel,
		RetentionWeeks: cfg.LogRetentionWeeks,
		MaxFileSize:    cfg.MaxLogFileSize,
	})

	return cfg, nil
}

func runOnce(flags *flagOverrides) error {
	cfg, err := setup(flags)
	if err != nil {
		return err
	}
	defer logging.Close()

	report, err := pipeline.New(cfg).Run()
	if err != nil {
		return err
	}

	logging.Info("Bundles written", "run_id", report.RunID, "outputs", report.Outputs, "duration", report.Duration())
	return nil
}

func serve(flags *flagOverrides) error {
	cfg, err := setup(flags)
	if err != nil {
		return err
	}
	defer logging.Close()

	store := data.NewReportContainer()
	store.SetServerStartTime(time.Now())

	sched := scheduler.NewScheduler(store, pipeline.New(cfg), cfg.Schedule)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	healthChecker := health.NewHealthChecker(store, sched.NextRun)
	srv := server.NewServer(cfg, store, healthChecker)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case <-quit:
	case err := <-serverErr:
		return fmt.Errorf("server failed to start: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return srv.Shutdown(ctx)
}
