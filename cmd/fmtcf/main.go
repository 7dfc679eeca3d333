package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/30Piraten/fmtcf/config"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global flags
	region        string
	profile       string
	envFiles      []string
	workers       int
	lookupTimeout time.Duration
	maxAttempts   int
	failFast      bool
	verbose       bool

	// Logger
	logger *zap.Logger
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "fmtcf",
	Short: "Replace placeholder tokens in files with parameter, secret and environment values",
	Long: `fmtcf resolves placeholder tokens in text files before they are deployed.

Two syntaxes are supported, one per file:
  AWS-PARAMETER::name, AWS-SECRET::name, ENV::name   in *.fmtcf templates (process)
  __name__                                           in any text file (substitute)`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.LoadEnvFiles(envFiles...); err != nil {
			return err
		}
		if err := applyEnvDefaults(cmd); err != nil {
			return err
		}

		// Initialize logger
		var err error
		logger, err = newLogger(verbose)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

// newLogger builds the production logger. Tests replace it.
var newLogger = func(verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if verbose {
		zc.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
	}
	return zc.Build()
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&region, "region", "", "AWS region for parameter and secret lookups (env "+config.EnvRegion+")")
	flags.StringVar(&profile, "profile", "", "AWS shared config profile (env "+config.EnvProfile+")")
	flags.StringSliceVar(&envFiles, "env-file", nil, "dotenv files to load before resolving (default ./.env if present)")
	flags.IntVarP(&workers, "workers", "j", 0, "files resolved concurrently, 0 for one per CPU (env "+config.EnvWorkers+")")
	flags.DurationVar(&lookupTimeout, "timeout", config.DefaultLookupTimeout, "timeout for a single lookup (env "+config.EnvLookupTimeout+")")
	flags.IntVar(&maxAttempts, "max-attempts", config.DefaultMaxAttempts, "attempts per AWS call, with exponential backoff (env "+config.EnvMaxAttempts+")")
	flags.BoolVar(&failFast, "fail-fast", false, "stop at the first file that fails (env "+config.EnvFailFast+")")
	flags.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging (env "+config.EnvVerbose+")")

	rootCmd.AddCommand(processCmd, substituteCmd)
}

// applyEnvDefaults fills every flag the user did not set from FMTCF_*
// variables.
func applyEnvDefaults(cmd *cobra.Command) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	flags := cmd.Flags()
	if !flags.Changed("region") {
		region = cfg.Region
	}
	if !flags.Changed("profile") {
		profile = cfg.Profile
	}
	if !flags.Changed("workers") {
		workers = cfg.Workers
	}
	if !flags.Changed("timeout") {
		lookupTimeout = cfg.LookupTimeout
	}
	if !flags.Changed("max-attempts") {
		maxAttempts = cfg.MaxAttempts
	}
	if !flags.Changed("fail-fast") {
		failFast = cfg.FailFast
	}
	if !flags.Changed("verbose") {
		verbose = cfg.Verbose
	}
	return config.Config{
		Region:        region,
		Profile:       profile,
		Workers:       workers,
		LookupTimeout: lookupTimeout,
		MaxAttempts:   maxAttempts,
	}.Validate()
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

// run executes the command line and flushes the logger afterwards, including
// when the command failed.
func run(ctx context.Context) error {
	err := rootCmd.ExecuteContext(ctx)
	if logger != nil {
		_ = logger.Sync()
	}
	return err
}
