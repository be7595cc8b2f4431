package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/ternarybob/arbor"

	"github.com/ternarybob/flickrinsert/internal/app"
	"github.com/ternarybob/flickrinsert/internal/common"
)

// stringList is a custom flag type that allows a flag to be repeated
type stringList []string

func (s *stringList) String() string {
	return fmt.Sprintf("%v", *s)
}

func (s *stringList) Set(value string) error {
	*s = append(*s, value)
	return nil
}

var (
	// Command-line flags
	configFiles  stringList // Multiple -config flags supported
	contentDirs  stringList // Multiple -content flags supported
	outputDir    = flag.String("output", "", "Output directory (overrides config)")
	schedule     = flag.String("schedule", "", "Cron schedule for repeated passes (overrides config)")
	showVersion  = flag.Bool("version", false, "Print version information")
	showVersionV = flag.Bool("v", false, "Print version information (shorthand)")
)

func init() {
	flag.Var(&configFiles, "config", "Configuration file path (can be specified multiple times, later files override earlier ones)")
	flag.Var(&configFiles, "c", "Configuration file path (shorthand)")
	flag.Var(&contentDirs, "content", "Content directory to scan (can be specified multiple times, overrides config)")
}

func main() {
	common.InstallCrashHandler(common.LogDirectory())
	defer common.RecoverWithCrashFile()

	flag.Parse()

	if *showVersion || *showVersionV {
		fmt.Printf("flickrinsert version %s\n", common.GetFullVersion())
		os.Exit(0)
	}

	// Startup sequence (REQUIRED ORDER):
	// 1. Load config (defaults -> file1 -> file2 -> ... -> env)
	// 2. Apply CLI overrides (highest priority)
	// 3. Validate
	// 4. Initialize logger
	// 5. Print banner

	// Auto-discover config file if not specified
	if len(configFiles) == 0 {
		if _, err := os.Stat("flickrinsert.toml"); err == nil {
			configFiles = append(configFiles, "flickrinsert.toml")
		} else if _, err := os.Stat("deployments/local/flickrinsert.toml"); err == nil {
			configFiles = append(configFiles, "deployments/local/flickrinsert.toml")
		}
	}

	config, err := common.LoadFromFiles(configFiles...)
	if err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Strs("paths", configFiles).Err(err).Msg("Failed to load configuration files")
		os.Exit(1)
	}

	common.ApplyFlagOverrides(config, contentDirs, *outputDir, *schedule)

	if err := config.Validate(); err != nil {
		tempLogger := arbor.NewLogger()
		tempLogger.Fatal().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	logger := common.SetupLogger(config)
	common.PrintBanner(config, logger)

	logger.Debug().
		Strs("config_files", configFiles).
		Str("storage_type", config.StorageType()).
		Str("cache_file", config.Cache.Filename).
		Str("log_level", config.Logging.Level).
		Strs("log_output", config.Logging.Output).
		Msg("Resolved configuration (sanitized)")

	application, err := app.New(config, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize application")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	os.Exit(run(ctx, stop, application, logger))
}

// run performs the first pass and, when scheduled, keeps running passes until
// a signal arrives. It returns the process exit code.
func run(ctx context.Context, stop context.CancelFunc, application *app.App, logger arbor.ILogger) int {
	defer stop()
	defer application.Close()

	if err := application.Run(ctx); err != nil {
		logger.Error().Err(err).Msg("Pass failed")
		if application.Config.Run.Schedule == "" {
			return 1
		}
	}

	if application.Config.Run.Schedule == "" {
		return 0
	}

	if err := application.StartSchedule(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to start scheduler")
		return 1
	}

	logger.Info().
		Str("schedule", application.Config.Run.Schedule).
		Msg("Waiting for scheduled passes - Press Ctrl+C to stop")

	<-ctx.Done()
	logger.Info().Msg("Interrupt signal received, shutting down")

	return 0
}
