package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fabricward/fabricward/pkg/catalyst"
	"github.com/fabricward/fabricward/pkg/executor"
	"github.com/fabricward/fabricward/pkg/telemetry"
)

var (
	// Controller connection flags
	controllerHost    string
	controllerPort    int
	controllerUser    string
	controllerPass    string
	controllerVerify  bool
	controllerVersion string

	// Logging flags
	logEnabled bool
	logLevel   string
	logFormat  string
	logFile    string
	logAppend  bool

	// Timing flags
	taskTimeout  time.Duration
	pollInterval time.Duration

	// Observability flags
	metricsListen string
	traceExporter string

	// Output flags
	jsonOutput bool
)

// appVersion is the build version shared with subcommand wiring.
var appVersion = "dev"

// Execute runs the root command
func Execute(ctx context.Context, version, commit, buildDate string) error {
	appVersion = version
	rootCmd := newRootCommand(version, commit, buildDate)
	return rootCmd.ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "fabricward",
		Short: "Fabricward - declarative SDA fabric reconciliation",
		Long: `Fabricward reconciles declared SDA fabric state against a Cisco
Catalyst Center controller.

A YAML playbook declares fabric sites and zones, authentication
profiles, assurance issue settings, device credentials, site credential
bindings and LAN automation work. Fabricward validates the playbook,
reads the controller's current state, computes the minimal action plan
and executes it, reporting per-entity outcomes.`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVar(&controllerHost, "host", os.Getenv("FABRICWARD_HOST"), "controller address")
	flags.IntVar(&controllerPort, "port", 443, "controller HTTPS port")
	flags.StringVar(&controllerUser, "username", os.Getenv("FABRICWARD_USERNAME"), "controller username")
	flags.StringVar(&controllerPass, "password", os.Getenv("FABRICWARD_PASSWORD"), "controller password")
	flags.BoolVar(&controllerVerify, "verify-tls", false, "verify the controller TLS certificate")
	flags.StringVar(&controllerVersion, "controller-version", "2.3.7.6", "reported controller version, used for feature gating")
	flags.BoolVar(&logEnabled, "log", true, "enable logging below warn level")
	flags.StringVar(&logLevel, "log-level", "info", "log level (trace, debug, info, warn, error)")
	flags.StringVar(&logFormat, "log-format", "console", "log format (console, json)")
	flags.StringVar(&logFile, "log-file", "", "write logs to this file instead of stderr")
	flags.BoolVar(&logAppend, "log-append", true, "append to an existing log file")
	flags.DurationVar(&taskTimeout, "task-timeout", catalyst.DefaultTaskTimeout, "per-task poll timeout")
	flags.DurationVar(&pollInterval, "poll-interval", catalyst.DefaultPollInterval, "delay between task status polls")
	flags.StringVar(&metricsListen, "metrics-listen", "", "serve Prometheus metrics on this address")
	flags.StringVar(&traceExporter, "trace", "", "trace exporter (stdout)")
	flags.BoolVar(&jsonOutput, "json", false, "print the run result as JSON")

	rootCmd.AddCommand(newValidateCommand())
	rootCmd.AddCommand(newPlanCommand())
	rootCmd.AddCommand(newApplyCommand())
	rootCmd.AddCommand(newVerifyCommand())
	rootCmd.AddCommand(newGenerateCommand())

	return rootCmd
}

func telemetryConfig(version string) telemetry.Config {
	cfg := telemetry.DefaultConfig()
	cfg.ServiceVersion = version
	cfg.Logging.Enabled = logEnabled
	cfg.Logging.Level = logLevel
	cfg.Logging.Format = logFormat
	cfg.Logging.FilePath = logFile
	cfg.Logging.Append = logAppend
	cfg.Metrics.Listen = metricsListen
	if traceExporter != "" {
		cfg.Tracing.Enabled = true
		cfg.Tracing.Exporter = traceExporter
	}
	return cfg
}

func controllerConfig() catalyst.Config {
	return catalyst.Config{
		Host:         controllerHost,
		Port:         controllerPort,
		Username:     controllerUser,
		Password:     controllerPass,
		Verify:       controllerVerify,
		Version:      controllerVersion,
		TaskTimeout:  taskTimeout,
		PollInterval: pollInterval,
	}
}

func executorOptions() executor.Options {
	opts := executor.DefaultOptions()
	opts.TaskTimeout = taskTimeout
	opts.PollInterval = pollInterval
	return opts
}
