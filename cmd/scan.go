package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/teemow/inboxscan/internal/auth"
	"github.com/teemow/inboxscan/internal/config"
	"github.com/teemow/inboxscan/internal/instrumentation"
	"github.com/teemow/inboxscan/internal/logging"
	"github.com/teemow/inboxscan/internal/report"
	"github.com/teemow/inboxscan/internal/runner"
	"github.com/teemow/inboxscan/internal/scanner"
	"github.com/teemow/inboxscan/internal/server"
)

type scanOptions struct {
	configPath  string
	targetsPath string
	folder      string
	logDir      string
	metricsAddr string
	tokenCache  string
	includePII  bool
}

func newScanCmd() *cobra.Command {
	var opts scanOptions

	cmd := &cobra.Command{
		Use:   "scan <config.json> <targets.csv>",
		Short: "Scan mailboxes for Social Security Numbers",
		Long: `Scan every mailbox listed in the first column of the targets CSV.

Message bodies are checked with the strict SSN pattern. Attachments with an
allowed extension are decoded, converted to text and checked with the
attachment pattern. Every hit is appended to <log-dir>/<MM-DD-YYYY>.csv.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) > 0 {
				opts.configPath = args[0]
			}
			if len(args) > 1 {
				opts.targetsPath = args[1]
			}
			if opts.configPath == "" || opts.targetsPath == "" {
				return fmt.Errorf("both a config file and a targets file are required")
			}
			if !cmd.Flags().Changed("log-dir") {
				opts.logDir = ""
			}
			return runScan(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.configPath, "config", "", "JSON configuration file (alternative to the first argument)")
	cmd.Flags().StringVar(&opts.targetsPath, "targets", "", "CSV file listing the mailboxes to scan (alternative to the second argument)")
	cmd.Flags().StringVar(&opts.folder, "folder", "", "Only scan the top-level folder with this name")
	cmd.Flags().StringVar(&opts.logDir, "log-dir", config.DefaultLogDir, "Directory for the daily compliance CSV files. Can also use INBOXSCAN_LOG_DIR env var.")
	cmd.Flags().StringVar(&opts.metricsAddr, "metrics-addr", "", "Serve Prometheus metrics on this address while the scan runs (e.g. :9090)")
	cmd.Flags().StringVar(&opts.tokenCache, "token-cache", auth.DefaultCacheDir(), "Directory for cached access tokens. Empty disables the disk cache.")
	cmd.Flags().BoolVar(&opts.includePII, "include-pii", false, "Log full addresses and subjects of findings instead of hashes")

	return cmd
}

func runScan(cmd *cobra.Command, opts scanOptions) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := logging.WithOperation(slog.Default(), "scan")

	cfg, err := loadConfig(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if opts.logDir != "" {
		cfg.LogDir = opts.logDir
	}

	targets, err := config.LoadTargets(opts.targetsPath)
	if err != nil {
		return fmt.Errorf("failed to load targets: %w", err)
	}
	for _, invalid := range targets.Invalid {
		logger.Warn("skipping invalid target address", logging.UserHash(invalid))
	}

	runID := uuid.NewString()

	instrConfig := instrumentation.DefaultConfig()
	instrConfig.ServiceVersion = version
	instrConfig.RunID = runID
	if opts.metricsAddr != "" {
		instrConfig.Enabled = true
		instrConfig.MetricsExporter = instrumentation.ExporterPrometheus
	}
	provider, err := instrumentation.NewProvider(ctx, instrConfig)
	if err != nil {
		return fmt.Errorf("failed to create instrumentation provider: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), server.DefaultShutdownTimeout)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			logger.Warn("instrumentation shutdown failed", logging.Err(err))
		}
	}()
	metrics := provider.Metrics()

	health := server.NewHealthChecker()
	if opts.metricsAddr != "" {
		metricsServer, err := startMetricsServer(opts.metricsAddr, provider, health, logger)
		if err != nil {
			return err
		}
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), server.DefaultShutdownTimeout)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
	}

	source, err := newSource(ctx, cfg, tokenCache(opts.tokenCache), metrics, logger)
	if err != nil {
		return err
	}

	bodyMatcher, err := scanner.NewBodyMatcher(cfg.Scanner.BodyPattern)
	if err != nil {
		return err
	}
	attachmentMatcher, err := scanner.NewAttachmentMatcher(cfg.Scanner.AttachmentPattern)
	if err != nil {
		return err
	}
	pipeline, err := scanner.NewPipeline(scanner.Options{
		Matcher:            attachmentMatcher,
		AllowedExtensions:  cfg.Scanner.AllowedExtensions,
		TempDir:            cfg.Scanner.TempDir,
		MaxAttachmentBytes: cfg.Scanner.MaxAttachmentBytes,
		Workers:            cfg.Scanner.Workers,
		Logger:             logging.NewSlogAdapter(logger),
		Metrics:            metrics,
	})
	if err != nil {
		return err
	}

	rep, err := report.New(cfg.LogDir, report.Options{Logger: logger, IncludePII: opts.includePII})
	if err != nil {
		return err
	}
	defer func() {
		if err := rep.Close(); err != nil {
			logger.Error("failed to close compliance log", logging.Err(err))
		}
	}()

	run, err := runner.New(runner.Options{
		Source:      source,
		Pipeline:    pipeline,
		Recorder:    rep,
		BodyMatcher: bodyMatcher,
		Folder:      opts.folder,
		RunID:       runID,
		Logger:      logger,
		Metrics:     metrics,
	})
	if err != nil {
		return err
	}

	health.SetPhase(server.PhaseScanning)
	sum, err := run.Run(ctx, targets.Addresses)
	health.SetPhase(server.PhaseFinished)

	fmt.Fprintf(cmd.OutOrStdout(),
		"run %s: %d accounts, %d messages, %d body hits, %d attachment hits, %d failures\n",
		run.RunID(), sum.Accounts, sum.Messages, sum.BodyHits, sum.AttachmentHits, sum.Failures)
	if err != nil {
		return fmt.Errorf("scan aborted: %w", err)
	}
	return nil
}

func startMetricsServer(addr string, provider *instrumentation.Provider, health *server.HealthChecker, logger *slog.Logger) (*server.MetricsServer, error) {
	metricsServer, err := server.NewMetricsServer(server.MetricsServerConfig{
		Addr:                    addr,
		InstrumentationProvider: provider,
		Health:                  health,
		Logger:                  logger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create metrics server: %w", err)
	}
	l, err := metricsServer.Listen()
	if err != nil {
		return nil, err
	}
	go func() {
		if err := metricsServer.Serve(l); err != nil {
			logger.Error("metrics server failed", logging.Err(err))
		}
	}()
	return metricsServer, nil
}
