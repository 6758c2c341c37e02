package cmd

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/naka-gawa/codestats-box/internal/config"
	"github.com/naka-gawa/codestats-box/internal/domain"
	"github.com/naka-gawa/codestats-box/internal/gateway"
	"github.com/naka-gawa/codestats-box/internal/metrics"
	"github.com/naka-gawa/codestats-box/internal/usecase"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"
)

// flagKeys maps override flags onto config keys.
var flagKeys = map[string]string{
	"mode":         "mode",
	"rows":         "rows",
	"width":        "width",
	"fill":         "fill",
	"gist-file":    "gist_filename",
	"force":        "force",
	"metrics-file": "metrics_file",
}

// newLogger discards everything unless --verbose is set. Verbose lines carry
// a run id so interleaved scheduler logs stay apart.
func newLogger(cmd *cobra.Command) *log.Logger {
	verbose, _ := cmd.Flags().GetBool("verbose")
	logger := log.New(io.Discard, "", log.LstdFlags) // Default: discard all logs.
	if verbose {
		logger.SetOutput(os.Stderr) // If verbose, log to standard error.
		logger.SetPrefix(fmt.Sprintf("[%s] ", ksuid.New().String()))
	}
	return logger
}

// loadConfig layers the changed flags and the extra options over the
// file and environment configuration.
func loadConfig(ctx context.Context, cmd *cobra.Command, extra ...config.LoadOption) (*config.Config, error) {
	flags := cmd.Flags()
	file, _ := flags.GetString("config")
	envFile, _ := flags.GetString("env-file")

	opts := []config.LoadOption{config.WithFile(file), config.WithEnvFile(envFile)}
	for name, key := range flagKeys {
		if flags.Changed(name) {
			opts = append(opts, config.WithOverride(key, flags.Lookup(name).Value.String()))
		}
	}
	return config.Load(ctx, append(opts, extra...)...)
}

// runUpdate drives one complete run: config, fetch, format, write, report.
// With requireGist set, a missing gist id or token fails the run instead of
// falling back to a dry run.
func runUpdate(cmd *cobra.Command, requireGist bool, extra ...config.LoadOption) error {
	start := time.Now()
	ctx := context.Background()
	logger := newLogger(cmd)

	dump, _ := cmd.Flags().GetString("dump")
	if dump != "" && dump != usecase.DumpJSON && dump != usecase.DumpYAML {
		return fmt.Errorf("%w: --dump must be %s or %s, got %q", config.ErrInvalidConfig, usecase.DumpJSON, usecase.DumpYAML, dump)
	}

	cfg, err := loadConfig(ctx, cmd, extra...)
	if err != nil {
		return err
	}
	mode, err := cfg.Validate()
	if err != nil {
		return err
	}
	if requireGist {
		if err := cfg.RequireGist(); err != nil {
			return err
		}
	}

	recorder := metrics.NewRecorder()
	res, err := update(ctx, cfg, mode, logger)
	if res != nil {
		recorder.ObserveSnapshot(res.Snapshot)
	}
	recorder.ObserveRun(outcome(res), time.Since(start), time.Now(), err)
	if cfg.MetricsFile != "" {
		if werr := recorder.WriteTextfile(cfg.MetricsFile); werr != nil {
			logger.Printf("Warning: %v", werr)
		}
	}
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if dump != "" {
		if err := usecase.DumpSnapshot(out, res.Snapshot, mode, dump); err != nil {
			return err
		}
	} else {
		color.New(color.FgHiCyan, color.Bold).Fprintln(out, res.Title)
		fmt.Fprintln(out, res.Content)
	}
	report(cmd.ErrOrStderr(), cfg, res)

	logger.Printf("Finished in %s.", time.Since(start).Round(time.Millisecond))
	return nil
}

// update wires the gateways for cfg and runs the updater once.
func update(ctx context.Context, cfg *config.Config, mode domain.Mode, logger *log.Logger) (*usecase.Result, error) {
	fetcher, err := gateway.NewCodeStatsGateway(cfg.CodeStatsURL, nil, logger)
	if err != nil {
		return nil, err
	}

	// Inject dependencies and run the main business logic.
	var sink gateway.GistSink
	if !cfg.DryRun() {
		sink, err = gateway.NewGitHubGateway(cfg.GitHubToken, logger, gateway.WithSingleSleepLimit(cfg.RateLimitSleep))
		if err != nil {
			return nil, fmt.Errorf("failed to create GitHub gateway: %w", err)
		}
	}
	updater := usecase.NewUpdater(fetcher, sink, usecase.NewFormatter(cfg.FormatConfig()), logger)

	return updater.Run(ctx, usecase.Request{
		Username: cfg.Username,
		Mode:     mode,
		GistID:   cfg.GistID,
		Filename: cfg.GistFilename,
		Force:    cfg.Force,
	})
}

func outcome(res *usecase.Result) string {
	switch {
	case res == nil:
		return metrics.OutcomeFailed
	case res.DryRun:
		return metrics.OutcomeDryRun
	case res.Skipped:
		return metrics.OutcomeSkipped
	default:
		return metrics.OutcomeUpdated
	}
}

func report(w io.Writer, cfg *config.Config, res *usecase.Result) {
	switch {
	case res.DryRun:
		color.New(color.FgYellow).Fprintln(w, "Dry run: no gist id or GitHub token, gist not updated.")
	case res.Skipped:
		color.New(color.FgGreen).Fprintf(w, "Gist %s is already up to date.\n", cfg.GistID)
	default:
		color.New(color.FgGreen).Fprintf(w, "Updated gist %s (%s).\n", cfg.GistID, res.Filename)
	}
}
