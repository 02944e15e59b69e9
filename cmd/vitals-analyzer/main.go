package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/ritzau/vitals-analyzer/pkg/config"
	"github.com/ritzau/vitals-analyzer/pkg/input"
	"github.com/ritzau/vitals-analyzer/pkg/logging"
	"github.com/ritzau/vitals-analyzer/pkg/output"
	"github.com/ritzau/vitals-analyzer/pkg/pipeline"
	"github.com/ritzau/vitals-analyzer/pkg/watcher"
	"github.com/ritzau/vitals-analyzer/pkg/web"
	"github.com/spf13/pflag"
)

func main() {
	flags := pflag.NewFlagSet("vitals-analyzer", pflag.ExitOnError)
	configPath := flags.String("config", config.DefaultFile, "Path to an optional TOML config file")
	flags.String("findings", "findings", "Agent findings file or directory (JSON or YAML)")
	flags.String("metrics", "", "Metric values file, e.g. {\"LCP\": 4200, \"CLS\": 0.18}")
	flags.String("format", "markdown", "Report format: markdown, console, json or suggestions")
	flags.StringP("output", "o", "", "Write the report to this file instead of stdout")
	flags.Bool("skip-dedup", false, "Correlate findings without merging duplicates")
	flags.Int("max-path-expansions", 100000, "Node expansion budget for each critical path search")
	flags.Bool("watch", false, "Re-run whenever findings or metrics change")
	flags.Bool("web", false, "Serve results over HTTP instead of exiting")
	flags.Int("port", 8080, "Port for the web server (only used with --web)")
	flags.String("verbosity", "", "Log level: trace, debug, info, warn or error")
	flags.CountP("verbose", "v", "Increase log verbosity (-v debug, -vv trace)")
	flags.Bool("json-logs", false, "Emit logs as JSON")
	_ = flags.Parse(os.Args[1:])

	cfg, err := config.LoadFile(*configPath, flags)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	setupLogging(cfg)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil && !errors.Is(err, context.Canceled) {
		logging.Fatal("analysis failed", "error", err)
	}
}

func setupLogging(cfg *config.Config) {
	level := logging.LevelFromVerbosity(cfg.VerboseCnt)
	if cfg.Verbosity != "" {
		level = logging.ParseLevel(cfg.Verbosity)
	}
	if cfg.JSONLogs {
		logging.SetJSONOutput(level)
	} else {
		logging.SetLevel(level)
	}
}

func run(ctx context.Context, cfg *config.Config) error {
	opts := pipeline.Options{
		SkipDedup:         cfg.SkipDedup,
		MaxPathExpansions: cfg.MaxPathExpansions,
		Reason:            "initial analysis",
	}
	runner := pipeline.NewRunner(input.NewFileSource(cfg.Findings, cfg.Metrics), opts)

	if cfg.WebMode {
		return serve(ctx, cfg, runner, opts)
	}

	res, err := runner.Run(ctx, "")
	if err != nil {
		return err
	}
	if err := emit(cfg, res); err != nil {
		return err
	}
	if !cfg.Watch {
		return nil
	}

	return watcher.Watch(ctx, cfg.Findings, cfg.Metrics, func(ctx context.Context, change *watcher.ChangeAnalysis) {
		res, err := runner.Run(ctx, change.Reason())
		if err != nil {
			logging.Error("re-analysis failed", "error", err)
			return
		}
		if err := emit(cfg, res); err != nil {
			logging.Error("writing report failed", "error", err)
		}
	})
}

// serve starts the HTTP API. The initial run is best effort so the server
// can also be used purely through POST /api/correlate.
func serve(ctx context.Context, cfg *config.Config, runner *pipeline.Runner, opts pipeline.Options) error {
	server := web.NewServer(opts)

	if _, err := os.Stat(cfg.Findings); err == nil {
		res, err := runner.Run(ctx, "")
		if err != nil {
			logging.Warn("initial analysis failed", "error", err)
		} else {
			server.SetResult(res)
		}
	} else {
		logging.Info("no findings on disk, waiting for POST /api/correlate", "path", cfg.Findings)
	}

	if cfg.Watch {
		go func() {
			err := watcher.Watch(ctx, cfg.Findings, cfg.Metrics, func(ctx context.Context, change *watcher.ChangeAnalysis) {
				res, err := runner.Run(ctx, change.Reason())
				if err != nil {
					logging.Error("re-analysis failed", "error", err)
					return
				}
				server.SetResult(res)
			})
			if err != nil && !errors.Is(err, context.Canceled) {
				logging.Error("watcher stopped", "error", err)
			}
		}()
	}

	return server.Start(ctx, cfg.Port)
}

// emit writes the report to stdout or to cfg.Output
func emit(cfg *config.Config, res *pipeline.Result) error {
	var w io.Writer = os.Stdout
	if cfg.Output != "" {
		f, err := os.Create(cfg.Output)
		if err != nil {
			return fmt.Errorf("creating report file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if err := output.Write(w, cfg.Format, res); err != nil {
		return fmt.Errorf("writing %s report: %w", cfg.Format, err)
	}
	if cfg.Output != "" {
		logging.Info("report written", "path", cfg.Output, "format", cfg.Format)
	}
	return nil
}
