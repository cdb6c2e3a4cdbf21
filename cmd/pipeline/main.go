package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kjannette/market-etl/internal/config"
	"github.com/kjannette/market-etl/internal/dag"
	"github.com/kjannette/market-etl/internal/db"
	"github.com/kjannette/market-etl/internal/extract"
	"github.com/kjannette/market-etl/internal/loader"
	"github.com/kjannette/market-etl/internal/notifications"
	"github.com/kjannette/market-etl/internal/pipeline"
	"github.com/kjannette/market-etl/internal/scheduler"
)

const banner = `
╔══════════════════════════════════════╗
║       Market Data ETL Pipeline       ║
╚══════════════════════════════════════╝
`

func main() {
	os.Exit(run())
}

func run() int {
	once := flag.Bool("once", false, "run the pipeline once and exit")
	task := flag.String("task", "", "run one task (with its upstream tasks) and exit")
	migrate := flag.Bool("migrate", false, "create destination tables and exit")
	list := flag.Bool("list", false, "print tasks and their upstream dependencies and exit")
	check := flag.Bool("check", false, "verify database connectivity and exit")
	flag.Parse()

	fmt.Print(banner)

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load error: %v\n", err)
		return 1
	}

	logger, closeLog, err := newLogger(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "log setup error: %v\n", err)
		return 1
	}
	defer closeLog()

	if err := cfg.Validate(logger); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		return 1
	}
	logger.Info("configuration loaded", "config", cfg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	connector := db.NewConnector(cfg.DSN(), cfg.DBConnectTimeout)
	ex := extract.New(extract.Options{
		CryptoFile:    cfg.CryptoFile,
		ArticlesFile:  cfg.ArticlesFile,
		APITimeout:    cfg.APITimeout,
		ScrapeTimeout: cfg.ScrapeTimeout,
		HeadlineTag:   cfg.HeadlineTag,
		HeadlineClass: cfg.HeadlineClass,
	}, logger)
	warehouse := loader.NewWarehouse(loader.FromConnector(connector), logger)
	graph := pipeline.Build(cfg, pipeline.WarehouseDeps(ex, warehouse), logger)
	if err := graph.Validate(); err != nil {
		logger.Error("invalid pipeline graph", "error", err)
		return 1
	}

	runner := &dag.Runner{
		Parallelism: cfg.Parallelism,
		Retries:     cfg.Retries,
		RetryDelay:  cfg.RetryDelay,
		Logger:      logger,
	}
	notify := notifications.NewSender(cfg.WebhookURL, cfg.PipelineName, logger)

	switch {
	case *list:
		printGraph(os.Stdout, graph)
		return 0

	case *check:
		if err := db.TestConnection(ctx, connector, logger); err != nil {
			logger.Error("database check failed", "error", err)
			return 1
		}
		return 0

	case *migrate:
		if err := db.Migrate(ctx, connector, logger); err != nil {
			logger.Error("migration failed", "error", err)
			return 1
		}
		return 0

	case *task != "":
		run, err := runner.RunTask(ctx, graph, *task)
		if err != nil {
			logger.Error("task run failed", "task", *task, "error", err)
			return 1
		}
		return exitCode(run)

	case *once:
		run, err := runner.Run(ctx, graph)
		notify.NotifyRun(context.Background(), run, err)
		if err != nil {
			return 1
		}
		return exitCode(run)
	}

	sched := scheduler.New(func(ctx context.Context) (*dag.Run, error) {
		return runner.Run(ctx, graph)
	}, scheduler.Config{
		Schedule: cfg.Schedule,
		OnRunComplete: func(run *dag.Run, err error) {
			notify.NotifyRun(context.Background(), run, err)
		},
	}, logger)
	if err := sched.Start(ctx); err != nil {
		logger.Error("scheduler start failed", "error", err)
		return 1
	}

	<-ctx.Done()
	logger.Info("shutting down gracefully")
	sched.Stop()
	logger.Info("shutdown complete")
	return 0
}

func newLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	level, err := config.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, nil, err
	}

	var w io.Writer = os.Stderr
	closeFn := func() {}
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, nil, fmt.Errorf("open log file: %w", err)
		}
		w = io.MultiWriter(os.Stderr, f)
		closeFn = func() { f.Close() }
	}

	opts := &slog.HandlerOptions{Level: level}
	var h slog.Handler
	if strings.EqualFold(cfg.LogFormat, "json") {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h).With("pipeline", cfg.PipelineName), closeFn, nil
}

func printGraph(w io.Writer, g *dag.Graph) {
	order, _ := g.Order()
	fmt.Fprintf(w, "%s (%d tasks)\n", g.Name, len(order))
	for _, id := range order {
		if up := g.Upstream(id); len(up) > 0 {
			fmt.Fprintf(w, "  %-28s <- %s\n", id, strings.Join(up, ", "))
		} else {
			fmt.Fprintf(w, "  %s\n", id)
		}
	}
}

func exitCode(run *dag.Run) int {
	fmt.Println(run.Summary())
	if run.Succeeded() {
		return 0
	}
	return 2
}
