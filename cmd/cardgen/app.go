package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/phrazzld/scry-cardgen/internal/api"
	"github.com/phrazzld/scry-cardgen/internal/backoff"
	"github.com/phrazzld/scry-cardgen/internal/config"
	"github.com/phrazzld/scry-cardgen/internal/dispatch"
	"github.com/phrazzld/scry-cardgen/internal/domain"
	"github.com/phrazzld/scry-cardgen/internal/generation"
	"github.com/phrazzld/scry-cardgen/internal/platform/filestore"
	"github.com/phrazzld/scry-cardgen/internal/platform/gemini"
	"github.com/phrazzld/scry-cardgen/internal/platform/logger"
	"github.com/phrazzld/scry-cardgen/internal/platform/postgres"
	"github.com/phrazzld/scry-cardgen/internal/platform/telemetry"
	"github.com/phrazzld/scry-cardgen/internal/redact"
	"github.com/phrazzld/scry-cardgen/internal/report"
	"github.com/spf13/afero"
	"github.com/spf13/pflag"
)

// deps are the collaborators run builds on; tests replace them.
type deps struct {
	fs           afero.Fs
	dotEnv       []string
	newGenerator func(ctx context.Context, logger *slog.Logger, fsys afero.Fs, cfg config.LLMConfig) (generation.Generator, error)
}

func defaultDeps() deps {
	return deps{
		fs: afero.NewOsFs(),
		newGenerator: func(ctx context.Context, logger *slog.Logger, fsys afero.Fs, cfg config.LLMConfig) (generation.Generator, error) {
			return gemini.NewGenerator(ctx, logger, fsys, cfg)
		},
	}
}

// application holds the dependencies of one run and releases them in cleanup.
type application struct {
	cfg      *config.Config
	deps     deps
	logger   *slog.Logger
	runID    uuid.UUID
	console  *report.Console
	progress *report.Progress
	closers  []func() error
}

// run executes the command with args and returns the process exit code.
func run(ctx context.Context, args []string, stdout, stderr io.Writer, d deps) int {
	flags := pflag.NewFlagSet("cardgen", pflag.ContinueOnError)
	flags.SetOutput(stderr)
	config.RegisterFlags(flags)
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return exitOK
		}
		return exitSetup
	}

	if err := config.LoadDotEnv(d.dotEnv...); err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", redact.Error(err))
		return exitSetup
	}

	cfg, err := config.Load(flags)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", redact.Error(err))
		return exitSetup
	}

	log, err := logger.Setup(logger.LoggerConfig{
		Level:  cfg.Server.LogLevel,
		Format: cfg.Server.LogFormat,
		Output: stderr,
	})
	if err != nil {
		fmt.Fprintf(stderr, "Error: %s\n", err)
		return exitSetup
	}

	runID := uuid.New()
	app := &application{
		cfg:      cfg,
		deps:     d,
		logger:   log.With(slog.String("run_id", runID.String())),
		runID:    runID,
		console:  report.NewConsole(stdout),
		progress: report.NewProgress(runID.String()),
	}
	defer app.cleanup()

	return app.execute(ctx)
}

func (app *application) execute(ctx context.Context) int {
	cfg := app.cfg
	app.logger.Info("configuration loaded",
		slog.Any("llm", cfg.LLM),
		slog.Int("workers", cfg.Run.Workers),
		slog.Int("requests_per_minute", cfg.Run.RequestsPerMinute),
		slog.String("output_backend", cfg.Output.Backend))

	app.console.PrintBanner(report.Banner{
		Endpoint:          cfg.LLM.BaseURL,
		Model:             cfg.LLM.ModelName,
		Workers:           cfg.Run.Workers,
		RequestsPerMinute: cfg.Run.RequestsPerMinute,
		SkipProcessed:     cfg.Run.SkipProcessed,
		Input:             cfg.Input.Path,
		Output:            app.outputLabel(),
	})

	words, err := dispatch.LoadIdentifiers(app.deps.fs, cfg.Input.Path)
	if err != nil {
		return app.fail("failed to read input", err)
	}

	gen, err := app.deps.newGenerator(ctx, app.logger, app.deps.fs, cfg.LLM)
	if err != nil {
		return app.fail("failed to create generator", err)
	}
	gen, err = telemetry.InstrumentGenerator(gen)
	if err != nil {
		app.logger.Warn("generation metrics partly disabled", slog.String("error", err.Error()))
	}

	sink, err := app.openSink(ctx)
	if err != nil {
		return app.fail("failed to open output", err)
	}

	strategy, err := backoff.New(cfg.Run.BackoffStrategy, cfg.Run.BackoffBase, cfg.Run.BackoffMax)
	if err != nil {
		return app.fail("invalid backoff", err)
	}

	dispatcher, err := dispatch.New(dispatch.RunConfig{
		Workers:           cfg.Run.Workers,
		RequestsPerMinute: cfg.Run.RequestsPerMinute,
		MaxAttempts:       cfg.Run.MaxAttempts,
		BackoffBase:       cfg.Run.BackoffBase,
		Backoff:           strategy,
		SkipProcessed:     cfg.Run.SkipProcessed,
		Model:             cfg.LLM.ModelName,
	}, gen, sink,
		dispatch.WithObserver(report.NewMulti(app.console, app.progress)),
		dispatch.WithLogger(app.logger))
	if err != nil {
		return app.fail("invalid run configuration", err)
	}

	stopStatus := app.startStatusServer(ctx)
	summary, runErr := dispatcher.Run(ctx, words)
	stopStatus()

	if runErr != nil {
		app.logger.Warn("run interrupted", slog.String("error", runErr.Error()))
	}

	app.console.PrintSummary(summary)
	app.writeFailedList(summary)

	if summary.Count(domain.OutcomeFailed) > 0 {
		return exitFailures
	}
	return exitOK
}

// openSink builds the configured artifact sink.
func (app *application) openSink(ctx context.Context) (dispatch.Sink, error) {
	out := app.cfg.Output
	switch out.Backend {
	case config.BackendPostgres:
		db, err := postgres.Open(ctx, out.DatabaseURL, app.cfg.Run.Workers+1)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, db.Close)
		if err := postgres.Migrate(ctx, db, app.logger); err != nil {
			return nil, err
		}
		return postgres.NewCardStore(db, app.logger, app.runID, app.cfg.LLM.ModelName), nil
	default:
		if err := app.deps.fs.MkdirAll(out.Dir, 0o755); err != nil {
			return nil, fmt.Errorf("%w: create output directory %s: %w", dispatch.ErrWrite, out.Dir, err)
		}
		return filestore.New(app.deps.fs, out.Dir, out.Extension, app.logger), nil
	}
}

func (app *application) outputLabel() string {
	if app.cfg.Output.Backend == config.BackendPostgres {
		return "postgres " + app.cfg.Output.DatabaseURL
	}
	return app.cfg.Output.Dir
}

// startStatusServer serves the status API when an address is configured and
// returns a function that stops it and waits for shutdown.
func (app *application) startStatusServer(ctx context.Context) func() {
	addr := app.cfg.Server.StatusAddr
	if addr == "" {
		return func() {}
	}

	ctx, cancel := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := api.Serve(ctx, addr, api.NewRouter(app.progress, app.logger), app.logger); err != nil {
			app.logger.Error("status server failed", slog.String("error", err.Error()))
		}
	}()

	return func() {
		cancel()
		wg.Wait()
	}
}

// writeFailedList writes the failed words, one per line, so the file can be
// fed back as input. Errors are logged; the run result stands.
func (app *application) writeFailedList(summary *domain.Summary) {
	path := app.cfg.Output.FailedPath
	if path == "" {
		return
	}
	failed := summary.Failed()
	if err := filestore.WriteLines(app.deps.fs, path, failed); err != nil {
		app.logger.Error("failed to write failed list",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return
	}
	app.logger.Info("failed list written", slog.String("path", path), slog.Int("count", len(failed)))
}

func (app *application) fail(msg string, err error) int {
	app.logger.Error(msg, slog.String("error", redact.Error(err)))
	app.console.Printf("Error: %s: %s\n", msg, redact.Error(err))
	return exitSetup
}

// cleanup releases resources in reverse order of acquisition.
func (app *application) cleanup() {
	for i := len(app.closers) - 1; i >= 0; i-- {
		if err := app.closers[i](); err != nil {
			app.logger.Error("cleanup failed", slog.String("error", err.Error()))
		}
	}
}
