package main

import (
	"context"
	"errors"
	"flag"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/alejandrodnm/tickreplay/config"
	"github.com/alejandrodnm/tickreplay/internal/adapters/csvfeed"
	"github.com/alejandrodnm/tickreplay/internal/adapters/notify"
	"github.com/alejandrodnm/tickreplay/internal/adapters/storage"
	"github.com/alejandrodnm/tickreplay/internal/application/backtest"
	"github.com/alejandrodnm/tickreplay/internal/application/engine"
	"github.com/alejandrodnm/tickreplay/internal/ports"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout))
}

// run devuelve el código de salida; los defers corren antes de os.Exit.
func run(args []string, stdout io.Writer) int {
	fs := flag.NewFlagSet("backtest", flag.ContinueOnError)
	configPath := fs.String("config", "config/config.yaml", "path to config file")
	verbose := fs.Bool("verbose", false, "set log level to debug")
	logFormat := fs.String("format", "", "log format: text|json (overrides config)")
	noStore := fs.Bool("no-store", false, "do not persist the run to SQLite")
	history := fs.Int("history", 0, "print the last N stored runs and exit")
	fills := fs.String("fills", "", "print the stored fills of a run id and exit")
	corrected := fs.Bool("corrected", false, "price closes at the best bid and rebuild the queue on the asks")
	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		return 2
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		return 1
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	if *corrected {
		cfg.Strategy.CorrectedSides = true
	}
	setupLogger(cfg.Log)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	reporter := notify.NewConsole(stdout, cfg.Data.PriceScale)

	if *history > 0 {
		if err := printHistory(ctx, cfg.Storage.DSN, *history, reporter); err != nil {
			slog.Error("history failed", "err", err, "dsn", cfg.Storage.DSN)
			return 1
		}
		return 0
	}
	if *fills != "" {
		if err := printFills(ctx, cfg.Storage.DSN, *fills, reporter); err != nil {
			slog.Error("fills failed", "err", err, "dsn", cfg.Storage.DSN, "run", *fills)
			return 1
		}
		return 0
	}

	slog.Info("tickreplay starting",
		"config", *configPath,
		"symbol", cfg.Data.Symbol,
		"ticks", cfg.Data.Ticks,
		"transactions", cfg.Data.Transactions,
		"workers", cfg.Engine.Workers,
		"store", !*noStore,
	)
	if cfg.Strategy.CorrectedSides {
		slog.Warn("corrected sides enabled: closes priced at best bid, queue rebuilt on asks")
	}

	eng, err := engine.New(cfg.Strategy.Domain(), engine.Options{Workers: cfg.Engine.Workers})
	if err != nil {
		slog.Error("invalid strategy", "err", err)
		return 1
	}

	// Un *SQLiteStorage nil dentro de la interfaz no sería nil: solo se asigna si existe.
	var store ports.RunStorage
	if !*noStore {
		db, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
		if err != nil {
			slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
			return 1
		}
		defer db.Close()
		store = db
	}

	data := csvfeed.NewLoader(cfg.Data.Ticks, cfg.Data.Transactions)
	runner := backtest.New(cfg.Data.Symbol, data, eng, reporter, store)

	result, err := runner.Run(ctx)
	if err != nil {
		slog.Error("backtest failed", "err", err)
		return 1
	}

	slog.Info("tickreplay finished", "run", result.ID, "opens", result.Result.OpenTimes)
	return 0
}

func printHistory(ctx context.Context, dsn string, limit int, reporter *notify.Console) error {
	db, err := storage.NewSQLiteStorage(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	reporter.PrintHistory(runs)
	return nil
}

func printFills(ctx context.Context, dsn, runID string, reporter *notify.Console) error {
	db, err := storage.NewSQLiteStorage(dsn)
	if err != nil {
		return err
	}
	defer db.Close()

	for _, kind := range []string{storage.KindOpen, storage.KindActive, storage.KindPassive} {
		orders, err := db.Fills(ctx, runID, kind)
		if err != nil {
			return err
		}
		reporter.PrintFills(runID, kind, orders)
	}
	return nil
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}
	slog.SetDefault(slog.New(handler))
}
