package backtest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/tickreplay/internal/application/engine"
	"github.com/alejandrodnm/tickreplay/internal/domain"
	"github.com/alejandrodnm/tickreplay/internal/ports"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Runner orquesta una ejecución: carga de datos → engine → reporte → persistencia.
type Runner struct {
	symbol   string
	data     ports.MarketData
	engine   *engine.Engine
	reporter ports.Reporter
	storage  ports.RunStorage // nil = no persistir
}

// New crea un Runner con todas las dependencias inyectadas.
func New(
	symbol string,
	data ports.MarketData,
	eng *engine.Engine,
	reporter ports.Reporter,
	storage ports.RunStorage,
) *Runner {
	return &Runner{
		symbol:   symbol,
		data:     data,
		engine:   eng,
		reporter: reporter,
		storage:  storage,
	}
}

// Run ejecuta una simulación completa. Los fallos del reporter o del storage
// se loguean y no invalidan el resultado.
func (r *Runner) Run(ctx context.Context) (domain.BacktestRun, error) {
	ticks, txs, err := r.load(ctx)
	if err != nil {
		return domain.BacktestRun{}, err
	}

	run := r.engine.Run(ticks, txs)
	run.ID = uuid.NewString()
	run.Symbol = r.symbol
	run.CreatedAt = time.Now()

	if err := r.reporter.Report(ctx, run); err != nil {
		slog.Warn("reporter error", "err", err)
	}

	if r.storage != nil {
		if _, err := r.storage.SaveRun(ctx, run); err != nil {
			slog.Warn("storage error", "err", err, "run", run.ID)
		} else {
			slog.Debug("run stored", "run", run.ID)
		}
	}
	return run, nil
}

// load lee ticks y trades en paralelo.
func (r *Runner) load(ctx context.Context) ([]domain.Tick, []domain.Transaction, error) {
	start := time.Now()

	var (
		ticks []domain.Tick
		txs   []domain.Transaction
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ticks, err = r.data.LoadTicks(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		txs, err = r.data.LoadTransactions(gctx)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, nil, fmt.Errorf("backtest.load: %w", err)
	}

	slog.Info("load data used",
		"elapsed", time.Since(start).Round(time.Millisecond),
		"ticks", len(ticks),
		"transactions", len(txs),
	)
	return ticks, txs, nil
}
