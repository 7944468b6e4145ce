package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"time"

	"github.com/alejandrodnm/tickreplay/internal/domain"
	"golang.org/x/time/rate"
)

// ErrInvalidConfig se devuelve cuando la configuración de la estrategia no
// permite simular (p. ej. open_volume = 0).
var ErrInvalidConfig = errors.New("invalid strategy config")

// Options controla la ejecución, no el modelo financiero.
type Options struct {
	Workers int // tamaño del pool (0 = runtime.NumCPU())
}

// Engine replays one instrument-day of ticks and trades against the strategy.
// It holds no state between runs; the same Engine can be reused.
type Engine struct {
	cfg     domain.StrategyConfig
	workers int

	// warn throttles per-order warnings; the counters in Diagnostics are exact.
	warn *rate.Sometimes
}

// New valida cfg y crea un Engine.
func New(cfg domain.StrategyConfig, opts Options) (*Engine, error) {
	if err := validate(cfg); err != nil {
		return nil, err
	}
	if opts.Workers <= 0 {
		opts.Workers = runtime.NumCPU()
	}
	return &Engine{
		cfg:     cfg,
		workers: opts.Workers,
		warn:    &rate.Sometimes{First: 10, Interval: 5 * time.Second},
	}, nil
}

// Run executes the whole pipeline: trigger scan and market opens, close
// scheduling, passive/active close execution and aggregation. ticks and txs
// must be sorted by timestamp and are never modified.
func (e *Engine) Run(ticks []domain.Tick, txs []domain.Transaction) domain.BacktestRun {
	start := time.Now()

	opens, diag := e.openPositions(ticks)
	pending, schedDiag := e.scheduleCloses(ticks, opens)
	active, passive, closeDiag := e.closeAll(ticks, txs, pending)

	diag = mergeDiagnostics(diag, schedDiag, closeDiag)
	result := domain.NewStrategyResult(opens, active, passive, time.Since(start))

	slog.Info("engine: run complete",
		"ticks", len(ticks),
		"transactions", len(txs),
		"opens", result.OpenTimes,
		"pending", len(pending),
		"active", result.CloseActiveTimes,
		"passive", result.ClosePassiveTimes,
		"rejected", diag.RejectedOpens+diag.RejectedCloses,
		"unfilled", diag.UnfilledVolume,
		"elapsed", result.Elapsed,
	)

	return domain.BacktestRun{
		Config:      e.cfg,
		Opens:       opens,
		Pending:     pending,
		Active:      active,
		Passive:     passive,
		Result:      result,
		Diagnostics: diag,
	}
}

// warnf logs a recoverable per-order failure, throttled.
func (e *Engine) warnf(msg string, args ...any) {
	e.warn.Do(func() { slog.Warn(msg, args...) })
}

func validate(cfg domain.StrategyConfig) error {
	switch {
	case cfg.OpenVolume <= 0:
		return fmt.Errorf("engine.New: open volume %d: %w", cfg.OpenVolume, ErrInvalidConfig)
	case cfg.RiseDuration < 0, cfg.OpenMinInterval < 0, cfg.LimitCloseElapsed < 0, cfg.CloseWaitingElapsed < 0:
		return fmt.Errorf("engine.New: negative duration: %w", ErrInvalidConfig)
	case cfg.RiseThreshold < 0:
		return fmt.Errorf("engine.New: rise threshold %.4f: %w", cfg.RiseThreshold, ErrInvalidConfig)
	case cfg.ActiveFeeRatio < 0 || cfg.ActiveFeeRatio >= 1, cfg.PassiveFeeRatio < 0 || cfg.PassiveFeeRatio >= 1:
		return fmt.Errorf("engine.New: fee ratio out of [0, 1): %w", ErrInvalidConfig)
	}
	return nil
}

func mergeDiagnostics(ds ...domain.Diagnostics) domain.Diagnostics {
	var out domain.Diagnostics
	for _, d := range ds {
		out.RejectedOpens += d.RejectedOpens
		out.RejectedCloses += d.RejectedCloses
		out.SkippedCloses += d.SkippedCloses
		out.UnscheduledCloses += d.UnscheduledCloses
		out.PartialFills += d.PartialFills
		out.UnfilledVolume += d.UnfilledVolume
	}
	return out
}
