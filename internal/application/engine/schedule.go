package engine

import (
	"log/slog"

	"github.com/alejandrodnm/tickreplay/internal/domain"
)

type scheduleResult struct {
	pending domain.Position
	ok      bool
	diag    domain.Diagnostics
}

// scheduleCloses places one resting close order per open position, in
// parallel, and returns them sorted by timestamp.
func (e *Engine) scheduleCloses(ticks []domain.Tick, opens []domain.Position) ([]domain.Position, domain.Diagnostics) {
	priceBook, _ := e.cfg.CloseBooks()

	results := fanOut(opens, e.workers, func(open domain.Position) scheduleResult {
		return e.scheduleClose(ticks, open, priceBook)
	})

	pending := make([]domain.Position, 0, len(results))
	diags := make([]domain.Diagnostics, 0, len(results))
	for _, r := range results {
		if r.ok {
			pending = append(pending, r.pending)
		}
		diags = append(diags, r.diag)
	}
	sortPositions(pending)

	return pending, mergeDiagnostics(diags...)
}

// scheduleClose finds the first tick after open + LimitCloseElapsed and fixes
// the resting close there, priced at the best level of priceBook. If data
// ends first the position stays open.
func (e *Engine) scheduleClose(ticks []domain.Tick, open domain.Position, priceBook domain.BookSide) scheduleResult {
	deadline := open.Order.Timestamp + e.cfg.LimitCloseElapsed

	for idx := open.TickIndex; idx < len(ticks); idx++ {
		tick := ticks[idx]
		if tick.Timestamp <= deadline {
			continue
		}

		ladder := tick.Ladder(priceBook)
		if len(ladder) == 0 {
			e.warnf("engine: close skipped, reference ladder is empty",
				"opened", domain.ClockString(open.Order.Timestamp),
				"at", domain.ClockString(tick.Timestamp),
				"err", domain.ErrEmptyLadder,
			)
			return scheduleResult{diag: domain.Diagnostics{SkippedCloses: 1}}
		}

		price := ladder[0].Price
		if !tick.IsPriceValid(price, domain.Sell) {
			slog.Debug("engine: close price at lower limit",
				"at", domain.ClockString(tick.Timestamp),
				"price", price,
				"low_limited", tick.LowLimited,
			)
		}

		volume := open.Order.Volume
		return scheduleResult{
			pending: domain.Position{
				TickIndex: idx,
				Order: domain.Order{
					Timestamp: tick.Timestamp,
					Price:     price,
					Volume:    volume,
					Value:     price * volume,
				},
			},
			ok: true,
		}
	}

	slog.Debug("engine: no tick after close delay",
		"opened", domain.ClockString(open.Order.Timestamp),
	)
	return scheduleResult{diag: domain.Diagnostics{UnscheduledCloses: 1}}
}
