package engine

import (
	"fmt"

	"github.com/alejandrodnm/tickreplay/internal/domain"
)

// openPositions scans ticks once, in order, and opens a position with a
// market buy on every tick that fires the trigger. A rejected market order
// (outside the session, or no ask depth at all) leaves the cooldown untouched
// so a later tick can still open.
func (e *Engine) openPositions(ticks []domain.Tick) ([]domain.Position, domain.Diagnostics) {
	var (
		opens     []domain.Position
		diag      domain.Diagnostics
		lastOpen  int64
		hasOpened bool
	)

	for i, tick := range ticks {
		if hasOpened && tick.Timestamp-lastOpen <= e.cfg.OpenMinInterval {
			continue
		}
		if !e.openTrigger(ticks, i) {
			continue
		}

		fill, err := tick.MarketOrder(e.cfg.OpenVolume, domain.Buy)
		if err == nil && fill.Filled == 0 {
			err = fmt.Errorf("engine.openPositions at %s: %w", domain.ClockString(tick.Timestamp), domain.ErrEmptyLadder)
		}
		if err != nil {
			diag.RejectedOpens++
			e.warnf("engine: open rejected",
				"at", domain.ClockString(tick.Timestamp),
				"volume", e.cfg.OpenVolume,
				"err", err,
			)
			continue
		}
		if fill.Partial {
			diag.PartialFills++
			e.warnf("engine: open exhausted ask depth",
				"at", domain.ClockString(tick.Timestamp),
				"requested", e.cfg.OpenVolume,
				"filled", fill.Filled,
			)
		}

		opens = append(opens, domain.Position{
			TickIndex: i,
			Order: domain.Order{
				Timestamp: tick.Timestamp,
				Price:     fill.AvgPrice,
				Volume:    e.cfg.OpenVolume,
				Value:     fill.Value,
			},
		})
		lastOpen = tick.Timestamp
		hasOpened = true
	}

	return opens, diag
}

// openTrigger reports whether ticks[i] is in session and some earlier tick
// within RiseDuration printed at or above NewPrice × (1 + RiseThreshold).
// The backward scan stops at the first tick older than the window.
func (e *Engine) openTrigger(ticks []domain.Tick, i int) bool {
	tick := ticks[i]
	if !tick.InTradingTime() {
		return false
	}

	expect := float64(tick.NewPrice) * (1 + e.cfg.RiseThreshold)
	for j := i - 1; j >= 0; j-- {
		if tick.Elapsed(ticks[j]) > e.cfg.RiseDuration {
			break
		}
		if float64(ticks[j].NewPrice) >= expect {
			return true
		}
	}
	return false
}
