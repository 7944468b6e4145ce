package engine

import (
	"fmt"

	"github.com/alejandrodnm/tickreplay/internal/domain"
)

type closeResult struct {
	active  []domain.Order
	passive []domain.Order
	diag    domain.Diagnostics
}

// closeAll simulates every pending close in parallel and merges the fills,
// sorted by timestamp.
func (e *Engine) closeAll(
	ticks []domain.Tick,
	txs []domain.Transaction,
	pending []domain.Position,
) (active, passive []domain.Order, diag domain.Diagnostics) {
	_, queueBook := e.cfg.CloseBooks()

	results := fanOut(pending, e.workers, func(p domain.Position) closeResult {
		return e.closePosition(ticks, txs, p, queueBook)
	})

	diags := make([]domain.Diagnostics, 0, len(results))
	for _, r := range results {
		active = append(active, r.active...)
		passive = append(passive, r.passive...)
		diags = append(diags, r.diag)
	}
	sortOrders(active)
	sortOrders(passive)

	return active, passive, mergeDiagnostics(diags...)
}

// closePosition walks (tick, next) pairs from the pending order's reference
// tick. Past CloseWaitingElapsed the whole remainder goes out as a single
// market sell. Before that, every opposite-side trade printed between tick
// and next may fill part of the resting order. When data runs out the
// remainder is left unfilled.
func (e *Engine) closePosition(
	ticks []domain.Tick,
	txs []domain.Transaction,
	pending domain.Position,
	queueBook domain.BookSide,
) closeResult {
	var res closeResult

	remaining := pending.Order.Volume
	deadline := pending.Order.Timestamp + e.cfg.CloseWaitingElapsed
	resting := domain.RestingOrder{
		Price: pending.Order.Price,
		Side:  domain.Sell,
		Book:  queueBook,
	}

	for idx := pending.TickIndex; remaining > 0 && idx < len(ticks); idx++ {
		tick := ticks[idx]

		if tick.Timestamp > deadline {
			if order, ok := e.forceClose(tick, remaining, &res.diag); ok {
				res.active = append(res.active, order)
				return res
			}
			// Rechazada (fuera de sesión o sin bids): se sigue intentando en pasivo.
		}

		if idx+1 >= len(ticks) {
			break
		}
		next := ticks[idx+1]

		for _, tx := range domain.TransactionsBetween(txs, tick.Timestamp, next.Timestamp) {
			if remaining == 0 {
				break
			}
			// Un par de ticks puede cruzar el mediodía o el cierre: los trades
			// impresos fuera de sesión no llenan.
			if !domain.InTradingTime(tx.Timestamp) {
				continue
			}
			resting.Volume = remaining
			rest := tick.RestingRemaining(resting, tx)
			if rest >= remaining {
				continue
			}

			filled := remaining - rest
			res.passive = append(res.passive, domain.Order{
				Timestamp: tx.Timestamp,
				Price:     resting.Price,
				Volume:    filled,
				Value:     domain.ApplyFee(resting.Price*filled, e.cfg.PassiveFeeRatio),
			})
			remaining = rest
		}
	}

	res.diag.UnfilledVolume = remaining
	return res
}

// forceClose sells volume at market against tick. ok=false if the exchange
// was closed at tick time or the bid ladder had no depth at all.
func (e *Engine) forceClose(tick domain.Tick, volume domain.Volume, diag *domain.Diagnostics) (domain.Order, bool) {
	fill, err := tick.MarketOrder(volume, domain.Sell)
	if err == nil && fill.Filled == 0 {
		err = fmt.Errorf("engine.forceClose at %s: %w", domain.ClockString(tick.Timestamp), domain.ErrEmptyLadder)
	}
	if err != nil {
		diag.RejectedCloses++
		e.warnf("engine: forced close rejected",
			"at", domain.ClockString(tick.Timestamp),
			"volume", volume,
			"err", err,
		)
		return domain.Order{}, false
	}
	if fill.Partial {
		diag.PartialFills++
		e.warnf("engine: forced close exhausted bid depth",
			"at", domain.ClockString(tick.Timestamp),
			"requested", volume,
			"filled", fill.Filled,
		)
	}

	return domain.Order{
		Timestamp: tick.Timestamp,
		Price:     fill.AvgPrice,
		Volume:    volume,
		Value:     domain.ApplyFee(fill.Value, e.cfg.ActiveFeeRatio),
	}, true
}
