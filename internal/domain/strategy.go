package domain

import (
	"math"
	"time"
)

// StrategyConfig son los umbrales de la estrategia ya convertidos a
// milisegundos y fracciones. Se construye una vez por ejecución.
type StrategyConfig struct {
	RiseDuration        int64   // ventana de subida hacia atrás, ms
	RiseThreshold       float64 // subida fraccional que dispara la apertura
	OpenVolume          Volume  // acciones por posición
	OpenMinInterval     int64   // cooldown entre aperturas, ms
	LimitCloseElapsed   int64   // espera antes de colocar el cierre límite, ms
	CloseWaitingElapsed int64   // plazo antes de forzar el cierre a mercado, ms
	ActiveFeeRatio      float64 // comisión fraccional del cierre a mercado
	PassiveFeeRatio     float64 // comisión fraccional del cierre pasivo

	// CorrectedSides valora el cierre al mejor bid y reconstruye la cola en
	// los asks. Por defecto se usa el comportamiento histórico (ask / bids).
	CorrectedSides bool
}

// CloseBooks devuelve de qué escalera sale el precio del cierre límite y en
// cuál se reconstruye su cola.
func (c StrategyConfig) CloseBooks() (priceBook, queueBook BookSide) {
	if c.CorrectedSides {
		return BidBook, AskBook
	}
	return AskBook, BidBook
}

// Order es un fill creado por el engine. No se modifica tras crearse.
type Order struct {
	Timestamp int64
	Price     Price // precio del fill (medio, en órdenes de mercado)
	Volume    Volume
	Value     Value // nocional, neto de comisión donde aplique
}

// Position es una orden anclada al índice del tick que la originó.
type Position struct {
	TickIndex int
	Order     Order
}

// ApplyFee descuenta ratio del nocional, truncando.
func ApplyFee(value Value, ratio float64) Value {
	return Value(float64(value) * (1 - ratio))
}

// StrategyResult agrega las aperturas y los cierres de una ejecución.
type StrategyResult struct {
	OpenTimes         int
	OpenValue         Value
	CloseActiveTimes  int
	CloseActiveValue  Value
	ClosePassiveTimes int
	ClosePassiveValue Value
	YieldRate         float64 // NaN si no hubo aperturas
	Elapsed           time.Duration
}

// NewStrategyResult suma conteos y nocionales y calcula el yield rate:
// (pasivo + activo - apertura) / apertura. Sin aperturas el yield es NaN.
func NewStrategyResult(opens []Position, active, passive []Order, elapsed time.Duration) StrategyResult {
	r := StrategyResult{
		OpenTimes:         len(opens),
		CloseActiveTimes:  len(active),
		ClosePassiveTimes: len(passive),
		Elapsed:           elapsed,
	}
	for _, p := range opens {
		r.OpenValue += p.Order.Value
	}
	r.CloseActiveValue = sumValue(active)
	r.ClosePassiveValue = sumValue(passive)

	if r.OpenValue == 0 {
		r.YieldRate = math.NaN()
	} else {
		closed := float64(r.CloseActiveValue + r.ClosePassiveValue)
		r.YieldRate = (closed - float64(r.OpenValue)) / float64(r.OpenValue)
	}
	return r
}

// HasYield indica si el yield rate está definido.
func (r StrategyResult) HasYield() bool {
	return !math.IsNaN(r.YieldRate)
}

func sumValue(orders []Order) Value {
	var total Value
	for _, o := range orders {
		total += o.Value
	}
	return total
}
