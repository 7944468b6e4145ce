package domain

import (
	"fmt"
	"slices"
)

// Sesiones de negociación en milisegundos desde medianoche (extremos incluidos).
const (
	MorningOpen    int64 = 34_200_000 // 09:30:00.000
	MorningClose   int64 = 41_400_000 // 11:30:00.000
	AfternoonOpen  int64 = 46_800_000 // 13:00:00.000
	AfternoonClose int64 = 54_000_000 // 15:00:00.000
)

// InTradingTime indica si ts cae dentro de alguna de las dos sesiones.
func InTradingTime(ts int64) bool {
	return (ts >= MorningOpen && ts <= MorningClose) ||
		(ts >= AfternoonOpen && ts <= AfternoonClose)
}

// Tick es un snapshot del libro en un instante. Inmutable una vez construido.
type Tick struct {
	Timestamp   int64 // ms desde medianoche
	NewPrice    Price // último precio negociado
	HighLimited Price
	LowLimited  Price
	Asks        Ladder // ascendente
	Bids        Ladder // descendente
}

// Elapsed devuelve los ms transcurridos desde other hasta t.
func (t Tick) Elapsed(other Tick) int64 {
	return t.Timestamp - other.Timestamp
}

// InTradingTime indica si el tick cae dentro de sesión.
func (t Tick) InTradingTime() bool {
	return InTradingTime(t.Timestamp)
}

// BestAsk devuelve el mejor precio de venta. ok=false si no hay asks.
func (t Tick) BestAsk() (Price, bool) {
	if len(t.Asks) == 0 {
		return 0, false
	}
	return t.Asks[0].Price, true
}

// BestBid devuelve el mejor precio de compra. ok=false si no hay bids.
func (t Tick) BestBid() (Price, bool) {
	if len(t.Bids) == 0 {
		return 0, false
	}
	return t.Bids[0].Price, true
}

// IsPriceValid comprueba price contra los límites diarios de precio.
func (t Tick) IsPriceValid(price Price, side Side) bool {
	if side == Buy {
		return price < t.HighLimited
	}
	return price > t.LowLimited
}

// Ladder devuelve la escalera pedida del tick.
func (t Tick) Ladder(book BookSide) Ladder {
	if book == AskBook {
		return t.Asks
	}
	return t.Bids
}

// MarketFill es el resultado de cruzar una orden de mercado contra el libro.
type MarketFill struct {
	AvgPrice Price  // Value / volumen pedido (división entera)
	Value    Value  // nocional acumulado sobre los niveles consumidos
	Filled   Volume // volumen realmente cubierto por la profundidad
	Partial  bool   // la escalera se agotó antes de cubrir el volumen
}

// MarketOrder simula una orden de mercado de volume contra la escalera
// contraria: Buy consume asks, Sell consume bids.
//
// Si la escalera se agota, AvgPrice sigue calculándose sobre el volumen pedido
// y Partial queda a true. volume <= 0 es una violación de contrato y hace panic.
func (t Tick) MarketOrder(volume Volume, side Side) (MarketFill, error) {
	if volume <= 0 {
		panic("domain: volume of market order should not be zero")
	}
	if !t.InTradingTime() {
		return MarketFill{}, fmt.Errorf("domain.MarketOrder at %s: %w",
			ClockString(t.Timestamp), ErrOutsideTradingHours)
	}

	var ladder Ladder
	switch side {
	case Buy:
		ladder = t.Asks
	case Sell:
		ladder = t.Bids
	default:
		panic(fmt.Sprintf("domain: invalid market order side %d", side))
	}

	var value Value
	left := volume
	for _, lv := range ladder {
		if lv.Volume >= left {
			value += lv.Price * left
			left = 0
			break
		}
		left -= lv.Volume
		value += lv.Price * lv.Volume
	}

	return MarketFill{
		AvgPrice: value / volume,
		Value:    value,
		Filled:   volume - left,
		Partial:  left > 0,
	}, nil
}

// RestingOrder es una orden límite en reposo que queremos reconstruir
// contra el tape.
type RestingOrder struct {
	Price  Price
	Volume Volume
	Side   Side     // lado de nuestra orden
	Book   BookSide // escalera del tick donde se inserta para estimar la cola
}

// RestingRemaining reconstruye la cola con nuestra orden insertada en la
// escalera o.Book del tick, aplica tx sobre ella y devuelve cuánto de
// nuestro volumen sigue sin llenar.
//
// Un trade del mismo lado que nuestra orden no puede cruzar con ella.
// Si ya había profundidad a nuestro precio, el nivel se reparte pro rata:
// restante = o.Volume × después / antes (división entera). Si el nivel es
// nuevo, todo él es nuestro.
func (t Tick) RestingRemaining(o RestingOrder, tx Transaction) Volume {
	if o.Volume <= 0 {
		panic("domain: volume of limit order should not be zero")
	}
	if tx.Direction == o.Side {
		return o.Volume
	}

	ladder := t.Ladder(o.Book).Clone()
	idx, found := ladder.search(o.Price, o.Book == AskBook)
	if found {
		ladder[idx].Volume += o.Volume
		before := ladder[idx].Volume
		tx.Consume(ladder)
		return ladder[idx].Volume * o.Volume / before
	}

	ladder = slices.Insert(ladder, idx, Level{Price: o.Price, Volume: o.Volume})
	tx.Consume(ladder)
	return ladder[idx].Volume
}
