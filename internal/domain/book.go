package domain

import (
	"cmp"
	"fmt"
	"slices"
)

// Price, Volume y Value van en unidades mínimas de la moneda (enteros),
// nunca en punto flotante.
type (
	Price  = int64
	Volume = int64
	Value  = int64
)

// Side es el lado de una orden o, en un trade, el lado agresor.
type Side int8

const (
	Buy Side = iota + 1
	Sell
)

func (s Side) String() string {
	switch s {
	case Buy:
		return "BUY"
	case Sell:
		return "SELL"
	default:
		return "UNKNOWN"
	}
}

// ParseSide interpreta el BSFlag del tape: "B" comprador, "S" vendedor.
func ParseSide(flag string) (Side, error) {
	switch flag {
	case "B":
		return Buy, nil
	case "S":
		return Sell, nil
	default:
		return 0, fmt.Errorf("domain.ParseSide %q: %w", flag, ErrInvalidSide)
	}
}

// BookSide identifica una de las dos escaleras de un tick.
type BookSide int8

const (
	AskBook BookSide = iota + 1 // asks, precio ascendente
	BidBook                     // bids, precio descendente
)

// Level es un nivel de precio del libro.
type Level struct {
	Price  Price
	Volume Volume
}

// Ladder es una escalera de niveles, el mejor precio primero.
type Ladder []Level

// Clone devuelve una copia independiente de la escalera.
func (l Ladder) Clone() Ladder {
	return slices.Clone(l)
}

// search localiza price en la escalera ordenada. Devuelve el índice del nivel
// si existe, o el punto de inserción que conserva el orden.
func (l Ladder) search(price Price, ascending bool) (int, bool) {
	return slices.BinarySearchFunc(l, price, func(lv Level, p Price) int {
		if ascending {
			return cmp.Compare(lv.Price, p)
		}
		return cmp.Compare(p, lv.Price)
	})
}
