package domain

import "sort"

// Transaction es un trade ejecutado del tape.
type Transaction struct {
	Timestamp int64 // ms desde medianoche
	Index     int64 // número de secuencia del tape, informativo
	Price     Price
	Volume    Volume
	Direction Side // lado agresor
}

// Consume aplica el trade sobre ladder en orden precio-tiempo: recorre desde
// el mejor nivel, se detiene en el primero que el precio del trade no alcanza,
// vacía niveles completos y arrastra el resto al siguiente.
func (tx Transaction) Consume(ladder Ladder) {
	left := tx.Volume
	for i := range ladder {
		lv := &ladder[i]
		if (tx.Direction == Buy && tx.Price < lv.Price) ||
			(tx.Direction == Sell && tx.Price > lv.Price) {
			break
		}
		if left > lv.Volume {
			left -= lv.Volume
			lv.Volume = 0
			continue
		}
		lv.Volume -= left
		break
	}
}

// TransactionsBetween devuelve la subsecuencia de txs (ordenadas por
// timestamp) que caen entre from y to (exclusivo). Si la búsqueda binaria cae
// exactamente en from, el inicio avanza una posición. Con timestamps
// repetidos solo se salta la primera coincidencia.
func TransactionsBetween(txs []Transaction, from, to int64) []Transaction {
	lo := sort.Search(len(txs), func(i int) bool { return txs[i].Timestamp >= from })
	if lo < len(txs) && txs[lo].Timestamp == from {
		lo++
	}
	hi := lo
	for hi < len(txs) && txs[hi].Timestamp < to {
		hi++
	}
	return txs[lo:hi]
}
