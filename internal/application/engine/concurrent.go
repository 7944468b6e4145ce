package engine

// concurrent.go: pool acotado para simular posiciones en paralelo.
//
// Cada unidad solo lee ticks/trades compartidos (inmutables) y devuelve su
// propio resultado en la ranura de su índice: no hay locks ni estado mutable
// compartido. El merge posterior es single-threaded y ordena por timestamp.

import (
	"sort"

	"github.com/alejandrodnm/tickreplay/internal/domain"
	"golang.org/x/sync/errgroup"
)

// fanOut aplica fn a cada item con como máximo workers goroutines y devuelve
// los resultados en el mismo orden que items. fn no puede fallar: los errores
// recuperables se registran dentro de la unidad.
func fanOut[T, R any](items []T, workers int, fn func(T) R) []R {
	out := make([]R, len(items))
	if len(items) == 0 {
		return out
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for i, item := range items {
		g.Go(func() error {
			out[i] = fn(item)
			return nil
		})
	}
	_ = g.Wait()

	return out
}

// sortOrders ordena por timestamp conservando el orden de entrada en empates.
func sortOrders(orders []domain.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		return orders[i].Timestamp < orders[j].Timestamp
	})
}

// sortPositions ordena por timestamp de la orden conservando empates.
func sortPositions(positions []domain.Position) {
	sort.SliceStable(positions, func(i, j int) bool {
		return positions[i].Order.Timestamp < positions[j].Order.Timestamp
	})
}
