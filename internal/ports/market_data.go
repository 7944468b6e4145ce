package ports

import (
	"context"

	"github.com/alejandrodnm/tickreplay/internal/domain"
)

// MarketData entrega las secuencias de un instrumento y un día, ya ordenadas
// por timestamp ascendente.
type MarketData interface {
	// LoadTicks devuelve los snapshots del libro.
	LoadTicks(ctx context.Context) ([]domain.Tick, error)

	// LoadTransactions devuelve el tape de trades.
	LoadTransactions(ctx context.Context) ([]domain.Transaction, error)
}
