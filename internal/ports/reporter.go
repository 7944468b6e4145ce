package ports

import (
	"context"

	"github.com/alejandrodnm/tickreplay/internal/domain"
)

// Reporter presenta el resultado de una ejecución al usuario.
type Reporter interface {
	Report(ctx context.Context, run domain.BacktestRun) error
}
