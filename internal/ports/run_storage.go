package ports

import (
	"context"

	"github.com/alejandrodnm/tickreplay/internal/domain"
)

// RunStorage persiste las ejecuciones del backtest.
type RunStorage interface {
	// SaveRun guarda el resumen y todos los fills. Devuelve el ID asignado.
	SaveRun(ctx context.Context, run domain.BacktestRun) (string, error)

	// ListRuns devuelve las últimas ejecuciones, la más reciente primero.
	ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error)

	// Close cierra la conexión a la base de datos limpiamente.
	Close() error
}
