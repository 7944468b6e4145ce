package domain

import "time"

// Diagnostics cuenta lo que la simulación descartó o degradó por el camino.
// No entra en el modelo financiero.
type Diagnostics struct {
	RejectedOpens     int    // aperturas rechazadas (fuera de sesión o sin asks)
	RejectedCloses    int    // cierres a mercado rechazados (fuera de sesión o sin bids)
	SkippedCloses     int    // posiciones sin precio de cierre (escalera vacía)
	UnscheduledCloses int    // posiciones sin tick posterior al plazo de cierre
	PartialFills      int    // órdenes de mercado que agotaron la profundidad
	UnfilledVolume    Volume // volumen pendiente cuando se acabaron los datos
}

// BacktestRun es todo lo que produce una ejecución del engine.
type BacktestRun struct {
	ID          string // lo asigna quien persiste
	Symbol      string
	CreatedAt   time.Time
	Config      StrategyConfig
	Opens       []Position // aperturas, por orden de tick
	Pending     []Position // cierres límite programados, por timestamp
	Active      []Order    // cierres a mercado, por timestamp
	Passive     []Order    // fills pasivos, por timestamp
	Result      StrategyResult
	Diagnostics Diagnostics
}

// RunSummary es la fila resumida de una ejecución persistida.
type RunSummary struct {
	ID        string
	Symbol    string
	CreatedAt time.Time
	Result    StrategyResult
	Diag      Diagnostics
}
