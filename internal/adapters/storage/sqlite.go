package storage

// sqlite.go: histórico de ejecuciones del backtest.
//
// Estrategia:
//   - `runs`: una fila por ejecución con parámetros, resultado y diagnósticos.
//   - `fills`: todas las órdenes de la ejecución (open, active, passive),
//     para poder reconstruir la curva sin volver a correr la simulación.
//   - Todo se escribe en una sola transacción: o la ejecución entera o nada.

import (
	"context"
	"database/sql"
	"fmt"
	"math"
	"time"

	"github.com/alejandrodnm/tickreplay/internal/domain"
	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS runs (
    id                   TEXT PRIMARY KEY,
    symbol               TEXT    NOT NULL,
    created_at           TEXT    NOT NULL,
    rise_duration_ms     INTEGER NOT NULL,
    rise_threshold       REAL    NOT NULL,
    open_volume          INTEGER NOT NULL,
    open_min_interval_ms INTEGER NOT NULL,
    limit_close_ms       INTEGER NOT NULL,
    close_waiting_ms     INTEGER NOT NULL,
    active_fee_ratio     REAL    NOT NULL,
    passive_fee_ratio    REAL    NOT NULL,
    corrected_sides      INTEGER NOT NULL DEFAULT 0,
    open_times           INTEGER NOT NULL DEFAULT 0,
    open_value           INTEGER NOT NULL DEFAULT 0,
    active_times         INTEGER NOT NULL DEFAULT 0,
    active_value         INTEGER NOT NULL DEFAULT 0,
    passive_times        INTEGER NOT NULL DEFAULT 0,
    passive_value        INTEGER NOT NULL DEFAULT 0,
    yield_rate           REAL,                -- NULL si no hubo aperturas
    elapsed_ms           INTEGER NOT NULL DEFAULT 0,
    rejected_opens       INTEGER NOT NULL DEFAULT 0,
    rejected_closes      INTEGER NOT NULL DEFAULT 0,
    skipped_closes       INTEGER NOT NULL DEFAULT 0,
    unscheduled_closes   INTEGER NOT NULL DEFAULT 0,
    partial_fills        INTEGER NOT NULL DEFAULT 0,
    unfilled_volume      INTEGER NOT NULL DEFAULT 0
);

CREATE TABLE IF NOT EXISTS fills (
    run_id TEXT    NOT NULL REFERENCES runs(id) ON DELETE CASCADE,
    kind   TEXT    NOT NULL CHECK (kind IN ('open', 'active', 'passive')),
    seq    INTEGER NOT NULL,
    ts     INTEGER NOT NULL,  -- ms desde medianoche
    price  INTEGER NOT NULL,
    volume INTEGER NOT NULL,
    value  INTEGER NOT NULL,
    PRIMARY KEY (run_id, kind, seq)
);

CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_runs_symbol  ON runs(symbol);
`

// timeLayout es de ancho fijo para que ORDER BY created_at sea cronológico.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Tipos de fill en la tabla fills.
const (
	KindOpen    = "open"
	KindActive  = "active"
	KindPassive = "passive"
)

// SQLiteStorage implementa ports.RunStorage usando SQLite (pure Go, sin CGo).
type SQLiteStorage struct {
	db *sql.DB
}

// NewSQLiteStorage abre (o crea) la base de datos en la ruta dada y aplica el schema.
func NewSQLiteStorage(path string) (*SQLiteStorage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage.NewSQLiteStorage: open %q: %w", path, err)
	}
	db.SetMaxOpenConns(1) // SQLite es single-writer
	db.SetMaxIdleConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("storage.NewSQLiteStorage: apply schema: %w", err)
	}
	return &SQLiteStorage{db: db}, nil
}

// SaveRun persiste la ejecución y sus fills. Si run.ID está vacío se genera
// un UUID. Devuelve el ID usado.
func (s *SQLiteStorage) SaveRun(ctx context.Context, run domain.BacktestRun) (string, error) {
	id := run.ID
	if id == "" {
		id = uuid.NewString()
	}
	createdAt := run.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("storage.SaveRun: begin tx: %w", err)
	}
	defer tx.Rollback()

	cfg, res, diag := run.Config, run.Result, run.Diagnostics
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO runs
			(id, symbol, created_at,
			 rise_duration_ms, rise_threshold, open_volume, open_min_interval_ms,
			 limit_close_ms, close_waiting_ms, active_fee_ratio, passive_fee_ratio, corrected_sides,
			 open_times, open_value, active_times, active_value, passive_times, passive_value,
			 yield_rate, elapsed_ms,
			 rejected_opens, rejected_closes, skipped_closes, unscheduled_closes,
			 partial_fills, unfilled_volume)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, run.Symbol, createdAt.UTC().Format(timeLayout),
		cfg.RiseDuration, cfg.RiseThreshold, cfg.OpenVolume, cfg.OpenMinInterval,
		cfg.LimitCloseElapsed, cfg.CloseWaitingElapsed, cfg.ActiveFeeRatio, cfg.PassiveFeeRatio, boolToInt(cfg.CorrectedSides),
		res.OpenTimes, res.OpenValue, res.CloseActiveTimes, res.CloseActiveValue, res.ClosePassiveTimes, res.ClosePassiveValue,
		nullableYield(res.YieldRate), res.Elapsed.Milliseconds(),
		diag.RejectedOpens, diag.RejectedCloses, diag.SkippedCloses, diag.UnscheduledCloses,
		diag.PartialFills, diag.UnfilledVolume,
	); err != nil {
		return "", fmt.Errorf("storage.SaveRun: insert run: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO fills (run_id, kind, seq, ts, price, volume, value)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return "", fmt.Errorf("storage.SaveRun: prepare: %w", err)
	}
	defer stmt.Close()

	insert := func(kind string, orders []domain.Order) error {
		for i, o := range orders {
			if _, err := stmt.ExecContext(ctx, id, kind, i, o.Timestamp, o.Price, o.Volume, o.Value); err != nil {
				return fmt.Errorf("storage.SaveRun: insert %s fill %d: %w", kind, i, err)
			}
		}
		return nil
	}

	opens := make([]domain.Order, len(run.Opens))
	for i, p := range run.Opens {
		opens[i] = p.Order
	}
	if err := insert(KindOpen, opens); err != nil {
		return "", err
	}
	if err := insert(KindActive, run.Active); err != nil {
		return "", err
	}
	if err := insert(KindPassive, run.Passive); err != nil {
		return "", err
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("storage.SaveRun: commit: %w", err)
	}
	return id, nil
}

// ListRuns devuelve las últimas ejecuciones, las más recientes primero.
// limit <= 0 devuelve todas.
func (s *SQLiteStorage) ListRuns(ctx context.Context, limit int) ([]domain.RunSummary, error) {
	if limit <= 0 {
		limit = -1 // SQLite: sin límite
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, created_at,
		       open_times, open_value, active_times, active_value, passive_times, passive_value,
		       yield_rate, elapsed_ms,
		       rejected_opens, rejected_closes, skipped_closes, unscheduled_closes,
		       partial_fills, unfilled_volume
		FROM runs
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("storage.ListRuns: query: %w", err)
	}
	defer rows.Close()

	var out []domain.RunSummary
	for rows.Next() {
		var (
			sum       domain.RunSummary
			createdAt string
			yield     sql.NullFloat64
			elapsedMs int64
		)
		if err := rows.Scan(
			&sum.ID, &sum.Symbol, &createdAt,
			&sum.Result.OpenTimes, &sum.Result.OpenValue,
			&sum.Result.CloseActiveTimes, &sum.Result.CloseActiveValue,
			&sum.Result.ClosePassiveTimes, &sum.Result.ClosePassiveValue,
			&yield, &elapsedMs,
			&sum.Diag.RejectedOpens, &sum.Diag.RejectedCloses,
			&sum.Diag.SkippedCloses, &sum.Diag.UnscheduledCloses,
			&sum.Diag.PartialFills, &sum.Diag.UnfilledVolume,
		); err != nil {
			return nil, fmt.Errorf("storage.ListRuns: scan row: %w", err)
		}

		sum.CreatedAt, _ = time.Parse(timeLayout, createdAt)
		sum.Result.YieldRate = math.NaN()
		if yield.Valid {
			sum.Result.YieldRate = yield.Float64
		}
		sum.Result.Elapsed = time.Duration(elapsedMs) * time.Millisecond
		out = append(out, sum)
	}
	return out, rows.Err()
}

// Fills devuelve los fills de un tipo para una ejecución, en el orden guardado.
func (s *SQLiteStorage) Fills(ctx context.Context, runID, kind string) ([]domain.Order, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT ts, price, volume, value FROM fills
		WHERE run_id = ? AND kind = ?
		ORDER BY seq`, runID, kind)
	if err != nil {
		return nil, fmt.Errorf("storage.Fills: query: %w", err)
	}
	defer rows.Close()

	var out []domain.Order
	for rows.Next() {
		var o domain.Order
		if err := rows.Scan(&o.Timestamp, &o.Price, &o.Volume, &o.Value); err != nil {
			return nil, fmt.Errorf("storage.Fills: scan row: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

// Close cierra la conexión a la base de datos.
func (s *SQLiteStorage) Close() error {
	return s.db.Close()
}

// --- helpers internos ---

func nullableYield(y float64) sql.NullFloat64 {
	if math.IsNaN(y) || math.IsInf(y, 0) {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: y, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
