package csvfeed

// loader.go: lectura de los CSV de ticks y trades exportados de Wind.
//
// Las columnas se resuelven por nombre de cabecera, así que el orden y las
// columnas extra no importan. La profundidad del libro se detecta contando
// nAskPrice1..N presentes.

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/alejandrodnm/tickreplay/internal/domain"
)

var (
	// ErrMalformed indica una fila o cabecera que no se puede interpretar.
	ErrMalformed = errors.New("malformed market data")

	// ErrUnsorted indica timestamps no ascendentes.
	ErrUnsorted = errors.New("timestamps not sorted")
)

// checkEvery controla cada cuántas filas se mira el contexto.
const checkEvery = 4096

// Loader implementa ports.MarketData leyendo dos archivos CSV.
type Loader struct {
	tickPath string
	txPath   string
}

// NewLoader crea un Loader para los archivos dados.
func NewLoader(tickPath, txPath string) *Loader {
	return &Loader{tickPath: tickPath, txPath: txPath}
}

// LoadTicks lee y mapea el archivo de ticks.
func (l *Loader) LoadTicks(ctx context.Context) ([]domain.Tick, error) {
	f, err := os.Open(l.tickPath)
	if err != nil {
		return nil, fmt.Errorf("csvfeed.LoadTicks: open %q: %w", l.tickPath, err)
	}
	defer f.Close()

	ticks, err := ReadTicks(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("csvfeed.LoadTicks %q: %w", l.tickPath, err)
	}
	slog.Debug("csvfeed: ticks loaded", "path", l.tickPath, "rows", len(ticks))
	return ticks, nil
}

// LoadTransactions lee y mapea el archivo de trades.
func (l *Loader) LoadTransactions(ctx context.Context) ([]domain.Transaction, error) {
	f, err := os.Open(l.txPath)
	if err != nil {
		return nil, fmt.Errorf("csvfeed.LoadTransactions: open %q: %w", l.txPath, err)
	}
	defer f.Close()

	txs, err := ReadTransactions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("csvfeed.LoadTransactions %q: %w", l.txPath, err)
	}
	slog.Debug("csvfeed: transactions loaded", "path", l.txPath, "rows", len(txs))
	return txs, nil
}

// ReadTicks lee un CSV de ticks con cabecera.
func ReadTicks(ctx context.Context, r io.Reader) ([]domain.Tick, error) {
	var ticks []domain.Tick
	err := readRows(ctx, r, func(h header) (rowFunc, error) {
		cols, err := tickColumnsFrom(h)
		if err != nil {
			return nil, err
		}
		return func(rec []string) error {
			tick, err := mapTick(cols, rec)
			if err != nil {
				return err
			}
			if n := len(ticks); n > 0 && tick.Timestamp < ticks[n-1].Timestamp {
				return fmt.Errorf("tick at %s after %s: %w",
					domain.ClockString(tick.Timestamp), domain.ClockString(ticks[n-1].Timestamp), ErrUnsorted)
			}
			ticks = append(ticks, tick)
			return nil
		}, nil
	})
	return ticks, err
}

// ReadTransactions lee un CSV de trades con cabecera.
func ReadTransactions(ctx context.Context, r io.Reader) ([]domain.Transaction, error) {
	var txs []domain.Transaction
	err := readRows(ctx, r, func(h header) (rowFunc, error) {
		cols, err := txColumnsFrom(h)
		if err != nil {
			return nil, err
		}
		return func(rec []string) error {
			tx, err := mapTransaction(cols, rec)
			if err != nil {
				return err
			}
			if n := len(txs); n > 0 && tx.Timestamp < txs[n-1].Timestamp {
				return fmt.Errorf("trade %d at %s after %s: %w",
					tx.Index, domain.ClockString(tx.Timestamp), domain.ClockString(txs[n-1].Timestamp), ErrUnsorted)
			}
			txs = append(txs, tx)
			return nil
		}, nil
	})
	return txs, err
}

type rowFunc func(rec []string) error

// readRows lee la cabecera, construye el rowFunc y lo aplica a cada fila,
// anotando el número de línea en los errores.
func readRows(ctx context.Context, r io.Reader, build func(header) (rowFunc, error)) error {
	cr := csv.NewReader(r)
	cr.ReuseRecord = true

	first, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("missing header: %w", ErrMalformed)
		}
		return fmt.Errorf("read header: %w", err)
	}
	h := newHeader(first)

	row, err := build(h)
	if err != nil {
		return err
	}

	for n := 1; ; n++ {
		if n%checkEvery == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}

		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%v: %w", err, ErrMalformed)
		}

		if err := row(rec); err != nil {
			line, _ := cr.FieldPos(0)
			return fmt.Errorf("line %d: %w", line, err)
		}
	}
}
