package csvfeed

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/alejandrodnm/tickreplay/internal/domain"
)

// header mapea nombre de columna → índice.
type header map[string]int

func newHeader(names []string) header {
	h := make(header, len(names))
	for i, name := range names {
		// Algunos exports traen BOM en la primera columna.
		h[strings.TrimPrefix(strings.TrimSpace(name), "\ufeff")] = i
	}
	return h
}

func (h header) require(names ...string) error {
	for _, name := range names {
		if _, ok := h[name]; !ok {
			return fmt.Errorf("missing column %q: %w", name, ErrMalformed)
		}
	}
	return nil
}

type levelColumns struct {
	price, volume int
}

// tickColumns son los índices de las columnas que usa el engine.
type tickColumns struct {
	time, price, high, low int
	asks, bids             []levelColumns
}

func tickColumnsFrom(h header) (tickColumns, error) {
	if err := h.require("nTime", "nPrice", "HighLimited", "LowLimited"); err != nil {
		return tickColumns{}, err
	}
	cols := tickColumns{
		time:  h["nTime"],
		price: h["nPrice"],
		high:  h["HighLimited"],
		low:   h["LowLimited"],
	}

	var err error
	if cols.asks, err = ladderColumns(h, "nAskPrice", "nAskVolume"); err != nil {
		return tickColumns{}, err
	}
	if cols.bids, err = ladderColumns(h, "nBidPrice", "nBidVolume"); err != nil {
		return tickColumns{}, err
	}
	return cols, nil
}

// ladderColumns recoge priceN/volumeN para N = 1, 2, ... hasta el primer hueco.
func ladderColumns(h header, pricePrefix, volumePrefix string) ([]levelColumns, error) {
	var levels []levelColumns
	for n := 1; ; n++ {
		p, okP := h[pricePrefix+strconv.Itoa(n)]
		v, okV := h[volumePrefix+strconv.Itoa(n)]
		if !okP && !okV {
			break
		}
		if okP != okV {
			return nil, fmt.Errorf("level %d of %s has price xor volume: %w", n, pricePrefix, ErrMalformed)
		}
		levels = append(levels, levelColumns{price: p, volume: v})
	}
	if len(levels) == 0 {
		return nil, fmt.Errorf("no %s1 column: %w", pricePrefix, ErrMalformed)
	}
	return levels, nil
}

func mapTick(cols tickColumns, rec []string) (domain.Tick, error) {
	var (
		tick domain.Tick
		err  error
		raw  int64
	)
	if raw, err = field(rec, cols.time, "nTime"); err != nil {
		return tick, err
	}
	tick.Timestamp = domain.ParseClock(raw)
	if tick.NewPrice, err = field(rec, cols.price, "nPrice"); err != nil {
		return tick, err
	}
	if tick.HighLimited, err = field(rec, cols.high, "HighLimited"); err != nil {
		return tick, err
	}
	if tick.LowLimited, err = field(rec, cols.low, "LowLimited"); err != nil {
		return tick, err
	}
	if tick.Asks, err = mapLadder(cols.asks, rec); err != nil {
		return tick, err
	}
	if tick.Bids, err = mapLadder(cols.bids, rec); err != nil {
		return tick, err
	}
	return tick, nil
}

// mapLadder descarta niveles vacíos (precio 0): el feed los rellena con ceros
// cuando no hay profundidad, y romperían la monotonía de la escalera.
func mapLadder(cols []levelColumns, rec []string) (domain.Ladder, error) {
	ladder := make(domain.Ladder, 0, len(cols))
	for _, c := range cols {
		price, err := field(rec, c.price, "level price")
		if err != nil {
			return nil, err
		}
		volume, err := field(rec, c.volume, "level volume")
		if err != nil {
			return nil, err
		}
		if price == 0 {
			continue
		}
		ladder = append(ladder, domain.Level{Price: price, Volume: volume})
	}
	return ladder, nil
}

// txColumns son los índices de las columnas del tape.
type txColumns struct {
	time, index, price, volume, flag int
}

func txColumnsFrom(h header) (txColumns, error) {
	if err := h.require("Time", "Index", "Price", "Volume", "BSFlag"); err != nil {
		return txColumns{}, err
	}
	return txColumns{
		time:   h["Time"],
		index:  h["Index"],
		price:  h["Price"],
		volume: h["Volume"],
		flag:   h["BSFlag"],
	}, nil
}

func mapTransaction(cols txColumns, rec []string) (domain.Transaction, error) {
	var (
		tx  domain.Transaction
		err error
		raw int64
	)
	if raw, err = field(rec, cols.time, "Time"); err != nil {
		return tx, err
	}
	tx.Timestamp = domain.ParseClock(raw)
	if tx.Index, err = field(rec, cols.index, "Index"); err != nil {
		return tx, err
	}
	if tx.Price, err = field(rec, cols.price, "Price"); err != nil {
		return tx, err
	}
	if tx.Volume, err = field(rec, cols.volume, "Volume"); err != nil {
		return tx, err
	}
	if cols.flag >= len(rec) {
		return tx, fmt.Errorf("short row, no BSFlag: %w", ErrMalformed)
	}
	if tx.Direction, err = domain.ParseSide(strings.TrimSpace(rec[cols.flag])); err != nil {
		return tx, fmt.Errorf("%w: %w", err, ErrMalformed)
	}
	return tx, nil
}

// field parsea rec[i] como entero no negativo.
func field(rec []string, i int, name string) (int64, error) {
	if i >= len(rec) {
		return 0, fmt.Errorf("short row, no %s: %w", name, ErrMalformed)
	}
	s := strings.TrimSpace(rec[i])
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v < 0 {
		return 0, fmt.Errorf("%s=%q is not a non-negative integer: %w", name, s, ErrMalformed)
	}
	return v, nil
}
