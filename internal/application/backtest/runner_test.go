package backtest_test

import (
	"context"
	"errors"
	"testing"

	"github.com/alejandrodnm/tickreplay/internal/application/backtest"
	"github.com/alejandrodnm/tickreplay/internal/application/engine"
	"github.com/alejandrodnm/tickreplay/internal/domain"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockMarketData struct {
	ticks   []domain.Tick
	txs     []domain.Transaction
	tickErr error
	txErr   error
}

func (m *mockMarketData) LoadTicks(_ context.Context) ([]domain.Tick, error) {
	return m.ticks, m.tickErr
}

func (m *mockMarketData) LoadTransactions(_ context.Context) ([]domain.Transaction, error) {
	return m.txs, m.txErr
}

type mockReporter struct {
	reported []domain.BacktestRun
	err      error
}

func (m *mockReporter) Report(_ context.Context, run domain.BacktestRun) error {
	m.reported = append(m.reported, run)
	return m.err
}

type mockStorage struct {
	saved []domain.BacktestRun
	err   error
}

func (m *mockStorage) SaveRun(_ context.Context, run domain.BacktestRun) (string, error) {
	m.saved = append(m.saved, run)
	return run.ID, m.err
}

func (m *mockStorage) ListRuns(_ context.Context, _ int) ([]domain.RunSummary, error) {
	return nil, nil
}

func (m *mockStorage) Close() error { return nil }

// --- helpers ---

func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	e, err := engine.New(domain.StrategyConfig{
		RiseDuration:        10 * 60 * 1000,
		RiseThreshold:       0.005,
		OpenVolume:          1000,
		OpenMinInterval:     30_000,
		LimitCloseElapsed:   60_000,
		CloseWaitingElapsed: 30_000,
		ActiveFeeRatio:      0.0002,
		PassiveFeeRatio:     0.00015,
	}, engine.Options{Workers: 2})
	require.NoError(t, err)
	return e
}

func tick(ts int64, last, ask, bid domain.Price) domain.Tick {
	return domain.Tick{
		Timestamp:   ts,
		NewPrice:    last,
		HighLimited: last * 11 / 10,
		LowLimited:  last * 9 / 10,
		Asks:        domain.Ladder{{Price: ask, Volume: 10_000}},
		Bids:        domain.Ladder{{Price: bid, Volume: 10_000}},
	}
}

// una apertura en t1 que se cierra a mercado al vencer el plazo
func oneRoundTrip() []domain.Tick {
	t0 := domain.MorningOpen + 60_000
	t1 := t0 + 1_000
	t2 := t1 + 61_000
	return []domain.Tick{
		tick(t0, 1010, 1011, 1009),
		tick(t1, 1000, 1001, 999),
		tick(t2, 1010, 1011, 1009),
		tick(t2+31_000, 1010, 1011, 1009),
	}
}

// --- tests ---

func TestRunner_Run(t *testing.T) {
	data := &mockMarketData{ticks: oneRoundTrip()}
	rep := &mockReporter{}
	store := &mockStorage{}

	r := backtest.New("601012.SH", data, newEngine(t), rep, store)
	run, err := r.Run(context.Background())
	require.NoError(t, err)

	_, err = uuid.Parse(run.ID)
	assert.NoError(t, err)
	assert.Equal(t, "601012.SH", run.Symbol)
	assert.False(t, run.CreatedAt.IsZero())
	assert.Equal(t, 1, run.Result.OpenTimes)
	assert.Equal(t, 1, run.Result.CloseActiveTimes)

	require.Len(t, rep.reported, 1)
	assert.Equal(t, run.ID, rep.reported[0].ID)
	require.Len(t, store.saved, 1)
	assert.Equal(t, run.ID, store.saved[0].ID)
}

func TestRunner_Run_NoStorage(t *testing.T) {
	rep := &mockReporter{}
	r := backtest.New("X", &mockMarketData{ticks: oneRoundTrip()}, newEngine(t), rep, nil)

	_, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Len(t, rep.reported, 1)
}

func TestRunner_Run_LoadError(t *testing.T) {
	loadErr := errors.New("disk on fire")
	rep := &mockReporter{}
	store := &mockStorage{}

	r := backtest.New("X", &mockMarketData{txErr: loadErr}, newEngine(t), rep, store)
	_, err := r.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, loadErr)
	assert.Empty(t, rep.reported, "nothing reported when data cannot be loaded")
	assert.Empty(t, store.saved)
}

func TestRunner_Run_SinkErrorsAreNotFatal(t *testing.T) {
	rep := &mockReporter{err: errors.New("broken pipe")}
	store := &mockStorage{err: errors.New("database is locked")}

	r := backtest.New("X", &mockMarketData{ticks: oneRoundTrip()}, newEngine(t), rep, store)
	run, err := r.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 1, run.Result.OpenTimes)
	assert.Len(t, store.saved, 1)
}
