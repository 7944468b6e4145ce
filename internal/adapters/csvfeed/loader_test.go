package csvfeed

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alejandrodnm/tickreplay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tickCSV = `chWindCode,nTime,Status,nPrice,nAskPrice1,nAskVolume1,nAskPrice2,nAskVolume2,nBidPrice1,nBidVolume1,nBidPrice2,nBidVolume2,HighLimited,LowLimited
601012.SH,93000000,0,403000,403100,1200,403200,800,402900,500,402800,0,443300,362700
601012.SH,93003000,0,403100,403200,900,0,0,403000,700,402900,300,443300,362700
`

const txCSV = `Tkr,Time,Index,Price,Volume,Turnover,BSFlag
601012,93000120,1,403100,200,80620000,B
601012,93000450,2,402900,100,40290000,S
`

func TestReadTicks(t *testing.T) {
	ticks, err := ReadTicks(context.Background(), strings.NewReader(tickCSV))
	require.NoError(t, err)
	require.Len(t, ticks, 2)

	first := ticks[0]
	assert.Equal(t, int64(34_200_000), first.Timestamp)
	assert.Equal(t, domain.Price(403000), first.NewPrice)
	assert.Equal(t, domain.Price(443300), first.HighLimited)
	assert.Equal(t, domain.Price(362700), first.LowLimited)
	assert.Equal(t, domain.Ladder{{Price: 403100, Volume: 1200}, {Price: 403200, Volume: 800}}, first.Asks)
	// un nivel con precio válido y volumen 0 se conserva
	assert.Equal(t, domain.Ladder{{Price: 402900, Volume: 500}, {Price: 402800, Volume: 0}}, first.Bids)

	second := ticks[1]
	assert.Equal(t, int64(34_203_000), second.Timestamp)
	assert.Equal(t, domain.Ladder{{Price: 403200, Volume: 900}}, second.Asks, "price 0 level dropped")
}

func TestReadTicks_ColumnOrderIrrelevant(t *testing.T) {
	in := "LowLimited,HighLimited,nBidVolume1,nBidPrice1,nAskVolume1,nAskPrice1,nPrice,nTime\n" +
		"90,110,5,99,7,101,100,130000000\n"

	ticks, err := ReadTicks(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	require.Len(t, ticks, 1)
	assert.Equal(t, domain.AfternoonOpen, ticks[0].Timestamp)
	assert.Equal(t, domain.Ladder{{Price: 101, Volume: 7}}, ticks[0].Asks)
	assert.Equal(t, domain.Ladder{{Price: 99, Volume: 5}}, ticks[0].Bids)
}

func TestReadTicks_BOMHeader(t *testing.T) {
	in := "\ufeffnTime,nPrice,nAskPrice1,nAskVolume1,nBidPrice1,nBidVolume1,HighLimited,LowLimited\n" +
		"93000000,100,101,1,99,1,110,90\n"

	ticks, err := ReadTicks(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	assert.Len(t, ticks, 1)
}

func TestReadTicks_Errors(t *testing.T) {
	cases := []struct {
		name    string
		in      string
		wantErr error
		wantMsg string
	}{
		{
			name:    "empty input",
			in:      "",
			wantErr: ErrMalformed,
		},
		{
			name:    "missing column",
			in:      "nTime,nPrice,nAskPrice1,nAskVolume1,nBidPrice1,nBidVolume1,HighLimited\n",
			wantErr: ErrMalformed,
			wantMsg: "LowLimited",
		},
		{
			name:    "price without volume",
			in:      "nTime,nPrice,nAskPrice1,nBidPrice1,nBidVolume1,HighLimited,LowLimited\n",
			wantErr: ErrMalformed,
			wantMsg: "nAskPrice",
		},
		{
			name: "non numeric",
			in: "nTime,nPrice,nAskPrice1,nAskVolume1,nBidPrice1,nBidVolume1,HighLimited,LowLimited\n" +
				"93000000,abc,101,1,99,1,110,90\n",
			wantErr: ErrMalformed,
			wantMsg: "line 2",
		},
		{
			name: "negative",
			in: "nTime,nPrice,nAskPrice1,nAskVolume1,nBidPrice1,nBidVolume1,HighLimited,LowLimited\n" +
				"93000000,100,101,-1,99,1,110,90\n",
			wantErr: ErrMalformed,
		},
		{
			name: "unsorted",
			in: "nTime,nPrice,nAskPrice1,nAskVolume1,nBidPrice1,nBidVolume1,HighLimited,LowLimited\n" +
				"93003000,100,101,1,99,1,110,90\n" +
				"93000000,100,101,1,99,1,110,90\n",
			wantErr: ErrUnsorted,
			wantMsg: "line 3",
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ReadTicks(context.Background(), strings.NewReader(tc.in))
			require.Error(t, err)
			assert.ErrorIs(t, err, tc.wantErr)
			if tc.wantMsg != "" {
				assert.Contains(t, err.Error(), tc.wantMsg)
			}
		})
	}
}

func TestReadTransactions(t *testing.T) {
	txs, err := ReadTransactions(context.Background(), strings.NewReader(txCSV))
	require.NoError(t, err)
	require.Len(t, txs, 2)

	assert.Equal(t, domain.Transaction{
		Timestamp: 34_200_120,
		Index:     1,
		Price:     403100,
		Volume:    200,
		Direction: domain.Buy,
	}, txs[0])
	assert.Equal(t, domain.Sell, txs[1].Direction)
	assert.Equal(t, int64(34_200_450), txs[1].Timestamp)
}

func TestReadTransactions_BadFlag(t *testing.T) {
	in := "Time,Index,Price,Volume,BSFlag\n93000120,1,403100,200,X\n"

	_, err := ReadTransactions(context.Background(), strings.NewReader(in))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrMalformed)
	assert.ErrorIs(t, err, domain.ErrInvalidSide)
}

func TestReadTransactions_SameTimestampAllowed(t *testing.T) {
	in := "Time,Index,Price,Volume,BSFlag\n" +
		"93000120,1,100,1,B\n" +
		"93000120,2,100,1,S\n"

	txs, err := ReadTransactions(context.Background(), strings.NewReader(in))
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestReadTransactions_CancelledContext(t *testing.T) {
	var b strings.Builder
	b.WriteString("Time,Index,Price,Volume,BSFlag\n")
	for i := 0; i < 2*checkEvery; i++ {
		b.WriteString("93000120,1,100,1,B\n")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ReadTransactions(ctx, strings.NewReader(b.String()))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestLoader(t *testing.T) {
	dir := t.TempDir()
	tickPath := filepath.Join(dir, "ticks.csv")
	txPath := filepath.Join(dir, "trades.csv")
	require.NoError(t, os.WriteFile(tickPath, []byte(tickCSV), 0o600))
	require.NoError(t, os.WriteFile(txPath, []byte(txCSV), 0o600))

	l := NewLoader(tickPath, txPath)

	ticks, err := l.LoadTicks(context.Background())
	require.NoError(t, err)
	assert.Len(t, ticks, 2)

	txs, err := l.LoadTransactions(context.Background())
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestLoader_MissingFile(t *testing.T) {
	l := NewLoader(filepath.Join(t.TempDir(), "nope.csv"), "")

	_, err := l.LoadTicks(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.Contains(t, err.Error(), "nope.csv")
}
