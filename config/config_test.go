package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, Default(), *cfg)
}

func TestLoad_PartialYAMLKeepsDefaults(t *testing.T) {
	path := writeConfig(t, `
strategy:
  open_volume: 500
  corrected_sides: true
data:
  symbol: 600000.SH
log:
  format: json
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, int64(500), cfg.Strategy.OpenVolume)
	assert.True(t, cfg.Strategy.CorrectedSides)
	assert.Equal(t, 10, cfg.Strategy.RiseDurationMin)
	assert.InDelta(t, 0.015, cfg.Strategy.PassiveFeeRatio, 1e-12)
	assert.Equal(t, "600000.SH", cfg.Data.Symbol)
	assert.Equal(t, int32(4), cfg.Data.PriceScale)
	assert.Equal(t, "json", cfg.Log.Format)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("BACKTEST_DSN", ":memory:")
	t.Setenv("BACKTEST_WORKERS", "3")

	cfg, err := Load(writeConfig(t, "log:\n  level: warn\n"))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, ":memory:", cfg.Storage.DSN)
	assert.Equal(t, 3, cfg.Engine.Workers)
}

func TestLoad_BadWorkersEnv(t *testing.T) {
	t.Setenv("BACKTEST_WORKERS", "many")

	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestLoad_InvalidYAML(t *testing.T) {
	_, err := Load(writeConfig(t, "strategy: [unclosed"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parse YAML")
}

func TestLoad_RejectsZeroOpenVolume(t *testing.T) {
	_, err := Load(writeConfig(t, "strategy:\n  open_volume: 0\n"))
	assert.ErrorIs(t, err, ErrInvalid)
}

func TestValidate_FeeOutOfRange(t *testing.T) {
	cfg := Default()
	cfg.Strategy.ActiveFeeRatio = 100
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)

	cfg = Default()
	cfg.Strategy.PassiveFeeRatio = -0.1
	assert.ErrorIs(t, cfg.Validate(), ErrInvalid)
}

func TestStrategyConfig_Domain(t *testing.T) {
	d := Default().Strategy.Domain()

	assert.Equal(t, int64(600_000), d.RiseDuration)
	assert.InDelta(t, 0.005, d.RiseThreshold, 1e-12)
	assert.Equal(t, int64(1000), d.OpenVolume)
	assert.Equal(t, int64(30_000), d.OpenMinInterval)
	assert.Equal(t, int64(60_000), d.LimitCloseElapsed)
	assert.Equal(t, int64(30_000), d.CloseWaitingElapsed)
	assert.InDelta(t, 0.0002, d.ActiveFeeRatio, 1e-12)
	assert.InDelta(t, 0.00015, d.PassiveFeeRatio, 1e-12)
	assert.False(t, d.CorrectedSides)
}
