package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/alejandrodnm/tickreplay/internal/domain"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid envuelve cualquier valor de configuración fuera de rango.
var ErrInvalid = errors.New("invalid config")

// Config es la configuración completa del backtest.
type Config struct {
	Strategy StrategyConfig `yaml:"strategy"`
	Data     DataConfig     `yaml:"data"`
	Engine   EngineConfig   `yaml:"engine"`
	Storage  StorageConfig  `yaml:"storage"`
	Log      LogConfig      `yaml:"log"`
}

// StrategyConfig son los umbrales en las unidades del archivo: minutos,
// segundos y porcentajes. Domain() los convierte a ms y fracciones.
type StrategyConfig struct {
	RiseDurationMin        int     `yaml:"rise_duration_min"`
	RiseThresholdPercent   float64 `yaml:"rise_threshold_percent"`
	OpenVolume             int64   `yaml:"open_volume"`
	OpenMinIntervalSec     int     `yaml:"open_min_interval_sec"`
	LimitCloseElapsedSec   int     `yaml:"limit_close_elapsed_sec"`
	CloseWaitingElapsedSec int     `yaml:"close_waiting_elapsed_sec"`
	ActiveFeeRatio         float64 `yaml:"active_fee_ratio"`  // porcentaje
	PassiveFeeRatio        float64 `yaml:"passive_fee_ratio"` // porcentaje
	CorrectedSides         bool    `yaml:"corrected_sides"`
}

// DataConfig indica de dónde salen ticks y trades.
type DataConfig struct {
	Symbol       string `yaml:"symbol"`
	Ticks        string `yaml:"ticks"`
	Transactions string `yaml:"transactions"`
	PriceScale   int32  `yaml:"price_scale"` // precio real = entero × 10^-scale
}

// EngineConfig controla el pool de simulación.
type EngineConfig struct {
	Workers int `yaml:"workers"` // 0 = runtime.NumCPU()
}

// StorageConfig controla dónde se persisten las ejecuciones.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Default devuelve la configuración por defecto de la estrategia.
func Default() Config {
	return Config{
		Strategy: StrategyConfig{
			RiseDurationMin:        10,
			RiseThresholdPercent:   0.5,
			OpenVolume:             1000,
			OpenMinIntervalSec:     30,
			LimitCloseElapsedSec:   60,
			CloseWaitingElapsedSec: 30,
			ActiveFeeRatio:         0.02,
			PassiveFeeRatio:        0.015,
		},
		Data: DataConfig{
			Symbol:       "601012.SH",
			Ticks:        "resource/601012.SH.Tick.csv",
			Transactions: "resource/601012.SH.Transaction.csv",
			PriceScale:   4,
		},
		Storage: StorageConfig{DSN: "backtest.db"},
		Log:     LogConfig{Level: "info", Format: "text"},
	}
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las claves ausentes del YAML conservan el valor por defecto; si el archivo
// no existe se usan los defaults. Las variables de entorno tienen la última palabra.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		// sin archivo: defaults
	case err != nil:
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}
	setDefaults(&cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Domain convierte la configuración de estrategia al modelo del engine.
func (s StrategyConfig) Domain() domain.StrategyConfig {
	return domain.StrategyConfig{
		RiseDuration:        int64(s.RiseDurationMin) * 60 * 1000,
		RiseThreshold:       s.RiseThresholdPercent / 100,
		OpenVolume:          s.OpenVolume,
		OpenMinInterval:     int64(s.OpenMinIntervalSec) * 1000,
		LimitCloseElapsed:   int64(s.LimitCloseElapsedSec) * 1000,
		CloseWaitingElapsed: int64(s.CloseWaitingElapsedSec) * 1000,
		ActiveFeeRatio:      s.ActiveFeeRatio / 100,
		PassiveFeeRatio:     s.PassiveFeeRatio / 100,
		CorrectedSides:      s.CorrectedSides,
	}
}

// Validate rechaza valores con los que la simulación no tiene sentido.
func (c *Config) Validate() error {
	s := c.Strategy
	switch {
	case s.OpenVolume <= 0:
		return fmt.Errorf("config: open_volume must be > 0, got %d: %w", s.OpenVolume, ErrInvalid)
	case s.RiseDurationMin < 0, s.OpenMinIntervalSec < 0, s.LimitCloseElapsedSec < 0, s.CloseWaitingElapsedSec < 0:
		return fmt.Errorf("config: durations must be >= 0: %w", ErrInvalid)
	case s.RiseThresholdPercent < 0:
		return fmt.Errorf("config: rise_threshold_percent must be >= 0: %w", ErrInvalid)
	case s.ActiveFeeRatio < 0 || s.ActiveFeeRatio >= 100, s.PassiveFeeRatio < 0 || s.PassiveFeeRatio >= 100:
		return fmt.Errorf("config: fee ratios are percentages in [0, 100): %w", ErrInvalid)
	case c.Data.PriceScale < 0:
		return fmt.Errorf("config: price_scale must be >= 0: %w", ErrInvalid)
	case c.Engine.Workers < 0:
		return fmt.Errorf("config: engine.workers must be >= 0: %w", ErrInvalid)
	}
	return nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) error {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("BACKTEST_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("BACKTEST_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config.Load: BACKTEST_WORKERS=%q: %w", v, ErrInvalid)
		}
		cfg.Engine.Workers = n
	}
	return nil
}

// setDefaults asegura que los valores de infraestructura tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "backtest.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
