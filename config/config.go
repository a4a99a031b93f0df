package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa de polysim.
type Config struct {
	Strategy  StrategyConfig  `yaml:"strategy"`
	Backtest  BacktestConfig  `yaml:"backtest"`
	Collector CollectorConfig `yaml:"collector"`
	Paper     PaperConfig     `yaml:"paper"`
	API       APIConfig       `yaml:"api"`
	Storage   StorageConfig   `yaml:"storage"`
	Log       LogConfig       `yaml:"log"`
}

// StrategyConfig son los parámetros de la política de market making.
type StrategyConfig struct {
	MinSpread           float64 `yaml:"min_spread"`
	TickSize            float64 `yaml:"tick_size"`
	TradeSizeUSDC       float64 `yaml:"trade_size_usdc"`
	MaxSizeUSDC         float64 `yaml:"max_size_usdc"`
	MinOrderSizeUSDC    float64 `yaml:"min_order_size_usdc"`
	StopLossPct         float64 `yaml:"stop_loss_pct"` // negativo
	TakeProfitPct       float64 `yaml:"take_profit_pct"`
	VolatilityThreshold float64 `yaml:"volatility_threshold"`
	SleepMinutes        int     `yaml:"sleep_minutes"` // cooldown post stop-loss
	MinLiquidity        float64 `yaml:"min_liquidity"`
	MinVolume24h        float64 `yaml:"min_volume_24h"`
	MaxPrice            float64 `yaml:"max_price"`
	MinPrice            float64 `yaml:"min_price"`
	InventorySkewFactor float64 `yaml:"inventory_skew_factor"`
	FeePreset           string  `yaml:"fee_preset"` // political | crypto | sports
}

// BacktestConfig controla la simulación.
type BacktestConfig struct {
	InitialCapital float64 `yaml:"initial_capital"`
	FillAggression float64 `yaml:"fill_aggression"`
	UseRandomFills bool    `yaml:"use_random_fills"`
	Seed           int64   `yaml:"seed"`
	ProbFloor      float64 `yaml:"prob_floor"`
	ProbCap        float64 `yaml:"prob_cap"`
	NoiseFactor    float64 `yaml:"noise_factor"`
	StartDate      string  `yaml:"start_date"` // YYYY-MM-DD, vacío = sin límite
	EndDate        string  `yaml:"end_date"`
}

// CollectorConfig controla la recolección de histórico.
type CollectorConfig struct {
	Days       int `yaml:"days"`
	MaxMarkets int `yaml:"max_markets"`
}

// PaperConfig controla el paper trading.
type PaperConfig struct {
	IntervalMinutes int `yaml:"interval_minutes"`
	OrderTTLMinutes int `yaml:"order_ttl_minutes"`
	MaxMarkets      int `yaml:"max_markets"`
}

// APIConfig contiene los base URLs de las APIs.
type APIConfig struct {
	CLOBBase  string `yaml:"clob_base"`
	GammaBase string `yaml:"gamma_base"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los valores del .env sobreescriben los del YAML para las keys que correspondan.
// Un path vacío devuelve la configuración por defecto.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// SleepPeriod devuelve el cooldown post stop-loss como time.Duration.
func (c *Config) SleepPeriod() time.Duration {
	return time.Duration(c.Strategy.SleepMinutes) * time.Minute
}

// PaperInterval devuelve el intervalo entre ciclos de paper trading.
func (c *Config) PaperInterval() time.Duration {
	return time.Duration(c.Paper.IntervalMinutes) * time.Minute
}

// PaperOrderTTL devuelve la vida máxima de una orden virtual.
func (c *Config) PaperOrderTTL() time.Duration {
	return time.Duration(c.Paper.OrderTTLMinutes) * time.Minute
}

// BacktestRange devuelve el rango de fechas del backtest.
// Fechas vacías devuelven time.Time zero (sin límite).
func (c *Config) BacktestRange() (start, end time.Time, err error) {
	if c.Backtest.StartDate != "" {
		start, err = time.Parse("2006-01-02", c.Backtest.StartDate)
		if err != nil {
			return start, end, fmt.Errorf("config.BacktestRange: start_date: %w", err)
		}
	}
	if c.Backtest.EndDate != "" {
		end, err = time.Parse("2006-01-02", c.Backtest.EndDate)
		if err != nil {
			return start, end, fmt.Errorf("config.BacktestRange: end_date: %w", err)
		}
		// Incluir el día completo
		end = end.Add(24*time.Hour - time.Second)
	}
	return start, end, nil
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("POLYSIM_DSN"); v != "" {
		cfg.Storage.DSN = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
// Los defaults de la estrategia son los parámetros de producción.
func setDefaults(cfg *Config) {
	s := &cfg.Strategy
	if s.MinSpread <= 0 {
		s.MinSpread = 0.02
	}
	if s.TickSize <= 0 {
		s.TickSize = 0.001
	}
	if s.TradeSizeUSDC <= 0 {
		s.TradeSizeUSDC = 50
	}
	if s.MaxSizeUSDC <= 0 {
		s.MaxSizeUSDC = 200
	}
	if s.MinOrderSizeUSDC <= 0 {
		s.MinOrderSizeUSDC = 5
	}
	if s.StopLossPct >= 0 {
		s.StopLossPct = -5.0
	}
	if s.TakeProfitPct <= 0 {
		s.TakeProfitPct = 2.0
	}
	if s.VolatilityThreshold <= 0 {
		s.VolatilityThreshold = 0.10
	}
	if s.SleepMinutes <= 0 {
		s.SleepMinutes = 60
	}
	if s.MinLiquidity <= 0 {
		s.MinLiquidity = 5000
	}
	if s.MinVolume24h <= 0 {
		s.MinVolume24h = 10000
	}
	if s.MaxPrice <= 0 {
		s.MaxPrice = 0.90
	}
	if s.MinPrice <= 0 {
		s.MinPrice = 0.10
	}
	if s.InventorySkewFactor <= 0 {
		s.InventorySkewFactor = 0.3
	}
	if s.FeePreset == "" {
		s.FeePreset = "political"
	}

	b := &cfg.Backtest
	if b.InitialCapital <= 0 {
		b.InitialCapital = 1000
	}
	if b.FillAggression <= 0 {
		b.FillAggression = 0.5
	}
	if b.ProbFloor <= 0 {
		b.ProbFloor = 0.05
	}
	if b.ProbCap <= 0 {
		b.ProbCap = 0.80
	}
	if b.NoiseFactor <= 0 {
		b.NoiseFactor = 0.5
	}

	if cfg.Collector.Days <= 0 {
		cfg.Collector.Days = 30
	}
	if cfg.Collector.MaxMarkets <= 0 {
		cfg.Collector.MaxMarkets = 50
	}

	if cfg.Paper.IntervalMinutes <= 0 {
		cfg.Paper.IntervalMinutes = 5
	}
	if cfg.Paper.OrderTTLMinutes <= 0 {
		cfg.Paper.OrderTTLMinutes = 60
	}
	if cfg.Paper.MaxMarkets <= 0 {
		cfg.Paper.MaxMarkets = 20
	}

	if cfg.API.CLOBBase == "" {
		cfg.API.CLOBBase = "https://clob.polymarket.com"
	}
	if cfg.API.GammaBase == "" {
		cfg.API.GammaBase = "https://gamma-api.polymarket.com"
	}
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "polysim.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// validate comprueba coherencia entre parámetros relacionados.
func (c *Config) validate() error {
	if c.Strategy.MinPrice >= c.Strategy.MaxPrice {
		return fmt.Errorf("min_price %.2f >= max_price %.2f",
			c.Strategy.MinPrice, c.Strategy.MaxPrice)
	}
	if c.Backtest.FillAggression > 1 {
		return fmt.Errorf("fill_aggression %.2f out of [0,1]", c.Backtest.FillAggression)
	}
	if c.Backtest.ProbFloor > c.Backtest.ProbCap {
		return fmt.Errorf("prob_floor %.2f > prob_cap %.2f",
			c.Backtest.ProbFloor, c.Backtest.ProbCap)
	}
	switch c.Strategy.FeePreset {
	case "political", "crypto", "sports":
	default:
		return fmt.Errorf("unknown fee_preset %q", c.Strategy.FeePreset)
	}
	return nil
}
