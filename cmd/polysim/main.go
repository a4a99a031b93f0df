package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alejandrodnm/polysim/config"
	"github.com/alejandrodnm/polysim/internal/adapters/notify"
	"github.com/alejandrodnm/polysim/internal/adapters/polymarket"
	"github.com/alejandrodnm/polysim/internal/adapters/storage"
	"github.com/alejandrodnm/polysim/internal/backtest"
	"github.com/alejandrodnm/polysim/internal/collector"
	"github.com/alejandrodnm/polysim/internal/domain"
	"github.com/alejandrodnm/polysim/internal/paper"
	"github.com/alejandrodnm/polysim/internal/strategy"
)

func main() {
	configPath := flag.String("config", "", "path to config file (optional)")
	collect := flag.Bool("collect", false, "collect price history into the snapshot cache and exit")
	paperMode := flag.Bool("paper", false, "run the paper trading loop against live markets")
	marketsMode := flag.Bool("markets", false, "list candidate markets and exit")
	runsMode := flag.Bool("runs", false, "list stored backtest runs and exit")
	dataPath := flag.String("data", "", "backtest against a snapshot JSON file instead of the cache")
	synthetic := flag.Bool("synthetic", false, "backtest against generated synthetic data")
	days := flag.Int("days", 0, "days of data to collect/generate (overrides config)")
	capital := flag.Float64("capital", 0, "initial capital (overrides config)")
	seed := flag.Int64("seed", 0, "random seed for fills and synthetic data (overrides config)")
	csvPrefix := flag.String("csv", "", "export equity and fills as <prefix>_equity.csv / <prefix>_fills.csv")
	details := flag.Bool("details", false, "print equity and fill tables, not just the summary")
	verbose := flag.Bool("verbose", false, "set log level to debug")
	logFormat := flag.String("format", "", "log format: text|json (overrides config)")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "err", err, "path", *configPath)
		os.Exit(1)
	}

	if *verbose {
		cfg.Log.Level = "debug"
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}
	setupLogger(cfg.Log)

	if *days > 0 {
		cfg.Collector.Days = *days
	}
	if *capital > 0 {
		cfg.Backtest.InitialCapital = *capital
	}
	if *seed != 0 {
		cfg.Backtest.Seed = *seed
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	policy := strategy.NewMarketMaking(strategyParams(cfg))
	notifier := notify.NewConsole(*details)

	switch {
	case *marketsMode:
		runMarkets(ctx, cfg, notifier)
	case *collect:
		runCollect(ctx, cfg)
	case *paperMode:
		runPaper(ctx, cfg, policy)
	case *runsMode:
		listRuns(ctx, cfg)
	default:
		runBacktest(ctx, cfg, policy, notifier, *dataPath, *synthetic, *csvPrefix)
	}
}

// strategyParams traduce la config YAML a los parámetros de la política.
func strategyParams(cfg *config.Config) strategy.Params {
	s := cfg.Strategy
	return strategy.Params{
		MinSpread:           s.MinSpread,
		TickSize:            s.TickSize,
		TradeSize:           s.TradeSizeUSDC,
		MaxSize:             s.MaxSizeUSDC,
		MinOrderSize:        s.MinOrderSizeUSDC,
		StopLossPct:         s.StopLossPct,
		TakeProfitPct:       s.TakeProfitPct,
		VolatilityThreshold: s.VolatilityThreshold,
		SleepPeriod:         cfg.SleepPeriod(),
		MinLiquidity:        s.MinLiquidity,
		MinVolume24h:        s.MinVolume24h,
		MaxPrice:            s.MaxPrice,
		MinPrice:            s.MinPrice,
		InventorySkewFactor: s.InventorySkewFactor,
		Fees:                domain.FeePreset(s.FeePreset),
	}
}

// runBacktest carga snapshots (JSON, sintéticos o cache SQLite), ejecuta el
// backtest y presenta el resultado.
func runBacktest(ctx context.Context, cfg *config.Config, policy strategy.Policy, notifier *notify.Console, dataPath string, synthetic bool, csvPrefix string) {
	start, end, err := cfg.BacktestRange()
	if err != nil {
		slog.Error("invalid backtest range", "err", err)
		os.Exit(1)
	}

	var snaps []domain.MarketSnapshot
	var store *storage.SQLiteStorage

	switch {
	case dataPath != "":
		snaps, err = domain.LoadSnapshotsJSON(dataPath)
		if err != nil {
			slog.Error("failed to load snapshot file", "err", err, "path", dataPath)
			os.Exit(1)
		}
	case synthetic:
		synCfg := backtest.DefaultSyntheticConfig()
		synCfg.Days = cfg.Collector.Days
		synCfg.Seed = cfg.Backtest.Seed
		snaps = backtest.GenerateSynthetic(synCfg)
		slog.Info("synthetic data generated", "snapshots", len(snaps))
	default:
		store = openStorage(cfg)
		defer store.Close()
		snaps, err = store.LoadSnapshots(ctx, start, end)
		if err != nil {
			slog.Error("failed to load snapshots from cache", "err", err)
			os.Exit(1)
		}
	}

	btCfg := backtest.Config{
		Start:          start,
		End:            end,
		InitialCapital: cfg.Backtest.InitialCapital,
		FillAggression: cfg.Backtest.FillAggression,
		UseRandomFills: cfg.Backtest.UseRandomFills,
		Seed:           cfg.Backtest.Seed,
		ProbFloor:      cfg.Backtest.ProbFloor,
		ProbCap:        cfg.Backtest.ProbCap,
		NoiseFactor:    cfg.Backtest.NoiseFactor,
	}

	engine := backtest.New(policy, btCfg, slog.Default())
	result, err := engine.Run(snaps)
	if err != nil {
		slog.Error("backtest failed", "err", err)
		os.Exit(1)
	}

	if err := notifier.NotifyResult(ctx, result); err != nil {
		slog.Warn("notifier error", "err", err)
	}

	if store != nil {
		if id, err := store.SaveRun(ctx, result); err != nil {
			slog.Warn("run not persisted", "err", err)
		} else {
			slog.Info("run saved", "id", id)
		}
	}

	if csvPrefix != "" {
		exportCSV(csvPrefix, result)
	}
}

// runCollect recolecta histórico real y lo guarda en la cache de snapshots.
func runCollect(ctx context.Context, cfg *config.Config) {
	store := openStorage(cfg)
	defer store.Close()

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)

	colCfg := collector.DefaultConfig()
	colCfg.Days = cfg.Collector.Days
	colCfg.MaxMarkets = cfg.Collector.MaxMarkets
	colCfg.MinLiquidity = cfg.Strategy.MinLiquidity
	colCfg.MinVolume24h = cfg.Strategy.MinVolume24h
	colCfg.MinPrice = cfg.Strategy.MinPrice
	colCfg.MaxPrice = cfg.Strategy.MaxPrice

	c := collector.New(client, client, store, colCfg, slog.Default())
	if _, err := c.Collect(ctx); err != nil {
		slog.Error("collection failed", "err", err)
		os.Exit(1)
	}
}

// runPaper ejecuta el loop de paper trading hasta SIGINT/SIGTERM.
func runPaper(ctx context.Context, cfg *config.Config, policy strategy.Policy) {
	store := openStorage(cfg)
	defer store.Close()

	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)

	trader := paper.New(client, client, store, policy, paper.Config{
		Interval:   cfg.PaperInterval(),
		OrderTTL:   cfg.PaperOrderTTL(),
		MaxMarkets: cfg.Paper.MaxMarkets,
	}, slog.Default())

	if err := trader.Run(ctx); err != nil {
		slog.Error("paper trader exited with error", "err", err)
		os.Exit(1)
	}
}

// runMarkets lista los mercados que pasan los filtros de la estrategia.
func runMarkets(ctx context.Context, cfg *config.Config, notifier *notify.Console) {
	client := polymarket.NewClient(cfg.API.CLOBBase, cfg.API.GammaBase)

	colCfg := collector.DefaultConfig()
	colCfg.MaxMarkets = cfg.Collector.MaxMarkets
	colCfg.MinLiquidity = cfg.Strategy.MinLiquidity
	colCfg.MinVolume24h = cfg.Strategy.MinVolume24h
	colCfg.MinPrice = cfg.Strategy.MinPrice
	colCfg.MaxPrice = cfg.Strategy.MaxPrice

	c := collector.New(client, client, nil, colCfg, slog.Default())
	markets, err := c.FindMarkets(ctx)
	if err != nil {
		slog.Error("market discovery failed", "err", err)
		os.Exit(1)
	}

	if err := notifier.NotifyMarkets(ctx, markets); err != nil {
		slog.Warn("notifier error", "err", err)
	}
}

// listRuns imprime el histórico de runs guardados.
func listRuns(ctx context.Context, cfg *config.Config) {
	store := openStorage(cfg)
	defer store.Close()

	runs, err := store.GetRuns(ctx, 20)
	if err != nil {
		slog.Error("failed to load runs", "err", err)
		os.Exit(1)
	}

	for _, r := range runs {
		slog.Info("run",
			"id", r.ID,
			"at", r.CreatedAt.Format(time.DateTime),
			"strategy", r.StrategyName,
			"return_pct", r.TotalReturnPct*100,
			"trades", r.TotalTrades,
			"sharpe", r.SharpeRatio,
		)
	}
	if len(runs) == 0 {
		slog.Info("no stored runs")
	}
}

func openStorage(cfg *config.Config) *storage.SQLiteStorage {
	store, err := storage.NewSQLiteStorage(cfg.Storage.DSN)
	if err != nil {
		slog.Error("failed to open storage", "err", err, "dsn", cfg.Storage.DSN)
		os.Exit(1)
	}
	return store
}

func exportCSV(prefix string, result *domain.Result) {
	equityPath := prefix + "_equity.csv"
	fillsPath := prefix + "_fills.csv"

	if err := notify.ExportCSV(equityPath, result.EquityRecords()); err != nil {
		slog.Warn("equity export failed", "err", err)
	}
	if err := notify.ExportCSV(fillsPath, result.FillRecords()); err != nil {
		slog.Warn("fills export failed", "err", err)
	}
	slog.Info("csv exported", "equity", equityPath, "fills", fillsPath)
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	} else {
		handler = slog.NewTextHandler(os.Stdout, opts)
	}
	slog.SetDefault(slog.New(handler))
}
