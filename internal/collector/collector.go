package collector

// collector.go — recolección de snapshots históricos desde Polymarket.
//
// El collector junta dos fuentes: metadata de mercados desde Gamma y la serie
// de precios del token YES desde el CLOB. Cada punto de precio se convierte
// en un MarketSnapshot con la metadata del mercado congelada (Gamma no
// publica liquidez histórica, así que se usa la actual).

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
	"github.com/alejandrodnm/polysim/internal/ports"
)

// Config controla la recolección.
type Config struct {
	Days         int     // días de histórico a recolectar
	MaxMarkets   int     // máximo de mercados; 0 = sin límite
	MinLiquidity float64 // filtro server-side en Gamma
	MinVolume24h float64
	MinPrice     float64 // banda de precio client-side
	MaxPrice     float64
}

// DefaultConfig devuelve la configuración estándar de recolección.
func DefaultConfig() Config {
	return Config{
		Days:         30,
		MaxMarkets:   50,
		MinLiquidity: 5000,
		MinVolume24h: 10000,
		MinPrice:     0.10,
		MaxPrice:     0.90,
	}
}

// Collector recolecta snapshots y los persiste.
type Collector struct {
	markets ports.MarketProvider
	history ports.HistoryProvider
	store   ports.SnapshotStore
	cfg     Config
	logger  *slog.Logger
}

// New crea un collector. Un store nil desactiva la persistencia (los
// snapshots solo se devuelven al caller). Un logger nil usa slog.Default().
func New(markets ports.MarketProvider, history ports.HistoryProvider, store ports.SnapshotStore, cfg Config, logger *slog.Logger) *Collector {
	if logger == nil {
		logger = slog.Default()
	}
	return &Collector{
		markets: markets,
		history: history,
		store:   store,
		cfg:     cfg,
		logger:  logger,
	}
}

// FindMarkets devuelve los mercados candidatos que pasan todos los filtros.
func (c *Collector) FindMarkets(ctx context.Context) ([]domain.Market, error) {
	query := ports.MarketQuery{
		MinLiquidity: c.cfg.MinLiquidity,
		MinVolume:    c.cfg.MinVolume24h,
	}

	markets, err := c.markets.FetchActiveMarkets(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("collector.FindMarkets: %w", err)
	}

	filtered := make([]domain.Market, 0, len(markets))
	for _, m := range markets {
		if m.YesPrice < c.cfg.MinPrice || m.YesPrice > c.cfg.MaxPrice {
			continue
		}
		if m.Closed || m.Resolved() {
			continue
		}
		filtered = append(filtered, m)
		if c.cfg.MaxMarkets > 0 && len(filtered) >= c.cfg.MaxMarkets {
			break
		}
	}

	c.logger.Info("markets filtered",
		"fetched", len(markets),
		"candidates", len(filtered),
	)
	return filtered, nil
}

// Collect recolecta el histórico de precios de los mercados candidatos y lo
// convierte en snapshots. Los mercados cuyo histórico falla se saltan con un
// warning; solo falla si ningún mercado produce datos.
func (c *Collector) Collect(ctx context.Context) ([]domain.MarketSnapshot, error) {
	markets, err := c.FindMarkets(ctx)
	if err != nil {
		return nil, fmt.Errorf("collector.Collect: %w", err)
	}

	now := time.Now().UTC()
	from := now.AddDate(0, 0, -c.cfg.Days)

	var snaps []domain.MarketSnapshot
	failed := 0

	for _, m := range markets {
		points, err := c.history.FetchPriceHistory(ctx, m.YesTokenID, from, now)
		if err != nil {
			c.logger.Warn("price history failed, skipping market",
				"market", m.ConditionID,
				"err", err,
			)
			failed++
			continue
		}
		if len(points) == 0 {
			continue
		}

		for _, p := range points {
			snaps = append(snaps, m.Snapshot(p.Timestamp, p.Price))
		}

		c.logger.Debug("market collected",
			"market", m.ConditionID,
			"points", len(points),
		)
	}

	if len(snaps) == 0 {
		return nil, fmt.Errorf("collector.Collect: %w (markets=%d failed=%d)",
			domain.ErrNoData, len(markets), failed)
	}

	domain.SortSnapshots(snaps)

	if c.store != nil {
		if err := c.store.SaveSnapshots(ctx, snaps); err != nil {
			return nil, fmt.Errorf("collector.Collect: persist: %w", err)
		}
	}

	c.logger.Info("collection complete",
		"markets", len(markets)-failed,
		"snapshots", len(snaps),
		"from", from.Format("2006-01-02"),
		"to", now.Format("2006-01-02"),
	)
	return snaps, nil
}
