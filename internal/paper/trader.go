package paper

// trader.go — paper trading: la política de market making contra el
// mercado real, con órdenes virtuales que nunca tocan el CLOB.
//
// Cada ciclo:
//   1. Expira las órdenes abiertas que superaron su TTL.
//   2. Comprueba fills de las órdenes abiertas contra el orderbook actual:
//      un bid se considera filled si el best ask bajó hasta su precio, un
//      ask si el best bid subió hasta el suyo (regla de fill cierto — sin
//      componente probabilístico, a diferencia del backtest).
//   3. Pide quotes nuevos a la política y coloca órdenes virtuales.

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/polysim/internal/domain"
	"github.com/alejandrodnm/polysim/internal/ports"
	"github.com/alejandrodnm/polysim/internal/strategy"
)

// Config controla el paper trader.
type Config struct {
	Interval   time.Duration // entre ciclos
	OrderTTL   time.Duration // vida de una orden virtual sin fill
	MaxMarkets int
}

// DefaultConfig devuelve la configuración estándar.
func DefaultConfig() Config {
	return Config{
		Interval:   5 * time.Minute,
		OrderTTL:   time.Hour,
		MaxMarkets: 20,
	}
}

// Trader ejecuta el loop de paper trading.
type Trader struct {
	markets ports.MarketProvider
	books   ports.BookProvider
	store   ports.PaperStorage
	policy  strategy.Policy
	cfg     Config
	logger  *slog.Logger
}

// New crea un paper trader. Un logger nil usa slog.Default().
func New(markets ports.MarketProvider, books ports.BookProvider, store ports.PaperStorage, policy strategy.Policy, cfg Config, logger *slog.Logger) *Trader {
	if cfg.Interval <= 0 {
		cfg.Interval = 5 * time.Minute
	}
	if cfg.OrderTTL <= 0 {
		cfg.OrderTTL = time.Hour
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Trader{
		markets: markets,
		books:   books,
		store:   store,
		policy:  policy,
		cfg:     cfg,
		logger:  logger,
	}
}

// Run ejecuta ciclos hasta que el contexto se cancele.
func (t *Trader) Run(ctx context.Context) error {
	t.logger.Info("paper trader started",
		"interval", t.cfg.Interval,
		"order_ttl", t.cfg.OrderTTL,
	)

	ticker := time.NewTicker(t.cfg.Interval)
	defer ticker.Stop()

	// Primer ciclo inmediato
	if err := t.RunOnce(ctx); err != nil {
		t.logger.Warn("paper cycle failed", "err", err)
	}

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("paper trader stopped")
			return nil
		case <-ticker.C:
			if err := t.RunOnce(ctx); err != nil {
				t.logger.Warn("paper cycle failed", "err", err)
			}
		}
	}
}

// RunOnce ejecuta un ciclo completo de paper trading.
func (t *Trader) RunOnce(ctx context.Context) error {
	now := time.Now().UTC()

	expired, err := t.store.ExpirePaperOrders(ctx, now)
	if err != nil {
		return fmt.Errorf("paper.RunOnce: expire: %w", err)
	}
	if expired > 0 {
		t.logger.Info("orders expired", "count", expired)
	}

	markets, err := t.markets.FetchActiveMarkets(ctx, ports.MarketQuery{Limit: t.cfg.MaxMarkets})
	if err != nil {
		return fmt.Errorf("paper.RunOnce: fetch markets: %w", err)
	}

	byCondition := make(map[string]domain.Market, len(markets))
	tokenIDs := make([]string, 0, len(markets))
	for _, m := range markets {
		byCondition[m.ConditionID] = m
		tokenIDs = append(tokenIDs, m.YesTokenID)
	}

	books, err := t.books.FetchOrderBooks(ctx, tokenIDs)
	if err != nil {
		return fmt.Errorf("paper.RunOnce: fetch books: %w", err)
	}

	fills := t.checkFills(ctx, now, byCondition, books)
	placed := t.placeQuotes(ctx, now, markets, books)

	stats, err := t.store.GetPaperStats(ctx)
	if err != nil {
		t.logger.Warn("stats unavailable", "err", err)
	}

	t.logger.Info("paper cycle complete",
		"markets", len(markets),
		"new_orders", placed,
		"new_fills", fills,
		"open", stats.OpenOrders,
		"filled_total", stats.FilledOrders,
		"volume", fmt.Sprintf("$%.2f", stats.TotalVolume),
	)
	return nil
}

// checkFills comprueba las órdenes abiertas contra los books actuales y
// aplica los fills al inventario de la política.
func (t *Trader) checkFills(ctx context.Context, now time.Time, markets map[string]domain.Market, books map[string]domain.OrderBook) int {
	open, err := t.store.GetOpenPaperOrders(ctx)
	if err != nil {
		t.logger.Warn("open orders unavailable", "err", err)
		return 0
	}

	fills := 0
	for _, order := range open {
		m, ok := markets[order.MarketID]
		if !ok {
			continue
		}
		book, ok := books[m.YesTokenID]
		if !ok {
			continue
		}

		if !orderCrossed(order, book) {
			continue
		}

		if err := t.store.MarkPaperOrderFilled(ctx, order.ID, now, order.Price); err != nil {
			t.logger.Warn("fill not recorded", "order", order.ID, "err", err)
			continue
		}

		inv := t.policy.Inventory(order.MarketID)
		if order.Side == domain.SideBuy {
			inv.Add(order.Size, order.Price)
		} else {
			inv.Remove(order.Size)
		}
		fills++

		t.logger.Info("virtual fill",
			"market", domain.TruncateQuestion(order.Question, order.MarketID, 40),
			"side", order.Side,
			"price", order.Price,
			"size", fmt.Sprintf("%.2f", order.Size),
		)
	}
	return fills
}

// orderCrossed aplica la regla de fill cierto: el mercado tiene que haber
// cruzado el precio de la orden, no solo tocarlo.
func orderCrossed(order domain.VirtualOrder, book domain.OrderBook) bool {
	if order.Side == domain.SideBuy {
		ask := book.BestAsk()
		return ask > 0 && ask <= order.Price
	}
	bid := book.BestBid()
	return bid > 0 && bid >= order.Price
}

// placeQuotes pide quotes a la política para cada mercado y coloca las
// órdenes virtuales resultantes.
func (t *Trader) placeQuotes(ctx context.Context, now time.Time, markets []domain.Market, books map[string]domain.OrderBook) int {
	placed := 0
	for _, m := range markets {
		price := m.YesPrice
		if book, ok := books[m.YesTokenID]; ok {
			if mid := book.Midpoint(); mid > 0 {
				price = mid
			}
		}

		snap := m.Snapshot(now, price)
		quote := t.policy.GenerateQuote(snap, now)
		if quote.SkipReason != "" {
			t.logger.Debug("market skipped",
				"market", domain.TruncateQuestion(m.Question, m.ConditionID, 40),
				"reason", quote.SkipReason,
			)
			continue
		}

		if quote.HasBid() {
			if t.placeOrder(ctx, now, m, domain.SideBuy, quote.BidPrice, quote.BidSize) {
				placed++
			}
		}
		if quote.HasAsk() {
			if t.placeOrder(ctx, now, m, domain.SideSell, quote.AskPrice, quote.AskSize) {
				placed++
			}
		}
	}
	return placed
}

func (t *Trader) placeOrder(ctx context.Context, now time.Time, m domain.Market, side string, price, size float64) bool {
	order := domain.VirtualOrder{
		ID:        uuid.NewString(),
		MarketID:  m.ConditionID,
		Question:  m.Question,
		Side:      side,
		Price:     price,
		Size:      size,
		Status:    domain.OrderOpen,
		CreatedAt: now,
		ExpiresAt: now.Add(t.cfg.OrderTTL),
	}

	if err := t.store.SavePaperOrder(ctx, order); err != nil {
		t.logger.Warn("order not placed", "market", m.ConditionID, "err", err)
		return false
	}

	t.logger.Debug("virtual order placed",
		"market", domain.TruncateQuestion(m.Question, m.ConditionID, 40),
		"side", side,
		"price", price,
		"size", fmt.Sprintf("%.2f", size),
	)
	return true
}
