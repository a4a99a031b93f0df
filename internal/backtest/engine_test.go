package backtest_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polysim/internal/backtest"
	"github.com/alejandrodnm/polysim/internal/domain"
	"github.com/alejandrodnm/polysim/internal/strategy"
)

var day1 = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

// --- stub policy ---

// stubPolicy devuelve quotes fijos (o una secuencia, uno por llamada) y
// permite sembrar inventario inicial, para probar el engine sin depender de
// la lógica de la política real.
type stubPolicy struct {
	quote     domain.QuoteResult
	sequence  []domain.QuoteResult
	calls     int
	risk      bool
	inventory map[string]*domain.InventoryState
	seed      func() map[string]*domain.InventoryState
}

func (s *stubPolicy) Name() string { return "stub" }

func (s *stubPolicy) Reset() {
	s.calls = 0
	if s.seed != nil {
		s.inventory = s.seed()
		return
	}
	s.inventory = make(map[string]*domain.InventoryState)
}

func (s *stubPolicy) GenerateQuote(_ domain.MarketSnapshot, _ time.Time) domain.QuoteResult {
	defer func() { s.calls++ }()
	if len(s.sequence) > 0 {
		if s.calls < len(s.sequence) {
			return s.sequence[s.calls]
		}
		return s.sequence[len(s.sequence)-1]
	}
	return s.quote
}

func (s *stubPolicy) CheckRisk(_ domain.MarketSnapshot, _ time.Time) bool { return s.risk }

func (s *stubPolicy) Inventory(marketID string) *domain.InventoryState {
	inv, ok := s.inventory[marketID]
	if !ok {
		inv = &domain.InventoryState{}
		s.inventory[marketID] = inv
	}
	return inv
}

func (s *stubPolicy) OpenPositions() map[string]*domain.InventoryState {
	open := make(map[string]*domain.InventoryState)
	for id, inv := range s.inventory {
		if inv.Position > 0 {
			open[id] = inv
		}
	}
	return open
}

func (s *stubPolicy) Volatility(_ string) float64 { return 0 }

// --- helpers ---

func snap(marketID string, ts time.Time, price float64) domain.MarketSnapshot {
	return domain.MarketSnapshot{
		Timestamp: ts,
		MarketID:  marketID,
		YesPrice:  price,
		NoPrice:   1 - price,
		Volume24h: 50000,
		Liquidity: 20000,
	}
}

func detConfig() backtest.Config {
	cfg := backtest.DefaultConfig()
	cfg.UseRandomFills = false
	cfg.Seed = 1
	return cfg
}

// --- tests ---

func TestRunNoData(t *testing.T) {
	engine := backtest.New(&stubPolicy{}, detConfig(), nil)
	_, err := engine.Run(nil)
	require.ErrorIs(t, err, domain.ErrNoData)
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := detConfig()
	cfg.InitialCapital = -5
	engine := backtest.New(&stubPolicy{}, cfg, nil)
	_, err := engine.Run([]domain.MarketSnapshot{snap("m1", day1, 0.5)})
	require.Error(t, err)
}

func TestBidFillOnPriceDrop(t *testing.T) {
	// Bid fijo en 0.35: el día 1 (precio 0.40) no cruza, el día 2 el precio
	// cae a 0.30 y el fill es seguro.
	policy := &stubPolicy{
		quote: domain.QuoteResult{BidPrice: 0.35, BidSize: 10},
	}
	snaps := []domain.MarketSnapshot{
		snap("m1", day1, 0.40),
		snap("m1", day1.AddDate(0, 0, 1), 0.30),
	}

	engine := backtest.New(policy, detConfig(), nil)
	result, err := engine.Run(snaps)
	require.NoError(t, err)

	require.Len(t, result.Fills, 1)
	fill := result.Fills[0]
	assert.Equal(t, domain.SideBuy, fill.Side)
	assert.Equal(t, 0.35, fill.Price)
	assert.Equal(t, 10.0, fill.Size)
	assert.Zero(t, fill.Fee) // preset político: sin rebate

	// 2 quotes colocados (uno por día), 1 fill
	assert.InDelta(t, 0.5, result.FillRate, 1e-9)
	assert.Equal(t, 1, result.MarketsTraded)
	assert.InDelta(t, 3.5, result.TotalVolume, 1e-9)

	// Cierre final al último precio con slippage de pánico:
	// 1000 − 3.5 + 10 × 0.30 × 0.995
	assert.InDelta(t, 1000-3.5+10*0.30*0.995, result.FinalCapital, 1e-9)
}

func TestResolutionExit(t *testing.T) {
	// Mercado resuelto YES con 10 contratos a 0.40: la fase 1 cierra a 1.0
	// sin fee, realizando pnl = (1.0 − 0.40) × 10 = 6.0.
	policy := &stubPolicy{
		seed: func() map[string]*domain.InventoryState {
			inv := &domain.InventoryState{}
			inv.Add(10, 0.40)
			return map[string]*domain.InventoryState{"m1": inv}
		},
	}

	resolved := snap("m1", day1, 0.99)
	resolved.Resolved = true
	resolved.Resolution = "YES"

	engine := backtest.New(policy, detConfig(), nil)
	result, err := engine.Run([]domain.MarketSnapshot{resolved})
	require.NoError(t, err)

	require.Len(t, result.Fills, 1)
	fill := result.Fills[0]
	assert.Equal(t, domain.SideSell, fill.Side)
	assert.Equal(t, 1.0, fill.Price)
	assert.Zero(t, fill.Fee)
	assert.InDelta(t, 6.0, fill.SpreadCaptured, 1e-9)

	assert.InDelta(t, 6.0, result.TotalSpreadCaptured, 1e-9)
	assert.InDelta(t, 1010.0, result.FinalCapital, 1e-9)
	assert.Zero(t, policy.Inventory("m1").Position)
}

func TestResolutionExitNo(t *testing.T) {
	policy := &stubPolicy{
		seed: func() map[string]*domain.InventoryState {
			inv := &domain.InventoryState{}
			inv.Add(10, 0.40)
			return map[string]*domain.InventoryState{"m1": inv}
		},
	}

	resolved := snap("m1", day1, 0.01)
	resolved.Resolved = true
	resolved.Resolution = "NO"

	engine := backtest.New(policy, detConfig(), nil)
	result, err := engine.Run([]domain.MarketSnapshot{resolved})
	require.NoError(t, err)

	// Salida a 0.0: pérdida total del cost basis, no suma spread capturado
	require.Len(t, result.Fills, 1)
	assert.Equal(t, 0.0, result.Fills[0].Price)
	assert.InDelta(t, -4.0, result.Fills[0].SpreadCaptured, 1e-9)
	assert.Zero(t, result.TotalSpreadCaptured)
	assert.Equal(t, 1, result.LosingTrades)
	// El exit a 0.0 no aporta capital: la posición sembrada se pierde entera
	assert.InDelta(t, 1000.0, result.FinalCapital, 1e-9)
}

func TestStopLossExit(t *testing.T) {
	// CheckRisk dispara: salida taker con slippage de pánico.
	policy := &stubPolicy{
		risk: true,
		seed: func() map[string]*domain.InventoryState {
			inv := &domain.InventoryState{}
			inv.Add(10, 0.50)
			return map[string]*domain.InventoryState{"m1": inv}
		},
	}

	engine := backtest.New(policy, detConfig(), nil)
	result, err := engine.Run([]domain.MarketSnapshot{snap("m1", day1, 0.40)})
	require.NoError(t, err)

	require.Len(t, result.Fills, 1)
	fill := result.Fills[0]
	exitPrice := 0.40 * (1 - 0.005)
	assert.Equal(t, domain.SideSell, fill.Side)
	assert.InDelta(t, exitPrice, fill.Price, 1e-9)
	assert.InDelta(t, (exitPrice-0.50)*10, fill.SpreadCaptured, 1e-9)

	assert.InDelta(t, 1000+exitPrice*10, result.FinalCapital, 1e-9)
	assert.Zero(t, policy.Inventory("m1").Position)
}

func TestStopLossTakerFee(t *testing.T) {
	// Con el preset crypto la salida de stop-loss paga taker fee.
	policy := &stubPolicy{
		risk: true,
		seed: func() map[string]*domain.InventoryState {
			inv := &domain.InventoryState{}
			inv.Add(10, 0.50)
			return map[string]*domain.InventoryState{"m1": inv}
		},
	}

	cfg := detConfig()
	fees := domain.FeeCrypto
	cfg.Fees = &fees

	engine := backtest.New(policy, cfg, nil)
	result, err := engine.Run([]domain.MarketSnapshot{snap("m1", day1, 0.40)})
	require.NoError(t, err)

	exitPrice := 0.40 * (1 - 0.005)
	expectedFee := domain.FeeCrypto.TakerFee(exitPrice) * exitPrice * 10

	require.Len(t, result.Fills, 1)
	assert.InDelta(t, expectedFee, result.Fills[0].Fee, 1e-12)
	assert.InDelta(t, 1000+exitPrice*10-expectedFee, result.FinalCapital, 1e-9)
}

func TestMakerRebateOnFill(t *testing.T) {
	// Fill maker con preset sports: el fee del fill es −rebate (ingreso).
	policy := &stubPolicy{
		quote: domain.QuoteResult{BidPrice: 0.35, BidSize: 10},
	}
	snaps := []domain.MarketSnapshot{
		snap("m1", day1, 0.40),
		snap("m1", day1.AddDate(0, 0, 1), 0.30),
	}

	cfg := detConfig()
	fees := domain.FeeSports
	cfg.Fees = &fees

	engine := backtest.New(policy, cfg, nil)
	result, err := engine.Run(snaps)
	require.NoError(t, err)

	require.Len(t, result.Fills, 1)
	rebate := domain.FeeSports.MakerRebate(0.35) * 0.35 * 10
	assert.InDelta(t, -rebate, result.Fills[0].Fee, 1e-12)
	assert.InDelta(t, rebate, result.TotalMakerRebates, 1e-12)
}

func TestAskFillCapturesSpread(t *testing.T) {
	// Compra a 0.35, luego el precio sube y la venta a 0.45 cruza:
	// spread capturado = (0.45 − 0.35) × 10 = 1.0.
	policy := &stubPolicy{
		sequence: []domain.QuoteResult{
			{BidPrice: 0.35, BidSize: 10},
			{BidPrice: 0.35, BidSize: 10},
			{AskPrice: 0.45, AskSize: 10},
		},
	}
	snaps := []domain.MarketSnapshot{
		snap("m1", day1, 0.40),
		snap("m1", day1.AddDate(0, 0, 1), 0.30), // bid fills
		snap("m1", day1.AddDate(0, 0, 2), 0.50), // ask fills
	}

	engine := backtest.New(policy, detConfig(), nil)
	result, err := engine.Run(snaps)
	require.NoError(t, err)

	require.Len(t, result.Fills, 2)
	sell := result.Fills[1]
	assert.Equal(t, domain.SideSell, sell.Side)
	assert.InDelta(t, 1.0, sell.SpreadCaptured, 1e-9)
	assert.InDelta(t, 1.0, result.TotalSpreadCaptured, 1e-9)
	assert.Equal(t, 1, result.WinningTrades)
	assert.Equal(t, 1.0, result.WinRate)

	// Posición cerrada: el capital final no depende de ningún cierre forzado
	assert.InDelta(t, 1000-3.5+4.5, result.FinalCapital, 1e-9)
}

func TestInsufficientCapitalSkipsBid(t *testing.T) {
	policy := &stubPolicy{
		quote: domain.QuoteResult{BidPrice: 0.35, BidSize: 10},
	}
	cfg := detConfig()
	cfg.InitialCapital = 2 // el bid cuesta 3.5

	snaps := []domain.MarketSnapshot{
		snap("m1", day1, 0.40),
		snap("m1", day1.AddDate(0, 0, 1), 0.30),
	}

	engine := backtest.New(policy, cfg, nil)
	result, err := engine.Run(snaps)
	require.NoError(t, err)

	assert.Empty(t, result.Fills)
	assert.InDelta(t, 2.0, result.FinalCapital, 1e-9)
}

func TestDrawdownMonotone(t *testing.T) {
	synCfg := backtest.DefaultSyntheticConfig()
	synCfg.Seed = 99
	synCfg.NumMarkets = 10
	synCfg.Days = 60
	snaps := backtest.GenerateSynthetic(synCfg)

	cfg := backtest.DefaultConfig()
	cfg.Seed = 99
	engine := backtest.New(strategy.NewMarketMaking(strategy.DefaultParams()), cfg, nil)
	result, err := engine.Run(snaps)
	require.NoError(t, err)
	require.NotEmpty(t, result.EquityCurve)

	// El max drawdown del resultado es el máximo de la curva, y cada
	// drawdown puntual es no negativo.
	var maxSeen float64
	for _, p := range result.EquityCurve {
		assert.GreaterOrEqual(t, p.Drawdown, 0.0)
		if p.Drawdown > maxSeen {
			maxSeen = p.Drawdown
		}
	}
	assert.InDelta(t, maxSeen, result.MaxDrawdown, 1e-9)
}

func TestDeterministicRoundTrip(t *testing.T) {
	synCfg := backtest.DefaultSyntheticConfig()
	synCfg.Seed = 7
	synCfg.NumMarkets = 15
	synCfg.Days = 45
	snaps := backtest.GenerateSynthetic(synCfg)

	run := func() *domain.Result {
		cfg := backtest.DefaultConfig()
		cfg.Seed = 7
		engine := backtest.New(strategy.NewMarketMaking(strategy.DefaultParams()), cfg, nil)
		result, err := engine.Run(snaps)
		require.NoError(t, err)
		return result
	}

	a, b := run(), run()
	assert.Equal(t, a.EquityCurve, b.EquityCurve)
	assert.Equal(t, a.Fills, b.Fills)
	assert.Equal(t, a.FinalCapital, b.FinalCapital)
}

func TestSharpeNeedsThreeDays(t *testing.T) {
	policy := &stubPolicy{}
	snaps := []domain.MarketSnapshot{
		snap("m1", day1, 0.40),
		snap("m1", day1.AddDate(0, 0, 1), 0.41),
	}

	engine := backtest.New(policy, detConfig(), nil)
	result, err := engine.Run(snaps)
	require.NoError(t, err)
	assert.Zero(t, result.SharpeRatio)
}

func TestProfitFactorInfWithoutLosses(t *testing.T) {
	policy := &stubPolicy{
		sequence: []domain.QuoteResult{
			{BidPrice: 0.35, BidSize: 10},
			{BidPrice: 0.35, BidSize: 10},
			{AskPrice: 0.45, AskSize: 10},
		},
	}
	snaps := []domain.MarketSnapshot{
		snap("m1", day1, 0.40),
		snap("m1", day1.AddDate(0, 0, 1), 0.30),
		snap("m1", day1.AddDate(0, 0, 2), 0.50),
	}

	engine := backtest.New(policy, detConfig(), nil)
	result, err := engine.Run(snaps)
	require.NoError(t, err)
	assert.True(t, result.ProfitFactor > 1e18) // +Inf sin trades perdedores
}

func TestDateRangeFilter(t *testing.T) {
	policy := &stubPolicy{}
	cfg := detConfig()
	cfg.Start = day1.AddDate(0, 0, 5)

	snaps := []domain.MarketSnapshot{snap("m1", day1, 0.40)}
	engine := backtest.New(policy, cfg, nil)
	_, err := engine.Run(snaps)
	require.ErrorIs(t, err, domain.ErrNoData)
}
