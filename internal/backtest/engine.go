package backtest

// engine.go — motor de backtest de market making sobre snapshots discretos.
//
// El loop procesa los snapshots agrupados por día natural en tres fases:
//   Fase 1: barrido de mercados resueltos y stop-losses (salidas forzadas).
//   Fase 2: generación de quotes y simulación de fills maker.
//   Fase 3: mark-to-market y registro de la curva de equity.
// Al acabar el último día, las posiciones abiertas se cierran al último
// precio conocido con slippage de pánico.
//
// El motor es single-threaded y determinista para una misma config con
// seed fija: mismo input → mismo Result, byte a byte.

import (
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
	"github.com/alejandrodnm/polysim/internal/strategy"
)

// panicSlippage es el descuento aplicado a salidas forzadas (stop-loss y
// cierre final): se asume que vender con prisa cruza el spread.
const panicSlippage = 0.005

// Config controla un run de backtest.
type Config struct {
	// Rango de fechas (inclusive). Zero = sin límite por ese extremo.
	Start time.Time
	End   time.Time

	InitialCapital float64

	// Simulación de fills
	FillAggression float64 // 0 = conservador, 1 = agresivo
	UseRandomFills bool    // false = fills deterministas (prob > 0.5)
	Seed           int64   // 0 = seed desde el reloj

	// Calibración del modelo probabilístico de fills. Son heurísticas sin
	// derivación formal; se exponen para poder estresarlas.
	ProbFloor   float64
	ProbCap     float64
	NoiseFactor float64 // fracción de la volatilidad usada como ruido intra-período

	// Fees sobreescribe la curva de fees de la política si no es nil.
	Fees *domain.FeeConfig
}

// DefaultConfig devuelve la configuración estándar de backtest.
func DefaultConfig() Config {
	return Config{
		InitialCapital: 1000,
		FillAggression: 0.5,
		UseRandomFills: true,
		ProbFloor:      0.05,
		ProbCap:        0.80,
		NoiseFactor:    0.5,
	}
}

// Validate comprueba que la config es ejecutable.
func (c Config) Validate() error {
	if c.InitialCapital <= 0 {
		return fmt.Errorf("initial capital must be > 0, got %.2f", c.InitialCapital)
	}
	if c.FillAggression < 0 || c.FillAggression > 1 {
		return fmt.Errorf("fill aggression must be in [0,1], got %.2f", c.FillAggression)
	}
	if c.ProbFloor > c.ProbCap {
		return fmt.Errorf("prob floor %.2f > prob cap %.2f", c.ProbFloor, c.ProbCap)
	}
	if !c.Start.IsZero() && !c.End.IsZero() && c.End.Before(c.Start) {
		return fmt.Errorf("end date %s before start date %s",
			c.End.Format("2006-01-02"), c.Start.Format("2006-01-02"))
	}
	return nil
}

// Engine ejecuta backtests de market making sobre un stream de snapshots.
type Engine struct {
	cfg    Config
	policy strategy.Policy
	logger *slog.Logger
}

// New crea un engine con la política y config dadas.
// Un logger nil usa slog.Default().
func New(policy strategy.Policy, cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{cfg: cfg, policy: policy, logger: logger}
}

// runState es el estado mutable de un run, separado del Engine para que
// runs sucesivos no se contaminen.
type runState struct {
	capital    float64
	prevPrices map[string]float64

	spreadCaptured float64
	makerRebates   float64
	volumeTraded   float64
	tradesByMarket map[string]int

	fills       []domain.FillEvent
	totalQuotes int
	totalFills  int

	equityCurve    []domain.EquityPoint
	peakEquity     float64
	maxDrawdown    float64
	maxDrawdownPct float64
	exposureDays   int
	totalDays      int
}

// Run ejecuta el backtest completo sobre los snapshots dados.
// Devuelve domain.ErrNoData (envuelto) si no hay snapshots en el rango.
func (e *Engine) Run(snaps []domain.MarketSnapshot) (*domain.Result, error) {
	if err := e.cfg.Validate(); err != nil {
		return nil, fmt.Errorf("backtest.Run: invalid config: %w", err)
	}

	e.policy.Reset()

	fees := domain.FeePolitical
	if fp, ok := e.policy.(interface{ Fees() domain.FeeConfig }); ok {
		fees = fp.Fees()
	}
	if e.cfg.Fees != nil {
		fees = *e.cfg.Fees
	}

	seed := e.cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sim := &fillSimulator{
		aggression: e.cfg.FillAggression,
		probFloor:  e.cfg.ProbFloor,
		probCap:    e.cfg.ProbCap,
		random:     e.cfg.UseRandomFills,
		rng:        rand.New(rand.NewSource(seed)),
	}

	filtered := e.filterRange(snaps)
	if len(filtered) == 0 {
		return nil, fmt.Errorf("backtest.Run: %w in range [%s, %s]",
			domain.ErrNoData,
			e.cfg.Start.Format("2006-01-02"), e.cfg.End.Format("2006-01-02"))
	}
	domain.SortSnapshots(filtered)

	byMarket := domain.GroupByMarket(filtered)
	days, byDay := groupByDay(filtered)

	e.logger.Info("backtest started",
		"strategy", e.policy.Name(),
		"snapshots", len(filtered),
		"markets", len(byMarket),
		"days", len(days),
		"capital", e.cfg.InitialCapital,
		"seed", seed,
	)

	st := &runState{
		capital:        e.cfg.InitialCapital,
		prevPrices:     make(map[string]float64),
		tradesByMarket: make(map[string]int),
		peakEquity:     e.cfg.InitialCapital,
	}

	for _, day := range days {
		daySnaps := byDay[day]
		st.totalDays++

		e.sweepExits(st, daySnaps, fees)
		e.quoteAndFill(st, daySnaps, fees, sim)
		e.markToMarket(st, day, daySnaps)
	}

	e.closeRemaining(st, byMarket)

	result := e.buildResult(st, days)
	e.logger.Info("backtest finished",
		"final_capital", fmt.Sprintf("%.2f", result.FinalCapital),
		"return_pct", fmt.Sprintf("%.2f%%", result.TotalReturnPct*100),
		"trades", result.TotalTrades,
		"fill_rate", fmt.Sprintf("%.1f%%", result.FillRate*100),
	)
	return result, nil
}

// filterRange devuelve los snapshots dentro de [Start, End] (inclusive).
func (e *Engine) filterRange(snaps []domain.MarketSnapshot) []domain.MarketSnapshot {
	out := make([]domain.MarketSnapshot, 0, len(snaps))
	for _, s := range snaps {
		if !e.cfg.Start.IsZero() && s.Timestamp.Before(e.cfg.Start) {
			continue
		}
		if !e.cfg.End.IsZero() && s.Timestamp.After(e.cfg.End) {
			continue
		}
		out = append(out, s)
	}
	return out
}

// groupByDay agrupa snapshots por día natural UTC, preservando el orden
// temporal dentro de cada día. Devuelve los días ordenados.
func groupByDay(snaps []domain.MarketSnapshot) ([]time.Time, map[time.Time][]domain.MarketSnapshot) {
	byDay := make(map[time.Time][]domain.MarketSnapshot)
	for _, s := range snaps {
		t := s.Timestamp.UTC()
		day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		byDay[day] = append(byDay[day], s)
	}
	days := make([]time.Time, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].Before(days[j]) })
	return days, byDay
}

// sweepExits es la fase 1: liquida posiciones en mercados resueltos al
// precio de resolución (1.0 o 0.0, sin fee) y ejecuta stop-losses como
// salidas taker con slippage de pánico.
func (e *Engine) sweepExits(st *runState, daySnaps []domain.MarketSnapshot, fees domain.FeeConfig) {
	for _, snap := range daySnaps {
		inv := e.policy.Inventory(snap.MarketID)

		if snap.Resolved && inv.Position > 0 {
			exitPrice := 0.0
			if snap.Resolution == "YES" {
				exitPrice = 1.0
			}
			pnl := (exitPrice - inv.AvgPrice) * inv.Position
			st.capital += exitPrice * inv.Position
			st.fills = append(st.fills, domain.FillEvent{
				Timestamp:      snap.Timestamp,
				MarketID:       snap.MarketID,
				Side:           domain.SideSell,
				Price:          exitPrice,
				Size:           inv.Position,
				Fee:            0,
				SpreadCaptured: pnl,
			})
			st.spreadCaptured += math.Max(0, pnl)
			inv.Clear()

			e.logger.Debug("resolution exit",
				"market", snap.MarketID,
				"resolution", snap.Resolution,
				"pnl", fmt.Sprintf("%.4f", pnl),
			)
			continue
		}

		if e.policy.CheckRisk(snap, snap.Timestamp) {
			exitPrice := snap.YesPrice * (1 - panicSlippage)
			size := inv.Position
			pnl := (exitPrice - inv.AvgPrice) * size
			fee := fees.TakerFee(exitPrice) * exitPrice * size
			st.capital += exitPrice*size - fee
			st.fills = append(st.fills, domain.FillEvent{
				Timestamp:      snap.Timestamp,
				MarketID:       snap.MarketID,
				Side:           domain.SideSell,
				Price:          exitPrice,
				Size:           size,
				Fee:            fee,
				SpreadCaptured: pnl,
			})
			inv.Clear()
			st.totalFills++

			e.logger.Debug("stop-loss exit",
				"market", snap.MarketID,
				"exit_price", fmt.Sprintf("%.4f", exitPrice),
				"pnl", fmt.Sprintf("%.4f", pnl),
			)
		}
	}
}

// quoteAndFill es la fase 2: pide quotes a la política para cada snapshot
// no resuelto y simula los fills maker contra el rango de precios del
// período (precio anterior → actual, ensanchado por ruido de volatilidad).
func (e *Engine) quoteAndFill(st *runState, daySnaps []domain.MarketSnapshot, fees domain.FeeConfig, sim *fillSimulator) {
	for _, snap := range daySnaps {
		id := snap.MarketID

		if snap.Resolved {
			st.prevPrices[id] = snap.YesPrice
			continue
		}

		quote := e.policy.GenerateQuote(snap, snap.Timestamp)
		if quote.SkipReason != "" {
			st.prevPrices[id] = snap.YesPrice
			continue
		}

		prev, ok := st.prevPrices[id]
		if !ok {
			prev = snap.YesPrice
		}
		curr := snap.YesPrice

		vol := e.policy.Volatility(id)
		noise := vol * e.cfg.NoiseFactor
		periodLow := math.Min(prev, curr) - noise
		periodHigh := math.Max(prev, curr) + noise

		inv := e.policy.Inventory(id)

		if quote.HasBid() {
			st.totalQuotes++
			cost := quote.BidPrice * quote.BidSize
			if cost <= st.capital && sim.wouldFill(domain.SideBuy, quote.BidPrice, periodLow, periodHigh, prev, curr) {
				rebate := fees.MakerRebate(quote.BidPrice) * cost
				st.capital += rebate - cost
				inv.Add(quote.BidSize, quote.BidPrice)
				st.makerRebates += rebate
				st.volumeTraded += cost
				st.tradesByMarket[id]++
				st.fills = append(st.fills, domain.FillEvent{
					Timestamp: snap.Timestamp,
					MarketID:  id,
					Side:      domain.SideBuy,
					Price:     quote.BidPrice,
					Size:      quote.BidSize,
					Fee:       -rebate,
				})
				st.totalFills++
			}
		}

		if quote.HasAsk() && inv.Position > 0 {
			st.totalQuotes++
			sellContracts := math.Min(quote.AskSize, inv.Position)
			proceeds := quote.AskPrice * sellContracts
			if sim.wouldFill(domain.SideSell, quote.AskPrice, periodLow, periodHigh, prev, curr) {
				rebate := fees.MakerRebate(quote.AskPrice) * proceeds
				spreadEarned := (quote.AskPrice - inv.AvgPrice) * sellContracts
				st.capital += proceeds + rebate
				inv.Remove(sellContracts)
				st.makerRebates += rebate
				st.spreadCaptured += math.Max(0, spreadEarned)
				st.volumeTraded += proceeds
				st.fills = append(st.fills, domain.FillEvent{
					Timestamp:      snap.Timestamp,
					MarketID:       id,
					Side:           domain.SideSell,
					Price:          quote.AskPrice,
					Size:           sellContracts,
					Fee:            -rebate,
					SpreadCaptured: spreadEarned,
				})
				st.totalFills++
			}
		}

		st.prevPrices[id] = curr
	}
}

// markToMarket es la fase 3: valora las posiciones abiertas al último precio
// del día y registra el punto de equity con su drawdown.
func (e *Engine) markToMarket(st *runState, day time.Time, daySnaps []domain.MarketSnapshot) {
	lastInDay := make(map[string]float64)
	for _, s := range daySnaps {
		lastInDay[s.MarketID] = s.YesPrice
	}

	open := e.policy.OpenPositions()
	equity := st.capital
	for _, id := range sortedKeys(open) {
		inv := open[id]
		price, ok := lastInDay[id]
		if !ok {
			price = inv.AvgPrice
		}
		equity += price * inv.Position
	}

	if len(open) > 0 {
		st.exposureDays++
	}

	if equity > st.peakEquity {
		st.peakEquity = equity
	}
	drawdown := st.peakEquity - equity
	drawdownPct := 0.0
	if st.peakEquity > 0 {
		drawdownPct = drawdown / st.peakEquity
	}
	if drawdown > st.maxDrawdown {
		st.maxDrawdown = drawdown
		st.maxDrawdownPct = drawdownPct
	}

	st.equityCurve = append(st.equityCurve, domain.EquityPoint{
		Date:      day,
		Equity:    equity,
		Drawdown:  drawdown,
		Positions: len(open),
	})
}

// closeRemaining liquida las posiciones que siguen abiertas al acabar el run,
// al último precio conocido del mercado con slippage de pánico. No genera
// FillEvent: es una valoración de cierre, no un trade simulado.
func (e *Engine) closeRemaining(st *runState, byMarket map[string][]domain.MarketSnapshot) {
	open := e.policy.OpenPositions()
	for _, id := range sortedKeys(open) {
		inv := open[id]
		exitPrice := inv.AvgPrice
		if ms := byMarket[id]; len(ms) > 0 {
			exitPrice = ms[len(ms)-1].YesPrice * (1 - panicSlippage)
		}
		st.capital += exitPrice * inv.Position
		inv.Clear()
	}
}

// sortedKeys devuelve las claves del mapa ordenadas, para que la suma de
// floats sea estable entre runs.
func sortedKeys(m map[string]*domain.InventoryState) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
