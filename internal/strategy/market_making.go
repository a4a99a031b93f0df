package strategy

// market_making.go — política de market making para mercados binarios.
//
// Cotiza bid+ask alrededor del mid para capturar spread:
// 1. Filtros: liquidez, volumen 24h, banda de precio, volatilidad, cooldown.
// 2. Spread estimado desde liquidez (más liquidez → spread más estrecho).
// 3. Skew de inventario: con posición larga desplaza ambos lados hacia abajo
//    para desincentivar comprar más y facilitar vender.
// 4. Sizing acotado por posición máxima y suelo de take-profit en el ask.

import (
	"math"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

const maxPriceHistory = 50

// Params controla el comportamiento de la política de market making.
// Los tamaños (TradeSize, MaxSize, MinOrderSize) están en USDC;
// las cantidades cotizadas se convierten a contratos al precio del bid.
type Params struct {
	// Spread y cotización
	MinSpread float64 // spread mínimo cotizable (en precio)
	TickSize  float64 // incremento mínimo de precio

	// Sizing
	TradeSize    float64 // tamaño base de orden en USDC
	MaxSize      float64 // posición máxima por mercado en USDC
	MinOrderSize float64 // órdenes por debajo se suprimen

	// Gestión de riesgo
	StopLossPct         float64       // umbral de stop-loss en % (negativo)
	TakeProfitPct       float64       // objetivo de venta en % sobre coste medio
	VolatilityThreshold float64       // máxima std de retornos para cotizar
	SleepPeriod         time.Duration // cooldown tras stop-loss

	// Filtros de mercado
	MinLiquidity float64
	MinVolume24h float64
	MaxPrice     float64
	MinPrice     float64

	// Skew de inventario: 0 = sin skew, 1 = skew completo
	InventorySkewFactor float64

	Fees domain.FeeConfig
}

// DefaultParams devuelve los parámetros de producción.
func DefaultParams() Params {
	return Params{
		MinSpread:           0.02,
		TickSize:            0.001,
		TradeSize:           50,
		MaxSize:             200,
		MinOrderSize:        5,
		StopLossPct:         -5.0,
		TakeProfitPct:       2.0,
		VolatilityThreshold: 0.10,
		SleepPeriod:         time.Hour,
		MinLiquidity:        5000,
		MinVolume24h:        10000,
		MaxPrice:            0.90,
		MinPrice:            0.10,
		InventorySkewFactor: 0.3,
		Fees:                domain.FeePolitical,
	}
}

// pricePoint es una observación (timestamp, precio) del histórico acotado.
type pricePoint struct {
	ts    time.Time
	price float64
}

// MarketMaking implementa Policy. Es el "contexto de simulación": posee el
// inventario y el histórico de precios por mercado, y nada más los muta
// fuera del procesamiento de su propio tick.
type MarketMaking struct {
	params    Params
	inventory map[string]*domain.InventoryState
	history   map[string][]pricePoint
}

// NewMarketMaking crea la política con los parámetros dados.
func NewMarketMaking(params Params) *MarketMaking {
	return &MarketMaking{
		params:    params,
		inventory: make(map[string]*domain.InventoryState),
		history:   make(map[string][]pricePoint),
	}
}

// Name implementa Policy.
func (mm *MarketMaking) Name() string { return "MarketMaking" }

// Params devuelve los parámetros activos.
func (mm *MarketMaking) Params() Params { return mm.params }

// Fees devuelve la curva de fees de la política. El engine la puede
// sobreescribir vía su propia config.
func (mm *MarketMaking) Fees() domain.FeeConfig { return mm.params.Fees }

// Reset implementa Policy: limpia inventario e histórico entre runs.
func (mm *MarketMaking) Reset() {
	mm.inventory = make(map[string]*domain.InventoryState)
	mm.history = make(map[string][]pricePoint)
}

// Inventory implementa Policy con creación lazy.
func (mm *MarketMaking) Inventory(marketID string) *domain.InventoryState {
	inv, ok := mm.inventory[marketID]
	if !ok {
		inv = &domain.InventoryState{}
		mm.inventory[marketID] = inv
	}
	return inv
}

// OpenPositions devuelve los mercados con posición > 0 y su inventario.
func (mm *MarketMaking) OpenPositions() map[string]*domain.InventoryState {
	open := make(map[string]*domain.InventoryState)
	for id, inv := range mm.inventory {
		if inv.Position > 0 {
			open[id] = inv
		}
	}
	return open
}

// RecordPrice añade una observación al histórico acotado del mercado.
// Al superar la capacidad se desaloja la observación más antigua.
func (mm *MarketMaking) RecordPrice(marketID string, price float64, ts time.Time) {
	h := append(mm.history[marketID], pricePoint{ts: ts, price: price})
	if len(h) > maxPriceHistory {
		h = h[len(h)-maxPriceHistory:]
	}
	mm.history[marketID] = h
}

// Volatility implementa Policy: desviación estándar de retornos simples
// (ΔP/P) sobre la ventana retenida. 0 con menos de 3 observaciones.
func (mm *MarketMaking) Volatility(marketID string) float64 {
	h := mm.history[marketID]
	if len(h) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(h)-1)
	for i := 1; i < len(h); i++ {
		if h[i-1].price > 0 {
			returns = append(returns, (h[i].price-h[i-1].price)/h[i-1].price)
		}
	}
	if len(returns) == 0 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	return math.Sqrt(variance)
}

// estimateSpread estima el spread bid-ask del mercado desde su liquidez:
// ley inversa de raíz cuadrada, con descuentos al cruzar dos umbrales de
// volumen 24h, y cap en 10 céntimos.
func (mm *MarketMaking) estimateSpread(liquidity, volume24h float64) float64 {
	if liquidity <= 0 {
		return 0.10
	}
	base := math.Max(0.005, 0.50/math.Sqrt(liquidity/1000))
	if volume24h > 50000 {
		base *= 0.7
	} else if volume24h > 10000 {
		base *= 0.85
	}
	return math.Min(base, 0.10)
}

// GenerateQuote implementa Policy. Secuencia de decisión: cada filtro que
// falla corta con su razón; si todos pasan se construyen bid y ask.
func (mm *MarketMaking) GenerateQuote(snap domain.MarketSnapshot, now time.Time) domain.QuoteResult {
	p := mm.params
	inv := mm.Inventory(snap.MarketID)
	inv.CheckCooldown(now)

	mm.RecordPrice(snap.MarketID, snap.YesPrice, now)

	// --- Filtros ---
	if snap.Liquidity < p.MinLiquidity {
		return domain.Skip(domain.SkipLowLiquidity)
	}
	if snap.Volume24h < p.MinVolume24h {
		return domain.Skip(domain.SkipLowVolume)
	}
	if snap.YesPrice > p.MaxPrice || snap.YesPrice < p.MinPrice {
		return domain.Skip(domain.SkipPriceOutOfRange)
	}
	if mm.Volatility(snap.MarketID) > p.VolatilityThreshold {
		return domain.Skip(domain.SkipHighVolatility)
	}
	if inv.IsRiskOff() {
		return domain.Skip(domain.SkipRiskOffCooldown)
	}

	// --- Precios ---
	marketSpread := mm.estimateSpread(snap.Liquidity, snap.Volume24h)
	mid := snap.YesPrice

	half := math.Max(marketSpread/2, p.TickSize*2)
	bid := round4(mid - half)
	ask := round4(mid + half)

	// Garantizar spread mínimo rentable
	if ask-bid < p.MinSpread {
		bid = round4(mid - p.MinSpread/2)
		ask = round4(mid + p.MinSpread/2)
	}

	// Skew de inventario: sobreexpuestos → bajar ambos lados
	if inv.Position > 0 && p.InventorySkewFactor > 0 {
		maxContracts := 1.0
		if mid > 0 {
			maxContracts = p.MaxSize / mid
		}
		fillRatio := 0.0
		if maxContracts > 0 {
			fillRatio = inv.Position / maxContracts
		}
		skew := fillRatio * p.InventorySkewFactor * marketSpread
		bid = round4(bid - skew)
		ask = round4(ask - skew)
	}

	// Clamp a la banda válida
	bid = clamp(bid, p.MinPrice, p.MaxPrice)
	ask = clamp(ask, p.MinPrice, p.MaxPrice)

	// Si el clamp cruzó los lados, volver a quotes simétricos al mínimo
	if bid >= ask {
		bid = round4(mid - p.MinSpread/2)
		ask = round4(mid + p.MinSpread/2)
	}

	// --- Sizing (USDC → contratos al precio del bid) ---
	var maxContracts, tradeContracts float64
	if bid > 0 {
		maxContracts = p.MaxSize / bid
		tradeContracts = p.TradeSize / bid
	}

	var bidSize float64
	if inv.Position < maxContracts {
		bidSize = math.Min(tradeContracts, maxContracts-inv.Position)
	}

	var askSize float64
	if inv.Position > 0 {
		askSize = math.Min(inv.Position, tradeContracts)
	}

	// Suelo de take-profit: nunca vender por debajo del objetivo
	if inv.Position > 0 && inv.AvgPrice > 0 {
		tp := round4(inv.AvgPrice * (1 + p.TakeProfitPct/100))
		ask = math.Max(ask, tp)
	}

	// Suprimir órdenes por debajo del notional mínimo
	minContracts := math.Inf(1)
	if bid > 0 {
		minContracts = p.MinOrderSize / bid
	}
	if bidSize > 0 && bidSize < minContracts {
		bidSize = 0
	}
	if askSize > 0 && askSize < minContracts {
		askSize = 0
	}

	q := domain.QuoteResult{}
	if bidSize > 0 {
		q.BidPrice = bid
		q.BidSize = bidSize
	}
	if askSize > 0 {
		q.AskPrice = ask
		q.AskSize = askSize
	}
	return q
}

// CheckRisk implementa Policy. Dispara la salida forzada si el P&L% cae por
// debajo del stop-loss, o si la volatilidad supera el umbral con P&L
// negativo. Al disparar fija el cooldown de re-entrada.
func (mm *MarketMaking) CheckRisk(snap domain.MarketSnapshot, now time.Time) bool {
	inv := mm.Inventory(snap.MarketID)
	if inv.Position <= 0 || inv.AvgPrice <= 0 {
		return false
	}

	pnlPct := (snap.YesPrice - inv.AvgPrice) / inv.AvgPrice * 100
	vol := mm.Volatility(snap.MarketID)

	if pnlPct < mm.params.StopLossPct {
		inv.RiskOffUntil = now.Add(mm.params.SleepPeriod)
		return true
	}
	if vol > mm.params.VolatilityThreshold && pnlPct < 0 {
		inv.RiskOffUntil = now.Add(mm.params.SleepPeriod)
		return true
	}
	return false
}

func round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
