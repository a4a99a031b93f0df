package domain

import "time"

// Razones por las que el quote generator decide no cotizar un mercado.
// El primer filtro que falla gana; nunca se devuelven quotes parciales.
const (
	SkipLowLiquidity    = "low_liquidity"
	SkipLowVolume       = "low_volume"
	SkipPriceOutOfRange = "price_out_of_range"
	SkipHighVolatility  = "high_volatility"
	SkipRiskOffCooldown = "risk_off_cooldown"
)

// QuoteResult es la decisión de cotización para un mercado en un tick.
// O bien lleva bid/ask (cualquiera de los dos puede faltar por sizing),
// o bien lleva SkipReason y ningún precio.
type QuoteResult struct {
	BidPrice   float64 // 0 si no hay bid
	BidSize    float64 // en contratos
	AskPrice   float64 // 0 si no hay ask
	AskSize    float64 // en contratos
	SkipReason string
}

// HasBid devuelve true si el resultado incluye un bid cotizable.
func (q QuoteResult) HasBid() bool { return q.SkipReason == "" && q.BidSize > 0 }

// HasAsk devuelve true si el resultado incluye un ask cotizable.
func (q QuoteResult) HasAsk() bool { return q.SkipReason == "" && q.AskSize > 0 }

// Spread devuelve ask − bid, o 0 si falta alguno de los dos lados.
func (q QuoteResult) Spread() float64 {
	if !q.HasBid() || !q.HasAsk() {
		return 0
	}
	return q.AskPrice - q.BidPrice
}

// Skip construye un QuoteResult vacío con la razón dada.
func Skip(reason string) QuoteResult {
	return QuoteResult{SkipReason: reason}
}

// FillEvent es una entrada inmutable del log de fills simulados.
type FillEvent struct {
	Timestamp time.Time
	MarketID  string
	Side      string  // "BUY" | "SELL"
	Price     float64
	Size      float64 // contratos
	Fee       float64 // negativo = rebate cobrado como maker
	// SpreadCaptured es el P&L del cierre: (precio venta − coste medio) × size.
	// Solo significativo en SELLs; 0 en BUYs.
	SpreadCaptured float64
}

const (
	SideBuy  = "BUY"
	SideSell = "SELL"
)
