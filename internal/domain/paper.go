package domain

import "time"

// Estados de una orden virtual de paper trading.
const (
	OrderOpen    = "open"
	OrderFilled  = "filled"
	OrderExpired = "expired"
)

// VirtualOrder es una orden límite simulada contra el mercado real.
// No se envía al CLOB: el paper trader decide su fill observando el book.
type VirtualOrder struct {
	ID        string // uuid
	MarketID  string
	Question  string
	Side      string // "BUY" | "SELL"
	Price     float64
	Size      float64 // contratos
	Status    string
	CreatedAt time.Time
	ExpiresAt time.Time

	FilledAt    *time.Time
	FilledPrice float64
}

// Notional devuelve el valor de la orden en USDC.
func (o VirtualOrder) Notional() float64 {
	return o.Price * o.Size
}

// Expired devuelve true si la orden superó su TTL sin fill.
func (o VirtualOrder) Expired(now time.Time) bool {
	return o.Status == OrderOpen && now.After(o.ExpiresAt)
}

// PaperStats es el resumen agregado de una sesión de paper trading.
type PaperStats struct {
	OpenOrders    int
	FilledOrders  int
	ExpiredOrders int
	TotalVolume   float64 // notional de los fills en USDC
	RealizedPnL   float64
}

// PricePoint es una observación (timestamp, precio) del histórico de un token.
type PricePoint struct {
	Timestamp time.Time
	Price     float64
}
