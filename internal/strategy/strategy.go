package strategy

import (
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// Policy define el contrato que el engine de simulación necesita de una
// política de trading. Cada política encapsula su propio estado por mercado
// (inventario, histórico de precios) y lo resetea al inicio de cada run.
type Policy interface {
	// Name identifica la política en los resultados.
	Name() string

	// Reset limpia todo el estado por mercado. El engine lo llama al
	// inicio de cada run para que runs independientes no se contaminen.
	Reset()

	// GenerateQuote evalúa un snapshot y decide cotizar bid/ask o saltar
	// el mercado con una razón. Nunca devuelve quotes parciales.
	GenerateQuote(snap domain.MarketSnapshot, now time.Time) domain.QuoteResult

	// CheckRisk devuelve true si la posición del mercado debe cerrarse
	// forzosamente (stop-loss o volatilidad con P&L negativo). Al activarse
	// la política impone su propio cooldown de re-entrada.
	CheckRisk(snap domain.MarketSnapshot, now time.Time) bool

	// Inventory devuelve el inventario del mercado, creándolo si no existe.
	// El engine lo muta al aplicar fills; nadie más lo toca.
	Inventory(marketID string) *domain.InventoryState

	// OpenPositions devuelve los mercados con posición abierta (> 0).
	// El engine lo usa para mark-to-market y para el cierre final.
	OpenPositions() map[string]*domain.InventoryState

	// Volatility devuelve la volatilidad estimada del mercado (desviación
	// estándar de retornos simples sobre la ventana retenida). 0 si hay
	// menos de 3 observaciones.
	Volatility(marketID string) float64
}
