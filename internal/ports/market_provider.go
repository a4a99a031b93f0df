package ports

import (
	"context"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// MarketQuery son los filtros server-side al pedir mercados a Gamma.
type MarketQuery struct {
	MinLiquidity float64
	MinVolume    float64
	Limit        int // máximo de mercados a devolver; 0 = sin límite
}

// MarketProvider obtiene mercados binarios activos desde la API de Gamma.
type MarketProvider interface {
	// FetchActiveMarkets devuelve los mercados activos que pasan los filtros.
	// Pagina automáticamente hasta agotar los resultados o alcanzar Limit.
	FetchActiveMarkets(ctx context.Context, q MarketQuery) ([]domain.Market, error)
}
