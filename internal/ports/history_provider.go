package ports

import (
	"context"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// HistoryProvider obtiene la serie de precios histórica de un token del CLOB.
type HistoryProvider interface {
	// FetchPriceHistory devuelve los puntos de precio del token en el rango
	// dado, ordenados por timestamp ascendente.
	FetchPriceHistory(ctx context.Context, tokenID string, from, to time.Time) ([]domain.PricePoint, error)
}
