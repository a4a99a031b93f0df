package ports

import (
	"context"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// Notifier presenta resultados al usuario.
type Notifier interface {
	// NotifyResult muestra el resumen de un backtest.
	// En la implementación de consola, imprime tablas formateadas.
	NotifyResult(ctx context.Context, result *domain.Result) error

	// NotifyMarkets muestra la lista de mercados candidatos.
	NotifyMarkets(ctx context.Context, markets []domain.Market) error
}
