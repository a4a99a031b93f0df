package polymarket

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/polysim/internal/domain"
	"github.com/alejandrodnm/polysim/internal/ports"
)

const (
	gammaMarketsPath = "/markets"
	gammaPageSize    = 100
)

// FetchActiveMarkets devuelve los mercados binarios activos que pasan los
// filtros de la query. Pagina con offset hasta agotar resultados o alcanzar
// el límite pedido.
func (c *Client) FetchActiveMarkets(ctx context.Context, q ports.MarketQuery) ([]domain.Market, error) {
	var all []domain.Market
	offset := 0

	for {
		url := fmt.Sprintf("%s%s?active=true&closed=false&limit=%d&offset=%d&order=volume24hr&ascending=false",
			c.gammaBase, gammaMarketsPath, gammaPageSize, offset)
		if q.MinLiquidity > 0 {
			url += fmt.Sprintf("&liquidity_num_min=%.0f", q.MinLiquidity)
		}
		if q.MinVolume > 0 {
			url += fmt.Sprintf("&volume_num_min=%.0f", q.MinVolume)
		}

		var resp gammaMarketsResponse
		if err := c.get(ctx, c.gammaLimiter, url, &resp); err != nil {
			return nil, fmt.Errorf("gamma.FetchActiveMarkets: %w", err)
		}

		for _, gm := range resp {
			m, ok := mapGammaMarket(gm)
			if !ok {
				continue // no binario o sin token IDs
			}
			all = append(all, m)
			if q.Limit > 0 && len(all) >= q.Limit {
				slog.Info("active markets fetched", "total", len(all), "truncated", true)
				return all, nil
			}
		}

		slog.Debug("fetched gamma markets page",
			"offset", offset,
			"count", len(resp),
			"total", len(all),
		)

		if len(resp) < gammaPageSize {
			break
		}
		offset += gammaPageSize
	}

	slog.Info("active markets fetched", "total", len(all))
	return all, nil
}
