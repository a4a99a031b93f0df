package polymarket

import (
	"encoding/json"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// mapGammaMarket convierte un gammaMarket DTO a domain.Market.
// Devuelve false si el mercado no es binario YES/NO o le faltan token IDs.
func mapGammaMarket(gm gammaMarket) (domain.Market, bool) {
	outcomes := parseStringArray(gm.Outcomes)
	if len(outcomes) != 2 || !strings.EqualFold(outcomes[0], "Yes") {
		return domain.Market{}, false
	}

	tokenIDs := parseStringArray(gm.CLOBTokenIDs)
	if len(tokenIDs) != 2 || tokenIDs[0] == "" {
		return domain.Market{}, false
	}

	m := domain.Market{
		ConditionID: gm.ConditionID,
		Question:    gm.Question,
		Slug:        gm.Slug,
		Category:    gm.Category,
		YesTokenID:  tokenIDs[0],
		NoTokenID:   tokenIDs[1],
		Active:      gm.Active,
		Closed:      gm.Closed,
	}

	if prices := parseStringArray(gm.OutcomePrices); len(prices) == 2 {
		if p, err := strconv.ParseFloat(prices[0], 64); err == nil {
			m.YesPrice = p
		}
	}
	if v, err := gm.Volume.Float64(); err == nil {
		m.Volume = v
	}
	if v, err := gm.Volume24h.Float64(); err == nil {
		m.Volume24h = v
	}
	if v, err := gm.Liquidity.Float64(); err == nil {
		m.Liquidity = v
	}
	if gm.EndDateISO != "" {
		m.EndDate = parseEndDate(gm.EndDateISO)
	}
	if strings.HasPrefix(gm.UMAResolution, "resolved") {
		// Gamma publica "resolved_yes" / "resolved_no" cuando UMA resuelve
		if strings.HasSuffix(gm.UMAResolution, "yes") {
			m.Resolution = "YES"
		} else {
			m.Resolution = "NO"
		}
	}

	return m, true
}

// parseStringArray decodifica un string con un array JSON embebido,
// como los campos outcomes/outcomePrices/clobTokenIds de Gamma.
func parseStringArray(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	if err := json.Unmarshal([]byte(s), &out); err != nil {
		return nil
	}
	return out
}

// parseEndDate intenta los formatos de fecha que usa Polymarket.
func parseEndDate(s string) time.Time {
	for _, layout := range []string{
		time.RFC3339,
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05Z",
		"2006-01-02",
	} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC()
		}
	}
	return time.Time{}
}

// mapPriceHistory convierte los puntos raw a domain.PricePoint ordenados.
func mapPriceHistory(raw []pricePointRaw) []domain.PricePoint {
	points := make([]domain.PricePoint, 0, len(raw))
	for _, r := range raw {
		if r.P < 0 || r.P > 1 {
			continue
		}
		points = append(points, domain.PricePoint{
			Timestamp: time.Unix(r.T, 0).UTC(),
			Price:     r.P,
		})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp.Before(points[j].Timestamp)
	})
	return points
}

// mapOrderBooks convierte las respuestas raw de /books a domain.OrderBook.
func mapOrderBooks(raw []orderBookResponse) map[string]domain.OrderBook {
	books := make(map[string]domain.OrderBook, len(raw))
	for _, r := range raw {
		books[r.AssetID] = domain.OrderBook{
			TokenID: r.AssetID,
			Bids:    parseBookSide(r.Bids, false),
			Asks:    parseBookSide(r.Asks, true),
		}
	}
	return books
}

// parseBookSide convierte niveles raw a BookEntry, descartando los inválidos.
// ascending=true ordena de menor a mayor precio (asks).
func parseBookSide(raw []bookEntryRaw, ascending bool) []domain.BookEntry {
	entries := make([]domain.BookEntry, 0, len(raw))
	for _, r := range raw {
		price, _ := strconv.ParseFloat(r.Price, 64)
		size, _ := strconv.ParseFloat(r.Size, 64)
		if price <= 0 || size <= 0 {
			continue
		}
		entries = append(entries, domain.BookEntry{Price: price, Size: size})
	}

	sort.Slice(entries, func(i, j int) bool {
		if ascending {
			return entries[i].Price < entries[j].Price
		}
		return entries[i].Price > entries[j].Price
	})

	return entries
}
