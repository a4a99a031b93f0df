package polymarket

import "encoding/json"

// DTOs raw de la API de Polymarket. Solo se usan dentro de este paquete.
// La conversión a domain entities se hace en mapping.go.

// --- Gamma API ---

// gammaMarketsResponse es la respuesta de GET /markets de Gamma.
type gammaMarketsResponse []gammaMarket

// gammaMarket es un mercado binario de Gamma.
// Gamma devuelve varios campos numéricos como strings JSON (json.Number) y
// los arrays de outcomes/tokens como strings con JSON embebido.
type gammaMarket struct {
	ConditionID   string      `json:"conditionId"`
	Question      string      `json:"question"`
	Slug          string      `json:"slug"`
	Category      string      `json:"category"`
	EndDateISO    string      `json:"endDateIso"`
	Volume        json.Number `json:"volumeNum"`
	Volume24h     json.Number `json:"volume24hr"`
	Liquidity     json.Number `json:"liquidityNum"`
	Active        bool        `json:"active"`
	Closed        bool        `json:"closed"`
	Outcomes      string      `json:"outcomes"`      // ej: `["Yes","No"]`
	OutcomePrices string      `json:"outcomePrices"` // ej: `["0.65","0.35"]`
	CLOBTokenIDs  string      `json:"clobTokenIds"`  // ej: `["123...","456..."]`
	UMAResolution string      `json:"umaResolutionStatus"`
}

// --- CLOB API ---

// pricesHistoryResponse es la respuesta de GET /prices-history.
type pricesHistoryResponse struct {
	History []pricePointRaw `json:"history"`
}

// pricePointRaw es un punto (timestamp unix, precio) de la serie histórica.
type pricePointRaw struct {
	T int64   `json:"t"`
	P float64 `json:"p"`
}

// orderBookRequest es el body del POST /books batch.
type orderBookRequest struct {
	TokenID string `json:"token_id"`
}

// orderBookResponse es la respuesta de un item en POST /books.
type orderBookResponse struct {
	AssetID string         `json:"asset_id"`
	Bids    []bookEntryRaw `json:"bids"`
	Asks    []bookEntryRaw `json:"asks"`
}

// bookEntryRaw es un nivel de precio raw de la API (strings para mayor precisión).
type bookEntryRaw struct {
	Price string `json:"price"`
	Size  string `json:"size"`
}
