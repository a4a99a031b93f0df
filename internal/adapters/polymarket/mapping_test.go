package polymarket

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validGammaMarket() gammaMarket {
	return gammaMarket{
		ConditionID:   "0xabc",
		Question:      "Will it rain?",
		Slug:          "will-it-rain",
		Category:      "Weather",
		EndDateISO:    "2025-07-01",
		Volume:        "12345.6",
		Volume24h:     "2500",
		Liquidity:     "9000",
		Active:        true,
		Outcomes:      `["Yes","No"]`,
		OutcomePrices: `["0.65","0.35"]`,
		CLOBTokenIDs:  `["tok-yes","tok-no"]`,
	}
}

func TestMapGammaMarket(t *testing.T) {
	m, ok := mapGammaMarket(validGammaMarket())
	require.True(t, ok)

	assert.Equal(t, "0xabc", m.ConditionID)
	assert.Equal(t, "tok-yes", m.YesTokenID)
	assert.Equal(t, "tok-no", m.NoTokenID)
	assert.Equal(t, 0.65, m.YesPrice)
	assert.Equal(t, 12345.6, m.Volume)
	assert.Equal(t, 2500.0, m.Volume24h)
	assert.Equal(t, 9000.0, m.Liquidity)
	assert.Equal(t, time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC), m.EndDate)
	assert.Empty(t, m.Resolution)
}

func TestMapGammaMarketRejectsNonBinary(t *testing.T) {
	gm := validGammaMarket()
	gm.Outcomes = `["Trump","Biden","Other"]`
	_, ok := mapGammaMarket(gm)
	assert.False(t, ok)

	gm = validGammaMarket()
	gm.Outcomes = `["Over","Under"]`
	_, ok = mapGammaMarket(gm)
	assert.False(t, ok)
}

func TestMapGammaMarketRejectsMissingTokens(t *testing.T) {
	gm := validGammaMarket()
	gm.CLOBTokenIDs = ""
	_, ok := mapGammaMarket(gm)
	assert.False(t, ok)

	gm = validGammaMarket()
	gm.CLOBTokenIDs = `["",""]`
	_, ok = mapGammaMarket(gm)
	assert.False(t, ok)
}

func TestMapGammaMarketUMAResolution(t *testing.T) {
	gm := validGammaMarket()
	gm.UMAResolution = "resolved_yes"
	m, ok := mapGammaMarket(gm)
	require.True(t, ok)
	assert.Equal(t, "YES", m.Resolution)

	gm.UMAResolution = "resolved_no"
	m, _ = mapGammaMarket(gm)
	assert.Equal(t, "NO", m.Resolution)

	gm.UMAResolution = "disputed"
	m, _ = mapGammaMarket(gm)
	assert.Empty(t, m.Resolution)
}

func TestParseStringArray(t *testing.T) {
	assert.Equal(t, []string{"Yes", "No"}, parseStringArray(`["Yes","No"]`))
	assert.Nil(t, parseStringArray(""))
	assert.Nil(t, parseStringArray("not json"))
}

func TestParseEndDate(t *testing.T) {
	want := time.Date(2025, 7, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, want, parseEndDate("2025-07-01"))
	assert.Equal(t, want, parseEndDate("2025-07-01T00:00:00Z"))
	assert.True(t, parseEndDate("garbage").IsZero())
}

func TestMapPriceHistory(t *testing.T) {
	raw := []pricePointRaw{
		{T: 200, P: 0.55},
		{T: 100, P: 0.50},
		{T: 150, P: 1.5}, // fuera de [0,1], descartado
		{T: 300, P: -0.1},
	}

	points := mapPriceHistory(raw)
	require.Len(t, points, 2)
	assert.Equal(t, 0.50, points[0].Price)
	assert.Equal(t, 0.55, points[1].Price)
	assert.True(t, points[0].Timestamp.Before(points[1].Timestamp))
}

func TestMapOrderBooks(t *testing.T) {
	raw := []orderBookResponse{
		{
			AssetID: "tok-yes",
			Bids: []bookEntryRaw{
				{Price: "0.40", Size: "100"},
				{Price: "0.42", Size: "50"},
				{Price: "bad", Size: "10"},
			},
			Asks: []bookEntryRaw{
				{Price: "0.48", Size: "80"},
				{Price: "0.45", Size: "30"},
				{Price: "0.50", Size: "0"},
			},
		},
	}

	books := mapOrderBooks(raw)
	require.Len(t, books, 1)
	book := books["tok-yes"]

	// Bids descendentes, asks ascendentes, niveles inválidos descartados
	require.Len(t, book.Bids, 2)
	assert.Equal(t, 0.42, book.Bids[0].Price)
	assert.Equal(t, 0.40, book.Bids[1].Price)

	require.Len(t, book.Asks, 2)
	assert.Equal(t, 0.45, book.Asks[0].Price)
	assert.Equal(t, 0.48, book.Asks[1].Price)
}
