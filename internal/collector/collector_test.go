package collector_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/polysim/internal/collector"
	"github.com/alejandrodnm/polysim/internal/domain"
	"github.com/alejandrodnm/polysim/internal/ports"
)

// --- Mocks ---

type mockMarkets struct {
	markets []domain.Market
	err     error
	query   ports.MarketQuery
}

func (m *mockMarkets) FetchActiveMarkets(_ context.Context, q ports.MarketQuery) ([]domain.Market, error) {
	m.query = q
	return m.markets, m.err
}

type mockHistory struct {
	points map[string][]domain.PricePoint
	errs   map[string]error
}

func (m *mockHistory) FetchPriceHistory(_ context.Context, tokenID string, _, _ time.Time) ([]domain.PricePoint, error) {
	if err, ok := m.errs[tokenID]; ok {
		return nil, err
	}
	return m.points[tokenID], nil
}

type mockStore struct {
	saved []domain.MarketSnapshot
	err   error
}

func (m *mockStore) SaveSnapshots(_ context.Context, snaps []domain.MarketSnapshot) error {
	if m.err != nil {
		return m.err
	}
	m.saved = append(m.saved, snaps...)
	return nil
}

func (m *mockStore) LoadSnapshots(_ context.Context, _, _ time.Time) ([]domain.MarketSnapshot, error) {
	return m.saved, nil
}

func (m *mockStore) Close() error { return nil }

// --- Helpers ---

func tradableMarket(id, token string, price float64) domain.Market {
	return domain.Market{
		ConditionID: id,
		Question:    "Will it happen?",
		YesTokenID:  token,
		NoTokenID:   token + "-no",
		YesPrice:    price,
		Volume24h:   20000,
		Liquidity:   10000,
		Active:      true,
	}
}

// --- Tests ---

func TestFindMarketsFilters(t *testing.T) {
	closed := tradableMarket("m-closed", "t3", 0.50)
	closed.Closed = true
	resolved := tradableMarket("m-resolved", "t4", 0.50)
	resolved.Resolution = "YES"

	markets := &mockMarkets{markets: []domain.Market{
		tradableMarket("m-ok", "t1", 0.50),
		tradableMarket("m-cheap", "t2", 0.05),  // fuera de banda
		tradableMarket("m-pricey", "t5", 0.95), // fuera de banda
		closed,
		resolved,
	}}

	c := collector.New(markets, &mockHistory{}, nil, collector.DefaultConfig(), nil)
	got, err := c.FindMarkets(context.Background())
	require.NoError(t, err)

	require.Len(t, got, 1)
	assert.Equal(t, "m-ok", got[0].ConditionID)

	// Los filtros de liquidez/volumen viajan en la query server-side
	assert.Equal(t, 5000.0, markets.query.MinLiquidity)
	assert.Equal(t, 10000.0, markets.query.MinVolume)
}

func TestFindMarketsMaxMarkets(t *testing.T) {
	var ms []domain.Market
	for i := 0; i < 10; i++ {
		ms = append(ms, tradableMarket(string(rune('a'+i)), string(rune('A'+i)), 0.50))
	}

	cfg := collector.DefaultConfig()
	cfg.MaxMarkets = 3

	c := collector.New(&mockMarkets{markets: ms}, &mockHistory{}, nil, cfg, nil)
	got, err := c.FindMarkets(context.Background())
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestFindMarketsProviderError(t *testing.T) {
	c := collector.New(&mockMarkets{err: errors.New("gamma down")}, &mockHistory{}, nil, collector.DefaultConfig(), nil)
	_, err := c.FindMarkets(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gamma down")
}

func TestCollect(t *testing.T) {
	markets := &mockMarkets{markets: []domain.Market{
		tradableMarket("m1", "t1", 0.50),
		tradableMarket("m2", "t2", 0.60),
	}}
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	history := &mockHistory{points: map[string][]domain.PricePoint{
		"t1": {
			{Timestamp: ts.Add(time.Hour), Price: 0.52},
			{Timestamp: ts, Price: 0.50},
		},
		"t2": {
			{Timestamp: ts.Add(30 * time.Minute), Price: 0.61},
		},
	}}
	store := &mockStore{}

	c := collector.New(markets, history, store, collector.DefaultConfig(), nil)
	snaps, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 3)

	// Ordenados globalmente por timestamp y persistidos
	assert.Equal(t, "m1", snaps[0].MarketID)
	assert.Equal(t, 0.50, snaps[0].YesPrice)
	assert.Equal(t, "m2", snaps[1].MarketID)
	assert.True(t, snaps[0].Timestamp.Before(snaps[1].Timestamp))
	assert.Len(t, store.saved, 3)

	// La metadata del mercado viaja al snapshot
	assert.Equal(t, 10000.0, snaps[0].Liquidity)
	assert.Equal(t, 20000.0, snaps[0].Volume24h)
}

func TestCollectSkipsFailedMarkets(t *testing.T) {
	markets := &mockMarkets{markets: []domain.Market{
		tradableMarket("m1", "t1", 0.50),
		tradableMarket("m2", "t2", 0.60),
	}}
	ts := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	history := &mockHistory{
		points: map[string][]domain.PricePoint{
			"t1": {{Timestamp: ts, Price: 0.50}},
		},
		errs: map[string]error{"t2": errors.New("timeout")},
	}

	c := collector.New(markets, history, nil, collector.DefaultConfig(), nil)
	snaps, err := c.Collect(context.Background())
	require.NoError(t, err)
	require.Len(t, snaps, 1)
	assert.Equal(t, "m1", snaps[0].MarketID)
}

func TestCollectNoData(t *testing.T) {
	markets := &mockMarkets{markets: []domain.Market{
		tradableMarket("m1", "t1", 0.50),
	}}
	history := &mockHistory{errs: map[string]error{"t1": errors.New("timeout")}}

	c := collector.New(markets, history, nil, collector.DefaultConfig(), nil)
	_, err := c.Collect(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrNoData)
}

func TestCollectPersistError(t *testing.T) {
	markets := &mockMarkets{markets: []domain.Market{
		tradableMarket("m1", "t1", 0.50),
	}}
	history := &mockHistory{points: map[string][]domain.PricePoint{
		"t1": {{Timestamp: time.Now(), Price: 0.50}},
	}}
	store := &mockStore{err: errors.New("disk full")}

	c := collector.New(markets, history, store, collector.DefaultConfig(), nil)
	_, err := c.Collect(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}
