package backtest

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/polysim/internal/domain"
)

func newSim(aggression float64, random bool, seed int64) *fillSimulator {
	return &fillSimulator{
		aggression: aggression,
		probFloor:  0.05,
		probCap:    0.80,
		random:     random,
		rng:        rand.New(rand.NewSource(seed)),
	}
}

func TestBuyCertainFill(t *testing.T) {
	// El precio cayó de 0.40 a 0.30 y el bid está en 0.35:
	// min(0.40, 0.30) = 0.30 ≤ 0.35 → fill seguro, con o sin randomización.
	for _, random := range []bool{true, false} {
		sim := newSim(0.5, random, 42)
		filled := sim.wouldFill(domain.SideBuy, 0.35, 0.30, 0.40, 0.40, 0.30)
		assert.True(t, filled, "random=%v", random)
	}
}

func TestSellCertainFill(t *testing.T) {
	// El precio subió de 0.50 a 0.65 y el ask está en 0.60:
	// max(0.50, 0.65) = 0.65 ≥ 0.60 → fill seguro.
	for _, random := range []bool{true, false} {
		sim := newSim(0.5, random, 42)
		filled := sim.wouldFill(domain.SideSell, 0.60, 0.50, 0.65, 0.50, 0.65)
		assert.True(t, filled, "random=%v", random)
	}
}

func TestBuyOutsideRangeNeverFills(t *testing.T) {
	// Bid muy por debajo del rango extendido por ruido
	sim := newSim(1.0, true, 42)
	for i := 0; i < 100; i++ {
		filled := sim.wouldFill(domain.SideBuy, 0.20, 0.38, 0.52, 0.40, 0.50)
		assert.False(t, filled)
	}
}

func TestSellOutsideRangeNeverFills(t *testing.T) {
	sim := newSim(1.0, true, 42)
	for i := 0; i < 100; i++ {
		filled := sim.wouldFill(domain.SideSell, 0.80, 0.38, 0.52, 0.40, 0.50)
		assert.False(t, filled)
	}
}

func TestProbabilisticDeterministicMode(t *testing.T) {
	// Bid en 0.395, rango [0.40, 0.50] con ruido hasta 0.39:
	// fill probabilístico, decidido por prob > 0.5 en modo determinista.
	// distance = |0.395 − 0.40| = 0.005, range = 0.50 − 0.39 = 0.11
	// prob ≈ aggression × 0.955

	// aggression alta → prob ≈ 0.76 > 0.5 → fill
	sim := newSim(0.8, false, 0)
	assert.True(t, sim.wouldFill(domain.SideBuy, 0.395, 0.39, 0.51, 0.40, 0.50))

	// aggression baja → prob clamp floor 0.05..0.29 < 0.5 → no fill
	sim = newSim(0.3, false, 0)
	assert.False(t, sim.wouldFill(domain.SideBuy, 0.395, 0.39, 0.51, 0.40, 0.50))
}

func TestProbabilisticClampBounds(t *testing.T) {
	// Con aggression 1 y distancia casi nula la probabilidad se clava en el
	// cap: en modo determinista 0.8 > 0.5 → fill.
	sim := newSim(1.0, false, 0)
	assert.True(t, sim.wouldFill(domain.SideBuy, 0.3999, 0.39, 0.51, 0.40, 0.50))

	// probCap bajo fuerza no-fill aunque la distancia sea nula
	sim = newSim(1.0, false, 0)
	sim.probCap = 0.4
	sim.probFloor = 0.0
	assert.False(t, sim.wouldFill(domain.SideBuy, 0.3999, 0.39, 0.51, 0.40, 0.50))
}

func TestProbabilisticSeedReproducible(t *testing.T) {
	run := func(seed int64) []bool {
		sim := newSim(0.5, true, seed)
		out := make([]bool, 50)
		for i := range out {
			out[i] = sim.wouldFill(domain.SideBuy, 0.395, 0.39, 0.51, 0.40, 0.50)
		}
		return out
	}

	assert.Equal(t, run(7), run(7))
}
