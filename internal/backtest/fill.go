package backtest

import (
	"math"
	"math/rand"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// fillSimulator decide si una orden límite se habría ejecutado entre dos
// snapshots consecutivos, dado el rango de precios estimado del período.
//
// Reglas:
//   - BUY a Pb: fill seguro si min(P1, P2) <= Pb (el precio bajó hasta nosotros).
//   - SELL a Pa: fill seguro si max(P1, P2) >= Pa (el precio subió hasta nosotros).
//   - Dentro del rango extendido por ruido (±vol/2) el fill es probabilístico:
//     prob = aggression × (1 − distancia/rango), clamp a [probFloor, probCap].
//
// Los clamps y el factor de ruido son calibraciones heurísticas, no un modelo
// de microestructura; por eso son configurables en Config.
type fillSimulator struct {
	aggression float64
	probFloor  float64
	probCap    float64
	random     bool
	rng        *rand.Rand
}

// wouldFill evalúa una orden límite contra el rango [periodLow, periodHigh].
func (f *fillSimulator) wouldFill(side string, orderPrice, periodLow, periodHigh, prevPrice, currPrice float64) bool {
	if side == domain.SideBuy {
		if math.Min(prevPrice, currPrice) <= orderPrice {
			return true
		}
		if periodLow <= orderPrice {
			distance := orderPrice - math.Min(prevPrice, currPrice)
			rangeSize := math.Max(prevPrice, currPrice) - periodLow
			return f.probabilistic(distance, rangeSize)
		}
		return false
	}

	// SELL
	if math.Max(prevPrice, currPrice) >= orderPrice {
		return true
	}
	if periodHigh >= orderPrice {
		distance := math.Max(prevPrice, currPrice) - orderPrice
		rangeSize := periodHigh - math.Min(prevPrice, currPrice)
		return f.probabilistic(distance, rangeSize)
	}
	return false
}

func (f *fillSimulator) probabilistic(distance, rangeSize float64) bool {
	prob := 0.1
	if rangeSize > 0 {
		prob = f.aggression * (1 - math.Abs(distance)/rangeSize)
		prob = math.Max(f.probFloor, math.Min(prob, f.probCap))
	}
	if f.random {
		return f.rng.Float64() < prob
	}
	return prob > 0.5
}
