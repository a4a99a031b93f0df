package backtest

// synthetic.go — generador de datos sintéticos para backtests sin histórico.
//
// Crea mercados con tres perfiles de liquidez (40% alta, 40% media, 20% baja)
// y precios que siguen un random walk con reversión a la media, convergiendo
// al resultado final en los últimos días antes de resolverse.

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// SyntheticConfig controla la generación de datos sintéticos.
type SyntheticConfig struct {
	NumMarkets      int
	Days            int
	SnapshotsPerDay int
	Seed            int64
	Start           time.Time // zero = ahora − Days
}

// DefaultSyntheticConfig devuelve la configuración estándar: 30 mercados,
// 90 días, 4 snapshots por día.
func DefaultSyntheticConfig() SyntheticConfig {
	return SyntheticConfig{
		NumMarkets:      30,
		Days:            90,
		SnapshotsPerDay: 4,
	}
}

// GenerateSynthetic produce snapshots sintéticos ordenados por timestamp.
// Con la misma seed genera exactamente la misma serie.
func GenerateSynthetic(cfg SyntheticConfig) []domain.MarketSnapshot {
	if cfg.NumMarkets <= 0 {
		cfg.NumMarkets = 30
	}
	if cfg.Days <= 0 {
		cfg.Days = 90
	}
	if cfg.SnapshotsPerDay <= 0 {
		cfg.SnapshotsPerDay = 4
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	start := cfg.Start
	if start.IsZero() {
		start = time.Now().UTC().AddDate(0, 0, -cfg.Days)
	}
	start = time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, time.UTC)

	var snaps []domain.MarketSnapshot

	for i := 0; i < cfg.NumMarkets; i++ {
		marketID := fmt.Sprintf("mm_synthetic_%04d", i)

		// Perfil de liquidez
		var baseLiquidity, baseVolume float64
		switch tier := rng.Float64(); {
		case tier < 0.4:
			baseLiquidity = uniform(rng, 100_000, 500_000)
			baseVolume = baseLiquidity * uniform(rng, 0.5, 2.0)
		case tier < 0.8:
			baseLiquidity = uniform(rng, 10_000, 100_000)
			baseVolume = baseLiquidity * uniform(rng, 0.3, 1.5)
		default:
			baseLiquidity = uniform(rng, 1_000, 10_000)
			baseVolume = baseLiquidity * uniform(rng, 0.1, 0.8)
		}

		initialPrice := uniform(rng, 0.15, 0.85)
		volatility := uniform(rng, 0.005, 0.03)
		durationDays := randInt(rng, 14, min(80, cfg.Days))
		endDate := start.AddDate(0, 0, randInt(rng, durationDays, cfg.Days))

		resolution := "NO"
		if rng.Float64() < initialPrice {
			resolution = "YES"
		}

		price := initialPrice

		for day := 0; day < durationDays; day++ {
			currentDate := start.AddDate(0, 0, day)

			dailyLiq := baseLiquidity * uniform(rng, 0.7, 1.3)
			dailyVol := baseVolume / 30 * uniform(rng, 0.3, 3.0)

			for snapIdx := 0; snapIdx < cfg.SnapshotsPerDay; snapIdx++ {
				ts := currentDate.Add(time.Duration(snapIdx*(24/cfg.SnapshotsPerDay)) * time.Hour)

				// Random walk con reversión a la media
				drift := (initialPrice - price) * 0.05
				shock := rng.NormFloat64() * volatility
				price = clampPrice(price+drift+shock, 0.02, 0.98)

				// Convergencia al resultado cerca de la resolución
				daysToEnd := int(endDate.Sub(ts).Hours() / 24)
				if daysToEnd < 5 {
					target := 0.02
					if resolution == "YES" {
						target = 0.98
					}
					alpha := math.Max(0.1, 1-float64(daysToEnd)/5)
					price += (target - price) * alpha * 0.3
				}

				resolved := !ts.Before(endDate)
				res := ""
				if resolved {
					res = resolution
				}

				snaps = append(snaps, domain.MarketSnapshot{
					Timestamp:  ts,
					MarketID:   marketID,
					Question:   fmt.Sprintf("MM Synthetic %d: Event outcome?", i),
					YesPrice:   roundTo(price, 4),
					NoPrice:    roundTo(1-price, 4),
					Volume:     roundTo(dailyVol*30*uniform(rng, 0.8, 1.2), 2),
					Volume24h:  roundTo(dailyVol*uniform(rng, 0.5, 2.0), 2),
					Liquidity:  roundTo(dailyLiq, 2),
					EndDate:    endDate,
					Resolved:   resolved,
					Resolution: res,
				})
			}
		}
	}

	domain.SortSnapshots(snaps)
	return snaps
}

func uniform(rng *rand.Rand, lo, hi float64) float64 {
	return lo + rng.Float64()*(hi-lo)
}

// randInt devuelve un entero en [lo, hi] inclusive.
func randInt(rng *rand.Rand, lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + rng.Intn(hi-lo+1)
}

func clampPrice(p, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, p))
}

func roundTo(v float64, decimals int) float64 {
	pow := math.Pow(10, float64(decimals))
	return math.Round(v*pow) / pow
}
