package backtest

import (
	"math"
	"time"

	"github.com/alejandrodnm/polysim/internal/domain"
)

// buildResult convierte el estado final del run en un Result.
//
// El P&L a nivel trade se mide sobre los SELLs: cada venta lleva el spread
// capturado contra el coste medio de entrada. Los BUYs abren inventario y
// no cuentan como trade ganador ni perdedor.
func (e *Engine) buildResult(st *runState, days []time.Time) *domain.Result {
	r := &domain.Result{
		StrategyName:   e.policy.Name(),
		InitialCapital: e.cfg.InitialCapital,
		FinalCapital:   st.capital,
		EquityCurve:    st.equityCurve,
		Fills:          st.fills,

		TotalSpreadCaptured: st.spreadCaptured,
		TotalMakerRebates:   st.makerRebates,
		TotalVolume:         st.volumeTraded,
		MarketsTraded:       len(st.tradesByMarket),
	}
	if len(days) > 0 {
		r.StartDate = days[0]
		r.EndDate = days[len(days)-1]
	}

	r.TotalReturn = st.capital - e.cfg.InitialCapital
	if e.cfg.InitialCapital > 0 {
		r.TotalReturnPct = r.TotalReturn / e.cfg.InitialCapital
	}

	r.TotalTrades = len(st.fills)
	if st.totalQuotes > 0 {
		r.FillRate = float64(st.totalFills) / float64(st.totalQuotes)
	}
	if st.totalDays > 0 {
		r.ExposureTimePct = float64(st.exposureDays) / float64(st.totalDays)
	}
	r.MaxDrawdown = st.maxDrawdown
	r.MaxDrawdownPct = st.maxDrawdownPct
	r.SharpeRatio = sharpeRatio(st.equityCurve)

	// Particionar SELLs en ganadores y perdedores
	var sells, winners, losers int
	var sellPnL, grossProfit, grossLoss, best, worst float64
	first := true
	for _, f := range st.fills {
		if f.Side != domain.SideSell {
			continue
		}
		sells++
		sellPnL += f.SpreadCaptured
		if first {
			best, worst = f.SpreadCaptured, f.SpreadCaptured
			first = false
		} else {
			best = math.Max(best, f.SpreadCaptured)
			worst = math.Min(worst, f.SpreadCaptured)
		}
		if f.SpreadCaptured > 0 {
			winners++
			grossProfit += f.SpreadCaptured
		} else {
			losers++
			grossLoss += -f.SpreadCaptured
		}
	}

	r.WinningTrades = winners
	r.LosingTrades = losers
	r.BestTrade = best
	r.WorstTrade = worst

	if sells > 0 {
		r.WinRate = float64(winners) / float64(sells)
		r.AvgTradePnL = sellPnL / float64(sells)
		r.AvgSpreadCaptured = st.spreadCaptured / float64(sells)
	}
	if winners > 0 {
		r.AvgWin = grossProfit / float64(winners)
	}
	if losers > 0 {
		r.AvgLoss = -grossLoss / float64(losers)
	}
	if grossLoss > 0 {
		r.ProfitFactor = grossProfit / grossLoss
	} else {
		r.ProfitFactor = math.Inf(1)
	}

	return r
}

// sharpeRatio calcula el Sharpe anualizado desde los retornos diarios de la
// curva de equity: media/std × √252, con desviación estándar poblacional.
// Devuelve 0 con menos de 3 días o con std cero.
func sharpeRatio(curve []domain.EquityPoint) float64 {
	if len(curve) < 3 {
		return 0
	}

	returns := make([]float64, 0, len(curve)-1)
	for i := 1; i < len(curve); i++ {
		if curve[i-1].Equity > 0 {
			returns = append(returns, (curve[i].Equity-curve[i-1].Equity)/curve[i-1].Equity)
		}
	}
	if len(returns) == 0 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var variance float64
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))
	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}

	return mean / std * math.Sqrt(252)
}
