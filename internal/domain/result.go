package domain

import (
	"fmt"
	"time"
)

// EquityPoint es un punto de la curva de equity, uno por día simulado.
type EquityPoint struct {
	Date      time.Time
	Equity    float64 // cash + Σ posición × último precio conocido
	Drawdown  float64 // distancia al pico de equity, en USDC
	Positions int     // mercados con posición abierta al cierre del día
}

// Result es el resultado completo de un run de backtest de market making.
type Result struct {
	StrategyName   string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital float64
	FinalCapital   float64

	TotalReturn    float64
	TotalReturnPct float64

	TotalTrades   int
	WinningTrades int
	LosingTrades  int
	WinRate       float64

	MaxDrawdown    float64
	MaxDrawdownPct float64
	SharpeRatio    float64
	ProfitFactor   float64 // +Inf si no hay trades perdedores

	AvgTradePnL float64
	AvgWin      float64
	AvgLoss     float64
	BestTrade   float64
	WorstTrade  float64

	ExposureTimePct float64

	// Métricas específicas de market making
	TotalSpreadCaptured float64
	TotalMakerRebates   float64
	TotalVolume         float64
	FillRate            float64 // fills / quotes colocados
	AvgSpreadCaptured   float64
	MarketsTraded       int

	EquityCurve []EquityPoint
	Fills       []FillEvent
}

// RunSummary es el resumen persistido de un run de backtest.
type RunSummary struct {
	ID             string // uuid asignado al guardar
	CreatedAt      time.Time
	StrategyName   string
	StartDate      time.Time
	EndDate        time.Time
	InitialCapital float64
	FinalCapital   float64
	TotalReturnPct float64
	TotalTrades    int
	FillRate       float64
	SharpeRatio    float64
	MaxDrawdownPct float64
}

// EquityRecords devuelve la curva de equity como registros planos
// (header + una fila por día) para exportar a CSV o similar.
func (r *Result) EquityRecords() [][]string {
	records := make([][]string, 0, len(r.EquityCurve)+1)
	records = append(records, []string{"date", "equity", "drawdown", "positions"})
	for _, p := range r.EquityCurve {
		records = append(records, []string{
			p.Date.Format("2006-01-02"),
			fmt.Sprintf("%.4f", p.Equity),
			fmt.Sprintf("%.4f", p.Drawdown),
			fmt.Sprintf("%d", p.Positions),
		})
	}
	return records
}

// FillRecords devuelve el log de fills como registros planos.
func (r *Result) FillRecords() [][]string {
	records := make([][]string, 0, len(r.Fills)+1)
	records = append(records, []string{
		"timestamp", "market_id", "side", "price", "size", "fee", "spread_captured",
	})
	for _, f := range r.Fills {
		records = append(records, []string{
			f.Timestamp.UTC().Format(time.RFC3339),
			f.MarketID,
			f.Side,
			fmt.Sprintf("%.4f", f.Price),
			fmt.Sprintf("%.4f", f.Size),
			fmt.Sprintf("%.6f", f.Fee),
			fmt.Sprintf("%.6f", f.SpreadCaptured),
		})
	}
	return records
}
