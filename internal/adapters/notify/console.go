package notify

// console.go — presentación de resultados en la terminal.

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/polysim/internal/domain"
)

const (
	maxQuestionLen = 45
	maxFillRows    = 15
	maxEquityRows  = 30
)

// Console implementa ports.Notifier.
type Console struct {
	out     io.Writer
	details bool // tablas de equity y fills además del resumen
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole(details bool) *Console {
	return &Console{out: os.Stdout, details: details}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer, details bool) *Console {
	return &Console{out: w, details: details}
}

// NotifyResult imprime el resumen del backtest, y las tablas de equity y
// fills si el modo detalle está activo.
func (c *Console) NotifyResult(_ context.Context, result *domain.Result) error {
	c.printSummary(result)
	if c.details {
		c.printEquity(result)
		c.printFills(result)
	}
	return nil
}

// NotifyMarkets imprime la lista de mercados candidatos.
func (c *Console) NotifyMarkets(_ context.Context, markets []domain.Market) error {
	if len(markets) == 0 {
		fmt.Fprintln(c.out, "no markets found")
		return nil
	}

	fmt.Fprintf(c.out, "\n%d candidate markets\n", len(markets))

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Market", "Price", "Liquidity", "Vol 24h", "Ends")

	for i, m := range markets {
		ends := "-"
		if !m.EndDate.IsZero() {
			ends = m.EndDate.Format("2006-01-02")
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			domain.TruncateQuestion(m.Question, m.ConditionID, maxQuestionLen),
			fmt.Sprintf("%.3f", m.YesPrice),
			fmt.Sprintf("$%.0f", m.Liquidity),
			fmt.Sprintf("$%.0f", m.Volume24h),
			ends,
		)
	}
	return table.Render()
}

// printSummary imprime las métricas principales del run.
func (c *Console) printSummary(r *domain.Result) {
	fmt.Fprintf(c.out, "\n%s backtest — %s to %s\n",
		r.StrategyName,
		r.StartDate.Format("2006-01-02"),
		r.EndDate.Format("2006-01-02"),
	)

	pf := fmt.Sprintf("%.2f", r.ProfitFactor)
	if math.IsInf(r.ProfitFactor, 1) {
		pf = "INF"
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Metric", "Value")
	table.Append("Initial capital", fmt.Sprintf("$%.2f", r.InitialCapital))
	table.Append("Final capital", fmt.Sprintf("$%.2f", r.FinalCapital))
	table.Append("Total return", fmt.Sprintf("$%.2f (%.2f%%)", r.TotalReturn, r.TotalReturnPct*100))
	table.Append("Total trades", fmt.Sprintf("%d (W:%d L:%d)", r.TotalTrades, r.WinningTrades, r.LosingTrades))
	table.Append("Win rate", fmt.Sprintf("%.1f%%", r.WinRate*100))
	table.Append("Profit factor", pf)
	table.Append("Sharpe ratio", fmt.Sprintf("%.2f", r.SharpeRatio))
	table.Append("Max drawdown", fmt.Sprintf("$%.2f (%.2f%%)", r.MaxDrawdown, r.MaxDrawdownPct*100))
	table.Append("Exposure time", fmt.Sprintf("%.1f%%", r.ExposureTimePct*100))
	table.Append("Spread captured", fmt.Sprintf("$%.2f", r.TotalSpreadCaptured))
	table.Append("Maker rebates", fmt.Sprintf("$%.4f", r.TotalMakerRebates))
	table.Append("Volume traded", fmt.Sprintf("$%.2f", r.TotalVolume))
	table.Append("Fill rate", fmt.Sprintf("%.1f%%", r.FillRate*100))
	table.Append("Avg spread/fill", fmt.Sprintf("$%.4f", r.AvgSpreadCaptured))
	table.Append("Markets traded", fmt.Sprintf("%d", r.MarketsTraded))
	table.Render()
}

// printEquity imprime los últimos puntos de la curva de equity.
func (c *Console) printEquity(r *domain.Result) {
	if len(r.EquityCurve) == 0 {
		return
	}

	curve := r.EquityCurve
	if len(curve) > maxEquityRows {
		curve = curve[len(curve)-maxEquityRows:]
	}

	fmt.Fprintf(c.out, "\nequity curve (last %d days)\n", len(curve))

	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "Equity", "Drawdown", "Positions")
	for _, p := range curve {
		table.Append(
			p.Date.Format("2006-01-02"),
			fmt.Sprintf("$%.2f", p.Equity),
			fmt.Sprintf("$%.2f", p.Drawdown),
			fmt.Sprintf("%d", p.Positions),
		)
	}
	table.Render()
}

// printFills imprime los últimos fills simulados.
func (c *Console) printFills(r *domain.Result) {
	if len(r.Fills) == 0 {
		return
	}

	fills := r.Fills
	if len(fills) > maxFillRows {
		fills = fills[len(fills)-maxFillRows:]
	}

	fmt.Fprintf(c.out, "\nfills (last %d of %d)\n", len(fills), len(r.Fills))

	table := tablewriter.NewWriter(c.out)
	table.Header("Time", "Market", "Side", "Price", "Size", "Fee", "Spread")
	for _, f := range fills {
		table.Append(
			f.Timestamp.UTC().Format(time.DateOnly),
			domain.TruncateQuestion("", f.MarketID, 24),
			f.Side,
			fmt.Sprintf("%.4f", f.Price),
			fmt.Sprintf("%.2f", f.Size),
			fmt.Sprintf("%.4f", f.Fee),
			fmt.Sprintf("%.4f", f.SpreadCaptured),
		)
	}
	table.Render()
}

// ExportCSV escribe registros planos (header + filas) al path dado.
// Lo usan los exports de equity y fills del Result.
func ExportCSV(path string, records [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("notify.ExportCSV: create %q: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.WriteAll(records); err != nil {
		return fmt.Errorf("notify.ExportCSV: write %q: %w", path, err)
	}
	return nil
}
