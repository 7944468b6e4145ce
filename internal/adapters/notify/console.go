package notify

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alejandrodnm/tickreplay/internal/domain"
	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

// Console implementa ports.Reporter.
type Console struct {
	out        io.Writer
	priceScale int32
}

// NewConsole crea un reporter que escribe en w. priceScale es el número de
// decimales implícitos de los precios enteros del feed (4 → 403100 = 40.3100).
func NewConsole(w io.Writer, priceScale int32) *Console {
	if w == nil {
		w = os.Stdout
	}
	return &Console{out: w, priceScale: priceScale}
}

// Report imprime el bloque [Test Result] de una ejecución.
func (c *Console) Report(_ context.Context, run domain.BacktestRun) error {
	res := run.Result

	fmt.Fprintln(c.out, "\n[Test Result]")
	if run.ID != "" {
		fmt.Fprintf(c.out, "run:        %s\n", run.ID)
	}
	if run.Symbol != "" {
		fmt.Fprintf(c.out, "symbol:     %s\n", run.Symbol)
	}
	if run.Config.CorrectedSides {
		fmt.Fprintln(c.out, "sides:      corrected (close at best bid, queue on asks)")
	}
	fmt.Fprintf(c.out, "time used:  %s\n", res.Elapsed)
	fmt.Fprintf(c.out, "yield rate: %s\n", yieldLabel(res))

	table := tablewriter.NewWriter(c.out)
	table.Header("Leg", "Times", "Value")
	table.Append("open", fmt.Sprintf("%d", res.OpenTimes), c.money(res.OpenValue))
	table.Append("close active", fmt.Sprintf("%d", res.CloseActiveTimes), c.money(res.CloseActiveValue))
	table.Append("close passive", fmt.Sprintf("%d", res.ClosePassiveTimes), c.money(res.ClosePassiveValue))
	table.Render()

	c.printDiagnostics(run.Diagnostics)
	return nil
}

// printDiagnostics solo imprime si hubo algo descartado o degradado.
func (c *Console) printDiagnostics(d domain.Diagnostics) {
	if d == (domain.Diagnostics{}) {
		return
	}

	fmt.Fprintln(c.out, "\ndiagnostics:")
	rows := []struct {
		label string
		value int64
	}{
		{"rejected opens", int64(d.RejectedOpens)},
		{"rejected closes", int64(d.RejectedCloses)},
		{"skipped closes", int64(d.SkippedCloses)},
		{"unscheduled closes", int64(d.UnscheduledCloses)},
		{"partial fills", int64(d.PartialFills)},
		{"unfilled volume", d.UnfilledVolume},
	}
	for _, r := range rows {
		if r.value == 0 {
			continue
		}
		fmt.Fprintf(c.out, "  %-19s %d\n", r.label+":", r.value)
	}
}

// PrintHistory imprime las últimas ejecuciones guardadas.
func (c *Console) PrintHistory(runs []domain.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "\n  No stored runs.")
		return
	}

	fmt.Fprintf(c.out, "\n=== LAST %d RUNS ===\n", len(runs))

	table := tablewriter.NewWriter(c.out)
	table.Header("Run", "Created", "Symbol", "Opens", "Active", "Passive", "Yield", "Unfilled")
	for _, r := range runs {
		table.Append(
			shortID(r.ID),
			r.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			r.Symbol,
			fmt.Sprintf("%d", r.Result.OpenTimes),
			fmt.Sprintf("%d", r.Result.CloseActiveTimes),
			fmt.Sprintf("%d", r.Result.ClosePassiveTimes),
			yieldLabel(r.Result),
			fmt.Sprintf("%d", r.Diag.UnfilledVolume),
		)
	}
	table.Render()
}

// PrintFills imprime los fills guardados de un tipo (open, active, passive).
func (c *Console) PrintFills(runID, kind string, orders []domain.Order) {
	fmt.Fprintf(c.out, "\n=== %s FILLS (%s) ===\n", strings.ToUpper(kind), shortID(runID))
	if len(orders) == 0 {
		fmt.Fprintln(c.out, "  none")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Time", "Price", "Volume", "Value")
	for i, o := range orders {
		table.Append(
			fmt.Sprintf("%d", i+1),
			domain.ClockString(o.Timestamp),
			c.money(o.Price),
			fmt.Sprintf("%d", o.Volume),
			c.money(o.Value),
		)
	}
	table.Render()
}

// --- helpers ---

// money formatea un nocional entero con priceScale decimales.
func (c *Console) money(v domain.Value) string {
	return decimal.New(v, -c.priceScale).StringFixed(c.priceScale)
}

func yieldLabel(r domain.StrategyResult) string {
	if !r.HasYield() {
		return "n/a"
	}
	return fmt.Sprintf("%.4f%%", r.YieldRate*100)
}

func shortID(id string) string {
	if len(id) <= 8 {
		return id
	}
	return id[:8]
}
