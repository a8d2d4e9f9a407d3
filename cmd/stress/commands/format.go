package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/wonny/hedgestress/internal/batch"
	"github.com/wonny/hedgestress/internal/stress"
)

// ═══════════════════════════════════════════════════════════
// Quantitative Summary Formatting
// 모든 커맨드가 동일한 출력 포맷을 사용하도록 통일
// ═══════════════════════════════════════════════════════════

const (
	doubleRule = "═══════════════════════════════════════════════════════════"
	singleRule = "───────────────────────────────────────────────────────────"
	billion    = 1e9
)

// factorRow 팩터별 한 줄
type factorRow struct {
	label string
	shock float64
	move  string
	pnl   float64
}

func factorRows(shock stress.ShockParams, moves stress.FactorMoves, net stress.PnL) []factorRow {
	return []factorRow{
		{"Equity", shock.EqShockSigma, fmt.Sprintf("%+.2f%%", moves.EqMove*100), net.Equity},
		{"Vol", shock.VolShockSigma, fmt.Sprintf("%+.4f", moves.VolMove), net.Vol},
		{"FX", shock.FXShockSigma, fmt.Sprintf("%+.2f%%", moves.FXMove*100), net.FX},
		{"Rates", shock.IRShockSigma, fmt.Sprintf("%+.1fbp", moves.IRMove*1e4), net.Rates},
	}
}

func printHeader(w io.Writer, title, scenario string) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleRule)
	fmt.Fprintf(w, "  %s\n", title)
	fmt.Fprintln(w, singleRule)
	fmt.Fprintf(w, "  Scenario  : %s\n", scenario)
	fmt.Fprintln(w, singleRule)
}

func printFactorTable(w io.Writer, shock stress.ShockParams, moves stress.FactorMoves, pnl stress.PnLBreakdown) {
	fmt.Fprintf(w, "  %-8s %10s %12s %14s\n", "Factor", "Shock(σ)", "Move", "P&L (bn)")
	for _, row := range factorRows(shock, moves, pnl.Net) {
		fmt.Fprintf(w, "  %-8s %10.2f %12s %14.2f\n", row.label, row.shock, row.move, row.pnl/billion)
	}
	fmt.Fprintln(w, singleRule)

	severity := "mahalanobis"
	if moves.Degraded() {
		severity = "euclidean fallback"
	}
	fmt.Fprintf(w, "  Joint severity : %.2fσ (%s)\n", moves.JointSigma, severity)
	fmt.Fprintf(w, "  Net P&L        : %.2fbn (exposure %.2f / hedge %.2f)\n",
		pnl.Net.Total/billion, pnl.Exposure.Total/billion, pnl.Hedge.Total/billion)
	fmt.Fprintf(w, "  Loss ratio     : %.2f%% of %.2fbn\n", pnl.LossRatio*100, pnl.Notional/billion)
}

func printMetrics(w io.Writer, m stress.ScenarioMetrics) {
	fmt.Fprintf(w, "  Score          : %.3f (loss %.3f × severity %.3f)\n", m.Score, m.LossScore, m.SeverityScore)
	fmt.Fprintf(w, "  Hint           : %s\n", m.Hint)
	if m.HintMessage != "" {
		fmt.Fprintf(w, "                   %s\n", m.HintMessage)
	}
}

// PrintStressSummary prints the quantitative summary of one worst-case search
func PrintStressSummary(w io.Writer, res *stress.StressResult) {
	printHeader(w, "Worst-Case Stress", res.Scenario)
	printFactorTable(w, res.Result.Shock, res.Result.Moves, res.Result.PnL)
	printMetrics(w, res.Metrics)

	converged := "yes"
	if !res.Result.Converged {
		converged = "no"
	}
	fmt.Fprintf(w, "  Converged      : %s (%s, %d iterations, %d starts)\n",
		converged, res.Result.Status, res.Result.Iterations, res.Result.Starts)
	if res.Result.Warning != "" {
		fmt.Fprintf(w, "  ⚠️  %s\n", res.Result.Warning)
	}
	fmt.Fprintln(w, doubleRule)
}

// PrintEvaluation prints a scored external shock
func PrintEvaluation(w io.Writer, ev *stress.Evaluation) {
	printHeader(w, "Shock Evaluation ("+ev.Proposer+")", ev.Scenario)
	e := ev.Evaluation
	printFactorTable(w, e.Shock, e.Moves, e.PnL)
	printMetrics(w, ev.Metrics)

	feasible := "yes"
	if !e.Feasible {
		feasible = fmt.Sprintf("no (penalty %.4f)", e.Penalty)
	}
	fmt.Fprintf(w, "  Feasible       : %s\n", feasible)
	fmt.Fprintln(w, doubleRule)
}

// PrintGreeks prints per-leg and net greeks of a scenario
func PrintGreeks(w io.Writer, scenario string, g stress.GreeksBreakdown) {
	printHeader(w, "Net Greeks", scenario)
	fmt.Fprintf(w, "  %-9s %14s %14s %14s %14s %14s\n", "Leg", "Delta", "Gamma", "Vega", "FX", "DV01")
	for _, leg := range []struct {
		name string
		g    stress.Greeks
	}{{"Exposure", g.Exposure}, {"Hedge", g.Hedge}, {"Net", g.Net}} {
		fmt.Fprintf(w, "  %-9s %14.4g %14.4g %14.4g %14.4g %14.4g\n",
			leg.name, leg.g.Delta, leg.g.Gamma, leg.g.Vega, leg.g.FX, leg.g.DV01)
	}
	fmt.Fprintln(w, doubleRule)
}

// PrintBatchReport prints one line per scenario of a batch run
func PrintBatchReport(w io.Writer, report *batch.Report) {
	fmt.Fprintln(w)
	fmt.Fprintln(w, doubleRule)
	fmt.Fprintf(w, "  Batch Run %s\n", report.RunID)
	fmt.Fprintln(w, singleRule)
	fmt.Fprintf(w, "  %-24s %10s %8s %8s %-20s\n", "Scenario", "LossRatio", "Joint", "Score", "Status")

	for _, o := range report.Outcomes {
		if o.Err != nil {
			fmt.Fprintf(w, "  %-24s %10s %8s %8s %-20s\n", truncate(o.Scenario, 24), "-", "-", "-", "❌ "+o.Label())
			fmt.Fprintf(w, "    %s\n", o.Err)
			continue
		}
		status := "✅ " + string(o.Result.Metrics.Hint)
		if o.Cached {
			status += " (cached)"
		}
		fmt.Fprintf(w, "  %-24s %9.2f%% %7.2fσ %8.3f %-20s\n",
			truncate(o.Scenario, 24),
			o.Result.Result.PnL.LossRatio*100,
			o.Result.Result.Shock.JointSigma,
			o.Result.Metrics.Score,
			status,
		)
	}

	fmt.Fprintln(w, singleRule)
	fmt.Fprintf(w, "  %d scenarios, %d failed, worst loss ratio %.2f%%, %.2fs\n",
		len(report.Outcomes), report.Failed(), report.WorstLossRatio()*100, report.Elapsed.Seconds())
	fmt.Fprintln(w, doubleRule)
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// parseProposer CLI --proposer 값
func parseProposer(name string, shock stress.ShockParams, cfg stress.OptimizerConfig) (stress.ShockProposer, error) {
	switch strings.ToLower(name) {
	case "", "fixed":
		return stress.FixedProposer{Shock: shock}, nil
	case "greek_aligned", "greek":
		return stress.GreekAlignedProposer{}, nil
	case "worst_case", "worst":
		return stress.WorstCaseProposer{Config: cfg}, nil
	default:
		return nil, fmt.Errorf("unknown proposer %q (fixed|greek_aligned|worst_case)", name)
	}
}
