package commands

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/hedgestress/internal/batch"
	"github.com/wonny/hedgestress/internal/stress"
)

func testStats() stress.RiskStats {
	return stress.RiskStats{
		EqVol: 0.012, VolOfVol: 0.05, FXVol: 0.006, IRVol: 0.0007,
		CorrCrisis: [][]float64{
			{1, 0, 0, 0},
			{0, 1, 0, 0},
			{0, 0, 1, 0},
			{0, 0, 0, 1},
		},
		HorizonDays:    5,
		MaxFactorSigma: 10,
		MaxJointSigma:  10,
	}
}

func testScenario() stress.Scenario {
	return stress.Scenario{
		Name:     "long_equity",
		Exposure: []stress.Instrument{{Name: "equity_book", MtMValue: 100_000_000_000, EqLinear: 1}},
		Hedge:    []stress.Instrument{{Name: "index_puts", MtMValue: 1_000_000_000, EqLinear: -0.5, VolLinear: 0.2}},
	}
}

func TestPrintStressSummary(t *testing.T) {
	res, err := stress.NewEngine(nil, stress.DefaultOptimizerConfig()).
		Optimize(context.Background(), testScenario(), testStats())
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintStressSummary(&buf, res)
	out := buf.String()

	assert.Contains(t, out, "Worst-Case Stress")
	assert.Contains(t, out, "long_equity")
	for _, label := range []string{"Equity", "Vol", "FX", "Rates"} {
		assert.Contains(t, out, label)
	}
	assert.Contains(t, out, "mahalanobis")
	assert.Contains(t, out, "Loss ratio")
	assert.Contains(t, out, string(res.Metrics.Hint))
}

func TestPrintEvaluation(t *testing.T) {
	ev, err := stress.NewEngine(nil, stress.DefaultOptimizerConfig()).
		EvaluateShock(testScenario(), testStats(), stress.ShockParams{EqShockSigma: -12})
	require.NoError(t, err)

	var buf bytes.Buffer
	PrintEvaluation(&buf, ev)
	assert.Contains(t, buf.String(), "Shock Evaluation (fixed)")
	assert.Contains(t, buf.String(), "no (penalty")
	assert.Contains(t, buf.String(), "-12.00")
}

func TestPrintGreeks(t *testing.T) {
	sc := testScenario()
	var buf bytes.Buffer
	PrintGreeks(&buf, sc.Name, stress.ComputeGreeks(sc.Exposure, sc.Hedge))

	out := buf.String()
	assert.Contains(t, out, "Net Greeks")
	assert.Contains(t, out, "Exposure")
	assert.Contains(t, out, "Hedge")
	assert.Contains(t, out, "1e+11")
}

func TestPrintBatchReport(t *testing.T) {
	res, err := stress.NewEngine(nil, stress.DefaultOptimizerConfig()).
		Optimize(context.Background(), testScenario(), testStats())
	require.NoError(t, err)

	report := &batch.Report{
		Outcomes: []batch.Outcome{
			{Scenario: "long_equity", Result: res},
			{Scenario: "a_scenario_name_that_is_far_too_long", Result: res, Cached: true},
			{Scenario: "broken", Err: errors.New("invalid scenario: name: required")},
		},
	}

	var buf bytes.Buffer
	PrintBatchReport(&buf, report)
	out := buf.String()

	assert.Contains(t, out, "long_equity")
	assert.Contains(t, out, "(cached)")
	assert.Contains(t, out, "a_scenario_name_that_is…")
	assert.Contains(t, out, "❌ error")
	assert.Contains(t, out, "3 scenarios, 1 failed")
}

func TestSelectScenarios(t *testing.T) {
	all := []stress.Scenario{{Name: "a"}, {Name: "b"}, {Name: "c"}}

	got, err := selectScenarios(all, nil)
	require.NoError(t, err)
	assert.Len(t, got, 3)

	got, err = selectScenarios(all, []string{"c", "a"})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "c", got[0].Name)
	assert.Equal(t, "a", got[1].Name)

	_, err = selectScenarios(all, []string{"z"})
	assert.Error(t, err)
}

func TestParseProposer(t *testing.T) {
	shock := stress.ShockParams{EqShockSigma: -3}
	cfg := stress.DefaultOptimizerConfig()

	for name, want := range map[string]string{
		"":              "fixed",
		"fixed":         "fixed",
		"greek_aligned": "greek_aligned",
		"Worst_Case":    "worst_case",
	} {
		p, err := parseProposer(name, shock, cfg)
		require.NoError(t, err, name)
		assert.Equal(t, want, p.Name())
	}

	_, err := parseProposer("oracle", shock, cfg)
	assert.Error(t, err)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
}
