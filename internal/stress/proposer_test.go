package stress

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGreekAlignedProposer(t *testing.T) {
	stats := equityOnlyStats(8)

	shock, err := GreekAlignedProposer{}.Propose(context.Background(), longEquityScenario(), stats)
	require.NoError(t, err)

	// long equity only: push equity down to the joint bound
	assert.InDelta(t, -8.0, shock.EqShockSigma, 1e-9)
	assert.Equal(t, 0.0, shock.VolShockSigma)
	assert.Equal(t, 0.0, shock.FXShockSigma)
	assert.Equal(t, 0.0, shock.IRShockSigma)
	assert.InDelta(t, 8.0, shock.JointSigma, 1e-9)
}

func TestGreekAlignedProposer_SignsOpposeGreeks(t *testing.T) {
	stats := crisisStats()
	sc := Scenario{
		Name: "mixed",
		Exposure: []Instrument{
			{Name: "short_vol", MtMValue: 1_000_000_000, VolLinear: -2},
			{Name: "usd_liab", MtMValue: 1_000_000_000, FXLinear: 1},
			{Name: "receiver", MtMValue: 1_000_000_000, IRDV01: 300_000},
		},
	}

	shock, err := GreekAlignedProposer{}.Propose(context.Background(), sc, stats)
	require.NoError(t, err)

	assert.Greater(t, shock.VolShockSigma, 0.0) // short vega → vol up
	assert.Less(t, shock.FXShockSigma, 0.0)     // long fx → fx down
	assert.Less(t, shock.IRShockSigma, 0.0)     // positive dv01 → rates down
	j, _ := JointSeverity(shock, stats)
	assert.LessOrEqual(t, j, stats.MaxJointSigma+1e-9)

	ev := EvaluateShock(sc, stats, shock, DefaultPenaltyWeight)
	assert.Greater(t, ev.PnL.Loss, 0.0)
}

func TestGreekAlignedProposer_NoSensitivity(t *testing.T) {
	sc := Scenario{Name: "cash", Exposure: []Instrument{{Name: "cash", MtMValue: 1e6}}}
	shock, err := GreekAlignedProposer{}.Propose(context.Background(), sc, crisisStats())
	require.NoError(t, err)
	assert.Equal(t, ShockParams{}, shock)
}

func TestFixedProposer(t *testing.T) {
	want := ShockParams{EqShockSigma: -3, FXShockSigma: 1}
	p := FixedProposer{Label: "desk_view", Shock: want}

	got, err := p.Propose(context.Background(), hedgedScenario(), crisisStats())
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, "desk_view", p.Name())
	assert.Equal(t, "fixed", FixedProposer{}.Name())

	_, err = FixedProposer{Shock: ShockParams{VolShockSigma: math.NaN()}}.Propose(context.Background(), hedgedScenario(), crisisStats())
	assert.True(t, errors.Is(err, ErrInvalidShock))
}

func TestWorstCaseProposer_MatchesOptimizer(t *testing.T) {
	stats := equityOnlyStats(10)
	p := WorstCaseProposer{Config: DefaultOptimizerConfig()}

	shock, err := p.Propose(context.Background(), longEquityScenario(), stats)
	require.NoError(t, err)

	want, _, _, err := OptimizeWorstCaseShock(longEquityScenario(), stats)
	require.NoError(t, err)
	assert.Equal(t, want, shock)
}

func TestProposers_FeasibleShocks(t *testing.T) {
	stats := crisisStats()
	sc := hedgedScenario()
	ctx := context.Background()

	worst, err := WorstCaseProposer{Config: DefaultOptimizerConfig()}.Propose(ctx, sc, stats)
	require.NoError(t, err)
	greek, err := GreekAlignedProposer{}.Propose(ctx, sc, stats)
	require.NoError(t, err)

	for _, s := range []ShockParams{worst, greek} {
		ev := EvaluateShock(sc, stats, s, DefaultPenaltyWeight)
		assert.True(t, ev.Feasible)
		assert.Greater(t, ev.PnL.Loss, 0.0)
	}
}
