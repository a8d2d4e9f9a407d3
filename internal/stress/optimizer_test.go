package stress

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOptimizeWorstCaseShock_LongEquity(t *testing.T) {
	tests := []struct {
		name     string
		maxJoint float64
		wantEq   float64
	}{
		// joint bound equal to the box bound: the box corner on the equity axis is reachable
		{name: "joint bound 10", maxJoint: 10, wantEq: -10},
		// joint bound binds before the box bound
		{name: "joint bound 8", maxJoint: 8, wantEq: -8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			stats := equityOnlyStats(tt.maxJoint)
			shock, moves, pnl, err := OptimizeWorstCaseShock(longEquityScenario(), stats)
			require.NoError(t, err)

			wantMove := 0.012 * tt.wantEq * math.Sqrt(5)
			assert.InDelta(t, tt.wantEq, shock.EqShockSigma, 0.05)
			assert.InDelta(t, wantMove, moves.EqMove, 0.012*math.Sqrt(5)*0.05)
			assert.InEpsilon(t, 1e11*wantMove, pnl.Net.Total, 0.01)
			assert.InEpsilon(t, -wantMove, pnl.LossRatio, 0.01)
			assert.InDelta(t, -tt.wantEq, shock.JointSigma, 0.05)
			assert.LessOrEqual(t, shock.JointSigma, tt.maxJoint+1e-6)
		})
	}
}

// 반환 충격 주변 ±0.2σ 의 가능해 중 더 나쁜 점이 없어야 한다 (국소 최적)
func TestOptimizeWorstCase_NoBetterFeasibleNeighbour(t *testing.T) {
	tests := []struct {
		name     string
		scenario Scenario
		stats    RiskStats
	}{
		{name: "long equity joint bound 8", scenario: longEquityScenario(), stats: equityOnlyStats(8)},
		{name: "hedged book crisis", scenario: hedgedScenario(), stats: crisisStats()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultOptimizerConfig()
			res, err := OptimizeWorstCase(context.Background(), tt.scenario, tt.stats, cfg)
			require.NoError(t, err)
			assert.True(t, res.Converged, res.Warning)

			got := res.PnL.Net.Total
			slack := 10 * cfg.ObjectiveTol * math.Abs(got)
			sev := newSeverity(tt.stats.CorrCrisis)
			insts := tt.scenario.Instruments()
			base := res.Shock.Vector()

			rng := rand.New(rand.NewSource(42))
			better := 0
			worst := got
			for k := 0; k < 20000; k++ {
				var x [NumFactors]float64
				for i := range x {
					x[i] = base[i] + 0.4*(rng.Float64()-0.5)
				}
				p := projectFeasible(x, tt.stats, sev)
				if f := netTotal(insts, factorMoves(p, tt.stats, sev)); f < got-slack {
					better++
					worst = math.Min(worst, f)
				}
			}
			assert.Zero(t, better, "found %d feasible neighbours below %.6g (best %.6g)", better, got, worst)
		})
	}
}

func TestOptimizeWorstCaseShock_ConcreteNumbers(t *testing.T) {
	shock, moves, pnl, err := OptimizeWorstCaseShock(longEquityScenario(), equityOnlyStats(10))
	require.NoError(t, err)

	assert.InDelta(t, -10, shock.EqShockSigma, 0.05)
	assert.InDelta(t, -0.2683, moves.EqMove, 0.002)
	assert.InDelta(t, -26.83e9, pnl.Net.Total, 0.2e9)
	assert.InDelta(t, 0.2683, pnl.LossRatio, 0.002)
	assert.InDelta(t, 10, shock.JointSigma, 0.05)
	assert.InDelta(t, 26.83e9, pnl.Loss, 0.2e9)
}

func TestOptimizeWorstCase_Feasibility(t *testing.T) {
	scenarios := []Scenario{
		longEquityScenario(),
		hedgedScenario(),
		{
			Name: "short_vol",
			Exposure: []Instrument{
				{Name: "short_straddle", MtMValue: -2_000_000_000, VolLinear: 5, EqQuad: 20},
			},
		},
		{
			Name: "rates_and_fx",
			Exposure: []Instrument{
				{Name: "swap_book", MtMValue: 5_000_000_000, IRDV01: 4_000_000},
				{Name: "usd_assets", MtMValue: 8_000_000_000, FXLinear: -1},
			},
			Hedge: []Instrument{
				{Name: "payer_swaption", MtMValue: 100_000_000, IRDV01: -1_000_000},
			},
		},
	}

	for _, restarts := range []bool{false, true} {
		cfg := DefaultOptimizerConfig()
		cfg.CornerRestarts = restarts
		for _, stats := range []RiskStats{crisisStats(), equityOnlyStats(8)} {
			for _, sc := range scenarios {
				res, err := OptimizeWorstCase(context.Background(), sc, stats, cfg)
				require.NoError(t, err, sc.Name)

				for i, v := range res.Shock.Vector() {
					assert.LessOrEqual(t, math.Abs(v), stats.MaxFactorSigma+1e-9, "%s factor %d", sc.Name, i)
				}
				j, _ := JointSeverity(res.Shock, stats)
				assert.LessOrEqual(t, j, stats.MaxJointSigma+1e-6, sc.Name)
				assert.InDelta(t, j, res.Shock.JointSigma, 1e-12, sc.Name)
				assert.Equal(t, res.Moves.JointSigma, res.Shock.JointSigma)

				// non-regression: never worse than the zero shock
				assert.LessOrEqual(t, res.PnL.Net.Total, 0.0, sc.Name)
				if restarts {
					assert.Equal(t, 1+16, res.Starts)
				} else {
					assert.Equal(t, 1, res.Starts)
				}
			}
		}
	}
}

func TestOptimizeWorstCase_CornerRestartsNeverWorse(t *testing.T) {
	stats := crisisStats()
	sc := hedgedScenario()

	plain, err := OptimizeWorstCase(context.Background(), sc, stats, DefaultOptimizerConfig())
	require.NoError(t, err)

	cfg := DefaultOptimizerConfig()
	cfg.CornerRestarts = true
	multi, err := OptimizeWorstCase(context.Background(), sc, stats, cfg)
	require.NoError(t, err)

	assert.LessOrEqual(t, multi.PnL.Net.Total, plain.PnL.Net.Total+1e-6*math.Abs(plain.PnL.Net.Total))
}

func TestOptimizeWorstCase_ReportedTripleIsReproducible(t *testing.T) {
	stats := crisisStats()
	sc := hedgedScenario()

	res, err := OptimizeWorstCase(context.Background(), sc, stats, DefaultOptimizerConfig())
	require.NoError(t, err)

	moves := CalculateFactorMoves(res.Shock, stats)
	assert.Equal(t, res.Moves, moves)
	assert.Equal(t, res.PnL, CalculatePortfolioPnL(sc.Exposure, sc.Hedge, moves))
}

func TestOptimizeWorstCase_NonConvergenceIsAWarning(t *testing.T) {
	cfg := DefaultOptimizerConfig()
	cfg.MaxIterations = 1

	res, err := OptimizeWorstCase(context.Background(), hedgedScenario(), crisisStats(), cfg)
	require.NoError(t, err)

	assert.False(t, res.Converged)
	assert.NotEmpty(t, res.Warning)
	assert.NotEqual(t, "Success", res.Status)

	// best iterate is still feasible and no worse than no shock
	j, _ := JointSeverity(res.Shock, crisisStats())
	assert.LessOrEqual(t, j, crisisStats().MaxJointSigma+1e-6)
	assert.LessOrEqual(t, res.PnL.Net.Total, 0.0)
}

func TestOptimizeWorstCase_FullyHedged(t *testing.T) {
	sc := Scenario{
		Name:     "flat",
		Exposure: []Instrument{{Name: "stock", MtMValue: 1_000_000, EqLinear: 1}},
		Hedge:    []Instrument{{Name: "future", MtMValue: -1_000_000, EqLinear: 1}},
	}

	res, err := OptimizeWorstCase(context.Background(), sc, equityOnlyStats(8), DefaultOptimizerConfig())
	require.NoError(t, err)

	assert.Equal(t, 0.0, res.PnL.Net.Total)
	assert.Equal(t, 0.0, res.PnL.LossRatio)
	assert.Equal(t, ShockParams{}, res.Shock)
}

func TestOptimizeWorstCase_InvalidInputs(t *testing.T) {
	ctx := context.Background()
	cfg := DefaultOptimizerConfig()

	t.Run("non-positive vol", func(t *testing.T) {
		stats := crisisStats()
		stats.FXVol = 0
		_, err := OptimizeWorstCase(ctx, hedgedScenario(), stats, cfg)
		require.Error(t, err)
		assert.True(t, errors.Is(err, ErrInvalidRiskStats))

		var ve ValidationError
		require.True(t, errors.As(err, &ve))
		assert.Equal(t, "fx_vol", ve.Field)
	})

	t.Run("asymmetric correlation", func(t *testing.T) {
		stats := crisisStats()
		stats.CorrCrisis[0][2] = 0.1
		_, err := OptimizeWorstCase(ctx, hedgedScenario(), stats, cfg)
		assert.True(t, errors.Is(err, ErrInvalidRiskStats))
	})

	t.Run("non-square correlation", func(t *testing.T) {
		stats := crisisStats()
		stats.CorrCrisis = stats.CorrCrisis[:3]
		_, err := OptimizeWorstCase(ctx, hedgedScenario(), stats, cfg)
		assert.True(t, errors.Is(err, ErrInvalidRiskStats))
	})

	t.Run("instrument in both legs", func(t *testing.T) {
		sc := hedgedScenario()
		sc.Hedge = append(sc.Hedge, Instrument{Name: "global_equity", MtMValue: 1})
		_, err := OptimizeWorstCase(ctx, sc, crisisStats(), cfg)
		assert.True(t, errors.Is(err, ErrInvalidScenario))
	})

	t.Run("bad optimizer config", func(t *testing.T) {
		bad := cfg
		bad.ObjectiveTol = 0
		_, err := OptimizeWorstCase(ctx, hedgedScenario(), crisisStats(), bad)
		assert.True(t, errors.Is(err, ErrInvalidConfig))
	})
}

func TestOptimizeWorstCase_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := OptimizeWorstCase(ctx, hedgedScenario(), crisisStats(), DefaultOptimizerConfig())
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestProjectShock(t *testing.T) {
	stats := equityOnlyStats(8)

	p := ProjectShock(ShockParams{EqShockSigma: -15, VolShockSigma: 3}, stats)
	assert.LessOrEqual(t, math.Abs(p.EqShockSigma), stats.MaxFactorSigma)
	assert.InDelta(t, 8.0, p.JointSigma, 1e-9)
	assert.Less(t, p.EqShockSigma, 0.0)

	inside := ShockParams{EqShockSigma: 1, FXShockSigma: -2}
	q := ProjectShock(inside, stats)
	assert.Equal(t, inside.EqShockSigma, q.EqShockSigma)
	assert.Equal(t, inside.FXShockSigma, q.FXShockSigma)
}
