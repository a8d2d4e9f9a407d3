package stress

import (
	"context"
	"math"
)

// =============================================================================
// Shock Proposers
// =============================================================================

// ShockProposer 충격 후보 생성 전략
// 엔진은 후보가 어떻게 만들어졌는지 모른 채 평가만 한다
type ShockProposer interface {
	Name() string
	Propose(ctx context.Context, scenario Scenario, stats RiskStats) (ShockParams, error)
}

// WorstCaseProposer proposes the optimizer's worst feasible shock.
type WorstCaseProposer struct {
	Config OptimizerConfig
}

func (p WorstCaseProposer) Name() string { return "worst_case" }

func (p WorstCaseProposer) Propose(ctx context.Context, scenario Scenario, stats RiskStats) (ShockParams, error) {
	res, err := OptimizeWorstCase(ctx, scenario, stats, p.Config)
	if err != nil {
		return ShockParams{}, err
	}
	return res.Shock, nil
}

// GreekAlignedProposer 1차 민감도 반대 방향으로 충격
// 방향 d_i = −(net greek_i × vol_i), box 최대치로 스케일 후 feasible 영역으로 투영
type GreekAlignedProposer struct{}

func (GreekAlignedProposer) Name() string { return "greek_aligned" }

func (GreekAlignedProposer) Propose(ctx context.Context, scenario Scenario, stats RiskStats) (ShockParams, error) {
	if err := ctx.Err(); err != nil {
		return ShockParams{}, err
	}
	if err := ValidateRiskStats(stats); err != nil {
		return ShockParams{}, err
	}

	g := ComputeGreeks(scenario.Exposure, scenario.Hedge).Net
	vols := stats.Vols()
	// P&L per +1σ (first order)
	grad := [NumFactors]float64{
		g.Delta * vols[FactorEquity],
		g.Vega * vols[FactorVol],
		g.FX * vols[FactorFX],
		g.DV01 * vols[FactorRates] * bpPerUnit,
	}

	var peak float64
	for _, v := range grad {
		peak = math.Max(peak, math.Abs(v))
	}
	if peak == 0 {
		return ShockParams{}, nil
	}

	var x [NumFactors]float64
	for i, v := range grad {
		x[i] = -v / peak * stats.MaxFactorSigma
	}
	sev := newSeverity(stats.CorrCrisis)
	x = projectFeasible(x, stats, sev)

	shock := ShockFromVector(x[:])
	shock.JointSigma = sev.joint(x)
	return shock, nil
}

// FixedProposer returns an externally supplied shock unchanged.
type FixedProposer struct {
	Label string
	Shock ShockParams
}

func (p FixedProposer) Name() string {
	if p.Label == "" {
		return "fixed"
	}
	return p.Label
}

func (p FixedProposer) Propose(ctx context.Context, _ Scenario, _ RiskStats) (ShockParams, error) {
	if err := ctx.Err(); err != nil {
		return ShockParams{}, err
	}
	if err := ValidateShock(p.Shock); err != nil {
		return ShockParams{}, err
	}
	return p.Shock, nil
}

// ProjectShock maps a shock into the feasible region (box, then joint radius).
func ProjectShock(shock ShockParams, stats RiskStats) ShockParams {
	sev := newSeverity(stats.CorrCrisis)
	x := projectFeasible(shock.Vector(), stats, sev)
	out := ShockFromVector(x[:])
	out.JointSigma = sev.joint(x)
	return out
}
