package stress

import "math"

// DefaultPenaltyWeight λ for PenalizedLoss.
const DefaultPenaltyWeight = 1e9

// feasibleTol penalty at or below this counts as feasible (rounding at the boundary)
const feasibleTol = 1e-12

// PlausibilityPenalty soft 제약 위반량
// Σ max(|x_i| − maxFactor, 0)² + max(0, joint − maxJoint)²
// 최적화에는 쓰지 않는다 (외부 제안 충격 점수용 smoothing)
func PlausibilityPenalty(shock ShockParams, stats RiskStats) float64 {
	return plausibilityPenalty(shock.Vector(), stats, newSeverity(stats.CorrCrisis))
}

func plausibilityPenalty(x [NumFactors]float64, stats RiskStats, sev severity) float64 {
	var p float64
	for _, v := range x {
		if over := math.Abs(v) - stats.MaxFactorSigma; over > 0 {
			p += over * over
		}
	}
	if over := sev.joint(x) - stats.MaxJointSigma; over > 0 {
		p += over * over
	}
	return p
}

// ShockEvaluation 옵티마이저 없이 주어진 충격을 평가한 결과
type ShockEvaluation struct {
	Shock         ShockParams  `json:"shock"`
	Moves         FactorMoves  `json:"moves"`
	PnL           PnLBreakdown `json:"pnl"`
	Penalty       float64      `json:"penalty"`
	Feasible      bool         `json:"feasible"`
	PenalizedLoss float64      `json:"penalized_loss"` // loss − λ·penalty
}

// EvaluateShock scores an externally proposed shock.
// The shock is not projected: infeasible shocks are reported with Feasible=false
// and a reduced PenalizedLoss.
func EvaluateShock(scenario Scenario, stats RiskStats, shock ShockParams, lambda float64) ShockEvaluation {
	sev := newSeverity(stats.CorrCrisis)
	x := shock.Vector()
	moves := factorMoves(x, stats, sev)
	pnl := CalculatePortfolioPnL(scenario.Exposure, scenario.Hedge, moves)
	penalty := plausibilityPenalty(x, stats, sev)

	shock.JointSigma = moves.JointSigma
	return ShockEvaluation{
		Shock:         shock,
		Moves:         moves,
		PnL:           pnl,
		Penalty:       penalty,
		Feasible:      penalty <= feasibleTol,
		PenalizedLoss: pnl.Loss - lambda*penalty,
	}
}
