package stress

import (
	"fmt"
	"math"
)

// =============================================================================
// Scenario Metrics
// =============================================================================

// MetricsTargets 목표 loss ratio / joint severity
type MetricsTargets struct {
	LossRatio  float64 `json:"loss_ratio" yaml:"loss_ratio"`
	JointSigma float64 `json:"joint_sigma" yaml:"joint_sigma"`
}

// DefaultMetricsTargets 기본 목표 (10% 손실, 6σ)
func DefaultMetricsTargets() MetricsTargets {
	return MetricsTargets{LossRatio: 0.10, JointSigma: 6.0}
}

// Validate requires both targets to be positive and finite.
func (t MetricsTargets) Validate() error {
	if !(t.LossRatio > 0) || math.IsInf(t.LossRatio, 0) {
		return fmt.Errorf("%w: target loss_ratio must be > 0, got %v", ErrInvalidConfig, t.LossRatio)
	}
	if !(t.JointSigma > 0) || math.IsInf(t.JointSigma, 0) {
		return fmt.Errorf("%w: target joint_sigma must be > 0, got %v", ErrInvalidConfig, t.JointSigma)
	}
	return nil
}

// Hint 반복 개선용 권고 (advisory)
type Hint string

const (
	HintDegenerate        Hint = "degenerate"         // 손실이 없음: 적대적 시나리오 탐색 실패
	HintSeverityExcessive Hint = "severity_excessive" // 목표보다 과도한 joint severity
	HintLossBelowTarget   Hint = "loss_below_target"  // 손실이 목표 미달
	HintBalanced          Hint = "balanced"
)

// Message returns the advisory text for the hint.
func (h Hint) Message() string {
	switch h {
	case HintDegenerate:
		return "worst shock found does not lose money; search did not find an adversarial scenario"
	case HintSeverityExcessive:
		return "joint severity exceeds target; scenario may be implausible"
	case HintLossBelowTarget:
		return "loss ratio below target; hedge holds under this shock"
	default:
		return "loss and severity near target"
	}
}

// ScenarioMetrics bounded score for a stress result.
type ScenarioMetrics struct {
	LossRatio      float64 `json:"loss_ratio"`
	JointSigma     float64 `json:"joint_sigma"`
	LossScore      float64 `json:"loss_score"`     // f(loss_ratio / target), in (-1, 1)
	SeverityScore  float64 `json:"severity_score"` // f(max(0, joint/target - 1)), in [0, 1)
	Score          float64 `json:"score"`          // LossScore × (1 − SeverityScore)
	Degenerate     bool    `json:"degenerate"`
	Hint           Hint    `json:"hint"`
	HintMessage    string  `json:"hint_message"`
	TargetLoss     float64 `json:"target_loss_ratio"`
	TargetSeverity float64 `json:"target_joint_sigma"`
}

// Squash rational squashing f(r) = r / (1 + |r|)
func Squash(r float64) float64 {
	return r / (1 + math.Abs(r))
}

// EvaluateScenarioMetrics normalizes loss ratio and joint severity into a bounded score.
// loss_ratio ≤ 0 은 Degenerate 로 별도 표시한다 (낮은 점수와 구분)
func EvaluateScenarioMetrics(exposure []Instrument, moves FactorMoves, net PnL, targets MetricsTargets) ScenarioMetrics {
	var lossRatio float64
	if notional := ExposureNotional(exposure); notional > 0 {
		lossRatio = -net.Total / notional
	}

	lossScore := Squash(lossRatio / targets.LossRatio)
	sevScore := Squash(math.Max(0, moves.JointSigma/targets.JointSigma-1))

	m := ScenarioMetrics{
		LossRatio:      lossRatio,
		JointSigma:     moves.JointSigma,
		LossScore:      lossScore,
		SeverityScore:  sevScore,
		Score:          lossScore * (1 - sevScore),
		Degenerate:     lossRatio <= 0,
		TargetLoss:     targets.LossRatio,
		TargetSeverity: targets.JointSigma,
	}

	switch {
	case m.Degenerate:
		m.Hint = HintDegenerate
	case moves.JointSigma > targets.JointSigma:
		m.Hint = HintSeverityExcessive
	case lossRatio < targets.LossRatio:
		m.Hint = HintLossBelowTarget
	default:
		m.Hint = HintBalanced
	}
	m.HintMessage = m.Hint.Message()
	return m
}
