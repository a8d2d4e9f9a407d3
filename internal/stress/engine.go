package stress

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/hedgestress/pkg/logger"
)

// =============================================================================
// Engine - 로깅/계측이 붙은 진입점
// =============================================================================

// Recorder 계측 훅 (internal/metrics 가 구현)
type Recorder interface {
	ObserveOptimization(scenario string, converged bool, elapsed time.Duration)
	SeverityFallback(scenario string)
}

type nopRecorder struct{}

func (nopRecorder) ObserveOptimization(string, bool, time.Duration) {}
func (nopRecorder) SeverityFallback(string)                         {}

// Engine 스트레스 엔진
// ⭐ 상태 없음: 여러 고루틴에서 서로 다른 시나리오를 동시에 평가해도 안전
type Engine struct {
	log           *logger.Logger
	cfg           OptimizerConfig
	targets       MetricsTargets
	penaltyWeight float64
	rec           Recorder
}

// Option configures an Engine.
type Option func(*Engine)

// WithTargets sets the scenario metrics targets.
func WithTargets(t MetricsTargets) Option {
	return func(e *Engine) { e.targets = t }
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(r Recorder) Option {
	return func(e *Engine) {
		if r != nil {
			e.rec = r
		}
	}
}

// WithPenaltyWeight sets λ used by EvaluateShock.
func WithPenaltyWeight(lambda float64) Option {
	return func(e *Engine) { e.penaltyWeight = lambda }
}

// NewEngine 새 엔진 생성
func NewEngine(log *logger.Logger, cfg OptimizerConfig, opts ...Option) *Engine {
	if log == nil {
		log = logger.Nop()
	}
	e := &Engine{
		log:           log,
		cfg:           cfg,
		targets:       DefaultMetricsTargets(),
		penaltyWeight: DefaultPenaltyWeight,
		rec:           nopRecorder{},
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the optimizer settings.
func (e *Engine) Config() OptimizerConfig { return e.cfg }

// Targets returns the metrics targets.
func (e *Engine) Targets() MetricsTargets { return e.targets }

// StressResult 시나리오 하나의 최종 스트레스 결과
type StressResult struct {
	Scenario string          `json:"scenario"`
	Result   WorstCaseResult `json:"result"`
	Metrics  ScenarioMetrics `json:"metrics"`
	Greeks   GreeksBreakdown `json:"greeks"`
	Elapsed  time.Duration   `json:"elapsed"`
}

// Optimize runs the worst-case search and scores the result.
// 설정 오류만 에러를 반환한다. 비수렴은 경고 로그 + Result.Converged=false
func (e *Engine) Optimize(ctx context.Context, scenario Scenario, stats RiskStats) (*StressResult, error) {
	log := e.log.WithField("scenario", scenario.Name)
	if err := e.targets.Validate(); err != nil {
		return nil, err
	}

	start := time.Now()
	log.Debug("worst-case search started")

	res, err := OptimizeWorstCase(ctx, scenario, stats, e.cfg)
	if err != nil {
		log.WithError(err).Error("worst-case search failed")
		return nil, fmt.Errorf("scenario %s: %w", scenario.Name, err)
	}
	elapsed := time.Since(start)

	e.checkSeverity(log, scenario.Name, res.Moves)
	if !res.Converged {
		log.WithFields(map[string]interface{}{
			"status":     res.Status,
			"iterations": res.Iterations,
			"warning":    res.Warning,
		}).Warn("worst-case search did not converge, returning best iterate")
	}
	e.rec.ObserveOptimization(scenario.Name, res.Converged, elapsed)

	metrics := EvaluateScenarioMetrics(scenario.Exposure, res.Moves, res.PnL.Net, e.targets)
	if metrics.Degenerate {
		log.Warn("worst-case shock does not produce a loss")
	}

	log.WithFields(map[string]interface{}{
		"loss_ratio":  res.PnL.LossRatio,
		"joint_sigma": res.Shock.JointSigma,
		"iterations":  res.Iterations,
		"elapsed_ms":  elapsed.Milliseconds(),
	}).Debug("worst-case search finished")

	return &StressResult{
		Scenario: scenario.Name,
		Result:   *res,
		Metrics:  metrics,
		Greeks:   ComputeGreeks(scenario.Exposure, scenario.Hedge),
		Elapsed:  elapsed,
	}, nil
}

// Moves computes factor moves and logs when the Euclidean fallback is used.
// RiskStats 는 검증하지 않는다 (외부 검토자용 primitive)
func (e *Engine) Moves(shock ShockParams, stats RiskStats) FactorMoves {
	moves := CalculateFactorMoves(shock, stats)
	e.checkSeverity(e.log, "", moves)
	return moves
}

// Evaluation 외부 제안 충격 평가 결과
type Evaluation struct {
	Scenario   string          `json:"scenario"`
	Proposer   string          `json:"proposer"`
	Evaluation ShockEvaluation `json:"evaluation"`
	Metrics    ScenarioMetrics `json:"metrics"`
}

// EvaluateShock scores a shock without running the optimizer.
func (e *Engine) EvaluateShock(scenario Scenario, stats RiskStats, shock ShockParams) (*Evaluation, error) {
	return e.evaluate("fixed", scenario, stats, shock)
}

// EvaluateProposal asks the proposer for a shock and scores it.
func (e *Engine) EvaluateProposal(ctx context.Context, p ShockProposer, scenario Scenario, stats RiskStats) (*Evaluation, error) {
	if err := ValidateRiskStats(stats); err != nil {
		return nil, err
	}
	shock, err := p.Propose(ctx, scenario, stats)
	if err != nil {
		return nil, fmt.Errorf("proposer %s: %w", p.Name(), err)
	}
	return e.evaluate(p.Name(), scenario, stats, shock)
}

func (e *Engine) evaluate(proposer string, scenario Scenario, stats RiskStats, shock ShockParams) (*Evaluation, error) {
	if err := ValidateRiskStats(stats); err != nil {
		return nil, err
	}
	if err := ValidateScenario(scenario); err != nil {
		return nil, err
	}
	if err := ValidateShock(shock); err != nil {
		return nil, err
	}
	if err := e.targets.Validate(); err != nil {
		return nil, err
	}

	log := e.log.WithFields(map[string]interface{}{"scenario": scenario.Name, "proposer": proposer})
	ev := EvaluateShock(scenario, stats, shock, e.penaltyWeight)
	e.checkSeverity(log, scenario.Name, ev.Moves)
	if !ev.Feasible {
		log.WithField("penalty", ev.Penalty).Info("proposed shock is outside plausibility bounds")
	}

	return &Evaluation{
		Scenario:   scenario.Name,
		Proposer:   proposer,
		Evaluation: ev,
		Metrics:    EvaluateScenarioMetrics(scenario.Exposure, ev.Moves, ev.PnL.Net, e.targets),
	}, nil
}

func (e *Engine) checkSeverity(log *logger.Logger, scenario string, moves FactorMoves) {
	if !moves.Degraded() {
		return
	}
	log.WithField("severity_mode", string(moves.SeverityMode)).
		Warn("crisis correlation matrix is not invertible, joint severity uses euclidean norm")
	e.rec.SeverityFallback(scenario)
}
