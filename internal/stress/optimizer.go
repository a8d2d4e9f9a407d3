package stress

import (
	"context"
	"fmt"
	"math"
	"strings"

	"gonum.org/v1/gonum/optimize"
)

// =============================================================================
// Optimizer Config
// =============================================================================

// OptimizerConfig 최악 충격 탐색 설정
type OptimizerConfig struct {
	MaxIterations   int     `json:"max_iterations"`   // Nelder–Mead major iteration cap
	ObjectiveTol    float64 `json:"objective_tol"`    // absolute/relative objective improvement tolerance
	ConstraintTol   float64 `json:"constraint_tol"`   // allowed bound violation at the final point
	InitialStep     float64 `json:"initial_step"`     // initial simplex size (σ)
	StallIterations int     `json:"stall_iterations"` // iterations without improvement before stopping
	CornerRestarts  bool    `json:"corner_restarts"`  // extra starts from the 16 box corners
}

// DefaultOptimizerConfig 기본 설정
func DefaultOptimizerConfig() OptimizerConfig {
	return OptimizerConfig{
		MaxIterations:   5000,
		ObjectiveTol:    1e-4,
		ConstraintTol:   1e-4,
		InitialStep:     1.0,
		StallIterations: 100,
		CornerRestarts:  false,
	}
}

// Validate rejects non-positive settings.
func (c OptimizerConfig) Validate() error {
	switch {
	case c.MaxIterations <= 0:
		return fmt.Errorf("%w: max_iterations must be > 0, got %d", ErrInvalidConfig, c.MaxIterations)
	case !(c.ObjectiveTol > 0):
		return fmt.Errorf("%w: objective_tol must be > 0, got %v", ErrInvalidConfig, c.ObjectiveTol)
	case !(c.ConstraintTol > 0):
		return fmt.Errorf("%w: constraint_tol must be > 0, got %v", ErrInvalidConfig, c.ConstraintTol)
	case !(c.InitialStep > 0):
		return fmt.Errorf("%w: initial_step must be > 0, got %v", ErrInvalidConfig, c.InitialStep)
	case c.StallIterations <= 0:
		return fmt.Errorf("%w: stall_iterations must be > 0, got %d", ErrInvalidConfig, c.StallIterations)
	}
	return nil
}

// =============================================================================
// Result
// =============================================================================

// WorstCaseResult 최적화 결과 (shock, moves, pnl) + 수렴 정보
// Converged=false 는 에러가 아니다. Warning 에 사유가 담긴다
type WorstCaseResult struct {
	Shock           ShockParams  `json:"shock"`
	Moves           FactorMoves  `json:"moves"`
	PnL             PnLBreakdown `json:"pnl"`
	Converged       bool         `json:"converged"`
	Status          string       `json:"status"`
	Warning         string       `json:"warning,omitempty"`
	Iterations      int          `json:"iterations"`
	FuncEvaluations int          `json:"func_evaluations"`
	Starts          int          `json:"starts"`
	Restarts        int          `json:"restarts"`
}

// maxPolishRestarts 시작점당 재시작 상한
const maxPolishRestarts = 50

// convergedStatuses gonum 종료 상태 중 정상 수렴으로 보는 것
var convergedStatuses = map[optimize.Status]bool{
	optimize.Success:             true,
	optimize.FunctionConvergence: true,
	optimize.MethodConverge:      true,
	optimize.StepConvergence:     true,
	optimize.FunctionThreshold:   true,
	optimize.GradientThreshold:   true,
}

// =============================================================================
// Worst-Case Search
// =============================================================================

// OptimizeWorstCaseShock finds the locally worst feasible shock with default settings.
func OptimizeWorstCaseShock(scenario Scenario, stats RiskStats) (ShockParams, FactorMoves, PnLBreakdown, error) {
	res, err := OptimizeWorstCase(context.Background(), scenario, stats, DefaultOptimizerConfig())
	if err != nil {
		return ShockParams{}, FactorMoves{}, PnLBreakdown{}, err
	}
	return res.Shock, res.Moves, res.PnL, nil
}

// OptimizeWorstCase 제약 하 net P&L 최소화 (Nelder–Mead, 0 충격에서 시작)
//
// 제약 처리: 목적함수는 투영점 P(x) 에서 평가하고 ‖x−P(x)‖ 에 비례하는 벌점을 더한다.
// P 는 box clip 후 joint severity 가 반경을 넘으면 원점 방향으로 축소한다.
// 반환 충격은 항상 P(x*) 이므로 |x_i| ≤ maxFactor, joint ≤ maxJoint 를 만족한다.
//
// 입력 검증 실패와 ctx 취소만 에러. 비수렴은 Warning.
func OptimizeWorstCase(ctx context.Context, scenario Scenario, stats RiskStats, cfg OptimizerConfig) (*WorstCaseResult, error) {
	if err := ValidateRiskStats(stats); err != nil {
		return nil, err
	}
	if err := ValidateScenario(scenario); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	sev := newSeverity(stats.CorrCrisis)
	insts := scenario.Instruments()
	s := &search{
		insts:   insts,
		stats:   stats,
		sev:     sev,
		penalty: penaltyScale(insts),
	}

	starts := [][NumFactors]float64{{}}
	if cfg.CornerRestarts {
		starts = append(starts, s.corners()...)
	}

	var (
		bestX      [NumFactors]float64
		bestF      = 0.0 // zero shock: net P&L 0
		converged  = true
		status     = optimize.Success
		warnings   []string
		iterations int
		evals      int
		restarts   int
	)
	for i, start := range starts {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("worst-case search aborted: %w", err)
		}

		run, err := s.minimize(ctx, start, cfg)
		if err != nil && run == nil {
			converged = false
			status = optimize.Failure
			warnings = append(warnings, fmt.Sprintf("start %d: %v", i, err))
			continue
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, fmt.Errorf("worst-case search aborted: %w", ctxErr)
		}

		iterations += run.Stats.MajorIterations
		evals += run.Stats.FuncEvaluations

		x := s.project(toArray(run.X))
		f := s.value(x)

		// joint 경계에서 simplex 가 붕괴하면 gonum 은 수렴으로 보고한다.
		// 투영된 현재 최적점에서 새 simplex 로 재시작, 개선이 두 번 연속 tol 이하일 때까지
		settled, n := 0, 0
		for settled < 2 && n < maxPolishRestarts {
			next, perr := s.minimize(ctx, x, cfg)
			if ctxErr := ctx.Err(); ctxErr != nil {
				return nil, fmt.Errorf("worst-case search aborted: %w", ctxErr)
			}
			if perr != nil && next == nil {
				break
			}
			n++
			iterations += next.Stats.MajorIterations
			evals += next.Stats.FuncEvaluations
			run = next

			nx := s.project(toArray(next.X))
			nf := s.value(nx)
			if f-nf <= cfg.ObjectiveTol*math.Max(1, math.Abs(f)) {
				settled++
			} else {
				settled = 0
			}
			if nf < f {
				x, f = nx, nf
			}
		}
		restarts += n

		// 주 시작점(0)의 마지막 실행 상태가 결과의 상태
		if i == 0 {
			status = run.Status
			if !convergedStatuses[run.Status] {
				converged = false
				warnings = append(warnings, fmt.Sprintf("optimizer did not converge: status %s after %d iterations",
					run.Status, run.Stats.MajorIterations))
			}
			if settled < 2 {
				converged = false
				warnings = append(warnings, fmt.Sprintf("boundary polish did not settle after %d restarts", n))
			}
			if err != nil {
				converged = false
				warnings = append(warnings, fmt.Sprintf("optimizer error: %v", err))
			}
		}

		if f < bestF {
			bestF, bestX = f, x
		}
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("worst-case search aborted: %w", err)
	}

	// 최종 점에서 한 번 더 계산 (보고용 triple)
	moves := factorMoves(bestX, stats, sev)
	pnl := CalculatePortfolioPnL(scenario.Exposure, scenario.Hedge, moves)
	shock := ShockFromVector(bestX[:])
	shock.JointSigma = moves.JointSigma

	if v := s.violation(bestX); v > cfg.ConstraintTol {
		warnings = append(warnings, fmt.Sprintf("final shock violates bounds by %.3g", v))
	}

	res := &WorstCaseResult{
		Shock:           shock,
		Moves:           moves,
		PnL:             pnl,
		Converged:       converged,
		Status:          status.String(),
		Iterations:      iterations,
		FuncEvaluations: evals,
		Starts:          len(starts),
		Restarts:        restarts,
	}
	if len(warnings) > 0 {
		res.Warning = strings.Join(warnings, "; ")
	}
	return res, nil
}

// search 단일 최적화 실행 상태 (읽기 전용, 실행마다 새로 생성)
type search struct {
	insts   []Instrument
	stats   RiskStats
	sev     severity
	penalty float64
}

// value net P&L at a feasible point
func (s *search) value(x [NumFactors]float64) float64 {
	return netTotal(s.insts, factorMoves(x, s.stats, s.sev))
}

func (s *search) minimize(ctx context.Context, start [NumFactors]float64, cfg OptimizerConfig) (*optimize.Result, error) {
	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			raw := toArray(x)
			p := s.project(raw)
			return s.value(p) + s.penalty*distance(raw, p)
		},
	}
	settings := &optimize.Settings{
		MajorIterations: cfg.MaxIterations,
		Converger: &ctxConverger{
			ctx: ctx,
			inner: &optimize.FunctionConverge{
				Absolute:   cfg.ObjectiveTol,
				Relative:   cfg.ObjectiveTol,
				Iterations: cfg.StallIterations,
			},
		},
	}
	method := &optimize.NelderMead{SimplexSize: cfg.InitialStep}
	return optimize.Minimize(problem, start[:], settings, method)
}

// project box clip → joint severity 반경으로 방사 축소
// severity 가 1차 동차이므로 축소 후에도 box 안에 남는다
func (s *search) project(x [NumFactors]float64) [NumFactors]float64 {
	return projectFeasible(x, s.stats, s.sev)
}

func projectFeasible(x [NumFactors]float64, stats RiskStats, sev severity) [NumFactors]float64 {
	maxF := stats.MaxFactorSigma
	for i, v := range x {
		x[i] = math.Max(-maxF, math.Min(maxF, v))
	}
	if j := sev.joint(x); j > stats.MaxJointSigma {
		k := stats.MaxJointSigma / j
		for i := range x {
			x[i] *= k
		}
	}
	return x
}

// violation largest bound excess of x (0 when feasible).
func (s *search) violation(x [NumFactors]float64) float64 {
	var worst float64
	for _, v := range x {
		worst = math.Max(worst, math.Abs(v)-s.stats.MaxFactorSigma)
	}
	return math.Max(worst, s.sev.joint(x)-s.stats.MaxJointSigma)
}

// corners 16 sign corners of the box, scaled into the feasible region.
func (s *search) corners() [][NumFactors]float64 {
	out := make([][NumFactors]float64, 0, 1<<NumFactors)
	for mask := 0; mask < 1<<NumFactors; mask++ {
		var x [NumFactors]float64
		for i := 0; i < NumFactors; i++ {
			x[i] = s.stats.MaxFactorSigma
			if mask&(1<<i) != 0 {
				x[i] = -x[i]
			}
		}
		out = append(out, s.project(x))
	}
	return out
}

// penaltyScale 1 + Σ|mtm| + Σ|dv01|·1e4 (포트폴리오 규모에 맞춘 벌점 계수)
func penaltyScale(insts []Instrument) float64 {
	scale := 1.0
	for _, inst := range insts {
		scale += math.Abs(inst.MtMValue) + math.Abs(inst.IRDV01)*bpPerUnit
	}
	return scale
}

// ctxConverger stops the search with RuntimeLimit once ctx is done.
type ctxConverger struct {
	ctx   context.Context
	inner optimize.Converger
}

func (c *ctxConverger) Init(dim int) {
	c.inner.Init(dim)
}

func (c *ctxConverger) Converged(loc *optimize.Location) optimize.Status {
	if c.ctx.Err() != nil {
		return optimize.RuntimeLimit
	}
	return c.inner.Converged(loc)
}

func toArray(x []float64) [NumFactors]float64 {
	var v [NumFactors]float64
	copy(v[:], x)
	return v
}

func distance(a, b [NumFactors]float64) float64 {
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}
