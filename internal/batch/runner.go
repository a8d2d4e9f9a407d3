package batch

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/hedgestress/internal/metrics"
	"github.com/wonny/hedgestress/internal/scenariofile"
	"github.com/wonny/hedgestress/internal/store"
	"github.com/wonny/hedgestress/internal/stress"
	"github.com/wonny/hedgestress/pkg/logger"
	"github.com/wonny/hedgestress/pkg/redis"
)

// =============================================================================
// Batch Runner - 시나리오 병렬 실행
// =============================================================================

// ResultCache 결과 캐시 (pkg/redis.Cache 가 구현)
type ResultCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}) error
}

// ResultSink 결과 저장소 (internal/store.Repository 가 구현)
type ResultSink interface {
	Save(ctx context.Context, rec *store.Record) error
}

// Recorder 배치 계측 훅 (internal/metrics.Registry 가 구현)
type Recorder interface {
	ObserveScenario(outcome string)
	ObserveBatch(elapsed time.Duration, worstLossRatio float64)
}

type nopRecorder struct{}

func (nopRecorder) ObserveScenario(string)              {}
func (nopRecorder) ObserveBatch(time.Duration, float64) {}

// Config 배치 설정
type Config struct {
	Workers         int
	ScenarioTimeout time.Duration
}

// DefaultConfig 기본 배치 설정
func DefaultConfig() Config {
	return Config{
		Workers:         4,
		ScenarioTimeout: 30 * time.Second,
	}
}

// Outcome 시나리오 하나의 실행 결과
// Err 가 있으면 Result 는 nil
type Outcome struct {
	Scenario     string               `json:"scenario"`
	ScenarioHash string               `json:"scenario_hash"`
	Result       *stress.StressResult `json:"result,omitempty"`
	Err          error                `json:"-"`
	Error        string               `json:"error,omitempty"`
	Cached       bool                 `json:"cached"`
	Duration     time.Duration        `json:"duration"`
}

// Label outcome 분류 (metrics 라벨)
func (o Outcome) Label() string {
	switch {
	case o.Err != nil && errors.Is(o.Err, context.DeadlineExceeded):
		return metrics.OutcomeTimeout
	case o.Err != nil:
		return metrics.OutcomeError
	case o.Cached:
		return metrics.OutcomeCached
	default:
		return metrics.OutcomeOK
	}
}

// Report 배치 실행 결과 (입력 순서 유지)
type Report struct {
	RunID     uuid.UUID     `json:"run_id"`
	ModelHash string        `json:"model_hash"`
	StartedAt time.Time     `json:"started_at"`
	Elapsed   time.Duration `json:"elapsed"`
	Outcomes  []Outcome     `json:"outcomes"`
}

// Failed 실패한 시나리오 수
func (r *Report) Failed() int {
	n := 0
	for _, o := range r.Outcomes {
		if o.Err != nil {
			n++
		}
	}
	return n
}

// WorstLossRatio 성공한 시나리오 중 가장 큰 loss ratio
func (r *Report) WorstLossRatio() float64 {
	worst := 0.0
	for _, o := range r.Outcomes {
		if o.Result != nil && o.Result.Result.PnL.LossRatio > worst {
			worst = o.Result.Result.PnL.LossRatio
		}
	}
	return worst
}

// Runner 배치 실행기
type Runner struct {
	engine *stress.Engine
	log    *logger.Logger
	cfg    Config
	cache  ResultCache
	sink   ResultSink
	rec    Recorder
}

// Option configures a Runner.
type Option func(*Runner)

// WithCache enables result caching.
func WithCache(c ResultCache) Option {
	return func(r *Runner) { r.cache = c }
}

// WithSink enables result persistence.
func WithSink(s ResultSink) Option {
	return func(r *Runner) { r.sink = s }
}

// WithRecorder attaches a batch metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Runner) {
		if rec != nil {
			r.rec = rec
		}
	}
}

// NewRunner 새 배치 실행기 생성
func NewRunner(engine *stress.Engine, log *logger.Logger, cfg Config, opts ...Option) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	r := &Runner{
		engine: engine,
		log:    log,
		cfg:    cfg,
		rec:    nopRecorder{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// modelKey 결과에 영향을 주는 입력 (캐시 키 재현성)
type modelKey struct {
	Stats     stress.RiskStats       `json:"stats"`
	Optimizer stress.OptimizerConfig `json:"optimizer"`
	Targets   stress.MetricsTargets  `json:"targets"`
}

// Run evaluates every scenario under the shared risk model.
// 시나리오별 오류/타임아웃은 해당 Outcome 에만 기록된다.
// 에러 반환: risk model 검증 실패, 부모 ctx 취소, 저장 실패
func (r *Runner) Run(ctx context.Context, stats stress.RiskStats, scenarios []stress.Scenario) (*Report, error) {
	if err := stress.ValidateRiskStats(stats); err != nil {
		r.log.WithError(err).Error("batch rejected: invalid risk model")
		return nil, err
	}

	modelHash, err := scenariofile.Hash(modelKey{
		Stats:     stats,
		Optimizer: r.engine.Config(),
		Targets:   r.engine.Targets(),
	})
	if err != nil {
		return nil, fmt.Errorf("hash risk model: %w", err)
	}

	report := &Report{
		RunID:     uuid.New(),
		ModelHash: modelHash,
		StartedAt: time.Now(),
		Outcomes:  make([]Outcome, len(scenarios)),
	}
	log := r.log.WithField("run_id", report.RunID.String())
	log.WithFields(map[string]interface{}{
		"scenarios": len(scenarios),
		"workers":   r.cfg.Workers,
	}).Info("batch started")

	g := new(errgroup.Group)
	g.SetLimit(r.cfg.Workers)
	for i, sc := range scenarios {
		i, sc := i, sc
		g.Go(func() error {
			report.Outcomes[i] = r.runOne(ctx, log, stats, modelHash, sc)
			return nil
		})
	}
	_ = g.Wait()
	report.Elapsed = time.Since(report.StartedAt)

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("batch aborted: %w", err)
	}

	if err := r.persist(ctx, report); err != nil {
		log.WithError(err).Error("failed to persist batch results")
		return report, err
	}

	r.rec.ObserveBatch(report.Elapsed, report.WorstLossRatio())
	log.WithFields(map[string]interface{}{
		"failed":     report.Failed(),
		"worst_loss": report.WorstLossRatio(),
		"elapsed_ms": report.Elapsed.Milliseconds(),
	}).Info("batch finished")

	return report, nil
}

func (r *Runner) runOne(ctx context.Context, log *logger.Logger, stats stress.RiskStats, modelHash string, sc stress.Scenario) (out Outcome) {
	start := time.Now()
	out = Outcome{Scenario: sc.Name}
	log = log.WithField("scenario", sc.Name)

	defer func() {
		out.Duration = time.Since(start)
		if out.Err != nil {
			out.Error = out.Err.Error()
		}
		r.rec.ObserveScenario(out.Label())
	}()

	// NaN 은 JSON 해시 불가: 검증 먼저
	if err := stress.ValidateScenario(sc); err != nil {
		out.Err = err
		return out
	}
	scenarioHash, err := scenariofile.Hash(sc)
	if err != nil {
		out.Err = fmt.Errorf("hash scenario: %w", err)
		return out
	}
	out.ScenarioHash = scenarioHash
	key := redis.StressResultKey(scenarioHash, modelHash)

	if r.cache != nil {
		var cached stress.StressResult
		found, err := r.cache.Get(ctx, key, &cached)
		if err != nil {
			log.WithError(err).Warn("result cache lookup failed")
		}
		if found {
			out.Result = &cached
			out.Cached = true
			return out
		}
	}

	scCtx, cancel := ctx, context.CancelFunc(func() {})
	if r.cfg.ScenarioTimeout > 0 {
		scCtx, cancel = context.WithTimeout(ctx, r.cfg.ScenarioTimeout)
	}
	defer cancel()

	res, err := r.engine.Optimize(scCtx, sc, stats)
	if err != nil {
		out.Err = err
		return out
	}
	out.Result = res

	if r.cache != nil {
		if err := r.cache.Set(ctx, key, res); err != nil {
			log.WithError(err).Warn("result cache store failed")
		}
	}
	return out
}

// persist 성공한 (캐시되지 않은) 결과만 저장
func (r *Runner) persist(ctx context.Context, report *Report) error {
	if r.sink == nil {
		return nil
	}
	for _, o := range report.Outcomes {
		if o.Result == nil || o.Cached {
			continue
		}
		rec := store.NewRecord(report.RunID, o.ScenarioHash, report.ModelHash, o.Result)
		if err := r.sink.Save(ctx, rec); err != nil {
			return fmt.Errorf("persist %s: %w", o.Scenario, err)
		}
	}
	return nil
}
