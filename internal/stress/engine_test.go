package stress

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/hedgestress/pkg/logger"
)

type fakeRecorder struct {
	mu         sync.Mutex
	optimized  map[string]bool
	fallbacks  int
	observedAt []time.Duration
}

func newFakeRecorder() *fakeRecorder {
	return &fakeRecorder{optimized: make(map[string]bool)}
}

func (r *fakeRecorder) ObserveOptimization(scenario string, converged bool, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.optimized[scenario] = converged
	r.observedAt = append(r.observedAt, elapsed)
}

func (r *fakeRecorder) SeverityFallback(string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallbacks++
}

func TestEngine_Optimize(t *testing.T) {
	rec := newFakeRecorder()
	e := NewEngine(logger.Nop(), DefaultOptimizerConfig(), WithRecorder(rec))

	res, err := e.Optimize(context.Background(), longEquityScenario(), equityOnlyStats(10))
	require.NoError(t, err)

	assert.Equal(t, "long_equity", res.Scenario)
	assert.InDelta(t, -10, res.Result.Shock.EqShockSigma, 0.05)
	assert.False(t, res.Metrics.Degenerate)
	// loss ratio 0.268 vs target 0.10, joint 10 vs target 6
	assert.Equal(t, HintSeverityExcessive, res.Metrics.Hint)
	assert.Equal(t, 100_000_000_000.0, res.Greeks.Net.Delta)

	converged, ok := rec.optimized["long_equity"]
	require.True(t, ok)
	assert.Equal(t, res.Result.Converged, converged)
	assert.Equal(t, 0, rec.fallbacks)
}

func TestEngine_OptimizeLogsNonConvergence(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultOptimizerConfig()
	cfg.MaxIterations = 1
	e := NewEngine(logger.NewWithWriter(&buf, "warn"), cfg)

	res, err := e.Optimize(context.Background(), hedgedScenario(), crisisStats())
	require.NoError(t, err)
	assert.False(t, res.Result.Converged)
	assert.Contains(t, buf.String(), "did not converge")
	assert.Contains(t, buf.String(), "hedged_book")
}

func TestEngine_OptimizeConfigError(t *testing.T) {
	var buf bytes.Buffer
	e := NewEngine(logger.NewWithWriter(&buf, "error"), DefaultOptimizerConfig())

	stats := crisisStats()
	stats.MaxJointSigma = 0
	res, err := e.Optimize(context.Background(), hedgedScenario(), stats)
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, errors.Is(err, ErrInvalidRiskStats))
	assert.Contains(t, err.Error(), "hedged_book")
	assert.Contains(t, buf.String(), "max_joint_sigma")
}

func TestEngine_MovesLogsFallback(t *testing.T) {
	var buf bytes.Buffer
	rec := newFakeRecorder()
	e := NewEngine(logger.NewWithWriter(&buf, "info"), DefaultOptimizerConfig(), WithRecorder(rec))

	stats := crisisStats()
	stats.CorrCrisis = [][]float64{
		{1, 1, 0, 0},
		{1, 1, 0, 0},
		{0, 0, 1, 0},
		{0, 0, 0, 1},
	}
	moves := e.Moves(ShockParams{EqShockSigma: 3, VolShockSigma: 4}, stats)

	assert.True(t, moves.Degraded())
	assert.InDelta(t, 5.0, moves.JointSigma, 1e-12)
	assert.Contains(t, buf.String(), "euclidean")
	assert.Contains(t, buf.String(), string(SeverityEuclideanFallback))
	assert.Equal(t, 1, rec.fallbacks)

	buf.Reset()
	e.Moves(ShockParams{EqShockSigma: 3}, crisisStats())
	assert.Empty(t, buf.String())
}

func TestEngine_EvaluateShock(t *testing.T) {
	e := NewEngine(nil, DefaultOptimizerConfig(), WithTargets(MetricsTargets{LossRatio: 0.05, JointSigma: 4}))

	ev, err := e.EvaluateShock(longEquityScenario(), equityOnlyStats(8), ShockParams{EqShockSigma: -4})
	require.NoError(t, err)

	assert.Equal(t, "fixed", ev.Proposer)
	assert.True(t, ev.Evaluation.Feasible)
	assert.InDelta(t, 0.012*4*2.2360679775, ev.Metrics.LossRatio, 1e-9)
	assert.Equal(t, HintBalanced, ev.Metrics.Hint)

	_, err = e.EvaluateShock(longEquityScenario(), equityOnlyStats(8), ShockParams{EqShockSigma: 1, FXShockSigma: math.Inf(1)})
	assert.True(t, errors.Is(err, ErrInvalidShock))
}

func TestEngine_EvaluateProposal(t *testing.T) {
	e := NewEngine(logger.Nop(), DefaultOptimizerConfig(), WithPenaltyWeight(1))
	ctx := context.Background()
	sc := hedgedScenario()
	stats := crisisStats()

	proposers := []ShockProposer{
		WorstCaseProposer{Config: DefaultOptimizerConfig()},
		GreekAlignedProposer{},
		FixedProposer{Label: "desk", Shock: ShockParams{EqShockSigma: -2, VolShockSigma: 2}},
	}
	for _, p := range proposers {
		ev, err := e.EvaluateProposal(ctx, p, sc, stats)
		require.NoError(t, err, p.Name())
		assert.Equal(t, p.Name(), ev.Proposer)
		assert.Equal(t, "hedged_book", ev.Scenario)
	}

	// an infeasible proposal is scored, not rejected
	ev, err := e.EvaluateProposal(ctx, FixedProposer{Shock: ShockParams{EqShockSigma: -20}}, sc, stats)
	require.NoError(t, err)
	assert.False(t, ev.Evaluation.Feasible)
	assert.Greater(t, ev.Evaluation.Penalty, 0.0)
}

func TestEngine_ConcurrentScenarios(t *testing.T) {
	e := NewEngine(logger.Nop(), DefaultOptimizerConfig())
	stats := crisisStats()

	var wg sync.WaitGroup
	results := make([]*StressResult, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			res, err := e.Optimize(context.Background(), hedgedScenario(), stats)
			if err == nil {
				results[i] = res
			}
		}(i)
	}
	wg.Wait()

	require.NotNil(t, results[0])
	for _, r := range results[1:] {
		require.NotNil(t, r)
		assert.Equal(t, results[0].Result.Shock, r.Result.Shock)
		assert.Equal(t, results[0].Result.PnL, r.Result.PnL)
	}
}
