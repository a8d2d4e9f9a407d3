package jobs

import (
	"context"
	"fmt"
	"sync"

	"github.com/wonny/hedgestress/internal/batch"
	"github.com/wonny/hedgestress/internal/scenariofile"
	"github.com/wonny/hedgestress/internal/stress"
	"github.com/wonny/hedgestress/pkg/logger"
)

// RunnerFactory 북의 metrics targets 로 배치 실행기 생성
type RunnerFactory func(targets stress.MetricsTargets) *batch.Runner

// StressJob runs the scenario book on a schedule
// ⭐ SSOT: 정기 스트레스 실행은 이 Job에서만
type StressJob struct {
	bookPath  string
	schedule  string
	fallback  stress.MetricsTargets
	newRunner RunnerFactory
	logger    *logger.Logger

	mu   sync.RWMutex
	last *batch.Report
}

// NewStressJob creates a new stress job
// 북 파일은 매 실행마다 다시 읽는다 (risk model 갱신 반영)
func NewStressJob(bookPath, schedule string, fallback stress.MetricsTargets, newRunner RunnerFactory, log *logger.Logger) *StressJob {
	return &StressJob{
		bookPath:  bookPath,
		schedule:  schedule,
		fallback:  fallback,
		newRunner: newRunner,
		logger:    log,
	}
}

// Name returns the job name
func (j *StressJob) Name() string {
	return "stress_book"
}

// Schedule returns the cron schedule
func (j *StressJob) Schedule() string {
	return j.schedule
}

// Run loads the book and evaluates every scenario.
// 시나리오 단위 실패는 리포트에만 기록 (재시도 대상 아님)
func (j *StressJob) Run(ctx context.Context) error {
	j.logger.WithField("book", j.bookPath).Info("Starting scheduled stress run")

	book, _, err := scenariofile.Load(j.bookPath)
	if err != nil {
		return fmt.Errorf("load book: %w", err)
	}

	runner := j.newRunner(book.MetricsTargets(j.fallback))
	report, err := runner.Run(ctx, book.RiskStats(), book.ScenarioList())
	if err != nil {
		return fmt.Errorf("run book: %w", err)
	}

	j.mu.Lock()
	j.last = report
	j.mu.Unlock()

	j.logger.WithFields(map[string]interface{}{
		"run_id":     report.RunID.String(),
		"scenarios":  len(report.Outcomes),
		"failed":     report.Failed(),
		"worst_loss": report.WorstLossRatio(),
	}).Info("Scheduled stress run completed")

	return nil
}

// LastReport returns the report of the last successful run (nil before the first)
func (j *StressJob) LastReport() *batch.Report {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.last
}
