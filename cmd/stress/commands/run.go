package commands

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/hedgestress/internal/stress"
)

// runCmd represents the run command
var runCmd = &cobra.Command{
	Use:   "run",
	Short: "시나리오 북 전체 최악 충격 탐색",
	Long: `시나리오 북의 모든 시나리오에 대해 최악의 타당한 충격을 찾습니다.

이 명령어는:
- 시나리오를 병렬로 실행 (BATCH_WORKERS)
- 시나리오별 타임아웃 적용 (BATCH_SCENARIO_TIMEOUT)
- REDIS_ENABLED=true 이면 결과 캐시 사용
- --persist 와 DATABASE_URL 이 있으면 결과 저장

한 시나리오라도 실패하면 종료 코드 1.

Example:
  go run ./cmd/stress run
  go run ./cmd/stress run --book config/scenarios.yaml --workers 8 --timeout 1m
  go run ./cmd/stress run --scenario put_spread_overlay --json`,
	RunE: runBook,
}

var (
	runWorkers   int
	runTimeout   time.Duration
	runPersist   bool
	runJSON      bool
	runScenarios []string
)

func init() {
	rootCmd.AddCommand(runCmd)

	// Flags
	runCmd.Flags().IntVar(&runWorkers, "workers", 0, "병렬 워커 수 (default BATCH_WORKERS)")
	runCmd.Flags().DurationVar(&runTimeout, "timeout", 0, "시나리오별 타임아웃 (default BATCH_SCENARIO_TIMEOUT)")
	runCmd.Flags().BoolVar(&runPersist, "persist", false, "결과를 Postgres 에 저장")
	runCmd.Flags().BoolVar(&runJSON, "json", false, "JSON 리포트 출력")
	runCmd.Flags().StringSliceVar(&runScenarios, "scenario", nil, "실행할 시나리오 (반복 가능, default 전체)")
}

func runBook(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{store: runPersist, cache: true})
	if err != nil {
		return err
	}
	defer a.Close()

	book, path, err := a.loadBook()
	if err != nil {
		return err
	}

	scenarios, err := selectScenarios(book.ScenarioList(), runScenarios)
	if err != nil {
		return err
	}

	cfg := a.batchConfig()
	if runWorkers > 0 {
		cfg.Workers = runWorkers
	}
	if runTimeout > 0 {
		cfg.ScenarioTimeout = runTimeout
	}

	a.log.WithFields(map[string]interface{}{
		"book":      path,
		"scenarios": len(scenarios),
	}).Info("Running scenario book")

	runner := a.newRunner(book.MetricsTargets(a.defaultTargets()), cfg)
	report, err := runner.Run(ctx, book.RiskStats(), scenarios)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if runJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		if err := enc.Encode(report); err != nil {
			return err
		}
	} else {
		for _, o := range report.Outcomes {
			if o.Result != nil {
				PrintStressSummary(out, o.Result)
			}
		}
		PrintBatchReport(out, report)
	}

	if n := report.Failed(); n > 0 {
		return fmt.Errorf("%d of %d scenarios failed", n, len(report.Outcomes))
	}
	return nil
}

// selectScenarios 이름 필터 (입력 순서 유지)
func selectScenarios(all []stress.Scenario, names []string) ([]stress.Scenario, error) {
	if len(names) == 0 {
		return all, nil
	}
	byName := make(map[string]stress.Scenario, len(all))
	for _, sc := range all {
		byName[sc.Name] = sc
	}
	selected := make([]stress.Scenario, 0, len(names))
	for _, name := range names {
		sc, ok := byName[name]
		if !ok {
			return nil, fmt.Errorf("scenario %q not found in book", name)
		}
		selected = append(selected, sc)
	}
	return selected, nil
}
