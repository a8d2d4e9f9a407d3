package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/hedgestress/internal/stress"
)

// evaluateCmd represents the evaluate command
var evaluateCmd = &cobra.Command{
	Use:   "evaluate",
	Short: "주어진 충격 평가 (최적화 없음)",
	Long: `외부에서 제안된 충격 또는 proposer 가 만든 충격을 평가합니다.

충격이 타당 범위를 벗어나도 거부하지 않고 penalty 와 함께 보고합니다.
--project 를 주면 먼저 타당 범위로 투영합니다.

Proposers:
  fixed          - --eq/--vol/--fx/--ir 로 지정한 충격 (default)
  greek_aligned  - net greeks 반대 방향 충격
  worst_case     - 옵티마이저 결과

Example:
  go run ./cmd/stress evaluate --scenario put_spread_overlay --eq -3 --vol 2
  go run ./cmd/stress evaluate --scenario balanced_fund --proposer greek_aligned`,
	RunE: runEvaluate,
}

var (
	evalScenario string
	evalProposer string
	evalProject  bool
	evalShock    stress.ShockParams
)

func init() {
	rootCmd.AddCommand(evaluateCmd)

	// Flags
	evaluateCmd.Flags().StringVar(&evalScenario, "scenario", "", "시나리오 이름 (required)")
	evaluateCmd.Flags().StringVar(&evalProposer, "proposer", "fixed", "fixed|greek_aligned|worst_case")
	evaluateCmd.Flags().BoolVar(&evalProject, "project", false, "fixed 충격을 타당 범위로 투영")
	evaluateCmd.Flags().Float64Var(&evalShock.EqShockSigma, "eq", 0, "equity 충격 (σ)")
	evaluateCmd.Flags().Float64Var(&evalShock.VolShockSigma, "vol", 0, "vol 충격 (σ)")
	evaluateCmd.Flags().Float64Var(&evalShock.FXShockSigma, "fx", 0, "FX 충격 (σ)")
	evaluateCmd.Flags().Float64Var(&evalShock.IRShockSigma, "ir", 0, "rates 충격 (σ)")
	_ = evaluateCmd.MarkFlagRequired("scenario")
}

func runEvaluate(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	a, err := newApp(ctx, appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	book, _, err := a.loadBook()
	if err != nil {
		return err
	}
	sc, ok := book.Scenario(evalScenario)
	if !ok {
		return fmt.Errorf("scenario %q not found in book", evalScenario)
	}
	stats := book.RiskStats()

	shock := evalShock
	if evalProject {
		shock = stress.ProjectShock(shock, stats)
	}
	proposer, err := parseProposer(evalProposer, shock, a.optimizerConfig())
	if err != nil {
		return err
	}

	engine := a.newEngine(book.MetricsTargets(a.defaultTargets()))
	ev, err := engine.EvaluateProposal(ctx, proposer, sc, stats)
	if err != nil {
		return err
	}

	PrintEvaluation(cmd.OutOrStdout(), ev)
	return nil
}
