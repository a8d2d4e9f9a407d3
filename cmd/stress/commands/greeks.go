package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/hedgestress/internal/stress"
)

// greeksCmd represents the greeks command
var greeksCmd = &cobra.Command{
	Use:   "greeks",
	Short: "시나리오별 net greeks",
	Long: `시나리오 북의 각 시나리오에 대해 익스포저/헤지/net greeks 를 출력합니다.

delta/gamma/vega/fx 는 Σ mtm × 민감도, dv01 은 Σ ir_dv01.

Example:
  go run ./cmd/stress greeks
  go run ./cmd/stress greeks --book config/scenarios.yaml`,
	RunE: runGreeks,
}

func init() {
	rootCmd.AddCommand(greeksCmd)
}

func runGreeks(cmd *cobra.Command, args []string) error {
	a, err := newApp(cmd.Context(), appOptions{})
	if err != nil {
		return err
	}
	defer a.Close()

	book, _, err := a.loadBook()
	if err != nil {
		return err
	}

	for _, sc := range book.ScenarioList() {
		PrintGreeks(cmd.OutOrStdout(), sc.Name, stress.ComputeGreeks(sc.Exposure, sc.Hedge))
	}
	return nil
}
