package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	bookPath  string
	verbose   bool
	logFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "stress",
	Short: "Hedge stress - 헤지 포트폴리오 최악 시나리오 엔진",
	Long: `Hedge Stress CLI

4개 리스크 팩터(equity, vol, fx, rates)에 대한 최악의 타당한 충격을 찾아
익스포저 + 헤지 포트폴리오의 손실을 평가합니다.

Usage:
  go run ./cmd/stress [command]

Examples:
  go run ./cmd/stress run --book config/scenarios.yaml
  go run ./cmd/stress evaluate --scenario put_spread_overlay --eq -3 --vol 2
  go run ./cmd/stress greeks
  go run ./cmd/stress api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&bookPath, "book", "", "scenario book YAML (default STRESS_BOOK_PATH)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&logFormat, "log-format", "", "json|console (default LOG_FORMAT)")
}
