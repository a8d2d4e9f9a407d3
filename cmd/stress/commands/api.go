package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/hedgestress/internal/api"
	"github.com/wonny/hedgestress/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                        - Health check
  GET  /metrics                       - Prometheus metrics
  POST /api/stress/optimize           - 최악 충격 탐색
  POST /api/stress/evaluate           - 충격 평가
  POST /api/stress/greeks             - net greeks
  GET  /api/stress/results/{scenario} - 저장된 최근 결과

Example:
  go run ./cmd/stress api
  go run ./cmd/stress api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{store: true, cache: true})
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	var results handlers.ResultReader
	if a.repo != nil {
		results = a.repo
	}

	engine := a.newEngine(a.defaultTargets())
	stressHandler := handlers.NewStressHandler(engine, results, a.cfg.Batch.ScenarioTimeout, a.log)

	reg := a.metrics
	if !a.cfg.MetricsEnabled {
		reg = nil
	}
	router := api.NewRouter(stressHandler, reg, api.NewLimiter(a.cfg.API, a.redis), a.log)
	server := api.New(a.cfg, a.log, router)

	fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Server running on http://localhost:%s (Ctrl+C to stop)\n", a.cfg.Port)

	if err := server.Run(ctx); err != nil {
		return err
	}

	a.log.Info("Server stopped")
	return nil
}
