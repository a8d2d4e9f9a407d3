package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/hedgestress/internal/batch"
	"github.com/wonny/hedgestress/internal/scheduler"
	"github.com/wonny/hedgestress/internal/scheduler/jobs"
	"github.com/wonny/hedgestress/internal/stress"
)

// scheduleCmd represents the schedule command
var scheduleCmd = &cobra.Command{
	Use:   "schedule",
	Short: "정기 스트레스 실행 데몬",
	Long: `STRESS_SCHEDULE (cron, 초 필드 포함) 에 맞춰 시나리오 북을 실행합니다.

등록되는 작업:
- stress_book: 기본 평일 오전 7시 (STRESS_SCHEDULE)

DATABASE_URL 이 있으면 결과를 저장합니다.
스케줄러는 Ctrl+C로 종료할 수 있습니다.

Example:
  go run ./cmd/stress schedule
  go run ./cmd/stress schedule --once`,
	RunE: runSchedule,
}

var (
	scheduleOnce bool
)

func init() {
	rootCmd.AddCommand(scheduleCmd)

	// Flags
	scheduleCmd.Flags().BoolVar(&scheduleOnce, "once", false, "작업을 한 번 실행하고 종료")
}

func runSchedule(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, appOptions{store: true, cache: true})
	if err != nil {
		return err
	}
	defer a.Close()

	path := bookPath
	if path == "" {
		path = a.cfg.Scheduler.BookPath
	}
	factory := func(targets stress.MetricsTargets) *batch.Runner {
		return a.newRunner(targets, a.batchConfig())
	}
	job := jobs.NewStressJob(path, a.cfg.Scheduler.Schedule, a.defaultTargets(), factory, a.log)

	var opts []scheduler.Option
	if scheduleOnce {
		opts = append(opts, scheduler.WithRetry(0, 0))
	}
	sched := scheduler.New(a.log, opts...)
	if err := sched.AddJob(job); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if scheduleOnce {
		result, err := sched.RunJobSync(job.Name())
		if err != nil {
			return err
		}
		if report := job.LastReport(); report != nil {
			PrintBatchReport(out, report)
		}
		if !result.Success {
			return fmt.Errorf("job %s failed: %s", result.JobName, result.Error)
		}
		return nil
	}

	sched.Start()
	fmt.Fprintln(out, "\n✅ Scheduler started successfully")
	fmt.Fprintln(out, "\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		fmt.Fprintf(out, "  - %s (%s)\n", jobName, job.Schedule())
	}
	fmt.Fprintln(out, "\nPress Ctrl+C to stop")

	<-ctx.Done()
	sched.Stop()
	return nil
}
