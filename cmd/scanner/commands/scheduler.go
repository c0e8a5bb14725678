package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/twscan/internal/external/constituents"
	"github.com/wonny/twscan/internal/pipeline"
	"github.com/wonny/twscan/internal/scheduler"
	"github.com/wonny/twscan/internal/scheduler/jobs"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `스케줄러를 시작하거나 작업을 관리합니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (완료까지 대기)

Example:
  go run ./cmd/scanner scheduler start
  go run ./cmd/scanner scheduler list
  go run ./cmd/scanner scheduler run daily_scan`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		Long: `스케줄러를 시작하고 등록된 모든 작업을 스케줄합니다.

등록되는 작업:
- daily_scan: 평일 13:40 (SCAN_CRON, SCAN_TIMEZONE)
- constituents_refresh: 매주 월요일 08:00 (DB 사용 시, 0050 구성종목 추가)

스케줄러는 Ctrl+C로 종료할 수 있습니다.`,
		RunE: runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)
}

// scheduledJobs returns every job the configuration supports
func scheduledJobs(a *app, orch *pipeline.Orchestrator) []scheduler.Job {
	list := []scheduler.Job{
		jobs.NewDailyScanJob(orch, a.cfg.Scan.Cron, a.log),
	}
	if a.stocks != nil {
		scraper := constituents.NewScraper(a.http, a.log, a.cfg.Source.ConstituentsURL)
		list = append(list, jobs.NewConstituentsJob(scraper, a.stocks, a.log))
	}
	return list
}

func newScheduler(a *app, orch *pipeline.Orchestrator) (*scheduler.Scheduler, error) {
	sched := scheduler.New(a.log, a.cfg.Location(), scheduler.WithRetry(2, 5*time.Minute))
	for _, job := range scheduledJobs(a, orch) {
		if err := sched.AddJob(job); err != nil {
			return nil, err
		}
	}
	return sched, nil
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== twscan Scheduler ===")

	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.close()

	sched, err := newScheduler(a, a.orchestrator(a.scanner(), nil))
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}

	// Start scheduler
	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		next, _ := sched.NextRun(jobName)
		fmt.Printf("  - %-22s next %s\n", jobName, next.Format("2006-01-02 15:04:05 MST"))
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, err := newApp(context.Background())
	if err != nil {
		return err
	}
	defer a.close()

	fmt.Printf("Registered jobs (%s):\n", a.cfg.Scan.Timezone)
	for _, job := range scheduledJobs(a, a.orchestrator(a.scanner(), nil)) {
		fmt.Printf("  - %-22s %s\n", job.Name(), job.Schedule())
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	for _, job := range scheduledJobs(a, a.orchestrator(a.scanner(), nil)) {
		if job.Name() != jobName {
			continue
		}
		fmt.Printf("Running job: %s\n", jobName)
		started := time.Now()
		if err := job.Run(ctx); err != nil {
			return fmt.Errorf("run job: %w", err)
		}
		fmt.Printf("✅ Job completed in %s\n", time.Since(started).Round(time.Millisecond))
		return nil
	}

	return fmt.Errorf("job %s not found", jobName)
}
