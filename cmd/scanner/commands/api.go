package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/twscan/internal/api"
	"github.com/wonny/twscan/internal/api/handlers"
	"github.com/wonny/twscan/internal/pipeline"
	"github.com/wonny/twscan/internal/realtime"
	"github.com/wonny/twscan/internal/scanner"
	"github.com/wonny/twscan/internal/scheduler"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

이 명령어는:
- HTTP API 서버 시작
- 종목 리스트 / 전략 파라미터 조회·수정
- 스캔 트리거 및 진행 상황 WebSocket 스트림
- --scheduler 지정 시 일일 스캔 스케줄러 동시 실행

Endpoints:
  GET  /health                 - Health check
  GET  /api/config             - 종목 리스트 + 전략 파라미터
  POST /api/save_stock_list    - 종목 리스트 저장
  POST /api/save_strategy      - 전략 파라미터 저장
  GET  /api/reports/latest     - 최근 리포트
  POST /api/scan               - 스캔 실행 (?wait=true, ?codes=, ?dry_run=true)
  GET  /api/inspect/{code}     - 단일 종목 지표 (?days=N)
  GET  /api/jobs               - 스케줄 작업 상태 (--scheduler)
  GET  /ws/scan                - 스캔 진행 WebSocket
  GET  /metrics                - Prometheus

Example:
  go run ./cmd/scanner api
  go run ./cmd/scanner api --port 8080 --scheduler`,
	RunE: runAPIServer,
}

var (
	apiPort      string
	apiScheduler bool
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default PORT)")
	apiCmd.Flags().BoolVar(&apiScheduler, "scheduler", false, "run the cron scheduler in the same process")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	fmt.Println("=== twscan API Server ===")

	baseCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 1. Dependencies
	a, err := newApp(baseCtx)
	if err != nil {
		return err
	}
	defer a.close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}
	log := a.log

	// 2. Scan stream
	hub := realtime.NewHub(log, nil)

	// 3. Pipeline
	sc := a.scanner(scanner.WithProgress(hub.Progress))
	orch := a.orchestrator(sc, nil, pipeline.WithOnComplete(hub.Finished))

	// 4. Handlers
	routes := api.Routes{
		Config: handlers.NewConfigHandler(a.stocks, a.params, a.source, log),
		Report: handlers.NewReportHandler(baseCtx, orch, sc, a.source, log),
		Stream: hub.ServeWS,
	}
	if a.metrics != nil {
		routes.Metrics = a.metrics.Handler()
	}

	var sched *scheduler.Scheduler
	if apiScheduler {
		sched, err = newScheduler(a, orch)
		if err != nil {
			return err
		}
		routes.Jobs = handlers.NewJobsHandler(sched, log)
		sched.Start()
		defer sched.Stop()
	}

	// 5. Server
	server := api.New(":"+a.cfg.Port, api.NewRouter(routes, a.cfg.CORSOrigins, log), log,
		api.WithOnShutdown(hub.Close),
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	fmt.Printf("\n✅ Server running on http://localhost:%s\n", a.cfg.Port)
	if sched != nil {
		fmt.Println("   Scheduler jobs:", sched.GetAllJobs())
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal or a failed listener
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-errCh:
		if err != nil {
			return err
		}
	}

	log.Info("Shutting down server...")
	cancel() // stop background scans

	// Graceful shutdown with timeout
	ctx, stop := context.WithTimeout(context.Background(), 30*time.Second)
	defer stop()

	if err := server.Shutdown(ctx); err != nil {
		return fmt.Errorf("server shutdown failed: %w", err)
	}

	log.Info("Server stopped")
	return nil
}
