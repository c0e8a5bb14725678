package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/twscan/internal/pipeline"
	"github.com/wonny/twscan/internal/scanner"
)

// scanCmd represents the scan command
var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "신호등 스캔 1회 실행",
	Long: `설정된 종목 리스트를 한 번 스캔합니다.

이 명령어는:
- 종목 리스트와 전략 파라미터 로드 (DB 또는 SCAN_STOCKS + STRATEGY_FILE)
- 종목별 일봉 조회 → 지표 계산 → GREEN/RED/YELLOW 분류
- 콘솔 표 출력 + 설정된 싱크 저장 (CSV, SQLite, Postgres, NATS, InfluxDB)
- LINE / Telegram 일일 요약 발송 (--dry-run 이면 생략)

Example:
  go run ./cmd/scanner scan
  go run ./cmd/scanner scan --codes 2330,2317 --dry-run`,
	RunE: runScan,
}

var (
	scanCodes   string
	scanDryRun  bool
	scanTimeout time.Duration
)

func init() {
	rootCmd.AddCommand(scanCmd)

	// Flags
	scanCmd.Flags().StringVar(&scanCodes, "codes", "", "comma-separated codes (overrides the configured list)")
	scanCmd.Flags().BoolVar(&scanDryRun, "dry-run", false, "skip LINE/Telegram notification")
	scanCmd.Flags().DurationVar(&scanTimeout, "timeout", 30*time.Minute, "abort the scan after this long")
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx, cancel := context.WithTimeout(ctx, scanTimeout)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	orch := a.orchestrator(a.scanner(), os.Stdout)

	result, err := orch.Run(ctx, pipeline.RunConfig{
		Codes:  splitList(scanCodes),
		DryRun: scanDryRun,
		Progress: func(p scanner.Progress) {
			if p.Skipped != nil {
				fmt.Fprintf(os.Stderr, "[%d/%d] %s skipped: %s\n", p.Index+1, p.Total, p.Code, p.Skipped.Reason)
				return
			}
			fmt.Fprintf(os.Stderr, "[%d/%d] %s %s\n", p.Index+1, p.Total, p.Code, p.Row.Signal.Emoji())
		},
	})
	if err != nil {
		return fmt.Errorf("scan: %w", err)
	}

	s := result.Summary
	if s.Total == 0 {
		fmt.Printf("\n⚠️  No instrument produced a row (%d skipped)\n", s.Skipped)
		return nil
	}

	fmt.Printf("\n✅ %d rows  🟢 %d  🔴 %d  🟡 %d  skipped %d  (%s)\n",
		s.Total, s.Green, s.Red, s.Yellow, s.Skipped, result.Duration.Round(time.Millisecond))
	if result.SinkErr != nil {
		fmt.Printf("⚠️  sink errors: %v\n", result.SinkErr)
	}
	if result.NotifyErr != nil {
		fmt.Printf("⚠️  notify errors: %v\n", result.NotifyErr)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.Split(v, ",") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
