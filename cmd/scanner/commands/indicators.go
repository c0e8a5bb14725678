package commands

import (
	"context"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/data"
)

// indicatorsCmd represents the indicators command
var indicatorsCmd = &cobra.Command{
	Use:   "indicators [code]",
	Short: "단일 종목 지표 확인",
	Long: `한 종목의 최근 N일 지표와 분류 결과를 출력합니다.

출력 컬럼: 날짜, 종가, 단기/장기 MA, MACD OSC, RSI, K, D, 신호
마지막에 과거 GREEN 발생일 목록을 보여줍니다.

Example:
  go run ./cmd/scanner indicators 2330
  go run ./cmd/scanner indicators 2330 --days 40`,
	Args: cobra.ExactArgs(1),
	RunE: runIndicators,
}

var indicatorDays int

func init() {
	rootCmd.AddCommand(indicatorsCmd)

	indicatorsCmd.Flags().IntVar(&indicatorDays, "days", 10, "rows to print")
}

func runIndicators(cmd *cobra.Command, args []string) error {
	code := args[0]

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.close()

	_, cfg, err := data.Resolve(ctx, a.source, a.log)
	if err != nil {
		return err
	}

	in, err := a.scanner().Inspect(ctx, code, cfg)
	if err != nil {
		return fmt.Errorf("inspect %s: %w", code, err)
	}

	fmt.Printf("=== %s (MA%d/MA%d, RSI>%.0f, KD<%.0f) ===\n\n",
		code, cfg.MAShortDays, cfg.MALongDays, cfg.RSIThreshold, cfg.KDThreshold)

	tw := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Date\tClose\tMAShort\tMALong\tOSC\tRSI\tK\tD\t\t")

	n := in.Set.Len()
	start := n - indicatorDays
	if start < 0 {
		start = 0
	}
	for i := start; i < n; i++ {
		row := in.Set.At(i)
		fmt.Fprintf(tw, "%s\t%.2f\t%s\t%s\t%s\t%s\t%s\t%s\t%s\t\n",
			contracts.DateString(row.Bar.Date), row.Bar.Close,
			cell(row.MAShort), cell(row.MALong), cell(row.MACDOSC),
			cell(row.RSI), cell(row.K), cell(row.D),
			in.Signals[i].Emoji())
	}
	tw.Flush()

	fmt.Printf("\nLatest: %s %s  %s\n", in.Result.Signal.Emoji(), in.Result.Signal, in.Result.Memo)

	green := in.GreenDays(10)
	if len(green) == 0 {
		fmt.Println("GREEN days: none")
		return nil
	}
	fmt.Print("GREEN days:")
	for _, row := range green {
		fmt.Printf(" %s", contracts.DateString(row.Bar.Date))
	}
	fmt.Println()
	return nil
}

func cell(v contracts.NullFloat) string {
	if !v.Valid {
		return "-"
	}
	return fmt.Sprintf("%.2f", v.Float64)
}
