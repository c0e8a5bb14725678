package notify

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/scanner"
)

// DefaultFooter closes every digest
const DefaultFooter = "📈 完整報表已更新。"

// Digest composes the daily message: GREEN list (or none), RED list when
// present, YELLOW count, skipped count when present, footer.
// ⭐ SSOT: 일일 알림 문구는 여기서만
func Digest(report *contracts.ScanReport, day time.Time, footer string) string {
	green, red := scanner.Partition(report)
	sum := scanner.Summarize(report)

	var b strings.Builder
	fmt.Fprintf(&b, "📊 AI選股日報 (%s)\n\n", day.Format("2006-01-02"))

	if len(green) > 0 {
		fmt.Fprintf(&b, "%s 綠燈 (買進關注): %s\n", contracts.SignalGreen.Emoji(), strings.Join(green, ", "))
	} else {
		fmt.Fprintf(&b, "%s 綠燈: 無\n", contracts.SignalGreen.Emoji())
	}

	if len(red) > 0 {
		fmt.Fprintf(&b, "%s 紅燈 (留意賣點): %s\n", contracts.SignalRed.Emoji(), strings.Join(red, ", "))
	}

	fmt.Fprintf(&b, "\n%s 其餘 %d 檔為黃燈觀望。\n", contracts.SignalYellow.Emoji(), sum.Yellow)

	if sum.Skipped > 0 {
		fmt.Fprintf(&b, "⚠️ %d 檔資料取得失敗，已略過。\n", sum.Skipped)
	}

	if footer == "" {
		footer = DefaultFooter
	}
	b.WriteString("\n")
	b.WriteString(footer)
	return b.String()
}
