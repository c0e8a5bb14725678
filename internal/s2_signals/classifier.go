package s2_signals

import (
	"fmt"

	"github.com/wonny/twscan/internal/contracts"
)

// MemoHold is the memo of a YELLOW result.
const MemoHold = "Hold/Observe"

// Classify returns the traffic-light signal for the latest bar of set.
// ⭐ SSOT: GREEN/RED/YELLOW 판정 규칙은 여기서만
//
// Classify performs no I/O. An empty set returns contracts.ErrEmptySeries.
func Classify(code string, set *contracts.IndicatorSet, cfg contracts.ScanConfig) (contracts.SignalResult, error) {
	if set.Len() == 0 {
		return contracts.SignalResult{}, fmt.Errorf("classify %s: %w", code, contracts.ErrEmptySeries)
	}

	latest, prev, _ := set.Latest()
	signal, memo := Evaluate(latest, prev, cfg)

	return contracts.SignalResult{
		Code:   code,
		Date:   latest.Bar.Date,
		Close:  latest.Bar.Close,
		Signal: signal,
		Memo:   memo,
		K:      latest.K,
		D:      latest.D,
		RSI:    latest.RSI,
	}, nil
}

// Evaluate applies the rule table to one bar and its predecessor.
// A zero prev row (first bar) has no defined values, so no golden cross.
//
// GREEN requires every buy condition; RED requires either sell condition
// and is checked last, so it wins over GREEN.
func Evaluate(latest, prev contracts.IndicatorRow, cfg contracts.ScanConfig) (contracts.Signal, string) {
	signal, memo := contracts.SignalYellow, MemoHold

	if isBuy(latest, prev, cfg) {
		signal = contracts.SignalGreen
		memo = fmt.Sprintf("Buy: Close > MA%d + MACD OSC > 0 + KD gold cross below %g", cfg.MALongDays, cfg.KDThreshold)
	}

	if isSell(latest, cfg) {
		signal = contracts.SignalRed
		memo = fmt.Sprintf("Sell: Below MA%d or RSI > %g", cfg.MAShortDays, cfg.RSIThreshold)
	}

	return signal, memo
}

// ClassifySeries returns the signal at every bar of set.
func ClassifySeries(set *contracts.IndicatorSet, cfg contracts.ScanConfig) []contracts.Signal {
	n := set.Len()
	out := make([]contracts.Signal, n)
	var prev contracts.IndicatorRow
	for i := 0; i < n; i++ {
		row := set.At(i)
		out[i], _ = Evaluate(row, prev, cfg)
		prev = row
	}
	return out
}

func isBuy(latest, prev contracts.IndicatorRow, cfg contracts.ScanConfig) bool {
	price := contracts.Some(latest.Bar.Close)
	return greater(price, latest.MALong) &&
		greater(latest.MACDOSC, contracts.Some(0)) &&
		goldenCross(latest, prev) &&
		less(latest.K, contracts.Some(cfg.KDThreshold))
}

func isSell(latest contracts.IndicatorRow, cfg contracts.ScanConfig) bool {
	price := contracts.Some(latest.Bar.Close)
	return less(price, latest.MAShort) ||
		greater(latest.RSI, contracts.Some(cfg.RSIThreshold))
}

// goldenCross is K crossing above D: K[t] > D[t] and K[t-1] <= D[t-1].
func goldenCross(latest, prev contracts.IndicatorRow) bool {
	return greater(latest.K, latest.D) && lessOrEqual(prev.K, prev.D)
}

// Comparisons with an undefined operand are false.

func greater(a, b contracts.NullFloat) bool {
	return a.Valid && b.Valid && a.Float64 > b.Float64
}

func less(a, b contracts.NullFloat) bool {
	return a.Valid && b.Valid && a.Float64 < b.Float64
}

func lessOrEqual(a, b contracts.NullFloat) bool {
	return a.Valid && b.Valid && a.Float64 <= b.Float64
}
