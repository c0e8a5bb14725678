package indicators

import (
	"math"

	"github.com/wonny/twscan/internal/contracts"
)

// MA60Window is the fixed reference moving average carried in every set.
const MA60Window = 60

// Params holds indicator window lengths
type Params struct {
	MAShort    int
	MALong     int
	RSILength  int
	KPeriod    int
	DPeriod    int
	MACDFast   int
	MACDSlow   int
	MACDSignal int
}

// DefaultParams returns the standard windows (10/20, RSI 14, KD 9/3, MACD 12/26/9)
func DefaultParams() Params {
	return ParamsFromConfig(contracts.DefaultScanConfig())
}

// ParamsFromConfig extracts the windows a scan config feeds to the engine
func ParamsFromConfig(cfg contracts.ScanConfig) Params {
	return Params{
		MAShort:    cfg.MAShortDays,
		MALong:     cfg.MALongDays,
		RSILength:  cfg.RSILength,
		KPeriod:    cfg.KPeriod,
		DPeriod:    cfg.DPeriod,
		MACDFast:   cfg.MACDFast,
		MACDSlow:   cfg.MACDSlow,
		MACDSignal: cfg.MACDSignal,
	}
}

// Validate checks that every window is positive
func (p Params) Validate() error {
	windows := []struct {
		name  string
		value int
	}{
		{"ma_short", p.MAShort},
		{"ma_long", p.MALong},
		{"rsi_length", p.RSILength},
		{"k_period", p.KPeriod},
		{"d_period", p.DPeriod},
		{"macd_fast", p.MACDFast},
		{"macd_slow", p.MACDSlow},
		{"macd_signal", p.MACDSignal},
	}
	for _, w := range windows {
		if w.value <= 0 {
			return &contracts.InvalidInputError{Index: -1, Field: w.name, Reason: "window must be positive"}
		}
	}
	return nil
}

// Compute calculates every indicator column for a daily bar sequence.
// ⭐ SSOT: 지표 계산은 여기서만
//
// Compute is a pure function of its input. Empty input yields an empty set.
func Compute(bars []contracts.DailyBar, p Params) (*contracts.IndicatorSet, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := validateBars(bars); err != nil {
		return nil, err
	}

	n := len(bars)
	high := make([]float64, n)
	low := make([]float64, n)
	closes := make([]float64, n)
	for i, b := range bars {
		high[i] = b.High
		low[i] = b.Low
		closes[i] = b.Close
	}

	set := &contracts.IndicatorSet{
		Bars:    append([]contracts.DailyBar(nil), bars...),
		MAShort: SMA(closes, p.MAShort),
		MALong:  SMA(closes, p.MALong),
		MA60:    SMA(closes, MA60Window),
		RSI:     RSI(closes, p.RSILength),
	}
	set.MACDDIF, set.MACDDEM, set.MACDOSC = MACD(closes, p.MACDFast, p.MACDSlow, p.MACDSignal)
	set.K, set.D = Stochastic(high, low, closes, p.KPeriod, p.DPeriod)

	return set, nil
}

// validateBars rejects missing closes and non-ascending dates
func validateBars(bars []contracts.DailyBar) error {
	for i, b := range bars {
		if math.IsNaN(b.Close) || math.IsInf(b.Close, 0) || b.Close < 0 {
			return &contracts.InvalidInputError{Index: i, Field: "close", Reason: "missing or not a finite non-negative number"}
		}
		if b.Date.IsZero() {
			return &contracts.InvalidInputError{Index: i, Field: "date", Reason: "missing"}
		}
		if i > 0 && !b.Date.After(bars[i-1].Date) {
			return &contracts.InvalidInputError{Index: i, Field: "date", Reason: "not strictly ascending"}
		}
	}
	return nil
}
