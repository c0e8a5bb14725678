package indicators

import (
	talib "github.com/markcheno/go-talib"

	"github.com/wonny/twscan/internal/contracts"
)

// KSmoothing is the window of the SMA applied to raw %K before the
// configurable %D signal smoothing (the "slow" stochastic).
// It is fixed so that %K values are reproducible across configurations.
const KSmoothing = 3

// MACD returns DIF = EMA(fast) - EMA(slow), DEM = EMA(DIF, signal) and
// OSC = DIF - DEM.
func MACD(closes []float64, fast, slow, signal int) (dif, dem, osc []contracts.NullFloat) {
	dif = sub(EMA(closes, fast), EMA(closes, slow))
	dem = EMANullable(dif, signal)
	osc = sub(dif, dem)
	return dif, dem, osc
}

// RSI returns Wilder's Relative Strength Index.
// The averages are seeded with the simple mean of the first n changes, so
// the first n positions are undefined. A flat window (no gains, no losses)
// is undefined as well.
func RSI(closes []float64, n int) []contracts.NullFloat {
	out := make([]contracts.NullFloat, len(closes))
	if n <= 0 || len(closes) <= n {
		return out
	}
	if n == 1 {
		// talib.Rsi needs a period of at least 2; one change is its own average
		for i := 1; i < len(closes); i++ {
			out[i] = rsiValue(change(closes[i-1], closes[i]))
		}
		return out
	}

	values := talib.Rsi(closes, n)

	// Wilder averages stay above zero once any change has entered them, so
	// the window is flat exactly while the series has not moved yet.
	// talib reports those positions as 0.
	moved := false
	for i := 1; i < len(closes); i++ {
		if closes[i] != closes[i-1] {
			moved = true
		}
		if i < n || !moved {
			continue
		}
		out[i] = contracts.Some(values[i])
	}
	return out
}

func change(prev, cur float64) (gain, loss float64) {
	delta := cur - prev
	if delta > 0 {
		return delta, 0
	}
	return 0, -delta
}

func rsiValue(avgGain, avgLoss float64) contracts.NullFloat {
	total := avgGain + avgLoss
	if total == 0 {
		return contracts.None()
	}
	return contracts.Some(100 * avgGain / total)
}

// RawStochastic returns the unsmoothed %K over kPeriod bars:
// 100 * (close - lowest low) / (highest high - lowest low).
// A zero range is undefined rather than a division by zero.
func RawStochastic(high, low, closes []float64, kPeriod int) []contracts.NullFloat {
	return slowK(high, low, closes, kPeriod, 1)
}

// Stochastic returns the slow stochastic: %K = SMA(raw %K, KSmoothing)
// and %D = SMA(%K, dPeriod).
func Stochastic(high, low, closes []float64, kPeriod, dPeriod int) (k, d []contracts.NullFloat) {
	k = slowK(high, low, closes, kPeriod, KSmoothing)
	d = SMANullable(k, dPeriod)
	return k, d
}

// slowK runs talib.Stoch with the given %K smoothing and a pass-through %D,
// so %K is not cut back by the %D warm-up. talib writes 0 for a zero
// high/low range; such a raw value is undefined here, and so is every
// smoothed value whose window includes one.
func slowK(high, low, closes []float64, kPeriod, smoothing int) []contracts.NullFloat {
	out := make([]contracts.NullFloat, len(closes))
	lookback := kPeriod - 1 + smoothing - 1
	if kPeriod <= 0 || len(closes) <= lookback {
		return out
	}

	k, _ := talib.Stoch(high, low, closes, kPeriod, smoothing, talib.SMA, 1, talib.SMA)
	zero := zeroRange(high, low, kPeriod)

	lastZero := -1
	for i := kPeriod - 1; i < len(closes); i++ {
		if zero[i] {
			lastZero = i
		}
		if i < lookback || i-lastZero < smoothing {
			continue
		}
		out[i] = contracts.Some(k[i])
	}
	return out
}

// zeroRange marks the positions whose kPeriod window has highest high
// equal to lowest low.
func zeroRange(high, low []float64, kPeriod int) []bool {
	out := make([]bool, len(high))
	for i := kPeriod - 1; i < len(high); i++ {
		hh, ll := high[i], low[i]
		for j := i - kPeriod + 1; j < i; j++ {
			if high[j] > hh {
				hh = high[j]
			}
			if low[j] < ll {
				ll = low[j]
			}
		}
		out[i] = hh == ll
	}
	return out
}
