package indicators

import (
	talib "github.com/markcheno/go-talib"

	"github.com/wonny/twscan/internal/contracts"
)

// SMA returns the simple moving average of the trailing n values.
// The first n-1 positions are undefined.
func SMA(values []float64, n int) []contracts.NullFloat {
	return SMANullable(defined(values), n)
}

// SMANullable is SMA over a column that may contain undefined values.
// A window containing any undefined value is itself undefined.
func SMANullable(values []contracts.NullFloat, n int) []contracts.NullFloat {
	return overRuns(values, n, talib.Sma)
}

// EMA returns the exponential moving average with alpha = 2/(span+1),
// seeded by the simple mean of the first span values.
func EMA(values []float64, span int) []contracts.NullFloat {
	return EMANullable(defined(values), span)
}

// EMANullable is EMA over a column that may contain undefined values.
// Warm-up starts at the first defined value; an undefined value restarts it.
func EMANullable(values []contracts.NullFloat, span int) []contracts.NullFloat {
	return overRuns(values, span, talib.Ema)
}

// overRuns applies a talib moving average to every run of consecutive
// defined values. talib zero-fills its n-1 lookback slots; those stay
// undefined here, and runs shorter than n are skipped (talib indexes
// past the end on them).
func overRuns(values []contracts.NullFloat, n int, ma func([]float64, int) []float64) []contracts.NullFloat {
	out := make([]contracts.NullFloat, len(values))
	if n <= 0 {
		return out
	}

	start := 0
	for start < len(values) {
		if !values[start].Valid {
			start++
			continue
		}
		end := start
		for end < len(values) && values[end].Valid {
			end++
		}

		if end-start >= n {
			run := make([]float64, end-start)
			for i := range run {
				run[i] = values[start+i].Float64
			}
			for i, v := range ma(run, n) {
				if i >= n-1 {
					out[start+i] = contracts.Some(v)
				}
			}
		}
		start = end
	}
	return out
}

// defined lifts a plain series into a fully defined nullable column.
func defined(values []float64) []contracts.NullFloat {
	out := make([]contracts.NullFloat, len(values))
	for i, v := range values {
		out[i] = contracts.Some(v)
	}
	return out
}

// sub returns a-b where both sides are defined.
func sub(a, b []contracts.NullFloat) []contracts.NullFloat {
	out := make([]contracts.NullFloat, len(a))
	for i := range a {
		if a[i].Valid && b[i].Valid {
			out[i] = contracts.Some(a[i].Float64 - b[i].Float64)
		}
	}
	return out
}
