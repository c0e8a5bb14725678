package contracts

import (
	"encoding/json"
	"math"
	"time"
)

// RawBar is a price bar as returned by a retrieval source.
// Granularity may be anything up to one day.
type RawBar struct {
	Time   time.Time `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// IsEmpty reports whether the bar carries no price at all
// (chart APIs emit such placeholders for halted sessions).
func (b RawBar) IsEmpty() bool {
	return b.Open == 0 && b.High == 0 && b.Low == 0 && b.Close == 0
}

// DailyBar is one OHLCV bar per calendar day.
// ⭐ SSOT: Normalizer → Indicator Engine 일봉 전달
type DailyBar struct {
	Date   time.Time `json:"date"` // calendar day, 00:00 UTC
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Day returns the timezone-naive calendar day of t.
// The Y/M/D is read in t's own location and re-anchored to UTC midnight.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateString formats a calendar day as YYYY-MM-DD.
func DateString(t time.Time) string {
	return t.Format("2006-01-02")
}

// NullFloat is a number that may be undefined (indicator warm-up, zero range).
// Undefined values never take part in comparisons.
type NullFloat struct {
	Float64 float64
	Valid   bool
}

// Some wraps a defined value. NaN and ±Inf are treated as undefined.
func Some(v float64) NullFloat {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return NullFloat{}
	}
	return NullFloat{Float64: v, Valid: true}
}

// None is the undefined value.
func None() NullFloat {
	return NullFloat{}
}

// Ptr returns a pointer usable as a nullable SQL parameter.
func (n NullFloat) Ptr() *float64 {
	if !n.Valid {
		return nil
	}
	v := n.Float64
	return &v
}

// Round returns n rounded to the given number of decimals.
func (n NullFloat) Round(decimals int) NullFloat {
	if !n.Valid {
		return n
	}
	p := math.Pow(10, float64(decimals))
	return NullFloat{Float64: math.Round(n.Float64*p) / p, Valid: true}
}

// MarshalJSON encodes undefined values as null.
func (n NullFloat) MarshalJSON() ([]byte, error) {
	if !n.Valid {
		return []byte("null"), nil
	}
	return json.Marshal(n.Float64)
}

// UnmarshalJSON accepts a number or null.
func (n *NullFloat) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*n = NullFloat{}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = Some(v)
	return nil
}
