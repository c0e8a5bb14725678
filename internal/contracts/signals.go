package contracts

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Signal is the traffic-light classification of an instrument.
type Signal int

const (
	SignalYellow Signal = iota // hold / observe
	SignalGreen                // buy watch
	SignalRed                  // sell watch
)

// String returns GREEN, RED or YELLOW.
func (s Signal) String() string {
	switch s {
	case SignalGreen:
		return "GREEN"
	case SignalRed:
		return "RED"
	default:
		return "YELLOW"
	}
}

// Emoji returns the light used in human-facing reports.
func (s Signal) Emoji() string {
	switch s {
	case SignalGreen:
		return "🟢"
	case SignalRed:
		return "🔴"
	default:
		return "🟡"
	}
}

// Rank is the report sort key: GREEN < RED < YELLOW.
func (s Signal) Rank() int {
	switch s {
	case SignalGreen:
		return 0
	case SignalRed:
		return 1
	default:
		return 2
	}
}

// ParseSignal accepts the names and emoji produced by String and Emoji.
func ParseSignal(v string) (Signal, error) {
	switch strings.ToUpper(strings.TrimSpace(v)) {
	case "GREEN", "🟢":
		return SignalGreen, nil
	case "RED", "🔴":
		return SignalRed, nil
	case "YELLOW", "🟡":
		return SignalYellow, nil
	}
	return SignalYellow, fmt.Errorf("unknown signal %q", v)
}

// MarshalJSON encodes the signal by name.
func (s Signal) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// UnmarshalJSON decodes a signal name.
func (s *Signal) UnmarshalJSON(data []byte) error {
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	parsed, err := ParseSignal(v)
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// SignalResult is one report row: the classification of an instrument at its latest bar.
// ⭐ SSOT: Signal Classifier → Scan Orchestrator → Report Sink 행 전달
type SignalResult struct {
	Code   string    `json:"code"`
	Date   time.Time `json:"date"`
	Close  float64   `json:"close"`
	Signal Signal    `json:"signal"`
	Memo   string    `json:"memo"`

	K   NullFloat `json:"k"`
	D   NullFloat `json:"d"`
	RSI NullFloat `json:"rsi"`
}

// ScanConfig carries window lengths and thresholds for one scan.
// It is a value object; copy freely.
type ScanConfig struct {
	MAShortDays  int     `json:"ma_short_days" yaml:"ma_short_days"`
	MALongDays   int     `json:"ma_long_days" yaml:"ma_long_days"`
	RSIThreshold float64 `json:"rsi_threshold" yaml:"rsi_threshold"`
	KDThreshold  float64 `json:"kd_threshold" yaml:"kd_threshold"`
	MACDFast     int     `json:"macd_fast" yaml:"macd_fast"`
	MACDSlow     int     `json:"macd_slow" yaml:"macd_slow"`
	MACDSignal   int     `json:"macd_signal" yaml:"macd_signal"`
	RSILength    int     `json:"rsi_length" yaml:"rsi_length"`
	KPeriod      int     `json:"k_period" yaml:"k_period"`
	DPeriod      int     `json:"d_period" yaml:"d_period"`
}

// DefaultScanConfig returns the documented defaults.
func DefaultScanConfig() ScanConfig {
	return ScanConfig{
		MAShortDays:  10,
		MALongDays:   20,
		RSIThreshold: 80,
		KDThreshold:  50,
		MACDFast:     12,
		MACDSlow:     26,
		MACDSignal:   9,
		RSILength:    14,
		KPeriod:      9,
		DPeriod:      3,
	}
}

// SkippedInstrument records an instrument left out of a report.
type SkippedInstrument struct {
	Code   string `json:"code"`
	Reason string `json:"reason"`
}

// ScanReport is the ordered result of one scan.
type ScanReport struct {
	RunID      string              `json:"run_id"`
	StartedAt  time.Time           `json:"started_at"`
	FinishedAt time.Time           `json:"finished_at"`
	ConfigHash string              `json:"config_hash"`
	Config     ScanConfig          `json:"config"`
	Rows       []SignalResult      `json:"rows"`
	Skipped    []SkippedInstrument `json:"skipped,omitempty"`
}

// Count returns the number of rows.
func (r *ScanReport) Count() int {
	if r == nil {
		return 0
	}
	return len(r.Rows)
}

// CountBy returns the number of rows with the given signal.
func (r *ScanReport) CountBy(signal Signal) int {
	if r == nil {
		return 0
	}
	n := 0
	for _, row := range r.Rows {
		if row.Signal == signal {
			n++
		}
	}
	return n
}
