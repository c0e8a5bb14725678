package strategyconfig

import (
	"errors"
	"fmt"
	"regexp"
	"time"
	_ "time/tzdata" // meta.timezone 검증용

	"github.com/wonny/twscan/internal/contracts"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints
// 실패 시 error 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StrategyID == "" {
		return ValidationError{"meta.strategy_id", "required"}
	}
	if cfg.Meta.ScanTime != "" {
		if err := validateHHMM(cfg.Meta.ScanTime); err != nil {
			return ValidationError{"meta.scan_time_local", err.Error()}
		}
	}
	if cfg.Meta.Timezone != "" {
		if _, err := time.LoadLocation(cfg.Meta.Timezone); err != nil {
			return ValidationError{"meta.timezone", err.Error()}
		}
	}

	// === Universe ===
	for i, code := range cfg.Universe.Stocks {
		if code == "" {
			return ValidationError{fmt.Sprintf("universe.stocks[%d]", i), "must not be empty"}
		}
	}

	return ValidateScanConfig(cfg.ScanConfig())
}

// ValidateScanConfig checks windows and thresholds of a flattened config
func ValidateScanConfig(sc contracts.ScanConfig) error {
	windows := []struct {
		field string
		value int
	}{
		{"indicators.ma_short_days", sc.MAShortDays},
		{"indicators.ma_long_days", sc.MALongDays},
		{"indicators.rsi_length", sc.RSILength},
		{"indicators.k_period", sc.KPeriod},
		{"indicators.d_period", sc.DPeriod},
		{"indicators.macd.fast", sc.MACDFast},
		{"indicators.macd.slow", sc.MACDSlow},
		{"indicators.macd.signal", sc.MACDSignal},
	}
	for _, w := range windows {
		if w.value <= 0 {
			return ValidationError{w.field, "must be > 0"}
		}
	}

	if sc.MACDFast >= sc.MACDSlow {
		return ValidationError{"indicators.macd", "fast must be < slow"}
	}

	// 오실레이터 범위 0~100
	if err := validateOscRange(sc.RSIThreshold, "thresholds.rsi"); err != nil {
		return err
	}
	if err := validateOscRange(sc.KDThreshold, "thresholds.kd"); err != nil {
		return err
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning
	sc := cfg.ScanConfig()

	// 단기 >= 장기 이평
	if sc.MAShortDays >= sc.MALongDays {
		warnings = append(warnings, Warning{
			Code:    "MA_ORDER",
			Message: fmt.Sprintf("ma_short_days=%d >= ma_long_days=%d: RED and GREEN reference the same trend", sc.MAShortDays, sc.MALongDays),
		})
	}

	// RSI 과열 기준이 너무 낮음
	if sc.RSIThreshold < 50 {
		warnings = append(warnings, Warning{
			Code:    "LOW_RSI_THRESHOLD",
			Message: "RSI threshold < 50: most instruments will be RED",
		})
	}

	// 100 KD 기준은 골든크로스 필터 무력화
	if sc.KDThreshold >= 100 {
		warnings = append(warnings, Warning{
			Code:    "KD_FILTER_OFF",
			Message: "KD threshold >= 100: golden cross is never filtered",
		})
	}

	if dup := duplicates(cfg.Universe.Stocks); len(dup) > 0 {
		warnings = append(warnings, Warning{
			Code:    "DUPLICATE_STOCKS",
			Message: fmt.Sprintf("universe.stocks lists %v more than once; each occurrence produces a row", dup),
		})
	}

	return warnings
}

// === Helper Functions ===

var hhmm = regexp.MustCompile(`^\d{2}:\d{2}$`)

func validateHHMM(s string) error {
	if !hhmm.MatchString(s) {
		return errors.New("must be HH:MM format")
	}
	_, err := time.Parse("15:04", s)
	return err
}

// validateOscRange는 오실레이터 임계값이 (0, 100] 범위인지 검증
func validateOscRange(v float64, field string) error {
	if v <= 0 || v > 100 {
		return ValidationError{field, "must be in range (0, 100]"}
	}
	return nil
}

func duplicates(codes []string) []string {
	count := make(map[string]int, len(codes))
	var dup []string
	for _, c := range codes {
		count[c]++
		if count[c] == 2 {
			dup = append(dup, c)
		}
	}
	return dup
}
