package strategyconfig

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/wonny/twscan/internal/contracts"
)

// Strategy parameter keys as stored in the strategy_params table
const (
	KeyMAShortDays  = "MA_SHORT_DAYS"
	KeyMALongDays   = "MA_LONG_DAYS"
	KeyRSIThreshold = "RSI_THRESHOLD"
	KeyKDThreshold  = "KD_THRESHOLD"
	KeyMACDFast     = "MACD_FAST"
	KeyMACDSlow     = "MACD_SLOW"
	KeyMACDSignal   = "MACD_SIGNAL"

	// Optional; absent keys fall back silently.
	KeyRSILength = "RSI_LENGTH"
	KeyKPeriod   = "K_PERIOD"
	KeyDPeriod   = "D_PERIOD"
)

// CoreKeys lists the parameters every deployment is expected to carry, in display order.
var CoreKeys = []string{
	KeyMAShortDays,
	KeyMALongDays,
	KeyRSIThreshold,
	KeyKDThreshold,
	KeyMACDFast,
	KeyMACDSlow,
	KeyMACDSignal,
}

// Descriptions are the default human descriptions of each key
var Descriptions = map[string]string{
	KeyMAShortDays:  "短期移動平均線天數 (跌破賣出，例如 10 日線)",
	KeyMALongDays:   "長期移動平均線天數 (站上買進，例如 20 日線)",
	KeyRSIThreshold: "RSI 過熱門檻 (高於此值賣出)",
	KeyKDThreshold:  "KD 低檔門檻 (K 值低於此值的黃金交叉才買進)",
	KeyMACDFast:     "MACD 快速移動平均線天數 (通常為 12)",
	KeyMACDSlow:     "MACD 慢速移動平均線天數 (通常為 26)",
	KeyMACDSignal:   "MACD 訊號線天數 (通常為 9)",
	KeyRSILength:    "RSI 計算天數 (通常為 14)",
	KeyKPeriod:      "KD 的 K 值計算天數 (通常為 9)",
	KeyDPeriod:      "KD 的 D 值平滑天數 (通常為 3)",
}

type param struct {
	key      string
	optional bool
	isInt    bool
	intField func(*contracts.ScanConfig) *int
	numField func(*contracts.ScanConfig) *float64
}

// maxWindow bounds integer windows so IntPart cannot wrap
var maxWindow = decimal.NewFromInt(math.MaxInt32)

var params = []param{
	{key: KeyMAShortDays, isInt: true, intField: func(c *contracts.ScanConfig) *int { return &c.MAShortDays }},
	{key: KeyMALongDays, isInt: true, intField: func(c *contracts.ScanConfig) *int { return &c.MALongDays }},
	{key: KeyRSIThreshold, numField: func(c *contracts.ScanConfig) *float64 { return &c.RSIThreshold }},
	{key: KeyKDThreshold, numField: func(c *contracts.ScanConfig) *float64 { return &c.KDThreshold }},
	{key: KeyMACDFast, isInt: true, intField: func(c *contracts.ScanConfig) *int { return &c.MACDFast }},
	{key: KeyMACDSlow, isInt: true, intField: func(c *contracts.ScanConfig) *int { return &c.MACDSlow }},
	{key: KeyMACDSignal, isInt: true, intField: func(c *contracts.ScanConfig) *int { return &c.MACDSignal }},
	{key: KeyRSILength, optional: true, isInt: true, intField: func(c *contracts.ScanConfig) *int { return &c.RSILength }},
	{key: KeyKPeriod, optional: true, isInt: true, intField: func(c *contracts.ScanConfig) *int { return &c.KPeriod }},
	{key: KeyDPeriod, optional: true, isInt: true, intField: func(c *contracts.ScanConfig) *int { return &c.DPeriod }},
}

// FromParams builds a ScanConfig from plain key/value data.
// ⭐ SSOT: DB/시트 파라미터 → ScanConfig 변환은 여기서만
//
// Values may be ints, floats, json.Number or numeric strings such as "10",
// "10.0" or "80.5". Integer windows truncate a fractional part. Missing or
// unparseable keys keep the default and are reported as warnings.
func FromParams(kv map[string]any) (contracts.ScanConfig, []Warning) {
	cfg := contracts.DefaultScanConfig()
	var warnings []Warning

	for _, p := range params {
		raw, ok := lookup(kv, p.key)
		if !ok {
			if !p.optional {
				warnings = append(warnings, Warning{
					Code:    "MISSING_PARAM",
					Message: fmt.Sprintf("%s missing, using default", p.key),
				})
			}
			continue
		}

		d, err := toDecimal(raw)
		if err != nil {
			warnings = append(warnings, Warning{
				Code:    "INVALID_PARAM",
				Message: fmt.Sprintf("%s=%v: %v, using default", p.key, raw, err),
			})
			continue
		}

		if p.isInt {
			if d.GreaterThan(maxWindow) {
				warnings = append(warnings, Warning{
					Code:    "INVALID_PARAM",
					Message: fmt.Sprintf("%s=%v: must be <= %s, using default", p.key, raw, maxWindow),
				})
				continue
			}
			n := int(d.IntPart())
			if d.Sign() <= 0 || n <= 0 {
				warnings = append(warnings, Warning{
					Code:    "INVALID_PARAM",
					Message: fmt.Sprintf("%s=%v: must be > 0, using default", p.key, raw),
				})
				continue
			}
			*p.intField(&cfg) = n
			continue
		}

		f, _ := d.Float64()
		*p.numField(&cfg) = f
	}

	return cfg, warnings
}

// ToParams is the inverse of FromParams, used when persisting a config
func ToParams(cfg contracts.ScanConfig) map[string]any {
	out := make(map[string]any, len(params))
	for _, p := range params {
		if p.isInt {
			out[p.key] = *p.intField(&cfg)
			continue
		}
		out[p.key] = *p.numField(&cfg)
	}
	return out
}

// lookup matches keys case-insensitively so sheet exports with lowercase headers work
func lookup(kv map[string]any, key string) (any, bool) {
	if v, ok := kv[key]; ok && v != nil {
		return v, true
	}
	for k, v := range kv {
		if strings.EqualFold(strings.TrimSpace(k), key) && v != nil {
			return v, true
		}
	}
	return nil, false
}

func toDecimal(v any) (decimal.Decimal, error) {
	switch x := v.(type) {
	case int:
		return decimal.NewFromInt(int64(x)), nil
	case int32:
		return decimal.NewFromInt32(x), nil
	case int64:
		return decimal.NewFromInt(x), nil
	case float32:
		return toDecimal(float64(x))
	case float64:
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return decimal.Zero, fmt.Errorf("not a finite number")
		}
		return decimal.NewFromFloat(x), nil
	case json.Number:
		return decimal.NewFromString(x.String())
	case string:
		s := strings.TrimSpace(x)
		if s == "" {
			return decimal.Zero, fmt.Errorf("empty value")
		}
		return decimal.NewFromString(s)
	case decimal.Decimal:
		return x, nil
	}
	return decimal.Zero, fmt.Errorf("unsupported type %T", v)
}
