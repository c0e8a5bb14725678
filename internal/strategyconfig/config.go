package strategyconfig

import "github.com/wonny/twscan/internal/contracts"

// Config는 신호등 스캐너 전략 파일 전체 설정
type Config struct {
	Meta       Meta       `yaml:"meta" json:"meta"`
	Universe   Universe   `yaml:"universe" json:"universe"`
	Indicators Indicators `yaml:"indicators" json:"indicators"`
	Thresholds Thresholds `yaml:"thresholds" json:"thresholds"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id"`
	Version    string `yaml:"version" json:"version"`
	Timezone   string `yaml:"timezone" json:"timezone"`
	ScanTime   string `yaml:"scan_time_local" json:"scan_time_local"` // HH:MM
}

// Universe 스캔 대상 종목 (DB 미사용 시 fallback)
type Universe struct {
	Stocks []string `yaml:"stocks" json:"stocks"`
}

// Indicators holds window lengths fed to the indicator engine
type Indicators struct {
	MAShortDays int  `yaml:"ma_short_days" json:"ma_short_days"`
	MALongDays  int  `yaml:"ma_long_days" json:"ma_long_days"`
	RSILength   int  `yaml:"rsi_length" json:"rsi_length"`
	KPeriod     int  `yaml:"k_period" json:"k_period"`
	DPeriod     int  `yaml:"d_period" json:"d_period"`
	MACD        MACD `yaml:"macd" json:"macd"`
}

type MACD struct {
	Fast   int `yaml:"fast" json:"fast"`
	Slow   int `yaml:"slow" json:"slow"`
	Signal int `yaml:"signal" json:"signal"`
}

// Thresholds 신호 판정 임계값
type Thresholds struct {
	RSI float64 `yaml:"rsi" json:"rsi"` // RED: RSI > rsi
	KD  float64 `yaml:"kd" json:"kd"`   // GREEN: K < kd
}

// Default returns a config carrying the documented defaults
func Default() *Config {
	return FromScanConfig(contracts.DefaultScanConfig())
}

// FromScanConfig wraps a scan config into a strategy file config
func FromScanConfig(sc contracts.ScanConfig) *Config {
	return &Config{
		Meta: Meta{
			StrategyID: "tw_traffic_light",
			Version:    "1",
			Timezone:   "Asia/Taipei",
			ScanTime:   "13:40",
		},
		Indicators: Indicators{
			MAShortDays: sc.MAShortDays,
			MALongDays:  sc.MALongDays,
			RSILength:   sc.RSILength,
			KPeriod:     sc.KPeriod,
			DPeriod:     sc.DPeriod,
			MACD: MACD{
				Fast:   sc.MACDFast,
				Slow:   sc.MACDSlow,
				Signal: sc.MACDSignal,
			},
		},
		Thresholds: Thresholds{
			RSI: sc.RSIThreshold,
			KD:  sc.KDThreshold,
		},
	}
}

// ScanConfig flattens the file config into the value object the scanner uses
func (c *Config) ScanConfig() contracts.ScanConfig {
	return contracts.ScanConfig{
		MAShortDays:  c.Indicators.MAShortDays,
		MALongDays:   c.Indicators.MALongDays,
		RSIThreshold: c.Thresholds.RSI,
		KDThreshold:  c.Thresholds.KD,
		MACDFast:     c.Indicators.MACD.Fast,
		MACDSlow:     c.Indicators.MACD.Slow,
		MACDSignal:   c.Indicators.MACD.Signal,
		RSILength:    c.Indicators.RSILength,
		KPeriod:      c.Indicators.KPeriod,
		DPeriod:      c.Indicators.DPeriod,
	}
}
