package contracts

// IndicatorSet holds indicator columns aligned one-to-one with Bars.
// ⭐ SSOT: Indicator Engine → Signal Classifier 지표 전달
type IndicatorSet struct {
	Bars []DailyBar `json:"bars"`

	MAShort []NullFloat `json:"ma_short"`
	MALong  []NullFloat `json:"ma_long"`
	MA60    []NullFloat `json:"ma60"`

	MACDDIF []NullFloat `json:"macd_dif"`
	MACDDEM []NullFloat `json:"macd_dem"`
	MACDOSC []NullFloat `json:"macd_osc"`

	RSI []NullFloat `json:"rsi"`
	K   []NullFloat `json:"k"`
	D   []NullFloat `json:"d"`
}

// IndicatorRow is the snapshot of every column at one bar.
type IndicatorRow struct {
	Bar DailyBar

	MAShort NullFloat
	MALong  NullFloat
	MA60    NullFloat

	MACDDIF NullFloat
	MACDDEM NullFloat
	MACDOSC NullFloat

	RSI NullFloat
	K   NullFloat
	D   NullFloat
}

// Len returns the number of bars.
func (s *IndicatorSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Bars)
}

// At returns the row at index i. Panics if i is out of range.
func (s *IndicatorSet) At(i int) IndicatorRow {
	return IndicatorRow{
		Bar:     s.Bars[i],
		MAShort: s.MAShort[i],
		MALong:  s.MALong[i],
		MA60:    s.MA60[i],
		MACDDIF: s.MACDDIF[i],
		MACDDEM: s.MACDDEM[i],
		MACDOSC: s.MACDOSC[i],
		RSI:     s.RSI[i],
		K:       s.K[i],
		D:       s.D[i],
	}
}

// Latest returns the last row and, when there are at least two bars,
// the row before it.
func (s *IndicatorSet) Latest() (latest IndicatorRow, prev IndicatorRow, hasPrev bool) {
	n := s.Len()
	latest = s.At(n - 1)
	if n >= 2 {
		return latest, s.At(n - 2), true
	}
	return latest, IndicatorRow{}, false
}
