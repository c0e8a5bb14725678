package report

import (
	"strconv"

	"github.com/wonny/twscan/internal/contracts"
)

// Decimals used when a report row is displayed or stored as text
const Decimals = 2

// Header is the column order shared by every tabular sink
var Header = []string{"Stock", "Date", "Close", "Signal", "Memo", "K", "D", "RSI"}

// Row is a display-ready report row. Engine values keep full precision;
// rounding happens only here.
type Row struct {
	Stock  string
	Date   string
	Close  float64
	Signal contracts.Signal
	Memo   string
	K      contracts.NullFloat
	D      contracts.NullFloat
	RSI    contracts.NullFloat
}

// Rows converts a report in its sorted order
func Rows(r *contracts.ScanReport) []Row {
	if r == nil {
		return nil
	}
	out := make([]Row, len(r.Rows))
	for i, res := range r.Rows {
		out[i] = Row{
			Stock:  res.Code,
			Date:   contracts.DateString(res.Date),
			Close:  res.Close,
			Signal: res.Signal,
			Memo:   res.Memo,
			K:      res.K.Round(Decimals),
			D:      res.D.Round(Decimals),
			RSI:    res.RSI.Round(Decimals),
		}
	}
	return out
}

// Strings renders the row in Header order; undefined values are empty
func (r Row) Strings() []string {
	return []string{
		r.Stock,
		r.Date,
		strconv.FormatFloat(r.Close, 'f', -1, 64),
		r.Signal.Emoji(),
		r.Memo,
		formatNull(r.K),
		formatNull(r.D),
		formatNull(r.RSI),
	}
}

func formatNull(n contracts.NullFloat) string {
	if !n.Valid {
		return ""
	}
	return strconv.FormatFloat(n.Float64, 'f', Decimals, 64)
}
