package s0_data

import (
	"sort"
	"time"

	"github.com/wonny/twscan/internal/contracts"
)

// Normalize aggregates raw bars of any granularity up to one day into one
// bar per calendar day.
// ⭐ SSOT: 원시 봉 → 일봉 변환은 여기서만
//
// The calendar day is read in each timestamp's own location. Days without
// observations produce no row. Placeholder bars with no price are dropped.
func Normalize(raw []contracts.RawBar) []contracts.DailyBar {
	bars := make([]contracts.RawBar, 0, len(raw))
	for _, b := range raw {
		if b.IsEmpty() || b.Time.IsZero() {
			continue
		}
		bars = append(bars, b)
	}

	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].Time.Before(bars[j].Time)
	})

	daily := make([]contracts.DailyBar, 0)
	var (
		cur     contracts.DailyBar
		curDay  time.Time
		started bool
	)

	for _, b := range bars {
		day := contracts.Day(b.Time)
		if !started || !day.Equal(curDay) {
			if started {
				daily = append(daily, cur)
			}
			cur = contracts.DailyBar{
				Date:   day,
				Open:   b.Open,
				High:   b.High,
				Low:    b.Low,
				Close:  b.Close,
				Volume: b.Volume,
			}
			curDay = day
			started = true
			continue
		}

		if b.High > cur.High {
			cur.High = b.High
		}
		if b.Low < cur.Low {
			cur.Low = b.Low
		}
		cur.Close = b.Close
		cur.Volume += b.Volume
	}
	if started {
		daily = append(daily, cur)
	}

	// Timestamps in mixed locations can map to days out of order.
	sort.SliceStable(daily, func(i, j int) bool {
		return daily[i].Date.Before(daily[j].Date)
	})
	return mergeSameDay(daily)
}

// mergeSameDay folds adjacent rows that share a date after re-sorting.
func mergeSameDay(daily []contracts.DailyBar) []contracts.DailyBar {
	if len(daily) < 2 {
		return daily
	}
	out := daily[:1]
	for _, b := range daily[1:] {
		last := &out[len(out)-1]
		if !b.Date.Equal(last.Date) {
			out = append(out, b)
			continue
		}
		if b.High > last.High {
			last.High = b.High
		}
		if b.Low < last.Low {
			last.Low = b.Low
		}
		last.Close = b.Close
		last.Volume += b.Volume
	}
	return out
}
