package s0_data

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/twscan/internal/contracts"
)

func taipei(t *testing.T) *time.Location {
	t.Helper()
	loc, err := time.LoadLocation("Asia/Taipei")
	if err != nil {
		t.Skip("tzdata not available")
	}
	return loc
}

func TestNormalize_Empty(t *testing.T) {
	got := Normalize(nil)
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestNormalize_CollapsesIntradayBars(t *testing.T) {
	loc := taipei(t)
	at := func(h, m int) time.Time { return time.Date(2024, 3, 4, h, m, 0, 0, loc) }

	raw := []contracts.RawBar{
		{Time: at(9, 1), Open: 100, High: 101, Low: 99.5, Close: 100.5, Volume: 10},
		{Time: at(9, 2), Open: 100.5, High: 103, Low: 100, Close: 102, Volume: 20},
		{Time: at(13, 30), Open: 102, High: 102.5, Low: 98, Close: 99, Volume: 5},
	}

	got := Normalize(raw)
	require.Len(t, got, 1)

	bar := got[0]
	assert.Equal(t, time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC), bar.Date)
	assert.Equal(t, 100.0, bar.Open)
	assert.Equal(t, 103.0, bar.High)
	assert.Equal(t, 98.0, bar.Low)
	assert.Equal(t, 99.0, bar.Close)
	assert.Equal(t, 35.0, bar.Volume)
}

func TestNormalize_UnorderedInput(t *testing.T) {
	loc := taipei(t)
	at := func(d, h int) time.Time { return time.Date(2024, 3, d, h, 0, 0, 0, loc) }

	raw := []contracts.RawBar{
		{Time: at(5, 13), Open: 21, High: 22, Low: 20, Close: 21.5, Volume: 3},
		{Time: at(4, 10), Open: 10, High: 11, Low: 9, Close: 10.5, Volume: 1},
		{Time: at(5, 9), Open: 20, High: 21, Low: 19, Close: 20.5, Volume: 2},
		{Time: at(4, 9), Open: 9, High: 10, Low: 8, Close: 9.5, Volume: 1},
	}

	got := Normalize(raw)
	require.Len(t, got, 2)

	assert.Equal(t, "2024-03-04", contracts.DateString(got[0].Date))
	assert.Equal(t, 9.0, got[0].Open)
	assert.Equal(t, 10.5, got[0].Close)

	assert.Equal(t, "2024-03-05", contracts.DateString(got[1].Date))
	assert.Equal(t, 20.0, got[1].Open)
	assert.Equal(t, 21.5, got[1].Close)
	assert.Equal(t, 5.0, got[1].Volume)
}

func TestNormalize_NoGapFilling(t *testing.T) {
	raw := []contracts.RawBar{
		{Time: time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC), Open: 1, High: 1, Low: 1, Close: 1},
		{Time: time.Date(2024, 3, 4, 5, 0, 0, 0, time.UTC), Open: 2, High: 2, Low: 2, Close: 2},
	}

	got := Normalize(raw)
	require.Len(t, got, 2)
	assert.Equal(t, "2024-03-01", contracts.DateString(got[0].Date))
	assert.Equal(t, "2024-03-04", contracts.DateString(got[1].Date))
}

func TestNormalize_DropsPlaceholderBars(t *testing.T) {
	raw := []contracts.RawBar{
		{Time: time.Date(2024, 3, 1, 5, 0, 0, 0, time.UTC), Open: 1, High: 1, Low: 1, Close: 1},
		{Time: time.Date(2024, 3, 2, 5, 0, 0, 0, time.UTC)},
	}

	got := Normalize(raw)
	require.Len(t, got, 1)
	assert.Equal(t, "2024-03-01", contracts.DateString(got[0].Date))
}

func TestNormalize_DailyInputIsFixedPoint(t *testing.T) {
	loc := taipei(t)
	raw := make([]contracts.RawBar, 0, 30)
	for i := 0; i < 30; i++ {
		for h := 9; h <= 13; h++ {
			p := float64(100 + i + h)
			raw = append(raw, contracts.RawBar{
				Time:   time.Date(2024, 1, 1+i, h, 30, 0, 0, loc),
				Open:   p,
				High:   p + 1,
				Low:    p - 1,
				Close:  p + 0.5,
				Volume: 100,
			})
		}
	}

	first := Normalize(raw)
	require.Len(t, first, 30)

	// Feeding the daily bars back in must reproduce them.
	again := make([]contracts.RawBar, len(first))
	for i, b := range first {
		again[i] = contracts.RawBar{Time: b.Date, Open: b.Open, High: b.High, Low: b.Low, Close: b.Close, Volume: b.Volume}
	}
	assert.Equal(t, first, Normalize(again))

	for i := 1; i < len(first); i++ {
		assert.True(t, first[i].Date.After(first[i-1].Date))
	}
}
