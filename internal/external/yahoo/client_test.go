package yahoo

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/pkg/config"
	"github.com/wonny/twscan/pkg/httputil"
	"github.com/wonny/twscan/pkg/logger"
)

// two sessions plus a halted day with null quotes
const chartFixture = `{
  "chart": {
    "result": [{
      "meta": {"symbol": "2330.TW", "exchangeTimezoneName": "Asia/Taipei", "timezone": "CST", "gmtoffset": 28800},
      "timestamp": [1704159000, 1704245400, 1704331800],
      "indicators": {"quote": [{
        "open":   [590.0, 593.0, null],
        "high":   [593.0, 594.0, null],
        "low":    [589.0, 586.0, null],
        "close":  [593.0, 586.0, null],
        "volume": [26059058, 37106763, null]
      }]}
    }],
    "error": null
  }
}`

func TestParseChart(t *testing.T) {
	bars, err := ParseChart([]byte(chartFixture))
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, "Asia/Taipei", bars[0].Time.Location().String())
	assert.Equal(t, "2024-01-02", contracts.DateString(bars[0].Time))
	assert.Equal(t, 590.0, bars[0].Open)
	assert.Equal(t, 586.0, bars[1].Close)
	assert.Equal(t, 37106763.0, bars[1].Volume)
}

func TestParseChart_PartialQuotesDropped(t *testing.T) {
	body := `{"chart":{"result":[{"meta":{"exchangeTimezoneName":"Asia/Taipei"},
	  "timestamp":[1704159000,1704245400,1704331800,1704418200],
	  "indicators":{"quote":[{
	    "open":[100,100,100,100],
	    "high":[102,102,102,null],
	    "low":[99,null,101,98],
	    "close":[101,100,101.5,99],
	    "volume":[5000,6000,null,7000]}]}}],"error":null}}`

	bars, err := ParseChart([]byte(body))
	require.NoError(t, err)
	require.Len(t, bars, 2)

	assert.Equal(t, "2024-01-02", contracts.DateString(bars[0].Time))
	assert.Equal(t, 99.0, bars[0].Low)
	assert.Equal(t, "2024-01-04", contracts.DateString(bars[1].Time))
	assert.Equal(t, 101.0, bars[1].Low)
	assert.Equal(t, 0.0, bars[1].Volume)
	for _, b := range bars {
		assert.NotZero(t, b.High)
		assert.NotZero(t, b.Low)
	}
}

func TestParseChart_APIError(t *testing.T) {
	body := `{"chart":{"result":null,"error":{"code":"Not Found","description":"No data found, symbol may be delisted"}}}`

	_, err := ParseChart([]byte(body))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "delisted")
}

func TestParseChart_NoResult(t *testing.T) {
	_, err := ParseChart([]byte(`{"chart":{"result":[],"error":null}}`))
	assert.True(t, errors.Is(err, contracts.ErrNoData))

	_, err = ParseChart([]byte(`not json`))
	assert.Error(t, err)
}

func TestParseChart_OffsetFallback(t *testing.T) {
	body := `{"chart":{"result":[{"meta":{"timezone":"X","gmtoffset":28800},
	  "timestamp":[1704214800],"indicators":{"quote":[{"open":[1],"high":[1],"low":[1],"close":[1],"volume":[1]}]}}]}}`

	bars, err := ParseChart([]byte(body))
	require.NoError(t, err)
	require.Len(t, bars, 1)
	_, offset := bars[0].Time.Zone()
	assert.Equal(t, 8*3600, offset)
	// 2024-01-02 17:00 UTC is already Jan 3 in Taipei
	assert.Equal(t, "2024-01-03", contracts.DateString(bars[0].Time))
}

func TestSymbol(t *testing.T) {
	c := NewClient(nil, logger.Nop(), "", ".TW")

	assert.Equal(t, "2330.TW", c.Symbol("2330"))
	assert.Equal(t, "6488.TWO", c.Symbol("6488.TWO"))
	assert.Equal(t, "^TWII", c.Symbol("^TWII"))
}

func TestFetchBars(t *testing.T) {
	var gotPath, gotInterval string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotInterval = r.URL.Query().Get("interval")
		w.Write([]byte(chartFixture))
	}))
	defer server.Close()

	httpClient := httputil.New(&config.Config{}, logger.Nop()).DisableRetry()
	c := NewClient(httpClient, logger.Nop(), server.URL, ".TW")

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars, err := c.FetchBars(context.Background(), "2330", from, from.AddDate(0, 0, 5))
	require.NoError(t, err)

	assert.Equal(t, "/v8/finance/chart/2330.TW", gotPath)
	assert.Equal(t, "1d", gotInterval)
	assert.Len(t, bars, 2)
	assert.Equal(t, SourceName, c.Name())
}

func TestFetchBars_HTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not found", http.StatusNotFound)
	}))
	defer server.Close()

	httpClient := httputil.New(&config.Config{}, logger.Nop()).DisableRetry()
	c := NewClient(httpClient, logger.Nop(), server.URL, ".TW")

	_, err := c.FetchBars(context.Background(), "9999", time.Now().AddDate(0, 0, -10), time.Now())
	var serr *httputil.StatusError
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, http.StatusNotFound, serr.StatusCode)
}
