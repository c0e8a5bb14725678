package yahoo

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/pkg/httputil"
	"github.com/wonny/twscan/pkg/logger"
)

// SourceName identifies this fetcher in logs, metrics and cache keys
const SourceName = "yahoo"

// Client fetches daily bars from the Yahoo Finance chart API
// ⭐ SSOT: Yahoo chart API 호출은 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	suffix     string
}

// NewClient creates a Yahoo client. suffix is appended to bare codes (".TW").
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL, suffix string) *Client {
	if baseURL == "" {
		baseURL = "https://query1.finance.yahoo.com"
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("source", SourceName),
		baseURL:    strings.TrimRight(baseURL, "/"),
		suffix:     suffix,
	}
}

// Name implements contracts.BarFetcher
func (c *Client) Name() string { return SourceName }

// Symbol maps a listing code to a Yahoo ticker.
// Codes that already carry an exchange suffix or an index caret pass through.
func (c *Client) Symbol(code string) string {
	if strings.ContainsAny(code, ".^") {
		return code
	}
	return code + c.suffix
}

// FetchBars implements contracts.BarFetcher
func (c *Client) FetchBars(ctx context.Context, code string, from, to time.Time) ([]contracts.RawBar, error) {
	params := url.Values{}
	params.Set("period1", fmt.Sprintf("%d", from.Unix()))
	params.Set("period2", fmt.Sprintf("%d", to.Unix()))
	params.Set("interval", "1d")
	params.Set("events", "history")

	fullURL := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(c.Symbol(code)), params.Encode())

	body, err := c.httpClient.GetBytes(ctx, fullURL)
	if err != nil {
		return nil, err
	}

	bars, err := ParseChart(body)
	if err != nil {
		return nil, fmt.Errorf("parse chart %s: %w", code, err)
	}

	c.logger.WithFields(map[string]interface{}{
		"stock_code": code,
		"count":      len(bars),
	}).Debug("Fetched bars")
	return bars, nil
}

// ParseChart converts a chart response into raw bars stamped in the
// exchange time zone. Entries missing any of open, high, low or close are
// dropped; a missing volume reads as 0.
func ParseChart(body []byte) ([]contracts.RawBar, error) {
	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("invalid JSON")
	}

	if apiErr := gjson.GetBytes(body, "chart.error"); apiErr.Exists() && apiErr.Type != gjson.Null {
		return nil, fmt.Errorf("chart error %s: %s", apiErr.Get("code").String(), apiErr.Get("description").String())
	}

	result := gjson.GetBytes(body, "chart.result.0")
	if !result.Exists() {
		return nil, contracts.ErrNoData
	}

	loc := exchangeLocation(result.Get("meta"))

	timestamps := result.Get("timestamp").Array()
	quote := result.Get("indicators.quote.0")
	opens := quote.Get("open").Array()
	highs := quote.Get("high").Array()
	lows := quote.Get("low").Array()
	closes := quote.Get("close").Array()
	volumes := quote.Get("volume").Array()

	bars := make([]contracts.RawBar, 0, len(timestamps))
	for i, ts := range timestamps {
		open, okOpen := at(opens, i)
		high, okHigh := at(highs, i)
		low, okLow := at(lows, i)
		closePrice, okClose := at(closes, i)
		if !okOpen || !okHigh || !okLow || !okClose {
			continue
		}
		volume, _ := at(volumes, i)

		bars = append(bars, contracts.RawBar{
			Time:   time.Unix(ts.Int(), 0).In(loc),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}
	return bars, nil
}

// exchangeLocation prefers the IANA name and falls back to the fixed offset
func exchangeLocation(meta gjson.Result) *time.Location {
	if name := meta.Get("exchangeTimezoneName").String(); name != "" {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	if off := meta.Get("gmtoffset"); off.Exists() {
		return time.FixedZone(meta.Get("timezone").String(), int(off.Int()))
	}
	return time.UTC
}

// at reads position i; false when it is absent or null
func at(values []gjson.Result, i int) (float64, bool) {
	if i >= len(values) || values[i].Type == gjson.Null {
		return 0, false
	}
	return values[i].Float(), true
}
