package twse

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/pkg/httputil"
	"github.com/wonny/twscan/pkg/logger"
)

// SourceName identifies this fetcher in logs, metrics and cache keys
const SourceName = "twse"

// statOK is the success marker of STOCK_DAY responses
const statOK = "OK"

// closeOfTradeHour:Minute stamps daily rows at the session close (13:30 Taipei)
const closeOfTradeHour, closeOfTradeMinute = 13, 30

var taipei = mustLoad("Asia/Taipei")

func mustLoad(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		return time.FixedZone("CST", 8*3600)
	}
	return loc
}

// Client fetches daily bars from the TWSE STOCK_DAY report, one month per request
// ⭐ SSOT: TWSE 일봉 조회는 이 클라이언트에서만
type Client struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	baseURL    string
	pager      *rate.Limiter
}

// NewClient creates a TWSE client. monthSpacing throttles the month pages of
// one instrument; 0 disables it.
func NewClient(httpClient *httputil.Client, log *logger.Logger, baseURL string, monthSpacing time.Duration) *Client {
	if baseURL == "" {
		baseURL = "https://www.twse.com.tw"
	}
	limit := rate.Inf
	if monthSpacing > 0 {
		limit = rate.Every(monthSpacing)
	}
	return &Client{
		httpClient: httpClient,
		logger:     log.WithField("source", SourceName),
		baseURL:    strings.TrimRight(baseURL, "/"),
		pager:      rate.NewLimiter(limit, 1),
	}
}

// Name implements contracts.BarFetcher
func (c *Client) Name() string { return SourceName }

// stockDayResponse is the STOCK_DAY JSON payload
type stockDayResponse struct {
	Stat   string     `json:"stat"`
	Date   string     `json:"date"`
	Fields []string   `json:"fields"`
	Data   [][]string `json:"data"`
}

// FetchBars implements contracts.BarFetcher
func (c *Client) FetchBars(ctx context.Context, code string, from, to time.Time) ([]contracts.RawBar, error) {
	fromDay, toDay := contracts.Day(from.In(taipei)), contracts.Day(to.In(taipei))

	var bars []contracts.RawBar
	for _, month := range Months(from.In(taipei), to.In(taipei)) {
		if err := c.pager.Wait(ctx); err != nil {
			return nil, err
		}

		rows, err := c.fetchMonth(ctx, code, month)
		if err != nil {
			return nil, fmt.Errorf("month %s: %w", month.Format("2006-01"), err)
		}
		for _, b := range rows {
			day := contracts.Day(b.Time)
			if day.Before(fromDay) || day.After(toDay) {
				continue
			}
			bars = append(bars, b)
		}
	}

	c.logger.WithFields(map[string]interface{}{
		"stock_code": code,
		"count":      len(bars),
	}).Debug("Fetched bars")
	return bars, nil
}

func (c *Client) fetchMonth(ctx context.Context, code string, month time.Time) ([]contracts.RawBar, error) {
	params := url.Values{}
	params.Set("response", "json")
	params.Set("date", month.Format("20060102"))
	params.Set("stockNo", code)

	var resp stockDayResponse
	if err := c.httpClient.GetJSON(ctx, c.baseURL+"/exchangeReport/STOCK_DAY?"+params.Encode(), &resp); err != nil {
		return nil, err
	}

	// "很抱歉，沒有符合條件的資料!" and similar: no trades that month (or unknown code)
	if resp.Stat != statOK {
		return nil, nil
	}
	return ParseRows(resp.Data)
}

// ParseRows converts STOCK_DAY rows:
// 日期, 成交股數, 成交金額, 開盤價, 最高價, 最低價, 收盤價, 漲跌價差, 成交筆數.
// Rows without a trade ("--") are dropped.
func ParseRows(data [][]string) ([]contracts.RawBar, error) {
	bars := make([]contracts.RawBar, 0, len(data))
	for i, row := range data {
		if len(row) < 7 {
			return nil, fmt.Errorf("row %d: %d columns", i, len(row))
		}

		date, err := ParseROCDate(row[0])
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}

		open, okOpen := parseNumber(row[3])
		high, okHigh := parseNumber(row[4])
		low, okLow := parseNumber(row[5])
		closePrice, okClose := parseNumber(row[6])
		if !okOpen || !okHigh || !okLow || !okClose {
			continue
		}
		volume, _ := parseNumber(row[1])

		bars = append(bars, contracts.RawBar{
			Time:   time.Date(date.Year(), date.Month(), date.Day(), closeOfTradeHour, closeOfTradeMinute, 0, 0, taipei),
			Open:   open,
			High:   high,
			Low:    low,
			Close:  closePrice,
			Volume: volume,
		})
	}
	return bars, nil
}

// ParseROCDate parses a Minguo calendar date such as "113/01/02" (2024-01-02).
func ParseROCDate(s string) (time.Time, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 3 {
		return time.Time{}, fmt.Errorf("invalid ROC date %q", s)
	}

	nums := make([]int, 3)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid ROC date %q", s)
		}
		nums[i] = n
	}
	if nums[1] < 1 || nums[1] > 12 || nums[2] < 1 || nums[2] > 31 {
		return time.Time{}, fmt.Errorf("invalid ROC date %q", s)
	}

	return time.Date(nums[0]+1911, time.Month(nums[1]), nums[2], 0, 0, 0, 0, time.UTC), nil
}

// Months returns the first day of every month touched by [from, to]
func Months(from, to time.Time) []time.Time {
	if to.Before(from) {
		return nil
	}
	cur := time.Date(from.Year(), from.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := time.Date(to.Year(), to.Month(), 1, 0, 0, 0, 0, time.UTC)

	var out []time.Time
	for !cur.After(last) {
		out = append(out, cur)
		cur = cur.AddDate(0, 1, 0)
	}
	return out
}

// parseNumber handles thousands separators; "--" and "X" mark no value
func parseNumber(s string) (float64, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", "")
	if s == "" || s == "--" || strings.HasPrefix(s, "X") {
		return 0, false
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
