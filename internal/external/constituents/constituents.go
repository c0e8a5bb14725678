package constituents

import (
	"bytes"
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/pkg/httputil"
	"github.com/wonny/twscan/pkg/logger"
)

// Memo marks watch list entries added from the Taiwan 50 index
const Memo = "0050成分股"

var codeRe = regexp.MustCompile(`^\d{4,6}[A-Z]?$`)

// Scraper reads Taiwan 50 constituents from an HTML page holding a
// code/name table. Without a URL the built-in list is used.
type Scraper struct {
	httpClient *httputil.Client
	logger     *logger.Logger
	url        string
}

// NewScraper creates a constituents scraper
func NewScraper(httpClient *httputil.Client, log *logger.Logger, url string) *Scraper {
	return &Scraper{
		httpClient: httpClient,
		logger:     log.WithModule("constituents"),
		url:        url,
	}
}

// Fetch returns the current constituents. A failed or empty scrape falls
// back to Builtin with a warning.
func (s *Scraper) Fetch(ctx context.Context) []contracts.Stock {
	if s.url == "" {
		return Builtin()
	}

	body, err := s.httpClient.GetBytes(ctx, s.url)
	if err != nil {
		s.logger.WithError(err).Warn("Constituent page unavailable, using built-in list")
		return Builtin()
	}

	stocks, err := ParseHTML(body)
	if err != nil || len(stocks) == 0 {
		s.logger.WithError(err).Warn("No constituents found on page, using built-in list")
		return Builtin()
	}

	s.logger.WithField("count", len(stocks)).Info("Scraped constituents")
	return stocks
}

// ParseHTML extracts (code, name) pairs from table rows: the first cell that
// looks like a listing code, followed by the name cell.
func ParseHTML(body []byte) ([]contracts.Stock, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	seen := make(map[string]bool)
	var stocks []contracts.Stock

	doc.Find("tr").Each(func(_ int, row *goquery.Selection) {
		cells := row.Find("td")
		for i := 0; i < cells.Length()-1; i++ {
			code := strings.TrimSpace(cells.Eq(i).Text())
			if !codeRe.MatchString(code) {
				continue
			}
			name := strings.TrimSpace(cells.Eq(i + 1).Text())
			if name == "" || seen[code] {
				return
			}
			seen[code] = true
			stocks = append(stocks, contracts.Stock{Code: code, Name: name, Enabled: true, Memo: Memo})
			return
		}
	})
	return stocks, nil
}

// Merge returns the entries of incoming whose code is not in existing.
// Existing rows are never modified.
func Merge(existing, incoming []contracts.Stock) []contracts.Stock {
	have := make(map[string]bool, len(existing))
	for _, s := range existing {
		have[s.Code] = true
	}

	var added []contracts.Stock
	for _, s := range incoming {
		if have[s.Code] {
			continue
		}
		have[s.Code] = true
		added = append(added, s)
	}
	return added
}

// Builtin returns the Taiwan 50 constituents as of the last list refresh
func Builtin() []contracts.Stock {
	out := make([]contracts.Stock, len(builtin))
	for i, b := range builtin {
		out[i] = contracts.Stock{Code: b[0], Name: b[1], Enabled: true, Memo: Memo}
	}
	return out
}

var builtin = [][2]string{
	{"2330", "台積電"}, {"2317", "鴻海"}, {"2454", "聯發科"}, {"2308", "台達電"},
	{"2382", "廣達"}, {"2891", "中信金"}, {"2881", "富邦金"}, {"2882", "國泰金"},
	{"3711", "日月光投控"}, {"2303", "聯電"}, {"2345", "智邦"}, {"2884", "玉山金"},
	{"2412", "中華電"}, {"2886", "兆豐金"}, {"2357", "華碩"}, {"3231", "緯創"},
	{"2887", "台新金"}, {"1216", "統一"}, {"2885", "元大金"}, {"6669", "緯穎"},
	{"2383", "台光電"}, {"2301", "光寶科"}, {"2892", "第一金"}, {"3017", "奇鋐"},
	{"2890", "永豐金"}, {"2880", "華南金"}, {"3661", "世芯-KY"}, {"2379", "瑞昱"},
	{"2327", "國巨"}, {"5880", "合庫金"}, {"3034", "聯詠"}, {"2883", "凱基金"},
	{"3008", "大立光"}, {"2002", "中鋼"}, {"1303", "南亞"}, {"2603", "長榮"},
	{"6919", "康霈"}, {"2059", "川湖"}, {"5871", "中租-KY"}, {"2207", "和泰車"},
	{"5876", "上海商銀"}, {"1301", "台塑"}, {"3045", "台灣大"}, {"4904", "遠傳"},
	{"2395", "研華"}, {"4938", "和碩"}, {"2912", "統一超"}, {"2615", "萬海"},
	{"2609", "陽明"}, {"6505", "台塑化"}, {"6446", "藥華藥"},
}
