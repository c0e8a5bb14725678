package scanner

import (
	"context"
	"fmt"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/indicators"
	"github.com/wonny/twscan/internal/s0_data"
	"github.com/wonny/twscan/internal/s2_signals"
)

// Summary counts report rows per category
type Summary struct {
	Total   int `json:"total"`
	Green   int `json:"green"`
	Red     int `json:"red"`
	Yellow  int `json:"yellow"`
	Skipped int `json:"skipped"`
}

// Summarize counts the rows of a report
func Summarize(report *contracts.ScanReport) Summary {
	if report == nil {
		return Summary{}
	}
	return Summary{
		Total:   report.Count(),
		Green:   report.CountBy(contracts.SignalGreen),
		Red:     report.CountBy(contracts.SignalRed),
		Yellow:  report.CountBy(contracts.SignalYellow),
		Skipped: len(report.Skipped),
	}
}

// Partition returns GREEN and RED codes in report order for notifiers.
// Message wording is left to the notification side.
func Partition(report *contracts.ScanReport) (green, red []string) {
	if report == nil {
		return nil, nil
	}
	for _, row := range report.Rows {
		switch row.Signal {
		case contracts.SignalGreen:
			green = append(green, row.Code)
		case contracts.SignalRed:
			red = append(red, row.Code)
		}
	}
	return green, red
}

// Inspection is the full indicator history of one instrument
type Inspection struct {
	Code    string
	Set     *contracts.IndicatorSet
	Signals []contracts.Signal // per bar
	Result  contracts.SignalResult
}

// Inspect fetches one instrument and keeps every column instead of only the
// latest classification. Retrieval is not throttled.
func (s *Scanner) Inspect(ctx context.Context, code string, cfg contracts.ScanConfig) (*Inspection, error) {
	params := indicators.ParamsFromConfig(cfg)
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("scan config: %w", err)
	}

	to := s.now()
	from := to.AddDate(0, 0, -s.cfg.LookbackDays)

	raw, err := s.fetcher.FetchBars(ctx, code, from, to)
	if err != nil {
		return nil, &contracts.RetrievalError{Code: code, Source: s.fetcher.Name(), Err: err}
	}

	bars := s0_data.Normalize(raw)
	if len(bars) == 0 {
		return nil, fmt.Errorf("inspect %s: %w", code, contracts.ErrNoData)
	}

	set, err := indicators.Compute(bars, params)
	if err != nil {
		return nil, fmt.Errorf("inspect %s: %w", code, err)
	}

	result, err := s2_signals.Classify(code, set, cfg)
	if err != nil {
		return nil, err
	}

	return &Inspection{
		Code:    code,
		Set:     set,
		Signals: s2_signals.ClassifySeries(set, cfg),
		Result:  result,
	}, nil
}

// GreenDays returns the dates on which the series was GREEN, newest first, at most limit.
func (in *Inspection) GreenDays(limit int) []contracts.IndicatorRow {
	var out []contracts.IndicatorRow
	for i := len(in.Signals) - 1; i >= 0 && (limit <= 0 || len(out) < limit); i-- {
		if in.Signals[i] == contracts.SignalGreen {
			out = append(out, in.Set.At(i))
		}
	}
	return out
}
