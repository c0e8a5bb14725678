package contracts

import (
	"context"
	"time"
)

// BarFetcher retrieves raw bars for one instrument (retrieval collaborator).
// ⭐ SSOT: 시세 조회 인터페이스
type BarFetcher interface {
	// Name identifies the source in logs and cache keys
	Name() string

	// FetchBars returns bars in [from, to]. Any failure means "skip this instrument".
	FetchBars(ctx context.Context, code string, from, to time.Time) ([]RawBar, error)
}

// ConfigSource supplies the instrument list and raw strategy parameters
// (configuration collaborator).
type ConfigSource interface {
	EnabledCodes(ctx context.Context) ([]string, error)
	StrategyParams(ctx context.Context) (map[string]any, error)
}

// ReportSink stores or displays a finished report (report sink collaborator).
type ReportSink interface {
	Name() string
	Write(ctx context.Context, report *ScanReport) error
}

// Notifier delivers a composed text message (notification collaborator).
type Notifier interface {
	Name() string
	Send(ctx context.Context, text string) error
}
