package realtime

import (
	"time"

	"github.com/wonny/twscan/internal/contracts"
	"github.com/wonny/twscan/internal/scanner"
)

// EventType identifies a stream message
type EventType string

const (
	EventProgress EventType = "progress" // one instrument done
	EventFinished EventType = "finished" // scan complete, full report attached
)

// Event is one message pushed to stream clients
// ⭐ SSOT: 실시간 스캔 이벤트 구조
type Event struct {
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`

	// progress
	Index   int                          `json:"index,omitempty"`
	Total   int                          `json:"total,omitempty"`
	Code    string                       `json:"code,omitempty"`
	Row     *contracts.SignalResult      `json:"row,omitempty"`
	Skipped *contracts.SkippedInstrument `json:"skipped,omitempty"`

	// finished
	Report  *contracts.ScanReport `json:"report,omitempty"`
	Summary *scanner.Summary      `json:"summary,omitempty"`
}

// ProgressEvent converts scanner progress
func ProgressEvent(p scanner.Progress, at time.Time) Event {
	return Event{
		Type:      EventProgress,
		Timestamp: at,
		Index:     p.Index,
		Total:     p.Total,
		Code:      p.Code,
		Row:       p.Row,
		Skipped:   p.Skipped,
	}
}

// FinishedEvent wraps a finished report
func FinishedEvent(r *contracts.ScanReport, at time.Time) Event {
	sum := scanner.Summarize(r)
	return Event{
		Type:      EventFinished,
		Timestamp: at,
		Report:    r,
		Summary:   &sum,
	}
}
