package scheduler

import (
	"context"
	"time"
)

// DefaultHistoryLimit is the number of results kept per job
const DefaultHistoryLimit = 100

// Job represents a scheduled job
// ⭐ SSOT: 스케줄 작업 인터페이스는 여기서만 정의
type Job interface {
	Name() string

	// Run executes one attempt. ctx is cancelled when the scheduler stops.
	Run(ctx context.Context) error

	// Schedule is a six-field cron expression ("0 40 13 * * 1-5") or a
	// descriptor such as "@daily"
	Schedule() string
}

// JobResult is the outcome of one scheduled or manual execution
type JobResult struct {
	JobName   string        `json:"job_name"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`
	Success   bool          `json:"success"`
	Attempts  int           `json:"attempts"`
	Error     string        `json:"error,omitempty"`
}

// JobHistory is a bounded, oldest-first result log.
// Not safe for concurrent use; the Scheduler guards it with its own lock.
type JobHistory struct {
	limit   int
	results []JobResult
}

func newJobHistory(limit int) *JobHistory {
	if limit <= 0 {
		limit = DefaultHistoryLimit
	}
	return &JobHistory{limit: limit}
}

func (h *JobHistory) add(result JobResult) {
	h.results = append(h.results, result)
	if over := len(h.results) - h.limit; over > 0 {
		h.results = append(h.results[:0:0], h.results[over:]...)
	}
}

// latest returns a copy of the last n results, oldest first
func (h *JobHistory) latest(n int) []JobResult {
	if n <= 0 || n > len(h.results) {
		n = len(h.results)
	}
	out := make([]JobResult, n)
	copy(out, h.results[len(h.results)-n:])
	return out
}

func (h *JobHistory) last() (JobResult, bool) {
	if len(h.results) == 0 {
		return JobResult{}, false
	}
	return h.results[len(h.results)-1], true
}

func (h *JobHistory) counts() (total, failed int) {
	for _, r := range h.results {
		if !r.Success {
			failed++
		}
	}
	return len(h.results), failed
}

// successRate is in [0, 1]; 0 with no runs
func (h *JobHistory) successRate() float64 {
	total, failed := h.counts()
	if total == 0 {
		return 0
	}
	return float64(total-failed) / float64(total)
}
