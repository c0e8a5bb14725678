package scheduler

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/twscan/pkg/logger"
)

// Scheduler manages scheduled jobs
// ⭐ SSOT: 스케줄 관리는 이 스케줄러에서만
type Scheduler struct {
	cron    *cron.Cron
	logger  *logger.Logger
	jobs    map[string]Job
	entries map[string]cron.EntryID
	history map[string]*JobHistory
	mu      sync.RWMutex

	// cancelled by Stop so running jobs see ctx.Done()
	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup // RunJob goroutines; cron waits for its own

	// Retry configuration
	maxRetries int
	retryDelay time.Duration

	historyLimit int
}

// Option customizes a Scheduler
type Option func(*Scheduler)

// WithRetry sets how often a failed job is retried and the pause between attempts
func WithRetry(maxRetries int, delay time.Duration) Option {
	return func(s *Scheduler) {
		s.maxRetries = maxRetries
		s.retryDelay = delay
	}
}

// WithHistoryLimit caps the results kept per job (default DefaultHistoryLimit)
func WithHistoryLimit(n int) Option {
	return func(s *Scheduler) { s.historyLimit = n }
}

// New creates a new scheduler. Schedules use six fields (with seconds) and
// are interpreted in loc (nil = local time).
func New(log *logger.Logger, loc *time.Location, opts ...Option) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	l := log.WithModule("scheduler")
	ctx, cancel := context.WithCancel(context.Background())

	s := &Scheduler{
		cron: cron.New(
			cron.WithSeconds(),
			cron.WithLocation(loc),
			cron.WithChain(cron.SkipIfStillRunning(cronLogger{l})),
		),
		logger:       l,
		jobs:         make(map[string]Job),
		entries:      make(map[string]cron.EntryID),
		history:      make(map[string]*JobHistory),
		ctx:          ctx,
		cancel:       cancel,
		maxRetries:   3,
		retryDelay:   1 * time.Minute,
		historyLimit: DefaultHistoryLimit,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddJob adds a job to the scheduler
func (s *Scheduler) AddJob(job Job) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	jobName := job.Name()

	// Check if job already exists
	if _, exists := s.jobs[jobName]; exists {
		return fmt.Errorf("job %s already exists", jobName)
	}

	// Add job to cron
	id, err := s.cron.AddFunc(job.Schedule(), func() {
		s.runJob(job)
	})
	if err != nil {
		return fmt.Errorf("failed to schedule job %s: %w", jobName, err)
	}

	// Store job
	s.jobs[jobName] = job
	s.entries[jobName] = id
	s.history[jobName] = newJobHistory(s.historyLimit)

	s.logger.WithFields(map[string]interface{}{
		"job":      jobName,
		"schedule": job.Schedule(),
	}).Info("Job added to scheduler")

	return nil
}

// RemoveJob removes a job from the scheduler
func (s *Scheduler) RemoveJob(jobName string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.jobs[jobName]; !exists {
		return fmt.Errorf("job %s not found", jobName)
	}

	s.cron.Remove(s.entries[jobName])
	delete(s.jobs, jobName)
	delete(s.entries, jobName)
	s.logger.WithField("job", jobName).Info("Job removed from scheduler")

	return nil
}

// Start starts the scheduler
func (s *Scheduler) Start() {
	s.logger.Info("Starting scheduler")
	s.cron.Start()
}

// Stop stops the scheduler, cancels running jobs and waits for them
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping scheduler")
	ctx := s.cron.Stop()
	s.cancel()
	<-ctx.Done()
	s.wg.Wait()
	s.logger.Info("Scheduler stopped")
}

// NextRun returns the next activation of a job (zero before Start)
func (s *Scheduler) NextRun(jobName string) (time.Time, error) {
	s.mu.RLock()
	id, exists := s.entries[jobName]
	s.mu.RUnlock()

	if !exists {
		return time.Time{}, fmt.Errorf("job %s not found", jobName)
	}
	return s.cron.Entry(id).Next, nil
}

// RunJob runs a specific job immediately (outside of schedule)
func (s *Scheduler) RunJob(jobName string) error {
	s.mu.RLock()
	job, exists := s.jobs[jobName]
	s.mu.RUnlock()

	if !exists {
		return fmt.Errorf("job %s not found", jobName)
	}

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.runJob(job)
	}()
	return nil
}

// runJob executes a job with retry logic
func (s *Scheduler) runJob(job Job) {
	jobName := job.Name()
	startTime := time.Now()

	s.logger.WithField("job", jobName).Info("Job started")

	var lastErr error
	var success bool
	attempts := 0

	// Try running the job with retries
	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		attempts++
		err := job.Run(s.ctx)
		if err == nil {
			success = true
			break
		}

		lastErr = err
		if s.ctx.Err() != nil {
			break
		}

		s.logger.WithFields(map[string]interface{}{
			"job":     jobName,
			"attempt": attempt + 1,
			"error":   err.Error(),
		}).Warn("Job execution failed, retrying")

		// Wait before retry (except on last attempt)
		if attempt < s.maxRetries {
			select {
			case <-time.After(s.retryDelay):
			case <-s.ctx.Done():
			}
		}
	}

	endTime := time.Now()
	duration := endTime.Sub(startTime)

	// Create job result
	result := JobResult{
		JobName:   jobName,
		StartTime: startTime,
		EndTime:   endTime,
		Duration:  duration,
		Success:   success,
		Attempts:  attempts,
	}

	if !success && lastErr != nil {
		result.Error = lastErr.Error()
	}

	// Store result in history
	s.mu.Lock()
	if history, exists := s.history[jobName]; exists {
		history.add(result)
	}
	s.mu.Unlock()

	// Log completion
	if success {
		s.logger.WithFields(map[string]interface{}{
			"job":      jobName,
			"duration": duration,
		}).Info("Job completed successfully")
	} else {
		s.logger.WithFields(map[string]interface{}{
			"job":      jobName,
			"duration": duration,
			"error":    lastErr.Error(),
		}).Error("Job failed after all retries")
	}
}

// History returns a copy of the last n results of a job, oldest first
// (n <= 0 returns all kept results)
func (s *Scheduler) History(jobName string, n int) ([]JobResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history, exists := s.history[jobName]
	if !exists {
		return nil, fmt.Errorf("job %s not found", jobName)
	}
	return history.latest(n), nil
}

// GetAllJobs returns all registered jobs sorted by name
func (s *Scheduler) GetAllJobs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	jobs := make([]string, 0, len(s.jobs))
	for jobName := range s.jobs {
		jobs = append(jobs, jobName)
	}
	sort.Strings(jobs)

	return jobs
}

// GetJobStats returns statistics for all jobs
func (s *Scheduler) GetJobStats() map[string]JobStats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := make(map[string]JobStats)

	for jobName, job := range s.jobs {
		history := s.history[jobName]
		total, failed := history.counts()

		var lastRun, lastSuccess, lastFailure *time.Time
		if last, ok := history.last(); ok {
			started := last.StartTime
			lastRun = &started
			if last.Success {
				lastSuccess = &started
			} else {
				lastFailure = &started
			}
		}

		var next *time.Time
		if n := s.cron.Entry(s.entries[jobName]).Next; !n.IsZero() {
			next = &n
		}

		stats[jobName] = JobStats{
			JobName:      jobName,
			Schedule:     job.Schedule(),
			TotalRuns:    total,
			SuccessCount: total - failed,
			FailureCount: failed,
			SuccessRate:  history.successRate(),
			LastRun:      lastRun,
			LastSuccess:  lastSuccess,
			LastFailure:  lastFailure,
			NextRun:      next,
		}
	}

	return stats
}

// JobStats represents statistics for a job
type JobStats struct {
	JobName      string     `json:"job_name"`
	Schedule     string     `json:"schedule"`
	TotalRuns    int        `json:"total_runs"`
	SuccessCount int        `json:"success_count"`
	FailureCount int        `json:"failure_count"`
	SuccessRate  float64    `json:"success_rate"`
	LastRun      *time.Time `json:"last_run,omitempty"`
	LastSuccess  *time.Time `json:"last_success,omitempty"`
	LastFailure  *time.Time `json:"last_failure,omitempty"`
	NextRun      *time.Time `json:"next_run,omitempty"`
}

// cronLogger adapts the logger to cron.Logger (skip notices, panics)
type cronLogger struct {
	l *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.l.WithFields(kv(keysAndValues)).Debug(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.l.WithError(err).WithFields(kv(keysAndValues)).Error(msg)
}

func kv(pairs []interface{}) map[string]interface{} {
	fields := make(map[string]interface{}, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		fields[fmt.Sprint(pairs[i])] = pairs[i+1]
	}
	return fields
}
