package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/twscan/internal/scheduler"
	"github.com/wonny/twscan/pkg/logger"
)

const historyLimit = 20

// JobScheduler is the part of the scheduler exposed over HTTP
type JobScheduler interface {
	GetJobStats() map[string]scheduler.JobStats
	History(jobName string, n int) ([]scheduler.JobResult, error)
	RunJob(jobName string) error
}

// JobsHandler exposes scheduled job state
type JobsHandler struct {
	scheduler JobScheduler
	logger    *logger.Logger
}

// NewJobsHandler creates a new jobs handler
func NewJobsHandler(s JobScheduler, log *logger.Logger) *JobsHandler {
	return &JobsHandler{scheduler: s, logger: log}
}

// GetJobs returns statistics for every job
// GET /api/jobs
func (h *JobsHandler) GetJobs(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, h.scheduler.GetJobStats())
}

// GetHistory returns the recent results of one job
// GET /api/jobs/{name}
func (h *JobsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	results, err := h.scheduler.History(name, historyLimit)
	if err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, results)
}

// RunJob triggers a job outside its schedule
// POST /api/jobs/{name}/run
func (h *JobsHandler) RunJob(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	if err := h.scheduler.RunJob(name); err != nil {
		respondError(w, http.StatusNotFound, err.Error())
		return
	}
	h.logger.WithField("job", name).Info("Job triggered manually")
	respondJSON(w, http.StatusAccepted, map[string]interface{}{
		"success": true,
		"job":     name,
	})
}
